package ggk

// Role classifies a parsed filing by what it contributes to the grants graph.
type Role string

const (
	// RoleGrantMaker marks a filing which reports grants paid to other
	// organizations.
	RoleGrantMaker Role = "grant-maker"
	// RoleBeneficiary marks a filing which reports only the filer's own
	// financial and organizational metadata.
	RoleBeneficiary Role = "beneficiary"
)

// Grant is a single grant paid by a foundation to a recipient organization.
// RecipientEIN is frequently absent from filings - recipients are then matched
// to known organizations by normalized name (see DatasetBuilder.Consolidate).
type Grant struct {
	RecipientEIN   string `json:"recipientTaxId,omitempty"`
	RecipientName  string `json:"recipientName"`
	Amount         int64  `json:"amount"`
	TaxYear        int    `json:"taxYear"`
	RecipientCity  string `json:"recipientCity,omitempty"`
	RecipientState string `json:"recipientState,omitempty"`
	RecipientZIP   string `json:"recipientZip,omitempty"`
}

// Valid reports whether the grant passes the basic shape checks. Grants which
// fail are dropped by the parser, never defaulted.
func (g Grant) Valid() bool {
	return g.Amount > 0 && g.RecipientName != ""
}

// Meta carries the non-grant metadata extracted from a filing.
type Meta struct {
	Street       string `json:"street,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZIP          string `json:"zip,omitempty"`
	TotalAssets  int64  `json:"totalAssets,omitempty"`
	TotalRevenue int64  `json:"totalRevenue,omitempty"`
	TaxYear      int    `json:"taxYear,omitempty"`
}

// FilingRecord is the normalized result of parsing one filing document. It is
// transient - the DatasetBuilder merges FilingRecords into Foundations and
// Organizations and the records themselves are not persisted beyond the
// monthly cache.
type FilingRecord struct {
	EIN        string  `json:"ein"`
	Name       string  `json:"name"`
	Role       Role    `json:"role"`
	TaxYear    int     `json:"taxYear"`
	Meta       Meta    `json:"metadata"`
	GrantsPaid []Grant `json:"grantsPaid,omitempty"`
}

// Valid reports whether the record has enough identity to be merged into the
// dataset.
func (r FilingRecord) Valid() bool {
	return ValidEIN(r.EIN) && r.Name != ""
}
