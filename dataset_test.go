package ggk

import (
	"testing"
	"time"
)

func grantMakerRec(ein, name string, grants ...Grant) FilingRecord {
	return FilingRecord{
		EIN:        ein,
		Name:       name,
		Role:       RoleGrantMaker,
		TaxYear:    2023,
		GrantsPaid: grants,
	}
}

func TestDatasetBuilderMerge(t *testing.T) {
	b := NewDatasetBuilder()
	b.AddBatch([]FilingRecord{
		grantMakerRec("11-1111111", "Alpha Foundation",
			Grant{RecipientEIN: "22-2222222", RecipientName: "Beta Org", Amount: 5000, TaxYear: 2023},
			Grant{RecipientName: "Gamma Society", Amount: 1200, TaxYear: 2023},
		),
		{EIN: "22-2222222", Name: "Beta Org", Role: RoleBeneficiary, TaxYear: 2023,
			Meta: Meta{City: "Omaha", State: "NE", TotalAssets: 900}},
	})
	ds := b.Dataset(time.Now())

	f, ok := ds.Foundations["111111111"]
	if !ok {
		t.Fatalf("foundation should be keyed by canonical tax ID: %v", ds.Foundations)
	}
	if len(f.GrantsGiven) != 2 {
		t.Fatalf("expected 2 grants given, got %d", len(f.GrantsGiven))
	}

	beta, ok := ds.Organizations["222222222"]
	if !ok {
		t.Fatalf("recipient with tax ID should be keyed by it: %v", ds.Organizations)
	}
	if len(beta.GrantsReceived) != 1 {
		t.Fatalf("expected 1 grant received, got %d", len(beta.GrantsReceived))
	}
	if beta.GrantsReceived[0].FunderID != "111111111" {
		t.Fatalf("wrong funder: %v", beta.GrantsReceived[0])
	}
	if beta.Meta == nil || beta.Meta.City != "Omaha" {
		t.Fatalf("beneficiary metadata should be attached: %+v", beta.Meta)
	}

	gamma, ok := ds.Organizations[PlaceholderKey("Gamma Society")]
	if !ok {
		t.Fatalf("recipient without tax ID should get a placeholder key: %v", ds.Organizations)
	}
	if len(gamma.GrantsReceived) != 1 {
		t.Fatalf("expected 1 grant received, got %d", len(gamma.GrantsReceived))
	}

	if ds.Meta.FoundationsProcessed != 1 {
		t.Fatalf("expected 1 foundation processed, got %d", ds.Meta.FoundationsProcessed)
	}
	if ds.Meta.TotalGrants != 2 {
		t.Fatalf("expected 2 total grants, got %d", ds.Meta.TotalGrants)
	}
}

func TestDatasetBuilderSkipsInvalid(t *testing.T) {
	b := NewDatasetBuilder()
	b.AddBatch([]FilingRecord{
		{EIN: "not-an-ein", Name: "Bad Record", Role: RoleGrantMaker},
		{EIN: "33-3333333", Name: "", Role: RoleBeneficiary},
		grantMakerRec("11-1111111", "Alpha Foundation",
			Grant{RecipientName: "", Amount: 100, TaxYear: 2023},
			Grant{RecipientName: "Zero Grant Org", Amount: 0, TaxYear: 2023},
		),
	})
	ds := b.Dataset(time.Now())
	if len(ds.Foundations) != 1 {
		t.Fatalf("expected 1 foundation, got %v", ds.Foundations)
	}
	if got := len(ds.Foundations["111111111"].GrantsGiven); got != 0 {
		t.Fatalf("invalid grants should be dropped, got %d", got)
	}
	if len(ds.Organizations) != 0 {
		t.Fatalf("expected no organizations, got %v", ds.Organizations)
	}
}

func TestDatasetBuilderBatchOrderIndependent(t *testing.T) {
	batch1 := []FilingRecord{grantMakerRec("11-1111111", "Alpha Foundation",
		Grant{RecipientName: "Beta Org", Amount: 100, TaxYear: 2022})}
	batch2 := []FilingRecord{grantMakerRec("11-1111111", "Alpha Foundation",
		Grant{RecipientName: "Beta Org", Amount: 200, TaxYear: 2023})}

	ba := NewDatasetBuilder()
	ba.AddBatch(batch1)
	ba.AddBatch(batch2)
	bb := NewDatasetBuilder()
	bb.AddBatch(batch2)
	bb.AddBatch(batch1)

	da, db := ba.Dataset(time.Now()), bb.Dataset(time.Now())
	if da.Meta.TotalGrants != 2 || db.Meta.TotalGrants != 2 {
		t.Fatalf("expected 2 grants each way, got %d and %d", da.Meta.TotalGrants, db.Meta.TotalGrants)
	}
	ka := PlaceholderKey("Beta Org")
	var ta, tb int64
	for _, rg := range da.Organizations[ka].GrantsReceived {
		ta += rg.Amount
	}
	for _, rg := range db.Organizations[ka].GrantsReceived {
		tb += rg.Amount
	}
	if ta != 300 || tb != 300 {
		t.Fatalf("totals should not depend on batch order: %d vs %d", ta, tb)
	}
}

func TestConsolidate(t *testing.T) {
	b := NewDatasetBuilder()
	b.AddBatch([]FilingRecord{
		// grant to "Acme Inc" with no tax ID mints a placeholder
		grantMakerRec("11-1111111", "Alpha Foundation",
			Grant{RecipientName: "Acme Inc", Amount: 1000, TaxYear: 2023}),
		// the same org files under its real tax ID as "ACME"
		{EIN: "44-4444444", Name: "ACME", Role: RoleBeneficiary, TaxYear: 2023,
			Meta: Meta{TotalAssets: 5000}},
	})
	if err := b.Consolidate(NewMapNameIndex()); err != nil {
		t.Fatalf("consolidating: %v", err)
	}
	ds := b.Dataset(time.Now())

	if _, ok := ds.Organizations[PlaceholderKey("Acme Inc")]; ok {
		t.Fatalf("placeholder entry should be gone after consolidation")
	}
	acme, ok := ds.Organizations["444444444"]
	if !ok {
		t.Fatalf("real-tax-ID entry should remain: %v", ds.Organizations)
	}
	if len(acme.GrantsReceived) != 1 || acme.GrantsReceived[0].Amount != 1000 {
		t.Fatalf("placeholder's grants should move to the real entry: %+v", acme.GrantsReceived)
	}
	if ds.Meta.TotalGrants != 1 {
		t.Fatalf("grants must be moved, not duplicated or dropped: %d", ds.Meta.TotalGrants)
	}
}

func TestConsolidateAmbiguous(t *testing.T) {
	b := NewDatasetBuilder()
	b.AddBatch([]FilingRecord{
		grantMakerRec("11-1111111", "Alpha Foundation",
			Grant{RecipientName: "Acme", Amount: 500, TaxYear: 2023}),
		{EIN: "44-4444444", Name: "Acme Inc", Role: RoleBeneficiary, TaxYear: 2023},
		{EIN: "55-5555555", Name: "The Acme Foundation", Role: RoleBeneficiary, TaxYear: 2023},
	})
	if err := b.Consolidate(NewMapNameIndex()); err != nil {
		t.Fatalf("consolidating: %v", err)
	}
	ds := b.Dataset(time.Now())

	// first in sorted ID order wins
	if got := len(ds.Organizations["444444444"].GrantsReceived); got != 1 {
		t.Fatalf("expected the lowest tax ID to absorb the grant, got %d", got)
	}
	if got := len(ds.Organizations["555555555"].GrantsReceived); got != 0 {
		t.Fatalf("other candidate should be untouched, got %d", got)
	}
}

func TestConsolidateIdempotent(t *testing.T) {
	b := NewDatasetBuilder()
	b.AddBatch([]FilingRecord{
		grantMakerRec("11-1111111", "Alpha Foundation",
			Grant{RecipientName: "Acme Inc", Amount: 1000, TaxYear: 2023}),
		{EIN: "44-4444444", Name: "ACME", Role: RoleBeneficiary, TaxYear: 2023},
	})
	if err := b.Consolidate(NewMapNameIndex()); err != nil {
		t.Fatalf("first consolidation: %v", err)
	}
	if err := b.Consolidate(NewMapNameIndex()); err != nil {
		t.Fatalf("second consolidation: %v", err)
	}
	ds := b.Dataset(time.Now())
	if ds.Meta.TotalGrants != 1 {
		t.Fatalf("consolidation should be idempotent, got %d grants", ds.Meta.TotalGrants)
	}
}
