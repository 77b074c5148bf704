package ggk

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Foundation is a grant-making organization, keyed by tax ID. It is owned by
// the DatasetBuilder and mutated only by appending grants parsed from later
// batches for the same tax ID.
type Foundation struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	GrantsGiven []Grant `json:"grantsGiven"`
	Meta        Meta    `json:"metadata"`
}

// ReceivedGrant is one grant as seen from the recipient's side.
type ReceivedGrant struct {
	FunderID   string `json:"funderId"`
	FunderName string `json:"funderName"`
	Amount     int64  `json:"amount"`
	TaxYear    int    `json:"taxYear"`
}

// Organization is a grant recipient, keyed by tax ID or by a placeholder key
// derived from its normalized name when no tax ID was reported. Placeholder
// entries may later be consolidated into real-tax-ID entries.
type Organization struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	GrantsReceived []ReceivedGrant `json:"grantsReceived"`
	Meta           *Meta           `json:"metadata,omitempty"`
}

// DatasetMeta summarizes a built dataset.
type DatasetMeta struct {
	FoundationsProcessed int       `json:"foundationsProcessed"`
	TotalGrants          int       `json:"totalGrants"`
	GeneratedAt          time.Time `json:"generatedAt"`
}

// CompleteDataset is the bidirectional grants graph merged from every parsed
// batch. It is rebuilt from scratch on every run; nothing mutates it across
// runs.
type CompleteDataset struct {
	Foundations   map[string]*Foundation   `json:"foundations"`
	Organizations map[string]*Organization `json:"organizations"`
	Meta          DatasetMeta              `json:"metadata"`
}

// DatasetBuilder merges parsed filing batches into one CompleteDataset. It is
// safe for concurrent use by multiple month-processing goroutines - the merge
// is commutative over batch order, as grant lists are appended, never
// positionally indexed.
type DatasetBuilder struct {
	// Log receives notes about ambiguous entity resolution. Defaults to
	// NopLogger.
	Log Logger

	mu          sync.Mutex
	foundations map[string]*Foundation
	orgs        map[string]*Organization
}

// NewDatasetBuilder returns an empty builder.
func NewDatasetBuilder() *DatasetBuilder {
	return &DatasetBuilder{
		Log:         NopLogger{},
		foundations: make(map[string]*Foundation),
		orgs:        make(map[string]*Organization),
	}
}

// AddBatch merges one parsed batch into the builder. Records failing basic
// shape checks are skipped, as are any grants within a record that fail
// theirs.
func (b *DatasetBuilder) AddBatch(recs []FilingRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range recs {
		if !rec.Valid() {
			continue
		}
		switch rec.Role {
		case RoleGrantMaker:
			b.addGrantMaker(rec)
		case RoleBeneficiary:
			b.addBeneficiary(rec)
		}
	}
}

func (b *DatasetBuilder) addGrantMaker(rec FilingRecord) {
	id := CanonicalEIN(rec.EIN)
	f, ok := b.foundations[id]
	if !ok {
		f = &Foundation{ID: id, Name: rec.Name, Meta: rec.Meta}
		b.foundations[id] = f
	}
	for _, g := range rec.GrantsPaid {
		if !g.Valid() {
			continue
		}
		f.GrantsGiven = append(f.GrantsGiven, g)
		b.addReceived(g, id, f.Name)
	}
}

// addReceived records the recipient side of a grant, minting a placeholder
// organization when the grant carries no usable tax ID.
func (b *DatasetBuilder) addReceived(g Grant, funderID, funderName string) {
	var key string
	if ValidEIN(g.RecipientEIN) {
		key = CanonicalEIN(g.RecipientEIN)
	} else {
		key = PlaceholderKey(g.RecipientName)
	}
	o, ok := b.orgs[key]
	if !ok {
		o = &Organization{ID: key, Name: g.RecipientName}
		b.orgs[key] = o
	}
	o.GrantsReceived = append(o.GrantsReceived, ReceivedGrant{
		FunderID:   funderID,
		FunderName: funderName,
		Amount:     g.Amount,
		TaxYear:    g.TaxYear,
	})
}

// addBeneficiary contributes an organization's own metadata without adding to
// the grant graph.
func (b *DatasetBuilder) addBeneficiary(rec FilingRecord) {
	id := CanonicalEIN(rec.EIN)
	o, ok := b.orgs[id]
	if !ok {
		o = &Organization{ID: id, Name: rec.Name}
		b.orgs[id] = o
	}
	if o.Meta == nil {
		meta := rec.Meta
		o.Meta = &meta
		if o.Name == "" {
			o.Name = rec.Name
		}
	}
}

// Consolidate runs the entity resolution pass: every organization is
// registered in the index under its normalized name, then each
// placeholder-keyed organization whose name matches at least one real-tax-ID
// entry has its received grants moved into that entry and is deleted. When
// several real entries share a name the first in ID order wins - this is a
// documented fallback, and each such case is logged for manual review.
// Grants are moved, never duplicated or dropped.
func (b *DatasetBuilder) Consolidate(idx NameIndex) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.orgs))
	for id := range b.orgs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		norm := NormalizeName(b.orgs[id].Name)
		if norm == "" {
			continue
		}
		if err := idx.Add(norm, id, IsPlaceholderKey(id)); err != nil {
			return errors.Wrapf(err, "indexing '%v'", id)
		}
	}

	for _, id := range ids {
		if !IsPlaceholderKey(id) {
			continue
		}
		ph := b.orgs[id]
		norm := NormalizeName(ph.Name)
		if norm == "" {
			continue
		}
		entries, err := idx.Lookup(norm)
		if err != nil {
			return errors.Wrapf(err, "looking up '%v'", norm)
		}
		var real []NameEntry
		for _, e := range entries {
			if !e.Placeholder {
				real = append(real, e)
			}
		}
		if len(real) == 0 {
			continue
		}
		if len(real) > 1 {
			b.Log.Printf("ambiguous name '%v' (%v): %d tax-ID matches, using %v", ph.Name, norm, len(real), real[0].ID)
		}
		target := b.orgs[real[0].ID]
		target.GrantsReceived = append(target.GrantsReceived, ph.GrantsReceived...)
		delete(b.orgs, id)
	}
	return nil
}

// Dataset assembles the CompleteDataset from everything merged so far. The
// maps are shared with the builder, not copied - the builder should not be
// reused after calling Dataset.
func (b *DatasetBuilder) Dataset(generatedAt time.Time) *CompleteDataset {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, o := range b.orgs {
		total += len(o.GrantsReceived)
	}
	return &CompleteDataset{
		Foundations:   b.foundations,
		Organizations: b.orgs,
		Meta: DatasetMeta{
			FoundationsProcessed: len(b.foundations),
			TotalGrants:          total,
			GeneratedAt:          generatedAt,
		},
	}
}
