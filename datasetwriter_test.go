package ggk

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testDataset() *CompleteDataset {
	b := NewDatasetBuilder()
	b.AddBatch([]FilingRecord{
		grantMakerRec("11-1111111", "Alpha Foundation",
			Grant{RecipientEIN: "22-2222222", RecipientName: "Beta Org", Amount: 5000, TaxYear: 2023},
			Grant{RecipientName: "Gamma Society", Amount: 1200, TaxYear: 2022},
		),
		grantMakerRec("66-6666666", "Zeta Trust",
			Grant{RecipientEIN: "22-2222222", RecipientName: "Beta Org", Amount: 250, TaxYear: 2023},
		),
		{EIN: "22-2222222", Name: "Beta Org", Role: RoleBeneficiary, TaxYear: 2023,
			Meta: Meta{City: "Omaha", State: "NE"}},
	})
	return b.Dataset(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
}

func TestWriteReadDataset(t *testing.T) {
	dir, err := ioutil.TempDir("", "ggk-writer")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "dataset.json")

	ds := testDataset()
	if err := WriteDataset(path, ds); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file should be renamed away")
	}

	got, err := ReadDataset(path)
	if err != nil {
		t.Fatalf("reading dataset: %v", err)
	}
	if len(got.Foundations) != len(ds.Foundations) {
		t.Fatalf("expected %d foundations, got %d", len(ds.Foundations), len(got.Foundations))
	}
	if len(got.Organizations) != len(ds.Organizations) {
		t.Fatalf("expected %d organizations, got %d", len(ds.Organizations), len(got.Organizations))
	}
	alpha := got.Foundations["111111111"]
	if alpha == nil || alpha.Name != "Alpha Foundation" || len(alpha.GrantsGiven) != 2 {
		t.Fatalf("foundation did not survive the round trip: %+v", alpha)
	}
	beta := got.Organizations["222222222"]
	if beta == nil || len(beta.GrantsReceived) != 2 {
		t.Fatalf("organization did not survive the round trip: %+v", beta)
	}
	if got.Meta.TotalGrants != ds.Meta.TotalGrants {
		t.Fatalf("expected %d grants, got %d", ds.Meta.TotalGrants, got.Meta.TotalGrants)
	}
}

func TestWriteDatasetDeterministic(t *testing.T) {
	dir, err := ioutil.TempDir("", "ggk-writer")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	ds := testDataset()
	p1, p2 := filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")
	if err := WriteDataset(p1, ds); err != nil {
		t.Fatalf("writing first copy: %v", err)
	}
	if err := WriteDataset(p2, ds); err != nil {
		t.Fatalf("writing second copy: %v", err)
	}
	d1, err := ioutil.ReadFile(p1)
	if err != nil {
		t.Fatalf("reading first copy: %v", err)
	}
	d2, err := ioutil.ReadFile(p2)
	if err != nil {
		t.Fatalf("reading second copy: %v", err)
	}
	if !bytes.Equal(d1, d2) {
		t.Fatalf("repeat writes of the same dataset should be byte-identical")
	}
}

func TestWriteDatasetEmpty(t *testing.T) {
	dir, err := ioutil.TempDir("", "ggk-writer")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "empty.json")

	ds := NewDatasetBuilder().Dataset(time.Now())
	if err := WriteDataset(path, ds); err != nil {
		t.Fatalf("writing empty dataset: %v", err)
	}
	got, err := ReadDataset(path)
	if err != nil {
		t.Fatalf("reading empty dataset: %v", err)
	}
	if len(got.Foundations) != 0 || len(got.Organizations) != 0 {
		t.Fatalf("expected empty maps, got %+v", got)
	}
}
