package curated

import (
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	sheet := `Organization,Purpose,2023 Amount
Acme Community Center,General support,"$25,000"
Beta Org,Capital campaign,5000
,,
Total,,30000
Smith,Scholarship,2500
St. Jude Consortium,Research,"1,000,000"
Section Header Row,,
`
	grants, err := Read(strings.NewReader(sheet), 2023)
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	if len(grants) != 3 {
		t.Fatalf("expected 3 grants, got %+v", grants)
	}
	if grants[0].RecipientName != "Acme Community Center" || grants[0].Amount != 25000 {
		t.Fatalf("first grant wrong: %+v", grants[0])
	}
	if grants[1].RecipientName != "Beta Org" || grants[1].Amount != 5000 {
		t.Fatalf("multi-word names under the floor are organizations: %+v", grants[1])
	}
	if grants[2].Amount != 1000000 {
		t.Fatalf("comma-grouped amount wrong: %+v", grants[2])
	}
	for _, g := range grants {
		if g.TaxYear != 2023 {
			t.Fatalf("grants should carry the sheet year: %+v", g)
		}
	}
}

func TestReadPlainAmountColumn(t *testing.T) {
	sheet := `Name,Amount
Acme Community Center,15000
`
	grants, err := Read(strings.NewReader(sheet), 2022)
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	if len(grants) != 1 || grants[0].Amount != 15000 {
		t.Fatalf("plain amount column should be accepted: %+v", grants)
	}
}

func TestReadWrongYearColumn(t *testing.T) {
	sheet := `Organization,2022 Amount,2023 Amount
Acme Community Center,11111,22222
`
	grants, err := Read(strings.NewReader(sheet), 2023)
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	if len(grants) != 1 || grants[0].Amount != 22222 {
		t.Fatalf("the year's own column should win: %+v", grants)
	}
}

func TestReadMissingColumns(t *testing.T) {
	if _, err := Read(strings.NewReader("Foo,Bar\n1,2\n"), 2023); err == nil {
		t.Fatalf("expected an error for a sheet without the needed columns")
	}
}

func TestFilterRow(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		keep   bool
	}{
		{"Acme Community Center", "25000", true},
		{"", "25000", false},
		{"Total", "99999", false},
		{"Total 2023", "99999", false},
		{"Smith", "2500", false},     // individual under the floor
		{"Smith", "10000", true},     // at the floor it counts
		{"John Smith", "2500", true}, // multi-word, keep regardless
		{"Acme", "not a number", false},
		{"Acme Community Center", "-50", false},
	}
	for _, test := range tests {
		_, ok := filterRow(test.name, test.amount, 2023)
		if ok != test.keep {
			t.Fatalf("filterRow(%q, %q): got keep=%v, expected %v", test.name, test.amount, ok, test.keep)
		}
	}
}
