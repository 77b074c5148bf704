// Package curated loads the externally maintained grant list for the central
// foundation: one CSV file per year with an organization column and a
// per-year dollar amount column. Rows representing section headers, totals,
// or sub-$10,000 single-name (individual) grants are excluded by a fixed
// filter rule.
package curated

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fdngraph/ggk"
	"github.com/pkg/errors"
)

// individualFloor is the fixed filter threshold: single-name rows under this
// amount are individual grants, not organizations, and are excluded.
const individualFloor = 10000

// Load reads the curated grant list for one year from a CSV file.
func Load(path string, year int) ([]ggk.Grant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %v", path)
	}
	defer f.Close()
	return Read(f, year)
}

// Read parses a curated grant list from r.
func Read(r io.Reader, year int) ([]ggk.Grant, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	nameCol, amountCol, err := findColumns(header, year)
	if err != nil {
		return nil, err
	}

	var grants []ggk.Grant
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading row")
		}
		if nameCol >= len(row) || amountCol >= len(row) {
			continue
		}
		g, ok := filterRow(strings.TrimSpace(row[nameCol]), strings.TrimSpace(row[amountCol]), year)
		if !ok {
			continue
		}
		grants = append(grants, g)
	}
	return grants, nil
}

// findColumns locates the organization name column and the amount column for
// the given year. Amount columns are named per year ("2023 Amount"); a plain
// "Amount" column is accepted as a fallback.
func findColumns(header []string, year int) (nameCol, amountCol int, err error) {
	nameCol, amountCol = -1, -1
	yr := strconv.Itoa(year)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case nameCol == -1 && (strings.Contains(h, "organization") || h == "name" || h == "recipient"):
			nameCol = i
		case strings.Contains(h, "amount") && strings.Contains(header[i], yr):
			amountCol = i
		case amountCol == -1 && strings.Contains(h, "amount"):
			amountCol = i
		}
	}
	if nameCol == -1 || amountCol == -1 {
		return 0, 0, errors.Errorf("header %v missing organization or amount column", header)
	}
	return nameCol, amountCol, nil
}

// filterRow applies the fixed exclusion rule. Rows without a parseable
// amount are section headers; "total" rows are sheet arithmetic; single-name
// rows under the floor are grants to individuals.
func filterRow(name, amount string, year int) (ggk.Grant, bool) {
	if name == "" {
		return ggk.Grant{}, false
	}
	if strings.HasPrefix(strings.ToLower(name), "total") {
		return ggk.Grant{}, false
	}
	amt, ok := parseAmount(amount)
	if !ok || amt <= 0 {
		return ggk.Grant{}, false
	}
	if amt < individualFloor && len(strings.Fields(name)) == 1 {
		return ggk.Grant{}, false
	}
	return ggk.Grant{RecipientName: name, Amount: amt, TaxYear: year}, true
}

func parseAmount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.Replace(s, ",", "", -1)
	if s == "" {
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}
