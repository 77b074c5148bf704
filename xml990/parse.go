// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package xml990 parses individual Form 990 / 990-PF filing documents into
// ggk.FilingRecords. Parsing is best-effort and schema-tolerant: a field
// missing under one name is probed under its known variants, and any error
// parsing a single document means "no data extracted", never a failed batch.
package xml990

import (
	"bytes"

	"github.com/fdngraph/ggk"
	"github.com/pkg/errors"
)

// FormType classifies a filing document.
type FormType int

const (
	// FormUnknown is a document of no recognized type.
	FormUnknown FormType = iota
	// Form990PF is a private foundation return - a grant-maker filing.
	Form990PF
	// Form990 is a public charity return - a beneficiary-only filing.
	Form990
)

var (
	pfMarker = []byte("<IRS990PF")
	markers990 = [][]byte{
		[]byte("<IRS990 "), []byte("<IRS990>"),
		[]byte("<IRS990EZ"),
	}
)

// Sniff classifies a document by cheap byte inspection, so the ~90% of
// filings that are the wrong type for a given pass are rejected without a
// full decode.
func Sniff(doc []byte) FormType {
	if bytes.Contains(doc, pfMarker) {
		return Form990PF
	}
	for _, m := range markers990 {
		if bytes.Contains(doc, m) {
			return Form990
		}
	}
	return FormUnknown
}

// Parse sniffs the document and dispatches to the matching extraction path.
// fallbackYear is used only when the filing header declares no tax year - the
// grant is dated by the filer's declared year, not the batch's download year.
func Parse(doc []byte, fallbackYear int) (rec *ggk.FilingRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, errors.Errorf("panic parsing filing: %v", r)
		}
	}()
	switch Sniff(doc) {
	case Form990PF:
		return ParseGrantMaker(doc, fallbackYear)
	case Form990:
		return ParseBeneficiary(doc, fallbackYear)
	}
	return nil, errors.New("unrecognized form type")
}

// ParseGrantMaker extracts a grant-maker record: filer identity and address,
// end-of-year (or, failing that, beginning-of-year) total assets, total
// revenue, and the list of grants paid. Grants failing basic shape checks are
// dropped, not defaulted.
func ParseGrantMaker(doc []byte, fallbackYear int) (*ggk.FilingRecord, error) {
	ret, body, year, err := decodeReturn(doc, fallbackYear, "IRS990PF")
	if err != nil {
		return nil, err
	}
	rec, err := headerRecord(ret, year)
	if err != nil {
		return nil, err
	}
	rec.Role = ggk.RoleGrantMaker
	rec.Meta.TotalAssets = amountFirst(body, pfAssetsEOYPaths)
	if rec.Meta.TotalAssets == 0 {
		rec.Meta.TotalAssets = amountFirst(body, pfAssetsBOYPaths)
	}
	rec.Meta.TotalRevenue = amountFirst(body, pfRevenuePaths)

	for _, listPath := range pfGrantListPaths {
		entries := body.allAt(listPath...)
		if len(entries) == 0 {
			continue
		}
		for _, e := range entries {
			g := ggk.Grant{
				RecipientEIN:   textFirst(e, grantEINPaths),
				RecipientName:  textFirst(e, grantNamePaths),
				Amount:         amountFirst(e, grantAmountPaths),
				TaxYear:        year,
				RecipientCity:  textFirst(e, grantCityPaths),
				RecipientState: textFirst(e, grantStatePaths),
				RecipientZIP:   textFirst(e, grantZIPPaths),
			}
			if g.Valid() {
				rec.GrantsPaid = append(rec.GrantsPaid, g)
			}
		}
		break
	}
	return rec, nil
}

// ParseBeneficiary extracts identity and metadata only, for filings which are
// not grant-makers. These feed Organization metadata without adding to the
// grant graph.
func ParseBeneficiary(doc []byte, fallbackYear int) (*ggk.FilingRecord, error) {
	ret, body, year, err := decodeReturn(doc, fallbackYear, "IRS990", "IRS990EZ")
	if err != nil {
		return nil, err
	}
	rec, err := headerRecord(ret, year)
	if err != nil {
		return nil, err
	}
	rec.Role = ggk.RoleBeneficiary
	rec.Meta.TotalAssets = amountFirst(body, orgAssetsPaths)
	rec.Meta.TotalRevenue = amountFirst(body, orgRevenuePaths)
	return rec, nil
}

// decodeReturn decodes the document and locates the Return element and the
// form body under ReturnData, trying the given body element names in order.
func decodeReturn(doc []byte, fallbackYear int, bodyNames ...string) (ret, body *node, year int, err error) {
	root, err := decode(bytes.NewReader(doc))
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "decoding document")
	}
	ret = root.first("Return")
	if ret == nil {
		return nil, nil, 0, errors.New("document has no Return element")
	}
	for _, name := range bodyNames {
		if body = ret.first("ReturnData", name); body != nil {
			break
		}
	}
	if body == nil {
		return nil, nil, 0, errors.Errorf("document has no %v element", bodyNames[0])
	}
	year = parseYear(textFirst(ret, taxYearPaths))
	if year == 0 {
		year = fallbackYear
	}
	return ret, body, year, nil
}

// headerRecord builds the identity/address skeleton common to both paths.
func headerRecord(ret *node, year int) (*ggk.FilingRecord, error) {
	rec := &ggk.FilingRecord{
		EIN:     textFirst(ret, filerEINPaths),
		Name:    textFirst(ret, filerNamePaths),
		TaxYear: year,
		Meta: ggk.Meta{
			Street:  textFirst(ret, filerStreetPaths),
			City:    textFirst(ret, filerCityPaths),
			State:   textFirst(ret, filerStatePaths),
			ZIP:     textFirst(ret, filerZIPPaths),
			TaxYear: year,
		},
	}
	if !rec.Valid() {
		return nil, errors.Errorf("filing missing identity (ein '%v', name '%v')", rec.EIN, rec.Name)
	}
	return rec, nil
}
