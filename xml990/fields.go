package xml990

import (
	"strconv"
	"strings"
)

// Field names vary across filing years and vendor software; that variation is
// tolerated, never fatal. Every field resolves through an ordered list of
// candidate paths, first match wins. The lists below are the one place each
// field's resolution order is declared.

type fieldPath []string

// header fields, relative to the Return element
var (
	taxYearPaths = []fieldPath{
		{"ReturnHeader", "TaxYr"},
		{"ReturnHeader", "TaxYear"},
		{"ReturnHeader", "TaxPeriodEndDt"},
		{"ReturnHeader", "TaxPeriodEndDate"},
	}
	filerEINPaths = []fieldPath{
		{"ReturnHeader", "Filer", "EIN"},
	}
	filerNamePaths = []fieldPath{
		{"ReturnHeader", "Filer", "BusinessName", "BusinessNameLine1Txt"},
		{"ReturnHeader", "Filer", "BusinessName", "BusinessNameLine1"},
		{"ReturnHeader", "Filer", "Name", "BusinessNameLine1"},
	}
	filerStreetPaths = []fieldPath{
		{"ReturnHeader", "Filer", "USAddress", "AddressLine1Txt"},
		{"ReturnHeader", "Filer", "USAddress", "AddressLine1"},
	}
	filerCityPaths = []fieldPath{
		{"ReturnHeader", "Filer", "USAddress", "CityNm"},
		{"ReturnHeader", "Filer", "USAddress", "City"},
	}
	filerStatePaths = []fieldPath{
		{"ReturnHeader", "Filer", "USAddress", "StateAbbreviationCd"},
		{"ReturnHeader", "Filer", "USAddress", "State"},
	}
	filerZIPPaths = []fieldPath{
		{"ReturnHeader", "Filer", "USAddress", "ZIPCd"},
		{"ReturnHeader", "Filer", "USAddress", "ZIPCode"},
	}
)

// 990-PF body fields, relative to ReturnData/IRS990PF. End-of-year assets are
// preferred; beginning-of-year is the fallback.
var (
	pfAssetsEOYPaths = []fieldPath{
		{"Form990PFBalanceSheetsGrp", "TotalAssetsEOYAmt"},
		{"Form990PFBalanceSheetsGrp", "FMVAssetsEOYAmt"},
		{"Form990PFBalanceSheets", "TotalAssetsEOY"},
		{"Form990PFBalanceSheets", "FMVAssetsEOY"},
	}
	pfAssetsBOYPaths = []fieldPath{
		{"Form990PFBalanceSheetsGrp", "TotalAssetsBOYAmt"},
		{"Form990PFBalanceSheets", "TotalAssetsBOY"},
	}
	pfRevenuePaths = []fieldPath{
		{"AnalysisOfRevenueAndExpenses", "TotalRevAndExpnssAmt"},
		{"AnalysisOfRevenueAndExpenses", "TotalRevenueAndExpenses"},
	}
	pfGrantListPaths = []fieldPath{
		{"SupplementaryInformationGrp", "GrantOrContriPdDurYrGrp"},
		{"SupplementaryInformationGrp", "GrantOrContributionPdDurYrGrp"},
		{"SupplementaryInformation", "GrantOrContributionPaidDuringYear"},
	}
)

// per-grant fields, relative to one grant entry
var (
	grantNamePaths = []fieldPath{
		{"RecipientBusinessName", "BusinessNameLine1Txt"},
		{"RecipientBusinessName", "BusinessNameLine1"},
		{"RecipientPersonNm"},
		{"RecipientPersonName"},
	}
	grantEINPaths = []fieldPath{
		{"RecipientEIN"},
	}
	grantAmountPaths = []fieldPath{
		{"Amt"},
		{"Amount"},
	}
	grantCityPaths = []fieldPath{
		{"RecipientUSAddress", "CityNm"},
		{"RecipientUSAddress", "City"},
	}
	grantStatePaths = []fieldPath{
		{"RecipientUSAddress", "StateAbbreviationCd"},
		{"RecipientUSAddress", "State"},
	}
	grantZIPPaths = []fieldPath{
		{"RecipientUSAddress", "ZIPCd"},
		{"RecipientUSAddress", "ZIPCode"},
	}
)

// 990/990-EZ body fields, relative to ReturnData/IRS990 (or IRS990EZ)
var (
	orgAssetsPaths = []fieldPath{
		{"TotalAssetsGrp", "EOYAmt"},
		{"TotalAssetsEOYAmt"},
		{"TotalAssetsEOY"},
		{"Form990TotalAssetsGrp", "EOYAmt"},
	}
	orgRevenuePaths = []fieldPath{
		{"CYTotalRevenueAmt"},
		{"TotalRevenueAmt"},
		{"TotalRevenueGrp", "TotalRevenueColumnAmt"},
		{"TotalRevenue"},
	}
)

// textFirst resolves a field by probing candidate paths in order.
func textFirst(n *node, cands []fieldPath) string {
	for _, p := range cands {
		if v := n.textAt(p...); v != "" {
			return v
		}
	}
	return ""
}

// amountFirst resolves a dollar field by probing candidate paths in order,
// returning the first value that parses.
func amountFirst(n *node, cands []fieldPath) int64 {
	for _, p := range cands {
		if v, ok := parseAmount(n.textAt(p...)); ok {
			return v
		}
	}
	return 0
}

// parseAmount parses a dollar amount, tolerating currency symbols, commas,
// and decimal cents.
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

// parseYear extracts a four-digit year from a value like "2023" or
// "2023-06-30".
func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil || y < 1900 || y > 2200 {
		return 0
	}
	return y
}
