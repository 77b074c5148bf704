package xml990

import (
	"testing"

	"github.com/fdngraph/ggk"
)

var modernPF = []byte(`<?xml version="1.0" encoding="utf-8"?>
<Return returnVersion="2023v4.0">
  <ReturnHeader>
    <TaxYr>2023</TaxYr>
    <Filer>
      <EIN>111111111</EIN>
      <BusinessName>
        <BusinessNameLine1Txt>Alpha Foundation</BusinessNameLine1Txt>
      </BusinessName>
      <USAddress>
        <AddressLine1Txt>1 Main St</AddressLine1Txt>
        <CityNm>Omaha</CityNm>
        <StateAbbreviationCd>NE</StateAbbreviationCd>
        <ZIPCd>68102</ZIPCd>
      </USAddress>
    </Filer>
  </ReturnHeader>
  <ReturnData>
    <IRS990PF>
      <Form990PFBalanceSheetsGrp>
        <TotalAssetsEOYAmt>2500000</TotalAssetsEOYAmt>
      </Form990PFBalanceSheetsGrp>
      <AnalysisOfRevenueAndExpenses>
        <TotalRevAndExpnssAmt>180000</TotalRevAndExpnssAmt>
      </AnalysisOfRevenueAndExpenses>
      <SupplementaryInformationGrp>
        <GrantOrContriPdDurYrGrp>
          <RecipientBusinessName>
            <BusinessNameLine1Txt>Beta Org</BusinessNameLine1Txt>
          </RecipientBusinessName>
          <RecipientEIN>222222222</RecipientEIN>
          <RecipientUSAddress>
            <CityNm>Lincoln</CityNm>
            <StateAbbreviationCd>NE</StateAbbreviationCd>
            <ZIPCd>68501</ZIPCd>
          </RecipientUSAddress>
          <Amt>5000</Amt>
        </GrantOrContriPdDurYrGrp>
        <GrantOrContriPdDurYrGrp>
          <RecipientPersonNm>Jane Doe</RecipientPersonNm>
          <Amt>0</Amt>
        </GrantOrContriPdDurYrGrp>
      </SupplementaryInformationGrp>
    </IRS990PF>
  </ReturnData>
</Return>`)

var legacyPF = []byte(`<?xml version="1.0"?>
<Return>
  <ReturnHeader>
    <TaxPeriodEndDate>2015-06-30</TaxPeriodEndDate>
    <Filer>
      <EIN>333333333</EIN>
      <Name>
        <BusinessNameLine1>Gamma Charitable Trust</BusinessNameLine1>
      </Name>
      <USAddress>
        <AddressLine1>9 Elm Ave</AddressLine1>
        <City>Des Moines</City>
        <State>IA</State>
        <ZIPCode>50309</ZIPCode>
      </USAddress>
    </Filer>
  </ReturnHeader>
  <ReturnData>
    <IRS990PF>
      <Form990PFBalanceSheets>
        <TotalAssetsBOY>400000</TotalAssetsBOY>
      </Form990PFBalanceSheets>
      <SupplementaryInformation>
        <GrantOrContributionPaidDuringYear>
          <RecipientBusinessName>
            <BusinessNameLine1>Delta Shelter</BusinessNameLine1>
          </RecipientBusinessName>
          <Amount>12,500</Amount>
        </GrantOrContributionPaidDuringYear>
      </SupplementaryInformation>
    </IRS990PF>
  </ReturnData>
</Return>`)

var modern990 = []byte(`<?xml version="1.0"?>
<Return>
  <ReturnHeader>
    <TaxYr>2023</TaxYr>
    <Filer>
      <EIN>222222222</EIN>
      <BusinessName>
        <BusinessNameLine1Txt>Beta Org</BusinessNameLine1Txt>
      </BusinessName>
      <USAddress>
        <CityNm>Lincoln</CityNm>
        <StateAbbreviationCd>NE</StateAbbreviationCd>
      </USAddress>
    </Filer>
  </ReturnHeader>
  <ReturnData>
    <IRS990>
      <TotalAssetsGrp>
        <EOYAmt>750000</EOYAmt>
      </TotalAssetsGrp>
      <CYTotalRevenueAmt>320000</CYTotalRevenueAmt>
    </IRS990>
  </ReturnData>
</Return>`)

func TestSniff(t *testing.T) {
	if got := Sniff(modernPF); got != Form990PF {
		t.Fatalf("expected Form990PF, got %v", got)
	}
	if got := Sniff(modern990); got != Form990 {
		t.Fatalf("expected Form990, got %v", got)
	}
	if got := Sniff([]byte("<Return><ReturnData/></Return>")); got != FormUnknown {
		t.Fatalf("expected FormUnknown, got %v", got)
	}
}

func TestParseGrantMakerModern(t *testing.T) {
	rec, err := Parse(modernPF, 2024)
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}
	if rec.Role != ggk.RoleGrantMaker {
		t.Fatalf("expected grant-maker role, got %v", rec.Role)
	}
	if rec.EIN != "111111111" || rec.Name != "Alpha Foundation" {
		t.Fatalf("identity wrong: %+v", rec)
	}
	if rec.TaxYear != 2023 {
		t.Fatalf("header year should beat the fallback, got %d", rec.TaxYear)
	}
	if rec.Meta.City != "Omaha" || rec.Meta.State != "NE" || rec.Meta.ZIP != "68102" {
		t.Fatalf("address wrong: %+v", rec.Meta)
	}
	if rec.Meta.TotalAssets != 2500000 || rec.Meta.TotalRevenue != 180000 {
		t.Fatalf("financials wrong: %+v", rec.Meta)
	}
	if len(rec.GrantsPaid) != 1 {
		t.Fatalf("the zero-amount grant should be dropped: %+v", rec.GrantsPaid)
	}
	g := rec.GrantsPaid[0]
	if g.RecipientName != "Beta Org" || g.RecipientEIN != "222222222" || g.Amount != 5000 {
		t.Fatalf("grant wrong: %+v", g)
	}
	if g.RecipientCity != "Lincoln" || g.RecipientState != "NE" || g.TaxYear != 2023 {
		t.Fatalf("grant detail wrong: %+v", g)
	}
}

func TestParseGrantMakerLegacy(t *testing.T) {
	rec, err := Parse(legacyPF, 2024)
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}
	if rec.EIN != "333333333" || rec.Name != "Gamma Charitable Trust" {
		t.Fatalf("identity wrong: %+v", rec)
	}
	if rec.TaxYear != 2015 {
		t.Fatalf("year should come from the period end date, got %d", rec.TaxYear)
	}
	if rec.Meta.TotalAssets != 400000 {
		t.Fatalf("beginning-of-year assets should be the fallback, got %d", rec.Meta.TotalAssets)
	}
	if len(rec.GrantsPaid) != 1 || rec.GrantsPaid[0].Amount != 12500 {
		t.Fatalf("legacy grant list wrong: %+v", rec.GrantsPaid)
	}
	if rec.GrantsPaid[0].RecipientName != "Delta Shelter" {
		t.Fatalf("legacy recipient name wrong: %+v", rec.GrantsPaid[0])
	}
}

func TestParseBeneficiary(t *testing.T) {
	rec, err := Parse(modern990, 2024)
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}
	if rec.Role != ggk.RoleBeneficiary {
		t.Fatalf("expected beneficiary role, got %v", rec.Role)
	}
	if rec.EIN != "222222222" || rec.Name != "Beta Org" {
		t.Fatalf("identity wrong: %+v", rec)
	}
	if rec.Meta.TotalAssets != 750000 || rec.Meta.TotalRevenue != 320000 {
		t.Fatalf("financials wrong: %+v", rec.Meta)
	}
	if len(rec.GrantsPaid) != 0 {
		t.Fatalf("beneficiary filings carry no grants: %+v", rec.GrantsPaid)
	}
}

func TestParseFallbackYear(t *testing.T) {
	doc := []byte(`<Return>
  <ReturnHeader>
    <Filer>
      <EIN>111111111</EIN>
      <BusinessName><BusinessNameLine1Txt>Alpha Foundation</BusinessNameLine1Txt></BusinessName>
    </Filer>
  </ReturnHeader>
  <ReturnData><IRS990PF></IRS990PF></ReturnData>
</Return>`)
	rec, err := Parse(doc, 2022)
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}
	if rec.TaxYear != 2022 {
		t.Fatalf("expected the fallback year, got %d", rec.TaxYear)
	}
}

func TestParseMalformed(t *testing.T) {
	bad := [][]byte{
		[]byte(""),
		[]byte("this is not xml"),
		[]byte("<Return><ReturnHeader><IRS990PF></Return>"),
		[]byte("<Other><IRS990PF/></Other>"),
		// recognized form but no filer identity
		[]byte("<Return><ReturnHeader/><ReturnData><IRS990PF/></ReturnData></Return>"),
	}
	for i, doc := range bad {
		if _, err := Parse(doc, 2023); err == nil {
			t.Fatalf("document %d should fail to parse", i)
		}
	}
}
