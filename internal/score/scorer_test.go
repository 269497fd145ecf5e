package score

import (
	"testing"

	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/normalize"
	"github.com/ppiankov/dossier/internal/validate"
)

func completeRecord() model.CompanyRecord {
	return model.CompanyRecord{
		PrimaryAddress:        "1 High Street, Leeds",
		RegistrationNumber:    "01234567",
		LegalForm:             "Private limited company",
		Country:               "United Kingdom",
		Town:                  "Leeds",
		RegistrationDate:      "2001-04-02",
		GeneralDetails:        "Bakery group",
		DirectorsShareholders: []string{"Jane Doe", "John Roe"},
		LastReportedRevenue:   "£12m (2023)",
	}
}

func newTestScorer() *Scorer {
	return NewScorer(validate.NewSourceClassifier(model.DefaultConfig().LinkCheck))
}

func findSignal(t *testing.T, s Score, typ SignalType) Signal {
	t.Helper()
	for _, sig := range s.Signals {
		if sig.Type == typ {
			return sig
		}
	}
	t.Fatalf("Expected %s signal", typ)
	return Signal{}
}

func TestScorer_Calculate_CompleteRecord(t *testing.T) {
	refs := []extract.Reference{
		{Label: "Companies House", URL: "https://find-and-update.company-information.service.gov.uk/company/01234567"},
		{Label: "Wikipedia", URL: "https://en.wikipedia.org/wiki/Acme"},
		{Label: "Blog", URL: "https://blog.example.com/acme"},
	}

	result := newTestScorer().Calculate(completeRecord(), refs, nil)

	// 60 coverage + 15 citations + 7 authority + 5 unchecked links
	if result.Index != 87 {
		t.Errorf("Expected index 87, got %d", result.Index)
	}
	if result.Confidence != "high" {
		t.Errorf("Expected high confidence, got %s", result.Confidence)
	}
	if len(result.Signals) != 4 {
		t.Errorf("Expected 4 signals, got %d", len(result.Signals))
	}

	coverage := findSignal(t, result, SignalFieldCoverage)
	if coverage.Severity != SeverityInfo {
		t.Errorf("Expected info severity for full coverage, got %s", coverage.Severity)
	}
}

func TestScorer_Calculate_FallbackRecord(t *testing.T) {
	result := newTestScorer().Calculate(normalize.Fallback(), nil, nil)

	// Only the unchecked-links allowance remains
	if result.Index != 5 {
		t.Errorf("Expected index 5 for fallback record, got %d", result.Index)
	}
	if result.Confidence != "low" {
		t.Errorf("Expected low confidence, got %s", result.Confidence)
	}

	coverage := findSignal(t, result, SignalFieldCoverage)
	if coverage.Severity != SeverityCritical {
		t.Errorf("Expected critical coverage, got %s", coverage.Severity)
	}
	missing, _ := coverage.Data["missing"].([]string)
	if len(missing) != len(model.RequiredFields)+1 {
		t.Errorf("Expected every field missing, got %v", missing)
	}

	citations := findSignal(t, result, SignalCitations)
	if citations.Severity != SeverityCritical {
		t.Errorf("Expected critical citations signal, got %s", citations.Severity)
	}
}

func TestScorer_Calculate_PartialRecord(t *testing.T) {
	record := completeRecord()
	record.LastReportedRevenue = model.Sentinel
	record.Town = model.Sentinel
	record.DirectorsShareholders = []string{model.Sentinel}

	result := newTestScorer().Calculate(record, nil, nil)

	coverage := findSignal(t, result, SignalFieldCoverage)
	if coverage.Data["found"] != 6 {
		t.Errorf("Expected 6 fields found, got %v", coverage.Data["found"])
	}
	if coverage.Severity != SeverityWarning {
		t.Errorf("Expected warning severity, got %s", coverage.Severity)
	}
}

func TestScorer_Calculate_DeadLinks(t *testing.T) {
	refs := []extract.Reference{
		{URL: "https://a.example/1"},
		{URL: "https://b.example/2"},
	}
	checks := []validate.LinkCheck{
		{URL: "https://a.example/1", Accessible: true, Tier: validate.TierOfficial},
		{URL: "https://b.example/2", Dead: true, Tier: validate.TierOfficial},
	}

	result := newTestScorer().Calculate(completeRecord(), refs, checks)

	access := findSignal(t, result, SignalAccessibility)
	if access.Data["accessible"] != 1 {
		t.Errorf("Expected 1 accessible link, got %v", access.Data["accessible"])
	}
	if access.Severity != SeverityWarning {
		t.Errorf("Expected warning severity at 50%%, got %s", access.Severity)
	}

	// Tiers from link checks win over the classifier
	authority := findSignal(t, result, SignalAuthority)
	if authority.Data["official"] != 2 {
		t.Errorf("Expected 2 official sources, got %v", authority.Data["official"])
	}

	// 60 + 10 + 15 + 5
	if result.Index != 90 {
		t.Errorf("Expected index 90, got %d", result.Index)
	}
}

func TestScorer_Calculate_IgnoresReferencesWithoutURL(t *testing.T) {
	refs := []extract.Reference{{Raw: "Annual report 2023"}}

	result := NewScorer(nil).Calculate(completeRecord(), refs, nil)

	if result.Confidence != "low" {
		t.Errorf("Expected low confidence without linked references, got %s", result.Confidence)
	}
	citations := findSignal(t, result, SignalCitations)
	if citations.Data["references"] != 0 {
		t.Errorf("Expected 0 linked references, got %v", citations.Data["references"])
	}
}

func TestScorer_Calculate_IndexBounds(t *testing.T) {
	refs := make([]extract.Reference, 10)
	checks := make([]validate.LinkCheck, 10)
	for i := range refs {
		refs[i] = extract.Reference{URL: "https://www.gov.uk/x"}
		checks[i] = validate.LinkCheck{URL: "https://www.gov.uk/x", Accessible: true, Tier: validate.TierOfficial}
	}

	result := newTestScorer().Calculate(completeRecord(), refs, checks)
	if result.Index != 100 {
		t.Errorf("Expected maximum index 100, got %d", result.Index)
	}
}
