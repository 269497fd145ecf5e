// Package score rates how complete and how well sourced a company record is.
// The score describes the lookup, not the company.
package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/validate"
)

// Score is the transparent completeness breakdown of one lookup
type Score struct {
	Index      int      `json:"index"`      // 0-100
	Confidence string   `json:"confidence"` // "low", "medium", "high"
	Signals    []Signal `json:"signals"`
}

// Signal is one scored component with the data behind it
type Signal struct {
	Type        SignalType     `json:"type"`
	Severity    Severity       `json:"severity"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
}

// SignalType classifies a signal
type SignalType string

const (
	SignalFieldCoverage SignalType = "field_coverage" // Required fields that were found
	SignalCitations     SignalType = "citations"      // Number of references
	SignalAuthority     SignalType = "authority"      // Official vs other sources
	SignalAccessibility SignalType = "accessibility"  // Dead reference links
)

// Severity indicates how much a signal should worry the reader
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Component ceilings; they add up to 100
const (
	maxCoverage      = 60
	maxCitations     = 15
	maxAuthority     = 15
	maxAccessibility = 10
	pointsPerCite    = 5
)

// Scorer calculates completeness scores
type Scorer struct {
	classifier *validate.SourceClassifier
}

// NewScorer creates a scorer. A nil classifier treats every source as TierOther
// unless a link check already assigned a tier.
func NewScorer(classifier *validate.SourceClassifier) *Scorer {
	return &Scorer{classifier: classifier}
}

// Calculate scores a normalized record, its references and any link checks
func (s *Scorer) Calculate(record model.CompanyRecord, refs []extract.Reference, checks []validate.LinkCheck) Score {
	var signals []Signal

	coverageScore, coverageSignal := s.calculateCoverage(record)
	signals = append(signals, coverageSignal)

	citationScore, citationSignal := s.calculateCitations(refs)
	signals = append(signals, citationSignal)

	authorityScore, authoritySignal := s.calculateAuthority(refs, checks)
	signals = append(signals, authoritySignal)

	accessScore, accessSignal := s.calculateAccessibility(checks)
	signals = append(signals, accessSignal)

	total := coverageScore + citationScore + authorityScore + accessScore

	return Score{
		Index:      total,
		Confidence: determineConfidence(total, len(withURL(refs))),
		Signals:    signals,
	}
}

// calculateCoverage scores the share of required fields that hold real values (0-60 points)
func (s *Scorer) calculateCoverage(r model.CompanyRecord) (int, Signal) {
	fields := map[string]string{
		"primary_address":       r.PrimaryAddress,
		"registration_number":   r.RegistrationNumber,
		"legal_form":            r.LegalForm,
		"country":               r.Country,
		"town":                  r.Town,
		"registration_date":     r.RegistrationDate,
		"general_details":       r.GeneralDetails,
		"last_reported_revenue": r.LastReportedRevenue,
	}

	var missing []string
	for _, name := range model.RequiredFields {
		if !known(fields[name]) || (name == "registration_date" && fields[name] == model.EpochPlaceholder) {
			missing = append(missing, name)
		}
	}
	if len(r.DirectorsShareholders) == 0 || (len(r.DirectorsShareholders) == 1 && !known(r.DirectorsShareholders[0])) {
		missing = append(missing, "directors_shareholders")
	}

	total := len(model.RequiredFields) + 1
	found := total - len(missing)
	ratio := float64(found) / float64(total)
	score := int(math.Round(ratio * maxCoverage))

	severity := SeverityInfo
	if ratio < 0.5 {
		severity = SeverityCritical
	} else if ratio < 1.0 {
		severity = SeverityWarning
	}

	return score, Signal{
		Type:        SignalFieldCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("Fields found: %d/%d", found, total),
		Data: map[string]any{
			"found":   found,
			"total":   total,
			"missing": missing,
			"score":   score,
			"formula": "round(found / total * 60)",
		},
	}
}

// calculateCitations scores the number of referenced URLs (0-15 points)
func (s *Scorer) calculateCitations(refs []extract.Reference) (int, Signal) {
	count := len(withURL(refs))
	if count == 0 {
		return 0, Signal{
			Type:        SignalCitations,
			Severity:    SeverityCritical,
			Description: "No references with links",
			Data:        map[string]any{"references": 0},
		}
	}

	score := min(count*pointsPerCite, maxCitations)

	severity := SeverityInfo
	if count < 2 {
		severity = SeverityWarning
	}

	return score, Signal{
		Type:        SignalCitations,
		Severity:    severity,
		Description: fmt.Sprintf("References with links: %d", count),
		Data: map[string]any{
			"references": count,
			"score":      score,
			"formula":    "min(references * 5, 15)",
		},
	}
}

// calculateAuthority weighs official sources above reputable ones (0-15 points)
func (s *Scorer) calculateAuthority(refs []extract.Reference, checks []validate.LinkCheck) (int, Signal) {
	tiers := make(map[string]validate.Tier, len(checks))
	for _, c := range checks {
		if c.Tier != "" {
			tiers[c.URL] = c.Tier
		}
	}

	var official, reputable, other int
	for _, ref := range withURL(refs) {
		tier, ok := tiers[ref.URL]
		if !ok {
			tier = validate.TierOther
			if s.classifier != nil {
				tier = s.classifier.Classify(ref.URL)
			}
		}
		switch tier {
		case validate.TierOfficial:
			official++
		case validate.TierReputable:
			reputable++
		default:
			other++
		}
	}

	total := official + reputable + other
	if total == 0 {
		return 0, Signal{
			Type:        SignalAuthority,
			Severity:    SeverityWarning,
			Description: "No sources to classify",
			Data:        map[string]any{"total": 0},
		}
	}

	weighted := float64(official*2 + reputable)
	score := int(weighted / float64(total*2) * maxAuthority)

	severity := SeverityInfo
	if official == 0 {
		severity = SeverityWarning
	}

	return score, Signal{
		Type:        SignalAuthority,
		Severity:    severity,
		Description: fmt.Sprintf("Sources: %d official, %d reputable, %d other", official, reputable, other),
		Data: map[string]any{
			"official":  official,
			"reputable": reputable,
			"other":     other,
			"score":     score,
			"formula":   "(official*2 + reputable) / (total*2) * 15",
		},
	}
}

// calculateAccessibility scores reachable reference links (0-10 points).
// Without link checks it assumes a moderate score.
func (s *Scorer) calculateAccessibility(checks []validate.LinkCheck) (int, Signal) {
	if len(checks) == 0 {
		return maxAccessibility / 2, Signal{
			Type:        SignalAccessibility,
			Severity:    SeverityInfo,
			Description: "Links not checked (assuming moderate)",
			Data:        map[string]any{"checked": 0, "score": maxAccessibility / 2},
		}
	}

	accessible := 0
	for _, c := range checks {
		if c.Accessible {
			accessible++
		}
	}

	ratio := float64(accessible) / float64(len(checks))
	score := int(ratio * maxAccessibility)

	severity := SeverityInfo
	if ratio < 0.5 {
		severity = SeverityCritical
	} else if ratio < 0.8 {
		severity = SeverityWarning
	}

	return score, Signal{
		Type:        SignalAccessibility,
		Severity:    severity,
		Description: fmt.Sprintf("Accessible links: %d/%d (%.0f%%)", accessible, len(checks), ratio*100),
		Data: map[string]any{
			"accessible": accessible,
			"checked":    len(checks),
			"score":      score,
			"formula":    "(accessible / checked) * 10",
		},
	}
}

func determineConfidence(score, references int) string {
	if references == 0 {
		return "low"
	}

	switch {
	case score >= 80:
		return "high"
	case score >= 60:
		return "medium"
	default:
		return "low"
	}
}

func known(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != model.Sentinel
}

func withURL(refs []extract.Reference) []extract.Reference {
	out := make([]extract.Reference, 0, len(refs))
	for _, r := range refs {
		if r.URL != "" {
			out = append(out, r)
		}
	}
	return out
}
