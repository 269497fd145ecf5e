package validate

import (
	"testing"

	"github.com/ppiankov/dossier/internal/model"
)

func TestSourceClassifier_Classify(t *testing.T) {
	classifier := NewSourceClassifier(model.LinkCheckConfig{
		OfficialDomains:  []string{"gov.uk", ".kvk.nl"},
		ReputableDomains: []string{"wikipedia.org", "reuters.com"},
		DomainMap: map[string]string{
			"blog.gov.uk":          "other",
			"registry.example.com": "primary",
		},
	})

	tests := []struct {
		url      string
		expected Tier
		desc     string
	}{
		{"https://find-and-update.company-information.service.gov.uk/company/01234567", TierOfficial, "subdomain of official domain"},
		{"https://gov.uk/government/organisations/companies-house", TierOfficial, "official domain exact match"},
		{"https://www.kvk.nl/zoeken/", TierOfficial, "leading dot and www are ignored"},
		{"https://en.wikipedia.org/wiki/Acme", TierReputable, "reputable subdomain"},
		{"https://www.reuters.com/companies/ACME.L", TierReputable, "reputable with www"},
		{"https://blog.gov.uk/post", TierOther, "explicit mapping overrides official suffix"},
		{"https://registry.example.com/acme", TierOfficial, "explicit mapping accepts tier aliases"},
		{"https://acme-bakery.example/about", TierOther, "unknown domain"},
		{"https://notgov.uk/page", TierOther, "suffix must match on a label boundary"},
		{"not a url", TierOther, "unparseable URL"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := classifier.Classify(tt.url); got != tt.expected {
				t.Errorf("Classify(%q) = %s, want %s", tt.url, got, tt.expected)
			}
		})
	}
}

func TestSourceClassifier_DefaultConfig(t *testing.T) {
	classifier := NewSourceClassifier(model.DefaultConfig().LinkCheck)

	if got := classifier.Classify("https://www.sec.gov/cgi-bin/browse-edgar?company=acme"); got != TierOfficial {
		t.Errorf("Expected sec.gov to be official, got %s", got)
	}
	if got := classifier.Classify("https://opencorporates.com/companies/gb/01234567"); got != TierReputable {
		t.Errorf("Expected opencorporates to be reputable, got %s", got)
	}
}

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"official":    TierOfficial,
		" Secondary ": TierReputable,
		"1":           TierOfficial,
		"3":           TierOther,
		"":            TierOther,
	}
	for in, want := range cases {
		if got := parseTier(in); got != want {
			t.Errorf("parseTier(%q) = %s, want %s", in, got, want)
		}
	}
}
