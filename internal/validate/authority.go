package validate

import (
	"net/url"
	"strings"

	"github.com/ppiankov/dossier/internal/model"
)

// Tier classifies how much weight a reference source carries
type Tier string

const (
	TierOfficial  Tier = "official"  // Company registries, regulators, government sites
	TierReputable Tier = "reputable" // Encyclopedias, business press, data aggregators
	TierOther     Tier = "other"     // Blogs, directories, company marketing pages
)

// SourceClassifier assigns a Tier to reference URLs
type SourceClassifier struct {
	domainMap map[string]Tier
	official  []string
	reputable []string
}

// NewSourceClassifier creates a classifier from link check settings
func NewSourceClassifier(cfg model.LinkCheckConfig) *SourceClassifier {
	c := &SourceClassifier{
		domainMap: make(map[string]Tier, len(cfg.DomainMap)),
	}

	for host, tier := range cfg.DomainMap {
		c.domainMap[strings.ToLower(host)] = parseTier(tier)
	}
	for _, d := range cfg.OfficialDomains {
		c.official = append(c.official, strings.ToLower(strings.TrimPrefix(d, ".")))
	}
	for _, d := range cfg.ReputableDomains {
		c.reputable = append(c.reputable, strings.ToLower(strings.TrimPrefix(d, ".")))
	}

	return c
}

// Classify returns the tier of rawURL. Explicit host mappings win over
// official domains, which win over reputable ones.
func (c *SourceClassifier) Classify(rawURL string) Tier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return TierOther
	}

	host := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))

	if tier, ok := c.domainMap[host]; ok {
		return tier
	}
	if matchesDomain(host, c.official) {
		return TierOfficial
	}
	if matchesDomain(host, c.reputable) {
		return TierReputable
	}

	return TierOther
}

// matchesDomain reports whether host equals or is a subdomain of any domain
func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func parseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "official", "primary", "1":
		return TierOfficial
	case "reputable", "secondary", "2":
		return TierReputable
	default:
		return TierOther
	}
}
