package research

import (
	"net/url"
	"strings"
)

// Source template placeholders
const (
	PlaceholderCompany     = "{company}"
	PlaceholderCompanyPath = "{company_path}"
	PlaceholderCountry     = "{country}"
)

// ExpandSource fills a source URL template. It reports false when the
// template needs a country and none was given.
func ExpandSource(tmpl, company, country string) (string, bool) {
	company = strings.TrimSpace(company)
	country = strings.TrimSpace(country)

	if strings.Contains(tmpl, PlaceholderCountry) && country == "" {
		return "", false
	}

	r := strings.NewReplacer(
		PlaceholderCompanyPath, url.PathEscape(strings.ReplaceAll(company, " ", "_")),
		PlaceholderCompany, url.QueryEscape(company),
		PlaceholderCountry, url.QueryEscape(country),
	)
	return r.Replace(tmpl), true
}

// ExpandSources expands every template, dropping duplicates and templates
// that cannot be filled, and keeps at most limit URLs (0 = all)
func ExpandSources(templates []string, company, country string, limit int) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, tmpl := range templates {
		u, ok := ExpandSource(strings.TrimSpace(tmpl), company, country)
		if !ok || u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
		if limit > 0 && len(urls) == limit {
			break
		}
	}
	return urls
}
