package extract

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// ReferencesMarker introduces the trailing references block of a report
	ReferencesMarker = "## References"

	// ConclusionMarker introduces the conclusion, which is dropped from the narrative
	ConclusionMarker = "## Conclusion"
)

// citationPattern matches inline markdown links to http(s) URLs.
// Label and URL are both lazy, so the shortest delimited match wins.
var citationPattern = regexp.MustCompile(`\[(.*?)\]\((https?://\S+?)\)`)

// Citation is one inline [label](url) marker found in a narrative
type Citation struct {
	Label string
	URL   string
	Start int // byte offset of '['
	End   int // byte offset just past ')'
}

// Reference renders the citation as a reference line
func (c Citation) Reference() string {
	return fmt.Sprintf("- %s %s", strings.TrimSpace(c.Label), strings.TrimRight(strings.TrimSpace(c.URL), ")"))
}

// FindCitations returns all non-overlapping citations in document order.
// Duplicates are kept.
func FindCitations(text string) []Citation {
	matches := citationPattern.FindAllStringSubmatchIndex(text, -1)
	citations := make([]Citation, 0, len(matches))
	for _, m := range matches {
		citations = append(citations, Citation{
			Label: text[m[2]:m[3]],
			URL:   text[m[4]:m[5]],
			Start: m[0],
			End:   m[1],
		})
	}
	return citations
}

// SplitCitations separates a raw research report into a clean narrative and
// a references list.
//
// The narrative is the text before the first "## References" marker, cut at
// "## Conclusion" if present, with every inline citation removed. The
// references hold one "- label url" line per citation in document order,
// followed by the trimmed block after the references marker.
func SplitCitations(raw string) (narrative string, references string) {
	working, trailing, hasTrailing := strings.Cut(raw, ReferencesMarker)
	if hasTrailing {
		trailing = strings.TrimSpace(trailing)
	}

	if before, _, found := strings.Cut(working, ConclusionMarker); found {
		working = strings.TrimSpace(before)
	}

	citations := FindCitations(working)

	lines := make([]string, 0, len(citations))
	for _, c := range citations {
		lines = append(lines, c.Reference())
	}
	references = strings.Join(lines, "\n")

	narrative = removeCitations(working, citations)

	if hasTrailing && trailing != "" {
		if references == "" {
			references = trailing
		} else {
			references += "\n" + trailing
		}
	}

	return narrative, references
}

// removeCitations cuts the citations out by position. Whitespace left
// dangling in front of a removed citation is dropped when the citation is
// followed by whitespace, punctuation or the end of the text.
func removeCitations(text string, citations []Citation) string {
	if len(citations) == 0 {
		return strings.TrimSpace(text)
	}

	var b strings.Builder
	b.Grow(len(text))

	last := 0
	for _, c := range citations {
		segment := text[last:c.Start]
		if closesGap(text, c.End) {
			segment = strings.TrimRight(segment, " \t")
		}
		b.WriteString(segment)
		last = c.End
	}
	b.WriteString(text[last:])

	return strings.TrimSpace(b.String())
}

func closesGap(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	return strings.ContainsRune(" \t\r\n.,;:!?)", rune(text[end]))
}

// Reference is one parsed line of a references list
type Reference struct {
	Label string `json:"label,omitempty"`
	URL   string `json:"url,omitempty"`
	Raw   string `json:"raw"`
}

// ParseReferences splits a references list into lines and pulls out the
// label and URL of lines shaped like "- label url". Other non-blank lines
// are kept with only Raw set.
func ParseReferences(references string) []Reference {
	var refs []Reference
	for _, line := range strings.Split(references, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		ref := Reference{Raw: line}
		body := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if i := strings.LastIndexAny(body, " \t"); i >= 0 {
			candidate := strings.TrimSpace(body[i+1:])
			if isHTTPURL(candidate) {
				ref.URL = candidate
				ref.Label = strings.TrimSpace(body[:i])
			}
		} else if isHTTPURL(body) {
			ref.URL = body
		}

		refs = append(refs, ref)
	}
	return refs
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
