package research

import (
	"bytes"
	"text/template"
	"time"
)

const reportSystem = "You are a corporate research analyst. You write factual, well-sourced company research reports in markdown."

var reportPromptTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`Write a detailed research report that answers the query below.

Query: {{.Query}}

{{if .Sources}}Sources:
{{range $i, $s := .Sources}}
[{{inc $i}}] {{$s.Title}}
URL: {{$s.FinalURL}}
{{$s.Markdown}}
{{end}}{{else}}No web sources could be retrieved for this query. State clearly which facts could not be confirmed.
{{end}}
Requirements:
- Write in markdown.
- Cite every fact inline as [source title](url), using the source URLs above.
- Do not invent registration numbers, addresses, people or figures.
- End with a "## Conclusion" section, then a "## References" section listing each source as "- title url".
- Today's date is {{.Date}}.
`))

type promptData struct {
	Query   string
	Sources []*Page
	Date    string
}

func renderReportPrompt(query string, sources []*Page, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := reportPromptTmpl.Execute(&buf, promptData{
		Query:   query,
		Sources: sources,
		Date:    now.Format("2006-01-02"),
	})
	return buf.String(), err
}
