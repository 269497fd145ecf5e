package web

import "html/template"

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Result}}{{.Result.Company}} | {{end}}Company Information Finder</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: .4rem .6rem; text-align: left; vertical-align: top; }
th { background: #f4f4f4; width: 14rem; }
.notice { background: #fdecea; border: 1px solid #f5c2c0; padding: .5rem .8rem; margin: .5rem 0; }
.warning { background: #fff8e1; border: 1px solid #ffe08a; padding: .5rem .8rem; margin: .5rem 0; }
</style>
</head>
<body>
<h1>Company Information Finder</h1>
<form method="post" action="/lookup">
  <label>Company name <input type="text" name="company" value="{{.Company}}" required></label>
  <label>Country (optional) <input type="text" name="country" value="{{.Country}}"></label>
  <button type="submit">Search</button>
</form>
{{with .Warning}}<div class="warning">{{.}}</div>{{end}}
{{with .Result}}
<h2>{{.Company}}{{if .Country}} ({{.Country}}){{end}}</h2>
{{with .Score.Confidence}}<p class="score">Completeness: {{$.Result.Score.Index}}/100 ({{.}} confidence)</p>{{end}}
{{range .Notices}}<div class="notice">{{.Message}}</div>{{end}}
<table>
{{range .Table.Rows}}<tr><th>{{index . 0}}</th><td>{{index . 1}}</td></tr>
{{end}}
</table>
<h2>References</h2>
{{end}}
{{if .Result}}{{if .References}}<ul>
{{range .References}}<li>{{.}}</li>
{{end}}</ul>{{else}}<p>No references.</p>{{end}}{{end}}
{{if .Recent}}
<h2>Recent lookups</h2>
<ul>
{{range .Recent}}<li>{{.Company}}{{if .Country}} ({{.Country}}){{end}}, {{.CreatedAt.Format "2006-01-02 15:04"}}{{if .Degraded}} (incomplete){{end}}</li>
{{end}}</ul>
{{end}}
</body>
</html>
`))
