package export

import (
	"bytes"
	"html/template"
	"time"
)

// TemplateData holds data for board template rendering.
type TemplateData struct {
	Board      BoardInfo
	Lists      []ListInfo
	Activities []ActivityInfo
	Exported   time.Time
}

var boardTemplate = template.Must(template.New("board").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(boardTemplateHTML))

// RenderBoardHTML renders the printable board page.
func RenderBoardHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := boardTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const boardTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Board.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; margin: 2rem; color: #222; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .lists { display: flex; flex-wrap: wrap; gap: 1rem; }
    .list { flex: 1 1 200px; background: #f5f5f5; border-radius: 6px; padding: 0.75rem; page-break-inside: avoid; }
    .list h2 { font-size: 1em; margin: 0 0 0.5rem; }
    .card { background: #fff; border: 1px solid #ddd; border-radius: 4px; padding: 0.5rem; margin-bottom: 0.5rem; }
    .card .title { font-weight: bold; }
    .card .description { color: #555; font-size: 0.85em; margin-top: 0.25rem; }
    .trail { margin-top: 2rem; }
    .trail h2 { border-bottom: 1px solid #ccc; padding-bottom: 0.25rem; }
    .activity { font-size: 0.9em; padding: 0.25rem 0; border-bottom: 1px dotted #eee; }
    .activity time { color: #999; margin-left: 0.5rem; }
  </style>
</head>
<body>
  <h1>{{.Board.Title}}</h1>
  {{if .Board.Description}}<p>{{.Board.Description}}</p>{{end}}
  <div class="meta">{{.Board.OwnerName}} | exported {{formatDate .Exported "Jan 2, 2006 15:04"}}</div>
  <div class="lists">
    {{range .Lists}}
    <div class="list">
      <h2>{{.Title}}</h2>
      {{range .Cards}}
      <div class="card">
        <div class="title">{{.Title}}</div>
        {{if .Description}}<div class="description">{{.Description}}</div>{{end}}
      </div>
      {{else}}<div class="card"><em>No cards</em></div>{{end}}
    </div>
    {{end}}
  </div>
  {{if .Activities}}
  <div class="trail">
    <h2>Activity</h2>
    {{range .Activities}}
    <div class="activity">{{.Text}}<time>{{formatDate .CreatedAt "Jan 2, 2006 15:04"}}</time></div>
    {{end}}
  </div>
  {{end}}
</body>
</html>`
