package email

import (
	"bytes"
	"html/template"
	"strings"
)

type message struct {
	Subject     string
	Heading     string
	Lines       []string
	ButtonLabel string
	ButtonURL   string
	Footer      string
}

var htmlLayout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1f2937; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.button { display: inline-block; padding: 12px 24px; background-color: #6d28d9; color: white; text-decoration: none; border-radius: 6px; margin: 20px 0; }
	</style>
</head>
<body>
	<div class="container">
		<h1>{{.Heading}}</h1>
		{{range .Lines}}<p>{{.}}</p>
		{{end}}<a href="{{.ButtonURL}}" class="button">{{.ButtonLabel}}</a>
		<p>Or copy and paste this link into your browser:</p>
		<p style="word-break: break-all; color: #6b7280;">{{.ButtonURL}}</p>
		<p>{{.Footer}}</p>
		<hr>
		<p style="color: #9ca3af; font-size: 12px;">This is an automated message from ContentAnonymity.</p>
	</div>
</body>
</html>
`))

func (m message) html() (string, error) {
	var buf bytes.Buffer
	if err := htmlLayout.Execute(&buf, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m message) text() string {
	var b strings.Builder
	b.WriteString(m.Heading)
	b.WriteString("\n\n")
	for _, line := range m.Lines {
		b.WriteString(line)
		b.WriteString("\n\n")
	}
	b.WriteString(m.ButtonURL)
	b.WriteString("\n\n")
	b.WriteString(m.Footer)
	b.WriteString("\n\nThis is an automated message from ContentAnonymity.\n")
	return b.String()
}
