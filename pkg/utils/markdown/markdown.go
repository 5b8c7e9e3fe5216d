package markdown

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var (
	bfRenderer = blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.Safelink | blackfriday.NofollowLinks | blackfriday.HrefTargetBlank,
	})
	bfExtensions = blackfriday.NoIntraEmphasis | blackfriday.Tables | blackfriday.Autolink | blackfriday.Strikethrough
	policy       = bluemonday.UGCPolicy()
)

// Table builds a GitHub-flavored markdown table. Cells are escaped with
// EscapeCell; rows shorter than header are padded.
func Table(header []string, rows [][]string) string {
	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := range header {
			cell := ""
			if i < len(cells) {
				cell = EscapeCell(cells[i])
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(header)
	b.WriteString("|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, r := range rows {
		writeRow(r)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// EscapeCell makes s safe inside a table cell: pipes are escaped and line
// breaks become <br>.
func EscapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", "<br>")
	return strings.NewReplacer("\n", "<br>", "\r", "<br>").Replace(s)
}

// Render converts markdown source into sanitized HTML.
func Render(source string) template.HTML {
	if source == "" {
		return ""
	}
	unsafe := blackfriday.Run([]byte(source),
		blackfriday.WithRenderer(bfRenderer),
		blackfriday.WithExtensions(bfExtensions),
	)
	return template.HTML(bytes.TrimSpace(policy.SanitizeBytes(unsafe)))
}

// PlainText renders source and strips every tag from the result.
func PlainText(source string) string {
	unsafe := blackfriday.Run([]byte(source),
		blackfriday.WithRenderer(bfRenderer),
		blackfriday.WithExtensions(bfExtensions),
	)
	return string(bytes.TrimSpace(bluemonday.StrictPolicy().SanitizeBytes(unsafe)))
}
