// Package templates renders the server's HTML pages.
package templates

import (
	"context"
	"embed"
	"html/template"
	"io"
	"strings"

	"thirdcoast.systems/ytcomments/internal/export"
	"thirdcoast.systems/ytcomments/pkg/utils/markdown"
)

//go:embed index.html help.md
var files embed.FS

var (
	indexTmpl = template.Must(template.ParseFS(files, "index.html"))
	helpHTML  template.HTML
	helpLead  string
)

func init() {
	src, err := files.ReadFile("help.md")
	if err != nil {
		panic(err)
	}
	helpHTML = markdown.Render(string(src))
	lead, _, _ := strings.Cut(string(src), "\n\n")
	helpLead = markdown.PlainText(lead)
}

// Component is anything that renders itself to a writer.
type Component interface {
	Render(ctx context.Context, w io.Writer) error
}

type FormatOption struct {
	Value    string
	Label    string
	Selected bool
}

type indexPage struct {
	Title       string
	Description string
	Help        template.HTML
	StreamPath  string
	MinLikes    int
	Themes      []string
	Formats     []FormatOption
}

func (p indexPage) Render(_ context.Context, w io.Writer) error {
	return indexTmpl.Execute(w, p)
}

// Index is the downloader page. selected preselects a format; the browser
// may override it from local storage.
func Index(streamPath string, minLikes int, selected export.Format) Component {
	opts := make([]FormatOption, 0, len(export.Formats))
	for _, f := range export.Formats {
		opts = append(opts, FormatOption{Value: string(f), Label: f.Label(), Selected: f == selected})
	}
	return indexPage{
		Title:       "YouTube Comments Downloader",
		Description: helpLead,
		Help:        helpHTML,
		StreamPath:  streamPath,
		MinLikes:    minLikes,
		Themes:      []string{"system", "light", "dark"},
		Formats:     opts,
	}
}
