package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"thirdcoast.systems/ytcomments/internal/comments"
	"thirdcoast.systems/ytcomments/pkg/utils/filename"
	"thirdcoast.systems/ytcomments/pkg/utils/markdown"
)

// Format names an output encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatXLSX     Format = "xlsx"
)

// Formats lists every supported format, default first.
var Formats = []Format{FormatCSV, FormatJSON, FormatXLSX, FormatMarkdown, FormatHTML}

// Sheet names of the xlsx workbook.
const (
	SheetComments = "comments"
	SheetReplies  = "replies"
)

type formatMeta struct {
	ext    string
	mime   string
	label  string
	binary bool
	encode func(w io.Writer, entries []comments.Entry, opts Options) error
}

var formatMetas = map[Format]formatMeta{
	FormatCSV:      {"csv", "text/csv; charset=utf-8", "CSV", false, WriteCSV},
	FormatJSON:     {"json", "application/json; charset=utf-8", "JSON", false, writeJSON},
	FormatXLSX:     {"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "XLSX", true, writeXLSX},
	FormatMarkdown: {"md", "text/markdown; charset=utf-8", "Markdown", false, writeMarkdown},
	FormatHTML:     {"html", "text/html; charset=utf-8", "HTML", false, writeHTML},
}

// ParseFormat returns the format named s. Empty and unknown names fall back
// to CSV; ok reports whether s was recognized.
func ParseFormat(s string) (f Format, ok bool) {
	f = Format(strings.ToLower(strings.TrimSpace(s)))
	if _, known := formatMetas[f]; known {
		return f, true
	}
	return FormatCSV, false
}

// Extension returns the file extension without a dot.
func (f Format) Extension() string { return formatMetas[f].ext }

// MIMEType returns the Content-Type used when serving f.
func (f Format) MIMEType() string { return formatMetas[f].mime }

// Label is the human readable name of f.
func (f Format) Label() string { return formatMetas[f].label }

// IsBinary reports whether f produces non-text output.
func (f Format) IsBinary() bool { return formatMetas[f].binary }

// Encode writes entries to w in format f. The BOM option is ignored for
// binary formats.
func Encode(w io.Writer, f Format, entries []comments.Entry, opts Options) error {
	meta, ok := formatMetas[f]
	if !ok {
		return fmt.Errorf("unsupported format %q", f)
	}
	if !opts.BOM || meta.binary {
		return meta.encode(w, entries, opts)
	}

	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	if err := meta.encode(tw, entries, opts); err != nil {
		_ = tw.Close()
		return err
	}
	return tw.Close()
}

// EncodeBytes is Encode into memory.
func EncodeBytes(f Format, entries []comments.Entry, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f, entries, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DownloadName returns the attachment name for a download: the sanitized
// title when there is one, yt_<videoID> otherwise.
func DownloadName(title, videoID string, f Format) string {
	if base := filename.Sanitize(title, filename.DefaultMaxLen); base != "" {
		return base + "." + f.Extension()
	}
	return FileName(videoID, f)
}

func writeJSON(w io.Writer, entries []comments.Entry, _ Options) error {
	if entries == nil {
		entries = []comments.Entry{}
	}
	return json.NewEncoder(w).Encode(struct {
		Comments []comments.Entry `json:"comments"`
	}{entries})
}

func markdownTable(entries []comments.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, e.Record().Strings())
	}
	return markdown.Table(comments.Columns, rows)
}

func writeMarkdown(w io.Writer, entries []comments.Entry, _ Options) error {
	_, err := io.WriteString(w, markdownTable(entries)+"\n")
	return err
}

// writeHTML renders a standalone table. Cells are HTML-escaped text; comment
// bodies are never interpreted as markup.
func writeHTML(w io.Writer, entries []comments.Entry, opts Options) error {
	title := html.EscapeString(opts.Title)
	if title == "" {
		title = "Comments"
	}

	var b strings.Builder
	b.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n</head>\n<body>\n<h1>%s</h1>\n", title, title)

	b.WriteString("<table>\n<thead>\n<tr>")
	for _, col := range comments.Columns {
		fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(col))
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, e := range entries {
		b.WriteString("<tr>")
		for _, cell := range e.Record().Strings() {
			fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(cell))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n</body>\n</html>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// writeXLSX writes a workbook with top-level comments and replies on
// separate sheets, each with the Columns header.
func writeXLSX(w io.Writer, entries []comments.Entry, _ Options) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetComments); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetReplies); err != nil {
		return err
	}

	next := map[string]int{SheetComments: 1, SheetReplies: 1}
	setRow := func(sheet string, values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, next[sheet])
		if err != nil {
			return err
		}
		next[sheet]++
		return f.SetSheetRow(sheet, cell, &values)
	}

	header := make([]any, len(comments.Columns))
	for i, col := range comments.Columns {
		header[i] = col
	}
	for _, sheet := range []string{SheetComments, SheetReplies} {
		if err := setRow(sheet, header); err != nil {
			return err
		}
	}

	for _, e := range entries {
		sheet := SheetComments
		if e.IsReply() {
			sheet = SheetReplies
		}
		r := e.Record()
		if err := setRow(sheet, []any{r.PublishedTime, r.Author, r.Likes, r.CommentID, r.ParentID, r.Comment}); err != nil {
			return fmt.Errorf("xlsx %s row: %w", sheet, err)
		}
	}

	_, err = f.WriteTo(w)
	return err
}
