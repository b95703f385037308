// Package source loads statute text from plain text and PDF files.
package source

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	rpdf "rsc.io/pdf"
)

// ErrUnsupported is returned for file types Load cannot read.
var ErrUnsupported = errors.New("unsupported source format")

// Document is loaded source text.
type Document struct {
	Path  string
	Text  string
	Pages int
}

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ID derives a document identifier from the file name. Runs of characters
// other than letters, digits, '_' and '-' become a single '-'.
func (d *Document) ID() string {
	base := filepath.Base(d.Path)
	id := unsafeIDChars.ReplaceAllString(strings.TrimSuffix(base, filepath.Ext(base)), "-")
	id = strings.Trim(id, "-_")
	if id == "" {
		return "document"
	}
	return id
}

// Load reads path by extension: .txt and .md directly, .pdf through its text
// runs.
func Load(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%s is not valid UTF-8", path)
		}
		return &Document{Path: path, Text: normalizeNewlines(string(data)), Pages: 1}, nil
	case ".pdf":
		return loadPDF(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

// Supported reports whether Load can read path.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	}
	return false
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func loadPDF(path string) (doc *Document, err error) {
	r, err := rpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	// rsc.io/pdf panics on some malformed content streams.
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, fmt.Errorf("failed to read PDF %s: %v", path, p)
		}
	}()

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, pageText(page.Content().Text))
	}
	return &Document{Path: path, Text: strings.Join(pages, "\n"), Pages: n}, nil
}

// pageText groups text runs into lines by baseline, top to bottom, and
// orders each line left to right. A gap wider than a third of the font size
// becomes a space.
func pageText(runs []rpdf.Text) string {
	type line struct {
		y    float64
		runs []rpdf.Text
	}
	var lines []*line
	for _, run := range runs {
		var target *line
		for _, l := range lines {
			if math.Abs(l.y-run.Y) < math.Max(run.FontSize/2, 1) {
				target = l
				break
			}
		}
		if target == nil {
			target = &line{y: run.Y}
			lines = append(lines, target)
		}
		target.runs = append(target.runs, run)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	var b strings.Builder
	for _, l := range lines {
		sort.SliceStable(l.runs, func(i, j int) bool { return l.runs[i].X < l.runs[j].X })
		var lb strings.Builder
		end := math.Inf(-1)
		for _, run := range l.runs {
			if lb.Len() > 0 && run.X-end > run.FontSize/3 {
				lb.WriteByte(' ')
			}
			lb.WriteString(run.S)
			end = run.X + run.W
		}
		text := strings.TrimSpace(lb.String())
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}
