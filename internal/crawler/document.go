package crawler

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/jeanpaul/jarvis/internal/textutil"
)

// ReadDocument extracts text from a local file. PDF and Excel workbooks are
// parsed; HTML is run through the page extractor; anything else is read as
// plain text.
func ReadDocument(path string) (Page, error) {
	var (
		page Page
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return Page{}, err
		}
		defer f.Close()
		var info os.FileInfo
		if info, err = f.Stat(); err != nil {
			return Page{}, err
		}
		page, err = parsePDF(f, info.Size())
	case ".xlsx", ".xlsm":
		page, err = parseWorkbook(path)
	case ".html", ".htm":
		var body []byte
		if body, err = os.ReadFile(path); err == nil {
			page, err = parseHTML(body, fileURL(path))
		}
	default:
		var body []byte
		if body, err = os.ReadFile(path); err == nil {
			page = Page{Text: textutil.Clean(string(body)), Markdown: strings.TrimSpace(string(body))}
		}
	}
	if err != nil {
		return Page{}, fmt.Errorf("read %s: %w", path, err)
	}
	if page.Title == "" {
		page.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	page.URL = path
	if page.Text == "" {
		return Page{}, fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return page, nil
}

func fileURL(path string) *url.URL {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
}

// Glob expands a doublestar pattern (e.g. "notes/**/*.pdf") into sorted
// regular file paths.
func Glob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	files := matches[:0]
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func parsePDF(r io.ReaderAt, size int64) (Page, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return Page{}, err
	}
	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.ReplaceAll(text, "\x00", "")
		if strings.TrimSpace(text) != "" {
			pages = append(pages, strings.TrimSpace(text))
		}
	}
	joined := strings.Join(pages, "\n\n")
	return Page{Text: textutil.Clean(joined), Markdown: joined}, nil
}

// parseWorkbook renders every sheet as a markdown table; each row also
// becomes one line of text.
func parseWorkbook(path string) (Page, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Page{}, err
	}
	defer f.Close()

	var text, markdown strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&markdown, "## %s\n\n%s\n", sheet, rowsToMarkdown(rows))
		for _, row := range rows {
			if line := strings.TrimSpace(strings.Join(row, " ")); line != "" {
				text.WriteString(line)
				text.WriteString("\n")
			}
		}
	}
	return Page{Text: textutil.Clean(text.String()), Markdown: strings.TrimSpace(markdown.String())}, nil
}

func rowsToMarkdown(rows [][]string) string {
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	pad := func(row []string) []string {
		out := make([]string, cols)
		copy(out, row)
		return out
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(pad(rows[0]), " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", cols) + "\n")
	for _, row := range rows[1:] {
		sb.WriteString("| " + strings.Join(pad(row), " | ") + " |\n")
	}
	return sb.String()
}
