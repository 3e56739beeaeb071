package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jeanpaul/jarvis/internal/logging"
	"github.com/jeanpaul/jarvis/internal/textutil"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Go Concurrency</title><style>p { color: red }</style></head>
<body>
<nav><p>Home | Blog | About</p></nav>
<header><p>Site header</p></header>
<article>
<h1>Go Concurrency</h1>
<p>Goroutines are   lightweight threads managed by the Go runtime.</p>
<p>Channels let goroutines <b>communicate</b> safely.</p>
<script>var x = "<p>not text</p>";</script>
</article>
<footer><p>Copyright 2024</p></footer>
</body></html>`

func newCrawler() *Crawler {
	return New(Options{Logger: logging.Nop()})
}

func TestFetch_ExtractsParagraphs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Jarvis")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	page, err := newCrawler().Fetch(context.Background(), srv.URL+"/go")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/go", page.URL)
	assert.Equal(t, "Go Concurrency", page.Title)
	assert.Equal(t, "Goroutines are lightweight threads managed by the Go runtime. Channels let goroutines communicate safely.", page.Text)
	assert.NotContains(t, page.Text, "Copyright")
	assert.NotContains(t, page.Text, "Home | Blog")
	assert.NotEmpty(t, page.Markdown)
}

func TestFetch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/empty":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body><script>1</script></body></html>`))
		}
	}))
	defer srv.Close()

	c := newCrawler()
	_, err := c.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")

	_, err = c.Fetch(context.Background(), srv.URL+"/empty")
	assert.ErrorIs(t, err, ErrNoText)

	_, err = c.Fetch(context.Background(), "ftp://example.com/file")
	assert.Error(t, err)
}

func TestFetchAll_DedupesAndKeepsOrder(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>page " + strings.TrimPrefix(r.URL.Path, "/") + "</p></body></html>"))
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/a", srv.URL + "/c"}
	results := newCrawler().FetchAll(context.Background(), urls, 2)
	require.Len(t, results, 3)
	assert.EqualValues(t, 3, hits.Load())
	for i, want := range []string{"a", "b", "c"} {
		require.NoError(t, results[i].Err)
		assert.Equal(t, srv.URL+"/"+want, results[i].URL)
		assert.Equal(t, "page "+want, results[i].Page.Text)
	}
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	page := Page{
		URL:      "https://example.com/Go/Concurrency",
		Title:    "Go Concurrency",
		Text:     "one two three four five",
		Markdown: "# Go Concurrency\n\none two three four five",
	}
	out, err := Archive(page, dir, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"one two", "three four", "five"}, out.Chunks)
	assert.Equal(t, filepath.Join(dir, "example_com_go_concurrency.json"), out.ChunksPath)

	chunks, err := textutil.LoadChunks(out.ChunksPath)
	require.NoError(t, err)
	assert.Equal(t, out.Chunks, chunks)

	data, err := os.ReadFile(out.MarkdownPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "**Source**: https://example.com/Go/Concurrency")

	_, err = Archive(Page{URL: "x"}, dir, 2)
	assert.True(t, errors.Is(err, ErrNoText))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "en_wikipedia_org_wiki_go", Slug("https://en.wikipedia.org/wiki/Go"))
	assert.Equal(t, "page", Slug("///"))
	assert.LessOrEqual(t, len(Slug(strings.Repeat("a", 200))), 80)
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("the  boiler\nis in the garage"), 0o644))
	page, err := ReadDocument(txt)
	require.NoError(t, err)
	assert.Equal(t, "notes", page.Title)
	assert.Equal(t, "the boiler is in the garage", page.Text)

	html := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(html, []byte(articleHTML), 0o644))
	page, err = ReadDocument(html)
	require.NoError(t, err)
	assert.Equal(t, "Go Concurrency", page.Title)
	assert.Contains(t, page.Text, "Channels let goroutines communicate safely.")

	xlsx := filepath.Join(dir, "contacts.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"name", "phone"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Asha", "555-0100"}))
	require.NoError(t, f.SaveAs(xlsx))
	require.NoError(t, f.Close())
	page, err = ReadDocument(xlsx)
	require.NoError(t, err)
	assert.Equal(t, "name phone Asha 555-0100", page.Text)
	assert.Contains(t, page.Markdown, "| Asha | 555-0100 |")

	bad := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("not a pdf"), 0o644))
	_, err = ReadDocument(bad)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))
	_, err = ReadDocument(empty)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestGlob(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"a/one.txt", "a/b/two.txt", "a/b/skip.md", "three.txt"} {
		full := filepath.Join(dir, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
	files, err := Glob(filepath.Join(dir, "**", "*.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a", "b", "two.txt"),
		filepath.Join(dir, "a", "one.txt"),
		filepath.Join(dir, "three.txt"),
	}, files)
}
