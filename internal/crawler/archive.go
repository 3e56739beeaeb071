package crawler

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jeanpaul/jarvis/internal/textutil"
)

// Archived describes what Archive wrote.
type Archived struct {
	Chunks       []string
	ChunksPath   string
	MarkdownPath string
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a URL or title into a file-name stem.
func Slug(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "https://"), "http://")
	s = strings.Trim(slugRe.ReplaceAllString(s, "_"), "_")
	if len(s) > 80 {
		s = strings.TrimRight(s[:80], "_")
	}
	if s == "" {
		s = "page"
	}
	return s
}

// Archive chunks the page text into dir/<slug>.json and writes the markdown
// rendering next to it as dir/<slug>.md.
func Archive(page Page, dir string, maxWords int) (Archived, error) {
	chunks := textutil.Chunk(page.Text, maxWords)
	if len(chunks) == 0 {
		return Archived{}, ErrNoText
	}
	stem := Slug(page.URL)
	out := Archived{
		Chunks:       chunks,
		ChunksPath:   filepath.Join(dir, stem+".json"),
		MarkdownPath: filepath.Join(dir, stem+".md"),
	}
	if err := textutil.SaveChunks(chunks, out.ChunksPath); err != nil {
		return Archived{}, err
	}

	md := page.Markdown
	if md == "" {
		md = page.Text
	}
	header := fmt.Sprintf("# %s\n\n**Source**: %s\n\n", page.Title, page.URL)
	if err := os.WriteFile(out.MarkdownPath, []byte(header+md+"\n"), 0o644); err != nil {
		return Archived{}, fmt.Errorf("write %s: %w", out.MarkdownPath, err)
	}
	return out, nil
}
