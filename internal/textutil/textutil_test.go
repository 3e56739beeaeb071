package textutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	cases := map[string]string{
		"  hello   world  ":                   "hello world",
		"<p>Paris</p><p>is nice</p>":          "Paris is nice",
		"line one\n\n\tline two":              "line one line two",
		"Tom &amp; Jerry <b>rock</b>":         "Tom & Jerry rock",
		"<script>alert(1)</script>safe text ": "safe text",
		"":                                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Clean(in), "Clean(%q)", in)
	}
}

func TestTruncate(t *testing.T) {
	s, cut := Truncate("héllo wörld", 5)
	assert.Equal(t, "héllo", s)
	assert.True(t, cut)

	s, cut = Truncate("short", 300)
	assert.Equal(t, "short", s)
	assert.False(t, cut)
}

func TestChunk(t *testing.T) {
	text := strings.Repeat("word ", 1001)
	chunks := Chunk(text, 400)
	require.Len(t, chunks, 3)
	assert.Len(t, strings.Fields(chunks[0]), 400)
	assert.Len(t, strings.Fields(chunks[1]), 400)
	assert.Len(t, strings.Fields(chunks[2]), 201)

	assert.Nil(t, Chunk("   ", 10))
	assert.Equal(t, []string{"a b"}, Chunk("a\nb", 0))
}

func TestSaveAndLoadChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "page.json")
	require.NoError(t, SaveChunks([]string{"one", "two"}, path))

	got, err := LoadChunks(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
}
