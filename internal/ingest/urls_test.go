package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURLs(t *testing.T) {
	in := `# quarterly filings
https://example.com/a.pdf

  https://example.com/b.pdf  
https://example.com/a.pdf
`
	urls, stats, err := ParseURLs(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a.pdf", "https://example.com/b.pdf"}, urls)
	assert.Equal(t, ListStats{Scanned: 5, Matched: 2, Deduplicated: 1}, stats)
}

func TestLoadURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://example.com/filing.pdf\n"), 0o644))

	urls, _, err := LoadURLs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/filing.pdf"}, urls)

	_, _, err = LoadURLs(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
	_, _, err = LoadURLs(" ")
	assert.Error(t, err)
}

func TestMergeURLs(t *testing.T) {
	got := MergeURLs([]string{"a", "b"}, "b", " ", "c")
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Empty(t, MergeURLs(nil))
}
