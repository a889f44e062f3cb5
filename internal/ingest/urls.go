package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ListStats summarizes a URL list read.
type ListStats struct {
	Scanned      uint32
	Matched      uint32
	Deduplicated uint32
}

// LoadURLs reads a URL list file; "-" reads stdin.
func LoadURLs(path string) ([]string, ListStats, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ListStats{}, fmt.Errorf("list path is required")
	}
	if path == "-" {
		return ParseURLs(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, ListStats{}, fmt.Errorf("open url list: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseURLs(f)
}

// ParseURLs returns one URL per non-blank line, in first-seen order. Lines
// starting with # are comments. Repeated URLs are kept once.
func ParseURLs(r io.Reader) ([]string, ListStats, error) {
	var (
		urls  []string
		stats ListStats
		seen  = map[string]struct{}{}
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		stats.Scanned++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			stats.Deduplicated++
			continue
		}
		seen[line] = struct{}{}
		stats.Matched++
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("read url list: %w", err)
	}
	return urls, stats, nil
}

// MergeURLs appends extra to base, dropping repeats.
func MergeURLs(base []string, extra ...string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, u := range append(append([]string{}, base...), extra...) {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
