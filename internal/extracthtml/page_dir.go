package extracthtml

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadPageDir parses every .html/.htm file directly under dir, keyed by file
// name without extension. Files are visited in name order; unreadable or
// unparseable files are skipped, and when two files share a stem the first
// one wins.
func LoadPageDir(dir string) (map[string]*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	pages := make(map[string]*Document)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".html" && ext != ".htm" {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if _, dup := pages[stem]; dup {
			continue
		}

		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		doc, err := NewDocumentFromReader(f)
		_ = f.Close()
		if err != nil {
			continue
		}
		pages[stem] = doc
	}
	return pages, nil
}
