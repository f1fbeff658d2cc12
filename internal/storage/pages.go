// Package storage persists downloaded pages, the extracted provider
// records and the optional database archive of a scrape run.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

const pageFilePattern = "page-%04d.html"

// Page is one saved listing page on disk.
type Page struct {
	Number int
	Name   string
}

// PageStore keeps the raw HTML of each downloaded listing page so the
// processing phase can run without touching the network.
type PageStore struct {
	dir string
}

func NewPageStore(dir string) *PageStore {
	return &PageStore{dir: dir}
}

// Save writes a page's HTML under its page number and returns the path.
func (s *PageStore) Save(pageNumber int, html string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create pages directory: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf(pageFilePattern, pageNumber))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write page file: %w", err)
	}

	log.Debug("saved page", "page", pageNumber, "path", path)
	return path, nil
}

// List returns the saved pages sorted by page number. Files that do not
// follow the page naming scheme are ignored. A missing directory counts
// as empty.
func (s *PageStore) List() ([]Page, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pages directory: %w", err)
	}

	var pages []Page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		number, ok := pageNumber(entry.Name())
		if !ok {
			continue
		}
		pages = append(pages, Page{Number: number, Name: entry.Name()})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}

// Read returns the HTML of a previously saved page file.
func (s *PageStore) Read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("read page file: %w", err)
	}
	return string(data), nil
}

func pageNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, "page-") || !strings.HasSuffix(name, ".html") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "page-"), ".html"))
	if err != nil {
		return 0, false
	}
	return n, true
}
