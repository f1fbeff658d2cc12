package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shrike/internal/scrape"
)

// RecordWriter saves each extracted provider entry as its own JSON file,
// named after the page it came from: page-0001.html yields
// page-0001_company_1.json and so on.
type RecordWriter struct {
	dir string
}

func NewRecordWriter(dir string) *RecordWriter {
	return &RecordWriter{dir: dir}
}

// WriteCompany persists one provider entry. index counts from zero within
// the page; the file name counts from one.
func (w *RecordWriter) WriteCompany(pageName string, index int, company scrape.Company) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create records directory: %w", err)
	}

	name := strings.TrimSuffix(pageName, ".html") + fmt.Sprintf("_company_%d.json", index+1)
	path := filepath.Join(w.dir, name)

	data, err := json.MarshalIndent(company, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode company record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write company record: %w", err)
	}

	return path, nil
}
