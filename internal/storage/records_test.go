package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"shrike/internal/scrape"
)

func TestRecordWriterNamesFilesAfterSourcePage(t *testing.T) {
	dir := t.TempDir()
	writer := NewRecordWriter(dir)

	company := scrape.Company{
		Title:      "Acme Software",
		ProfileURL: "https://clutch.co/profile/acme",
		Address:    scrape.Address{Country: "Germany"},
	}

	path, err := writer.WriteCompany("page-0001.html", 0, company)
	if err != nil {
		t.Fatalf("WriteCompany failed: %v", err)
	}
	if filepath.Base(path) != "page-0001_company_1.json" {
		t.Fatalf("WriteCompany wrote %s, want page-0001_company_1.json", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}

	var decoded scrape.Company
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}
	if decoded.Title != "Acme Software" || decoded.Address.Country != "Germany" {
		t.Fatalf("decoded record = %+v", decoded)
	}
}
