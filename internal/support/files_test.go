package support

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy.txt")
	content := "10.0.0.1:1080\n\n  10.0.0.2:1080  \n\t\n10.0.0.3:1080"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	lines, err := ReadLines(path)
	if err != nil {
		t.Fatalf("ReadLines failed: %v", err)
	}

	want := []string{"10.0.0.1:1080", "10.0.0.2:1080", "10.0.0.3:1080"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("ReadLines returned %v, want %v", lines, want)
	}
}

func TestReadLinesMissingFile(t *testing.T) {
	if _, err := ReadLines(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("ReadLines succeeded on a missing file")
	}
}
