package handbook

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/logger"
)

var testParagraphs = []string{
	"Setiap mahasiswa wajib tinggal di asrama selama tahun pertama perkuliahan.",
	"Jam buka kantin adalah pukul 07.00 sampai 19.00 setiap hari kerja.",
	"Izin keluar kampus diajukan kepada dekan asrama paling lambat sehari sebelumnya.",
	"Perpustakaan menyediakan ruang belajar kelompok yang dapat dipesan mahasiswa.",
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

func TestLoadParagraphs(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "handbook.txt")
	content := strings.Join(testParagraphs, "\n\n") + "\n\nhal. 3\n\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write handbook: %v", err)
	}

	paragraphs, err := LoadParagraphs(path)
	if err != nil {
		t.Fatalf("LoadParagraphs() failed: %v", err)
	}
	if len(paragraphs) != len(testParagraphs) {
		t.Errorf("Expected %d paragraphs (page number dropped), got %d", len(testParagraphs), len(paragraphs))
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	idx, err := NewIndex(testParagraphs, testLogger())
	if err != nil {
		t.Fatalf("NewIndex() failed: %v", err)
	}

	results, err := idx.Search("jam buka kantin", 3)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected at least one result")
	}
	if !strings.Contains(results[0].Paragraph, "kantin") {
		t.Errorf("Top result should mention kantin: %q", results[0].Paragraph)
	}
	if results[0].Rank != 1 {
		t.Errorf("Top result rank = %d, want 1", results[0].Rank)
	}
	if results[0].Confidence != 1/(1+0.05) {
		t.Errorf("Rank 1 confidence = %v, want %v", results[0].Confidence, 1/(1+0.05))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Error("Results not sorted by score descending")
		}
	}
}

func TestSearch_NoMatch(t *testing.T) {
	t.Parallel()
	idx, err := NewIndex(testParagraphs, testLogger())
	if err != nil {
		t.Fatalf("NewIndex() failed: %v", err)
	}

	if _, err := idx.Search("zzzyyy qqqxxx", 3); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	t.Parallel()
	idx, err := NewIndex(nil, testLogger())
	if err != nil {
		t.Fatalf("NewIndex() failed: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Expected empty index, got %d", idx.Len())
	}
	if _, err := idx.Search("asrama", 3); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	t.Parallel()
	idx, err := NewIndex(testParagraphs, testLogger())
	if err != nil {
		t.Fatalf("NewIndex() failed: %v", err)
	}
	if _, err := idx.Search("   ", 3); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
