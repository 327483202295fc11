package keystore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "refresh.bin"), "device-secret")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return fs
}

func TestSaveLoadRoundtrip(t *testing.T) {
	fs := newStore(t)
	if err := fs.Save("refresh-token-value"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := fs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "refresh-token-value" {
		t.Fatalf("expected roundtrip, got %q", got)
	}
}

func TestLoadAbsentIsEmptyNotError(t *testing.T) {
	fs := newStore(t)
	got, err := fs.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}

func TestClearRemovesTokenAndIsIdempotent(t *testing.T) {
	fs := newStore(t)
	if err := fs.Save("tok"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := fs.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := fs.Load(); got != "" {
		t.Fatalf("expected cleared store, got %q", got)
	}
	if err := fs.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestTokenNotStoredInPlaintext(t *testing.T) {
	fs := newStore(t)
	if err := fs.Save("very-secret-refresh-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(fs.path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(raw), "very-secret-refresh-token") {
		t.Fatal("token must not appear in plaintext on disk")
	}
}

func TestWrongSecretFailsToOpen(t *testing.T) {
	fs := newStore(t)
	if err := fs.Save("tok"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	other, err := NewFileStore(fs.path, "different-secret")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := other.Load(); err == nil {
		t.Fatal("expected open failure with wrong secret")
	}
}
