package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRead_MissingFileIsZero(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "checkpoint"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	v, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != 0 {
		t.Errorf("checkpoint = %d, want 0", v)
	}
}

func TestWriteRead_Roundtrip(t *testing.T) {
	s, _ := NewFileStore(filepath.Join(t.TempDir(), "checkpoint"))

	if err := s.Write(42137); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != 42137 {
		t.Errorf("checkpoint = %d, want 42137", v)
	}
}

func TestWrite_RejectsNegative(t *testing.T) {
	s, _ := NewFileStore(filepath.Join(t.TempDir(), "checkpoint"))
	if err := s.Write(-1); err == nil {
		t.Fatal("expected error for negative checkpoint")
	}
}

func TestRead_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint")
	s, _ := NewFileStore(path)
	if err := os.WriteFile(path, []byte("not-a-number"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Read(); err == nil {
		t.Fatal("expected parse error")
	}
}
