package fingerprint

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestFile_Deterministic(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "clip.mp4")

	if err := os.WriteFile(tmpFile, []byte("fake video bytes"), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	first, err := File(tmpFile)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	second, err := File(tmpFile)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}

	if first != second {
		t.Errorf("same file produced different fingerprints: %q != %q", first, second)
	}
	if len(first) != 64 {
		t.Errorf("fingerprint length should be 64, got %d", len(first))
	}
}

func TestFile_SmallMatchesContent(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "clip.mov")

	content := []byte("small clip content")
	if err := os.WriteFile(tmpFile, content, 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	got, err := File(tmpFile)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}

	if want := Content(content); got != want {
		t.Errorf("File result %q doesn't match Content result %q", got, want)
	}
}

func TestFile_NotFound(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestHashStream_PartialAboveThreshold(t *testing.T) {
	// Use a tiny threshold so the partial path is exercised without
	// writing 64 MiB fixtures.
	const threshold = 16
	const head = 8

	base := []byte("aaaaaaaabbbbbbbbcccccccc") // 24 bytes, above threshold

	hash := func(data []byte) string {
		h, err := hashStream(bytes.NewReader(data), int64(len(data)), threshold, head)
		if err != nil {
			t.Fatalf("hashStream failed: %v", err)
		}
		return h
	}

	// Changing a byte inside the hashed head changes the digest.
	headChanged := append([]byte(nil), base...)
	headChanged[3] = 'z'
	if hash(base) == hash(headChanged) {
		t.Error("head change should change the fingerprint")
	}

	// Changing a byte past the head is invisible as long as length matches.
	tailChanged := append([]byte(nil), base...)
	tailChanged[20] = 'z'
	if hash(base) != hash(tailChanged) {
		t.Error("tail change past the head should not change the fingerprint")
	}

	// Same head but different length changes the digest.
	longer := append(append([]byte(nil), base...), 'd')
	if hash(base) == hash(longer) {
		t.Error("length change should change the fingerprint")
	}
}

func TestHashStream_FullBelowThreshold(t *testing.T) {
	data := []byte("entire file hashed")

	h, err := hashStream(bytes.NewReader(data), int64(len(data)), 1024, 8)
	if err != nil {
		t.Fatalf("hashStream failed: %v", err)
	}

	if want := Content(data); h != want {
		t.Errorf("full hash %q doesn't match Content %q", h, want)
	}
}
