package library

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func makeEntryFolder(t *testing.T, storage, name, fileName string) *Entry {
	t.Helper()

	folder := filepath.Join(storage, name)
	if err := os.MkdirAll(folder, 0755); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, fileName), []byte("video bytes "+name), 0644); err != nil {
		t.Fatalf("failed to write media file: %v", err)
	}

	entry := &Entry{
		VideoName:        name,
		VideoFileName:    fileName,
		VideoPath:        filepath.Join(folder, fileName),
		FolderPath:       folder,
		DescriptionFiles: []string{},
		PerformanceLevel: PerformanceNormal,
	}
	if err := SaveMetadata(entry); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}
	return entry
}

func TestSaveLoadRoundTrip(t *testing.T) {
	storage := t.TempDir()

	entry := makeEntryFolder(t, storage, "beach-day", "beach-day.mp4")
	entry.PerformanceLevel = "HIGH" // free text, normalized on save
	entry.Tags = []string{"#beach", "#summer"}
	entry.ReadyForUse = true
	d := NewDate(time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC))
	entry.LastPostDate = &d
	if err := SaveMetadata(entry); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}

	loaded, err := LoadFromStorage(storage)
	if err != nil {
		t.Fatalf("LoadFromStorage failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(loaded))
	}

	got := loaded[0]
	if got.VideoName != "beach-day" {
		t.Errorf("VideoName = %q", got.VideoName)
	}
	if got.PerformanceLevel != PerformanceHigh {
		t.Errorf("PerformanceLevel = %q, want High", got.PerformanceLevel)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "#beach" {
		t.Errorf("Tags = %v", got.Tags)
	}
	if !got.ReadyForUse {
		t.Error("ReadyForUse not round-tripped")
	}
	if got.LastPostDate == nil || got.LastPostDate.Format("2006-01-02") != "2024-03-10" {
		t.Errorf("LastPostDate = %v, want 2024-03-10", got.LastPostDate)
	}
	if got.FolderPath != entry.FolderPath {
		t.Errorf("FolderPath = %q, want %q", got.FolderPath, entry.FolderPath)
	}
	if got.VideoPath != filepath.Join(entry.FolderPath, "beach-day.mp4") {
		t.Errorf("VideoPath = %q", got.VideoPath)
	}
}

func TestLoadFromStorage_SkipsCorruptMetadata(t *testing.T) {
	storage := t.TempDir()

	makeEntryFolder(t, storage, "good", "good.mp4")

	bad := filepath.Join(storage, "bad")
	if err := os.MkdirAll(bad, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(bad, MetadataFileName), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	entries, err := LoadFromStorage(storage)
	if err != nil {
		t.Fatalf("LoadFromStorage failed: %v", err)
	}
	if len(entries) != 1 || entries[0].VideoName != "good" {
		t.Fatalf("expected only the good entry, got %d entries", len(entries))
	}
}

func TestLoadFromStorage_MissingFolder(t *testing.T) {
	entries, err := LoadFromStorage(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing storage folder should not error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty library, got %d entries", len(entries))
	}
}

func TestLoadFromStorage_SortedByName(t *testing.T) {
	storage := t.TempDir()
	makeEntryFolder(t, storage, "zebra", "z.mp4")
	makeEntryFolder(t, storage, "Alpha", "a.mp4")
	makeEntryFolder(t, storage, "mango", "m.mp4")

	entries, err := LoadFromStorage(storage)
	if err != nil {
		t.Fatalf("LoadFromStorage failed: %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.VideoName)
	}
	want := []string{"Alpha", "mango", "zebra"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
}

func TestResolveVideoPath_Fallback(t *testing.T) {
	storage := t.TempDir()
	entry := makeEntryFolder(t, storage, "clip", "clip.mp4")

	// Declared file name missing: fall back to the first supported file.
	got := ResolveVideoPath(entry.FolderPath, "renamed-elsewhere.mp4")
	if got != filepath.Join(entry.FolderPath, "clip.mp4") {
		t.Errorf("fallback path = %q", got)
	}

	// Declared file present: preferred wins.
	got = ResolveVideoPath(entry.FolderPath, "clip.mp4")
	if got != filepath.Join(entry.FolderPath, "clip.mp4") {
		t.Errorf("preferred path = %q", got)
	}
}

func TestRename_CollisionGetsSuffix(t *testing.T) {
	storage := t.TempDir()
	a := makeEntryFolder(t, storage, "a", "a.mp4")
	makeEntryFolder(t, storage, "b", "b.mp4")

	if err := Rename(a, "b"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	want := filepath.Join(storage, "b-1")
	if a.FolderPath != want {
		t.Errorf("FolderPath = %q, want %q", a.FolderPath, want)
	}
	if a.VideoPath != filepath.Join(want, "a.mp4") {
		t.Errorf("VideoPath = %q", a.VideoPath)
	}
	if _, err := os.Stat(filepath.Join(want, MetadataFileName)); err != nil {
		t.Errorf("metadata not found at new location: %v", err)
	}
	// Folder b must be untouched.
	if _, err := os.Stat(filepath.Join(storage, "b", "b.mp4")); err != nil {
		t.Errorf("existing folder was disturbed: %v", err)
	}
}

func TestRename_EmptyName(t *testing.T) {
	storage := t.TempDir()
	entry := makeEntryFolder(t, storage, "clip", "clip.mp4")

	if err := Rename(entry, "   "); err == nil {
		t.Error("expected error for blank name")
	}
	if err := Rename(entry, "///"); err == nil {
		t.Error("expected error for name that sanitizes to empty")
	}
}

func TestRenameFile_RenamesMediaAndFolder(t *testing.T) {
	storage := t.TempDir()
	entry := makeEntryFolder(t, storage, "IMG_0042", "IMG_0042.mov")

	if err := RenameFile(entry, "sunset-run"); err != nil {
		t.Fatalf("RenameFile failed: %v", err)
	}

	if entry.VideoFileName != "sunset-run.mov" {
		t.Errorf("VideoFileName = %q", entry.VideoFileName)
	}
	if entry.FolderPath != filepath.Join(storage, "sunset-run") {
		t.Errorf("FolderPath = %q", entry.FolderPath)
	}
	if _, err := os.Stat(filepath.Join(entry.FolderPath, "sunset-run.mov")); err != nil {
		t.Errorf("renamed media missing: %v", err)
	}
}

func TestDelete(t *testing.T) {
	storage := t.TempDir()
	entry := makeEntryFolder(t, storage, "gone", "gone.mp4")

	if err := Delete(entry); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(entry.FolderPath); !os.IsNotExist(err) {
		t.Error("folder should be removed")
	}

	// Second delete is a no-op.
	if err := Delete(entry); err != nil {
		t.Errorf("repeat Delete should be a no-op: %v", err)
	}
}

func TestAddDescription_Numbering(t *testing.T) {
	storage := t.TempDir()
	entry := makeEntryFolder(t, storage, "clip", "clip.mp4")
	entry.DescriptionFiles = []string{"description-1.txt", "description-3.txt", "notes.txt"}

	name, err := AddDescription(entry)
	if err != nil {
		t.Fatalf("AddDescription failed: %v", err)
	}
	if name != "description-4.txt" {
		t.Errorf("next description = %q, want description-4.txt", name)
	}
	if _, err := os.Stat(filepath.Join(entry.FolderPath, name)); err != nil {
		t.Errorf("description file not created: %v", err)
	}

	// List stays sorted after append.
	for i := 1; i < len(entry.DescriptionFiles); i++ {
		if entry.DescriptionFiles[i-1] > entry.DescriptionFiles[i] {
			t.Errorf("description files not sorted: %v", entry.DescriptionFiles)
			break
		}
	}
}

func TestDescriptions_RoundTripAndMissing(t *testing.T) {
	storage := t.TempDir()
	entry := makeEntryFolder(t, storage, "clip", "clip.mp4")

	if err := SaveDescription(entry, "description-1.txt", "Hello caption"); err != nil {
		t.Fatalf("SaveDescription failed: %v", err)
	}
	got, err := LoadDescription(entry, "description-1.txt")
	if err != nil {
		t.Fatalf("LoadDescription failed: %v", err)
	}
	if got != "Hello caption" {
		t.Errorf("description = %q", got)
	}

	missing, err := LoadDescription(entry, "description-99.txt")
	if err != nil {
		t.Fatalf("missing description should not error: %v", err)
	}
	if missing != "" {
		t.Errorf("missing description = %q, want empty", missing)
	}
}

func TestAddRemoveTags(t *testing.T) {
	storage := t.TempDir()
	entry := makeEntryFolder(t, storage, "clip", "clip.mp4")

	if err := AddTags(entry, []string{"#surf", "#SURF", "  ", "#dawn"}); err != nil {
		t.Fatalf("AddTags failed: %v", err)
	}
	if len(entry.Tags) != 2 {
		t.Fatalf("tags = %v, want case-insensitive dedup to 2", entry.Tags)
	}

	if err := RemoveTags(entry, []string{"#Surf"}); err != nil {
		t.Fatalf("RemoveTags failed: %v", err)
	}
	if len(entry.Tags) != 1 || entry.Tags[0] != "#dawn" {
		t.Errorf("tags after remove = %v", entry.Tags)
	}

	// Mutations are persisted, not just in-memory.
	loaded, err := LoadFromStorage(storage)
	if err != nil {
		t.Fatalf("LoadFromStorage failed: %v", err)
	}
	if len(loaded) != 1 || len(loaded[0].Tags) != 1 {
		t.Errorf("persisted tags = %v", loaded[0].Tags)
	}
}

func TestCommonHashtags(t *testing.T) {
	storage := t.TempDir()

	if got := LoadCommonHashtags(storage); len(got) != 0 {
		t.Errorf("missing file should yield empty list, got %v", got)
	}

	if err := SaveCommonHashtags(storage, []string{"#b", "#A", "#a", " ", "#c"}); err != nil {
		t.Fatalf("SaveCommonHashtags failed: %v", err)
	}
	got := LoadCommonHashtags(storage)
	if len(got) != 3 {
		t.Fatalf("tags = %v, want 3 deduped", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Errorf("tags not sorted: %v", got)
		}
	}

	// Malformed file falls back to empty.
	path := filepath.Join(storage, CommonHashtagsFileName)
	if err := os.WriteFile(path, []byte("{{"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := LoadCommonHashtags(storage); len(got) != 0 {
		t.Errorf("malformed file should yield empty list, got %v", got)
	}
}

func TestSanitizeFolderName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"with space", "with space"},
		{"a/b", "a_b"},
		{"a//b", "a_b"},
		{`c:\temp*?`, "c_temp"},
		{"<>|", ""},
		{"  trimmed  ", "trimmed"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeFolderName(tt.input); got != tt.expected {
				t.Errorf("SanitizeFolderName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(time.Date(2024, 1, 5, 13, 45, 0, 0, time.UTC))
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"2024-01-05"` {
		t.Errorf("marshaled date = %s", data)
	}

	var back Date
	if err := json.Unmarshal([]byte(`"2024-01-05T13:45:00Z"`), &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if back.Format("2006-01-02") != "2024-01-05" {
		t.Errorf("unmarshaled date = %v", back)
	}

	// Unparseable dates stay zero instead of failing the document.
	var odd Date
	if err := json.Unmarshal([]byte(`"next tuesday"`), &odd); err != nil {
		t.Errorf("tolerant parse should not error: %v", err)
	}
	if !odd.IsZero() {
		t.Errorf("unparseable date should stay zero, got %v", odd)
	}
}

func TestNormalizePerformance(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"low", PerformanceLow},
		{" HIGH ", PerformanceHigh},
		{"Normal", PerformanceNormal},
		{"banana", PerformanceNormal},
		{"", PerformanceNormal},
	}

	for _, tt := range tests {
		if got := NormalizePerformance(tt.input); got != tt.expected {
			t.Errorf("NormalizePerformance(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
