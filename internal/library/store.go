package library

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	// MetadataFileName is the per-clip metadata document.
	MetadataFileName = "metadata.json"
	// CommonHashtagsFileName is the legacy flat hashtag list at the storage root.
	CommonHashtagsFileName = "common-hashtags.json"

	maxFolderSuffixAttempts = 1000
)

// LoadFromStorage scans the immediate subdirectories of storageFolder and
// returns an entry for each one holding a readable metadata document, sorted
// by video name. Corrupt metadata excludes that one folder with a warning;
// the scan never aborts on a single bad entry. A missing storage folder
// yields an empty library.
func LoadFromStorage(storageFolder string) ([]*Entry, error) {
	dirs, err := os.ReadDir(storageFolder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read storage folder: %w", err)
	}

	var entries []*Entry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}

		folder := filepath.Join(storageFolder, d.Name())
		metadataPath := filepath.Join(folder, MetadataFileName)

		data, err := os.ReadFile(metadataPath)
		if err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("unreadable metadata, skipping folder", "folder", folder, "error", err)
			}
			continue
		}

		entry := &Entry{}
		if err := json.Unmarshal(data, entry); err != nil {
			slog.Warn("corrupt metadata, skipping folder", "folder", folder, "error", err)
			continue
		}

		// The directory on disk is the source of truth for identity.
		entry.FolderPath = folder
		entry.VideoPath = ResolveVideoPath(folder, entry.VideoFileName)
		entry.PerformanceLevel = NormalizePerformance(entry.PerformanceLevel)
		entries = append(entries, entry)
	}

	SortEntries(entries)
	return entries, nil
}

// SaveMetadata normalizes and writes the entry's metadata document,
// overwriting any previous version.
func SaveMetadata(entry *Entry) error {
	entry.PerformanceLevel = NormalizePerformance(entry.PerformanceLevel)

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	metadataPath := filepath.Join(entry.FolderPath, MetadataFileName)
	if err := os.WriteFile(metadataPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// Rename changes the entry's display name and moves its folder to match.
// A sanitized-name collision with another folder gets a numeric suffix
// rather than overwriting it.
func Rename(entry *Entry, newName string) error {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return fmt.Errorf("video name cannot be empty")
	}

	safe := SanitizeFolderName(trimmed)
	if safe == "" {
		return fmt.Errorf("video name %q is invalid for a folder name", trimmed)
	}

	parent := filepath.Dir(entry.FolderPath)
	requested := filepath.Join(parent, safe)

	target := entry.FolderPath
	if !strings.EqualFold(requested, entry.FolderPath) {
		var err error
		target, err = UniqueFolderPath(requested)
		if err != nil {
			return err
		}
	}

	if !strings.EqualFold(target, entry.FolderPath) {
		if err := os.Rename(entry.FolderPath, target); err != nil {
			return fmt.Errorf("failed to move video folder: %w", err)
		}
		entry.FolderPath = target
		entry.VideoPath = filepath.Join(target, entry.VideoFileName)
	}

	entry.VideoName = trimmed
	return SaveMetadata(entry)
}

// RenameFile renames both the entry's folder and its media file to the given
// slug, keeping the media extension. Used by the batch rename flow where an
// AI-generated title replaces the raw camera filename.
func RenameFile(entry *Entry, slugName string) error {
	slugName = strings.TrimSpace(slugName)
	if slugName == "" {
		return fmt.Errorf("slug cannot be empty")
	}

	ext := filepath.Ext(entry.VideoFileName)
	newFileName := slugName + ext
	oldPath := filepath.Join(entry.FolderPath, entry.VideoFileName)
	newPath := filepath.Join(entry.FolderPath, newFileName)

	if !strings.EqualFold(oldPath, newPath) {
		if err := os.Rename(oldPath, newPath); err != nil {
			return fmt.Errorf("failed to rename media file: %w", err)
		}
	}
	entry.VideoFileName = newFileName
	entry.VideoPath = newPath

	return Rename(entry, slugName)
}

// Delete removes the entry's folder and everything in it. Deleting a folder
// that is already gone is a no-op.
func Delete(entry *Entry) error {
	if _, err := os.Stat(entry.FolderPath); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(entry.FolderPath); err != nil {
		return fmt.Errorf("failed to delete video folder: %w", err)
	}
	return nil
}

// AddDescription creates the next numbered caption draft for the entry,
// records it in the metadata, and returns its filename. Numbering continues
// from the highest existing description index, so gaps are tolerated.
func AddDescription(entry *Entry) (string, error) {
	next := 0
	for _, name := range entry.DescriptionFiles {
		if idx := descriptionIndex(name); idx > next {
			next = idx
		}
	}
	next++

	fileName := fmt.Sprintf("description-%d.txt", next)
	fullPath := filepath.Join(entry.FolderPath, fileName)
	if err := os.WriteFile(fullPath, nil, 0644); err != nil {
		return "", fmt.Errorf("failed to create description file: %w", err)
	}

	entry.DescriptionFiles = append(entry.DescriptionFiles, fileName)
	sort.Strings(entry.DescriptionFiles)

	if err := SaveMetadata(entry); err != nil {
		return "", err
	}
	return fileName, nil
}

// LoadDescription reads a caption draft. A missing file yields an empty
// string rather than an error.
func LoadDescription(entry *Entry, descriptionFile string) (string, error) {
	data, err := os.ReadFile(filepath.Join(entry.FolderPath, descriptionFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read description: %w", err)
	}
	return string(data), nil
}

// SaveDescription overwrites a caption draft.
func SaveDescription(entry *Entry, descriptionFile, content string) error {
	path := filepath.Join(entry.FolderPath, descriptionFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write description: %w", err)
	}
	return nil
}

// AddTags appends tags not already present (case-insensitive) and
// re-persists the metadata.
func AddTags(entry *Entry, tags []string) error {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || entry.HasTag(tag) {
			continue
		}
		entry.Tags = append(entry.Tags, tag)
	}
	return SaveMetadata(entry)
}

// RemoveTags drops the named tags (case-insensitive) and re-persists the
// metadata.
func RemoveTags(entry *Entry, tags []string) error {
	remove := func(tag string) bool {
		for _, t := range tags {
			if strings.EqualFold(t, tag) {
				return true
			}
		}
		return false
	}

	kept := entry.Tags[:0]
	for _, tag := range entry.Tags {
		if !remove(tag) {
			kept = append(kept, tag)
		}
	}
	entry.Tags = kept
	return SaveMetadata(entry)
}

// LoadCommonHashtags reads the legacy flat hashtag list at the storage root.
// Missing or malformed files yield an empty list.
func LoadCommonHashtags(storageFolder string) []string {
	data, err := os.ReadFile(filepath.Join(storageFolder, CommonHashtagsFileName))
	if err != nil {
		return nil
	}

	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		slog.Warn("corrupt common hashtags, using empty list", "folder", storageFolder, "error", err)
		return nil
	}
	return normalizeTagList(tags)
}

// SaveCommonHashtags writes the legacy flat hashtag list, deduplicated and
// sorted, overwriting the whole file.
func SaveCommonHashtags(storageFolder string, hashtags []string) error {
	if err := os.MkdirAll(storageFolder, 0755); err != nil {
		return fmt.Errorf("failed to create storage folder: %w", err)
	}

	data, err := json.MarshalIndent(normalizeTagList(hashtags), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal hashtags: %w", err)
	}

	path := filepath.Join(storageFolder, CommonHashtagsFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write hashtags: %w", err)
	}
	return nil
}

// ResolveVideoPath returns the media path for a clip folder. The declared
// file name wins when it exists; otherwise the first file with a supported
// extension is used, falling back to the declared path when the folder holds
// no media at all.
func ResolveVideoPath(folder, videoFileName string) string {
	preferred := filepath.Join(folder, videoFileName)
	if _, err := os.Stat(preferred); err == nil {
		return preferred
	}

	files, err := os.ReadDir(folder)
	if err != nil {
		return preferred
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if !f.IsDir() && IsSupportedExtension(filepath.Ext(f.Name())) {
			names = append(names, f.Name())
		}
	}
	if len(names) == 0 {
		return preferred
	}
	sort.Strings(names)
	return filepath.Join(folder, names[0])
}

// SortEntries orders entries by video name, case-insensitively.
func SortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].VideoName) < strings.ToLower(entries[j].VideoName)
	})
}

// SanitizeFolderName maps a display name onto a filesystem-safe folder name.
// Runs of invalid path characters collapse into a single underscore.
func SanitizeFolderName(name string) string {
	isInvalid := func(r rune) bool {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return true
		}
		return r < 0x20
	}

	parts := strings.FieldsFunc(strings.TrimSpace(name), isInvalid)
	return strings.Join(parts, "_")
}

// UniqueFolderPath returns basePath if free, else the first basePath-N that
// is. The search is bounded so a pathological directory cannot loop forever.
func UniqueFolderPath(basePath string) (string, error) {
	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		return basePath, nil
	}

	for i := 1; i < maxFolderSuffixAttempts; i++ {
		candidate := basePath + "-" + strconv.Itoa(i)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unable to find a free folder name for %q", basePath)
}

// normalizeTagList trims, drops blanks, deduplicates case-insensitively
// (first spelling wins), and sorts.
func normalizeTagList(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func descriptionIndex(fileName string) int {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	parts := strings.Split(name, "-")
	if len(parts) < 2 {
		return 0
	}
	n, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return n
}
