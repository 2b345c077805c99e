// Package importer turns raw video files into managed library entries,
// skipping byte-identical duplicates by content fingerprint.
package importer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"

	"github.com/vonshlovens/clipkeep/internal/fingerprint"
	"github.com/vonshlovens/clipkeep/internal/library"
)

// Result is the aggregate outcome of one import batch.
type Result struct {
	Imported   []*library.Entry
	Duplicates int
}

// Import scans the files directly inside sourceFolder and copies every
// supported video that is not already in the library into its own storage
// folder, seeded with an empty first caption draft. Duplicates (by
// fingerprint, including within the same batch) are counted and skipped.
// A missing source folder fails the whole call; an unhashable source file
// only skips that file.
func Import(sourceFolder, storageFolder string, ignorePatterns []string) (*Result, error) {
	if info, err := os.Stat(sourceFolder); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("source folder does not exist: %s", sourceFolder)
	}
	if err := os.MkdirAll(storageFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage folder: %w", err)
	}

	index, err := buildFingerprintIndex(storageFolder)
	if err != nil {
		return nil, err
	}

	files, err := os.ReadDir(sourceFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to read source folder: %w", err)
	}

	var candidates []string
	for _, f := range files {
		if f.IsDir() || !library.IsSupportedExtension(filepath.Ext(f.Name())) {
			continue
		}
		if matchesAny(ignorePatterns, f.Name()) {
			continue
		}
		candidates = append(candidates, f.Name())
	}
	sort.Strings(candidates)

	bar := progressbar.NewOptions(len(candidates),
		progressbar.OptionSetDescription("Importing videos"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)

	result := &Result{}
	for _, name := range candidates {
		bar.Add(1)
		sourcePath := filepath.Join(sourceFolder, name)

		fp, err := fingerprint.File(sourcePath)
		if err != nil {
			slog.Warn("failed to fingerprint source file, skipping", "file", sourcePath, "error", err)
			continue
		}
		if _, exists := index[fp]; exists {
			result.Duplicates++
			continue
		}

		entry, err := copyIntoLibrary(sourcePath, storageFolder)
		if err != nil {
			return nil, err
		}

		result.Imported = append(result.Imported, entry)
		index[fp] = entry
	}
	bar.Finish()

	library.SortEntries(result.Imported)
	return result, nil
}

// copyIntoLibrary creates the storage folder for one new video, copies the
// media file in, seeds the first caption draft, and persists metadata.
func copyIntoLibrary(sourcePath, storageFolder string) (*library.Entry, error) {
	fileName := filepath.Base(sourcePath)
	videoName := fileName[:len(fileName)-len(filepath.Ext(fileName))]

	folder, err := newEntryFolder(storageFolder, videoName)
	if err != nil {
		return nil, err
	}

	targetPath := filepath.Join(folder, fileName)
	if err := copyFile(sourcePath, targetPath); err != nil {
		return nil, fmt.Errorf("failed to copy video: %w", err)
	}

	descriptionFile := "description-1.txt"
	if err := os.WriteFile(filepath.Join(folder, descriptionFile), nil, 0644); err != nil {
		return nil, fmt.Errorf("failed to create description file: %w", err)
	}

	entry := &library.Entry{
		VideoName:        videoName,
		VideoFileName:    fileName,
		VideoPath:        targetPath,
		FolderPath:       folder,
		DescriptionFiles: []string{descriptionFile},
		PerformanceLevel: library.PerformanceNormal,
	}
	if err := library.SaveMetadata(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// newEntryFolder sanitizes a display name into a fresh storage subfolder,
// falling back to a timestamp when nothing survives sanitization.
func newEntryFolder(storageFolder, name string) (string, error) {
	safe := library.SanitizeFolderName(name)
	if safe == "" {
		safe = fmt.Sprintf("video_%d", time.Now().UnixMilli())
	}

	folder, err := library.UniqueFolderPath(filepath.Join(storageFolder, safe))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create video folder: %w", err)
	}
	return folder, nil
}

// buildFingerprintIndex fingerprints the first supported media file in every
// immediate subfolder of the storage root, whether or not that folder holds
// readable metadata. The mapped entry is loaded from metadata when possible
// so archive imports can merge into it; folders without metadata map to a
// stub carrying only the paths. Unreadable media is skipped with a warning
// rather than failing the import.
func buildFingerprintIndex(storageFolder string) (map[string]*library.Entry, error) {
	index := make(map[string]*library.Entry)

	entries, err := library.LoadFromStorage(storageFolder)
	if err != nil {
		return nil, err
	}
	byFolder := make(map[string]*library.Entry, len(entries))
	for _, entry := range entries {
		byFolder[entry.FolderPath] = entry
	}

	dirs, err := os.ReadDir(storageFolder)
	if err != nil {
		if os.IsNotExist(err) {
			return index, nil
		}
		return nil, fmt.Errorf("failed to read storage folder: %w", err)
	}

	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		folder := filepath.Join(storageFolder, d.Name())

		videoPath := firstSupportedFile(folder)
		if videoPath == "" {
			continue
		}
		fp, err := fingerprint.File(videoPath)
		if err != nil {
			slog.Warn("failed to fingerprint library video, skipping", "file", videoPath, "error", err)
			continue
		}

		entry := byFolder[folder]
		if entry == nil {
			entry = &library.Entry{
				VideoName:     d.Name(),
				VideoFileName: filepath.Base(videoPath),
				VideoPath:     videoPath,
				FolderPath:    folder,
			}
		}
		index[fp] = entry
	}
	return index, nil
}

// firstSupportedFile returns the lexically first media file in a folder, or
// empty when the folder holds none.
func firstSupportedFile(folder string) string {
	files, err := os.ReadDir(folder)
	if err != nil {
		return ""
	}

	var names []string
	for _, f := range files {
		if !f.IsDir() && library.IsSupportedExtension(filepath.Ext(f.Name())) {
			names = append(names, f.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(folder, names[0])
}

func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
