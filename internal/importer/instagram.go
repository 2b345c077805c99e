package importer

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/vonshlovens/clipkeep/internal/fingerprint"
	"github.com/vonshlovens/clipkeep/internal/library"
)

// archiveDocument is the slice of an Instagram data export we understand:
// JSON documents listing reel media with a relative URI, a creation
// timestamp, and the original caption as title.
type archiveDocument struct {
	IgReelsMedia []archiveMediaGroup `json:"ig_reels_media"`
	IgOtherMedia []archiveMediaGroup `json:"ig_other_media"`
}

type archiveMediaGroup struct {
	Media []archiveMedia `json:"media"`
	Title string         `json:"title"`
}

type archiveMedia struct {
	URI               string `json:"uri"`
	CreationTimestamp int64  `json:"creation_timestamp"`
	Title             string `json:"title"`
}

// archiveRecord is one resolvable media reference found in the archive.
type archiveRecord struct {
	mediaPath string
	createdAt time.Time
	caption   string
}

// ImportInstagramArchive scans an Instagram data export for reel media and
// imports each referenced video with the same fingerprint dedup as a plain
// import, with one difference: a duplicate whose archive timestamp is
// strictly older than what the library already records overwrites the
// stored entry's last-post date, source creation time, and primary caption.
// The earliest known source timestamp is treated as the true post date.
func ImportInstagramArchive(archiveFolder, storageFolder string) (*Result, error) {
	if info, err := os.Stat(archiveFolder); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("archive folder does not exist: %s", archiveFolder)
	}
	if err := os.MkdirAll(storageFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage folder: %w", err)
	}

	records, err := collectArchiveRecords(archiveFolder)
	if err != nil {
		return nil, err
	}

	index, err := buildFingerprintIndex(storageFolder)
	if err != nil {
		return nil, err
	}

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetDescription("Importing archive"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)

	result := &Result{}
	for _, rec := range records {
		bar.Add(1)

		fp, err := fingerprint.File(rec.mediaPath)
		if err != nil {
			slog.Warn("failed to fingerprint archive media, skipping", "file", rec.mediaPath, "error", err)
			continue
		}

		if existing, ok := index[fp]; ok {
			result.Duplicates++
			if err := mergeArchiveRecord(existing, rec); err != nil {
				slog.Warn("failed to merge archive record", "folder", existing.FolderPath, "error", err)
			}
			continue
		}

		entry, err := importArchiveRecord(rec, storageFolder)
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

// collectArchiveRecords walks the archive for JSON documents in the reel
// media schema and resolves each referenced URI against the archive root.
// Documents in other shapes and unresolvable URIs are skipped.
func collectArchiveRecords(archiveFolder string) ([]*archiveRecord, error) {
	var records []*archiveRecord

	err := filepath.WalkDir(archiveFolder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("unreadable archive document, skipping", "file", path, "error", err)
			return nil
		}

		var doc archiveDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil
		}

		groups := append(doc.IgReelsMedia, doc.IgOtherMedia...)
		for _, group := range groups {
			for _, media := range group.Media {
				if media.URI == "" {
					continue
				}
				mediaPath := filepath.Join(archiveFolder, filepath.FromSlash(media.URI))
				if !library.IsSupportedExtension(filepath.Ext(mediaPath)) {
					continue
				}
				if _, err := os.Stat(mediaPath); err != nil {
					slog.Warn("archive media not found, skipping", "uri", media.URI)
					continue
				}

				caption := media.Title
				if caption == "" {
					caption = group.Title
				}
				records = append(records, &archiveRecord{
					mediaPath: mediaPath,
					createdAt: time.Unix(media.CreationTimestamp, 0).UTC(),
					caption:   caption,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk archive: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].mediaPath < records[j].mediaPath
	})
	return records, nil
}

// importArchiveRecord creates a new library entry for one archive video.
func importArchiveRecord(rec *archiveRecord, storageFolder string) (*library.Entry, error) {
	fileName := filepath.Base(rec.mediaPath)
	name := archiveVideoName(rec.caption, fileName)

	folder, err := newEntryFolder(storageFolder, name)
	if err != nil {
		return nil, err
	}

	targetPath := filepath.Join(folder, fileName)
	if err := copyFile(rec.mediaPath, targetPath); err != nil {
		return nil, fmt.Errorf("failed to copy archive media: %w", err)
	}

	descriptionFile := "description-1.txt"
	if err := os.WriteFile(filepath.Join(folder, descriptionFile), []byte(rec.caption), 0644); err != nil {
		return nil, fmt.Errorf("failed to write description file: %w", err)
	}

	posted := library.NewDate(rec.createdAt)
	created := rec.createdAt
	entry := &library.Entry{
		VideoName:          name,
		VideoFileName:      fileName,
		VideoPath:          targetPath,
		FolderPath:         folder,
		DescriptionFiles:   []string{descriptionFile},
		PerformanceLevel:   library.PerformanceNormal,
		LastPostDate:       &posted,
		SourceCreationTime: &created,
	}
	if err := library.SaveMetadata(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// mergeArchiveRecord applies the earliest-timestamp-wins rule to an entry
// that already holds the same video content.
func mergeArchiveRecord(entry *library.Entry, rec *archiveRecord) error {
	if entry.SourceCreationTime != nil && !rec.createdAt.Before(*entry.SourceCreationTime) {
		return nil
	}

	posted := library.NewDate(rec.createdAt)
	created := rec.createdAt
	entry.LastPostDate = &posted
	entry.SourceCreationTime = &created

	primary := "description-1.txt"
	if len(entry.DescriptionFiles) > 0 {
		sorted := append([]string(nil), entry.DescriptionFiles...)
		sort.Strings(sorted)
		primary = sorted[0]
	} else {
		entry.DescriptionFiles = []string{primary}
	}
	if err := library.SaveDescription(entry, primary, rec.caption); err != nil {
		return err
	}
	return library.SaveMetadata(entry)
}

// archiveVideoName derives a display name from the caption's first line,
// falling back to the media file name.
func archiveVideoName(caption, fileName string) string {
	line := strings.TrimSpace(caption)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if runes := []rune(line); len(runes) > 60 {
		line = strings.TrimSpace(string(runes[:60]))
	}
	if line != "" {
		return line
	}
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}
