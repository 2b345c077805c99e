package schedule

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// SettingsFileName is the per-storage-folder schedule defaults document.
const SettingsFileName = "schedule-settings.json"

// Settings holds the defaults applied when scheduling videos. Two persisted
// shapes exist: the two-post cadence shape (FirstPostTime/RepeatPostTime)
// and the older repeat-count shape (DefaultPostTime/RepeatCount). The
// canonical model carries both cadences; RepeatCount zero selects the
// two-post cadence.
type Settings struct {
	FirstPostTime     string `json:"FirstPostTime"`
	RepeatPostTime    string `json:"RepeatPostTime"`
	FirstPostSubtype  string `json:"FirstPostSubtype"`
	RepeatPostSubtype string `json:"RepeatPostSubtype"`
	RepeatEveryDays   int    `json:"RepeatEveryDays"`
	RepeatCount       int    `json:"RepeatCount"`
}

// DefaultSettings mirrors the defaults of earlier revisions.
func DefaultSettings() *Settings {
	return &Settings{
		FirstPostTime:     "09:00",
		RepeatPostTime:    "18:00",
		FirstPostSubtype:  "post",
		RepeatPostSubtype: "reel",
		RepeatEveryDays:   7,
		RepeatCount:       0,
	}
}

type rawSettings struct {
	FirstPostTime     *string `json:"FirstPostTime"`
	RepeatPostTime    *string `json:"RepeatPostTime"`
	DefaultPostTime   *string `json:"DefaultPostTime"`
	FirstPostSubtype  *string `json:"FirstPostSubtype"`
	RepeatPostSubtype *string `json:"RepeatPostSubtype"`
	RepeatEveryDays   *int    `json:"RepeatEveryDays"`
	RepeatCount       *int    `json:"RepeatCount"`
}

// LoadSettings reads the schedule defaults for a storage folder, accepting
// both persisted shapes. Missing or malformed files yield the defaults.
func LoadSettings(storageFolder string) *Settings {
	data, err := os.ReadFile(filepath.Join(storageFolder, SettingsFileName))
	if err != nil {
		return DefaultSettings()
	}

	var raw rawSettings
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("corrupt schedule settings, using defaults", "folder", storageFolder, "error", err)
		return DefaultSettings()
	}

	s := DefaultSettings()
	// Legacy shape: one DefaultPostTime covers both slots.
	if raw.DefaultPostTime != nil && *raw.DefaultPostTime != "" {
		s.FirstPostTime = *raw.DefaultPostTime
		s.RepeatPostTime = *raw.DefaultPostTime
	}
	if raw.FirstPostTime != nil && *raw.FirstPostTime != "" {
		s.FirstPostTime = *raw.FirstPostTime
	}
	if raw.RepeatPostTime != nil && *raw.RepeatPostTime != "" {
		s.RepeatPostTime = *raw.RepeatPostTime
	}
	if raw.FirstPostSubtype != nil && *raw.FirstPostSubtype != "" {
		s.FirstPostSubtype = *raw.FirstPostSubtype
	}
	if raw.RepeatPostSubtype != nil && *raw.RepeatPostSubtype != "" {
		s.RepeatPostSubtype = *raw.RepeatPostSubtype
	}
	if raw.RepeatEveryDays != nil {
		s.RepeatEveryDays = *raw.RepeatEveryDays
	}
	if raw.RepeatCount != nil {
		s.RepeatCount = *raw.RepeatCount
	}

	if s.RepeatEveryDays < 1 {
		s.RepeatEveryDays = 1
	}
	if s.RepeatCount < 0 {
		s.RepeatCount = 0
	}
	return s
}

// SaveSettings writes the schedule defaults, overwriting the whole file.
func SaveSettings(storageFolder string, s *Settings) error {
	if err := os.MkdirAll(storageFolder, 0755); err != nil {
		return fmt.Errorf("failed to create storage folder: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schedule settings: %w", err)
	}

	path := filepath.Join(storageFolder, SettingsFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write schedule settings: %w", err)
	}
	return nil
}
