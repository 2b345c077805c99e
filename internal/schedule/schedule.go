// Package schedule builds the posting calendar for selected clips and
// serializes it for the third-party scheduling tool.
package schedule

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vonshlovens/clipkeep/internal/library"
)

// ScheduleFileName is the per-storage-folder schedule document.
const ScheduleFileName = "schedule.json"

// Post is one entry in the posting calendar. FolderPath references the
// library entry by folder path; captions and media are resolved from the
// live entry at export time, never duplicated here.
type Post struct {
	ID              string   `json:"Id"`
	VideoName       string   `json:"VideoName"`
	VideoFileName   string   `json:"VideoFileName"`
	FolderPath      string   `json:"FolderPath"`
	ScheduledAt     FlexTime `json:"ScheduledAt"`
	PostSubtype     string   `json:"PostSubtype"`
	RepeatEveryDays int      `json:"RepeatEveryDays"`
}

// FlexTime is a timestamp that tolerates the zone-less format older schedule
// documents used alongside RFC3339.
type FlexTime struct {
	time.Time
}

var timeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

func (ft FlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Format("2006-01-02T15:04:05"))
}

func (ft *FlexTime) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return nil
	}
	for _, format := range timeFormats {
		if t, err := time.Parse(format, str); err == nil {
			ft.Time = t
			return nil
		}
	}
	return nil
}

// LoadSchedule reads the full schedule for a storage folder. Missing or
// malformed documents yield an empty schedule.
func LoadSchedule(storageFolder string) []*Post {
	data, err := os.ReadFile(filepath.Join(storageFolder, ScheduleFileName))
	if err != nil {
		return nil
	}

	var posts []*Post
	if err := json.Unmarshal(data, &posts); err != nil {
		slog.Warn("corrupt schedule, using empty list", "folder", storageFolder, "error", err)
		return nil
	}
	return posts
}

// SaveSchedule persists the full schedule sorted ascending by time,
// overwriting the whole document.
func SaveSchedule(storageFolder string, posts []*Post) error {
	if err := os.MkdirAll(storageFolder, 0755); err != nil {
		return fmt.Errorf("failed to create storage folder: %w", err)
	}

	sorted := make([]*Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ScheduledAt.Before(sorted[j].ScheduledAt.Time)
	})

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	path := filepath.Join(storageFolder, ScheduleFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write schedule: %w", err)
	}
	return nil
}

// ScheduleVideos expands the selected entries into dated posts starting on
// day. With RepeatCount zero each entry gets the two-post cadence: a first
// post and one repeat RepeatEveryDays later. A positive RepeatCount instead
// emits the first post plus that many repeats spaced RepeatEveryDays apart.
// The returned posts are new; the caller appends them to the stored schedule.
func ScheduleVideos(entries []*library.Entry, day time.Time, settings *Settings) ([]*Post, error) {
	firstTime, err := parseClock(settings.FirstPostTime)
	if err != nil {
		return nil, fmt.Errorf("first post time: %w", err)
	}
	repeatTime, err := parseClock(settings.RepeatPostTime)
	if err != nil {
		return nil, fmt.Errorf("repeat post time: %w", err)
	}
	if settings.RepeatEveryDays <= 0 {
		return nil, fmt.Errorf("repeat interval must be a positive number of days, got %d", settings.RepeatEveryDays)
	}

	base := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	repeats := settings.RepeatCount
	if repeats <= 0 {
		repeats = 1
	}

	var posts []*Post
	for _, entry := range entries {
		posts = append(posts, &Post{
			ID:              uuid.NewString(),
			VideoName:       entry.VideoName,
			VideoFileName:   entry.VideoFileName,
			FolderPath:      entry.FolderPath,
			ScheduledAt:     FlexTime{base.Add(firstTime)},
			PostSubtype:     settings.FirstPostSubtype,
			RepeatEveryDays: settings.RepeatEveryDays,
		})

		for n := 1; n <= repeats; n++ {
			posts = append(posts, &Post{
				ID:              uuid.NewString(),
				VideoName:       entry.VideoName,
				VideoFileName:   entry.VideoFileName,
				FolderPath:      entry.FolderPath,
				ScheduledAt:     FlexTime{base.AddDate(0, 0, n*settings.RepeatEveryDays).Add(repeatTime)},
				PostSubtype:     settings.RepeatPostSubtype,
				RepeatEveryDays: settings.RepeatEveryDays,
			})
		}
	}
	return posts, nil
}

// parseClock parses an HH:mm wall-clock string into an offset from midnight.
func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%q is not a valid HH:mm time", value)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
