// Package library implements the folder-per-video storage layout. Each
// immediate subdirectory of a storage folder holds one managed clip: the
// media file, a metadata.json document, and numbered caption drafts.
package library

import (
	"encoding/json"
	"strings"
	"time"
)

// Performance levels recognized in metadata. Stored as free text and
// normalized case-insensitively on every load and save.
const (
	PerformanceLow    = "Low"
	PerformanceNormal = "Normal"
	PerformanceHigh   = "High"
)

// supportedExtensions are the media file extensions the library manages,
// compared case-insensitively.
var supportedExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".mkv": true,
	".wmv": true,
	".m4v": true,
}

// Entry is one managed video clip. JSON field names match the metadata.json
// documents written by earlier revisions of the tool, so existing libraries
// load unchanged. FolderPath and VideoPath are recomputed from the containing
// directory on every load; the persisted values are not trusted.
type Entry struct {
	VideoName          string     `json:"VideoName"`
	VideoFileName      string     `json:"VideoFileName"`
	VideoPath          string     `json:"VideoPath"`
	FolderPath         string     `json:"FolderPath"`
	DescriptionFiles   []string   `json:"DescriptionFiles"`
	PerformanceLevel   string     `json:"PerformanceLevel"`
	Tags               []string   `json:"Tags"`
	LastPostDate       *Date      `json:"LastPostDate,omitempty"`
	ReadyForUse        bool       `json:"ReadyForUse"`
	SourceCreationTime *time.Time `json:"SourceCreationTime,omitempty"`
}

// HasTag reports whether the entry carries the tag, compared
// case-insensitively.
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// IsSupportedExtension reports whether ext (with leading dot) is a managed
// media extension.
func IsSupportedExtension(ext string) bool {
	return supportedExtensions[strings.ToLower(ext)]
}

// NormalizePerformance maps free-text performance values onto the three
// recognized levels. Unrecognized values normalize to Normal.
func NormalizePerformance(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return PerformanceLow
	case "high":
		return PerformanceHigh
	default:
		return PerformanceNormal
	}
}

// Date is a day-granularity timestamp. It marshals as yyyy-mm-dd and accepts
// several historical formats on load without failing on unparseable values.
type Date struct {
	time.Time
}

var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NewDate returns the Date for the day containing t.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	str = strings.TrimSpace(str)
	if str == "" {
		return nil
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, str); err == nil {
			*d = NewDate(t)
			return nil
		}
	}

	// Leave zero rather than failing the whole metadata document.
	return nil
}

// DaysSince returns the whole days elapsed from the date to now.
func (d Date) DaysSince(now time.Time) float64 {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return day.Sub(d.Time).Hours() / 24
}
