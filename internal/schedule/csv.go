package schedule

import (
	"sort"
	"strings"
)

// csvHeader is the fixed 12-column header of the Publer bulk-import schema.
// Column order and wording must not change.
var csvHeader = []string{
	"Date - Intl. format or prompt",
	"Text",
	"Link(s) - Separated by comma for FB carousels",
	"Media URL(s) - Separated by comma",
	"Title - For the video, pin, PDF ..",
	"Label(s) - Separated by comma",
	"Alt text(s) - Separated by ||",
	"Comment(s) - Separated by ||",
	"Pin board, FB album, or Google category",
	"Post subtype - I.e. story, reel, PDF ..",
	"CTA - For Facebook links or Google",
	"Reminder - For stories, reels, shorts, and TikToks",
}

// BuildCSV serializes posts into Publer bulk-import CSV. Captions and media
// paths are resolved through the callbacks so the schedule never owns entry
// content. Rows are ordered chronologically regardless of input order.
func BuildCSV(posts []*Post, descriptionResolver, mediaResolver func(*Post) string) string {
	sorted := make([]*Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ScheduledAt.Before(sorted[j].ScheduledAt.Time)
	})

	var sb strings.Builder
	writeRow(&sb, csvHeader)

	for _, post := range sorted {
		writeRow(&sb, []string{
			post.ScheduledAt.Format("2006-01-02 15:04"),
			descriptionResolver(post),
			"",
			mediaResolver(post),
			post.VideoName,
			"",
			"",
			"",
			"",
			post.PostSubtype,
			"",
			"",
		})
	}
	return sb.String()
}

func writeRow(sb *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(escapeField(field))
	}
	sb.WriteByte('\n')
}

// escapeField applies RFC4180 quoting: fields holding a comma, quote, or
// newline are wrapped in quotes with embedded quotes doubled.
func escapeField(value string) string {
	if !strings.ContainsAny(value, ",\"\n\r") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
