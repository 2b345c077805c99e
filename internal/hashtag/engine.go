package hashtag

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/vonshlovens/clipkeep/internal/library"
)

// hashtagRegex matches inline hashtags at a word start.
var hashtagRegex = regexp.MustCompile(`(?:^|\s)(#[\p{L}\p{N}_]+)`)

// Scoring weights for the rotation heuristic. A tag earns points for every
// library entry that carries it, weighted by how that entry performed, plus
// a small bonus when the entry posted recently.
const (
	scoreHigh         = 3.0
	scoreNormal       = 1.0
	scoreLow          = 0.25
	recencyBonus      = 0.5
	recencyWindowDays = 14.0
)

// Build selects the hashtag set for a new post. Tiers contribute in fixed
// priority order core -> niche -> test, each up to its quota; the combined
// list is deduplicated case-insensitively (earlier tiers win) and truncated
// to the subtype's cap. Within a tier, tags still inside the cooldown window
// sort after everything else, then by descending performance score, then
// lexically so output is deterministic.
func Build(rs *RuleSet, history []*library.Entry, subtype string, now time.Time) []string {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var selected []string
	selected = appendTier(selected, rs.CoreHashtags, rs.CoreCount, history, rs.CooldownDays, day)
	selected = appendTier(selected, rs.NicheHashtags, rs.NicheCount, history, rs.CooldownDays, day)
	selected = appendTier(selected, rs.TestHashtags, rs.TestCount, history, rs.CooldownDays, day)

	limit := rs.CapFor(subtype)
	seen := make(map[string]bool, len(selected))
	out := make([]string, 0, limit)
	for _, tag := range selected {
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
		if len(out) == limit {
			break
		}
	}
	return out
}

type rankedTag struct {
	tag          string
	score        float64
	recentlyUsed bool
}

func appendTier(selected, pool []string, take int, history []*library.Entry, cooldownDays int, now time.Time) []string {
	if take <= 0 {
		return selected
	}

	seen := make(map[string]bool, len(pool))
	ranked := make([]rankedTag, 0, len(pool))
	for _, raw := range pool {
		tag := Normalize(raw)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		ranked = append(ranked, rankedTag{
			tag:          tag,
			score:        computeScore(tag, history, now),
			recentlyUsed: usedRecently(tag, history, cooldownDays, now),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].recentlyUsed != ranked[j].recentlyUsed {
			return !ranked[i].recentlyUsed
		}
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].tag < ranked[j].tag
	})

	if take > len(ranked) {
		take = len(ranked)
	}
	for _, r := range ranked[:take] {
		selected = append(selected, r.tag)
	}
	return selected
}

func computeScore(tag string, history []*library.Entry, now time.Time) float64 {
	score := 0.0
	for _, entry := range history {
		if !entryHasTag(entry, tag) {
			continue
		}

		switch entry.PerformanceLevel {
		case library.PerformanceHigh:
			score += scoreHigh
		case library.PerformanceNormal:
			score += scoreNormal
		default:
			score += scoreLow
		}

		if entry.LastPostDate != nil && entry.LastPostDate.DaysSince(now) <= recencyWindowDays {
			score += recencyBonus
		}
	}
	return score
}

// usedRecently reports whether the tag appears on any entry posted within
// the cooldown window. Cooldown of zero disables the demotion entirely.
func usedRecently(tag string, history []*library.Entry, cooldownDays int, now time.Time) bool {
	if cooldownDays <= 0 {
		return false
	}

	for _, entry := range history {
		if entry.LastPostDate == nil {
			continue
		}
		if entry.LastPostDate.DaysSince(now) > float64(cooldownDays) {
			continue
		}
		if entryHasTag(entry, tag) {
			return true
		}
	}
	return false
}

func entryHasTag(entry *library.Entry, tag string) bool {
	for _, t := range entry.Tags {
		if strings.EqualFold(Normalize(t), tag) {
			return true
		}
	}
	return false
}

// Normalize trims a tag and guarantees the leading #. Blank input stays
// blank.
func Normalize(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}
	return "#" + trimmed
}

// ExtractFromText returns the normalized, case-insensitively deduplicated
// hashtags found inline in caption text.
func ExtractFromText(text string) []string {
	matches := hashtagRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		tag := Normalize(m[1])
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}
