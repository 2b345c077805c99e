// Package hashtag holds the tiered hashtag pool and the rotation engine that
// picks tags for a new post.
package hashtag

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RulesFileName is the per-storage-folder rule document.
const RulesFileName = "hashtag-rules.json"

// RuleSet is the tiered hashtag configuration for one storage folder.
// Two cap schemas exist in the wild: a single MaxTags and the older
// PostMaxTags/ReelMaxTags pair. The in-memory model carries all three and
// the loader reconciles whichever the file provides.
type RuleSet struct {
	CoreHashtags  []string `json:"CoreHashtags"`
	NicheHashtags []string `json:"NicheHashtags"`
	TestHashtags  []string `json:"TestHashtags"`
	CoreCount     int      `json:"CoreCount"`
	NicheCount    int      `json:"NicheCount"`
	TestCount     int      `json:"TestCount"`
	MaxTags       int      `json:"MaxTags"`
	PostMaxTags   int      `json:"PostMaxTags"`
	ReelMaxTags   int      `json:"ReelMaxTags"`
	CooldownDays  int      `json:"CooldownDays"`
}

// DefaultRuleSet mirrors the defaults shipped with earlier revisions.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		CoreCount:    3,
		NicheCount:   5,
		TestCount:    2,
		MaxTags:      12,
		PostMaxTags:  8,
		ReelMaxTags:  12,
		CooldownDays: 7,
	}
}

// CapFor returns the max-tag cap for a post subtype, never below 1.
func (rs *RuleSet) CapFor(subtype string) int {
	limit := rs.PostMaxTags
	if strings.EqualFold(subtype, "reel") {
		limit = rs.ReelMaxTags
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// rawRuleSet uses pointers so the loader can tell absent fields from zeros
// when reconciling the two cap schemas.
type rawRuleSet struct {
	CoreHashtags  []string `json:"CoreHashtags"`
	NicheHashtags []string `json:"NicheHashtags"`
	TestHashtags  []string `json:"TestHashtags"`
	CoreCount     *int     `json:"CoreCount"`
	NicheCount    *int     `json:"NicheCount"`
	TestCount     *int     `json:"TestCount"`
	MaxTags       *int     `json:"MaxTags"`
	PostMaxTags   *int     `json:"PostMaxTags"`
	ReelMaxTags   *int     `json:"ReelMaxTags"`
	CooldownDays  *int     `json:"CooldownDays"`
}

// LoadRules reads the rule document for a storage folder. Missing or
// malformed files yield the defaults; a corrupt rule file must not block the
// rest of the library.
func LoadRules(storageFolder string) *RuleSet {
	data, err := os.ReadFile(filepath.Join(storageFolder, RulesFileName))
	if err != nil {
		return DefaultRuleSet()
	}

	var raw rawRuleSet
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("corrupt hashtag rules, using defaults", "folder", storageFolder, "error", err)
		return DefaultRuleSet()
	}

	defaults := DefaultRuleSet()
	rs := &RuleSet{
		CoreHashtags:  normalizeTier(raw.CoreHashtags),
		NicheHashtags: normalizeTier(raw.NicheHashtags),
		TestHashtags:  normalizeTier(raw.TestHashtags),
		CoreCount:     intOr(raw.CoreCount, defaults.CoreCount),
		NicheCount:    intOr(raw.NicheCount, defaults.NicheCount),
		TestCount:     intOr(raw.TestCount, defaults.TestCount),
		CooldownDays:  intOr(raw.CooldownDays, defaults.CooldownDays),
	}

	switch {
	case raw.PostMaxTags == nil && raw.ReelMaxTags == nil && raw.MaxTags != nil:
		// Newer single-cap schema: the one cap applies to both subtypes.
		rs.MaxTags = *raw.MaxTags
		rs.PostMaxTags = *raw.MaxTags
		rs.ReelMaxTags = *raw.MaxTags
	default:
		rs.PostMaxTags = intOr(raw.PostMaxTags, defaults.PostMaxTags)
		rs.ReelMaxTags = intOr(raw.ReelMaxTags, defaults.ReelMaxTags)
		if raw.MaxTags != nil {
			rs.MaxTags = *raw.MaxTags
		} else {
			rs.MaxTags = max(rs.PostMaxTags, rs.ReelMaxTags)
		}
	}

	rs.clamp()
	return rs
}

// SaveRules writes the whole rule document, tags normalized and sorted.
// Both cap schemas are written so older revisions still read the file.
func SaveRules(storageFolder string, rs *RuleSet) error {
	if err := os.MkdirAll(storageFolder, 0755); err != nil {
		return fmt.Errorf("failed to create storage folder: %w", err)
	}

	rs.CoreHashtags = normalizeTier(rs.CoreHashtags)
	rs.NicheHashtags = normalizeTier(rs.NicheHashtags)
	rs.TestHashtags = normalizeTier(rs.TestHashtags)
	if rs.MaxTags < 1 {
		rs.MaxTags = max(rs.PostMaxTags, rs.ReelMaxTags)
	}
	rs.clamp()

	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal hashtag rules: %w", err)
	}

	path := filepath.Join(storageFolder, RulesFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write hashtag rules: %w", err)
	}
	return nil
}

// tier returns the pool slice for a tier name.
func (rs *RuleSet) tier(name string) (*[]string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "core":
		return &rs.CoreHashtags, nil
	case "niche":
		return &rs.NicheHashtags, nil
	case "test":
		return &rs.TestHashtags, nil
	}
	return nil, fmt.Errorf("unknown hashtag tier %q, want core, niche, or test", name)
}

// AddToTier normalizes and appends tags to a tier pool, skipping ones
// already present case-insensitively. The caller persists with SaveRules.
func AddToTier(rs *RuleSet, tier string, tags []string) error {
	pool, err := rs.tier(tier)
	if err != nil {
		return err
	}
	*pool = normalizeTier(append(*pool, tags...))
	return nil
}

// RemoveFromTier drops the named tags from a tier pool, compared
// case-insensitively and tolerating a missing leading #.
func RemoveFromTier(rs *RuleSet, tier string, tags []string) error {
	pool, err := rs.tier(tier)
	if err != nil {
		return err
	}

	kept := (*pool)[:0]
	for _, existing := range *pool {
		if !containsTag(tags, existing) {
			kept = append(kept, existing)
		}
	}
	*pool = kept
	return nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(Normalize(t), Normalize(tag)) {
			return true
		}
	}
	return false
}

// clamp enforces quota >= 0 and cap >= 1 on every load and save.
func (rs *RuleSet) clamp() {
	if rs.CoreCount < 0 {
		rs.CoreCount = 0
	}
	if rs.NicheCount < 0 {
		rs.NicheCount = 0
	}
	if rs.TestCount < 0 {
		rs.TestCount = 0
	}
	if rs.CooldownDays < 0 {
		rs.CooldownDays = 0
	}
	if rs.MaxTags < 1 {
		rs.MaxTags = 1
	}
	if rs.PostMaxTags < 1 {
		rs.PostMaxTags = 1
	}
	if rs.ReelMaxTags < 1 {
		rs.ReelMaxTags = 1
	}
}

// normalizeTier normalizes, deduplicates case-insensitively, and sorts one
// tier's tag list for persistence.
func normalizeTier(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		n := Normalize(tag)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
