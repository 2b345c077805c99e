package hashtag

import (
	"strings"
	"testing"
	"time"

	"github.com/vonshlovens/clipkeep/internal/library"
)

var engineNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func historyEntry(performance string, daysAgo int, tags ...string) *library.Entry {
	e := &library.Entry{
		VideoName:        "clip",
		PerformanceLevel: performance,
		Tags:             tags,
	}
	if daysAgo >= 0 {
		d := library.NewDate(engineNow.AddDate(0, 0, -daysAgo))
		e.LastPostDate = &d
	}
	return e
}

func TestBuild_Deterministic(t *testing.T) {
	rs := &RuleSet{
		CoreHashtags:  []string{"#surf", "#beach", "#ocean"},
		NicheHashtags: []string{"#longboard", "#dawnpatrol"},
		TestHashtags:  []string{"#newtag"},
		CoreCount:     2,
		NicheCount:    2,
		TestCount:     1,
		PostMaxTags:   8,
		ReelMaxTags:   12,
		CooldownDays:  7,
	}
	history := []*library.Entry{
		historyEntry(library.PerformanceHigh, 30, "#surf"),
		historyEntry(library.PerformanceNormal, 20, "#beach", "#longboard"),
	}

	first := Build(rs, history, "post", engineNow)
	second := Build(rs, history, "post", engineNow)

	if strings.Join(first, " ") != strings.Join(second, " ") {
		t.Errorf("repeated calls differ: %v vs %v", first, second)
	}
	if len(first) != 5 {
		t.Errorf("expected 5 tags (2+2+1), got %v", first)
	}
	// Core tier leads, highest score first.
	if first[0] != "#surf" {
		t.Errorf("expected #surf first (High score 3), got %v", first)
	}
}

func TestBuild_CooldownDemotesNotEliminates(t *testing.T) {
	rs := &RuleSet{
		CoreHashtags: []string{"#hot", "#cold"},
		CoreCount:    2,
		PostMaxTags:  8,
		ReelMaxTags:  12,
		CooldownDays: 7,
	}
	// #hot scores far higher but posted 2 days ago; #cold is stale.
	history := []*library.Entry{
		historyEntry(library.PerformanceHigh, 2, "#hot"),
		historyEntry(library.PerformanceHigh, 2, "#hot"),
		historyEntry(library.PerformanceLow, 60, "#cold"),
	}

	got := Build(rs, history, "post", engineNow)
	if len(got) != 2 {
		t.Fatalf("expected both tags selected, got %v", got)
	}
	if got[0] != "#cold" || got[1] != "#hot" {
		t.Errorf("recently-used tag must rank after stale tag regardless of score: %v", got)
	}
}

func TestBuild_CooldownZeroDisablesDemotion(t *testing.T) {
	rs := &RuleSet{
		CoreHashtags: []string{"#hot", "#cold"},
		CoreCount:    2,
		PostMaxTags:  8,
		ReelMaxTags:  12,
		CooldownDays: 0,
	}
	history := []*library.Entry{
		historyEntry(library.PerformanceHigh, 2, "#hot"),
		historyEntry(library.PerformanceLow, 60, "#cold"),
	}

	got := Build(rs, history, "post", engineNow)
	if got[0] != "#hot" {
		t.Errorf("with cooldown disabled the higher score wins: %v", got)
	}
}

func TestBuild_CapAndDedup(t *testing.T) {
	rs := &RuleSet{
		CoreHashtags:  []string{"#a", "#b", "#c"},
		NicheHashtags: []string{"#B", "#d", "#e"},
		TestHashtags:  []string{"#f"},
		CoreCount:     3,
		NicheCount:    3,
		TestCount:     1,
		PostMaxTags:   4,
		ReelMaxTags:   6,
		CooldownDays:  7,
	}

	post := Build(rs, nil, "post", engineNow)
	if len(post) != 4 {
		t.Errorf("post cap not enforced: %v", post)
	}
	reel := Build(rs, nil, "reel", engineNow)
	if len(reel) != 6 {
		t.Errorf("reel cap not enforced: %v", reel)
	}

	seen := map[string]bool{}
	for _, tag := range reel {
		key := strings.ToLower(tag)
		if seen[key] {
			t.Errorf("duplicate tag %q in %v", tag, reel)
		}
		seen[key] = true
	}

	// Core's #b beats niche's #B: earlier append wins.
	joined := strings.Join(post, " ")
	if !strings.Contains(joined, "#b") {
		t.Errorf("expected core spelling of #b in %v", post)
	}
}

func TestBuild_LexicalTieBreak(t *testing.T) {
	rs := &RuleSet{
		CoreHashtags: []string{"#zeta", "#alpha", "#mid"},
		CoreCount:    3,
		PostMaxTags:  8,
		ReelMaxTags:  12,
		CooldownDays: 7,
	}

	// No history: all scores zero, all not recently used.
	got := Build(rs, nil, "post", engineNow)
	want := []string{"#alpha", "#mid", "#zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tie-break order = %v, want %v", got, want)
		}
	}
}

func TestBuild_RecencyBonus(t *testing.T) {
	rs := &RuleSet{
		CoreHashtags: []string{"#fresh", "#stale"},
		CoreCount:    1,
		PostMaxTags:  8,
		ReelMaxTags:  12,
		CooldownDays: 0, // isolate the score bonus from the cooldown demotion
	}
	// Same performance; #fresh posted 10 days ago earns the +0.5 bonus.
	history := []*library.Entry{
		historyEntry(library.PerformanceNormal, 10, "#fresh"),
		historyEntry(library.PerformanceNormal, 30, "#stale"),
	}

	got := Build(rs, history, "post", engineNow)
	if len(got) != 1 || got[0] != "#fresh" {
		t.Errorf("recency bonus should pick #fresh: %v", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"surf", "#surf"},
		{"#surf", "#surf"},
		{"  wave  ", "#wave"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestExtractFromText(t *testing.T) {
	text := "Morning session #surf and #Surf again\nnew line #dawn_patrol but not email@host"
	got := ExtractFromText(text)

	want := []string{"#surf", "#dawn_patrol"}
	if len(got) != len(want) {
		t.Fatalf("ExtractFromText = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExtractFromText = %v, want %v", got, want)
		}
	}
}
