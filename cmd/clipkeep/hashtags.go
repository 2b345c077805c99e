package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vonshlovens/clipkeep/internal/hashtag"
	"github.com/vonshlovens/clipkeep/internal/library"
)

func hashtagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hashtags",
		Short: "Generate hashtags and manage the tiered pools",
	}

	cmd.AddCommand(
		hashtagsGenerateCmd(),
		hashtagsAddCmd(),
		hashtagsRemoveCmd(),
		hashtagsRulesCmd(),
	)
	return cmd
}

func hashtagsGenerateCmd() *cobra.Command {
	var subtype string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate rotated hashtags for the next post",
		Long:  `Picks hashtags from the tiered pools, demoting tags used within the cooldown window and ranking the rest by the performance of clips that carried them. The legacy common-hashtags list supplements the core tier, and hashtags found in existing captions supplement the test tier.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			entries, err := library.LoadFromStorage(cfg.StorageFolder)
			if err != nil {
				return err
			}

			rules := hashtag.LoadRules(cfg.StorageFolder)
			rules.CoreHashtags = append(rules.CoreHashtags, library.LoadCommonHashtags(cfg.StorageFolder)...)
			for _, entry := range entries {
				caption, err := primaryCaption(entry)
				if err != nil {
					continue
				}
				rules.TestHashtags = append(rules.TestHashtags, hashtag.ExtractFromText(caption)...)
			}

			tags := hashtag.Build(rules, entries, subtype, time.Now())
			for _, tag := range tags {
				fmt.Println(tag)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subtype, "subtype", "post", "post subtype: post or reel")
	return cmd
}

func hashtagsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <tier> <tag>...",
		Short: "Add tags to a pool (core, niche, test, or common)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			tier := args[0]
			if strings.EqualFold(tier, "common") {
				tags := append(library.LoadCommonHashtags(cfg.StorageFolder), args[1:]...)
				if err := library.SaveCommonHashtags(cfg.StorageFolder, tags); err != nil {
					return err
				}
				printPool("common", library.LoadCommonHashtags(cfg.StorageFolder))
				return nil
			}

			rules := hashtag.LoadRules(cfg.StorageFolder)
			if err := hashtag.AddToTier(rules, tier, args[1:]); err != nil {
				return err
			}
			if err := hashtag.SaveRules(cfg.StorageFolder, rules); err != nil {
				return err
			}
			printTier(rules, tier)
			return nil
		},
	}
}

func hashtagsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <tier> <tag>...",
		Short: "Remove tags from a pool (core, niche, test, or common)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			tier := args[0]
			if strings.EqualFold(tier, "common") {
				var kept []string
				for _, existing := range library.LoadCommonHashtags(cfg.StorageFolder) {
					if !sameTagIn(args[1:], existing) {
						kept = append(kept, existing)
					}
				}
				if err := library.SaveCommonHashtags(cfg.StorageFolder, kept); err != nil {
					return err
				}
				printPool("common", kept)
				return nil
			}

			rules := hashtag.LoadRules(cfg.StorageFolder)
			if err := hashtag.RemoveFromTier(rules, tier, args[1:]); err != nil {
				return err
			}
			if err := hashtag.SaveRules(cfg.StorageFolder, rules); err != nil {
				return err
			}
			printTier(rules, tier)
			return nil
		},
	}
}

func hashtagsRulesCmd() *cobra.Command {
	var (
		coreCount  int
		nicheCount int
		testCount  int
		maxTags    int
		postMax    int
		reelMax    int
		cooldown   int
	)

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show or change quotas, caps, and cooldown",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			rules := hashtag.LoadRules(cfg.StorageFolder)

			changed := false
			if cmd.Flags().Changed("core-count") {
				rules.CoreCount = coreCount
				changed = true
			}
			if cmd.Flags().Changed("niche-count") {
				rules.NicheCount = nicheCount
				changed = true
			}
			if cmd.Flags().Changed("test-count") {
				rules.TestCount = testCount
				changed = true
			}
			if cmd.Flags().Changed("max") {
				// The single cap applies to both subtypes.
				rules.MaxTags = maxTags
				rules.PostMaxTags = maxTags
				rules.ReelMaxTags = maxTags
				changed = true
			}
			if cmd.Flags().Changed("post-max") {
				rules.PostMaxTags = postMax
				changed = true
			}
			if cmd.Flags().Changed("reel-max") {
				rules.ReelMaxTags = reelMax
				changed = true
			}
			if cmd.Flags().Changed("post-max") || cmd.Flags().Changed("reel-max") {
				rules.MaxTags = max(rules.PostMaxTags, rules.ReelMaxTags)
			}
			if cmd.Flags().Changed("cooldown") {
				rules.CooldownDays = cooldown
				changed = true
			}

			if changed {
				if err := hashtag.SaveRules(cfg.StorageFolder, rules); err != nil {
					return err
				}
			}

			fmt.Printf("Quotas: %d core, %d niche, %d test\n",
				rules.CoreCount, rules.NicheCount, rules.TestCount)
			fmt.Printf("Caps: %d post, %d reel\n", rules.PostMaxTags, rules.ReelMaxTags)
			fmt.Printf("Cooldown: %d day(s)\n", rules.CooldownDays)
			printTier(rules, "core")
			printTier(rules, "niche")
			printTier(rules, "test")
			printPool("common", library.LoadCommonHashtags(cfg.StorageFolder))
			return nil
		},
	}

	cmd.Flags().IntVar(&coreCount, "core-count", 0, "core tier quota")
	cmd.Flags().IntVar(&nicheCount, "niche-count", 0, "niche tier quota")
	cmd.Flags().IntVar(&testCount, "test-count", 0, "test tier quota")
	cmd.Flags().IntVar(&maxTags, "max", 0, "max tags for both subtypes")
	cmd.Flags().IntVar(&postMax, "post-max", 0, "max tags for posts")
	cmd.Flags().IntVar(&reelMax, "reel-max", 0, "max tags for reels")
	cmd.Flags().IntVar(&cooldown, "cooldown", 0, "cooldown window in days (0 disables)")
	return cmd
}

func printTier(rules *hashtag.RuleSet, tier string) {
	switch strings.ToLower(tier) {
	case "core":
		printPool("core", rules.CoreHashtags)
	case "niche":
		printPool("niche", rules.NicheHashtags)
	case "test":
		printPool("test", rules.TestHashtags)
	}
}

func printPool(name string, tags []string) {
	if len(tags) == 0 {
		fmt.Printf("%s: (empty)\n", name)
		return
	}
	fmt.Printf("%s: %s\n", name, strings.Join(tags, " "))
}

// sameTagIn reports whether tag matches any of the given tags,
// case-insensitively and tolerating a missing leading #.
func sameTagIn(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(hashtag.Normalize(t), hashtag.Normalize(tag)) {
			return true
		}
	}
	return false
}
