package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/vonshlovens/clipkeep/internal/freshener"
	"github.com/vonshlovens/clipkeep/internal/library"
)

// firstDescriptionFile returns the lexically first caption draft, or empty
// when the entry has none.
func firstDescriptionFile(entry *library.Entry) string {
	if len(entry.DescriptionFiles) == 0 {
		return ""
	}
	sorted := append([]string(nil), entry.DescriptionFiles...)
	sort.Strings(sorted)
	return sorted[0]
}

// primaryCaption loads the first caption draft, falling back to the video
// name when the entry has no drafts.
func primaryCaption(entry *library.Entry) (string, error) {
	file := firstDescriptionFile(entry)
	if file == "" {
		return entry.VideoName, nil
	}
	return library.LoadDescription(entry, file)
}

func renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <video> <new-name>",
		Short: "Rename a video and its folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			entry, err := findEntry(cfg.StorageFolder, args[0])
			if err != nil {
				return err
			}
			if err := library.Rename(entry, args[1]); err != nil {
				return err
			}

			fmt.Printf("Renamed to %s\n", entry.VideoName)
			return nil
		},
	}
}

func renameAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename-all",
		Short: "Rename every video file from an AI-generated title",
		Long:  `Generates a short title from each video's first caption, slugs it, and renames the media file and folder to match. Identical captions share one generated title.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client, err := freshener.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
			if err != nil {
				return err
			}

			entries, err := library.LoadFromStorage(cfg.StorageFolder)
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(len(entries),
				progressbar.OptionSetDescription("Renaming videos"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionClearOnFinish(),
			)

			titleCache := make(map[string]string)
			renamed := 0
			failed := 0
			for _, entry := range entries {
				bar.Add(1)

				caption, err := primaryCaption(entry)
				if err != nil {
					failed++
					continue
				}

				cacheKey := strings.ToLower(strings.TrimSpace(caption))
				title, cached := titleCache[cacheKey]
				if !cached {
					title, err = client.GenerateTitle(ctx, caption)
					if err != nil {
						fmt.Printf("AI title failed for %s: %v\n", entry.VideoName, err)
						failed++
						continue
					}
					if strings.TrimSpace(title) == "" {
						title = entry.VideoName
					}
					titleCache[cacheKey] = title
				}

				name := slug.Make(title)
				if name == "" {
					name = slug.Make(entry.VideoName)
				}
				if name == "" {
					name = fmt.Sprintf("video-%d", time.Now().UnixMilli())
				}

				if err := library.RenameFile(entry, name); err != nil {
					fmt.Printf("Rename failed for %s: %v\n", entry.VideoName, err)
					failed++
					continue
				}
				renamed++
			}
			bar.Finish()

			fmt.Printf("Renamed %d video(s), %d failed.\n", renamed, failed)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <video>",
		Short: "Delete a video and its folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			entry, err := findEntry(cfg.StorageFolder, args[0])
			if err != nil {
				return err
			}
			if err := library.Delete(entry); err != nil {
				return err
			}

			fmt.Printf("Deleted %s\n", entry.VideoName)
			return nil
		},
	}
}

func markCmd() *cobra.Command {
	var (
		performance string
		ready       string
		posted      string
	)

	cmd := &cobra.Command{
		Use:   "mark <video>",
		Short: "Update a video's performance, readiness, or last post date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			entry, err := findEntry(cfg.StorageFolder, args[0])
			if err != nil {
				return err
			}

			if performance != "" {
				entry.PerformanceLevel = library.NormalizePerformance(performance)
			}
			if ready != "" {
				switch strings.ToLower(ready) {
				case "true", "yes":
					entry.ReadyForUse = true
				case "false", "no":
					entry.ReadyForUse = false
				default:
					return fmt.Errorf("--ready must be true or false, got %q", ready)
				}
			}
			if posted != "" {
				t, err := time.Parse("2006-01-02", posted)
				if err != nil {
					return fmt.Errorf("--posted must be yyyy-mm-dd, got %q", posted)
				}
				date := library.NewDate(t)
				entry.LastPostDate = &date
			}

			if err := library.SaveMetadata(entry); err != nil {
				return err
			}
			fmt.Printf("Updated %s\n", entry.VideoName)
			return nil
		},
	}

	cmd.Flags().StringVar(&performance, "performance", "", "performance level: Low, Normal, or High")
	cmd.Flags().StringVar(&ready, "ready", "", "ready for use: true or false")
	cmd.Flags().StringVar(&posted, "posted", "", "last post date as yyyy-mm-dd")
	return cmd
}

func tagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage a video's tags",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <video> <tag>...",
			Short: "Add tags to a video",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}

				entry, err := findEntry(cfg.StorageFolder, args[0])
				if err != nil {
					return err
				}
				if err := library.AddTags(entry, args[1:]); err != nil {
					return err
				}

				fmt.Printf("Tags for %s: %s\n", entry.VideoName, strings.Join(entry.Tags, ", "))
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <video> <tag>...",
			Short: "Remove tags from a video",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}

				entry, err := findEntry(cfg.StorageFolder, args[0])
				if err != nil {
					return err
				}
				if err := library.RemoveTags(entry, args[1:]); err != nil {
					return err
				}

				fmt.Printf("Tags for %s: %s\n", entry.VideoName, strings.Join(entry.Tags, ", "))
				return nil
			},
		},
	)
	return cmd
}

func describeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Manage a video's caption drafts",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <video> [text]",
			Short: "Add a new caption draft",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}

				entry, err := findEntry(cfg.StorageFolder, args[0])
				if err != nil {
					return err
				}

				fileName, err := library.AddDescription(entry)
				if err != nil {
					return err
				}
				if len(args) == 2 {
					if err := library.SaveDescription(entry, fileName, args[1]); err != nil {
						return err
					}
				}

				fmt.Printf("Added %s\n", fileName)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <video> [file]",
			Short: "Print a caption draft",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}

				entry, err := findEntry(cfg.StorageFolder, args[0])
				if err != nil {
					return err
				}

				file := firstDescriptionFile(entry)
				if len(args) == 2 {
					file = args[1]
				}
				if file == "" {
					return fmt.Errorf("%s has no caption drafts", entry.VideoName)
				}

				content, err := library.LoadDescription(entry, file)
				if err != nil {
					return err
				}
				fmt.Println(content)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <video> <file> <text>",
			Short: "Overwrite a caption draft",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}

				entry, err := findEntry(cfg.StorageFolder, args[0])
				if err != nil {
					return err
				}
				if err := library.SaveDescription(entry, args[1], args[2]); err != nil {
					return err
				}

				fmt.Printf("Wrote %s\n", args[1])
				return nil
			},
		},
	)
	return cmd
}

func freshenCmd() *cobra.Command {
	var (
		file    string
		inPlace bool
	)

	cmd := &cobra.Command{
		Use:   "freshen <video>",
		Short: "Rewrite a caption for freshness with AI",
		Long:  `Rewrites a caption draft in the author's voice, using the library's other captions as style samples. The rewrite is validated before anything is written; a failed rewrite never touches the original draft. By default the result becomes a new draft; --in-place overwrites the source draft.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client, err := freshener.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
			if err != nil {
				return err
			}

			entries, err := library.LoadFromStorage(cfg.StorageFolder)
			if err != nil {
				return err
			}

			var entry *library.Entry
			for _, e := range entries {
				if strings.EqualFold(e.VideoName, args[0]) {
					entry = e
					break
				}
			}
			if entry == nil {
				return fmt.Errorf("video not found: %s", args[0])
			}

			if file == "" {
				file = firstDescriptionFile(entry)
			}
			if file == "" {
				return fmt.Errorf("%s has no caption drafts", entry.VideoName)
			}

			original, err := library.LoadDescription(entry, file)
			if err != nil {
				return err
			}

			var samples []string
			for _, other := range entries {
				if other.FolderPath == entry.FolderPath {
					continue
				}
				caption, err := primaryCaption(other)
				if err == nil && strings.TrimSpace(caption) != "" {
					samples = append(samples, caption)
				}
			}

			rewritten, err := client.Refresh(ctx, original, samples)
			if err != nil {
				return fmt.Errorf("caption left unchanged: %w", err)
			}

			target := file
			if !inPlace {
				target, err = library.AddDescription(entry)
				if err != nil {
					return err
				}
			}
			if err := library.SaveDescription(entry, target, rewritten); err != nil {
				return err
			}

			fmt.Printf("Wrote refreshed caption to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "caption draft to refresh (defaults to the first)")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "overwrite the source draft instead of adding a new one")
	return cmd
}
