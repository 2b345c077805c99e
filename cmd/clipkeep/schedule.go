package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vonshlovens/clipkeep/internal/library"
	"github.com/vonshlovens/clipkeep/internal/schedule"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage the posting schedule",
	}

	cmd.AddCommand(scheduleAddCmd(), scheduleShowCmd(), scheduleSettingsCmd())
	return cmd
}

func scheduleAddCmd() *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "add <video>...",
		Short: "Schedule videos starting on a day",
		Long:  `Expands each video into dated posts per the schedule settings and appends them to the stored schedule.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			start := time.Now()
			if day != "" {
				start, err = time.Parse("2006-01-02", day)
				if err != nil {
					return fmt.Errorf("--day must be yyyy-mm-dd, got %q", day)
				}
			}

			var selected []*library.Entry
			for _, name := range args {
				entry, err := findEntry(cfg.StorageFolder, name)
				if err != nil {
					return err
				}
				selected = append(selected, entry)
			}

			settings := schedule.LoadSettings(cfg.StorageFolder)
			posts, err := schedule.ScheduleVideos(selected, start, settings)
			if err != nil {
				return err
			}

			all := append(schedule.LoadSchedule(cfg.StorageFolder), posts...)
			if err := schedule.SaveSchedule(cfg.StorageFolder, all); err != nil {
				return err
			}

			fmt.Printf("Scheduled %d post(s) for %d video(s).\n", len(posts), len(selected))
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "first post day as yyyy-mm-dd (defaults to today)")
	return cmd
}

func scheduleShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the schedule in chronological order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			posts := schedule.LoadSchedule(cfg.StorageFolder)
			if len(posts) == 0 {
				fmt.Println("Schedule is empty.")
				return nil
			}

			for _, post := range posts {
				fmt.Printf("%s  %-6s  %s\n",
					post.ScheduledAt.Format("2006-01-02 15:04"), post.PostSubtype, post.VideoName)
			}
			return nil
		},
	}
}

func scheduleSettingsCmd() *cobra.Command {
	var (
		firstTime     string
		repeatTime    string
		firstSubtype  string
		repeatSubtype string
		everyDays     int
		repeatCount   int
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the schedule settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			settings := schedule.LoadSettings(cfg.StorageFolder)

			changed := false
			if cmd.Flags().Changed("first-time") {
				settings.FirstPostTime = firstTime
				changed = true
			}
			if cmd.Flags().Changed("repeat-time") {
				settings.RepeatPostTime = repeatTime
				changed = true
			}
			if cmd.Flags().Changed("first-subtype") {
				settings.FirstPostSubtype = firstSubtype
				changed = true
			}
			if cmd.Flags().Changed("repeat-subtype") {
				settings.RepeatPostSubtype = repeatSubtype
				changed = true
			}
			if cmd.Flags().Changed("every") {
				settings.RepeatEveryDays = everyDays
				changed = true
			}
			if cmd.Flags().Changed("repeats") {
				settings.RepeatCount = repeatCount
				changed = true
			}

			if changed {
				if err := schedule.SaveSettings(cfg.StorageFolder, settings); err != nil {
					return err
				}
			}

			fmt.Printf("First post: %s as %s\n", settings.FirstPostTime, settings.FirstPostSubtype)
			fmt.Printf("Repeats: every %d day(s) at %s as %s\n",
				settings.RepeatEveryDays, settings.RepeatPostTime, settings.RepeatPostSubtype)
			if settings.RepeatCount > 0 {
				fmt.Printf("Repeat count: %d\n", settings.RepeatCount)
			} else {
				fmt.Println("Repeat count: one repeat per video")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&firstTime, "first-time", "", "first post time as HH:mm")
	cmd.Flags().StringVar(&repeatTime, "repeat-time", "", "repeat post time as HH:mm")
	cmd.Flags().StringVar(&firstSubtype, "first-subtype", "", "first post subtype: post or reel")
	cmd.Flags().StringVar(&repeatSubtype, "repeat-subtype", "", "repeat post subtype: post or reel")
	cmd.Flags().IntVar(&everyDays, "every", 0, "days between repeats")
	cmd.Flags().IntVar(&repeatCount, "repeats", 0, "number of repeats per video (0 keeps the two-post cadence)")
	return cmd
}

func exportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the schedule as Publer bulk-import CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			posts := schedule.LoadSchedule(cfg.StorageFolder)
			if len(posts) == 0 {
				return fmt.Errorf("schedule is empty, nothing to export")
			}

			entries, err := library.LoadFromStorage(cfg.StorageFolder)
			if err != nil {
				return err
			}
			byFolder := make(map[string]*library.Entry, len(entries))
			for _, entry := range entries {
				byFolder[entry.FolderPath] = entry
			}

			csv := schedule.BuildCSV(posts,
				func(post *schedule.Post) string {
					entry, ok := byFolder[post.FolderPath]
					if !ok {
						return ""
					}
					caption, err := primaryCaption(entry)
					if err != nil {
						return ""
					}
					return strings.TrimSpace(caption)
				},
				func(post *schedule.Post) string {
					return library.ResolveVideoPath(post.FolderPath, post.VideoFileName)
				},
			)

			if outPath == "" {
				fmt.Print(csv)
				return nil
			}
			if err := os.WriteFile(outPath, []byte(csv), 0644); err != nil {
				return fmt.Errorf("failed to write CSV: %w", err)
			}
			fmt.Printf("Wrote %d post(s) to %s\n", len(posts), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (defaults to stdout)")
	return cmd
}
