package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vonshlovens/clipkeep/internal/config"
	"github.com/vonshlovens/clipkeep/internal/hashtag"
	"github.com/vonshlovens/clipkeep/internal/importer"
	"github.com/vonshlovens/clipkeep/internal/library"
	"github.com/vonshlovens/clipkeep/internal/schedule"
	"github.com/vonshlovens/clipkeep/internal/watcher"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "clipkeep",
		Short:   "Organize short-form video clips for social posting",
		Long:    `A CLI that imports video clips into a content-addressed library, manages captions and hashtags, and builds a posting schedule exportable as Publer CSV.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		initCmd(),
		importCmd(),
		archiveCmd(),
		watchCmd(),
		listCmd(),
		statusCmd(),
		renameCmd(),
		renameAllCmd(),
		deleteCmd(),
		markCmd(),
		tagCmd(),
		describeCmd(),
		freshenCmd(),
		hashtagsCmd(),
		scheduleCmd(),
		exportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// findEntry resolves a video by display name, case-insensitively.
func findEntry(storageFolder, name string) (*library.Entry, error) {
	entries, err := library.LoadFromStorage(storageFolder)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if strings.EqualFold(entry.VideoName, name) {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("video not found: %s", name)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive setup to create the config file",
		Long:  `Interactively creates a configuration file in the user config directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)

			fmt.Println("=== Clipkeep Setup ===")
			fmt.Println()

			fmt.Print("Storage folder (the video library): ")
			storageFolder, _ := reader.ReadString('\n')
			storageFolder = strings.TrimSpace(storageFolder)
			if storageFolder == "" {
				return fmt.Errorf("storage folder is required")
			}

			fmt.Print("Source folder for new clips (optional): ")
			sourceFolder, _ := reader.ReadString('\n')
			sourceFolder = strings.TrimSpace(sourceFolder)

			fmt.Print("OpenAI model [gpt-4o-mini]: ")
			model, _ := reader.ReadString('\n')
			model = strings.TrimSpace(model)
			if model == "" {
				model = "gpt-4o-mini"
			}

			starter := config.DefaultConfig()
			starter.StorageFolder = storageFolder
			starter.SourceFolder = sourceFolder
			starter.OpenAI.Model = model

			doc := map[string]any{
				"storage_folder": starter.StorageFolder,
				"source_folder":  starter.SourceFolder,
				"import": map[string]any{
					"ignore_patterns": starter.Import.IgnorePatterns,
				},
				"watch": map[string]any{
					"debounce_ms": starter.Watch.DebounceMs,
				},
				"openai": map[string]any{
					"model": starter.OpenAI.Model,
				},
			}
			content, err := yaml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}

			configDir := config.GetConfigDir()
			if err := os.MkdirAll(configDir, 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			configPath := filepath.Join(configDir, "config.yaml")
			if err := os.WriteFile(configPath, content, 0600); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			fmt.Printf("\nConfig file written to: %s\n", configPath)
			fmt.Println("\nSet OPENAI_API_KEY to enable caption freshening and rename-all.")
			fmt.Println("To import clips, run: clipkeep import")
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [source-folder]",
		Short: "Import new videos from the source folder",
		Long:  `Copies every supported video from the source folder into the library, skipping content-identical duplicates.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			source := cfg.SourceFolder
			if len(args) == 1 {
				source = config.ExpandPath(args[0])
			}
			if source == "" {
				return fmt.Errorf("no source folder: pass one as an argument or set source_folder in the config")
			}

			result, err := importer.Import(source, cfg.StorageFolder, cfg.Import.IgnorePatterns)
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d video(s), skipped %d duplicate(s).\n",
				len(result.Imported), result.Duplicates)
			for _, entry := range result.Imported {
				fmt.Printf("  + %s\n", entry.VideoName)
			}
			return nil
		},
	}
}

func archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <archive-folder>",
		Short: "Import reels from an Instagram data export",
		Long:  `Scans an unpacked Instagram data export for reel media and imports each video with its original caption and post date. Videos already in the library are merged: the oldest known post date wins.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			result, err := importer.ImportInstagramArchive(config.ExpandPath(args[0]), cfg.StorageFolder)
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d video(s), merged %d duplicate(s).\n",
				len(result.Imported), result.Duplicates)
			for _, entry := range result.Imported {
				fmt.Printf("  + %s\n", entry.VideoName)
			}
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the source folder and import arrivals",
		Long:  `Watches the source folder and runs an import pass whenever new video files settle. Imports are idempotent, so partially observed batches are safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.SourceFolder == "" {
				return fmt.Errorf("watch requires source_folder in the config")
			}

			w, err := watcher.New(cfg.SourceFolder, cfg.Watch.DebounceMs, cfg.Import.IgnorePatterns)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			fmt.Println("Watching for new clips. Press Ctrl+C to stop.")

			for {
				select {
				case <-sigCh:
					slog.Info("shutting down")
					w.Stop()
					return nil

				case arrival := <-w.Arrivals():
					slog.Debug("media settled", "file", arrival.Name)
					result, err := importer.Import(cfg.SourceFolder, cfg.StorageFolder, cfg.Import.IgnorePatterns)
					if err != nil {
						slog.Error("import failed", "error", err)
						continue
					}
					for _, entry := range result.Imported {
						fmt.Printf("Imported %s\n", entry.VideoName)
					}
				}
			}
		},
	}
}

func listCmd() *cobra.Command {
	var readyOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the videos in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			entries, err := library.LoadFromStorage(cfg.StorageFolder)
			if err != nil {
				return err
			}

			for _, entry := range entries {
				if readyOnly && !entry.ReadyForUse {
					continue
				}

				marker := " "
				if entry.ReadyForUse {
					marker = "*"
				}
				posted := "never"
				if entry.LastPostDate != nil && !entry.LastPostDate.IsZero() {
					posted = entry.LastPostDate.Format("2006-01-02")
				}
				line := fmt.Sprintf("%s %-40s  %-6s  posted %s", marker, entry.VideoName, entry.PerformanceLevel, posted)
				if len(entry.Tags) > 0 {
					line += "  [" + strings.Join(entry.Tags, ", ") + "]"
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&readyOnly, "ready", false, "only show videos marked ready for use")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show library and schedule summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			entries, err := library.LoadFromStorage(cfg.StorageFolder)
			if err != nil {
				return err
			}

			ready := 0
			posted := 0
			for _, entry := range entries {
				if entry.ReadyForUse {
					ready++
				}
				if entry.LastPostDate != nil && !entry.LastPostDate.IsZero() {
					posted++
				}
			}

			posts := schedule.LoadSchedule(cfg.StorageFolder)
			upcoming := 0
			now := time.Now()
			for _, post := range posts {
				if post.ScheduledAt.After(now) {
					upcoming++
				}
			}

			rules := hashtag.LoadRules(cfg.StorageFolder)

			fmt.Println("=== Clipkeep Status ===")
			fmt.Printf("Storage Folder: %s\n", cfg.StorageFolder)
			if cfg.SourceFolder != "" {
				fmt.Printf("Source Folder: %s\n", cfg.SourceFolder)
			}
			fmt.Println()
			fmt.Printf("Videos: %d (%d ready, %d posted before)\n", len(entries), ready, posted)
			fmt.Printf("Scheduled Posts: %d (%d upcoming)\n", len(posts), upcoming)
			fmt.Printf("Hashtag Tiers: %d core, %d niche, %d test\n",
				len(rules.CoreHashtags), len(rules.NicheHashtags), len(rules.TestHashtags))
			return nil
		},
	}
}
