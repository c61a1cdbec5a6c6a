package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/contre95/snapsaver/src/features/config"
	"github.com/contre95/snapsaver/src/features/hosting"
	"github.com/contre95/snapsaver/src/features/logging"
	"github.com/contre95/snapsaver/src/features/metrics"
	"github.com/contre95/snapsaver/src/features/notifying"
	"github.com/contre95/snapsaver/src/features/resolving"
	"github.com/contre95/snapsaver/src/features/settings"
	"github.com/contre95/snapsaver/src/features/watching"
	"github.com/contre95/snapsaver/src/infra/database"
	"github.com/contre95/snapsaver/src/infra/files"
	"github.com/contre95/snapsaver/src/infra/suppress"
	"github.com/contre95/snapsaver/src/infra/watcher"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snapsaver",
	Short: "Watch a folder for new photos and videos and decide what to do with them",
	Long: `snapsaver watches a folder for newly written images and videos and asks,
through a web page or a Telegram chat, whether each one should be renamed,
copied, moved to the save folder, deleted or left alone.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the watcher, the web UI and the Telegram bot",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgManager, err := config.Load(configPath)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cfgManager.GetYAML())
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change the watch, save and copy folders",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the configured folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(func(ctx context.Context, service *settings.Service) error {
			cfg, err := service.Snapshot(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", settings.KeyWatchPath, cfg.WatchPath)
			fmt.Fprintf(out, "%s: %s\n", settings.KeySavePath, cfg.SavePath)
			fmt.Fprintf(out, "%s: %s\n", settings.KeyCopyPath, cfg.CopyPath)
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <watchPath|savePath|copyPath> [folder]",
	Short: "Set a folder, or clear it when no folder is given",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 2 {
			path = args[1]
		}
		return withSettings(func(ctx context.Context, service *settings.Service) error {
			return service.SetPath(ctx, args[0], path)
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [limit]",
	Short: "Print the last decisions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := 20
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[0], err)
			}
			limit = n
		}
		cfgManager, err := config.Load(configPath)
		if err != nil {
			return err
		}
		db, err := database.NewSqliteStore(cfgManager.Get().Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		records, err := db.ListRecords(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, r := range records {
			status := "ok"
			if r.Failed {
				status = "failed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s %-6s %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Decision, status, r.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")

	configCmd.AddCommand(configShowCmd)
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	rootCmd.AddCommand(serveCmd, configCmd, settingsCmd, historyCmd)
}

// withSettings opens the settings store for one CLI command.
func withSettings(fn func(ctx context.Context, service *settings.Service) error) error {
	cfgManager, err := config.Load(configPath)
	if err != nil {
		return err
	}
	db, err := database.NewSqliteStore(cfgManager.Get().Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), settings.NewService(db))
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfgManager, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := cfgManager.Get()

	// Setup default logger with slog
	slog.SetDefault(logging.SetupLogger(cfgManager))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Settings store and decision history
	db, err := database.NewSqliteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	recorder := metrics.NewRecorder()

	hub := notifying.NewHub(0)
	hub.AddSink(notifying.LogSink())
	defer hub.Close()

	suppressed := suppress.NewSet(cfg.Watcher.SuppressionWindow, nil)
	go suppressed.Run(ctx, cfg.Watcher.SuppressionWindow)

	settingsService := settings.NewService(db)

	// Directory watcher
	events := make(chan watcher.FileEvent)
	watchErrs := make(chan error, 1)
	fileWatcher, err := watcher.NewWatcher(events, watchErrs, watcher.Options{
		StabilityThreshold: cfg.Watcher.StabilityThreshold,
		PollInterval:       cfg.Watcher.PollInterval,
		Ignore:             cfg.Watcher.Ignore,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	watchingService := watching.NewService(fileWatcher, events, watchErrs, suppressed, settingsService, hub, recorder, cfg.Watcher.RetryDelay)
	settingsService.OnChange(watchingService.SettingsChanged)

	// Resolution pipeline
	resolvingService := resolving.NewService(files.NewOrganizer(), suppressed, settingsService, watchingService, hub, db, recorder, func() bool {
		return cfgManager.Get().Naming.Asciify
	})

	go watchingService.Run(ctx)

	// Create and start the Telegram bot if enabled
	if cfg.Telegram.Enabled {
		telegramBot, err := hosting.NewTelegramBot(cfgManager, settingsService, watchingService, resolvingService)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			hub.AddSink(telegramBot)
			go telegramBot.Start()
			defer telegramBot.Stop()
			slog.Info("Telegram bot started")
		}
	}

	// Create and start the HTTP server
	server, err := hosting.NewServer(cfgManager, hub, settingsService, watchingService, resolvingService, recorder)
	if err != nil {
		return err
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()
	slog.Info("SnapSaver started. Press Ctrl+C to shut down.", "port", cfg.Server.Port)

	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server stopped: %w", err)
		}
	}
	// Close streams first so open SSE connections let the server shut down.
	hub.Close()
	if err := server.Shutdown(); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}
	return nil
}
