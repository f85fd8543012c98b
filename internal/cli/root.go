package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fxjournal/internal/assets"
	"fxjournal/internal/config"
	"fxjournal/internal/journal"
	"fxjournal/internal/leaderboard"
	"fxjournal/internal/logging"
	"fxjournal/internal/models"
	"fxjournal/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// localUser is the partition CLI commands operate on when no --user flag is
// given. Single-user installs never need anything else.
const localUser = "local"

// App holds the application dependencies.
type App struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Store       store.TradeStore
	Service     *journal.Service
	Leaderboard *leaderboard.Aggregator
	Blob        assets.BlobStore
}

// principal returns the acting principal for a command invocation. The CLI
// always acts directly on the chosen partition.
func (a *App) principal(cmd *cobra.Command) journal.Principal {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = localUser
	}
	return journal.Principal{UID: user, Role: models.RoleUser}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "fxjournal",
		Short: "FX Journal - trading journal backend and CLI",
		Long: `FX Journal records planned trades, execution outcomes and derived
performance analytics.

Run 'fxjournal serve' to expose the HTTP API, or use the journal commands
directly against the local database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return app.initDependencies()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Store != nil {
				_ = app.Store.Close()
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/fxjournal)")
	rootCmd.PersistentFlags().String("user", localUser, "user partition to operate on")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	addJournalCommands(rootCmd, app)

	return rootCmd
}

// initDependencies builds the store, promoter and service from config.
func (a *App) initDependencies() error {
	if a.Store != nil {
		return nil
	}

	var (
		s   store.TradeStore
		err error
	)
	switch a.Config.Store.Backend {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		s, err = store.NewMongoStore(ctx, a.Config.Store.MongoURI, a.Config.Store.Database)
		cancel()
	default:
		s, err = store.NewSQLiteStore(a.Config.Store.SQLitePath)
	}
	if err != nil {
		return err
	}
	a.Store = s
	a.Logger.Debug().Str("backend", a.Config.Store.Backend).Msg("Store initialized")

	var promoter *assets.Promoter
	if a.Config.BlobConfigured() {
		blob, err := assets.NewMinioStore(assets.MinioOptions{
			Endpoint:  a.Config.Blob.Endpoint,
			AccessKey: a.Config.Blob.AccessKey,
			SecretKey: a.Config.Blob.SecretKey,
			Bucket:    a.Config.Blob.Bucket,
			UseSSL:    a.Config.Blob.UseSSL,
			BaseURL:   a.Config.Blob.BaseURL,
		})
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Blob store unavailable, image handling disabled")
		} else {
			a.Blob = blob
			promoter = assets.NewPromoter(blob, a.Logger)
			a.Logger.Debug().Msg("Blob store initialized")
		}
	}

	a.Service = journal.NewService(a.Store, promoter, a.Logger)
	a.Leaderboard = leaderboard.NewAggregator(a.Store, a.Config.Leaderboard.MinTrades, a.Config.Leaderboard.RecentLimit)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("FX Journal v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Server")
	output.Printf("  Address:      %s\n", cfg.Addr())
	output.Println()

	output.Bold("Store")
	output.Printf("  Backend:      %s\n", cfg.Store.Backend)
	if cfg.Store.Backend == "mongo" {
		output.Printf("  Database:     %s\n", cfg.Store.Database)
	} else {
		output.Printf("  Path:         %s\n", cfg.Store.SQLitePath)
	}
	output.Println()

	output.Bold("Blob storage")
	if cfg.BlobConfigured() {
		output.Printf("  Endpoint:     %s\n", cfg.Blob.Endpoint)
		output.Printf("  Bucket:       %s\n", cfg.Blob.Bucket)
	} else {
		output.Printf("  Not configured\n")
	}
	output.Println()

	output.Bold("Leaderboard")
	output.Printf("  Min trades:   %d\n", cfg.Leaderboard.MinTrades)
	output.Printf("  Recent limit: %d\n", cfg.Leaderboard.RecentLimit)
}
