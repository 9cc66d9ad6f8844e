package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/config"
	"github.com/TobiSchelling/Polarify/internal/database"
	"github.com/TobiSchelling/Polarify/internal/logging"
	"github.com/TobiSchelling/Polarify/internal/results"
	"github.com/TobiSchelling/Polarify/internal/session"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "polarify",
	Short:        "Sentiment analysis client",
	Long:         "Polarify manages sentiment-analysis projects, submits feedback for scoring and browses the analysis history.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(os.Stderr, slog.LevelInfo, verbose)

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level, err := logging.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return err
		}
		if verbose {
			level = slog.LevelDebug
		}
		logging.Init(os.Stderr, level, verbose)
		slog.Debug("config loaded", "path", path, "api", cfg.API.BaseURL)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(journalCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("polarify", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/polarify/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at your backend and to add scheduled imports.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and local journal status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Backend: %s\n", a.client.BaseURL())
		if u := a.session.User(); u != nil {
			fmt.Printf("Signed in as: %s <%s>\n", u.Username, u.Email)
		} else if a.session.LoggedIn() {
			fmt.Println("Signed in (run 'polarify login' to refresh the profile)")
		} else {
			fmt.Println("Not signed in")
		}
		fmt.Printf("Database: %s\n", a.db.Path())
		fmt.Println("\nJournal:")
		fmt.Printf("  Submissions: %d\n", stats.Submissions)
		fmt.Printf("  Failed: %d\n", stats.Failed)
		fmt.Printf("  Opinions sent: %d\n", stats.Opinions)
		fmt.Printf("  Projects: %d\n", stats.Projects)
		return nil
	},
}

// app bundles what every backend-facing command needs.
type app struct {
	db      *database.DB
	session *session.Session
	client  *api.Client
}

func openApp() (*app, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := database.Open(filepath.Join(dataDir, "polarify.db"))
	if err != nil {
		return nil, err
	}
	sess := session.New(db)
	client := api.New(cfg.API.BaseURL, sess, api.WithTimeout(cfg.API.Timeout))
	return &app{db: db, session: sess, client: client}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// requireLogin fails early instead of letting the backend answer 401.
func (a *app) requireLogin() error {
	if !a.session.LoggedIn() {
		return fmt.Errorf("not signed in: run 'polarify login' first")
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// window fills the analysis period from flags or the configured default.
func window(projectID, from, to string) api.Window {
	defFrom, defTo := cfg.DefaultWindow(time.Now())
	if from == "" {
		from = defFrom
	}
	if to == "" {
		to = defTo
	}
	return api.Window{ProjectID: results.ID(projectID), DateFrom: from, DateTo: to}
}
