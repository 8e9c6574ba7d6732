package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jmarkkanen/foldersync/internal/config"
	"github.com/jmarkkanen/foldersync/internal/remote"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd.
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// CLIContext bundles resolved config and logger. Built once in
// PersistentPreRunE and threaded through the command's context.
type CLIContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Flags  struct {
		ConfigPath string
		JSON       bool
		Quiet      bool
	}
}

type cliContextKey struct{}

// cliContextFrom extracts the CLIContext from the command's context, or
// nil if none was loaded.
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}

	return cc
}

// mustCLIContext extracts the CLIContext or panics — a programmer error,
// since every command in the tree loads config in PersistentPreRunE.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in command context")
	}

	return cc
}

const httpClientTimeout = 30 * time.Second

func defaultHTTPClient(cfg *config.Config) *http.Client {
	timeout := httpClientTimeout
	if cfg.Network.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Network.TimeoutSeconds) * time.Second
	}

	return &http.Client{Timeout: timeout}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".foldersync/config.toml"
	}

	return filepath.Join(home, ".config", "foldersync", "config.toml")
}

func defaultSyncRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./FolderSync"
	}

	return filepath.Join(home, "FolderSync")
}

func defaultCatalogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./foldersync-catalog.db"
	}

	return filepath.Join(home, ".local", "share", "foldersync", "catalog.db")
}

// newRootCmd builds the fully-assembled root command with all subcommands
// registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "foldersync",
		Short:         "Personal cloud file synchronizer",
		Long:          "foldersync keeps a local directory tree in continuous correspondence with a remote folder tree.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func loadConfig(cmd *cobra.Command) error {
	path := flagConfigPath
	if path == "" {
		path = defaultConfigPath()
	}

	cfg, err := config.LoadOrDefault(path, defaultSyncRoot(), defaultCatalogPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	finalLogger := buildLogger(cfg)
	cc := &CLIContext{Cfg: cfg, Logger: finalLogger}
	cc.Flags.ConfigPath = path
	cc.Flags.JSON = flagJSON
	cc.Flags.Quiet = flagQuiet

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger configured by resolved config and CLI
// flags. Pass nil for pre-config bootstrap. CLI flags always win over the
// config file's log level; they are mutually exclusive (enforced by Cobra).
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn

	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelInfo
	}

	if flagDebug {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	format := "auto"
	if cfg != nil && cfg.Logging.Format != "" {
		format = cfg.Logging.Format
	}

	if format == "auto" {
		if isatty.IsTerminal(os.Stderr.Fd()) {
			format = "text"
		} else {
			format = "json"
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// staticBearerToken adapts a fixed token string to remote.TokenSource, for
// use until a real credential manager is wired in. Real deployments supply
// an oauth2.TokenSource-backed implementation instead.
type staticBearerToken string

func (t staticBearerToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", remote.ErrNotAuthenticated
	}

	return string(t), nil
}

func newRemoteClient(cfg *config.Config, logger *slog.Logger) *remote.Client {
	baseURL := cfg.Network.BaseURL
	if baseURL == "" {
		baseURL = remote.DefaultBaseURL
	}

	return remote.NewClient(baseURL, defaultHTTPClient(cfg), resolveTokenSource(logger), logger)
}

// resolveTokenSource picks an OAuth2 refresh-token source when the
// environment supplies a full client/refresh-token set, falling back to a
// single static bearer token (e.g. a long-lived personal access token).
func resolveTokenSource(logger *slog.Logger) remote.TokenSource {
	refreshToken := os.Getenv("FOLDERSYNC_OAUTH_REFRESH_TOKEN")
	clientID := os.Getenv("FOLDERSYNC_OAUTH_CLIENT_ID")
	tokenURL := os.Getenv("FOLDERSYNC_OAUTH_TOKEN_URL")

	if refreshToken != "" && clientID != "" && tokenURL != "" {
		logger.Debug("remote: using oauth2 refresh-token source")

		return remote.NewOAuth2TokenSource(
			context.Background(),
			clientID,
			os.Getenv("FOLDERSYNC_OAUTH_CLIENT_SECRET"),
			tokenURL,
			refreshToken,
		)
	}

	return staticBearerToken(os.Getenv("FOLDERSYNC_BEARER_TOKEN"))
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
