// Package cmd provides the command-line interface for tadoru.
// It handles flag parsing, configuration loading and runs the crawl engine.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/tadoru/internal/config"
	"github.com/masahif/tadoru/internal/logging"
	"github.com/masahif/tadoru/internal/storage"
	"github.com/masahif/tadoru/pkg/crawler"
)

var (
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// newRootCmd builds the command with its own viper instance.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "tadoru [URL]",
		Short: "A single-host web crawler",
		Long: `tadoru crawls every page reachable from a seed URL, reports each
fetched page and prints the set of discovered URLs.

Pages are fetched one after another with an optional politeness delay.
Excluded URLs are never fetched. Every run can be recorded in SQLite.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile, cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawler(cmd, v, args)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./tadoru.yml)")
	cmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	defaults := config.DefaultConfig()

	// Crawl flags
	cmd.Flags().DurationP("delay", "r", defaults.Delay, "Minimum delay between fetches")
	cmd.Flags().StringSliceP("exclude", "x", nil, "URL to exclude from the crawl (repeatable)")
	cmd.Flags().IntP("limit", "l", defaults.Limit, "Stop after N pages (0=unlimited)")
	cmd.Flags().IntP("concurrency", "c", defaults.Concurrency, "Number of parallel fetchers")
	cmd.Flags().Bool("async", false, "Run the crawl asynchronously and wait on its future")
	cmd.Flags().Bool("respect-robots", defaults.RespectRobots, "Skip paths disallowed by robots.txt")
	cmd.Flags().Bool("follow-external-hosts", defaults.FollowExternalHosts, "Follow links to hosts other than the seed's")

	// HTTP flags
	cmd.Flags().DurationP("timeout", "t", defaults.RequestTimeout, "HTTP request timeout")
	cmd.Flags().StringP("user-agent", "u", defaults.UserAgent, "HTTP User-Agent header")
	cmd.Flags().StringSliceP("header", "H", nil, "Custom HTTP header in 'Name: Value' format (repeatable)")
	cmd.Flags().Int64("max-body-size", defaults.MaxBodySize, "Maximum response body bytes read per page")
	cmd.Flags().String("auth-username", "", "Username for basic authentication")
	cmd.Flags().String("auth-password", "", "Password for basic authentication")
	cmd.Flags().String("auth-token", "", "Bearer token for the Authorization header")

	// Output flags
	cmd.Flags().StringP("database", "d", defaults.DatabasePath, "SQLite database recording each run (empty disables)")
	cmd.Flags().String("log-level", defaults.Log.Level, "Log level: debug, info, warn, error")
	cmd.Flags().String("log-format", defaults.Log.Format, "Log format: json or text")
	cmd.Flags().String("log-file", "", "Also write logs to this file, rotated by size")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"delay", "delay"},
		{"exclude_urls", "exclude"},
		{"limit", "limit"},
		{"concurrency", "concurrency"},
		{"async", "async"},
		{"respect_robots", "respect-robots"},
		{"follow_external_hosts", "follow-external-hosts"},
		{"request_timeout", "timeout"},
		{"user_agent", "user-agent"},
		{"headers", "header"},
		{"max_body_size", "max-body-size"},
		{"auth.basic.username", "auth-username"},
		{"auth.basic.password", "auth-password"},
		{"auth.bearer_token", "auth-token"},
		{"database_path", "database"},
		{"log.level", "log-level"},
		{"log.format", "log-format"},
		{"log.file", "log-file"},
	}

	for _, bind := range bindFlags {
		if err := v.BindPFlag(bind.viperKey, cmd.Flags().Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}

	v.SetDefault("seed_url", "")
	v.SetDefault("log.max_size_mb", defaults.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", defaults.Log.MaxBackups)

	return cmd
}

// initConfig reads in config file and ENV variables if set.
func initConfig(v *viper.Viper, cfgFile string, stderr io.Writer) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("tadoru")
	}

	v.SetEnvPrefix("TADORU")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	fmt.Fprintf(stderr, "Using config file: %s\n", v.ConfigFileUsed())
	return nil
}

// loadConfig merges defaults, config file, environment, flags and the
// positional seed URL.
func loadConfig(v *viper.Viper, args []string) (*config.CrawlConfig, error) {
	cfg := config.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(args) > 0 {
		cfg.SeedURL = args[0]
	}
	return cfg, nil
}

func showCurrentConfig(w io.Writer, cfg *config.CrawlConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current tadoru configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./tadoru.yml\n")
	fmt.Fprintf(w, "# Environment variables prefix: TADORU_\n\n")
	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (TADORU_ prefix)\n")
	fmt.Fprintf(w, "# 3. Configuration file (tadoru.yml)\n")
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}

func runCrawler(cmd *cobra.Command, v *viper.Viper, args []string) error {
	cfg, err := loadConfig(v, args)
	if err != nil {
		return err
	}

	if showConfig, _ := cmd.Flags().GetBool("show-config"); showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:      logging.ParseLevel(cfg.Log.Level),
		Format:     cfg.Log.Format,
		FilePath:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := initializeCrawler(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}
	defer cleanup()

	urls, err := crawl(ctx, engine, cfg)
	printSummary(cmd.OutOrStdout(), urls, engine.Stats())
	if err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	return nil
}

// initializeCrawler wires the engine, its HTTP transport and, when a
// database path is configured, the SQLite recorder.
func initializeCrawler(ctx context.Context, cfg *config.CrawlConfig, logger *slog.Logger) (*crawler.Crawler, func(), error) {
	httpOpts, err := cfg.HTTPClientOptions()
	if err != nil {
		return nil, nil, err
	}
	transport := crawler.NewHTTPClient(cfg.RequestTimeout, httpOpts...)

	opts := []crawler.Option{
		crawler.WithTransport(transport),
		crawler.WithDelay(cfg.Delay),
		crawler.WithExcludeURLs(cfg.ExcludeURLs),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithLimit(cfg.Limit),
		crawler.WithLogger(logger),
	}
	if cfg.RespectRobots {
		opts = append(opts, crawler.WithRobots(cfg.UserAgent))
	}
	if cfg.FollowExternalHosts {
		opts = append(opts, crawler.WithFollowExternalHosts(true))
	}

	actions := []crawler.Action{newPageLogger(logger)}
	cleanup := transport.Close

	if cfg.DatabasePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		recorder := storage.NewRecorder(ctx, store, logger)
		actions = append(actions, recorder)
		opts = append(opts, crawler.WithExitCallback(recorder))
		cleanup = func() {
			transport.Close()
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close database", "error", err)
			}
		}
	}

	return crawler.NewCrawler(chainActions(actions...), opts...), cleanup, nil
}

// crawl runs the engine synchronously or through its future.
func crawl(ctx context.Context, engine *crawler.Crawler, cfg *config.CrawlConfig) ([]string, error) {
	if !cfg.Async {
		return engine.Crawl(ctx, cfg.SeedURL)
	}

	future, err := engine.CrawlAsync(ctx, cfg.SeedURL)
	if err != nil {
		return nil, err
	}
	return future.Get()
}

func printSummary(w io.Writer, urls []string, stats crawler.Stats) {
	for _, u := range urls {
		fmt.Fprintln(w, u)
	}
	fmt.Fprintf(w, "\nDiscovered %d URLs (%d error pages, %d action errors) in %s\n",
		len(urls), stats.ErrorPages, stats.ActionErrors, stats.Duration.Round(time.Millisecond))
}
