package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cmstree/internal/config"
	"cmstree/internal/ctxlog"
	"cmstree/internal/db"
	"cmstree/internal/mpath"
)

// DBFileName is looked for when walking up from the working directory.
const DBFileName = ".cmstree.db"

var (
	dbPath     string
	configPath string
	logLevel   string
	logFormat  string

	// Loaded once per invocation by PersistentPreRunE.
	cfg   *config.Config
	codec *mpath.Codec
)

var rootCmd = &cobra.Command{
	Use:           "cmstree",
	Short:         "Materialized-path page and plugin trees",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to .cmstree.db database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to cmstree.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}

// setup loads the config file, applies flag overrides and installs the logger.
func setup(cmd *cobra.Command) error {
	path, err := config.Discover(configPath)
	if err != nil {
		return err
	}
	cfg = config.Default()
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if codec, err = cfg.Codec(); err != nil {
		return err
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, level)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(ctxlog.WithLogger(ctx, logger))
	if path != "" {
		logger.Debug("config loaded", "path", path)
	}
	return nil
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DiscoverDB finds the database path using priority: env > flag > walk-up
func DiscoverDB() (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv("CMSTREE_DB"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	// 2. CLI flag
	if dbPath != "" {
		if _, err := os.Stat(dbPath); err == nil {
			return dbPath, nil
		}
		return "", fmt.Errorf("database not found at --db path: %s", dbPath)
	}

	// 3. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, DBFileName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	return "", fmt.Errorf("no %s found (set CMSTREE_DB, use --db, or run cmstree init)", DBFileName)
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	return db.OpenDB(path)
}

// ResolveNode finds a node by scope:path, full ID or ID prefix.
func ResolveNode(ctx context.Context, d *db.DB, reference string) (*db.Node, error) {
	// 1. scope:path
	if scope, path, ok := strings.Cut(reference, ":"); ok {
		node, err := d.GetNodeByPath(ctx, scope, path)
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("node not found: %s", reference)
		}
		return node, err
	}

	// 2. Exact ID match
	node, err := d.GetNode(ctx, reference)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	// 3. ID prefix match (≥6 hex/dash chars)
	if len(reference) >= 6 && isHexDash(reference) {
		matches, err := d.SearchByIDPrefix(ctx, strings.ToLower(reference), 10)
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 1:
			return &matches[0], nil
		case 0:
			// fall through to not found
		default:
			lines := make([]string, len(matches))
			for i, m := range matches {
				lines[i] = fmt.Sprintf("  %s %s:%s %s", truncID(m.ID), m.Scope, m.Path, m.Label)
			}
			return nil, fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\nUse a full node ID instead.",
				reference, len(matches), strings.Join(lines, "\n"))
		}
	}

	return nil, fmt.Errorf("node not found: %s", reference)
}

func isHexDash(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '-') {
			return false
		}
	}
	return true
}

func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncLabel(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Find a safe UTF-8 boundary
	truncated := s[:max]
	for len(truncated) > 0 && truncated[len(truncated)-1]>>6 == 2 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "..."
}
