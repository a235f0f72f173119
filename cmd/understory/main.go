package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jward/understory"
	"github.com/jward/understory/internal/config"
	"github.com/jward/understory/internal/lsp"
	"github.com/jward/understory/internal/scan"
	"github.com/spf13/cobra"
)

var (
	flagProject string
	flagConfig  string
	flagFormat  string
	flagDB      string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "understory",
	Short:         "Code intelligence recovered from raw source text",
	Long:          "Understory answers symbol-search and call-hierarchy queries by reading source files directly, preferring a language server when one is configured and falling back to per-language pattern matching when none is.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run func; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", ".", "project root to operate on")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default: .understory.toml in the project root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "snapshot database path (default: .understory/index.db relative to repo root)")
}

// resolveProjectRoot returns the absolute path of the --project directory.
func resolveProjectRoot() (string, error) {
	abs, err := filepath.Abs(flagProject)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", flagProject, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// loadConfig reads the --config file, or the project default when the
// flag is unset.
func loadConfig(projectRoot string) (config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	return config.LoadProject(projectRoot)
}

// newEngine builds an engine for a project from its config file plus any
// flag overrides. The returned cleanup shuts down the provider process if
// one was started; it is safe to call unconditionally.
func newEngine(projectRoot string, extra ...understory.Option) (*understory.Engine, func(), error) {
	cfg, err := loadConfig(projectRoot)
	if err != nil {
		return nil, nil, err
	}

	var opts []understory.Option
	cleanup := func() {}

	if scanOpts, set := scanOptions(cfg.Scan); set {
		opts = append(opts, understory.WithSource(scan.NewWalker(scanOpts)))
	}
	if cfg.Scan.MaxFiles > 0 {
		opts = append(opts, understory.WithMaxIndexFiles(cfg.Scan.MaxFiles))
	}
	if cfg.Scan.IncomingFileCap > 0 {
		opts = append(opts, understory.WithIncomingFileCap(cfg.Scan.IncomingFileCap))
	}
	if ttl := cfg.Cache.TTL(); ttl > 0 {
		opts = append(opts, understory.WithCache(understory.NewSymbolCache(ttl)))
	}

	if cfg.Provider.Command != "" {
		client, err := lsp.Dial(lsp.Config{
			Command:  cfg.Provider.Command,
			Args:     cfg.Provider.Args,
			RootPath: projectRoot,
			Timeout:  cfg.Provider.Timeout(),
		})
		if err != nil {
			// The heuristics work without a provider; report and continue.
			fmt.Fprintf(os.Stderr, "Warning: language server unavailable: %s\n", err)
		} else {
			opts = append(opts, understory.WithProvider(client))
			cleanup = func() { client.Close() }
		}
	}

	opts = append(opts, extra...)
	return understory.NewEngine(opts...), cleanup, nil
}

// scanOptions converts config fields into walker options, reporting
// whether any were set at all.
func scanOptions(s config.Scan) (scan.Options, bool) {
	opts := scan.Options{
		MaxDepth:        understory.DefaultMaxDepth,
		MaxFiles:        understory.DefaultMaxIndexFiles,
		Include:         s.Include,
		Exclude:         s.Exclude,
		IgnoreGitignore: s.IgnoreGitignore,
	}
	if s.MaxDepth > 0 {
		opts.MaxDepth = s.MaxDepth
	}
	if s.MaxFiles > 0 {
		opts.MaxFiles = s.MaxFiles
	}
	set := s.MaxDepth > 0 || s.MaxFiles > 0 || len(s.Include) > 0 ||
		len(s.Exclude) > 0 || s.IgnoreGitignore
	return opts, set
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the snapshot database path from the --db flag or
// the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".understory", "index.db")
}
