package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/regsweep/regsweep/backup"
	"github.com/regsweep/regsweep/clean"
	"github.com/regsweep/regsweep/escalate"
	"github.com/regsweep/regsweep/internal/config"
	"github.com/regsweep/regsweep/probe"
	"github.com/regsweep/regsweep/scan"
	"github.com/regsweep/regsweep/winreg"
)

var (
	// Global flags
	configPath string
	verbose    bool
	quiet      bool
	jsonOut    bool
)

var rootCmd = &cobra.Command{
	Use:   "regsweep",
	Short: "Scan the Windows registry for debris and clean it safely",
	Long: `regsweep scans the live Windows registry for leftover uninstall
entries, broken startup commands, orphaned file extensions and other debris,
and removes selected findings behind a .reg backup that can be restored.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the regsweep TOML config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	base := os.Getenv("LOCALAPPDATA")
	if base == "" {
		base, _ = os.UserConfigDir()
	}
	return filepath.Join(base, "regsweep", "regsweep.toml")
}

// env bundles everything a subcommand needs, built once per invocation.
type env struct {
	cfg     config.Config
	log     zerolog.Logger
	runner  *scan.Runner
	backups *backup.Manager
	cleaner *clean.Orchestrator
}

func buildEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg.LogLevel)
	reg := winreg.Live{}

	runner := scan.NewDefaultRunner(scan.Deps{
		Registry: reg,
		Files:    probe.FS{},
		Services: probe.SCM{},
		Log:      log,
	})
	cats, err := cfg.EnabledCategories()
	if err != nil {
		return nil, err
	}
	runner.EnableOnly(cats...)
	runner.SkipPrefixes(cfg.Scanning.SkipKeys...)

	backups := backup.NewManager(cfg.Backup.Dir, reg, log)
	chain := escalate.NewChain(escalate.NewPrivileges(), reg, log)
	cleaner := clean.New(reg, backups, chain, log)
	cleaner.SetRetention(cfg.Backup.Retention)

	return &env{
		cfg:     cfg,
		log:     log,
		runner:  runner,
		backups: backups,
		cleaner: cleaner,
	}, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	if quiet {
		lvl = zerolog.ErrorLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
