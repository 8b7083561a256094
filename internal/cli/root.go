// Package cli wires the patientdesk commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"patientdesk/internal/config"
	"patientdesk/internal/logging"
	"patientdesk/internal/repository/sqlite"
	"patientdesk/internal/service"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DBPath     string
	Addr       string
	LogLevel   string
	LogFormat  string

	// Config is resolved before any subcommand runs
	Config *config.Config
}

// NewRootCommand creates the root command. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "patientdesk",
		Short: "Patient registry admin panel",
		Long: `patientdesk keeps a small patient registry in SQLite and serves an
admin panel to create, edit, delete and export patients.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.Config)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: search "+config.ConfigFileName+" and XDG paths)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path")
	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "", "HTTP listen address")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (text|json)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewConfigCommand())

	return cmd
}

// resolve layers defaults, file, environment and flags, then sets up logging
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if o.ConfigPath != "" {
		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}
		if cfg, path, err = config.LoadFromPath(o.ConfigPath); err != nil {
			return err
		}
		if err := cfg.ApplyEnv(); err != nil {
			return err
		}
	} else if cfg, path, err = config.Load(); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database.Path = o.DBPath
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = o.Addr
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Init(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	if path != "" {
		logger.Debug("config loaded", "path", path)
	}

	o.Config = cfg
	return nil
}

// openService opens the configured database
func openService(cfg *config.Config, bus *service.EventBus) (*service.PatientService, func() error, error) {
	if dir := filepath.Dir(cfg.Database.Path); cfg.Database.Path != sqlite.MemoryPath && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	var opts []sqlite.Option
	if cfg.Database.SnapshotPath != "" {
		opts = append(opts, sqlite.WithSnapshot(cfg.Database.SnapshotPath))
	}

	repo, err := sqlite.New(cfg.Database.Path, opts...)
	if err != nil {
		return nil, nil, err
	}
	return service.NewPatientService(repo, bus), repo.Close, nil
}

// isDatabaseFile reports whether path names a whole-database file rather
// than a roster
func isDatabaseFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite", ".sqlite3", ".db":
		return true
	}
	return false
}
