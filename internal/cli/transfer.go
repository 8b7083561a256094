package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"patientdesk/internal/codec"
	"patientdesk/internal/service"
	"patientdesk/internal/watcher"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the registry to a .sqlite, .json or .yaml file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeRepo, err := openService(rootOpts.Config, nil)
			if err != nil {
				return err
			}
			defer closeRepo()

			if isDatabaseFile(out) {
				return exportDatabase(cmd, svc, out)
			}
			return exportRoster(cmd, svc, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "patients.sqlite", "output file; the extension picks the format")

	return cmd
}

func exportDatabase(cmd *cobra.Command, svc *service.PatientService, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	n, err := svc.ExportDatabase(cmd.Context(), f)
	if err != nil {
		return err
	}

	slog.Info("database exported", "path", path, "size", humanize.Bytes(uint64(n)))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", path, humanize.Bytes(uint64(n)))
	return nil
}

func exportRoster(cmd *cobra.Command, svc *service.PatientService, path string) (err error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return err
	}

	patients, err := svc.ListPatients(cmd.Context(), "")
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := c.Export(patients, f); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s patients to %s\n", humanize.Comma(int64(len(patients))), path)
	return nil
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		in       string
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a .sqlite database or a .json/.yaml roster",
		Long: `Import patients from a file.

A .sqlite (or .db) file replaces every stored patient. A .json or .yaml
roster is merged by email, or replaces the registry with --strategy replace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeRepo, err := openService(rootOpts.Config, nil)
			if err != nil {
				return err
			}
			defer closeRepo()

			if isDatabaseFile(in) {
				f, err := os.Open(in)
				if err != nil {
					return fmt.Errorf("open %s: %w", in, err)
				}
				defer f.Close()

				stats, err := svc.ImportDatabase(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s patients from %s, skipped %d\n",
					humanize.Comma(int64(stats.Imported)), in, stats.Skipped)
				return nil
			}

			if !cmd.Flags().Changed("strategy") {
				strategy = rootOpts.Config.Roster.Strategy
			}
			s, err := service.ParseStrategy(strategy)
			if err != nil {
				return err
			}

			res, err := watcher.SyncRoster(cmd.Context(), in, s, svc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: created %d, updated %d, unchanged %d, skipped %d, duplicates %d\n",
				res.Strategy, res.Created, res.Updated, res.Unchanged, res.Skipped, res.Duplicates)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "input file; the extension picks the format")
	cmd.Flags().StringVar(&strategy, "strategy", "merge", "roster strategy (merge|replace)")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
