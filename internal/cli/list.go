package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"patientdesk/internal/domain"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	Query string
	JSON  bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print stored patients, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeRepo, err := openService(rootOpts.Config, nil)
			if err != nil {
				return err
			}
			defer closeRepo()

			patients, err := svc.ListPatients(cmd.Context(), opts.Query)
			if err != nil {
				return err
			}

			if opts.JSON {
				return writePatientsJSON(cmd.OutOrStdout(), patients)
			}
			return writePatientsTable(cmd.OutOrStdout(), patients)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "filter by name or email")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print JSON instead of a table")

	return cmd
}

func writePatientsJSON(w io.Writer, patients []domain.Patient) error {
	if patients == nil {
		patients = []domain.Patient{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(patients)
}

func writePatientsTable(w io.Writer, patients []domain.Patient) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tADDED")
	for _, p := range patients {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Email, humanize.Time(p.CreatedAt))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s patients\n", humanize.Comma(int64(len(patients))))
	return err
}
