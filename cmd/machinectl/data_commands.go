package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"machine-service-backend/internal/backup"
	"machine-service-backend/internal/export"
	"machine-service-backend/internal/parse"
)

// rangeFlags registers --start and --end, both defaulting to today.
func rangeFlags(cmd *cobra.Command, start, end *string) {
	cmd.Flags().StringVar(start, "start", "", "First day (YYYY-MM-DD or RFC 3339, default today)")
	cmd.Flags().StringVar(end, "end", "", "Last day, inclusive (YYYY-MM-DD or RFC 3339, default today)")
}

func resolveRange(rawStart, rawEnd string, loc *time.Location) (time.Time, time.Time, error) {
	today := time.Now().In(loc).Format(parse.DateLayout)
	if rawStart == "" {
		rawStart = today
	}
	if rawEnd == "" {
		rawEnd = today
	}
	return parse.DateRange(rawStart, rawEnd, loc)
}

func newCompletedCommand(ctx *commandContext) *cobra.Command {
	var rawStart, rawEnd string

	cmd := &cobra.Command{
		Use:   "completed",
		Short: "List machines that finished service in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				start, end, err := resolveRange(rawStart, rawEnd, s.loc)
				if err != nil {
					return err
				}
				journeys, err := s.engine.CompletedJourneys(cmd.Context(), start, end)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(journeys) == 0 {
					fmt.Fprintln(out, "No machines completed in this range")
					return nil
				}
				fmt.Fprint(out, renderSheet(export.NewFormatter(s.loc).Summary(journeys)))
				return nil
			})
		},
	}
	rangeFlags(cmd, &rawStart, &rawEnd)
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var rawStart, rawEnd, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an Excel report of machines completed in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				start, end, err := resolveRange(rawStart, rawEnd, s.loc)
				if err != nil {
					return err
				}
				journeys, err := s.engine.CompletedJourneys(cmd.Context(), start, end)
				if err != nil {
					return err
				}
				if len(journeys) == 0 {
					return errors.New("no completed machines in this range")
				}

				path := output
				if path == "" {
					path = export.FileName(start, end)
				}
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create report: %w", err)
				}
				if err := export.NewFormatter(s.loc).WriteXLSX(f, journeys); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d machines to %s\n", len(journeys), path)
				return nil
			})
		},
	}
	rangeFlags(cmd, &rawStart, &rawEnd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default Machine_Service_Report_<start>_to_<end>.xlsx)")
	return cmd
}

func newBackupCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write every machine journey to a JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				doc, err := s.engine.ExportDatabase(cmd.Context())
				if err != nil {
					return err
				}

				var w io.Writer = cmd.OutOrStdout()
				path := output
				if path == "" {
					path = fmt.Sprintf("machineServiceDB_backup_%s.json", doc.LastUpdated.In(s.loc).Format(parse.DateLayout))
				}
				if path != "-" {
					f, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("create backup: %w", err)
					}
					defer f.Close()
					w = f
				}
				if err := backup.Encode(w, doc); err != nil {
					return err
				}
				if path != "-" {
					fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d machines to %s\n", len(doc.Machines), path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or - for stdout")
	return cmd
}

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace every machine journey with the contents of a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open backup: %w", err)
			}
			defer f.Close()

			doc, err := backup.Decode(f)
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("restoring replaces all %d current machines' data; rerun with --yes", len(doc.Machines))
			}

			return ctx.withSession(func(s *session) error {
				if err := s.engine.ImportDatabase(cmd.Context(), doc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %d machines from %s\n", len(doc.Machines), args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm replacing the current data")
	return cmd
}
