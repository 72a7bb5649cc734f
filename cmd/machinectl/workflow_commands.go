package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"machine-service-backend/internal/export"
	"machine-service-backend/internal/model"
	"machine-service-backend/internal/parse"
	"machine-service-backend/internal/station"
	"machine-service-backend/internal/workflow"
)

const clockLayout = "15:04:05"

func stationArg(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !station.Valid(n) {
		return 0, fmt.Errorf("invalid workstation %q: expected 1-%d", raw, station.Count)
	}
	return n, nil
}

func waitFromMillis(ms *int64) *time.Duration {
	if ms == nil {
		return nil
	}
	d := time.Duration(*ms) * time.Millisecond
	return &d
}

func newCheckInCommand(ctx *commandContext) *cobra.Command {
	var operatorEPF string
	var skipSequence bool

	cmd := &cobra.Command{
		Use:   "checkin <station> <barcode>",
		Short: "Check a machine in to a workstation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := stationArg(args[0])
			if err != nil {
				return err
			}
			barcode, err := parse.Barcode(args[1])
			if err != nil {
				return err
			}
			if strings.TrimSpace(operatorEPF) == "" {
				return errors.New("--operator is required")
			}

			return ctx.withSession(func(s *session) error {
				c := cmd.Context()
				op, err := s.operators.Get(c, operatorEPF)
				if err != nil {
					return err
				}
				if !skipSequence {
					journey, err := s.engine.Journey(c, barcode)
					if err != nil && !errors.Is(err, workflow.ErrNotFound) {
						return err
					}
					if err := workflow.RequirePredecessor(barcode, journey, ws); err != nil {
						return err
					}
				}

				res, err := s.engine.CheckIn(c, barcode, ws, op.Ref())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Machine %s checked in to workstation %d (%s) by %s\n", barcode, ws, station.Name(ws), op.Name)
				if res.IsNew {
					fmt.Fprintln(out, "New machine registered")
				}
				fmt.Fprintf(out, "Estimated wait: %s\n", export.FormatWait(waitFromMillis(res.WaitTime)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&operatorEPF, "operator", "", "EPF number of the operator performing the check-in")
	cmd.Flags().BoolVar(&skipSequence, "skip-sequence", false, "Allow check-in without the previous workstation completed")
	return cmd
}

func newCheckOutCommand(ctx *commandContext) *cobra.Command {
	var tasks []string
	var allTasks bool

	cmd := &cobra.Command{
		Use:   "checkout <station> <barcode>",
		Short: "Check a machine out of a workstation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := stationArg(args[0])
			if err != nil {
				return err
			}
			barcode, err := parse.Barcode(args[1])
			if err != nil {
				return err
			}

			known := station.TaskIDs(ws)
			if allTasks {
				tasks = known
			}
			for _, id := range tasks {
				if !contains(known, id) {
					return fmt.Errorf("unknown task %q for workstation %d", id, ws)
				}
			}

			return ctx.withSession(func(s *session) error {
				if err := s.engine.CheckOut(cmd.Context(), barcode, ws, tasks, len(known)); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Machine %s checked out of workstation %d with %d of %d tasks completed\n", barcode, ws, len(tasks), len(known))
				if ws == station.FinalStation {
					fmt.Fprintln(out, "Service complete")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&tasks, "task", nil, "Completed task ID (repeatable)")
	cmd.Flags().BoolVar(&allTasks, "all-tasks", false, "Mark every task of the workstation as completed")
	return cmd
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "queue <station>",
		Short: "Show the machines at a workstation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := stationArg(args[0])
			if err != nil {
				return err
			}
			if interval <= 0 {
				return errors.New("--interval must be positive")
			}

			return ctx.withSession(func(s *session) error {
				render := func() error {
					entries, err := s.engine.Queue(cmd.Context(), ws)
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					if watch {
						fmt.Fprintf(out, "Updated %s\n", time.Now().In(s.loc).Format(clockLayout))
					}
					if len(entries) == 0 {
						fmt.Fprintf(out, "No machines at workstation %d\n", ws)
						return nil
					}
					fmt.Fprint(out, renderTable(
						fmt.Sprintf("Workstation %d: %s", ws, station.Name(ws)),
						[]string{"#", "Barcode", "Checked In", "Est. Wait", "Operator"},
						queueRows(entries, s.loc),
						[]columnAlignment{alignRight},
					))
					return nil
				}

				if err := render(); err != nil || !watch {
					return err
				}

				timer := time.NewTimer(interval)
				defer timer.Stop()
				for {
					select {
					case <-cmd.Context().Done():
						return nil
					case <-timer.C:
						if err := render(); err != nil {
							return err
						}
						timer.Reset(interval)
					}
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Refresh the queue until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Refresh interval for --watch")
	return cmd
}

func queueRows(entries []workflow.QueueEntry, loc *time.Location) [][]string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			e.BarcodeID,
			e.CheckinTime.In(loc).Format(clockLayout),
			export.FormatWait(waitFromMillis(e.WaitTime)),
			fmt.Sprintf("%s (%s)", e.Operator.Name, e.Operator.EPF),
		}
	}
	return rows
}

func newJourneyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "journey <barcode>",
		Short: "Show a machine's path through the workstations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			barcode, err := parse.Barcode(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(func(s *session) error {
				journey, err := s.engine.Journey(cmd.Context(), barcode)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderJourney(journey, s.loc))
				return nil
			})
		},
	}
}

func journeyStatus(j *model.MachineJourney) string {
	switch {
	case j.IsComplete():
		return "service complete in " + export.FormatDuration(j.Duration())
	case j.CurrentWorkstation != nil:
		return fmt.Sprintf("at workstation %d (%s)", *j.CurrentWorkstation, station.Name(*j.CurrentWorkstation))
	default:
		return fmt.Sprintf("between workstations, %d of %d completed", len(j.CompletedWorkstations), station.Count)
	}
}

func renderJourney(j *model.MachineJourney, loc *time.Location) string {
	rows := make([][]string, 0, len(j.Records))
	for _, r := range j.Records {
		checkout, duration := "-", "-"
		if r.CheckoutTime != nil {
			checkout = r.CheckoutTime.In(loc).Format("2006-01-02 " + clockLayout)
			duration = export.FormatDuration(r.ProcessingTime())
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Workstation),
			fmt.Sprintf("%s (%s)", r.Operator.Name, r.Operator.EPF),
			r.CheckinTime.In(loc).Format("2006-01-02 " + clockLayout),
			checkout,
			duration,
			export.FormatWait(r.Wait()),
			fmt.Sprintf("%d/%d", len(r.TasksCompleted), r.TotalTasks),
		})
	}
	return renderTable(
		fmt.Sprintf("Machine %s: %s", j.BarcodeID, journeyStatus(j)),
		[]string{"Station", "Operator", "Checked In", "Checked Out", "Duration", "Wait", "Tasks"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	)
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <barcode>",
		Short: "Delete a machine and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			barcode, err := parse.Barcode(args[0])
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", barcode)
			}
			return ctx.withSession(func(s *session) error {
				if err := s.engine.DeleteMachine(cmd.Context(), barcode); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Machine %s deleted\n", barcode)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}

func newStationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stations [station]",
		Short: "List the workstations, or one workstation's checklist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				rows := make([][]string, 0, station.Count)
				for _, ws := range station.All() {
					rows = append(rows, []string{strconv.Itoa(ws.Number), ws.Name, strconv.Itoa(len(ws.Tasks))})
				}
				fmt.Fprint(out, renderTable("", []string{"#", "Workstation", "Tasks"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
				return nil
			}

			n, err := stationArg(args[0])
			if err != nil {
				return err
			}
			ws, _ := station.Get(n)
			rows := make([][]string, 0, len(ws.Tasks))
			for _, t := range ws.Tasks {
				rows = append(rows, []string{t.ID, t.Description})
			}
			fmt.Fprint(out, renderTable(fmt.Sprintf("Workstation %d: %s", ws.Number, ws.Name), []string{"Task", "Description"}, rows, nil))
			return nil
		},
	}
}
