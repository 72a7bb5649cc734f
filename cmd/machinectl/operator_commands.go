package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOperatorsCommand(ctx *commandContext) *cobra.Command {
	operatorsCmd := &cobra.Command{
		Use:   "operators",
		Short: "Manage the operator roster",
	}

	operatorsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				ops, err := s.operators.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(ops) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No operators")
					return nil
				}
				rows := make([][]string, len(ops))
				for i, op := range ops {
					rows[i] = []string{op.Name, op.EPF}
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable("", []string{"Name", "EPF"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	})

	operatorsCmd.AddCommand(&cobra.Command{
		Use:   "add <name> <epf>",
		Short: "Add an operator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				op, err := s.operators.Add(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (EPF %s)\n", op.Name, op.EPF)
				return nil
			})
		},
	})

	operatorsCmd.AddCommand(&cobra.Command{
		Use:   "delete <epf>",
		Short: "Remove an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(s *session) error {
				if err := s.operators.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed EPF %s\n", args[0])
				return nil
			})
		},
	})

	return operatorsCmd
}
