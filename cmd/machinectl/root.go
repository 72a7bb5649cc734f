package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var serverFlag string

	ctx := newCommandContext(&configFlag, &serverFlag)

	rootCmd := &cobra.Command{
		Use:           "machinectl",
		Short:         "Track sewing machines through the service workstations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default $CONFIG_PATH or ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Base URL of a machine-service server to use instead of the local store")

	rootCmd.AddCommand(newCheckInCommand(ctx))
	rootCmd.AddCommand(newCheckOutCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newJourneyCommand(ctx))
	rootCmd.AddCommand(newCompletedCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newBackupCommand(ctx))
	rootCmd.AddCommand(newRestoreCommand(ctx))
	rootCmd.AddCommand(newOperatorsCommand(ctx))
	rootCmd.AddCommand(newStationsCommand())

	return rootCmd
}
