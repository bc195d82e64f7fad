package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

func RootCommand() *cobra.Command {
	if err := flags.LoadEnv(); err != nil {
		log.Printf("ignoring environment: %s", err)
	}
	cmd := &cobra.Command{
		Use:          "rltrain",
		Short:        "Train reinforcement learning agents",
		SilenceUsage: true,
	}
	AddFlags(cmd)

	cmd.AddCommand(
		TrainCommand(),
	)

	return cmd
}
