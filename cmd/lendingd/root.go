package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const programName = "lendingd"

// set with -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = ""
)

func rootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           programName,
		Short:         "Runs the lending protocol service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file to load")

	root.AddCommand(
		serveCommand(&configFile),
		versionCommand(),
	)
	return root
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}
}

func versionString() string {
	if commit == "" {
		return fmt.Sprintf("%s %s", programName, version)
	}
	return fmt.Sprintf("%s %s (%s)", programName, version, commit)
}
