package main

import (
	"os"

	cmd "github.com/mosaicnetworks/murmur/cmd/murmur/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.NewRunCmd(),
		cmd.NewCallCmd(),
		cmd.VersionCmd,
	)

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
