package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Задаются при сборке через -ldflags "-X main.Version=..."
var (
	Version   = "dev"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Версия программы",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "loader %s (%s, %s)\n", Version, BuildDate, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
