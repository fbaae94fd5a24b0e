package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modgate-dev/modgate/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		info := build.Get()
		if verbose {
			fmt.Println(info.Full())
			return
		}
		fmt.Println(info.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
