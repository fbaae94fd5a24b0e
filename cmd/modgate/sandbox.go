package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modgate-dev/modgate/internal/sandbox"
)

var sandboxOwner string

var sandboxCmd = &cobra.Command{
	Use:   "sandbox <operation> <root> [args...]",
	Short: "Run one container operation against a directory snapshot",
	Long: `Sandbox creates a container over the given root directory, runs a
single allow-listed operation (read-log, show-revision, list-log)
against its virtual snapshot, and tears the container down. Anything
outside the allow list is rejected.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		manager := sandbox.NewManager()

		c, err := manager.Create(sandboxOwner, args[1])
		if err != nil {
			return err
		}
		defer func() { _ = manager.Teardown(c.ID()) }()

		out, err := manager.Invoke(c.ID(), args[0], args[2:]...)
		if err != nil {
			return err
		}
		if out != "" {
			fmt.Println(out)
		}
		return nil
	},
}

func init() {
	sandboxCmd.Flags().StringVar(&sandboxOwner, "owner", "operator", "owner identity the container is created for")
	rootCmd.AddCommand(sandboxCmd)
}
