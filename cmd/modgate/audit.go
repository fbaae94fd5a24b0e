package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modgate-dev/modgate/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the decision journal",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify the journal's hash chain end to end",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		result := audit.Verify(args[0])
		if !result.Valid {
			if result.ErrorLine > 0 {
				return fmt.Errorf("journal invalid at line %d: %s", result.ErrorLine, result.Error)
			}
			return fmt.Errorf("journal invalid: %s", result.Error)
		}
		fmt.Printf("journal valid, %d entries\n", result.Lines)
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}
