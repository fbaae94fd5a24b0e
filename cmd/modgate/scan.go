package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/modgate-dev/modgate/internal/codefilter"
)

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Classify a payload without executing it",
	Long: `Scan runs the static payload filter over a file (or stdin) and prints
the verdict and every finding. The command fails when the verdict is
block, so it can gate pipelines.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var (
			payload []byte
			err     error
		)
		if len(args) == 1 {
			payload, err = os.ReadFile(args[0])
		} else {
			payload, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		result := codefilter.New().Scan(string(payload))
		fmt.Printf("verdict: %s\n", result.Verdict)
		for _, f := range result.Findings {
			fmt.Printf("  line %d: %s %q -> %s\n", f.Line, f.Construct, f.Token, f.Verdict)
		}

		if result.Blocked() {
			return fmt.Errorf("payload blocked")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
