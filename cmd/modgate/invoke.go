package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/modgate-dev/modgate/internal/clearance"
	"github.com/modgate-dev/modgate/internal/host"
)

var (
	invokeCaller    string
	invokeClearance string
	invokeAttrs     []string
	invokeApprove   bool
)

var invokeCmd = &cobra.Command{
	Use:   "invoke <feature> [args...]",
	Short: "Invoke a feature through the authorization gate",
	Long: `Invoke runs one feature request through the full gate: clearance check,
payload classification, then the routed execution. Payloads the filter
flags as audit-required prompt for operator approval unless --approve
is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := clearance.Parse(invokeClearance)
		if err != nil {
			return err
		}
		attrs, err := parseAttrs(invokeAttrs)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		h, err := openHost(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = h.Close(ctx) }()

		req := host.Request{
			Caller:        invokeCaller,
			Clearance:     level,
			Feature:       args[0],
			Args:          args[1:],
			Attrs:         attrs,
			AuditApproved: invokeApprove,
		}

		resp, err := h.Execute(ctx, req)

		var needsAudit *host.AuditRequiredError
		if errors.As(err, &needsAudit) {
			approved, promptErr := promptApproval(needsAudit)
			if promptErr != nil {
				return promptErr
			}
			if !approved {
				return err
			}
			req.AuditApproved = true
			resp, err = h.Execute(ctx, req)
		}
		if err != nil {
			return err
		}

		if resp.Value != "" {
			fmt.Println(resp.Value)
		}
		fmt.Printf("code: %d\n", resp.Code)
		return nil
	},
}

// promptApproval asks the operator to review an audit-required payload.
func promptApproval(reason *host.AuditRequiredError) (bool, error) {
	var approved bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Feature %s needs audit approval", reason.Feature)).
		Description("Flagged constructs:" + reason.Reason).
		Affirmative("Approve").
		Negative("Reject").
		Value(&approved).
		Run()
	if err != nil {
		return false, fmt.Errorf("approval prompt: %w", err)
	}
	return approved, nil
}

func init() {
	invokeCmd.Flags().StringVar(&invokeCaller, "caller", "operator", "caller identity recorded in the journal")
	invokeCmd.Flags().StringVar(&invokeClearance, "clearance", "public", "caller clearance (public, controlled, privileged, critical)")
	invokeCmd.Flags().StringArrayVar(&invokeAttrs, "attr", nil, "request attribute as key=value (repeatable)")
	invokeCmd.Flags().BoolVar(&invokeApprove, "approve", false, "pre-approve audit-required payloads without prompting")
	rootCmd.AddCommand(invokeCmd)
}
