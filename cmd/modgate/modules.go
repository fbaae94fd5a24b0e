package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Manage loaded modules",
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List modules loaded from the configured directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		h, err := openHost(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = h.Close(ctx) }()

		names := h.Registry().Names()
		if len(names) == 0 {
			fmt.Println("no modules loaded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tVERSION\tABI\tPATH\tENTRY POINTS")
		for _, name := range names {
			handle, err := h.Registry().Resolve(name)
			if err != nil {
				continue
			}
			m := handle.Manifest()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
				name, orDash(m.Version), orDash(m.ABIVersion), handle.Path(), len(handle.EntryPoints()))
		}
		return w.Flush()
	},
}

var modulesLoadCmd = &cobra.Command{
	Use:   "load <name> <path>",
	Short: "Load one module file by name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		h, err := openHost(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = h.Close(ctx) }()

		handle, err := h.Registry().Load(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("loaded %s from %s (%d entry points)\n",
			handle.Name(), handle.Path(), len(handle.EntryPoints()))
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	modulesCmd.AddCommand(modulesListCmd)
	modulesCmd.AddCommand(modulesLoadCmd)
	rootCmd.AddCommand(modulesCmd)
}
