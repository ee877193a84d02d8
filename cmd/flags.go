package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hobbyhunter/storefront/hobbyhunter/flags"
)

var flagsCMD = &cobra.Command{
	Use:   "flags",
	Short: "show the effective feature flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		values := app.Flags.All()
		names := make([]flags.Name, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FLAG\tENABLED")
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%t\n", name, values[name])
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		warnings := app.Flags.Validate(app.Cfg.Environment)
		if len(warnings) > 0 {
			fmt.Fprintln(out)
		}
		for _, w := range warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		return nil
	},
}

var flagsSetCMD = &cobra.Command{
	Use:   "set <flag> <true|false>",
	Short: "persist a local flag override",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid value %q for %s: %w", args[1], args[0], err)
		}
		if err := app.Flags.SetFlag(cmd.Context(), flags.Name(args[0]), enabled); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %t\n", args[0], enabled)
		return err
	},
}

var flagsResetCMD = &cobra.Command{
	Use:   "reset [flag]",
	Short: "drop local flag overrides",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return app.Flags.Reset(cmd.Context())
		}
		return app.Flags.ResetFlag(cmd.Context(), flags.Name(args[0]))
	},
}

func init() {
	flagsCMD.AddCommand(flagsSetCMD, flagsResetCMD)
	rootCmd.AddCommand(flagsCMD)
}
