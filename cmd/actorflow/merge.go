package main

import (
	"fmt"

	"github.com/aretw0/actorflow/pkg/overlay"
	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <overlay-dir>",
	Short: "Merge an overlay onto its bases",
	Long: `Builds the overlay in <overlay-dir> and writes one merged workflow per base
file to --out, or prints them to stdout when --out is empty. Bases are never
modified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		vars, _ := cmd.Flags().GetStringToString("var")

		res, err := overlay.Build(cmd.Context(), args[0], overlay.WithLogger(logger), overlay.WithVars(vars))
		if err != nil {
			return err
		}
		if out != "" {
			if err := res.WriteDir(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d workflow(s) to %s\n", len(res.Names()), out)
			return nil
		}
		return printMerged(cmd, res)
	},
}

func printMerged(cmd *cobra.Command, res *overlay.Result) error {
	for n, name := range res.Names() {
		data, err := res.Marshal(name)
		if err != nil {
			return err
		}
		if n > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "---")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", name, data)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().String("out", "", "Output directory for the merged workflows")
	mergeCmd.Flags().StringToString("var", nil, "Variable override (key=value), repeatable")
}
