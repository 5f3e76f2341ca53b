package main

import (
	"fmt"

	"github.com/aretw0/actorflow"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [workflow...]",
	Short: "Validate workflows",
	Long:  `Loads and validates the named workflows, or every workflow under --dir when none is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		engine, err := actorflow.New(dir, actorflow.WithLogger(logger))
		if err != nil {
			return err
		}
		defer engine.Terminate(cmd.Context())

		names := args
		if len(names) == 0 {
			if names, err = engine.Loader().List(cmd.Context()); err != nil {
				return err
			}
		}

		failed := 0
		for _, name := range names {
			wf, err := engine.Loader().Load(cmd.Context(), name)
			if err == nil {
				err = wf.Validate()
			}
			if err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", name, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d steps)\n", name, len(wf.Steps))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d workflow(s) invalid", failed, len(names))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
