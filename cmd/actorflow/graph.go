package main

import (
	"fmt"

	"github.com/aretw0/actorflow"
	"github.com/aretw0/actorflow/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <workflow>",
	Short: "Render a workflow as a Mermaid flowchart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		current, _ := cmd.Flags().GetString("current")
		visited, _ := cmd.Flags().GetStringSlice("visited")

		engine, err := actorflow.New(dir, actorflow.WithLogger(logger))
		if err != nil {
			return err
		}
		defer engine.Terminate(cmd.Context())

		wf, err := engine.Loader().Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		var ov *graph.Overlay
		if current != "" || len(visited) > 0 {
			ov = &graph.Overlay{Current: current, Visited: visited}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(wf, ov))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("current", "", "State to highlight as current")
	graphCmd.Flags().StringSlice("visited", nil, "States to highlight as visited")
}
