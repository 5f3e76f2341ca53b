package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aretw0/actorflow/pkg/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage resumable sessions",
	Long: `List, inspect and remove session snapshots. The store is chosen like for run:
--redis, then --state-dir, then JSON files under <dir>/.actorflow/sessions.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List sessions with their workflow and state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mgr, done, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer done()

		snaps, err := mgr.Snapshots(cmd.Context())
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
			return nil
		}
		ids, err := mgr.List(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tWORKFLOW\tSTATE\tUPDATED")
		for _, id := range ids {
			snap, ok := snaps[id]
			if !ok {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, snap.Workflow, snap.CurrentState, snap.UpdatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print the snapshot of a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, done, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer done()

		snap, err := mgr.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load session %q: %w", args[0], err)
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm [session-id...]",
	Short: "Remove one or more sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, done, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer done()

		ids := args
		if all, _ := cmd.Flags().GetBool("all"); all {
			if ids, err = mgr.List(cmd.Context()); err != nil {
				return err
			}
		}
		if len(ids) == 0 {
			return errors.New("no session given (pass IDs or --all)")
		}

		var errs []error
		for _, id := range ids {
			if err := mgr.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("remove %q: %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	for _, c := range []*cobra.Command{sessionLsCmd, sessionInspectCmd, sessionRmCmd} {
		addStoreFlags(c)
		sessionCmd.AddCommand(c)
	}
	sessionRmCmd.Flags().Bool("all", false, "Remove every session")
}

func openSessions(cmd *cobra.Command) (*session.Manager, func(), error) {
	st, err := openStores(cmd)
	if err != nil {
		return nil, nil, err
	}
	var opts []session.Option
	if st.locker != nil {
		opts = append(opts, session.WithLocker(st.locker))
	}
	mgr := session.NewManager(st.state, append(opts, session.WithLogger(logger))...)
	return mgr, func() { _ = st.close() }, nil
}
