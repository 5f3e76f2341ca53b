package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/actorflow"
	"github.com/aretw0/actorflow/pkg/actor"
	adapter "github.com/aretw0/actorflow/pkg/adapters/http"
	"github.com/aretw0/actorflow/pkg/adapters/process"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/aretw0/actorflow/pkg/observability"
	"github.com/aretw0/actorflow/pkg/scheduler"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// ShellActor is the actor name the --tools runner is registered under.
const ShellActor = "shell"

var runCmd = &cobra.Command{
	Use:   "run <workflow>",
	Short: "Run a workflow until it reaches the end state",
	Long: `Loads <workflow> from --dir (or the merged output of --overlay) and drives a
fresh interpreter to the end state. With --session the cursor is saved after
every transition and a later run with the same ID resumes from it.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("overlay", "", "Overlay directory to merge and run from instead of --dir")
	runCmd.Flags().Int("max-iterations", 0, "Bound on transitions before the run fails (0 uses the default)")
	runCmd.Flags().String("http", "", "Serve the introspection API on this address during the run (e.g. :8080)")
	runCmd.Flags().Bool("keep-serving", false, "Keep the introspection API up after the run until interrupted")
	runCmd.Flags().String("session", "", "Session ID for a resumable run")
	runCmd.Flags().Bool("new-session", false, "Start a resumable run under a generated session ID")
	runCmd.Flags().String("tools", "", "Tool definitions (YAML/JSON) exposed as the \"shell\" actor")
	runCmd.Flags().StringToString("var", nil, "Overlay variable (key=value), repeatable")
	runCmd.Flags().Duration("every", 0, "Run the workflow again this long after each run finishes")
	runCmd.Flags().Int("repeat", 0, "With --every, stop after this many runs (0 runs until interrupted)")
	addStoreFlags(runCmd)
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, _ := cmd.Flags().GetString("dir")
	if o, _ := cmd.Flags().GetString("overlay"); o != "" {
		dir = o
	}
	maxIter, _ := cmd.Flags().GetInt("max-iterations")
	addr, _ := cmd.Flags().GetString("http")
	keep, _ := cmd.Flags().GetBool("keep-serving")
	sessionID, _ := cmd.Flags().GetString("session")
	if fresh, _ := cmd.Flags().GetBool("new-session"); fresh && sessionID == "" {
		sessionID = uuid.NewString()
	}
	vars, _ := cmd.Flags().GetStringToString("var")

	st, err := openStores(cmd)
	if err != nil {
		return err
	}
	defer st.close()

	sys := actor.NewSystem(actor.WithLogger(logger))
	defer func() {
		termCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sys.Terminate(termCtx); err != nil {
			logger.Warn("actor system shutdown", "err", err)
		}
	}()

	if err := registerTools(cmd, sys, dir); err != nil {
		return err
	}

	hooks := []domain.LifecycleHooks{observability.LogHooks(logger)}
	serveErr := make(chan error, 1)
	srvCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	if addr != "" {
		reg := prometheus.NewRegistry()
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}
		if err := reg.Register(observability.NewSystemCollector(sys)); err != nil {
			return err
		}
		srv := adapter.NewServer(sys, adapter.WithGatherer(reg), adapter.WithLogger(logger))
		hooks = append(hooks, metrics.Hooks(), srv.Hooks())
		go func() { serveErr <- srv.ListenAndServe(srvCtx, addr, 5*time.Second) }()
	}

	opts := []actorflow.Option{
		actorflow.WithSystem(sys),
		actorflow.WithLogger(logger),
		actorflow.WithOutput(cmd.OutOrStdout()),
		actorflow.WithLifecycleHooks(observability.Compose(hooks...)),
		actorflow.WithStateStore(st.state),
		actorflow.WithMaxIterations(maxIter),
		actorflow.WithVars(vars),
	}
	if st.locker != nil {
		opts = append(opts, actorflow.WithLocker(st.locker))
	}
	engine, err := actorflow.New(dir, opts...)
	if err != nil {
		return err
	}

	if sessionID != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", sessionID)
	}
	job := &runJob{engine: engine, workflow: args[0], sessionID: sessionID}

	every, _ := cmd.Flags().GetDuration("every")
	if every > 0 {
		repeat, _ := cmd.Flags().GetInt("repeat")
		if err := runRepeatedly(ctx, sys, job, every, repeat); err != nil {
			return err
		}
	} else if err := job.run(ctx); err != nil {
		return err
	}

	if addr == "" {
		return nil
	}
	if !keep {
		stopServer()
	}
	if err := <-serveErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// registerTools exposes the --tools definitions as the shell actor.
func registerTools(cmd *cobra.Command, sys *actor.System, dir string) error {
	path, _ := cmd.Flags().GetString("tools")
	if path == "" {
		return nil
	}
	tools, err := process.LoadTools(path)
	if err != nil {
		return err
	}
	runner := process.NewRunner(
		process.WithTools(tools),
		process.WithBaseDir(dir),
		process.WithLogger(logger),
	)
	if _, err := actor.Create(sys, ShellActor, runner); err != nil {
		return err
	}
	logger.Debug("tools registered", "actor", ShellActor, "tools", runner.Tools())
	return nil
}

// runJob is one run of the workflow, optionally under a session.
type runJob struct {
	engine    *actorflow.Engine
	workflow  string
	sessionID string
}

func (j *runJob) run(ctx context.Context) error {
	var (
		state domain.InterpreterState
		err   error
	)
	if j.sessionID != "" {
		state, err = j.engine.RunSession(ctx, j.sessionID, j.workflow)
	} else {
		state, err = j.engine.Run(ctx, j.workflow)
	}
	if err != nil {
		return fmt.Errorf("run %s (state %q): %w", j.workflow, state.CurrentState, err)
	}
	logger.Info("workflow finished", "workflow", j.workflow, "state", state.CurrentState, "step", state.StepIndex)
	return nil
}

// RepeatActor is the actor whose mailbox serializes repeated runs.
const RepeatActor = "repeat"

// runRepeatedly schedules job with a fixed delay between runs. Failed runs are
// logged and do not stop the schedule. With repeat > 0 it returns after that
// many runs; otherwise when ctx is done.
func runRepeatedly(ctx context.Context, sys *actor.System, job *runJob, every time.Duration, repeat int) error {
	if _, err := actor.Create(sys, RepeatActor, job); err != nil {
		return err
	}
	sched := scheduler.New(sys, scheduler.WithLogger(logger))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sched.Shutdown(shutdownCtx)
	}()

	finished := make(chan struct{})
	runs := 0
	_, err := sched.ScheduleWithFixedDelay("", RepeatActor, 0, every, func(state any) {
		if runs >= repeat && repeat > 0 {
			return
		}
		if err := state.(*runJob).run(ctx); err != nil {
			logger.Error("scheduled run failed", "workflow", job.workflow, "err", err)
		}
		runs++
		if runs == repeat {
			close(finished)
		}
	})
	if err != nil {
		return err
	}

	select {
	case <-finished:
	case <-ctx.Done():
	}
	return nil
}
