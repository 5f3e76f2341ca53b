package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/actorflow/internal/logging"
	"github.com/aretw0/actorflow/pkg/domain"
)

// EnvPrefix prefixes the environment variables that carry action arguments.
const EnvPrefix = "ACTORFLOW_ARG"

// waitDelay bounds how long a canceled tool may keep its output pipes open.
const waitDelay = time.Second

// Runner is an actor state that runs allow-listed local commands.
// The action method names the tool; arguments never reach the command line and
// are passed as environment variables instead:
//
//	map:    ACTORFLOW_ARG_<KEY>=value
//	list:   ACTORFLOW_ARG_0, ACTORFLOW_ARG_1, ...
//	scalar: ACTORFLOW_ARG=value
//
// Non-scalar values are JSON encoded. A successful run returns trimmed stdout.
type Runner struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	baseDir string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures the runner.
type Option func(*Runner)

// WithTools populates the allow-list.
func WithTools(tools map[string]Tool) Option {
	return func(r *Runner) {
		for _, t := range tools {
			r.tools[t.Name] = t
		}
	}
}

// WithBaseDir sets the working directory of executed commands.
func WithBaseDir(dir string) Option {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout bounds every run that has no tool-specific timeout. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLogger configures a logger for the Runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner with an empty allow-list unless WithTools is given.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		tools:  make(map[string]Tool),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name, command string, args ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = Tool{Name: name, Command: command, Args: args}
}

// Tools lists the allow-listed tool names, sorted.
func (r *Runner) Tools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Runner) lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Dispatch implements ports.ActionDispatcher.
func (r *Runner) Dispatch(ctx context.Context, method string, args domain.Arguments) domain.ActionResult {
	tool, ok := r.lookup(method)
	if !ok {
		return domain.Fail("process tool not registered: %s", method)
	}

	timeout, err := tool.timeout()
	if err != nil {
		return domain.FromError(err)
	}
	if timeout == 0 {
		timeout = r.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, tool.Command, tool.Args...)
	cmd.Dir = r.baseDir
	cmd.WaitDelay = waitDelay
	killGroupOnCancel(cmd)
	cmd.Env = cmd.Environ()
	for k, v := range tool.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env, argsEnv(args)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	r.logger.Debug("process finished", "tool", tool.Name, "duration", time.Since(start), "err", err)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Fail("%s: timed out after %s", tool.Name, timeout)
		}
		return domain.Fail("%s: %v: %s", tool.Name, err, strings.TrimSpace(stderr.String()))
	}
	return domain.Ok("%s", strings.TrimSpace(stdout.String()))
}

func argsEnv(args domain.Arguments) []string {
	var env []string
	switch args.Kind() {
	case domain.ArgsMap:
		for k, v := range args.Map() {
			env = append(env, fmt.Sprintf("%s_%s=%s", EnvPrefix, envKey(k), envValue(v)))
		}
		sort.Strings(env)
	case domain.ArgsList:
		for i, v := range args.List() {
			env = append(env, fmt.Sprintf("%s_%d=%s", EnvPrefix, i, envValue(v)))
		}
	case domain.ArgsScalar:
		env = append(env, fmt.Sprintf("%s=%s", EnvPrefix, envValue(args.Scalar())))
	}
	return env
}

// envKey upper-cases k and replaces anything outside [A-Z0-9_] with '_'.
func envKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, k)
}

func envValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int, int64, float64, uint64:
		return fmt.Sprint(val)
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprint(v)
}
