package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/google/uuid"
)

// Methods understood by an interpreter when it is the target of an action,
// usually addressed as "this".
const (
	MethodExecCode    = "execCode"
	MethodRunUntilEnd = "runUntilEnd"
	MethodSleep       = "sleep"
	MethodPrint       = "print"
	MethodDoNothing   = "doNothing"
	MethodCall        = "call"
	MethodRunWorkflow = "runWorkflow"
	MethodApply       = "apply"
	MethodReset       = "reset"
)

// Dispatch implements ports.ActionDispatcher.
func (i *Interpreter) Dispatch(ctx context.Context, method string, args domain.Arguments) domain.ActionResult {
	switch method {
	case MethodExecCode:
		if err := i.ExecCode(ctx); err != nil {
			return domain.FromError(err)
		}
		return domain.Ok("%s", i.State().CurrentState)

	case MethodRunUntilEnd:
		limit := 0
		if !args.IsEmpty() {
			n, err := args.Int(0)
			if err != nil {
				return domain.Fail("runUntilEnd: %v", err)
			}
			limit = n
		}
		if err := i.RunUntilEnd(ctx, limit); err != nil {
			return domain.FromError(err)
		}
		return domain.Ok("%s", domain.StateEnd)

	case MethodSleep:
		d, err := durationArg(args)
		if err != nil {
			return domain.Fail("sleep: %v", err)
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return domain.Ok("slept %s", d)
		case <-ctx.Done():
			return domain.FromError(ctx.Err())
		}

	case MethodPrint:
		msg := joinArgs(args)
		fmt.Fprintln(i.out, msg)
		return domain.Ok("%s", msg)

	case MethodDoNothing:
		return domain.Ok("%s", joinArgs(args))

	case MethodCall:
		return i.call(ctx, args, true)

	case MethodRunWorkflow:
		return i.call(ctx, args, false)

	case MethodApply:
		return i.apply(ctx, args)

	case MethodReset:
		i.Reset()
		return domain.Ok("reset")
	}
	return domain.Fail("interpreter %s: unknown method %q", i.name, method)
}

// call runs a workflow in a fresh child interpreter. With discard, the child is
// closed once it finished; otherwise it stays registered under this interpreter.
func (i *Interpreter) call(ctx context.Context, args domain.Arguments, discard bool) domain.ActionResult {
	file := workflowArg(args)
	if file == "" {
		return domain.Fail("call: workflow name is required")
	}

	name := fmt.Sprintf("%s-%s", i.name, uuid.NewString())
	if v, ok := args.Lookup("name"); ok && !discard {
		name = fmt.Sprint(v)
	}
	sub, err := Spawn(i.sys, name, i.childOptions()...)
	if err != nil {
		return domain.FromError(err)
	}
	if discard {
		defer i.sys.Remove(name)
	}

	if err := sub.Load(ctx, file); err != nil {
		return domain.FromError(err)
	}
	if err := sub.RunUntilEnd(ctx, 0); err != nil {
		return domain.Fail("%s: %v", file, err)
	}
	if discard {
		return domain.Ok("%s reached %s", file, domain.StateEnd)
	}
	return domain.Ok("%s", name)
}

func (i *Interpreter) childOptions() []Option {
	return []Option{
		WithParent(i.name),
		WithLogger(i.logger),
		WithLifecycleHooks(i.hooks),
		WithLoader(i.loader),
		WithOutput(i.out),
		WithMatcher(i.matcher),
		WithMaxIterations(i.maxIterations),
	}
}

// applySpec is the nested action carried by the apply method.
type applySpec struct {
	Actor     string `mapstructure:"actor"`
	Method    string `mapstructure:"method"`
	Arguments any    `mapstructure:"arguments"`
	Execution string `mapstructure:"execution"`
}

// apply dispatches a nested action to the existing actors matched by its path.
func (i *Interpreter) apply(ctx context.Context, args domain.Arguments) domain.ActionResult {
	var spec applySpec
	if err := args.Decode(&spec); err != nil {
		return domain.Fail("apply: %v", err)
	}
	if spec.Actor == "" || spec.Method == "" {
		return domain.Fail("apply: actor and method are required")
	}
	mode, err := domain.ParseExecutionMode(spec.Execution)
	if err != nil {
		return domain.Fail("apply: %v", err)
	}
	handles := i.sys.Resolve(i.name, spec.Actor)
	if len(handles) == 0 {
		return domain.Fail("apply: no actor matched %q", spec.Actor)
	}
	return i.dispatch(ctx, handles, spec.Method, domain.ArgumentsOf(spec.Arguments), mode)
}

// workflowArg reads the workflow name from a scalar, the first list element, or the
// "workflow" key of a map.
func workflowArg(args domain.Arguments) string {
	if args.Is(domain.ArgsMap) {
		if v, ok := args.Lookup("workflow"); ok {
			return fmt.Sprint(v)
		}
		return ""
	}
	return args.String(0)
}

// durationArg accepts milliseconds as a number or a Go duration string ("1.5s").
func durationArg(args domain.Arguments) (time.Duration, error) {
	raw, ok := args.At(0)
	if !ok {
		if v, found := args.Lookup("duration"); found {
			raw = v
		} else {
			return 0, errors.New("duration is required")
		}
	}
	if s, isString := raw.(string); isString {
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
	}
	ms, err := domain.ScalarArgs(raw).Int(0)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %v", raw)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func joinArgs(args domain.Arguments) string {
	switch args.Kind() {
	case domain.ArgsList:
		parts := make([]string, 0, args.Len())
		for n := 0; n < args.Len(); n++ {
			parts = append(parts, args.String(n))
		}
		return strings.Join(parts, " ")
	case domain.ArgsScalar:
		return args.String(0)
	case domain.ArgsMap:
		if v, ok := args.Lookup("message"); ok {
			return fmt.Sprint(v)
		}
	}
	return ""
}
