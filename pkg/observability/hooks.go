package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/actorflow/pkg/domain"
)

// Compose returns hooks that call every non-nil hook of each set, in order.
func Compose(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		if h.OnTransition != nil {
			prev, next := out.OnTransition, h.OnTransition
			out.OnTransition = func(ctx context.Context, e *domain.TransitionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				next(ctx, e)
			}
		}
		if h.OnActionResult != nil {
			prev, next := out.OnActionResult, h.OnActionResult
			out.OnActionResult = func(ctx context.Context, e *domain.ActionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				next(ctx, e)
			}
		}
		if h.OnNoMatch != nil {
			prev, next := out.OnNoMatch, h.OnNoMatch
			out.OnNoMatch = func(ctx context.Context, e *domain.NoMatchEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				next(ctx, e)
			}
		}
	}
	return out
}

// LogHooks logs transitions at Info, action results at Debug and no-match
// outcomes at Warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition",
				"interpreter", e.Interpreter,
				"workflow", e.Workflow,
				"from", e.From,
				"to", e.To,
				"step", e.StepIndex,
			)
		},
		OnActionResult: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action",
				"interpreter", e.Interpreter,
				"actor", e.Actor,
				"method", e.Method,
				"matched", e.Matched,
				"success", e.Success,
				"duration", e.Duration,
			)
		},
		OnNoMatch: func(ctx context.Context, e *domain.NoMatchEvent) {
			logger.WarnContext(ctx, "no step matched",
				"interpreter", e.Interpreter,
				"workflow", e.Workflow,
				"state", e.State,
			)
		},
	}
}
