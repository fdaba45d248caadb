package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m2tx/margin_agent/internal/model"
	"golang.org/x/sync/errgroup"
)

// dispatch runs every call of one cycle concurrently and returns the
// invocations in call order. A failing tool yields an invocation with Error
// set; only cancellation of ctx is returned as an error, and it cancels the
// calls still running.
func (a *Agent) dispatch(ctx context.Context, logger *slog.Logger, step int, calls []*model.FunctionCall) ([]model.Invocation, error) {
	invocations := make([]model.Invocation, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			invocations[i] = a.invoke(gctx, logger, step, call)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return invocations, nil
}

func (a *Agent) invoke(ctx context.Context, logger *slog.Logger, step int, call *model.FunctionCall) model.Invocation {
	start := time.Now()
	inv := model.Invocation{
		Step: step,
		ID:   call.ID,
		Name: call.Name,
		Args: call.Args,
	}

	resp, err := a.handleFunctionCall(ctx, call.Name, call.Args)
	inv.DurationMS = time.Since(start).Milliseconds()

	attrs := []any{
		slog.Int("step", step),
		slog.String("tool", call.Name),
		slog.Int64("duration_ms", inv.DurationMS),
	}
	if err != nil {
		inv.Error = err.Error()
		logger.Warn("tool call failed", append(attrs, slog.Any("error", err))...)
		return inv
	}

	if resp == nil {
		resp = map[string]any{}
	}
	inv.Result = resp
	logger.Info("tool call", attrs...)
	return inv
}

func (a *Agent) handleFunctionCall(ctx context.Context, functionName string, args map[string]any) (map[string]any, error) {
	fd, exists := a.functionsMap[functionName]
	if !exists {
		return nil, fmt.Errorf("unknown tool %q", functionName)
	}

	if args == nil {
		args = map[string]any{}
	}
	if fd.Validate != nil {
		if err := fd.Validate(args); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", functionName, err)
		}
	}

	resp, err := fd.FunctionCall(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", functionName, err)
	}
	return resp, nil
}
