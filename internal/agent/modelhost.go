package agent

import (
	"context"

	"github.com/m2tx/margin_agent/internal/model"
)

// ModelHost is a hosted text-generation endpoint able to call tools.
//
// Generate runs one reasoning cycle: it returns the model-role content the
// model produced, which holds text parts, function calls, or both. Text is
// forwarded to OnText as it becomes available; an error returned by OnText
// aborts the cycle.
type ModelHost interface {
	Generate(ctx context.Context, req *ModelRequest) (*model.Content, error)
}

type ModelRequest struct {
	SystemInstruction string
	Tools             []ToolSpec
	History           []*model.Content
	OnText            func(chunk string) error
}

// ToolSpec is the model-facing description of a tool.
type ToolSpec struct {
	Name             string
	Description      string
	ParametersSchema any
}

// Emit forwards chunk to OnText when both are set.
func (r *ModelRequest) Emit(chunk string) error {
	if r == nil || r.OnText == nil || chunk == "" {
		return nil
	}
	return r.OnText(chunk)
}
