package functions

import (
	"context"

	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/backend"
)

func CreateFieldNotesFunctionDeclaration(b Backend) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "getFieldNotes",
		Description:      "Searches a project's field notes by keyword, newest first. Use it to find site evidence behind labor or schedule problems.",
		ParametersSchema: schemaFor[FieldNotesArgs](),
		Validate:         validator[FieldNotesArgs](),
		FunctionCall: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			params, err := decodeArgs[FieldNotesArgs](args)
			if err != nil {
				return nil, err
			}
			return b.FieldNotes(ctx, backend.FieldNotesRequest{
				ProjectID: params.ProjectID,
				Keyword:   params.Keyword,
				Limit:     params.EffectiveLimit(),
			})
		},
	}
}
