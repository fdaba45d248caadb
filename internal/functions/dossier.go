package functions

import (
	"context"
	"errors"

	"github.com/m2tx/margin_agent/internal/agent"
)

func CreateDossierFunctionDeclaration(b Backend) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "getDossier",
		Description:      "Loads the full dossier of an explicit project: financials, margins, health score, triggers and issues.",
		ParametersSchema: schemaFor[ProjectArgs](),
		Validate:         validator[ProjectArgs](),
		FunctionCall: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			params, err := decodeArgs[ProjectArgs](args)
			if err != nil {
				return nil, err
			}
			return b.Dossier(ctx, params.ProjectID)
		},
	}
}

// CreateCurrentProjectDossierFunctionDeclaration reads the dossier of the
// project the chat session is bound to.
func CreateCurrentProjectDossierFunctionDeclaration(b Backend) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "getCurrentProjectDossier",
		Description:      "Loads the dossier of the project currently open in the dashboard. Takes no arguments.",
		ParametersSchema: schemaFor[NoArgs](),
		Validate:         validator[NoArgs](),
		FunctionCall: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			projectID, ok := agent.ProjectIDFromContext(ctx)
			if !ok {
				return nil, errors.New("no project is bound to this session")
			}
			return b.Dossier(ctx, projectID)
		},
	}
}
