package functions

import (
	"context"

	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/backend"
)

func CreateWhatIfMarginFunctionDeclaration(b Backend) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "whatIfMargin",
		Description:      "Simulates the project's realized margin assuming the given dollar amount is recovered. Use it to size the impact of a recommended action.",
		ParametersSchema: schemaFor[WhatIfMarginArgs](),
		Validate:         validator[WhatIfMarginArgs](),
		FunctionCall: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			params, err := decodeArgs[WhatIfMarginArgs](args)
			if err != nil {
				return nil, err
			}
			return b.WhatIfMargin(ctx, backend.WhatIfMarginRequest{
				ProjectID:      params.ProjectID,
				RecoveryAmount: *params.RecoveryAmount,
			})
		},
	}
}
