package functions

import (
	"context"

	"github.com/m2tx/margin_agent/internal/agent"
)

func CreatePortfolioFunctionDeclaration(b Backend) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "getPortfolio",
		Description:      "Loads the portfolio summary: every project with its health score, status and margin erosion. Start here when scanning for at-risk projects.",
		ParametersSchema: schemaFor[NoArgs](),
		Validate:         validator[NoArgs](),
		FunctionCall: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return b.Portfolio(ctx)
		},
	}
}
