package functions

import (
	"context"

	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/backend"
)

func CreateLaborDetailFunctionDeclaration(b Backend) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "getLaborDetail",
		Description:      "Returns the labor log rows and computed labor cost for one schedule-of-values line of a project.",
		ParametersSchema: schemaFor[LaborDetailArgs](),
		Validate:         validator[LaborDetailArgs](),
		FunctionCall: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			params, err := decodeArgs[LaborDetailArgs](args)
			if err != nil {
				return nil, err
			}
			return b.LaborDetail(ctx, backend.LaborDetailRequest{
				ProjectID: params.ProjectID,
				SOVLineID: params.SOVLineID,
			})
		},
	}
}

func CreateChangeOrderFunctionDeclaration(b Backend) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "getChangeOrderDetail",
		Description:      "Returns the financial detail and status of one change order of a project.",
		ParametersSchema: schemaFor[ChangeOrderArgs](),
		Validate:         validator[ChangeOrderArgs](),
		FunctionCall: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			params, err := decodeArgs[ChangeOrderArgs](args)
			if err != nil {
				return nil, err
			}
			return b.ChangeOrderDetail(ctx, backend.ChangeOrderRequest{
				ProjectID: params.ProjectID,
				CONumber:  params.CONumber,
			})
		},
	}
}

func CreateRFIFunctionDeclaration(b Backend) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "getRfiDetail",
		Description:      "Returns the detail of one RFI of a project, including status and cost impact.",
		ParametersSchema: schemaFor[RFIArgs](),
		Validate:         validator[RFIArgs](),
		FunctionCall: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			params, err := decodeArgs[RFIArgs](args)
			if err != nil {
				return nil, err
			}
			return b.RFIDetail(ctx, backend.RFIRequest{
				ProjectID: params.ProjectID,
				RFINumber: params.RFINumber,
			})
		},
	}
}
