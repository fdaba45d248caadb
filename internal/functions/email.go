package functions

import (
	"context"

	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/backend"
)

// CreateSendEmailFunctionDeclaration is the only tool with an external side effect.
func CreateSendEmailFunctionDeclaration(b Backend) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "sendEmail",
		Description:      "Sends a summary or escalation email. Only use it when the user asks for an email to be sent.",
		ParametersSchema: schemaFor[EmailArgs](),
		Validate:         validator[EmailArgs](),
		FunctionCall: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			params, err := decodeArgs[EmailArgs](args)
			if err != nil {
				return nil, err
			}
			return b.SendEmail(ctx, backend.EmailRequest{
				To:      params.To,
				Subject: params.Subject,
				Body:    params.Body,
			})
		},
	}
}
