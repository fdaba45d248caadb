package functions

import (
	"context"

	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/backend"
)

// Backend is the subset of the portfolio/dossier backend the tools call.
type Backend interface {
	Portfolio(ctx context.Context) (map[string]any, error)
	Dossier(ctx context.Context, projectID string) (map[string]any, error)
	FieldNotes(ctx context.Context, req backend.FieldNotesRequest) (map[string]any, error)
	LaborDetail(ctx context.Context, req backend.LaborDetailRequest) (map[string]any, error)
	ChangeOrderDetail(ctx context.Context, req backend.ChangeOrderRequest) (map[string]any, error)
	RFIDetail(ctx context.Context, req backend.RFIRequest) (map[string]any, error)
	WhatIfMargin(ctx context.Context, req backend.WhatIfMarginRequest) (map[string]any, error)
	SendEmail(ctx context.Context, req backend.EmailRequest) (map[string]any, error)
}

// Catalog returns every tool the agent may call, in the order they are
// presented to the model.
func Catalog(b Backend) []*agent.FunctionDeclaration {
	return []*agent.FunctionDeclaration{
		CreatePortfolioFunctionDeclaration(b),
		CreateDossierFunctionDeclaration(b),
		CreateCurrentProjectDossierFunctionDeclaration(b),
		CreateFieldNotesFunctionDeclaration(b),
		CreateLaborDetailFunctionDeclaration(b),
		CreateChangeOrderFunctionDeclaration(b),
		CreateRFIFunctionDeclaration(b),
		CreateWhatIfMarginFunctionDeclaration(b),
		CreateSendEmailFunctionDeclaration(b),
	}
}

// Register adds the whole catalog to a.
func Register(a *agent.Agent, b Backend) error {
	for _, fd := range Catalog(b) {
		if err := a.AddFunctionCall(fd); err != nil {
			return err
		}
	}
	return nil
}
