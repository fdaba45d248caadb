package functions

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/backend"
	"github.com/m2tx/margin_agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	Method string
	Path   string
	Body   string
}

type backendStub struct {
	mu     sync.Mutex
	calls  []call
	routes map[string]string
}

func newBackendStub(t *testing.T, routes map[string]string) (*backendStub, *backend.Client) {
	t.Helper()
	stub := &backendStub{routes: routes}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return stub, backend.New(srv.URL)
}

func (s *backendStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.calls = append(s.calls, call{Method: r.Method, Path: r.URL.Path, Body: string(raw)})
	s.mu.Unlock()

	body, ok := s.routes[r.Method+" "+r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Not Found"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func (s *backendStub) recorded() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

type replayHost struct {
	responses []*model.Content
	requests  [][]*model.Content
}

func (h *replayHost) Generate(_ context.Context, req *agent.ModelRequest) (*model.Content, error) {
	h.requests = append(h.requests, append([]*model.Content(nil), req.History...))
	idx := len(h.requests) - 1
	if idx >= len(h.responses) {
		idx = len(h.responses) - 1
	}
	return h.responses[idx], nil
}

func callModel(name string, args map[string]any) *model.Content {
	return &model.Content{Role: model.RoleModel, Parts: []model.Part{{FunctionCall: &model.FunctionCall{Name: name, Args: args}}}}
}

func answer(s string) *model.Content {
	return &model.Content{Role: model.RoleModel, Parts: []model.Part{{Text: s}}}
}

func newAgent(t *testing.T, host agent.ModelHost, b Backend) *agent.Agent {
	t.Helper()
	a := agent.New(host, "sys", agent.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, Register(a, b))
	return a
}

func TestCatalog_Names(t *testing.T) {
	_, client := newBackendStub(t, nil)
	names := make([]string, 0)
	for _, fd := range Catalog(client) {
		names = append(names, fd.Name)
		assert.NotEmpty(t, fd.Description, fd.Name)
		assert.NotNil(t, fd.ParametersSchema, fd.Name)
		assert.NotNil(t, fd.Validate, fd.Name)
	}
	assert.Equal(t, []string{
		"getPortfolio",
		"getDossier",
		"getCurrentProjectDossier",
		"getFieldNotes",
		"getLaborDetail",
		"getChangeOrderDetail",
		"getRfiDetail",
		"whatIfMargin",
		"sendEmail",
	}, names)
}

func TestGetDossier_FoldsBodyVerbatim(t *testing.T) {
	const dossier = `{"project_id":"PRJ-2024-001","name":"Mercy Hospital AHU Retrofit","health_score":38.2,"financials":{"margin_erosion_pct":0.061}}`
	stub, client := newBackendStub(t, map[string]string{"GET /api/dossier/PRJ-2024-001": dossier})
	host := &replayHost{responses: []*model.Content{
		callModel("getDossier", map[string]any{"projectId": "PRJ-2024-001"}),
		answer("Mercy Hospital is at risk."),
	}}

	res, err := newAgent(t, host, client).Run(context.Background(), agent.Request{ProjectID: "PRJ-2024-001"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Mercy Hospital is at risk.", res.Answer)

	calls := stub.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, call{Method: http.MethodGet, Path: "/api/dossier/PRJ-2024-001"}, calls[0])

	require.Len(t, host.requests, 2)
	history := host.requests[1]
	resp := history[len(history)-1].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.False(t, resp.IsError)

	folded, err := json.Marshal(resp.Response)
	require.NoError(t, err)
	assert.JSONEq(t, dossier, string(folded))
}

func TestWhatIfMargin_PostsSnakeCaseBody(t *testing.T) {
	stub, client := newBackendStub(t, map[string]string{
		"POST /api/tools/what-if-margin": `{"project_id":"PRJ-2024-002","new_realized_margin_pct":0.12}`,
	})
	host := &replayHost{responses: []*model.Content{
		callModel("whatIfMargin", map[string]any{"projectId": "PRJ-2024-002", "recoveryAmount": float64(50000)}),
		answer("Recovering $50,000 lifts margin to 12%."),
	}}

	res, err := newAgent(t, host, client).Run(context.Background(), agent.Request{ProjectID: "PRJ-2024-002"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Steps)

	calls := stub.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/api/tools/what-if-margin", calls[0].Path)
	assert.JSONEq(t, `{"project_id":"PRJ-2024-002","recovery_amount":50000}`, calls[0].Body)

	require.Len(t, res.Invocations, 1)
	assert.Empty(t, res.Invocations[0].Error)
	assert.Equal(t, "PRJ-2024-002", res.Invocations[0].Result["project_id"])
}

func TestCurrentProjectDossier_UsesSessionProject(t *testing.T) {
	stub, client := newBackendStub(t, map[string]string{"GET /api/dossier/PRJ-2024-003": `{"project_id":"PRJ-2024-003"}`})
	host := &replayHost{responses: []*model.Content{callModel("getCurrentProjectDossier", nil), answer("ok")}}

	_, err := newAgent(t, host, client).Run(context.Background(), agent.Request{ProjectID: "PRJ-2024-003"}, nil)
	require.NoError(t, err)

	calls := stub.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "/api/dossier/PRJ-2024-003", calls[0].Path)
}

func TestFieldNotes_DefaultLimit(t *testing.T) {
	stub, client := newBackendStub(t, map[string]string{"POST /api/tools/field-notes": `{"count":0,"items":[]}`})
	host := &replayHost{responses: []*model.Content{callModel("getFieldNotes", map[string]any{"projectId": "PRJ-2024-001"}), answer("none")}}

	_, err := newAgent(t, host, client).Run(context.Background(), agent.Request{ProjectID: "PRJ-2024-001"}, nil)
	require.NoError(t, err)

	calls := stub.recorded()
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"project_id":"PRJ-2024-001","keyword":"","limit":20}`, calls[0].Body)
}

func TestBackendFailure_ContinuesSession(t *testing.T) {
	stub, client := newBackendStub(t, nil)
	host := &replayHost{responses: []*model.Content{
		callModel("getChangeOrderDetail", map[string]any{"projectId": "PRJ-2024-001", "coNumber": "CO-999"}),
		answer("CO-999 does not exist on this project."),
	}}

	res, err := newAgent(t, host, client).Run(context.Background(), agent.Request{ProjectID: "PRJ-2024-001"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "CO-999 does not exist on this project.", res.Answer)
	assert.Len(t, stub.recorded(), 1)

	require.Len(t, res.Invocations, 1)
	assert.Contains(t, res.Invocations[0].Error, "returned 404: Not Found")

	history := host.requests[1]
	resp := history[len(history)-1].Parts[0].FunctionResponse
	assert.True(t, resp.IsError)
}

func TestInvalidArguments_NeverReachBackend(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"negative recovery", "whatIfMargin", map[string]any{"projectId": "PRJ-2024-002", "recoveryAmount": float64(-1)}},
		{"missing recovery", "whatIfMargin", map[string]any{"projectId": "PRJ-2024-002"}},
		{"limit too large", "getFieldNotes", map[string]any{"projectId": "PRJ-2024-001", "limit": float64(101)}},
		{"limit zero", "getFieldNotes", map[string]any{"projectId": "PRJ-2024-001", "limit": float64(0)}},
		{"fractional limit", "getFieldNotes", map[string]any{"projectId": "PRJ-2024-001", "limit": 2.5}},
		{"malformed email", "sendEmail", map[string]any{"to": "not-an-email", "subject": "Escalation", "body": "Please review."}},
		{"display-name email", "sendEmail", map[string]any{"to": "PM <pm@example.com>", "subject": "Escalation", "body": "Please review."}},
		{"short subject", "sendEmail", map[string]any{"to": "pm@example.com", "subject": "Hi", "body": "Please review."}},
		{"short body", "sendEmail", map[string]any{"to": "pm@example.com", "subject": "Escalation", "body": "ok"}},
		{"missing project", "getDossier", map[string]any{}},
		{"wrong type", "getDossier", map[string]any{"projectId": float64(7)}},
		{"missing sov line", "getLaborDetail", map[string]any{"projectId": "PRJ-2024-001"}},
		{"missing co number", "getChangeOrderDetail", map[string]any{"projectId": "PRJ-2024-001"}},
		{"missing rfi number", "getRfiDetail", map[string]any{"projectId": "PRJ-2024-001", "rfiNumber": " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub, client := newBackendStub(t, map[string]string{})
			host := &replayHost{responses: []*model.Content{callModel(tt.tool, tt.args), answer("could not run")}}

			res, err := newAgent(t, host, client).Run(context.Background(), agent.Request{ProjectID: "PRJ-2024-001"}, nil)
			require.NoError(t, err)

			assert.Empty(t, stub.recorded())
			require.Len(t, res.Invocations, 1)
			assert.Contains(t, res.Invocations[0].Error, "invalid arguments for "+tt.tool)
		})
	}
}

func TestValidArguments(t *testing.T) {
	limit := 100
	zero := 0.0
	assert.NoError(t, FieldNotesArgs{ProjectID: "PRJ-2024-001", Limit: &limit}.Validate())
	assert.Equal(t, 20, FieldNotesArgs{}.EffectiveLimit())
	assert.NoError(t, WhatIfMarginArgs{ProjectID: "PRJ-2024-001", RecoveryAmount: &zero}.Validate())
	assert.NoError(t, EmailArgs{To: "pm@example.com", Subject: "Esc", Body: "Hello"}.Validate())
}

func TestSchemas(t *testing.T) {
	decode := func(schema any) map[string]any {
		raw, err := json.Marshal(schema)
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, json.Unmarshal(raw, &out))
		return out
	}

	whatIf := decode(schemaFor[WhatIfMarginArgs]())
	assert.Equal(t, "object", whatIf["type"])
	assert.NotContains(t, whatIf, "$schema")
	assert.ElementsMatch(t, []any{"projectId", "recoveryAmount"}, whatIf["required"])

	notes := decode(schemaFor[FieldNotesArgs]())
	assert.ElementsMatch(t, []any{"projectId"}, notes["required"])
	props := notes["properties"].(map[string]any)
	limit := props["limit"].(map[string]any)
	assert.EqualValues(t, 1, limit["minimum"])
	assert.EqualValues(t, 100, limit["maximum"])
}
