package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pinEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MODEL_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("PERSONA_FILE", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
}

func TestToolsCmd_ListsCatalog(t *testing.T) {
	pinEnv(t)

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"tools", "--json"})
	require.NoError(t, root.Execute())

	var docs []toolDoc
	require.NoError(t, json.Unmarshal(out.Bytes(), &docs))
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
		assert.NotEmpty(t, d.Description)
		assert.NotNil(t, d.Parameters)
	}
	assert.Equal(t, []string{
		"getPortfolio", "getDossier", "getCurrentProjectDossier", "getFieldNotes",
		"getLaborDetail", "getChangeOrderDetail", "getRfiDetail", "whatIfMargin", "sendEmail",
	}, names)
}

func TestAskCmd_RequiresProjectFlag(t *testing.T) {
	pinEnv(t)

	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"ask", "How is margin?"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project")
}

func TestAskCmd_MissingCredential(t *testing.T) {
	pinEnv(t)

	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"ask", "--project", "PRJ-2024-001", "How is margin?"})
	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, "GEMINI_API_KEY is not set", err.Error())
}

type echoHost struct{}

func (echoHost) Generate(_ context.Context, req *agent.ModelRequest) (*model.Content, error) {
	last := req.History[len(req.History)-1]
	answer := "You asked: " + last.Text()
	if err := req.Emit(answer); err != nil {
		return nil, err
	}
	return &model.Content{Role: model.RoleModel, Parts: []model.Part{{Text: answer}}}, nil
}

func TestAsk_StreamsAnswer(t *testing.T) {
	a := agent.New(echoHost{}, "", agent.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	var out strings.Builder
	require.NoError(t, ask(context.Background(), a, &out, "PRJ-2024-001", "why is labor over?"))
	assert.Equal(t, "You asked: why is labor over?\n", out.String())
}
