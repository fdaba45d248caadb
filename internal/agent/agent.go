package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m2tx/margin_agent/internal/model"
	"github.com/m2tx/margin_agent/internal/repository"
	"github.com/samber/lo"
)

const (
	// MaxSteps bounds the model cycles of a single chat turn.
	MaxSteps = 8

	// DegradedNotice is returned when the step budget runs out before the
	// model produced any text.
	DegradedNotice = "Step limit reached before a final answer."

	// OpeningPrompt starts a conversation that has no user turn yet.
	OpeningPrompt = "Active project: %s. Scan it for margin issues."

	saveTimeout = 5 * time.Second
)

type Agent struct {
	model             ModelHost
	systemInstruction string
	functionsMap      map[string]*FunctionDeclaration
	functionOrder     []string
	maxSteps          int
	repository        repository.TranscriptRepository
	logger            *slog.Logger
}

type FunctionDeclaration struct {
	Name             string
	Description      string
	ParametersSchema any
	Validate         ValidateFn
	FunctionCall     FunctionCallFn
}

// ValidateFn checks tool arguments before FunctionCall runs.
type ValidateFn func(args map[string]any) error

type FunctionCallFn func(ctx context.Context, args map[string]any) (map[string]any, error)

type Option func(*Agent)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithRepository(repo repository.TranscriptRepository) Option {
	return func(a *Agent) {
		a.repository = repo
	}
}

// WithMaxSteps lowers the step budget. Values outside 1..MaxSteps are ignored.
func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		if n > 0 && n <= MaxSteps {
			a.maxSteps = n
		}
	}
}

// New builds an agent. A nil model host is allowed; Run then fails with
// ErrModelHostNotConfigured.
func New(host ModelHost, systemInstruction string, opts ...Option) *Agent {
	a := &Agent{
		model:             host,
		systemInstruction: systemInstruction,
		functionsMap:      make(map[string]*FunctionDeclaration),
		maxSteps:          MaxSteps,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) AddFunctionCall(functionDeclaration *FunctionDeclaration) error {
	if functionDeclaration == nil {
		return fmt.Errorf("function declaration cannot be nil")
	}

	if functionDeclaration.Name == "" {
		return fmt.Errorf("function name cannot be empty")
	}

	if functionDeclaration.FunctionCall == nil {
		return fmt.Errorf("function call implementation cannot be nil")
	}

	if _, exists := a.functionsMap[functionDeclaration.Name]; exists {
		return fmt.Errorf("function %s already registered", functionDeclaration.Name)
	}

	a.functionsMap[functionDeclaration.Name] = functionDeclaration
	a.functionOrder = append(a.functionOrder, functionDeclaration.Name)

	return nil
}

// Functions returns the registered declarations in registration order.
func (a *Agent) Functions() []*FunctionDeclaration {
	return lo.Map(a.functionOrder, func(name string, _ int) *FunctionDeclaration {
		return a.functionsMap[name]
	})
}

// Configured reports whether a model host is available.
func (a *Agent) Configured() bool {
	return a.model != nil
}

func (a *Agent) getTools() []ToolSpec {
	return lo.Map(a.Functions(), func(fd *FunctionDeclaration, _ int) ToolSpec {
		return ToolSpec{
			Name:             fd.Name,
			Description:      fd.Description,
			ParametersSchema: fd.ParametersSchema,
		}
	})
}

type Request struct {
	SessionID string
	ProjectID string
	Messages  []model.Turn
}

type Result struct {
	SessionID   string
	ProjectID   string
	Answer      string
	Steps       int
	Degraded    bool
	Invocations []model.Invocation
	History     []*model.Content
}

// Run executes one chat turn. Text is streamed to onText as the model
// produces it; onText may be nil.
//
// Tool failures never fail the turn: they are folded back into the history
// as error responses. Only a missing project id, a missing model host, a
// model host failure or cancellation of ctx return an error.
func (a *Agent) Run(ctx context.Context, req Request, onText func(chunk string) error) (*Result, error) {
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		return nil, ErrMissingProjectID
	}
	if a.model == nil {
		return nil, ErrModelHostNotConfigured
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx = WithProjectID(ctx, projectID)
	logger := a.logger.With(slog.String("session_id", sessionID), slog.String("project_id", projectID))

	result := &Result{
		SessionID: sessionID,
		ProjectID: projectID,
		History:   withOpeningTurn(model.FromTurns(req.Messages), projectID),
	}
	tools := a.getTools()
	sink := &textSink{onText: onText}

	var lastText string
	for result.Steps < a.maxSteps {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Steps++
		sink.nextCycle()

		content, err := a.model.Generate(ctx, &ModelRequest{
			SystemInstruction: a.systemInstruction,
			Tools:             tools,
			History:           result.History,
			OnText:            sink.write,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			logger.Error("model host failed", slog.Int("step", result.Steps), slog.Any("error", err))
			return result, &ModelHostError{Step: result.Steps, Err: err}
		}
		if content == nil {
			content = &model.Content{}
		}
		content.Role = model.RoleModel
		result.History = append(result.History, content)

		calls := content.FunctionCalls()
		if text := content.Text(); text != "" {
			lastText = text
		}
		logger.Debug("model cycle", slog.Int("step", result.Steps), slog.Int("tool_calls", len(calls)))

		if len(calls) == 0 {
			result.Answer = content.Text()
			a.save(ctx, logger, req, result)
			return result, nil
		}

		for _, call := range calls {
			if call.ID == "" {
				call.ID = uuid.NewString()
			}
		}

		invocations, err := a.dispatch(ctx, logger, result.Steps, calls)
		if err != nil {
			return result, err
		}
		result.Invocations = append(result.Invocations, invocations...)
		result.History = append(result.History, toolContent(invocations))
	}

	result.Degraded = true
	result.Answer = lastText
	if result.Answer == "" {
		result.Answer = DegradedNotice
		if err := sink.write(DegradedNotice); err != nil {
			return result, err
		}
	}
	logger.Warn("step budget exhausted", slog.Int("steps", result.Steps))
	a.save(ctx, logger, req, result)

	return result, nil
}

// withOpeningTurn makes sure the model sees at least one user turn naming the
// session project. Hosted models reject a request without user content.
func withOpeningTurn(history []*model.Content, projectID string) []*model.Content {
	if lo.ContainsBy(history, func(c *model.Content) bool { return c.Role == model.RoleUser }) {
		return history
	}
	opening := &model.Content{
		Role:  model.RoleUser,
		Parts: []model.Part{{Text: fmt.Sprintf(OpeningPrompt, projectID)}},
	}
	return append([]*model.Content{opening}, history...)
}

// textSink forwards streamed text and separates the text of successive
// cycles with a newline.
type textSink struct {
	onText       func(chunk string) error
	wrote        bool
	pendingBreak bool
}

func (s *textSink) nextCycle() {
	if s.wrote {
		s.pendingBreak = true
	}
}

func (s *textSink) write(chunk string) error {
	if s.onText == nil || chunk == "" {
		return nil
	}
	if s.pendingBreak {
		s.pendingBreak = false
		if err := s.onText("\n"); err != nil {
			return err
		}
	}
	s.wrote = true
	return s.onText(chunk)
}

func toolContent(invocations []model.Invocation) *model.Content {
	return &model.Content{
		Role: model.RoleTool,
		Parts: lo.Map(invocations, func(inv model.Invocation, _ int) model.Part {
			resp := &model.FunctionResponse{ID: inv.ID, Name: inv.Name, Response: inv.Result}
			if inv.Error != "" {
				resp.Response = map[string]any{"error": inv.Error}
				resp.IsError = true
			}
			return model.Part{FunctionResponse: resp}
		}),
	}
}

func (a *Agent) save(ctx context.Context, logger *slog.Logger, req Request, result *Result) {
	if a.repository == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	transcript := &model.Transcript{
		SessionID:   result.SessionID,
		ProjectID:   result.ProjectID,
		CreatedAt:   time.Now().UTC(),
		Messages:    req.Messages,
		Invocations: result.Invocations,
		Answer:      result.Answer,
		Steps:       result.Steps,
		Degraded:    result.Degraded,
	}
	if err := a.repository.Save(saveCtx, transcript); err != nil {
		logger.Warn("failed to save transcript", slog.Any("error", err))
	}
}

// GetTranscript returns the stored transcript of a session, or nil if the
// session is unknown or no repository is configured.
func (a *Agent) GetTranscript(ctx context.Context, sessionID string) (*model.Transcript, error) {
	if a.repository == nil {
		return nil, ErrNoRepository
	}

	transcript, err := a.repository.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("GetTranscript: %w", err)
	}
	return transcript, nil
}

func (a *Agent) DeleteTranscript(ctx context.Context, sessionID string) error {
	if a.repository == nil {
		return ErrNoRepository
	}
	if err := a.repository.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("DeleteTranscript: %w", err)
	}
	return nil
}
