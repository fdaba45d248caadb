package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m2tx/margin_agent/assets"
	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/backend"
	"github.com/m2tx/margin_agent/internal/config"
	"github.com/m2tx/margin_agent/internal/functions"
	"github.com/m2tx/margin_agent/internal/modelhost/claude"
	"github.com/m2tx/margin_agent/internal/modelhost/gemini"
	"github.com/m2tx/margin_agent/internal/prompt"
	"github.com/m2tx/margin_agent/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoConnectTimeout = 10 * time.Second

// Runtime is the wired dispatcher plus whatever must be released on exit.
type Runtime struct {
	Agent   *agent.Agent
	Backend *backend.Client
	closers []func(context.Context) error
}

// Close releases external connections held by the runtime.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewRuntime builds the dispatcher from cfg. A missing model credential is
// not an error: the agent is built without a host and chat requests fail
// until the credential is provided.
func NewRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	persona, err := LoadPersona(cfg)
	if err != nil {
		return nil, err
	}

	host, err := NewModelHost(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if host == nil {
		logger.Warn("model credential missing; chat requests will fail",
			slog.String("provider", string(cfg.Provider)),
			slog.String("env", cfg.CredentialEnv()),
		)
	}

	rt := &Runtime{
		Backend: backend.New(cfg.BackendURL, backend.WithTimeout(cfg.BackendTimeout)),
	}

	repo, err := rt.newRepository(ctx, cfg, logger)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	rt.Agent = agent.New(host, persona.SystemInstruction(),
		agent.WithLogger(logger),
		agent.WithRepository(repo),
		agent.WithMaxSteps(config.MaxSteps),
	)
	if err := functions.Register(rt.Agent, rt.Backend); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("register tools: %w", err)
	}

	logger.Info("dispatcher ready",
		slog.String("provider", string(cfg.Provider)),
		slog.String("model", cfg.ModelName()),
		slog.String("backend", cfg.BackendURL),
		slog.Int("tools", len(rt.Agent.Functions())),
	)
	return rt, nil
}

// LoadPersona returns the persona from cfg.PersonaFile, or the embedded
// default when no file is configured.
func LoadPersona(cfg config.Config) (*prompt.Persona, error) {
	if cfg.PersonaFile != "" {
		p, err := prompt.LoadFile(cfg.PersonaFile)
		if err != nil {
			return nil, fmt.Errorf("load persona: %w", err)
		}
		return p, nil
	}
	p, err := prompt.Parse(assets.Persona)
	if err != nil {
		return nil, fmt.Errorf("parse embedded persona: %w", err)
	}
	return p, nil
}

// NewModelHost returns the host for cfg.Provider, or nil when the provider
// credential is not set.
func NewModelHost(ctx context.Context, cfg config.Config) (agent.ModelHost, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, nil
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		h, err := claude.New(apiKey, cfg.ModelName())
		if err != nil {
			return nil, err
		}
		return h, nil
	case config.ProviderGemini:
		h, err := gemini.New(ctx, apiKey, cfg.ModelName())
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func (r *Runtime) newRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.TranscriptRepository, error) {
	if cfg.MongoURI == "" {
		logger.Info("transcripts kept in memory", slog.Int("capacity", repository.DefaultMemoryCapacity))
		return repository.NewMemoryTranscriptRepository(repository.DefaultMemoryCapacity), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	r.closers = append(r.closers, client.Disconnect)

	repo := repository.NewMongoTranscriptRepository(client.Database(cfg.MongoDB), repository.DefaultCollection)
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		return nil, err
	}

	logger.Info("transcripts stored in mongodb", slog.String("database", cfg.MongoDB))
	return repo, nil
}
