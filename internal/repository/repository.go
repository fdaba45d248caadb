package repository

import (
	"context"

	"github.com/m2tx/margin_agent/internal/model"
)

// TranscriptRepository defines persistence operations for chat-turn transcripts.
// Transcripts are an audit trail; they are never replayed into a conversation.
type TranscriptRepository interface {
	// Save persists the transcript, replacing any previous one with the same session id.
	Save(ctx context.Context, transcript *model.Transcript) error

	// Load retrieves the transcript for a given session.
	// Returns nil, nil if the session does not exist.
	Load(ctx context.Context, sessionID string) (*model.Transcript, error)

	// Delete removes the transcript for a given session.
	// Is a no-op if the session does not exist.
	Delete(ctx context.Context, sessionID string) error
}
