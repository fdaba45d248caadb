package model

import "time"

// Invocation records one tool call executed during a chat turn.
type Invocation struct {
	Step       int            `json:"step" bson:"step"`
	ID         string         `json:"id" bson:"id"`
	Name       string         `json:"name" bson:"name"`
	Args       map[string]any `json:"args,omitempty" bson:"args,omitempty"`
	Result     map[string]any `json:"result,omitempty" bson:"result,omitempty"`
	Error      string         `json:"error,omitempty" bson:"error,omitempty"`
	DurationMS int64          `json:"duration_ms" bson:"duration_ms"`
}

// Transcript is the audit record of a single chat turn.
type Transcript struct {
	SessionID   string       `json:"session_id" bson:"_id"`
	ProjectID   string       `json:"project_id" bson:"project_id"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
	Messages    []Turn       `json:"messages" bson:"messages"`
	Invocations []Invocation `json:"invocations" bson:"invocations"`
	Answer      string       `json:"answer" bson:"answer"`
	Steps       int          `json:"steps" bson:"steps"`
	Degraded    bool         `json:"degraded" bson:"degraded"`
}
