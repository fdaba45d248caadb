package agent

import "errors"

var (
	ErrMissingProjectID       = errors.New("projectId is required")
	ErrModelHostNotConfigured = errors.New("model host credential is not configured")
	ErrNoRepository           = errors.New("transcript repository is not configured")
)

// ModelHostError wraps a failure of the model host.
type ModelHostError struct {
	Step int
	Err  error
}

func (e *ModelHostError) Error() string {
	return "model host: " + e.Err.Error()
}

func (e *ModelHostError) Unwrap() error {
	return e.Err
}
