package agent

import "context"

type projectIDKey struct{}

// WithProjectID attaches the session project id to ctx.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectIDKey{}, projectID)
}

// ProjectIDFromContext returns the session project id, if any.
func ProjectIDFromContext(ctx context.Context) (string, bool) {
	projectID, ok := ctx.Value(projectIDKey{}).(string)
	return projectID, ok && projectID != ""
}
