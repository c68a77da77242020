// context.go carries the per-submission id through context.Context.

package ctd

import "context"

type submissionIDKey struct{}

// WithSubmissionID returns a context with the submission ID attached.
// Transports use it as an idempotency key.
func WithSubmissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, submissionIDKey{}, id)
}

// SubmissionIDFromContext extracts the submission ID from context.
// Returns empty string and false if not set or empty.
func SubmissionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(submissionIDKey{}).(string)
	return id, ok && id != ""
}
