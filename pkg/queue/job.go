package queue

import "context"

// Job is a named handler for one message type. The consumer routes each
// message to the job whose Type matches.
type Job interface {
	// Name returns the unique identifier of the job.
	Name() string

	// Type returns the type of message that the job handles.
	Type() string

	// Handle processes the job with the given payload.
	Handle(ctx context.Context, payload interface{}) error
}
