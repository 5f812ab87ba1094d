// Package assistant produces tutor replies for assistant-directed messages.
package assistant

import "context"

// Reply is the outcome of answering a question. Text is always usable
// chat content; Success reports whether the primary strategy produced it
// or a fallback did.
type Reply struct {
	Success bool
	Text    string
}

// Responder answers a free-text question. Implementations never return
// an error to the caller; failures resolve to a fallback Reply.
type Responder interface {
	Respond(ctx context.Context, question string) Reply
}
