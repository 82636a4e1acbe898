// Package intent turns one inbound customer message into a structured
// interpretation by calling a generative model and strictly validating its
// JSON reply.
package intent

import "github.com/pedezap/pedezap/internal/domain"

// Kind tags the classifier's interpretation of a message.
type Kind string

const (
	KindOrder         Kind = "order"
	KindReply         Kind = "reply"
	KindClarification Kind = "clarification"
)

// Intent is the classifier's output for one message: a tag plus either a
// draft order or free text. Exactly one payload field is set for its kind.
type Intent struct {
	Kind  Kind
	Text  string               // reply / clarification text
	Order *domain.PendingOrder // draft order, prices not yet enriched
}
