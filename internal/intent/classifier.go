package intent

import (
	"context"

	"github.com/pedezap/pedezap/internal/llm"
	"github.com/pedezap/pedezap/internal/logging"
)

// Classifier wraps one generative-model call per inbound message.
type Classifier struct {
	client    llm.Client
	maxTokens int
	log       *logging.Logger
}

// NewClassifier creates a classifier on top of the given model client.
func NewClassifier(client llm.Client, maxTokens int, log *logging.Logger) *Classifier {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Classifier{
		client:    client,
		maxTokens: maxTokens,
		log:       log.Sub("classifier"),
	}
}

// Classify interprets one message. It returns nil on transport failure or
// unparsable output — callers must treat nil distinctly from a valid reply
// intent, not as a crash.
func (c *Classifier) Classify(ctx context.Context, in Input) *Intent {
	resp, err := c.client.Complete(ctx, llm.CompletionRequest{
		Prompt:    buildPrompt(in),
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		c.log.Error().Err(err).Str("provider", c.client.Name()).Msg("model call failed")
		return nil
	}

	parsed, err := Parse(resp.Content)
	if err != nil {
		c.log.Warn().Err(err).Str("raw", resp.Content).Msg("unparsable model output")
		return nil
	}

	c.log.Debug().Str("kind", string(parsed.Kind)).Msg("message classified")
	return parsed
}
