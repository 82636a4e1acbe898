package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/pedezap/pedezap/internal/domain"
	"github.com/pedezap/pedezap/internal/llm"
	"github.com/pedezap/pedezap/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestClassifyOrder(t *testing.T) {
	var gotPrompt string
	client := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			gotPrompt = req.Prompt
			return &llm.CompletionResponse{
				Content: `{"type":"order","data":{"items":[{"name":"Pizza Calabresa","quantity":1}]}}`,
			}, nil
		},
	}

	c := NewClassifier(client, 0, testLogger())
	it := c.Classify(context.Background(), Input{
		Message: "quero uma pizza calabresa",
		Tenant: domain.TenantConfig{
			BusinessName: "Pizzaria do Zé",
			Greeting:     "Olá! Bem-vindo à Pizzaria do Zé 🍕",
			Hours:        "18h às 23h",
			MenuURL:      "https://menu.example/ze",
		},
		Catalog:       []domain.CatalogItem{{Name: "Pizza Calabresa", Price: 30}},
		PriorQuestion: "Qual sabor?",
	})

	require.NotNil(t, it)
	assert.Equal(t, KindOrder, it.Kind)

	// all context fields must land in the prompt
	assert.Contains(t, gotPrompt, "Pizzaria do Zé")
	assert.Contains(t, gotPrompt, "Olá! Bem-vindo à Pizzaria do Zé 🍕")
	assert.Contains(t, gotPrompt, "18h às 23h")
	assert.Contains(t, gotPrompt, "https://menu.example/ze")
	assert.Contains(t, gotPrompt, "Pizza Calabresa")
	assert.Contains(t, gotPrompt, "Qual sabor?")
	assert.Contains(t, gotPrompt, "quero uma pizza calabresa")
}

func TestClassifyTransportFailureReturnsNil(t *testing.T) {
	client := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("connection refused")
		},
	}

	c := NewClassifier(client, 256, testLogger())
	assert.Nil(t, c.Classify(context.Background(), Input{Message: "oi"}))
}

func TestClassifyUnparsableOutputReturnsNil(t *testing.T) {
	client := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: "desculpe, não sei responder em JSON"}, nil
		},
	}

	c := NewClassifier(client, 256, testLogger())
	assert.Nil(t, c.Classify(context.Background(), Input{Message: "oi"}))
}

func TestClassifyToleratesProseAroundJSON(t *testing.T) {
	client := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{
				Content: "Aqui está:\n```json\n{\"type\":\"reply\",\"data\":\"Olá!\"}\n```",
			}, nil
		},
	}

	c := NewClassifier(client, 256, testLogger())
	it := c.Classify(context.Background(), Input{Message: "oi"})
	require.NotNil(t, it)
	assert.Equal(t, KindReply, it.Kind)
	assert.Equal(t, "Olá!", it.Text)
}
