package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/a-h/pdfqa"
	"github.com/a-h/pdfqa/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		apiKey      string
		expectedErr error
	}{
		{
			name:     "ollama needs no API key",
			provider: config.ProviderOllama,
		},
		{
			name:     "openai",
			provider: config.ProviderOpenAI,
			apiKey:   "sk-test",
		},
		{
			name:        "openai without a key is a configuration error",
			provider:    config.ProviderOpenAI,
			expectedErr: pdfqa.ErrConfiguration,
		},
		{
			name:        "googleai without a key is a configuration error",
			provider:    config.ProviderGoogleAI,
			expectedErr: pdfqa.ErrConfiguration,
		},
		{
			name:        "unknown providers are rejected",
			provider:    "acme",
			expectedErr: pdfqa.ErrConfiguration,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Provider.Name = test.provider
			cfg.Provider.APIKey = test.apiKey
			cfg.Provider.BaseURL = "http://localhost:11434"
			cfg.Embedding.Model = "embed"
			cfg.LLM.Model = "chat"
			clients, err := New(context.Background(), cfg, nil)
			if test.expectedErr != nil {
				if !errors.Is(err, test.expectedErr) {
					t.Errorf("expected %v, got %v", test.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if clients.Embedder == nil || clients.LLM == nil {
				t.Error("expected both clients to be created")
			}
		})
	}
}
