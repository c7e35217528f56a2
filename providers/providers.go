// Package providers builds the embedding and LLM clients for the configured
// provider.
package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/a-h/pdfqa"
	"github.com/a-h/pdfqa/config"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type Clients struct {
	Embedder embeddings.Embedder
	LLM      llms.Model
}

func New(ctx context.Context, cfg *config.Config, httpClient *http.Client) (c Clients, err error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	var ec embeddings.EmbedderClient
	switch cfg.Provider.Name {
	case config.ProviderGoogleAI:
		if cfg.Provider.APIKey == "" {
			return c, fmt.Errorf("%w: GOOGLE_API_KEY is not set", pdfqa.ErrConfiguration)
		}
		client, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.Provider.APIKey),
			googleai.WithDefaultModel(cfg.LLM.Model),
			googleai.WithDefaultEmbeddingModel(cfg.Embedding.Model))
		if err != nil {
			return c, fmt.Errorf("failed to create Google AI client: %w", err)
		}
		ec, c.LLM = client, client
	case config.ProviderOpenAI:
		if cfg.Provider.APIKey == "" {
			return c, fmt.Errorf("%w: OPENAI_API_KEY is not set", pdfqa.ErrConfiguration)
		}
		opts := []openai.Option{
			openai.WithToken(cfg.Provider.APIKey),
			openai.WithModel(cfg.LLM.Model),
			openai.WithEmbeddingModel(cfg.Embedding.Model),
			openai.WithHTTPClient(httpClient),
		}
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Provider.BaseURL))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return c, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		ec, c.LLM = client, client
	case config.ProviderOllama:
		eclient, err := ollama.New(
			ollama.WithModel(cfg.Embedding.Model),
			ollama.WithHTTPClient(httpClient),
			ollama.WithServerURL(cfg.Provider.BaseURL))
		if err != nil {
			return c, fmt.Errorf("failed to create embedder: %w", err)
		}
		llmc, err := ollama.New(
			ollama.WithModel(cfg.LLM.Model),
			ollama.WithHTTPClient(httpClient),
			ollama.WithServerURL(cfg.Provider.BaseURL))
		if err != nil {
			return c, fmt.Errorf("failed to create LLM: %w", err)
		}
		ec, c.LLM = eclient, llmc
	default:
		return c, fmt.Errorf("%w: unknown provider %q", pdfqa.ErrConfiguration, cfg.Provider.Name)
	}
	c.Embedder, err = embeddings.NewEmbedder(ec, embeddings.WithBatchSize(cfg.Embedding.BatchSize))
	if err != nil {
		return c, fmt.Errorf("failed to create embedder: %w", err)
	}
	return c, nil
}
