package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	switch c.Provider.Name {
	case ProviderGoogleAI, ProviderOpenAI:
		if c.Provider.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   "provider.api_key",
				Message: fmt.Sprintf("an API key is required for the %s provider, set %s", c.Provider.Name, apiKeyEnvVar(c.Provider.Name)),
			})
		}
	case ProviderOllama:
		if _, err := url.Parse(c.Provider.BaseURL); err != nil || c.Provider.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "provider.base_url",
				Message: "a valid Ollama base URL is required",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "provider.name",
			Message: fmt.Sprintf("unknown provider %q, expected one of googleai, openai, ollama", c.Provider.Name),
		})
	}

	if c.Embedding.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "embedding.model",
			Message: "embedding model is required",
		})
	}
	if c.Embedding.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.batch_size",
			Message: "batch_size must be positive",
		})
	}
	if c.Embedding.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.rate_limit",
			Message: "rate_limit must not be negative",
		})
	}
	if c.Embedding.Retries < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.retries",
			Message: "retries must not be negative",
		})
	}
	if c.Embedding.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.timeout",
			Message: "timeout must be positive",
		})
	}

	if c.LLM.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.model",
			Message: "llm model is required",
		})
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}
	if c.LLM.MaxTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be positive",
		})
	}
	if c.LLM.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.timeout",
			Message: "timeout must be positive",
		})
	}

	if c.Chunk.Size < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunk.size",
			Message: "size must be positive",
		})
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		errors = append(errors, ValidationError{
			Field:   "chunk.overlap",
			Message: "overlap must be non-negative and less than size",
		})
	}

	if c.Retrieval.K < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.k",
			Message: "k must be positive",
		})
	}

	if c.Index.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "index.dir",
			Message: "index directory is required",
		})
	}
	if c.Index.Key != "" && len(c.Index.Key) != 32 {
		errors = append(errors, ValidationError{
			Field:   "index.key",
			Message: "key must be exactly 32 bytes",
		})
	}
	if c.Index.Key == "" && !c.Index.AllowUnsafeDeserialization {
		errors = append(errors, ValidationError{
			Field:   "index.key",
			Message: "a key is required to authenticate the index, set PDFQA_INDEX_KEY or index.allow_unsafe_deserialization",
		})
	}

	if c.Server.MaxUploadBytes < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.max_upload_bytes",
			Message: "max_upload_bytes must be positive",
		})
	}

	return errors
}

func apiKeyEnvVar(provider string) string {
	if provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GOOGLE_API_KEY"
}
