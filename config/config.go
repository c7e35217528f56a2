// Package config loads pdfqa settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/a-h/pdfqa"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
)

type Config struct {
	Provider struct {
		Name    string `yaml:"name"`
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"provider"`

	Embedding struct {
		Model     string        `yaml:"model"`
		BatchSize int           `yaml:"batch_size"`
		RateLimit float64       `yaml:"rate_limit"`
		Retries   int           `yaml:"retries"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"embedding"`

	LLM struct {
		Model          string        `yaml:"model"`
		Temperature    float64       `yaml:"temperature"`
		MaxTokens      int           `yaml:"max_tokens"`
		Timeout        time.Duration `yaml:"timeout"`
		PromptFile     string        `yaml:"prompt_file"`
		GroundingCheck bool          `yaml:"grounding_check"`
	} `yaml:"llm"`

	Chunk struct {
		Size    int `yaml:"size"`
		Overlap int `yaml:"overlap"`
	} `yaml:"chunk"`

	Retrieval struct {
		K int `yaml:"k"`
	} `yaml:"retrieval"`

	Index struct {
		Dir                        string `yaml:"dir"`
		Key                        string `yaml:"key"`
		Compress                   bool   `yaml:"compress"`
		AllowUnsafeDeserialization bool   `yaml:"allow_unsafe_deserialization"`
	} `yaml:"index"`

	Extract struct {
		SkipUnreadable bool `yaml:"skip_unreadable"`
	} `yaml:"extract"`

	Server struct {
		ListenAddr     string `yaml:"listen_addr"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	} `yaml:"server"`
}

// Default returns the configuration used when no file is present.
// Provider specific model names are filled in by Load once the provider is known.
func Default() *Config {
	var c Config
	c.Provider.Name = ProviderGoogleAI
	c.Embedding.BatchSize = 100
	c.Embedding.RateLimit = 5
	c.Embedding.Retries = 3
	c.Embedding.Timeout = 60 * time.Second
	c.LLM.Temperature = 0.7
	c.LLM.MaxTokens = 2000
	c.LLM.Timeout = 60 * time.Second
	c.Chunk.Size = 1000
	c.Chunk.Overlap = 100
	c.Retrieval.K = 10
	c.Index.Dir = "pdf_index"
	c.Index.Compress = true
	c.Server.ListenAddr = "localhost:9020"
	c.Server.MaxUploadBytes = 64 << 20
	return &c
}

// Load reads the file at path over the defaults, then applies environment
// overrides. An empty path searches the usual locations and falls back to
// the defaults if none exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = findConfigFile()
	}
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: error reading config file: %w", pdfqa.ErrConfiguration, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("%w: error parsing config file %q: %w", pdfqa.ErrConfiguration, path, err)
		}
	}
	mergeWithEnv(c)
	applyDefaults(c)
	return c, nil
}

func findConfigFile() string {
	locations := []string{
		"pdfqa.yaml",
		"pdfqa.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "pdfqa", "config.yaml"))
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func applyDefaults(c *Config) {
	switch c.Provider.Name {
	case ProviderGoogleAI:
		if c.Embedding.Model == "" {
			c.Embedding.Model = "embedding-001"
		}
		if c.LLM.Model == "" {
			c.LLM.Model = "gemini-2.0-flash-exp"
		}
	case ProviderOpenAI:
		if c.Embedding.Model == "" {
			c.Embedding.Model = "text-embedding-3-small"
		}
		if c.LLM.Model == "" {
			c.LLM.Model = "gpt-4o-mini"
		}
	case ProviderOllama:
		if c.Provider.BaseURL == "" {
			c.Provider.BaseURL = "http://127.0.0.1:11434/"
		}
		if c.Embedding.Model == "" {
			c.Embedding.Model = "nomic-embed-text"
		}
		if c.LLM.Model == "" {
			c.LLM.Model = "mistral-nemo"
		}
	}
}

func mergeWithEnv(c *Config) {
	if provider := os.Getenv("PDFQA_PROVIDER"); provider != "" {
		c.Provider.Name = provider
	}
	if c.Provider.APIKey == "" {
		switch c.Provider.Name {
		case ProviderGoogleAI:
			c.Provider.APIKey = os.Getenv("GOOGLE_API_KEY")
		case ProviderOpenAI:
			c.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if baseURL := os.Getenv("OLLAMA_URL"); baseURL != "" && c.Provider.Name == ProviderOllama {
		c.Provider.BaseURL = baseURL
	}
	if dir := os.Getenv("PDFQA_INDEX_DIR"); dir != "" {
		c.Index.Dir = dir
	}
	if key := os.Getenv("PDFQA_INDEX_KEY"); key != "" {
		c.Index.Key = key
	}
}

// Check returns nil if the configuration is valid, or all validation errors
// wrapped in pdfqa.ErrConfiguration.
func (c *Config) Check() error {
	verrs := c.Validate()
	if len(verrs) == 0 {
		return nil
	}
	errs := make([]error, len(verrs))
	for i, ve := range verrs {
		errs[i] = ve
	}
	return fmt.Errorf("%w: %w", pdfqa.ErrConfiguration, errors.Join(errs...))
}
