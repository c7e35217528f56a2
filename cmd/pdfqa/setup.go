package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/a-h/pdfqa/answer"
	"github.com/a-h/pdfqa/config"
	"github.com/a-h/pdfqa/embedding"
	"github.com/a-h/pdfqa/extract"
	"github.com/a-h/pdfqa/pipeline"
	"github.com/a-h/pdfqa/providers"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// ConfigFlags are shared by the commands that work on the local index.
type ConfigFlags struct {
	Config   string `help:"The YAML config file, defaults to pdfqa.yaml or ~/.config/pdfqa/config.yaml." env:"PDFQA_CONFIG" default:""`
	IndexDir string `help:"The index directory, overrides the config file." default:""`
	LogLevel string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func loadConfig(f ConfigFlags) (*config.Config, error) {
	cfg, err := config.Load(f.Config)
	if err != nil {
		return nil, err
	}
	if f.IndexDir != "" {
		cfg.Index.Dir = f.IndexDir
	}
	if err = cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newPipeline(ctx context.Context, log *slog.Logger, cfg *config.Config) (*pipeline.Pipeline, error) {
	log.Info("creating LLM clients", slog.String("provider", cfg.Provider.Name))
	clients, err := providers.New(ctx, cfg, &http.Client{})
	if err != nil {
		return nil, err
	}
	gw := embedding.New(log, clients.Embedder,
		embedding.WithModel(cfg.Embedding.Model),
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithRateLimit(cfg.Embedding.RateLimit),
		embedding.WithRetries(cfg.Embedding.Retries),
		embedding.WithTimeout(cfg.Embedding.Timeout))

	templateText, err := readFileOrDefault(cfg.LLM.PromptFile, answer.DefaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt: %w", err)
	}
	template, err := answer.NewTemplate(templateText)
	if err != nil {
		return nil, err
	}
	synth, err := answer.New(log, clients.LLM, template,
		answer.WithTemperature(cfg.LLM.Temperature),
		answer.WithMaxTokens(cfg.LLM.MaxTokens),
		answer.WithTimeout(cfg.LLM.Timeout),
		answer.WithGroundingCheck(cfg.LLM.GroundingCheck))
	if err != nil {
		return nil, err
	}

	ex := extract.New(log, extract.WithSkipUnreadable(cfg.Extract.SkipUnreadable))
	return pipeline.New(log, pipeline.Options{
		IndexDir:                   cfg.Index.Dir,
		ChunkSize:                  cfg.Chunk.Size,
		ChunkOverlap:               cfg.Chunk.Overlap,
		K:                          cfg.Retrieval.K,
		IndexKey:                   cfg.Index.Key,
		Compress:                   cfg.Index.Compress,
		AllowUnsafeDeserialization: cfg.Index.AllowUnsafeDeserialization,
	}, ex, gw, synth)
}

func readFileOrDefault(filename, defaultContent string) (string, error) {
	if filename == "" {
		return defaultContent, nil
	}
	contents, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return string(contents), nil
}

// readDocuments reads each file, naming the document after its base name.
func readDocuments(paths []string) (docs []extract.Document, err error) {
	docs = make([]extract.Document, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		docs[i] = extract.Document{Name: filepath.Base(p), Data: data}
	}
	return docs, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
