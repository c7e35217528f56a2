package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/a-h/pdfqa/client"
)

type UploadCommand struct {
	ServerURL string   `help:"The URL of the pdfqa server." env:"PDFQA_SERVER_URL" default:"http://localhost:9020"`
	Files     []string `arg:"" help:"The PDF files to upload." type:"existingfile"`
	LogLevel  string   `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c UploadCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	uploads := make([]client.Upload, len(c.Files))
	for i, name := range c.Files {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", name, err)
		}
		defer f.Close()
		uploads[i] = client.Upload{Name: filepath.Base(name), Data: f}
	}

	log.Info("uploading documents", slog.Int("count", len(uploads)), slog.String("url", c.ServerURL))
	resp, err := client.New(c.ServerURL).DocumentsPost(ctx, uploads)
	if err != nil {
		return fmt.Errorf("failed to upload documents: %w", err)
	}
	log.Info("index rebuilt", slog.String("buildId", resp.BuildID), slog.Int("chunks", resp.Chunks), slog.Any("skipped", resp.Skipped))
	return nil
}
