package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

type IngestCommand struct {
	ConfigFlags `embed:""`
	Files       []string `arg:"" help:"The PDF files to index." type:"existingfile"`
}

func (c IngestCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	cfg, err := loadConfig(c.ConfigFlags)
	if err != nil {
		return err
	}
	p, err := newPipeline(ctx, log, cfg)
	if err != nil {
		return err
	}
	docs, err := readDocuments(c.Files)
	if err != nil {
		return err
	}

	color.Blue("\nIndexing %d documents into %s\n", len(docs), cfg.Index.Dir)
	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = getProgressBar(total, "Embedding")
		}
		_ = bar.Set(done)
	}
	res, err := p.Ingest(ctx, docs, progress)
	if err != nil {
		return fmt.Errorf("failed to ingest documents: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	for _, name := range res.Skipped {
		color.Yellow("\nSkipped unreadable document %s\n", name)
	}
	color.Green("\n✓ Indexed %d chunks from %d pages\n", res.Chunks, res.Pages)
	log.Debug("index built", slog.String("buildId", res.BuildID))
	return nil
}
