package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/a-h/pdfqa/client"
	"github.com/a-h/pdfqa/models"
)

type ContextCommand struct {
	ServerURL string `help:"The URL of the pdfqa server." env:"PDFQA_SERVER_URL" default:"http://localhost:9020"`
	Text      string `arg:"" help:"The question to find passages for."`
	Pretty    bool   `help:"Pretty print the JSON output." default:"true"`
}

func (c ContextCommand) Run(ctx context.Context) (err error) {
	resp, err := client.New(c.ServerURL).ContextPost(ctx, models.ContextPostRequest{
		Text: c.Text,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
