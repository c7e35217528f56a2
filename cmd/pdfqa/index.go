package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/a-h/pdfqa/client"
)

type IndexCommand struct {
	ServerURL string `help:"The URL of the pdfqa server." env:"PDFQA_SERVER_URL" default:"http://localhost:9020"`
	Pretty    bool   `help:"Pretty print the JSON output." default:"true"`
}

func (c IndexCommand) Run(ctx context.Context) (err error) {
	resp, err := client.New(c.ServerURL).IndexGet(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
