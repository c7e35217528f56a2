package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

type CLI struct {
	Serve   ServeCommand   `cmd:"serve" help:"Start the question answering server."`
	Ingest  IngestCommand  `cmd:"ingest" help:"Build the local index from PDF files."`
	Ask     AskCommand     `cmd:"ask" help:"Ask a question against the local index."`
	Upload  UploadCommand  `cmd:"upload" help:"Upload PDF files to a server and rebuild its index."`
	Chat    ChatCommand    `cmd:"chat" help:"Ask a server questions interactively."`
	Context ContextCommand `cmd:"context" help:"Get the passages a server would use to answer a question."`
	Index   IndexCommand   `cmd:"index" help:"Describe the index held by a server."`
	Version VersionCommand `cmd:"version" help:"Print the version of pdfqa."`
}

func main() {
	// The .env file is optional.
	_ = godotenv.Load()

	var cli CLI
	ctx := context.Background()
	kctx := kong.Parse(&cli, kong.UsageOnError(), kong.BindTo(ctx, (*context.Context)(nil)))
	if err := kctx.Run(); err != nil {
		log := getLogger("error")
		log.Error("error", slog.Any("error", err))
		os.Exit(1)
	}
}

func getLogger(level string) *slog.Logger {
	ll := slog.LevelInfo
	switch level {
	case "debug":
		ll = slog.LevelDebug
	case "info":
		ll = slog.LevelInfo
	case "warn":
		ll = slog.LevelWarn
	case "error":
		ll = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ll,
	}))
}
