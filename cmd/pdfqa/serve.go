package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"

	contextpost "github.com/a-h/pdfqa/handlers/context/post"
	documentspost "github.com/a-h/pdfqa/handlers/documents/post"
	indexget "github.com/a-h/pdfqa/handlers/index/get"
	querypost "github.com/a-h/pdfqa/handlers/query/post"
	"github.com/rs/cors"
)

type ServeCommand struct {
	ConfigFlags `embed:""`
	ListenAddr  string `help:"The address to listen on, overrides the config file." env:"LISTEN_ADDR" default:""`
	TLSCertFile string `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile  string `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	cfg, err := loadConfig(c.ConfigFlags)
	if err != nil {
		return err
	}
	if c.ListenAddr != "" {
		cfg.Server.ListenAddr = c.ListenAddr
	}
	p, err := newPipeline(ctx, log, cfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("POST /documents", documentspost.New(log, p, cfg.Server.MaxUploadBytes))
	mux.Handle("POST /query", querypost.New(log, p))
	mux.Handle("POST /context", contextpost.New(log, p))
	mux.Handle("GET /index", indexget.New(log, p))
	withCORSMux := cors.AllowAll().Handler(mux)

	log.Info("Listening", slog.String("addr", cfg.Server.ListenAddr), slog.String("index", cfg.Index.Dir))
	s := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: withCORSMux,
	}
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		log.Info("Enabling TLS mode")
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load cert: %w", err)
		}
		s.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		return s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
	}
	return s.ListenAndServe()
}
