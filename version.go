package pdfqa

// Version is set at build time with -ldflags "-X github.com/a-h/pdfqa.Version=...".
var Version = "dev"
