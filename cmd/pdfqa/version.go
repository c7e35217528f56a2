package main

import (
	"context"
	"fmt"

	"github.com/a-h/pdfqa"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(pdfqa.Version)
	return nil
}
