package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
)

type AskCommand struct {
	ConfigFlags `embed:""`
	Question    string `arg:"" help:"The question to ask."`
	Sources     bool   `help:"Print the passages the answer was drawn from." default:"false"`
}

func (c AskCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	cfg, err := loadConfig(c.ConfigFlags)
	if err != nil {
		return err
	}
	p, err := newPipeline(ctx, log, cfg)
	if err != nil {
		return err
	}
	res, err := p.Ask(ctx, c.Question)
	if err != nil {
		return err
	}
	fmt.Println(res.Answer)
	if c.Sources {
		for _, s := range res.Sources {
			color.Cyan("\n[%d] %.3f\n", s.Position, s.Score)
			fmt.Println(s.Text)
		}
	}
	return nil
}
