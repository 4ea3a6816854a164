package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fundprep/examgen/internal/app"
	"github.com/fundprep/examgen/internal/exam"
)

// runApp builds the controller and launches the TUI. When the selected
// provider has no key, the TUI asks for one before showing the menu.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()
	e, err := setup(cmd, logTUI)
	if err != nil {
		return err
	}
	defer e.close()

	ctrl, err := e.controller(ctx, e.cfg.LLM)
	if err != nil {
		return err
	}

	opts := app.Options{
		Catalog:        e.catalog,
		DefaultVariant: e.cfg.Catalog.Variant,
		Controller:     ctrl,
		KeyEnv:         e.cfg.LLM.KeyEnv(),
		Status: func(c *exam.Controller) string {
			return status(e.cfg.LLM, c)
		},
	}
	if opts.KeyEnv != "" {
		opts.Connect = func(key string) (*exam.Controller, error) {
			c, err := e.controller(ctx, e.cfg.LLM.WithCredential(key))
			if err != nil {
				return nil, fmt.Errorf("connect %s: %w", e.cfg.LLM.Provider, err)
			}
			return c, nil
		}
	}
	return app.Run(ctx, opts)
}
