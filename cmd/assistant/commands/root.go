// Package commands implements the assistant CLI: one-shot questions, an
// interactive loop, and report exports.
package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/money-assistant/internal/ai"
	"github.com/dvloznov/money-assistant/internal/config"
	"github.com/dvloznov/money-assistant/internal/logger"
	"github.com/dvloznov/money-assistant/internal/pipeline"
	"github.com/dvloznov/money-assistant/internal/store"
	"github.com/dvloznov/money-assistant/internal/store/factory"
)

var (
	cfg  *config.Config
	log  zerolog.Logger
	st   store.Store
	pipe *pipeline.Pipeline

	offline bool
	mode    string
)

// Execute runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:          "assistant",
		Short:        "Personal finance assistant driven by natural-language commands",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if st != nil {
				return st.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&offline, "offline", false, "skip the AI assistant even when credentials exist")
	root.PersistentFlags().StringVar(&mode, "mode", "", "pin the domain: expense, monthly_budget, category_budget, chat")

	root.AddCommand(askCmd(), replCmd(), exportCmd())
	return root.Execute()
}

func setup(cmd *cobra.Command) error {
	log = logger.New()

	cfg = config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	var err error
	st, err = factory.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}

	var assistant pipeline.Assistant
	if !offline {
		if client, err := ai.NewClient(cmd.Context(), cfg.GeminiModel); err != nil {
			log.Warn().Err(err).Msg("Assistant unavailable, running offline")
		} else {
			assistant = client
		}
	}

	pipe = pipeline.New(st, pipeline.Options{
		Assistant: assistant,
		Oracle: pipeline.OracleFunc(func(context.Context) bool {
			return assistant != nil
		}),
		Logger: log,
	})
	return nil
}
