package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgrag/pgrag/internal/app"
	"github.com/pgrag/pgrag/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question using retrieved document context",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	a, err := app.Setup(ctx, cfg, newLogger())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close() //nolint:errcheck

	answer, err := a.Engine.Answer(ctx, question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	cmd.Println(answer)
	return nil
}
