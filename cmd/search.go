package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgrag/pgrag/internal/app"
	"github.com/pgrag/pgrag/internal/config"
	"github.com/pgrag/pgrag/internal/knowledge"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find stored documents most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", knowledge.DefaultTopK, "number of results to return")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchTopK < 1 {
		return fmt.Errorf("--top-k must be a positive integer, got %d", searchTopK)
	}

	query := strings.Join(args, " ")

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

	results, err := a.Knowledge.Search(ctx, query, knowledge.WithTopK(searchTopK))
	if err != nil {
		return fmt.Errorf("searching documents: %w", err)
	}

	if len(results) == 0 {
		cmd.Println("no documents stored")
		return nil
	}

	for _, res := range results {
		cmd.Printf("%6d  %.4f  %s\n", res.ID, res.Score, firstLine(res.Content))
	}
	return nil
}

// firstLine truncates content to its first line for terminal display.
func firstLine(s string) string {
	if line, _, found := strings.Cut(s, "\n"); found {
		return line + " …"
	}
	return s
}
