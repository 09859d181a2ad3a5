package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgrag/pgrag/internal/app"
	"github.com/pgrag/pgrag/internal/config"
)

var addMetadata string

var addCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Store a document and its embedding",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addMetadata, "metadata", "", "document metadata as a JSON object")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	content := strings.Join(args, " ")

	var metadata map[string]any
	if addMetadata != "" {
		if err := json.Unmarshal([]byte(addMetadata), &metadata); err != nil {
			return fmt.Errorf("parsing --metadata: %w", err)
		}
	}

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

	doc, err := a.Knowledge.Add(ctx, content, metadata)
	if err != nil {
		return fmt.Errorf("adding document: %w", err)
	}

	cmd.Printf("stored document %d\n", doc.ID)
	return nil
}
