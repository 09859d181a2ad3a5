package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgrag/pgrag/internal/config"
	"github.com/pgrag/pgrag/internal/ollama"
)

var (
	chatSystem      string
	chatTemperature float64
	chatSeed        int64
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a single chat message to the model",
	Long: `Send a single chat message to the model without document retrieval.

Passing --seed makes generation reproducible; a seed of 0 is a valid
seed and is forwarded to the provider.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSystem, "system", "", "optional system prompt")
	chatCmd.Flags().Float64Var(&chatTemperature, "temperature", 0.7, "sampling temperature")
	chatCmd.Flags().Int64Var(&chatSeed, "seed", 0, "deterministic sampling seed")
	rootCmd.AddCommand(chatCmd)
}

// runChat talks to the provider directly; no database is needed for a
// pass-through completion.
func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	client := ollama.New(ollama.Config{Host: cfg.OllamaHost}, newLogger())

	var messages []ollama.Message
	if chatSystem != "" {
		messages = append(messages, ollama.Message{Role: ollama.RoleSystem, Content: chatSystem})
	}
	messages = append(messages, ollama.Message{Role: ollama.RoleUser, Content: strings.Join(args, " ")})

	req := ollama.ChatRequest{
		Model:       cfg.ModelName,
		Messages:    messages,
		Temperature: chatTemperature,
	}
	// Changed distinguishes an explicit --seed 0 from no seed at all.
	if cmd.Flags().Changed("seed") {
		seed := chatSeed
		req.Seed = &seed
	}

	reply, err := client.Chat(context.Background(), req)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}

	cmd.Println(reply)
	return nil
}
