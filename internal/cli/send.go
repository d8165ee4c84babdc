package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a chat message and print the reply",
	Long: `Send a chat message to the model and print the assistant reply.

Examples:
  chathub send "What is a goroutine?"
  chathub send "Summarize the last answer in one sentence"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")

	reply, err := api.Submit(context.Background(), message)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if reply == nil {
		// Blank input is ignored by the server.
		return nil
	}

	fmt.Println(reply.Content)
	return nil
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate <index>",
	Short: "Regenerate the assistant reply at a transcript index",
	Long: `Regenerate the assistant message at the given transcript index using
its preceding message as the prompt. Use 'chathub transcript' to find
the index.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegenerate,
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}

	reply, err := api.Regenerate(context.Background(), index)
	if err != nil {
		return fmt.Errorf("regenerate: %w", err)
	}

	fmt.Println(reply.Content)
	return nil
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Print the current conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		transcript, err := api.Transcript(context.Background())
		if err != nil {
			return fmt.Errorf("transcript: %w", err)
		}

		if len(transcript) == 0 {
			fmt.Println("No messages yet.")
			return nil
		}
		for i, msg := range transcript {
			fmt.Printf("%3d  %-9s  %s\n", i, msg.Role, msg.Content)
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the current conversation (history log is kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.ClearChat(context.Background()); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		fmt.Println("Conversation cleared.")
		return nil
	},
}
