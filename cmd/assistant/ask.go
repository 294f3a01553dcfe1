package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chat-assistant/internal/app"
	"chat-assistant/internal/models"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message through the assistant and print the replies",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "Session key (default: random)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zapLog := newRootLogger(cfg)
	defer zapLog.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, zapLog, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	key := askSession
	if key == "" {
		key = "cli-" + uuid.NewString()
	}

	replies, err := a.Dispatcher.Dispatch(ctx, models.InboundMessage{
		SessionKey: key,
		Text:       strings.Join(args, " "),
	})
	if err != nil {
		return err
	}

	zapLog.Debug("Dispatched", zap.String("sessionKey", key), zap.Int("replies", len(replies)))
	printReplies(cmd.OutOrStdout(), replies)
	return nil
}

func printReplies(w io.Writer, replies []models.Reply) {
	for _, r := range replies {
		fmt.Fprintln(w, r.Text)
		for _, opt := range r.Options {
			fmt.Fprintf(w, "  [%s]\n", opt)
		}
	}
}
