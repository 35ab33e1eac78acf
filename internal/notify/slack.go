package notify

import (
	"context"
	"fmt"

	slackgo "github.com/slack-go/slack"
)

// SlackNotifier posts notifications to a fixed channel.
type SlackNotifier struct {
	client  *slackgo.Client
	channel string
}

// NewSlackNotifier builds a Slack notifier from a bot token and a channel
// id (or name).
func NewSlackNotifier(botToken, channel string) (*SlackNotifier, error) {
	if botToken == "" || channel == "" {
		return nil, fmt.Errorf("slack: bot token and channel are required")
	}
	return &SlackNotifier{client: slackgo.New(botToken), channel: channel}, nil
}

func (s *SlackNotifier) Notify(ctx context.Context, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slackgo.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
