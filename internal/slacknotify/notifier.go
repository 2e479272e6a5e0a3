// Package slacknotify posts worker notifications to Slack channels.
package slacknotify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
)

// API is the part of the Slack client the notifier uses. Satisfied by
// *slack.Client; substituted in tests.
type API interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SendOptions are the optional knobs for Send.
type SendOptions struct {
	// ThreadTS posts the message as a threaded reply.
	ThreadTS string
	// IconEmoji overrides the bot icon.
	IconEmoji string
	// Username overrides the bot display name.
	Username string
}

// Notifier sends messages to Slack. Construct with New and pass by
// reference.
type Notifier struct {
	api    API
	logger *slog.Logger
}

// New creates a notifier with its own Slack client for the given token.
func New(token string, logger *slog.Logger) (*Notifier, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("slacknotify: token is required")
	}
	return NewWithAPI(slack.New(token), logger), nil
}

// NewWithAPI creates a notifier around an existing client.
func NewWithAPI(api API, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{api: api, logger: logger}
}

// Send posts a message to a channel and returns the message timestamp,
// which callers can pass back as ThreadTS for threaded follow-ups.
func (n *Notifier) Send(ctx context.Context, channel, text string, opts SendOptions) (string, error) {
	msgOpts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if opts.ThreadTS != "" {
		msgOpts = append(msgOpts, slack.MsgOptionTS(opts.ThreadTS))
	}
	if opts.IconEmoji != "" {
		msgOpts = append(msgOpts, slack.MsgOptionIconEmoji(opts.IconEmoji))
	}
	if opts.Username != "" {
		msgOpts = append(msgOpts, slack.MsgOptionUsername(opts.Username))
	}

	_, ts, err := n.api.PostMessageContext(ctx, channel, msgOpts...)
	if err != nil {
		n.logger.Error("slack message send failed", "channel", channel, "error", err)
		return "", fmt.Errorf("slacknotify: send to %s: %w", channel, err)
	}
	return ts, nil
}

// SendQuietly posts a message and logs failures instead of returning
// them, for notifications that must never break the caller.
func (n *Notifier) SendQuietly(ctx context.Context, channel, text string, opts SendOptions) string {
	ts, err := n.Send(ctx, channel, text, opts)
	if err != nil {
		return ""
	}
	return ts
}
