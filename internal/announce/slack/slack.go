// Package slack implements the announce Adapter for Slack's Web API.
package slack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/arena/internal/announce"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// client abstracts the Slack API methods we use, enabling test mocks.
type client interface {
	AuthTest() (*slackapi.AuthTestResponse, error)
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Adapter implements announce.Adapter over the Slack Web API.
type Adapter struct {
	client    client
	channelID string
}

// Opts holds parameters for creating a Slack Adapter.
type Opts struct {
	// BotToken is the xoxb- bot token.
	BotToken string
	// ChannelID is the default channel for announcements.
	ChannelID string
}

// New creates a Slack Adapter and verifies the token with auth.test.
func New(opts Opts) (*Adapter, error) {
	if opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel ID is required")
	}

	a := &Adapter{
		client:    slackapi.New(opts.BotToken),
		channelID: opts.ChannelID,
	}
	if _, err := a.client.AuthTest(); err != nil {
		return nil, fmt.Errorf("slack: auth test: %w", err)
	}
	return a, nil
}

// Send posts the message, honoring Slack rate limits with bounded retries.
func (a *Adapter) Send(ctx context.Context, msg announce.Message) error {
	channelID := msg.Channel
	if channelID == "" {
		channelID = a.channelID
	}

	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := a.client.PostMessage(channelID,
			slackapi.MsgOptionText(msg.Text, false))
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// Close is a no-op; the Web API client holds no connection.
func (a *Adapter) Close() error { return nil }

// retryOnRateLimit runs fn, retrying up to maxRetries times when Slack
// returns a rate-limit error, waiting the advertised Retry-After (or an
// exponential fallback) between attempts.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err // not a rate limit error, don't retry
		}

		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
