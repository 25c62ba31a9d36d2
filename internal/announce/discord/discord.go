// Package discord implements the announce Adapter over the Discord REST API.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/arena/internal/announce"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// Adapter implements announce.Adapter for Discord. Announcements go over
// plain REST; no gateway connection is opened.
type Adapter struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Discord Adapter.
type Opts struct {
	// BotToken is the Discord bot token (without the "Bot " prefix).
	BotToken string
	// ChannelID is the default channel for announcements.
	ChannelID string
}

// New creates a Discord Adapter.
func New(opts Opts) (*Adapter, error) {
	if opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}

	sess, err := discordgo.New("Bot " + opts.BotToken)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &Adapter{sess: sess, channelID: opts.ChannelID}, nil
}

// Send posts the message to the target channel. discordgo handles Discord's
// rate limits internally.
func (a *Adapter) Send(ctx context.Context, msg announce.Message) error {
	channelID := msg.Channel
	if channelID == "" {
		channelID = a.channelID
	}

	if _, err := a.sess.ChannelMessageSend(channelID, msg.Text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

// Close releases the underlying session.
func (a *Adapter) Close() error {
	if err := a.sess.Close(); err != nil {
		return fmt.Errorf("discord: close session: %w", err)
	}
	return nil
}
