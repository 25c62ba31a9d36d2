// Package announce publishes battle results to chat platforms (Slack,
// Discord). Adapters are send-only: arena announces outcomes, it does not
// hold conversations.
package announce

import (
	"context"
	"fmt"
	"log"

	"github.com/zulandar/arena/internal/battle"
)

// Adapter is the interface platform implementations must satisfy.
type Adapter interface {
	// Send delivers a message to the platform. An empty Message.Channel
	// targets the adapter's default channel.
	Send(ctx context.Context, msg Message) error

	// Close releases the adapter's connection.
	Close() error
}

// Message is one outbound announcement.
type Message struct {
	Channel string
	Text    string
}

// Announcer fans a battle result out to all configured adapters.
type Announcer struct {
	adapters []Adapter
}

// New creates an Announcer over the given adapters. A nil or empty adapter
// list produces a no-op announcer.
func New(adapters ...Adapter) *Announcer {
	return &Announcer{adapters: adapters}
}

// VoteResult announces a finalized vote. Per-adapter failures are logged
// and skipped; announcements are best-effort and never fail the vote that
// triggered them.
func (a *Announcer) VoteResult(ctx context.Context, res *battle.VoteResult) {
	if res == nil {
		return
	}
	msg := Message{Text: FormatVoteResult(res)}
	for _, adapter := range a.adapters {
		if err := adapter.Send(ctx, msg); err != nil {
			log.Printf("announce: send failed: %v", err)
		}
	}
}

// Close closes every adapter, returning the first error encountered.
func (a *Announcer) Close() error {
	var first error
	for _, adapter := range a.adapters {
		if err := adapter.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// FormatVoteResult renders one finalized vote as a single announcement line
// plus both sides' rating movement.
func FormatVoteResult(res *battle.VoteResult) string {
	a, b := res.AgentA, res.AgentB

	var headline string
	switch {
	case res.Battle.VoteType != nil && *res.Battle.VoteType == battle.VoteBothBad:
		headline = fmt.Sprintf("Both %s and %s judged bad; ratings frozen", sideName(a), sideName(b))
	case a.Won && b.Won:
		headline = fmt.Sprintf("%s and %s fought to a tie", sideName(a), sideName(b))
	case a.Won:
		headline = fmt.Sprintf("%s beat %s", sideName(a), sideName(b))
	default:
		headline = fmt.Sprintf("%s beat %s", sideName(b), sideName(a))
	}

	return fmt.Sprintf("%s\n%s: %.0f → %.0f (%+d)\n%s: %.0f → %.0f (%+d)",
		headline,
		sideName(a), a.OldRating, a.NewRating, a.Change,
		sideName(b), b.OldRating, b.NewRating, b.Change)
}

func sideName(s battle.SideResult) string {
	if s.Model != "" {
		return fmt.Sprintf("%s (%s)", s.AgentType, s.Model)
	}
	return s.AgentType
}
