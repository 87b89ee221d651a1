package claims

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Rocketstradingco/RTCObott/internal/catalog"
	"github.com/Rocketstradingco/RTCObott/internal/gateway"
)

// NoClaimsPlaceholder is rendered when no card in the catalog is claimed.
const NoClaimsPlaceholder = "No claims yet"

// Render derives the claims summary text: one "{card} - {claimant}" line
// per claimed card, in catalog order. The summary is a cache, never
// authoritative; it is always regenerated whole from the catalog.
func Render(c *catalog.Catalog) string {
	var b strings.Builder
	for _, cat := range c.Categories {
		for _, card := range cat.Cards {
			if !card.Claimed() {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s - %s", card.Name, card.ClaimedBy)
		}
	}
	if b.Len() == 0 {
		return NoClaimsPlaceholder
	}
	return b.String()
}

// Publisher keeps the claims summary message in the configured claims
// channel in sync with the ledger.
type Publisher struct {
	store    *catalog.Store
	resolver gateway.Resolver
}

// NewPublisher creates a summary publisher. resolver may be nil, in which
// case every publish is a no-op.
func NewPublisher(store *catalog.Store, resolver gateway.Resolver) *Publisher {
	return &Publisher{store: store, resolver: resolver}
}

// Publish re-renders the summary and pushes it to the claims channel. If a
// prior summary message is still resolvable it is edited in place;
// otherwise a new message is created and its id persisted into the
// settings for future edits. Without a configured channel this is a no-op.
func (p *Publisher) Publish(ctx context.Context, c *catalog.Catalog) error {
	if p.resolver == nil || c.Settings.ClaimsChannelID == "" {
		return nil
	}
	sink := p.resolver.Resolve(c.Settings.ClaimsChannelID)
	if sink == nil {
		slog.Debug("claims channel not resolvable, skipping summary publish",
			"channel", c.Settings.ClaimsChannelID)
		return nil
	}

	msg := gateway.Message{Content: Render(c)}

	if id := c.Settings.ClaimsMessageID; id != "" {
		err := sink.EditMessage(ctx, id, msg)
		if err == nil {
			return nil
		}
		// Message deleted externally or otherwise unresolvable; fall
		// through and replace it.
		slog.Warn("claims summary edit failed, creating new message",
			"message_id", id, "error", err)
	}

	id, err := sink.CreateMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("publish claims summary: %w", err)
	}

	return p.store.Update(ctx, func(c *catalog.Catalog) error {
		if c.Settings.ClaimsMessageID == id {
			return catalog.ErrNoChange
		}
		c.Settings.ClaimsMessageID = id
		return nil
	})
}
