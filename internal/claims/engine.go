// Package claims implements the claim state machine and the derived
// claims-summary view. A card is either unclaimed or claimed by exactly
// one identity; both transitions run inside a single serialized
// read-mutate-write cycle against the catalog store, so two racing claims
// can never both win.
package claims

import (
	"context"

	"github.com/Rocketstradingco/RTCObott/internal/catalog"
)

// Outcome is the user-visible result of a claim or unclaim attempt.
// Precondition failures are outcomes, not errors.
type Outcome int

const (
	// OutcomeClaimed: the card transitioned Unclaimed -> Claimed(actor).
	OutcomeClaimed Outcome = iota
	// OutcomeAlreadyClaimed: the card already had an owner (possibly the
	// actor); state unchanged.
	OutcomeAlreadyClaimed
	// OutcomeUnclaimed: the card transitioned Claimed(actor) -> Unclaimed.
	OutcomeUnclaimed
	// OutcomeNotOwner: the card is unclaimed or owned by someone else;
	// state unchanged.
	OutcomeNotOwner
	// OutcomeNotFound: the category or card id did not resolve.
	OutcomeNotFound
)

// Message returns the user-facing text for the outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeClaimed:
		return "Claimed!"
	case OutcomeAlreadyClaimed:
		return "Already claimed"
	case OutcomeUnclaimed:
		return "Unclaimed"
	case OutcomeNotOwner:
		return "Cannot unclaim"
	default:
		return "Card not found"
	}
}

// Changed reports whether the outcome represents a successful transition.
func (o Outcome) Changed() bool {
	return o == OutcomeClaimed || o == OutcomeUnclaimed
}

// Engine drives claim transitions against the authoritative store.
type Engine struct {
	store    *catalog.Store
	onChange func(ctx context.Context, c *catalog.Catalog)
}

// NewEngine creates a claim engine. onChange, if non-nil, runs after every
// successful transition with the freshly saved catalog; it is where the
// claims summary publish and cache invalidation hook in.
func NewEngine(store *catalog.Store, onChange func(ctx context.Context, c *catalog.Catalog)) *Engine {
	return &Engine{store: store, onChange: onChange}
}

// Claim attempts the Unclaimed -> Claimed(actor) transition. The claimant
// is re-read from the store inside the critical section, never from a
// cached copy, so the check and the write cannot be interleaved by a
// concurrent claim.
func (e *Engine) Claim(ctx context.Context, categoryID, cardID, actor string) (Outcome, error) {
	return e.transition(ctx, categoryID, cardID, func(card *catalog.Card) Outcome {
		if card.Claimed() {
			return OutcomeAlreadyClaimed
		}
		card.ClaimedBy = actor
		return OutcomeClaimed
	})
}

// Unclaim attempts the Claimed(actor) -> Unclaimed transition. Only the
// current claimant may release a card.
func (e *Engine) Unclaim(ctx context.Context, categoryID, cardID, actor string) (Outcome, error) {
	return e.transition(ctx, categoryID, cardID, func(card *catalog.Card) Outcome {
		if card.ClaimedBy != actor {
			return OutcomeNotOwner
		}
		card.ClaimedBy = ""
		return OutcomeUnclaimed
	})
}

// transition runs one atomic try-transition: the card's current state is
// inspected and mutated under the store's update lock, and the document is
// only rewritten when the state actually changed.
func (e *Engine) transition(ctx context.Context, categoryID, cardID string, fn func(*catalog.Card) Outcome) (Outcome, error) {
	var out Outcome
	var saved *catalog.Catalog

	err := e.store.Update(ctx, func(c *catalog.Catalog) error {
		card := c.FindCard(categoryID, cardID)
		if card == nil {
			out = OutcomeNotFound
			return catalog.ErrNoChange
		}
		out = fn(card)
		if !out.Changed() {
			return catalog.ErrNoChange
		}
		saved = c
		return nil
	})
	if err != nil {
		return out, err
	}

	if out.Changed() && e.onChange != nil {
		e.onChange(ctx, saved)
	}
	return out, nil
}
