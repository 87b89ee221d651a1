package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Rocketstradingco/RTCObott/internal/browse"
	"github.com/Rocketstradingco/RTCObott/internal/catalog"
	"github.com/Rocketstradingco/RTCObott/internal/claims"
	"github.com/Rocketstradingco/RTCObott/internal/gateway"
)

// Reply is what the presentation layer renders back to the interacting
// user. A nil reply means the interaction was silently ignored (expired
// session or an actor driving a session they do not own).
type Reply struct {
	Embed      *gateway.Embed      `json:"embed,omitempty"`
	Components []gateway.Component `json:"components,omitempty"`
	Notice     string              `json:"notice,omitempty"`
	Ephemeral  bool                `json:"ephemeral,omitempty"`
}

// Dispatcher consumes actions and drives the browse sessions and the claim
// engine. One dispatcher serves all users.
type Dispatcher struct {
	store    *catalog.Store
	engine   *claims.Engine
	sessions *browse.Manager
}

// New creates a dispatcher.
func New(store *catalog.Store, engine *claims.Engine, sessions *browse.Manager) *Dispatcher {
	return &Dispatcher{store: store, engine: engine, sessions: sessions}
}

// Handle executes one action. The match over action kinds is exhaustive;
// an unknown kind is a caller bug and returns an error.
func (d *Dispatcher) Handle(ctx context.Context, a Action) (*Reply, error) {
	switch a.Kind {
	case OpenCategory:
		return d.openCategory(ctx, a)
	case NavigatePrev, NavigateNext:
		return d.navigate(ctx, a)
	case OpenCard:
		return d.openCard(ctx, a)
	case FlipCard:
		return d.flipCard(ctx, a)
	case CloseCard:
		return d.closeCard(ctx, a)
	case Claim, Unclaim:
		return d.claim(ctx, a)
	default:
		return nil, fmt.Errorf("dispatch: unknown action kind %q", a.Kind)
	}
}

// openCategory reconstructs a fresh session at the first page.
func (d *Dispatcher) openCategory(ctx context.Context, a Action) (*Reply, error) {
	c, err := d.store.Load()
	if err != nil {
		return nil, err
	}
	cat := c.FindCategory(a.CategoryID)
	if cat == nil {
		slog.Debug("category missing for interaction", "category", a.CategoryID, "actor", a.Actor)
		return &Reply{Notice: "Category missing", Ephemeral: true}, nil
	}

	grid := a.Grid
	if grid <= 0 {
		grid = c.Settings.GridSize
	}
	s := d.sessions.Open(a.Actor, a.CategoryID, grid)
	return d.listReply(c, cat, &s), nil
}

// navigate moves the actor's session one page in either direction. A
// missing or foreign session is a silent no-op. The page move runs under
// the manager lock so simultaneous interactions from the same actor
// serialize; the reply is rendered from the returned snapshot.
func (d *Dispatcher) navigate(ctx context.Context, a Action) (*Reply, error) {
	c, err := d.store.Load()
	if err != nil {
		return nil, err
	}
	cat := c.FindCategory(a.CategoryID)

	s, ok := d.sessions.With(a.Actor, a.CategoryID, func(s *browse.Session) {
		if cat == nil {
			return
		}
		if a.Kind == NavigateNext {
			s.Next(len(cat.Cards))
		} else {
			s.Prev()
		}
	})
	if !ok {
		return nil, nil
	}
	if cat == nil {
		return &Reply{Notice: "Category missing", Ephemeral: true}, nil
	}
	return d.listReply(c, cat, &s), nil
}

// openCard switches to the card detail sub-view, front face first.
func (d *Dispatcher) openCard(ctx context.Context, a Action) (*Reply, error) {
	c, err := d.store.Load()
	if err != nil {
		return nil, err
	}
	card := c.FindCard(a.CategoryID, a.CardID)

	s, ok := d.sessions.With(a.Actor, a.CategoryID, func(s *browse.Session) {
		if card != nil {
			s.OpenCard(a.CardID)
		}
	})
	if !ok {
		return nil, nil
	}
	if card == nil {
		return &Reply{Notice: "Card not found", Ephemeral: true}, nil
	}
	return d.cardReply(&s, card), nil
}

// flipCard toggles the shown face of the open card. The card lookup keys
// off the session's own CardID, so it has to happen inside the locked
// mutation.
func (d *Dispatcher) flipCard(ctx context.Context, a Action) (*Reply, error) {
	c, err := d.store.Load()
	if err != nil {
		return nil, err
	}

	var card *catalog.Card
	s, ok := d.sessions.With(a.Actor, a.CategoryID, func(s *browse.Session) {
		if s.View != browse.ViewCard {
			return
		}
		card = c.FindCard(a.CategoryID, s.CardID)
		if card != nil {
			s.Flip()
		}
	})
	if !ok || s.View != browse.ViewCard {
		return nil, nil
	}
	if card == nil {
		return &Reply{Notice: "Card not found", Ephemeral: true}, nil
	}
	return d.cardReply(&s, card), nil
}

// closeCard returns from card detail to the list. The session is rebuilt
// at the first page; the page the user came from is not restored.
func (d *Dispatcher) closeCard(ctx context.Context, a Action) (*Reply, error) {
	s, ok := d.sessions.Get(a.Actor, a.CategoryID)
	if !ok {
		return nil, nil
	}
	c, err := d.store.Load()
	if err != nil {
		return nil, err
	}
	cat := c.FindCategory(a.CategoryID)
	if cat == nil {
		return &Reply{Notice: "Category missing", Ephemeral: true}, nil
	}

	fresh := d.sessions.Open(a.Actor, a.CategoryID, s.Grid)
	return d.listReply(c, cat, &fresh), nil
}

// claim runs the claim or unclaim transition and reports the outcome as an
// ephemeral notice. The session is untouched either way.
func (d *Dispatcher) claim(ctx context.Context, a Action) (*Reply, error) {
	var out claims.Outcome
	var err error
	if a.Kind == Claim {
		out, err = d.engine.Claim(ctx, a.CategoryID, a.CardID, a.Actor)
	} else {
		out, err = d.engine.Unclaim(ctx, a.CategoryID, a.CardID, a.Actor)
	}
	if err != nil {
		return nil, err
	}
	return &Reply{Notice: out.Message(), Ephemeral: true}, nil
}

// listReply renders the current page: one button per card in the window,
// laid out on grid rows, plus prev/next controls when the neighbor page
// exists.
func (d *Dispatcher) listReply(c *catalog.Catalog, cat *catalog.Category, s *browse.Session) *Reply {
	reply := &Reply{Embed: gateway.CategoryEmbed(cat, c.Embed)}

	for i, card := range s.Window(cat.Cards) {
		reply.Components = append(reply.Components, gateway.Component{
			ID:    fmt.Sprintf("card_%s_%s", cat.ID, card.ID),
			Label: card.Name,
			Style: "secondary",
			Row:   i / s.Grid,
		})
	}
	navRow := s.Grid
	if s.HasPrev() {
		reply.Components = append(reply.Components, gateway.Component{
			ID: fmt.Sprintf("prev_%s", cat.ID), Label: "Prev", Style: "primary", Row: navRow,
		})
	}
	if s.HasNext(len(cat.Cards)) {
		reply.Components = append(reply.Components, gateway.Component{
			ID: fmt.Sprintf("next_%s", cat.ID), Label: "Next", Style: "primary", Row: navRow,
		})
	}
	return reply
}

// cardReply renders the card detail sub-view with flip, claim, unclaim and
// back controls.
func (d *Dispatcher) cardReply(s *browse.Session, card *catalog.Card) *Reply {
	return &Reply{
		Embed: gateway.CardEmbed(card, string(s.Face)),
		Components: []gateway.Component{
			{ID: fmt.Sprintf("flip_%s_%s", s.CategoryID, card.ID), Label: "Flip", Style: "secondary"},
			{ID: fmt.Sprintf("claim_%s_%s", s.CategoryID, card.ID), Label: "Claim", Style: "success"},
			{ID: fmt.Sprintf("unclaim_%s_%s", s.CategoryID, card.ID), Label: "Unclaim", Style: "danger"},
			{ID: fmt.Sprintf("back_%s", s.CategoryID), Label: "Back", Style: "secondary"},
		},
	}
}
