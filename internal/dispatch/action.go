// Package dispatch turns user interactions into catalog operations. The
// set of actions is closed: every interaction the chat surface can deliver
// maps to exactly one tagged variant consumed by the Dispatcher.
package dispatch

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Kind tags an action variant.
type Kind string

const (
	// OpenCategory starts a fresh browse session over a category.
	OpenCategory Kind = "open_category"
	// NavigatePrev moves the session one page back.
	NavigatePrev Kind = "prev"
	// NavigateNext moves the session one page forward.
	NavigateNext Kind = "next"
	// OpenCard switches the session into the card detail sub-view.
	OpenCard Kind = "open_card"
	// FlipCard toggles the shown card face.
	FlipCard Kind = "flip_card"
	// CloseCard returns from card detail to the first list page.
	CloseCard Kind = "close_card"
	// Claim attempts to claim the card for the actor.
	Claim Kind = "claim"
	// Unclaim attempts to release the actor's claim on the card.
	Unclaim Kind = "unclaim"
)

// Action is one user interaction. Actor is the opaque identity supplied by
// the platform; the dispatcher only ever compares it for equality.
type Action struct {
	Kind       Kind   `json:"type"`
	Actor      string `json:"actor"`
	CategoryID string `json:"category_id,omitempty"`
	CardID     string `json:"card_id,omitempty"`
	Grid       int    `json:"grid,omitempty"` // already-resolved grid dimension hint
}

// Decode reads one action from a JSON interaction body.
func Decode(r io.Reader) (Action, error) {
	var a Action
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return Action{}, fmt.Errorf("decode action: %w", err)
	}
	if a.Kind == "" {
		return Action{}, fmt.Errorf("decode action: missing type")
	}
	if a.Actor == "" {
		return Action{}, fmt.Errorf("decode action: missing actor")
	}
	return a, nil
}

// ParseComponentID translates a clicked component id back into an action.
// Component ids are produced by the dispatcher's replies, e.g.
// "explore_2", "card_2_7", "claim_2_7", "back_2". Unknown ids return
// ok=false.
func ParseComponentID(id, actor string) (Action, bool) {
	parts := strings.Split(id, "_")
	a := Action{Actor: actor}
	switch {
	case len(parts) == 2 && parts[0] == "explore":
		a.Kind, a.CategoryID = OpenCategory, parts[1]
	case len(parts) == 2 && parts[0] == "prev":
		a.Kind, a.CategoryID = NavigatePrev, parts[1]
	case len(parts) == 2 && parts[0] == "next":
		a.Kind, a.CategoryID = NavigateNext, parts[1]
	case len(parts) == 2 && parts[0] == "back":
		a.Kind, a.CategoryID = CloseCard, parts[1]
	case len(parts) == 3 && parts[0] == "card":
		a.Kind, a.CategoryID, a.CardID = OpenCard, parts[1], parts[2]
	case len(parts) == 3 && parts[0] == "flip":
		a.Kind, a.CategoryID, a.CardID = FlipCard, parts[1], parts[2]
	case len(parts) == 3 && parts[0] == "claim":
		a.Kind, a.CategoryID, a.CardID = Claim, parts[1], parts[2]
	case len(parts) == 3 && parts[0] == "unclaim":
		a.Kind, a.CategoryID, a.CardID = Unclaim, parts[1], parts[2]
	default:
		return Action{}, false
	}
	return a, true
}
