package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Rocketstradingco/RTCObott/internal/catalog"
	"github.com/Rocketstradingco/RTCObott/internal/dispatch"
	"github.com/Rocketstradingco/RTCObott/internal/gateway"
)

// Bot groups the interaction-controller HTTP handlers: the component
// interaction endpoint and the register command.
type Bot struct {
	dispatcher *dispatch.Dispatcher
	store      *catalog.Store
	resolver   gateway.Resolver
	token      string
}

// NewBot creates the Bot handler group. An empty token disables bearer
// authentication, intended for local development only.
func NewBot(dispatcher *dispatch.Dispatcher, store *catalog.Store, resolver gateway.Resolver, token string) *Bot {
	return &Bot{
		dispatcher: dispatcher,
		store:      store,
		resolver:   resolver,
		token:      token,
	}
}

// authorized checks the Authorization bearer token.
func (b *Bot) authorized(r *http.Request) bool {
	if b.token == "" {
		return true
	}
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(got), []byte(b.token)) == 1
}

// interactionBody is the wire form of one interaction. Either a full
// action is given, or a clicked component id plus the acting user.
type interactionBody struct {
	dispatch.Action
	ComponentID string `json:"component_id,omitempty"`
}

// Interactions handles POST /interactions. A nil reply from the
// dispatcher (expired or foreign session) maps to 204 No Content.
func (b *Bot) Interactions(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body interactionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	a := body.Action
	if body.ComponentID != "" {
		var ok bool
		a, ok = dispatch.ParseComponentID(body.ComponentID, body.Actor)
		if !ok {
			http.Error(w, "Unknown component", http.StatusBadRequest)
			return
		}
	}
	if a.Kind == "" || a.Actor == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	reply, err := b.dispatcher.Handle(r.Context(), a)
	if err != nil {
		slog.Error("interaction failed", "error", err, "kind", a.Kind, "actor", a.Actor)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		slog.Error("reply encode failed", "error", err)
	}
}

// Register handles POST /register: it publishes one explore message per
// category into the inventory channel and records the message ids so a
// later register edits in place instead of reposting.
func (b *Bot) Register(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	c, err := b.store.Load()
	if err != nil {
		slog.Error("catalog load failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if b.resolver == nil {
		http.Error(w, "No gateway configured", http.StatusConflict)
		return
	}
	sink := b.resolver.Resolve(c.Settings.InventoryChannelID)
	if sink == nil {
		http.Error(w, "No inventory channel configured", http.StatusConflict)
		return
	}

	ids := make(map[string]string, len(c.Categories))
	registered := 0
	for i := range c.Categories {
		cat := &c.Categories[i]
		msg := gateway.Message{
			Embed: gateway.CategoryEmbed(cat, c.Embed),
			Components: []gateway.Component{{
				ID:    fmt.Sprintf("explore_%s", cat.ID),
				Label: c.Embed.ButtonLabel,
				Style: "primary",
			}},
		}

		if cat.MessageID != "" {
			if err := sink.EditMessage(r.Context(), cat.MessageID, msg); err == nil {
				ids[cat.ID] = cat.MessageID
				registered++
				continue
			}
			slog.Warn("explore message edit failed, reposting", "category", cat.ID)
		}

		mid, err := sink.CreateMessage(r.Context(), msg)
		if err != nil {
			slog.Error("explore message post failed", "error", err, "category", cat.ID)
			// Messages posted before the failure must still be recorded,
			// or a retry would repost them as duplicates.
			if err := b.saveMessageIDs(r, ids); err != nil {
				slog.Error("message id save failed", "error", err)
			}
			http.Error(w, "Gateway error", http.StatusBadGateway)
			return
		}
		ids[cat.ID] = mid
		registered++
	}

	if err := b.saveMessageIDs(r, ids); err != nil {
		slog.Error("message id save failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"registered": registered})
}

// saveMessageIDs persists the explore message id per category.
func (b *Bot) saveMessageIDs(r *http.Request, ids map[string]string) error {
	return b.store.Update(r.Context(), func(c *catalog.Catalog) error {
		changed := false
		for i := range c.Categories {
			if mid, ok := ids[c.Categories[i].ID]; ok && c.Categories[i].MessageID != mid {
				c.Categories[i].MessageID = mid
				changed = true
			}
		}
		if !changed {
			return catalog.ErrNoChange
		}
		return nil
	})
}

// Health responds 200 for liveness probes.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("OK"))
}
