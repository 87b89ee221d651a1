package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Rocketstradingco/RTCObott/internal/browse"
	"github.com/Rocketstradingco/RTCObott/internal/catalog"
	"github.com/Rocketstradingco/RTCObott/internal/claims"
	"github.com/Rocketstradingco/RTCObott/internal/dispatch"
	"github.com/Rocketstradingco/RTCObott/internal/gateway"
)

type recordingSink struct {
	created []gateway.Message
	edited  map[string]gateway.Message
	nextID  int

	// createBudget > 0 makes CreateMessage fail after that many posts.
	createBudget int
}

func (s *recordingSink) CreateMessage(ctx context.Context, m gateway.Message) (string, error) {
	if s.createBudget > 0 && len(s.created) >= s.createBudget {
		return "", errors.New("gateway unavailable")
	}
	s.created = append(s.created, m)
	s.nextID++
	return "msg-" + string(rune('0'+s.nextID)), nil
}

func (s *recordingSink) EditMessage(ctx context.Context, id string, m gateway.Message) error {
	if s.edited == nil {
		s.edited = make(map[string]gateway.Message)
	}
	s.edited[id] = m
	return nil
}

type sinkResolver struct {
	sink gateway.Sink
}

func (r *sinkResolver) Resolve(channelID string) gateway.Sink {
	if channelID == "" {
		return nil
	}
	return r.sink
}

func testBot(t *testing.T, token string, resolver gateway.Resolver) (*Bot, *catalog.Store) {
	t.Helper()

	store := catalog.NewStore(filepath.Join(t.TempDir(), "inventory.json"))
	c := catalog.Default()
	cat := c.AddCategory("Alpha")
	c.AddCard(cat.ID, "One", "", "")
	c.AddCard(cat.ID, "Two", "", "")
	c.Settings.InventoryChannelID = "inv-chan"
	if err := store.Save(c); err != nil {
		t.Fatal(err)
	}

	sessions := browse.NewManager(browse.DefaultTTL)
	t.Cleanup(sessions.Stop)
	engine := claims.NewEngine(store, nil)
	dispatcher := dispatch.New(store, engine, sessions)

	return NewBot(dispatcher, store, resolver, token), store
}

func postJSON(t *testing.T, h http.HandlerFunc, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestInteractionsFullAction(t *testing.T) {
	bot, store := testBot(t, "", nil)

	rec := postJSON(t, bot.Interactions, "/interactions", "",
		`{"type":"claim","actor":"u1","category_id":"1","card_id":"1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var reply dispatch.Reply
	if err := json.NewDecoder(rec.Body).Decode(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Notice != "Claimed!" || !reply.Ephemeral {
		t.Errorf("reply = %+v", reply)
	}

	c, _ := store.Load()
	if got := c.FindCard("1", "1").ClaimedBy; got != "u1" {
		t.Errorf("owner = %q, want u1", got)
	}
}

func TestInteractionsComponentID(t *testing.T) {
	bot, _ := testBot(t, "", nil)

	rec := postJSON(t, bot.Interactions, "/interactions", "",
		`{"component_id":"explore_1","actor":"u1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var reply dispatch.Reply
	if err := json.NewDecoder(rec.Body).Decode(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Embed == nil || reply.Embed.Title != "Alpha" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestInteractionsSilentNoOpIs204(t *testing.T) {
	bot, _ := testBot(t, "", nil)

	// Navigation without an open session is silently ignored.
	rec := postJSON(t, bot.Interactions, "/interactions", "",
		`{"type":"next","actor":"u1","category_id":"1"}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestInteractionsBadRequests(t *testing.T) {
	bot, _ := testBot(t, "", nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"missing actor", `{"type":"claim"}`},
		{"missing kind", `{"actor":"u1"}`},
		{"unknown component", `{"component_id":"bogus","actor":"u1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, bot.Interactions, "/interactions", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestInteractionsAuth(t *testing.T) {
	bot, _ := testBot(t, "sekrit", nil)

	body := `{"type":"claim","actor":"u1","category_id":"1","card_id":"1"}`

	rec := postJSON(t, bot.Interactions, "/interactions", "", body)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rec.Code)
	}

	rec = postJSON(t, bot.Interactions, "/interactions", "wrong", body)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", rec.Code)
	}

	rec = postJSON(t, bot.Interactions, "/interactions", "sekrit", body)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", rec.Code)
	}
}

func TestRegisterPostsAndPersistsMessageIDs(t *testing.T) {
	sink := &recordingSink{}
	bot, store := testBot(t, "", &sinkResolver{sink: sink})

	rec := postJSON(t, bot.Register, "/register", "", "{}")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	if len(sink.created) != 1 {
		t.Fatalf("created = %d messages, want 1", len(sink.created))
	}
	msg := sink.created[0]
	if msg.Embed == nil || msg.Embed.Title != "Alpha" {
		t.Errorf("embed = %+v", msg.Embed)
	}
	if len(msg.Components) != 1 || msg.Components[0].ID != "explore_1" {
		t.Errorf("components = %+v", msg.Components)
	}
	if msg.Components[0].Label != "Explore" {
		t.Errorf("button label = %q", msg.Components[0].Label)
	}

	c, _ := store.Load()
	if c.Categories[0].MessageID == "" {
		t.Error("message id not persisted")
	}
}

func TestRegisterEditsExistingMessages(t *testing.T) {
	sink := &recordingSink{}
	bot, store := testBot(t, "", &sinkResolver{sink: sink})

	err := store.Update(context.Background(), func(c *catalog.Catalog) error {
		c.Categories[0].MessageID = "msg-old"
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := postJSON(t, bot.Register, "/register", "", "{}")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	if len(sink.created) != 0 {
		t.Error("register reposted instead of editing")
	}
	if _, ok := sink.edited["msg-old"]; !ok {
		t.Errorf("edited = %v, want msg-old", sink.edited)
	}
}

// A mid-run gateway failure must not lose the ids of messages already
// posted; otherwise a retry would repost them as duplicates.
func TestRegisterPersistsIDsOnPartialFailure(t *testing.T) {
	sink := &recordingSink{createBudget: 1}
	bot, store := testBot(t, "", &sinkResolver{sink: sink})

	err := store.Update(context.Background(), func(c *catalog.Catalog) error {
		c.AddCategory("Beta")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := postJSON(t, bot.Register, "/register", "", "{}")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	c, _ := store.Load()
	if c.Categories[0].MessageID == "" {
		t.Error("id of the message posted before the failure was dropped")
	}
	if c.Categories[1].MessageID != "" {
		t.Errorf("unposted category carries id %q", c.Categories[1].MessageID)
	}

	// The retry edits the surviving message and only posts the missing one.
	sink.createBudget = 0
	rec = postJSON(t, bot.Register, "/register", "", "{}")
	if rec.Code != http.StatusOK {
		t.Fatalf("retry status = %d: %s", rec.Code, rec.Body)
	}
	if len(sink.created) != 2 {
		t.Errorf("created = %d messages total, want 2", len(sink.created))
	}
	if len(sink.edited) != 1 {
		t.Errorf("edited = %v, want the surviving message", sink.edited)
	}
}

func TestRegisterWithoutGatewayIs409(t *testing.T) {
	bot, _ := testBot(t, "", nil)

	rec := postJSON(t, bot.Register, "/register", "", "{}")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}
