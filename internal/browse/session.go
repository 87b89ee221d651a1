// Package browse holds the per-user pagination state over one category.
// Sessions are ephemeral: created when a user opens a category, replaced
// on navigation, and evicted after an idle timeout. Nothing here is
// persisted.
package browse

import (
	"sync"
	"time"

	"github.com/Rocketstradingco/RTCObott/internal/catalog"
)

const (
	// DefaultGrid is the grid dimension used when settings carry none.
	DefaultGrid = 3

	// DefaultTTL is how long an idle session stays alive. After this the
	// user must reopen the category.
	DefaultTTL = 300 * time.Second

	// maxSessions bounds the session map. When full, the oldest session
	// is evicted to make room.
	maxSessions = 1024
)

// View is the sub-view a session is in.
type View int

const (
	ViewList View = iota
	ViewCard
)

// Face selects which card face the detail view shows.
type Face string

const (
	FaceFront Face = "front"
	FaceBack  Face = "back"
)

// Session is one user's browsing state over one category.
type Session struct {
	Actor      string
	CategoryID string
	Index      int // page start offset, always a multiple of PageSize
	Grid       int // grid dimension N; page size is N*N
	View       View
	CardID     string // set while View == ViewCard
	Face       Face

	lastSeen time.Time
}

// PageSize returns the number of cards per page (N squared).
func (s *Session) PageSize() int {
	return s.Grid * s.Grid
}

// Next advances to the next page if one exists. Advancing past the last
// partial page is not allowed.
func (s *Session) Next(total int) {
	if s.Index+s.PageSize() < total {
		s.Index += s.PageSize()
	}
}

// Prev moves back one page, clamped at the first page.
func (s *Session) Prev() {
	s.Index -= s.PageSize()
	if s.Index < 0 {
		s.Index = 0
	}
}

// HasPrev reports whether a previous page exists.
func (s *Session) HasPrev() bool {
	return s.Index > 0
}

// HasNext reports whether a next page exists.
func (s *Session) HasNext(total int) bool {
	return s.Index+s.PageSize() < total
}

// Window returns the cards visible on the current page.
func (s *Session) Window(cards []catalog.Card) []catalog.Card {
	if s.Index >= len(cards) {
		return nil
	}
	end := s.Index + s.PageSize()
	if end > len(cards) {
		end = len(cards)
	}
	return cards[s.Index:end]
}

// OpenCard switches the session into the card detail sub-view, front face
// first.
func (s *Session) OpenCard(cardID string) {
	s.View = ViewCard
	s.CardID = cardID
	s.Face = FaceFront
}

// Flip toggles the shown card face.
func (s *Session) Flip() {
	if s.Face == FaceFront {
		s.Face = FaceBack
	} else {
		s.Face = FaceFront
	}
}

// Manager owns the live sessions in a bounded, timeout-evicting map keyed
// by (actor, category). Expired entries are dropped lazily on access and
// by a periodic sweep.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	stopCh   chan struct{}
	now      func() time.Time
}

// NewManager creates a session manager and starts its sweep goroutine.
// ttl <= 0 selects DefaultTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-m.stopCh:
				return
			}
		}
	}()

	return m
}

// Stop terminates the sweep goroutine.
func (m *Manager) Stop() {
	close(m.stopCh)
}

func sessionKey(actor, categoryID string) string {
	return actor + "\x00" + categoryID
}

// Open creates a fresh session at the first page for (actor, category),
// replacing any existing one, and returns a snapshot of it. grid <= 0
// selects DefaultGrid.
func (m *Manager) Open(actor, categoryID string, grid int) Session {
	if grid <= 0 {
		grid = DefaultGrid
	}
	s := &Session{
		Actor:      actor,
		CategoryID: categoryID,
		Grid:       grid,
		Face:       FaceFront,
		lastSeen:   m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= maxSessions {
		m.evictOneLocked()
	}
	m.sessions[sessionKey(actor, categoryID)] = s
	return *s
}

// lookupLocked resolves the live session for (actor, category), dropping
// it when expired and refreshing its idle clock otherwise. Caller holds
// m.mu.
func (m *Manager) lookupLocked(actor, categoryID string) *Session {
	key := sessionKey(actor, categoryID)
	s, ok := m.sessions[key]
	if !ok {
		return nil
	}
	if m.now().Sub(s.lastSeen) > m.ttl {
		delete(m.sessions, key)
		return nil
	}
	s.lastSeen = m.now()
	return s
}

// Get returns a snapshot of the live session for (actor, category),
// refreshing its idle clock. ok is false when none exists or it has
// expired. Because the key includes the actor, another user's interaction
// can never reach a session it does not own.
func (m *Manager) Get(actor, categoryID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.lookupLocked(actor, categoryID)
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

// With runs fn against the live session for (actor, category) and returns
// the post-mutation snapshot. The whole call holds the manager lock, so
// concurrent interactions from the same actor serialize instead of racing
// on the session fields. ok is false when no live session exists; fn does
// not run.
func (m *Manager) With(actor, categoryID string, fn func(*Session)) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.lookupLocked(actor, categoryID)
	if s == nil {
		return Session{}, false
	}
	fn(s)
	return *s, true
}

// Close discards the session for (actor, category), if any.
func (m *Manager) Close(actor, categoryID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(actor, categoryID))
}

// sweep drops every expired session.
func (m *Manager) sweep() {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, key)
		}
	}
}

// evictOneLocked removes the stalest session to keep the map bounded.
// Caller holds m.mu.
func (m *Manager) evictOneLocked() {
	var oldestKey string
	var oldest time.Time
	for key, s := range m.sessions {
		if oldestKey == "" || s.lastSeen.Before(oldest) {
			oldestKey = key
			oldest = s.lastSeen
		}
	}
	if oldestKey != "" {
		delete(m.sessions, oldestKey)
	}
}
