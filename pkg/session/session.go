package session

import (
	"net/http"
	"sync"
	"time"

	"rfqdash/pkg/rfq"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	CookieName = "rfqdash_session"
	// DefaultIdleTimeout ends sessions that have not been seen for this long.
	DefaultIdleTimeout = 12 * time.Hour
	sweepInterval      = time.Minute
)

var nowFunc = time.Now

// State is the per-session input to the dashboard pipeline.
type State struct {
	Authenticated bool
	Scope         rfq.Scope
	Selection     rfq.Selection
}

// Session is created at first visit and destroyed at logout or once it has
// been idle longer than the manager's timeout. Its state is never shared with
// other sessions.
type Session struct {
	ID      string
	Created time.Time

	// guarded by Manager.mu
	lastSeen time.Time

	mu    sync.Mutex
	state State
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Selection.Divisions = append([]string(nil), s.state.Selection.Divisions...)
	return st
}

func (s *Session) Login(scope rfq.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Authenticated: true, Scope: scope}
}

func (s *Session) SetSelection(sel rfq.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Selection = sel
}

type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	secure    bool
	idle      time.Duration
	lastSweep time.Time
}

func NewManager(secureCookies bool) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		secure:   secureCookies,
		idle:     DefaultIdleTimeout,
	}
}

// SetIdleTimeout changes how long an unused session is kept. Zero or less
// keeps the default.
func (m *Manager) SetIdleTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.idle = d
	m.mu.Unlock()
}

func (m *Manager) Get(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	now := nowFunc()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(now)
	s, ok := m.sessions[c.Value]
	if !ok {
		return nil, false
	}
	if m.expired(s, now) {
		delete(m.sessions, s.ID)
		return nil, false
	}
	s.lastSeen = now
	return s, true
}

// Ensure returns the request's session, starting a new one if needed.
func (m *Manager) Ensure(w http.ResponseWriter, r *http.Request) *Session {
	if s, ok := m.Get(r); ok {
		return s
	}
	return m.Start(w)
}

func (m *Manager) Start(w http.ResponseWriter) *Session {
	now := nowFunc()
	s := &Session{ID: uuid.NewString(), Created: now, lastSeen: now}
	m.mu.Lock()
	m.sweepLocked(now)
	m.sessions[s.ID] = s
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	log.Debugf("started session %s", s.ID)
	return s
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return now.Sub(s.lastSeen) > m.idle
}

// sweepLocked drops idle sessions, at most once per sweepInterval.
func (m *Manager) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("expired %d idle sessions", removed)
	}
}

func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		m.mu.Lock()
		delete(m.sessions, c.Value)
		m.mu.Unlock()
		log.Debugf("destroyed session %s", c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
