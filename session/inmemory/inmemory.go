package inmemory

import (
	"fmt"
	"sync"
	"time"

	"github.com/mohammad-safakhou/researcher/session"
)

// Store keeps sessions in a process-local map. All methods are safe for
// concurrent use.
type Store struct {
	sessions     map[string]*session.Session
	userSessions map[string][]string
	lastTick     int64
	now          func() time.Time
	mu           sync.RWMutex
}

var _ session.Store = (*Store)(nil)

func NewInMemorySessionStore() *Store {
	return &Store{
		sessions:     make(map[string]*session.Session),
		userSessions: make(map[string][]string),
		now:          time.Now,
	}
}

// CreateSession builds the id from user, app and a millisecond tick that is
// forced to increase, so two sessions created in the same millisecond still
// get distinct ids.
func (store *Store) CreateSession(userID, appName string) session.Session {
	if appName == "" {
		appName = "default"
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.now()
	tick := now.UnixMilli()
	if tick <= store.lastTick {
		tick = store.lastTick + 1
	}
	store.lastTick = tick

	sess := &session.Session{
		ID:        fmt.Sprintf("%s_%s_%d", userID, appName, tick),
		UserID:    userID,
		AppName:   appName,
		CreatedAt: now,
		History:   []session.Message{},
		Metadata:  make(map[string]string),
	}
	store.sessions[sess.ID] = sess
	store.userSessions[userID] = append(store.userSessions[userID], sess.ID)
	return copySession(*sess)
}

func (store *Store) AppendMessage(sessionID, content, role string) {
	if role == "" {
		role = session.DefaultRole
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	sess, ok := store.sessions[sessionID]
	if !ok {
		return
	}
	sess.History = append(sess.History, session.Message{
		Role:      role,
		Content:   content,
		Timestamp: store.now(),
	})
}

func (store *Store) RecentHistory(sessionID string, limit int) []session.Message {
	if limit <= 0 {
		limit = session.DefaultHistoryLimit
	}

	store.mu.RLock()
	defer store.mu.RUnlock()
	sess, ok := store.sessions[sessionID]
	if !ok {
		return []session.Message{}
	}
	history := sess.History
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]session.Message, len(history))
	copy(out, history)
	return out
}

func (store *Store) SetMetadata(sessionID, key, value string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if sess, ok := store.sessions[sessionID]; ok {
		sess.Metadata[key] = value
	}
}

func (store *Store) GetSession(sessionID string) (session.Session, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	sess, ok := store.sessions[sessionID]
	if !ok {
		return session.Session{}, false
	}
	return copySession(*sess), true
}

func (store *Store) ListUserSessions(userID string) []string {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return append([]string(nil), store.userSessions[userID]...)
}

func copySession(s session.Session) session.Session {
	out := s
	out.History = append([]session.Message{}, s.History...)
	out.Metadata = make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		out.Metadata[k] = v
	}
	return out
}
