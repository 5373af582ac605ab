package session

import (
	"time"
)

const (
	// DefaultHistoryLimit bounds RecentHistory when the caller passes no limit.
	DefaultHistoryLimit = 10
	// DefaultRole is used when a message is appended without a role.
	DefaultRole = "assistant"

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a session's conversational history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a per-call conversational context. Values returned by a Store
// are copies; mutate a session only through the Store.
type Session struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	AppName   string            `json:"app_name"`
	CreatedAt time.Time         `json:"created_at"`
	History   []Message         `json:"history"`
	Metadata  map[string]string `json:"metadata"`
}

// Store owns sessions for the lifetime of the process.
type Store interface {
	// CreateSession allocates a session with an id unique within the process.
	CreateSession(userID, appName string) Session
	// AppendMessage adds to the session history. Unknown ids are ignored.
	AppendMessage(sessionID, content, role string)
	// RecentHistory returns at most limit most-recent messages, oldest first.
	RecentHistory(sessionID string, limit int) []Message
	// SetMetadata records a key on the session. Unknown ids are ignored.
	SetMetadata(sessionID, key, value string)
	GetSession(sessionID string) (Session, bool)
	ListUserSessions(userID string) []string
}
