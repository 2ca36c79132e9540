package model

import "time"

// TurnRole represents the role of a conversation turn
type TurnRole string

const (
	TurnRoleUser  TurnRole = "user"
	TurnRoleModel TurnRole = "model"
)

// SessionState represents the observable lifecycle state of a chat session
type SessionState string

const (
	// SessionAwaitingFirstMessage: just created, history holds only the system turn
	SessionAwaitingFirstMessage SessionState = "awaiting_first_message"
	// SessionActive: at least one user/model exchange has occurred
	SessionActive SessionState = "active"
)

// Turn is a single entry in a session's conversation history
type Turn struct {
	Role TurnRole `json:"role"`
	Text string   `json:"text"`
}

// Session is one continuing conversation with the simulated vulnerable
// assistant, tied to exactly one challenge level for its entire lifetime.
// Sessions live in the session store (Redis with TTL, or in-process memory),
// not in Postgres. History is append-only; the first turn is always the
// level's rendered context prompt with its secret substituted.
type Session struct {
	ID        string       `json:"id"` // Opaque, unguessable
	LevelKey  string       `json:"level_key"`
	State     SessionState `json:"state"`
	History   []Turn       `json:"history"`
	CreatedAt time.Time    `json:"created_at"`
}

// Exchanged reports whether at least one user/model exchange has occurred
// beyond the seeded system turn.
func (s *Session) Exchanged() bool {
	return len(s.History) > 1
}
