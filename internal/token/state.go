package token

import "github.com/google/uuid"

// SessionState is the client-carried session: an opaque id plus the token
// balance. It round-trips through every request and response, the browser is
// its only durable home.
type SessionState struct {
	ID     string `json:"session_id"`
	Tokens int    `json:"tokens"`
}

// InitializeSession keeps a client-supplied id and balance, otherwise mints
// a fresh id with a zero balance.
func InitializeSession(existing SessionState) SessionState {
	if existing.ID == "" {
		existing.ID = uuid.NewString()
		existing.Tokens = 0
	}
	if existing.Tokens < 0 {
		existing.Tokens = 0
	}
	return existing
}
