package api

import "github.com/google/uuid"

const sessionPrefix = "session_"

// Session is the opaque conversation token sent with every message. It is
// regenerated when the conversation is cleared.
type Session struct {
	id string
}

func NewSession() *Session {
	return &Session{id: newSessionID()}
}

func (s *Session) ID() string {
	return s.id
}

// Reset replaces the token and returns the new one.
func (s *Session) Reset() string {
	s.id = newSessionID()
	return s.id
}

func newSessionID() string {
	return sessionPrefix + uuid.NewString()
}
