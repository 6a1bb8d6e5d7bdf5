package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Turn is one entry of the conversation transcript. Tool turns carry the raw
// tool output so later extraction can resolve IDs mentioned only there.
type Turn struct {
	Role       string `json:"role"` // user | assistant | tool | system
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// Session is the persisted per-conversation record: the active booking
// attempt plus the transcript the analyzer needs for context. Turns within a
// session are serialized upstream, so no locking is required here.
type Session struct {
	SessionID string `json:"session_id"`
	ChatID    string `json:"chat_id"`
	AttemptID string `json:"attempt_id,omitempty"` // current booking attempt

	Booking Booking `json:"booking"`
	Turns   []Turn  `json:"turns,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNilSession      = errors.New("session is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

func NewSession(sessionID, chatID string, now time.Time) *Session {
	return &Session{
		SessionID: sessionID,
		ChatID:    chatID,
		AttemptID: uuid.NewString(),
		Booking:   NewBooking(),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// ResetAttempt discards the finalized booking and opens a fresh empty attempt.
func (s *Session) ResetAttempt() {
	s.AttemptID = uuid.NewString()
	s.Booking = NewBooking()
}

// AppendTurn records a transcript entry, dropping fully empty non-tool turns.
func (s *Session) AppendTurn(t Turn) {
	if strings.TrimSpace(t.Content) == "" && t.Role != RoleTool {
		return
	}
	s.Turns = append(s.Turns, t)
}

// RecentTurns returns the last n non-system turns, tool results included.
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 {
		return nil
	}
	filtered := make([]Turn, 0, len(s.Turns))
	for _, t := range s.Turns {
		if t.Role == RoleSystem {
			continue
		}
		filtered = append(filtered, t)
	}
	if len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}

func (s *Session) Validate() error {
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if s.Booking.SlotVerified() && s.Booking.SlotTime == nil {
		return fmt.Errorf("slot_time_verified set while slot_time is empty")
	}
	return nil
}
