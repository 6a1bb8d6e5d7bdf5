package bookingnode

import (
	"errors"
	"strings"
	"time"

	statex "github.com/looktown/booking-assistant/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	ChatID    string
	Text      string
}

type GraphOutput struct {
	Reply        string
	ManagerAlert string
}

// GraphState is the mutable value threaded through the turn graph.
type GraphState struct {
	SessionID string
	ChatID    string
	Text      string
	Now       time.Time

	Session *statex.Session
	Updates map[string]any

	Reply        string
	ManagerAlert string
	Hops         int
	ToolCalls    []string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		ChatID:    strings.TrimSpace(in.ChatID),
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
