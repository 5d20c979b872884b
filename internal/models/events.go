package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Client -> server events.
const (
	EventAuthenticate      = "authenticate"
	EventJoinIdea          = "join-idea"
	EventLeaveIdea         = "leave-idea"
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
)

// Server -> client replies.
const (
	EventAuthenticated      = "authenticated"
	EventJoinedIdea         = "joined-idea"
	EventLeftIdea           = "left-idea"
	EventJoinedConversation = "joined-conversation"
	EventLeftConversation   = "left-conversation"
	EventError              = "error"
)

// Server -> client broadcasts.
const (
	EventCommentAdded = "comment-added"
	EventIdeaUpdated  = "idea-updated"
	EventNewMessage   = "new-message"
	EventNotification = "notification"
)

var ErrUnknownEvent = errors.New("unknown event type")

var validate = validator.New()

// Envelope is the frame written to a websocket client.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Inbound is a frame read from a websocket client. Data is decoded per Type.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode unmarshals the inbound data into v and validates its struct tags.
func (in Inbound) Decode(v interface{}) error {
	if len(in.Data) == 0 {
		return fmt.Errorf("%s: missing data", in.Type)
	}
	if err := json.Unmarshal(in.Data, v); err != nil {
		return fmt.Errorf("%s: %w", in.Type, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%s: %w", in.Type, err)
	}
	return nil
}

type AuthenticateData struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type IdeaData struct {
	IdeaID string `json:"ideaId" validate:"required"`
}

type ConversationData struct {
	ConversationID string `json:"conversationId" validate:"required"`
}

type AuthenticatedData struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// Event is a broadcast request published by a domain service after a
// successful write. IdeaID addresses idea rooms, UserID addresses a user.
type Event struct {
	Type      string          `json:"type" validate:"required,oneof=comment-added idea-updated new-message notification"`
	IdeaID    string          `json:"ideaId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func NewEvent(eventType string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Timestamp: time.Now().Unix(), Data: raw}, nil
}

// Validate checks the event type and that the address field it needs is set.
func (e Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownEvent, err)
	}
	switch e.Type {
	case EventCommentAdded, EventIdeaUpdated:
		if e.IdeaID == "" {
			return fmt.Errorf("%s requires ideaId", e.Type)
		}
	default:
		if e.UserID == "" {
			return fmt.Errorf("%s requires userId", e.Type)
		}
	}
	if len(e.Data) == 0 {
		return fmt.Errorf("%s requires data", e.Type)
	}
	return nil
}
