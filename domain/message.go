// Package domain contains core concepts of the messaging system.
// This file defines Message values and their invariants.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"rentezy-chat/errors"
)

// Message is an immutable chat message between two participants.
// The ID and CreatedAt fields are assigned by the store on durable write;
// a message that has not been persisted yet carries a zero ID.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Content   string    `json:"message_content"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate enforces the two invariants every message must satisfy
// before it may reach the durable path.
func (m Message) Validate() error {
	if m.Content == "" {
		return fmt.Errorf("%w: empty content", errors.ErrValidation)
	}
	if m.Sender == "" || m.Receiver == "" {
		return fmt.Errorf("%w: missing participant", errors.ErrValidation)
	}
	if m.Sender == m.Receiver {
		return fmt.Errorf("%w: sender and receiver are the same user", errors.ErrValidation)
	}
	return nil
}

// SameAs reports whether two messages are the same logical message,
// regardless of which path (live channel or history reload) delivered
// them. Store-assigned ids win when both sides carry one; otherwise a
// composite of sender, content and second-truncated timestamp is used so
// the local echo and the durable round trip collapse to one entry.
func (m Message) SameAs(other Message) bool {
	if m.ID != uuid.Nil && other.ID != uuid.Nil {
		return m.ID == other.ID
	}
	return m.Sender == other.Sender &&
		m.Content == other.Content &&
		m.CreatedAt.Truncate(time.Second).Equal(other.CreatedAt.Truncate(time.Second))
}
