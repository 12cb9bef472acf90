//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"rentezy-chat/domain"
)

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need
// for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// MessageStore is the durable path: the source of truth for conversation
// history. Append assigns the id and timestamp; History is symmetric in
// its two arguments; RosterFor projects the distinct counterpart set.
type MessageStore interface {
	Append(ctx context.Context, sender, receiver, content string) (domain.Message, error)
	History(ctx context.Context, userA, userB string) ([]domain.Message, error)
	RosterFor(ctx context.Context, user string) ([]string, error)
}

// Directory resolves a user id to a human-readable label. It may fail
// with errors.ErrNotFound for deleted accounts.
type Directory interface {
	ResolveLabel(ctx context.Context, userID string) (string, error)
}

// Channel is one live bidirectional connection to a conversation room.
// Send is only valid while the channel is open; Frames is closed when the
// channel dies, after which Err reports why.
type Channel interface {
	Send(frame domain.Frame) error
	Frames() <-chan domain.Frame
	Err() error
	Close() error
}

// ChannelOpener owns channel lifecycles: at most one open channel at a
// time, keyed by room.
type ChannelOpener interface {
	Open(ctx context.Context, room domain.RoomKey) (Channel, error)
}

// FrameSink receives a frame for delivery to one attached session.
// Delivery is best-effort; a sink that cannot keep up may drop.
type FrameSink interface {
	Deliver(frame domain.Frame) error
}
