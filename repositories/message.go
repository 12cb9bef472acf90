package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"rentezy-chat/domain"
)

const (
	messagePrefix = "msg:"
	rosterPrefix  = "roster:"
)

// MessageRepository is the durable, append-only message log backed by
// BadgerDB. It is the source of truth for conversation history; the live
// channel is only a low-latency mirror.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// messageKey formats "msg:{pairKey}:{timestamp_padded}:{uuid}" to:
//  1. Group all messages of an unordered participant pair under one
//     prefix, whichever side wrote them.
//  2. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  3. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func messageKey(room domain.RoomKey, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", messagePrefix, room, at.UnixNano(), id))
}

// rosterKey formats "roster:{user}:{counterpart}". The value is empty;
// the key set alone is the roster projection.
func rosterKey(user, counterpart string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", rosterPrefix, user, counterpart))
}

// Append validates, assigns id and timestamp, and durably persists the
// message together with the two roster index entries. The message is
// visible to History and RosterFor as soon as Append returns.
func (r *MessageRepository) Append(ctx context.Context, sender, receiver, content string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	message := domain.Message{
		ID:        uuid.New(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := message.Validate(); err != nil {
		return domain.Message{}, err
	}

	value, err := json.Marshal(message)
	if err != nil {
		return domain.Message{}, err
	}

	room := domain.NewRoomKey(sender, receiver)
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(room, message.CreatedAt, message.ID), value); err != nil {
			return err
		}
		if err := txn.Set(rosterKey(sender, receiver), nil); err != nil {
			return err
		}
		return txn.Set(rosterKey(receiver, sender), nil)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("store message: %w", err)
	}

	r.log.Debug("message stored", "room", string(room), "id", message.ID)
	return message, nil
}

// History returns all messages exchanged between the two users, ordered
// by creation time ascending. The order-independent pair prefix makes
// History(a, b) and History(b, a) identical. An empty conversation
// yields an empty slice, not an error.
func (r *MessageRepository) History(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(fmt.Sprintf("%s%s:", messagePrefix, domain.NewRoomKey(userA, userB)))
	messages := []domain.Message{}

	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var message domain.Message
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return messages, nil
}

// RosterFor returns the distinct counterpart ids the user has exchanged
// messages with, in stable ascending order (the index keys are scanned
// lexicographically).
func (r *MessageRepository) RosterFor(ctx context.Context, user string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(fmt.Sprintf("%s%s:", rosterPrefix, user))
	counterparts := []string{}

	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			counterparts = append(counterparts, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return counterparts, nil
}
