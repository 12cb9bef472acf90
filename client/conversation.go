package client

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentezy-chat/contract"
	"rentezy-chat/domain"
	"rentezy-chat/errors"
)

// DeliveryState tracks an optimistic send through its lifecycle.
type DeliveryState int

const (
	// DeliveryPending means the message is rendered locally but the
	// durable write has not confirmed yet.
	DeliveryPending DeliveryState = iota
	// DeliveryConfirmed means the store accepted the message.
	DeliveryConfirmed
	// DeliveryFailed means the durable write was rejected or the backend
	// was unreachable. The entry stays visible so the user can see what
	// was lost.
	DeliveryFailed
)

// Entry is one rendered line of a conversation.
type Entry struct {
	domain.Message
	State DeliveryState

	// draftID correlates an optimistic entry with its in-flight durable
	// append. The timeline may be re-sorted while the append runs, so
	// positions are not stable identities.
	draftID uuid.UUID
}

// Conversation is the view-model for a single open dialogue. It merges
// three inputs into one time-ordered timeline: the durable history, the
// user's own optimistic sends, and live frames from the channel. All
// mutation goes through its mutex; network calls never hold it.
type Conversation struct {
	log    *slog.Logger
	self   string
	store  contract.MessageStore
	opener contract.ChannelOpener

	// onNewCounterpart fires when the first message of a dialogue with no
	// history is sent or received, so the roster can pick up the new
	// entry.
	onNewCounterpart func(counterpart string)

	mu          sync.Mutex
	counterpart string
	generation  uint64
	entries     []Entry
	channel     contract.Channel
	firstSeen   bool
}

func NewConversation(log *slog.Logger, self string, store contract.MessageStore, opener contract.ChannelOpener) *Conversation {
	return &Conversation{
		log:    log,
		self:   self,
		store:  store,
		opener: opener,
	}
}

// OnNewCounterpart registers the roster-refresh hook. Call before the
// first Switch.
func (c *Conversation) OnNewCounterpart(fn func(counterpart string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNewCounterpart = fn
}

// Counterpart returns the user currently on the other side, empty when
// no dialogue is open.
func (c *Conversation) Counterpart() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counterpart
}

// Switch opens the dialogue with counterpart: the previous channel is
// closed first, the timeline is cleared, history is reloaded and a fresh
// channel is opened. A history response that arrives after another
// Switch is discarded, stale messages never bleed into the new dialogue.
func (c *Conversation) Switch(ctx context.Context, counterpart string) error {
	if counterpart == c.self {
		return fmt.Errorf("%w: cannot open a dialogue with yourself", errors.ErrValidation)
	}

	c.mu.Lock()
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	c.counterpart = counterpart
	c.generation++
	generation := c.generation
	c.entries = nil
	c.firstSeen = false
	c.mu.Unlock()

	history, err := c.store.History(ctx, c.self, counterpart)
	if err != nil {
		return fmt.Errorf("switch to %s: %w", counterpart, err)
	}

	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		return nil
	}
	c.entries = make([]Entry, 0, len(history))
	for _, message := range history {
		c.entries = append(c.entries, Entry{Message: message, State: DeliveryConfirmed})
	}
	c.firstSeen = len(c.entries) > 0
	c.mu.Unlock()

	room := domain.NewRoomKey(c.self, counterpart)
	channel, err := c.opener.Open(ctx, room)
	if err != nil {
		// History is already on screen; the live path degrades to
		// refresh-to-see.
		c.log.Warn("live channel unavailable", "room", string(room), "error", err)
		return nil
	}

	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		_ = channel.Close()
		return nil
	}
	c.channel = channel
	c.mu.Unlock()

	go c.pump(channel, generation)
	return nil
}

// Send runs the optimistic flow: the message appears immediately as
// pending, the durable write decides whether it becomes confirmed or
// failed, and on success a best-effort copy goes out on the live
// channel. A failed channel mirror never fails the send.
func (c *Conversation) Send(ctx context.Context, content string) error {
	c.mu.Lock()
	counterpart := c.counterpart
	generation := c.generation
	channel := c.channel
	c.mu.Unlock()

	if counterpart == "" {
		return fmt.Errorf("%w: no dialogue open", errors.ErrValidation)
	}

	draft := domain.Message{
		Sender:    c.self,
		Receiver:  counterpart,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := draft.Validate(); err != nil {
		return err
	}

	draftID := uuid.New()

	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		return fmt.Errorf("%w: dialogue changed", errors.ErrValidation)
	}
	c.entries = append(c.entries, Entry{Message: draft, State: DeliveryPending, draftID: draftID})
	c.mu.Unlock()

	stored, err := c.store.Append(ctx, draft.Sender, draft.Receiver, draft.Content)

	var hook func(counterpart string)
	c.mu.Lock()
	if c.generation == generation {
		for i := range c.entries {
			if c.entries[i].draftID != draftID {
				continue
			}
			if err != nil {
				c.entries[i].State = DeliveryFailed
			} else {
				c.entries[i] = Entry{Message: stored, State: DeliveryConfirmed}
			}
			break
		}
		if err == nil && !c.firstSeen {
			// First durable message of this dialogue: the counterpart
			// just entered both rosters.
			c.firstSeen = true
			hook = c.onNewCounterpart
		}
	}
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if hook != nil {
		hook(counterpart)
	}

	if channel != nil {
		if sendErr := channel.Send(domain.FrameOf(stored)); sendErr != nil {
			c.log.Debug("live mirror skipped", "error", sendErr)
		}
	}
	return nil
}

// Messages returns a copy of the timeline, oldest first.
func (c *Conversation) Messages() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make([]Entry, len(c.entries))
	copy(snapshot, c.entries)
	return snapshot
}

// Close tears down the live channel and freezes the timeline.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	c.generation++
}

// pump drains the channel's inbound stream into the timeline until the
// channel dies or the conversation moves on.
func (c *Conversation) pump(channel contract.Channel, generation uint64) {
	for frame := range channel.Frames() {
		c.ingest(frame, generation)
	}
	if err := channel.Err(); err != nil {
		c.log.Warn("live channel closed", "error", err)
	}
}

// ingest merges one live frame into the timeline. Frames are deduped
// against existing entries, so the sender's own mirrored copy and
// redelivered frames collapse into the message already on screen.
func (c *Conversation) ingest(frame domain.Frame, generation uint64) {
	message := frame.ToMessage(time.Now().UTC())

	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		return
	}
	for _, entry := range c.entries {
		if entry.SameAs(message) {
			c.mu.Unlock()
			return
		}
	}

	wasEmpty := !c.firstSeen
	c.firstSeen = true
	c.entries = append(c.entries, Entry{Message: message, State: DeliveryConfirmed})
	// Live frames normally arrive in order; sort only repairs the rare
	// race with a concurrent optimistic send.
	sort.SliceStable(c.entries, func(i, j int) bool {
		return c.entries[i].CreatedAt.Before(c.entries[j].CreatedAt)
	})
	counterpart := c.counterpart
	hook := c.onNewCounterpart
	c.mu.Unlock()

	if wasEmpty && hook != nil && message.Sender == counterpart {
		hook(counterpart)
	}
}
