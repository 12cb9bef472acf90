package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"rentezy-chat/errors"
)

func TestMessage_Validate(t *testing.T) {
	req := require.New(t)

	valid := Message{Sender: "1", Receiver: "2", Content: "Hello"}
	req.NoError(valid.Validate())

	empty := Message{Sender: "1", Receiver: "2", Content: ""}
	req.ErrorIs(empty.Validate(), errors.ErrValidation)

	selfTalk := Message{Sender: "1", Receiver: "1", Content: "Hello"}
	req.ErrorIs(selfTalk.Validate(), errors.ErrValidation)

	anonymous := Message{Receiver: "2", Content: "Hello"}
	req.ErrorIs(anonymous.Validate(), errors.ErrValidation)
}

func TestMessage_SameAs_ByID(t *testing.T) {
	req := require.New(t)
	id := uuid.New()

	confirmed := Message{ID: id, Sender: "1", Receiver: "2", Content: "Hi", CreatedAt: time.Now()}
	reloaded := Message{ID: id, Sender: "1", Receiver: "2", Content: "Hi", CreatedAt: time.Now().Add(time.Hour)}
	req.True(confirmed.SameAs(reloaded))

	other := Message{ID: uuid.New(), Sender: "1", Receiver: "2", Content: "Hi", CreatedAt: confirmed.CreatedAt}
	req.False(confirmed.SameAs(other))
}

func TestMessage_SameAs_CompositeFallback(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 3, 14, 12, 0, 0, 250_000_000, time.UTC)

	// Local echo has no store-assigned id yet; the durable round trip
	// arrives a few hundred milliseconds later within the same second.
	echo := Message{Sender: "1", Receiver: "2", Content: "Hi", CreatedAt: at}
	durable := Message{ID: uuid.New(), Sender: "1", Receiver: "2", Content: "Hi", CreatedAt: at.Add(400 * time.Millisecond)}
	req.True(echo.SameAs(durable))

	later := Message{Sender: "1", Receiver: "2", Content: "Hi", CreatedAt: at.Add(3 * time.Second)}
	req.False(echo.SameAs(later))
}

func TestNewRoomKey_OrderIndependent(t *testing.T) {
	req := require.New(t)

	req.Equal(NewRoomKey("1", "2"), NewRoomKey("2", "1"))
	req.Equal(RoomKey("1_2"), NewRoomKey("2", "1"))

	a, b := NewRoomKey("7", "3").Participants()
	req.Equal("3", a)
	req.Equal("7", b)

	req.True(NewRoomKey("1", "2").Contains("1"))
	req.True(NewRoomKey("1", "2").Contains("2"))
	req.False(NewRoomKey("1", "2").Contains("3"))
}
