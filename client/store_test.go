package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"rentezy-chat/domain"
	"rentezy-chat/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRESTStoreAppend(t *testing.T) {
	req := require.New(t)

	stored := domain.Message{
		ID:        uuid.New(),
		Sender:    "alice",
		Receiver:  "bob",
		Content:   "is the flat still available?",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal(http.MethodPost, r.Method)
		req.Equal("/chat/create/", r.URL.Path)

		var frame domain.Frame
		req.NoError(json.NewDecoder(r.Body).Decode(&frame))
		req.Equal("alice", frame.Sender)
		req.Equal("is the flat still available?", frame.Content)

		w.WriteHeader(http.StatusCreated)
		req.NoError(json.NewEncoder(w).Encode(stored))
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, discardLogger())
	message, err := store.Append(context.Background(), "alice", "bob", "is the flat still available?")
	req.NoError(err)
	req.Equal(stored.ID, message.ID)
	req.Equal(stored.Content, message.Content)
}

func TestRESTStoreAppendRejectsLocallyInvalid(t *testing.T) {
	req := require.New(t)

	// No server: validation must fail before any request goes out.
	store := NewRESTStore("http://127.0.0.1:0", discardLogger())

	_, err := store.Append(context.Background(), "alice", "bob", "")
	req.ErrorIs(err, errors.ErrValidation)

	_, err = store.Append(context.Background(), "alice", "alice", "hi")
	req.ErrorIs(err, errors.ErrValidation)
}

func TestRESTStoreAppendServerRejection(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "receiver unknown"})
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, discardLogger())
	_, err := store.Append(context.Background(), "alice", "bob", "hello")
	req.ErrorIs(err, errors.ErrValidation)
	req.Contains(err.Error(), "receiver unknown")
}

func TestRESTStoreUnreachableBackend(t *testing.T) {
	req := require.New(t)

	store := NewRESTStore("http://127.0.0.1:1", discardLogger())

	_, err := store.Append(context.Background(), "alice", "bob", "hello")
	req.ErrorIs(err, errors.ErrTransport)

	_, err = store.History(context.Background(), "alice", "bob")
	req.ErrorIs(err, errors.ErrTransport)

	_, err = store.RosterFor(context.Background(), "alice")
	req.ErrorIs(err, errors.ErrTransport)
}

func TestRESTStoreHistory(t *testing.T) {
	req := require.New(t)

	history := []domain.Message{
		{ID: uuid.New(), Sender: "alice", Receiver: "bob", Content: "hi", CreatedAt: time.Now().UTC().Add(-time.Hour)},
		{ID: uuid.New(), Sender: "bob", Receiver: "alice", Content: "hey", CreatedAt: time.Now().UTC()},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/chat/chatmessages/alice/bob/", r.URL.Path)
		req.NoError(json.NewEncoder(w).Encode(history))
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, discardLogger())
	messages, err := store.History(context.Background(), "alice", "bob")
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("hi", messages[0].Content)
	req.Equal("hey", messages[1].Content)
}

func TestRESTStoreHistoryEmptyConversation(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, discardLogger())
	messages, err := store.History(context.Background(), "alice", "bob")
	req.NoError(err)
	req.NotNil(messages)
	req.Empty(messages)
}

func TestRESTStoreRosterFillsLabelCache(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/chat/users_chatted_with/alice", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"2","username":"bob"},{"id":"3","username":"carol"}]`))
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL, discardLogger())

	_, err := store.ResolveLabel(context.Background(), "2")
	req.ErrorIs(err, errors.ErrNotFound)

	ids, err := store.RosterFor(context.Background(), "alice")
	req.NoError(err)
	req.Equal([]string{"2", "3"}, ids)

	label, err := store.ResolveLabel(context.Background(), "2")
	req.NoError(err)
	req.Equal("bob", label)

	label, err = store.ResolveLabel(context.Background(), "3")
	req.NoError(err)
	req.Equal("carol", label)
}
