package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"rentezy-chat/auth"
	"rentezy-chat/domain"
	"rentezy-chat/moderation"
	"rentezy-chat/observability"
	"rentezy-chat/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testBackend struct {
	srv   *httptest.Server
	users *repositories.UserRepository
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := testLogger()
	moderator, err := moderation.NewModerator([]string{"scammer"}, '*')
	require.NoError(t, err)

	monitor := observability.NewMonitor(log)
	users := repositories.NewUserRepository(db)
	api := NewAPI(
		log,
		repositories.NewMessageRepository(db, log),
		users,
		auth.NewTokens("test-secret", time.Hour),
		&moderator,
		monitor,
	)
	hub := NewHub(log, NewRegistry(), monitor)

	srv := httptest.NewServer(api.Routes(hub))
	t.Cleanup(srv.Close)
	return &testBackend{srv: srv, users: users}
}

func (b *testBackend) post(t *testing.T, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(b.srv.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (b *testBackend) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(b.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestCreateThenHistoryIsSymmetric(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	resp := backend.post(t, "/chat/create/", map[string]string{
		"sender": "1", "receiver": "2", "message_content": "hello there",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	created := decode[domain.Message](t, resp.Body)
	req.Equal("hello there", created.Content)
	req.False(created.CreatedAt.IsZero())

	resp = backend.post(t, "/chat/create/", map[string]string{
		"sender": "2", "receiver": "1", "message_content": "hi back",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	forward := backend.get(t, "/chat/chatmessages/1/2/")
	req.Equal(http.StatusOK, forward.StatusCode)
	forwardHistory := decode[[]domain.Message](t, forward.Body)

	backward := backend.get(t, "/chat/chatmessages/2/1/")
	req.Equal(http.StatusOK, backward.StatusCode)
	backwardHistory := decode[[]domain.Message](t, backward.Body)

	req.Len(forwardHistory, 2)
	req.Equal(forwardHistory, backwardHistory)
	req.Equal("hello there", forwardHistory[0].Content)
	req.Equal("hi back", forwardHistory[1].Content)
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	cases := []map[string]string{
		{"sender": "1", "receiver": "2", "message_content": ""},
		{"sender": "1", "receiver": "1", "message_content": "self talk"},
		{"sender": "", "receiver": "2", "message_content": "anonymous"},
	}
	for _, payload := range cases {
		resp := backend.post(t, "/chat/create/", payload)
		req.Equal(http.StatusBadRequest, resp.StatusCode)
	}

	history := backend.get(t, "/chat/chatmessages/1/2/")
	req.Empty(decode[[]domain.Message](t, history.Body))
}

func TestCreateCensorsBeforeStoring(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	resp := backend.post(t, "/chat/create/", map[string]string{
		"sender": "1", "receiver": "2", "message_content": "that landlord is a scammer",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	created := decode[domain.Message](t, resp.Body)
	req.Equal("that landlord is a *******", created.Content)

	history := backend.get(t, "/chat/chatmessages/1/2/")
	messages := decode[[]domain.Message](t, history.Body)
	req.Len(messages, 1)
	req.NotContains(messages[0].Content, "scammer")
}

func TestRosterResolvesUsernames(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	bobID, err := backend.users.CreateUser("bob", "landlord", "hash")
	req.NoError(err)

	resp := backend.post(t, "/chat/create/", map[string]string{
		"sender": "tenant-1", "receiver": bobID, "message_content": "about the flat",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	resp = backend.post(t, "/chat/create/", map[string]string{
		"sender": "tenant-1", "receiver": "ghost", "message_content": "anyone home?",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	roster := backend.get(t, "/chat/users_chatted_with/tenant-1")
	req.Equal(http.StatusOK, roster.StatusCode)
	entries := decode[[]rosterEntryResponse](t, roster.Body)
	req.Len(entries, 2)

	byID := map[string]string{}
	for _, entry := range entries {
		byID[entry.ID] = entry.Username
	}
	req.Equal("bob", byID[bobID])
	req.Equal("unknown user", byID["ghost"])
}

func TestRosterEmptyForUnknownUser(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	roster := backend.get(t, "/chat/users_chatted_with/nobody")
	req.Equal(http.StatusOK, roster.StatusCode)
	req.Empty(decode[[]rosterEntryResponse](t, roster.Body))
}

func TestRegisterAndLogin(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	resp := backend.post(t, "/auth/register/", map[string]string{
		"username": "alice", "password": "correct horse battery", "role": "tenant",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	registered := decode[map[string]string](t, resp.Body)
	req.NotEmpty(registered["id"])
	req.NotEmpty(registered["token"])

	resp = backend.post(t, "/auth/register/", map[string]string{
		"username": "alice", "password": "another password!", "role": "tenant",
	})
	req.Equal(http.StatusConflict, resp.StatusCode)

	resp = backend.post(t, "/auth/login/", map[string]string{
		"username": "alice", "password": "correct horse battery",
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	logged := decode[map[string]string](t, resp.Body)
	req.Equal(registered["id"], logged["id"])

	resp = backend.post(t, "/auth/login/", map[string]string{
		"username": "alice", "password": "wrong password!!",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = backend.post(t, "/auth/login/", map[string]string{
		"username": "nobody", "password": "whatever password",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthAndStats(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	resp := backend.get(t, "/health")
	req.Equal(http.StatusOK, resp.StatusCode)

	resp = backend.get(t, "/stats")
	req.Equal(http.StatusOK, resp.StatusCode)
	stats := decode[observability.Stats](t, resp.Body)
	req.GreaterOrEqual(stats.Goroutines, 1)
}
