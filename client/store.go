// Package client contains the reusable messaging core the portal pages
// bind to: the durable REST store client, the live channel manager, the
// conversation view-model and the roster service. Nothing in here reads
// ambient globals; "self" is passed in explicitly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"rentezy-chat/domain"
	"rentezy-chat/errors"
)

// RESTStore is the client side of the durable path. It consumes the
// backend's REST endpoints and maps failures onto the shared taxonomy:
// unreachable backend or 5xx is ErrTransport (retryable by user action),
// a 400 is ErrValidation (never retried automatically).
type RESTStore struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger

	mu     sync.RWMutex
	labels map[string]string // id -> username, filled by RosterFor
}

func NewRESTStore(baseURL string, log *slog.Logger) *RESTStore {
	return &RESTStore{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
		labels:  make(map[string]string),
	}
}

// Append durably persists a message. Validation runs locally first so an
// obviously bad message never costs a round trip.
func (s *RESTStore) Append(ctx context.Context, sender, receiver, content string) (domain.Message, error) {
	draft := domain.Message{Sender: sender, Receiver: receiver, Content: content}
	if err := draft.Validate(); err != nil {
		return domain.Message{}, err
	}

	body, err := json.Marshal(domain.FrameOf(draft))
	if err != nil {
		return domain.Message{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/create/", bytes.NewReader(body))
	if err != nil {
		return domain.Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var message domain.Message
	if err := s.do(req, http.StatusCreated, &message); err != nil {
		return domain.Message{}, fmt.Errorf("append: %w", err)
	}
	return message, nil
}

// History loads the full conversation between the two users, oldest
// first. An empty conversation is an empty slice, not an error.
func (s *RESTStore) History(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	url := fmt.Sprintf("%s/chat/chatmessages/%s/%s/", s.baseURL, userA, userB)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	messages := []domain.Message{}
	if err := s.do(req, http.StatusOK, &messages); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return messages, nil
}

type rosterEntryPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RosterFor returns the distinct counterpart ids for the user. The
// labels that come along in the response are cached so ResolveLabel can
// answer without another round trip.
func (s *RESTStore) RosterFor(ctx context.Context, user string) ([]string, error) {
	url := fmt.Sprintf("%s/chat/users_chatted_with/%s", s.baseURL, user)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	entries := []rosterEntryPayload{}
	if err := s.do(req, http.StatusOK, &entries); err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}

	s.mu.Lock()
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
		s.labels[entry.ID] = entry.Username
	}
	s.mu.Unlock()
	return ids, nil
}

// ResolveLabel implements contract.Directory from the label cache.
func (s *RESTStore) ResolveLabel(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	label, ok := s.labels[userID]
	if !ok {
		return "", errors.ErrNotFound
	}
	return label, nil
}

func (s *RESTStore) do(req *http.Request, wantStatus int, out any) error {
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == wantStatus:
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", errors.ErrValidation, readErrorBody(resp.Body))
	default:
		return fmt.Errorf("%w: unexpected status %d", errors.ErrTransport, resp.StatusCode)
	}
}

func readErrorBody(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil || payload.Error == "" {
		return "bad request"
	}
	return payload.Error
}
