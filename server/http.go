package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"rentezy-chat/auth"
	"rentezy-chat/contract"
	apperrors "rentezy-chat/errors"
	"rentezy-chat/moderation"
	"rentezy-chat/observability"
	"rentezy-chat/repositories"
)

// API exposes the REST surface of the chat backend: the durable message
// endpoints consumed by the messaging core plus the minimal auth
// collaborator (register/login).
type API struct {
	log       *slog.Logger
	store     contract.MessageStore
	users     *repositories.UserRepository
	tokens    auth.Tokens
	moderator *moderation.Moderator
	monitor   *observability.Monitor
	validate  *validator.Validate
}

func NewAPI(
	log *slog.Logger,
	store contract.MessageStore,
	users *repositories.UserRepository,
	tokens auth.Tokens,
	moderator *moderation.Moderator,
	monitor *observability.Monitor,
) *API {
	return &API{
		log:       log,
		store:     store,
		users:     users,
		tokens:    tokens,
		moderator: moderator,
		monitor:   monitor,
		validate:  validator.New(),
	}
}

// Routes registers every endpoint, including the websocket hub, on one mux.
func (a *API) Routes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/chatmessages/{userA}/{userB}/{$}", a.handleHistory)
	mux.HandleFunc("POST /chat/create/{$}", a.handleCreate)
	mux.HandleFunc("GET /chat/users_chatted_with/{userId}", a.handleRoster)
	mux.HandleFunc("POST /auth/register/{$}", a.handleRegister)
	mux.HandleFunc("POST /auth/login/{$}", a.handleLogin)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /stats", a.handleStats)
	mux.Handle("GET /ws/chat/{room}/{$}", hub)
	return mux
}

type createMessageRequest struct {
	Sender   string `json:"sender" validate:"required"`
	Receiver string `json:"receiver" validate:"required,nefield=Sender"`
	Content  string `json:"message_content" validate:"required"`
}

func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Moderation happens before the durable write so the censored form
	// is the only form that ever exists.
	content, censored := a.moderator.Censor(req.Content)
	if len(censored) > 0 {
		a.log.Info("message censored", "sender", req.Sender, "words", len(censored))
	}

	message, err := a.store.Append(r.Context(), req.Sender, req.Receiver, content)
	if err != nil {
		a.writeAppError(w, err)
		return
	}
	a.monitor.IncrMessagesStored()
	a.writeJSON(w, http.StatusCreated, message)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	userA, userB := r.PathValue("userA"), r.PathValue("userB")
	messages, err := a.store.History(r.Context(), userA, userB)
	if err != nil {
		a.writeAppError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, messages)
}

type rosterEntryResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (a *API) handleRoster(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("userId")
	counterparts, err := a.store.RosterFor(r.Context(), user)
	if err != nil {
		a.writeAppError(w, err)
		return
	}

	entries := lo.Map(counterparts, func(id string, _ int) rosterEntryResponse {
		label, err := a.users.ResolveLabel(r.Context(), id)
		if err != nil {
			// Deleted accounts keep their history; show a placeholder.
			label = "unknown user"
		}
		return rosterEntryResponse{ID: id, Username: label}
	})
	a.writeJSON(w, http.StatusOK, entries)
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=10,max=72"`
	Role     string `json:"role" validate:"required,oneof=tenant landlord admin"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "hashing failed")
		return
	}
	id, err := a.users.CreateUser(req.Username, req.Role, hash)
	if err != nil {
		a.writeAppError(w, err)
		return
	}
	token, err := a.tokens.Generate(id, req.Role)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]string{"id": id, "token": token})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.users.GetByUsername(req.Username)
	if err != nil {
		// One generic error for both unknown user and bad password,
		// prevents user enumeration.
		a.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		a.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := a.tokens.Generate(user.ID, user.Role)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"id": user.ID, "token": token})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (a *API) handleStats(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.monitor.Snapshot())
}

func (a *API) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		a.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		a.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		a.writeError(w, http.StatusNotFound, err.Error())
	default:
		a.log.Error("request failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.log.Error("response write failed", "error", err)
	}
}
