package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"roster/cmd/identity"
	"roster/cmd/internal/auth/session"
)

// Handler wires HTTP auth endpoints to identity/session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	store    identity.Store
	sessions *session.Service
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, store identity.Store, sessions *session.Service, cfg Config) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("auth: nil identity store")
	}
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}

	return &Handler{
		log:      log,
		cfg:      cfg,
		store:    store,
		sessions: sessions,
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.HandleFunc("/auth/refresh", h.handleRefresh)
}

// Guard returns the bearer guard bound to the session access codec.
func (h *Handler) Guard() *Guard {
	return NewGuard(h.sessions.AccessCodec())
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Password) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	u, err := h.store.CreateUser(r.Context(), identity.CreateUserInput{
		Username: username,
		Password: req.Password,
		Now:      time.Now().UTC(),
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			WriteError(w, http.StatusConflict, "conflict", "username already exists")
		case identity.IsInvalidInput(err):
			WriteError(w, http.StatusBadRequest, "invalid_request", "invalid input")
		default:
			h.log.Error("auth.register.fail", "err", err)
			WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.log.Info("auth.register.ok", "user_id", u.ID)
	WriteJSON(w, http.StatusCreated, ToUserResponse(u))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Password) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	pair, user, err := h.sessions.Login(r.Context(), username, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.log.Info("auth.login.fail", "username", identity.NormalizeUsername(username))
			WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("auth.login.ok", "user_id", user.ID)
	WriteJSON(w, http.StatusOK, loginResponse{
		tokenPairResponse: toTokenPairResponse(pair),
		User:              ToUserResponse(user),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req logoutRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.UserID <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	if err := h.sessions.Logout(r.Context(), req.UserID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		h.log.Error("auth.logout.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("auth.logout.ok", "user_id", req.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	pair, user, err := h.sessions.Refresh(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			h.log.Info("auth.refresh.reject")
			WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
			return
		}
		h.log.Error("auth.refresh.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("auth.refresh.ok", "user_id", user.ID)
	WriteJSON(w, http.StatusOK, toTokenPairResponse(pair))
}
