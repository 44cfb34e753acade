package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roster/cmd/identity"
	authapi "roster/cmd/internal/auth/api"
)

// Handler wires user CRUD endpoints to the identity store.
type Handler struct {
	log   *slog.Logger
	cfg   authapi.Config
	store identity.Store
}

// NewHandler constructs a users Handler.
func NewHandler(log *slog.Logger, store identity.Store, cfg authapi.Config) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("users: nil identity store")
	}
	return &Handler{log: log, cfg: cfg, store: store}, nil
}

// Register wires user routes onto the mux. Creation stays public (it mirrors
// registration); everything else sits behind the guard.
func (h *Handler) Register(mux *http.ServeMux, guard *authapi.Guard) {
	if h == nil || mux == nil || guard == nil {
		return
	}

	list := guard.Require(http.HandlerFunc(h.handleList))
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			list.ServeHTTP(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.Handle("/users/", guard.Require(http.HandlerFunc(h.handleItem)))
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type listUsersResponse struct {
	Users []authapi.UserResponse `json:"users"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := authapi.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Password) == "" {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	u, err := h.store.CreateUser(r.Context(), identity.CreateUserInput{
		Username: username,
		Password: req.Password,
		Role:     req.Role,
		Now:      time.Now().UTC(),
	})
	if err != nil {
		h.writeStoreError(w, "users.create.fail", err)
		return
	}

	h.log.Info("users.create.ok", "user_id", u.ID)
	authapi.WriteJSON(w, http.StatusCreated, authapi.ToUserResponse(u))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.log.Error("users.list.fail", "err", err)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	out := make([]authapi.UserResponse, 0, len(all))
	for _, u := range all {
		out = append(out, authapi.ToUserResponse(u))
	}
	authapi.WriteJSON(w, http.StatusOK, listUsersResponse{Users: out})
}

func (h *Handler) handleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r.URL.Path, "/users/")
	if !ok {
		authapi.WriteError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, id)
	case http.MethodPut:
		h.handleUpdate(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id int64) {
	u, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "users.get.fail", err)
		return
	}
	authapi.WriteJSON(w, http.StatusOK, authapi.ToUserResponse(u))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateUserRequest
	if err := authapi.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	u, err := h.store.UpdateUser(r.Context(), id, identity.UpdateUserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		Now:      time.Now().UTC(),
	})
	if err != nil {
		h.writeStoreError(w, "users.update.fail", err)
		return
	}

	h.log.Info("users.update.ok", "user_id", u.ID)
	authapi.WriteJSON(w, http.StatusOK, authapi.ToUserResponse(u))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		h.writeStoreError(w, "users.delete.fail", err)
		return
	}

	h.log.Info("users.delete.ok", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, event string, err error) {
	switch {
	case identity.IsNotFound(err):
		authapi.WriteError(w, http.StatusNotFound, "not_found", "user not found")
	case identity.IsConflict(err):
		authapi.WriteError(w, http.StatusConflict, "conflict", "username already exists")
	case identity.IsInvalidInput(err):
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid input")
	default:
		h.log.Error(event, "err", err)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

// idFromPath extracts a positive numeric id from the path after prefix.
func idFromPath(path, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
