package positions

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	authapi "roster/cmd/internal/auth/api"
)

// Handler wires position CRUD endpoints to the positions store.
// Every route requires an authenticated bearer identity; creation assigns
// ownership from that identity, never from the request body.
type Handler struct {
	log   *slog.Logger
	cfg   authapi.Config
	store Store
}

// NewHandler constructs a positions Handler.
func NewHandler(log *slog.Logger, store Store, cfg authapi.Config) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("positions: nil store")
	}
	return &Handler{log: log, cfg: cfg, store: store}, nil
}

// Register wires position routes onto the mux behind the guard.
func (h *Handler) Register(mux *http.ServeMux, guard *authapi.Guard) {
	if h == nil || mux == nil || guard == nil {
		return
	}
	mux.Handle("/positions", guard.Require(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/positions/", guard.Require(http.HandlerFunc(h.handleItem)))
}

type createPositionRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type updatePositionRequest struct {
	Code *string `json:"code"`
	Name *string `json:"name"`
}

type positionResponse struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listPositionsResponse struct {
	Positions []positionResponse `json:"positions"`
}

func toPositionResponse(p Position) positionResponse {
	return positionResponse{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := authapi.IdentityFrom(r.Context())
	if !ok {
		authapi.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	var req createPositionRequest
	if err := authapi.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "code and name are required")
		return
	}

	p, err := h.store.CreatePosition(r.Context(), CreatePositionInput{
		Code:   req.Code,
		Name:   req.Name,
		UserID: id.UserID,
		Now:    time.Now().UTC(),
	})
	if err != nil {
		h.writeStoreError(w, "positions.create.fail", err)
		return
	}

	h.log.Info("positions.create.ok", "position_id", p.ID, "user_id", p.UserID)
	authapi.WriteJSON(w, http.StatusCreated, toPositionResponse(p))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.ListPositions(r.Context())
	if err != nil {
		h.log.Error("positions.list.fail", "err", err)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	out := make([]positionResponse, 0, len(all))
	for _, p := range all {
		out = append(out, toPositionResponse(p))
	}
	authapi.WriteJSON(w, http.StatusOK, listPositionsResponse{Positions: out})
}

func (h *Handler) handleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r.URL.Path, "/positions/")
	if !ok {
		authapi.WriteError(w, http.StatusNotFound, "not_found", "position not found")
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
	p, err := h.store.GetPosition(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "positions.get.fail", err)
		return
	}
	authapi.WriteJSON(w, http.StatusOK, toPositionResponse(p))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id int64) {
	var req updatePositionRequest
	if err := authapi.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	p, err := h.store.UpdatePosition(r.Context(), id, UpdatePositionInput{
		Code: req.Code,
		Name: req.Name,
		Now:  time.Now().UTC(),
	})
	if err != nil {
		h.writeStoreError(w, "positions.update.fail", err)
		return
	}

	h.log.Info("positions.update.ok", "position_id", p.ID)
	authapi.WriteJSON(w, http.StatusOK, toPositionResponse(p))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.store.DeletePosition(r.Context(), id); err != nil {
		h.writeStoreError(w, "positions.delete.fail", err)
		return
	}

	h.log.Info("positions.delete.ok", "position_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, event string, err error) {
	switch {
	case IsNotFound(err):
		authapi.WriteError(w, http.StatusNotFound, "not_found", "position not found")
	case IsInvalidInput(err):
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
