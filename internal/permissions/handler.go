// Package permissions exposes permission catalog CRUD. Deleting a permission
// cascades into every grant referencing it; the engine enforces that.
package permissions

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aksara-hq/aksara-admin/internal/platform/httpx"
	"github.com/aksara-hq/aksara-admin/internal/rbac"
	"github.com/aksara-hq/aksara-admin/internal/shared"
)

// Handler manages permission endpoints.
type Handler struct {
	logger   *slog.Logger
	engine   *rbac.Service
	mw       rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, engine *rbac.Service, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, engine: engine, mw: mw, validate: validator.New()}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.FeaturePengaturan, shared.PermView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.FeaturePengaturan, shared.PermCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.FeaturePengaturan, shared.PermEdit))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.FeaturePengaturan, shared.PermDelete))
		r.Delete("/{id}", h.remove)
	})
}

type permissionDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type permissionRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListPermissions(r.Context())
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	out := make([]permissionDTO, 0, len(list))
	for _, p := range list {
		out = append(out, permissionDTO{ID: p.ID, Name: p.Name})
	}
	httpx.OK(w, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rbac.RespondError(w, err)
		return
	}
	perm, err := h.engine.CreatePermission(r.Context(), actorID(r), req.Name)
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	httpx.Created(w, permissionDTO{ID: perm.ID, Name: perm.Name})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id permission tidak valid")
		return
	}
	var req permissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rbac.RespondError(w, err)
		return
	}
	perm, err := h.engine.UpdatePermission(r.Context(), actorID(r), id, req.Name)
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	httpx.OK(w, permissionDTO{ID: perm.ID, Name: perm.Name})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id permission tidak valid")
		return
	}
	if err := h.engine.DeletePermission(r.Context(), actorID(r), id); err != nil {
		rbac.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, "permission dihapus", nil)
}

func actorID(r *http.Request) int64 {
	principal, _ := shared.PrincipalFromContext(r.Context())
	return principal.UserID
}
