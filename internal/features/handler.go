// Package features exposes feature catalog CRUD. Deleting a feature cascades
// into every grant referencing it; the engine enforces that.
package features

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

// Handler manages feature endpoints.
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

// MountRoutes registers feature routes.
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

type featureDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Route string `json:"route"`
	Icon  string `json:"icon"`
}

type featureRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Route string `json:"route" validate:"max=255"`
	Icon  string `json:"icon" validate:"max=100"`
}

func toDTO(f rbac.Feature) featureDTO {
	return featureDTO{ID: f.ID, Name: f.Name, Route: f.Route, Icon: f.Icon}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListFeatures(r.Context())
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	out := make([]featureDTO, 0, len(list))
	for _, f := range list {
		out = append(out, toDTO(f))
	}
	httpx.OK(w, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req featureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rbac.RespondError(w, err)
		return
	}
	feature, err := h.engine.CreateFeature(r.Context(), actorID(r), req.Name, req.Route, req.Icon)
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	httpx.Created(w, toDTO(feature))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id fitur tidak valid")
		return
	}
	var req featureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rbac.RespondError(w, err)
		return
	}
	feature, err := h.engine.UpdateFeature(r.Context(), actorID(r), id, req.Name, req.Route, req.Icon)
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	httpx.OK(w, toDTO(feature))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id fitur tidak valid")
		return
	}
	if err := h.engine.DeleteFeature(r.Context(), actorID(r), id); err != nil {
		rbac.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, "fitur dihapus", nil)
}

func actorID(r *http.Request) int64 {
	principal, _ := shared.PrincipalFromContext(r.Context())
	return principal.UserID
}
