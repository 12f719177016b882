// Package roles exposes role CRUD and the per-role ACL grid endpoints. The
// actual rules (name uniqueness, delete guards, grant diffing) live in the
// rbac engine; this layer only translates HTTP.
package roles

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

// Handler manages role endpoints.
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

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.FeaturePengaturan, shared.PermView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.FeaturePengaturan, shared.PermCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.FeaturePengaturan, shared.PermEdit))
		r.Put("/{id}", h.update)
		r.Put("/{id}/acl", h.saveACL)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.FeaturePengaturan, shared.PermDelete))
		r.Delete("/{id}", h.remove)
	})
}

type roleDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ParentRoleID *int64 `json:"parentRoleId"`
}

type aclEntryDTO struct {
	RoleID       int64 `json:"roleId"`
	FeatureID    int64 `json:"featureId"`
	PermissionID int64 `json:"permissionId"`
}

type roleDetailDTO struct {
	roleDTO
	ACL []aclEntryDTO `json:"acl"`
}

func toRoleDTO(r rbac.Role) roleDTO {
	return roleDTO{ID: r.ID, Name: r.Name, Description: r.Description, ParentRoleID: r.ParentRoleID}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListRoles(r.Context())
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	out := make([]roleDTO, 0, len(list))
	for _, role := range list {
		out = append(out, toRoleDTO(role))
	}
	httpx.OK(w, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id role tidak valid")
		return
	}
	role, err := h.engine.GetRole(r.Context(), id)
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	grants, err := h.engine.DirectGrants(r.Context(), id)
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	acl := make([]aclEntryDTO, 0, len(grants))
	for _, g := range grants {
		acl = append(acl, aclEntryDTO{RoleID: g.RoleID, FeatureID: g.FeatureID, PermissionID: g.PermissionID})
	}
	httpx.OK(w, roleDetailDTO{roleDTO: toRoleDTO(role), ACL: acl})
}

type createRoleRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Description  string `json:"description" validate:"max=255"`
	ParentRoleID *int64 `json:"parentRoleId"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rbac.RespondError(w, err)
		return
	}
	role, err := h.engine.CreateRole(r.Context(), actorID(r), req.Name, req.Description, req.ParentRoleID)
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	httpx.Created(w, toRoleDTO(role))
}

type updateRoleRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id role tidak valid")
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rbac.RespondError(w, err)
		return
	}
	role, err := h.engine.UpdateRole(r.Context(), actorID(r), id, req.Name, req.Description)
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	httpx.OK(w, toRoleDTO(role))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id role tidak valid")
		return
	}
	if err := h.engine.DeleteRole(r.Context(), actorID(r), id); err != nil {
		rbac.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, "role dihapus", nil)
}

type saveACLRequest struct {
	ACL []struct {
		FeatureID    int64 `json:"featureId" validate:"required"`
		PermissionID int64 `json:"permissionId" validate:"required"`
	} `json:"acl"`
}

func (h *Handler) saveACL(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id role tidak valid")
		return
	}
	var req saveACLRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	desired := make([]rbac.GrantKey, 0, len(req.ACL))
	for _, entry := range req.ACL {
		desired = append(desired, rbac.GrantKey{FeatureID: entry.FeatureID, PermissionID: entry.PermissionID})
	}
	added, removed, err := h.engine.SaveBulk(r.Context(), actorID(r), id, desired)
	if err != nil {
		rbac.RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"added": added, "removed": removed})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func actorID(r *http.Request) int64 {
	principal, _ := shared.PrincipalFromContext(r.Context())
	return principal.UserID
}
