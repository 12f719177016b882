package rbac

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aksara-hq/aksara-admin/internal/platform/httpx"
	"github.com/aksara-hq/aksara-admin/internal/shared"
)

// Handler exposes the role-hierarchy and ACL endpoints consumed by the
// dashboard frontend.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	mw       Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, mw: mw, validate: validator.New()}
}

// MountHierarchyRoutes registers /role-hierarchy routes.
func (h *Handler) MountHierarchyRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.FeaturePengaturan, shared.PermView))
		r.Get("/hierarchy", h.getHierarchy)
		r.Get("/{id}/permissions", h.getRolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.FeaturePengaturan, shared.PermEdit))
		r.Put("/{id}/parent", h.updateParent)
		r.Post("/{id}/grant-full-access", h.grantFullAccess)
		r.Post("/copy-permissions", h.copyPermissions)
	})
}

// MountACLRoutes registers /acl routes.
func (h *Handler) MountACLRoutes(r chi.Router) {
	r.Get("/access", h.getUserAccess)
	r.Post("/check", h.checkAccess)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireFeature(shared.FeaturePengaturan))
		r.Get("/features", h.listFeatures)
		r.Get("/permissions", h.listPermissions)
	})
}

type roleDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ParentRoleID *int64 `json:"parentRoleId"`
}

type roleNodeDTO struct {
	roleDTO
	Children []roleNodeDTO `json:"children"`
}

type featureDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Route string `json:"route"`
	Icon  string `json:"icon"`
}

type permissionDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type resolvedGrantDTO struct {
	RoleID       int64         `json:"roleId"`
	Feature      featureDTO    `json:"feature"`
	Permission   permissionDTO `json:"permission"`
	Direct       bool          `json:"direct"`
	SourceRoleID *int64        `json:"sourceRoleId"`
}

type featureAccessDTO struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Route       string   `json:"route"`
	Icon        string   `json:"icon"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) getHierarchy(w http.ResponseWriter, r *http.Request) {
	roots, err := h.service.Hierarchy(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	httpx.OK(w, toRoleNodeDTOs(roots))
}

func (h *Handler) getRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id role tidak valid")
		return
	}
	effective, err := h.service.Resolve(r.Context(), roleID)
	if err != nil {
		RespondError(w, err)
		return
	}
	features, err := h.service.ListFeatures(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	permissions, err := h.service.ListPermissions(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	featureByID := make(map[int64]Feature, len(features))
	for _, f := range features {
		featureByID[f.ID] = f
	}
	permByID := make(map[int64]Permission, len(permissions))
	for _, p := range permissions {
		permByID[p.ID] = p
	}

	out := make([]resolvedGrantDTO, 0, len(effective))
	for _, entry := range effective {
		feature, ok := featureByID[entry.FeatureID]
		if !ok {
			continue
		}
		perm, ok := permByID[entry.PermissionID]
		if !ok {
			continue
		}
		owner := roleID
		if entry.SourceRoleID != nil {
			owner = *entry.SourceRoleID
		}
		out = append(out, resolvedGrantDTO{
			RoleID:       owner,
			Feature:      featureDTO{ID: feature.ID, Name: feature.Name, Route: feature.Route, Icon: feature.Icon},
			Permission:   permissionDTO{ID: perm.ID, Name: perm.Name},
			Direct:       entry.Direct,
			SourceRoleID: entry.SourceRoleID,
		})
	}
	httpx.OK(w, out)
}

type updateParentRequest struct {
	ParentRoleID *int64 `json:"parentRoleId"`
}

func (h *Handler) updateParent(w http.ResponseWriter, r *http.Request) {
	roleID, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id role tidak valid")
		return
	}
	var req updateParentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	actor := actorID(r)
	if err := h.service.Reparent(r.Context(), actor, roleID, req.ParentRoleID); err != nil {
		RespondError(w, err)
		return
	}
	httpx.OKMessage(w, "parent role diperbarui", nil)
}

func (h *Handler) grantFullAccess(w http.ResponseWriter, r *http.Request) {
	roleID, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id role tidak valid")
		return
	}
	count, err := h.service.GrantFullAccess(r.Context(), actorID(r), roleID)
	if err != nil {
		RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"addedCount": count})
}

type copyPermissionsRequest struct {
	SourceRoleID int64 `json:"sourceRoleId" validate:"required"`
	TargetRoleID int64 `json:"targetRoleId" validate:"required"`
}

func (h *Handler) copyPermissions(w http.ResponseWriter, r *http.Request) {
	var req copyPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		RespondError(w, err)
		return
	}
	count, err := h.service.CopyPermissions(r.Context(), actorID(r), req.SourceRoleID, req.TargetRoleID)
	if err != nil {
		RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"copiedCount": count})
}

func (h *Handler) getUserAccess(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "autentikasi diperlukan")
		return
	}
	access, err := h.service.ListAccessibleFeatures(r.Context(), principal.RoleID)
	if err != nil {
		RespondError(w, err)
		return
	}
	features := make([]featureAccessDTO, 0, len(access))
	for _, fa := range access {
		features = append(features, featureAccessDTO{
			ID:          fa.Feature.ID,
			Name:        fa.Feature.Name,
			Route:       fa.Feature.Route,
			Icon:        fa.Feature.Icon,
			Permissions: fa.Permissions,
		})
	}
	httpx.OK(w, map[string]any{"features": features})
}

type checkAccessRequest struct {
	FeatureName    string `json:"featureName" validate:"required"`
	PermissionName string `json:"permissionName" validate:"required"`
}

func (h *Handler) checkAccess(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "autentikasi diperlukan")
		return
	}
	var req checkAccessRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		RespondError(w, err)
		return
	}
	allowed := h.service.HasPermission(r.Context(), principal.RoleID, req.FeatureName, req.PermissionName)
	httpx.OK(w, map[string]any{"allowed": allowed})
}

func (h *Handler) listFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := h.service.ListFeatures(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	out := make([]featureDTO, 0, len(features))
	for _, f := range features {
		out = append(out, featureDTO{ID: f.ID, Name: f.Name, Route: f.Route, Icon: f.Icon})
	}
	httpx.OK(w, out)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.service.ListPermissions(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	out := make([]permissionDTO, 0, len(permissions))
	for _, p := range permissions {
		out = append(out, permissionDTO{ID: p.ID, Name: p.Name})
	}
	httpx.OK(w, out)
}

func toRoleNodeDTOs(nodes []*RoleNode) []roleNodeDTO {
	out := make([]roleNodeDTO, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, roleNodeDTO{
			roleDTO: roleDTO{
				ID:           node.ID,
				Name:         node.Name,
				Description:  node.Description,
				ParentRoleID: node.ParentRoleID,
			},
			Children: toRoleNodeDTOs(node.Children),
		})
	}
	return out
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func actorID(r *http.Request) int64 {
	principal, _ := shared.PrincipalFromContext(r.Context())
	return principal.UserID
}
