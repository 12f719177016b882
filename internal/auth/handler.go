package auth

import (
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aksara-hq/aksara-admin/internal/platform/httpx"
	"github.com/aksara-hq/aksara-admin/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	mw       Middleware
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, mw: mw, validate: validator.New()}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/refresh-token", h.refresh)
	r.Post("/logout", h.logout)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Authenticate)
		r.Get("/profile", h.profile)
	})
}

type accountDTO struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	RoleID int64  `json:"roleId"`
}

type tokenPairDTO struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

func toTokenDTO(p TokenPair) tokenPairDTO {
	return tokenPairDTO{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "email atau password tidak valid")
		return
	}
	account, pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Fail(w, http.StatusUnauthorized, "Email atau password tidak valid")
			return
		}
		h.logger.Error("login failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "terjadi kesalahan internal")
		return
	}
	httpx.OK(w, map[string]any{
		"user": accountDTO{ID: account.ID, Email: account.Email, Name: account.Name, RoleID: account.RoleID},
		"tokens": toTokenDTO(pair),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "refresh token diperlukan")
		return
	}
	_, pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, shared.ErrTokenInvalid) || errors.Is(err, shared.ErrTokenExpired) {
			httpx.Fail(w, http.StatusUnauthorized, "refresh token tidak valid")
			return
		}
		h.logger.Error("refresh failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "terjadi kesalahan internal")
		return
	}
	httpx.OK(w, toTokenDTO(pair))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
		return
	}
	if req.RefreshToken != "" {
		if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
			h.logger.Warn("logout revoke failed", slog.Any("error", err))
		}
	}
	httpx.OKMessage(w, "berhasil keluar", nil)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "autentikasi diperlukan")
		return
	}
	account, err := h.service.Profile(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, "pengguna tidak ditemukan")
			return
		}
		h.logger.Error("profile lookup failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "terjadi kesalahan internal")
		return
	}
	httpx.OK(w, accountDTO{ID: account.ID, Email: account.Email, Name: account.Name, RoleID: account.RoleID})
}
