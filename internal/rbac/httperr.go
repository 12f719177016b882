package rbac

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aksara-hq/aksara-admin/internal/platform/httpx"
)

// RespondError maps engine errors to HTTP failure envelopes. All admin
// handlers share this so the frontend sees one consistent error shape.
func RespondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "data tidak ditemukan")
	case errors.Is(err, ErrDuplicate):
		httpx.Fail(w, http.StatusConflict, "nama sudah digunakan")
	case errors.Is(err, ErrInUse):
		httpx.Fail(w, http.StatusConflict, "role masih memiliki user atau child role")
	case errors.Is(err, ErrCycle):
		httpx.Fail(w, http.StatusBadRequest, "parent role akan membentuk siklus")
	case errors.Is(err, ErrSelfParent):
		httpx.Fail(w, http.StatusBadRequest, "role tidak boleh menjadi parent dirinya sendiri")
	case errors.Is(err, ErrSameRole):
		httpx.Fail(w, http.StatusBadRequest, "role sumber dan target tidak boleh sama")
	case errors.Is(err, ErrInvalidInput):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &verrs):
		httpx.Fail(w, http.StatusBadRequest, "payload tidak valid")
	case errors.Is(err, ErrLockTimeout):
		httpx.Fail(w, http.StatusServiceUnavailable, "server sibuk, coba lagi")
	default:
		httpx.Fail(w, http.StatusInternalServerError, "terjadi kesalahan internal")
	}
}
