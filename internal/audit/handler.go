package audit

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/aksara-hq/aksara-admin/internal/platform/httpx"
	"github.com/aksara-hq/aksara-admin/internal/rbac"
	"github.com/aksara-hq/aksara-admin/internal/shared"
)

const (
	defaultPageSize   = 20
	maxPageSize       = 50
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90

	exportRateLimit  = 10
	exportRateWindow = time.Minute
)

// Handler menangani permintaan audit timeline.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	exporter CSVExporter
	mw       rbac.Middleware
	now      func() time.Time
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, mw: mw, now: time.Now}
}

// MountRoutes mendaftarkan endpoint audit timeline dan ekspor CSV.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusTooManyRequests, "terlalu banyak permintaan")
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.FeaturePengaturan, shared.PermView))
		r.Get("/", h.handleTimeline)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/export.csv", h.handleExport)
		})
	})
}

type timelineRowDTO struct {
	ID         int64          `json:"id"`
	At         time.Time      `json:"at"`
	ActorID    int64          `json:"actorId"`
	Action     string         `json:"action"`
	Module     string         `json:"module"`
	ResourceID string         `json:"resourceId"`
	OldValues  map[string]any `json:"oldValues,omitempty"`
	NewValues  map[string]any `json:"newValues,omitempty"`
}

type pagingDTO struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "filter tidak valid")
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "terjadi kesalahan internal")
		return
	}
	rows := make([]timelineRowDTO, 0, len(result.Rows))
	for _, row := range result.Rows {
		rows = append(rows, timelineRowDTO{
			ID:         row.ID,
			At:         row.At,
			ActorID:    row.ActorID,
			Action:     row.Action,
			Module:     row.Module,
			ResourceID: row.ResourceID,
			OldValues:  row.OldValues,
			NewValues:  row.NewValues,
		})
	}
	httpx.OK(w, map[string]any{
		"rows":   rows,
		"paging": pagingDTO{Page: result.Paging.Page, PageSize: result.Paging.PageSize, HasNext: result.Paging.HasNext},
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "filter tidak valid")
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "terjadi kesalahan internal")
		return
	}
	csvBytes, err := h.exporter.WriteCSV(rows)
	if err != nil {
		h.logger.Error("encode csv", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "terjadi kesalahan internal")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-logs.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

var errBadFilter = errors.New("audit: invalid filter")

func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	now := h.now().UTC()

	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = now.Format("2006-01-02")
	}
	toTime, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return TimelineFilters{}, errBadFilter
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format("2006-01-02")
	}
	fromTime, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return TimelineFilters{}, errBadFilter
	}
	if fromTime.After(toTime) || toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
		return TimelineFilters{}, errBadFilter
	}

	var actorID int64
	if v := strings.TrimSpace(q.Get("actorId")); v != "" {
		actorID, err = strconv.ParseInt(v, 10, 64)
		if err != nil || actorID <= 0 {
			return TimelineFilters{}, errBadFilter
		}
	}
	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page <= 0 {
			return TimelineFilters{}, errBadFilter
		}
	}
	pageSize := defaultPageSize
	if v := strings.TrimSpace(q.Get("pageSize")); v != "" {
		pageSize, err = strconv.Atoi(v)
		if err != nil || pageSize <= 0 {
			return TimelineFilters{}, errBadFilter
		}
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
	}

	return TimelineFilters{
		From:     fromTime,
		To:       toTime,
		ActorID:  actorID,
		Module:   strings.TrimSpace(q.Get("module")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func rateLimitKey(r *http.Request) (string, error) {
	if principal, ok := shared.PrincipalFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(principal.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
