package audit

import (
	"context"
	"fmt"
	"time"
)

// RepositoryPort menyediakan akses ke query timeline yang dibutuhkan.
type RepositoryPort interface {
	TimelineWindow(ctx context.Context, p windowParams) ([]TimelineRow, error)
	TimelineAll(ctx context.Context, p windowParams) ([]TimelineRow, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Result membungkus hasil timeline dengan informasi paging.
type Result struct {
	Rows   []TimelineRow
	Paging PagingInfo
}

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	repo RepositoryPort
}

// NewService membuat service audit timeline baru.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Timeline mengambil data audit dengan paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize
	rows, err := s.repo.TimelineWindow(ctx, windowParams{
		From:    filters.From,
		To:      filters.To,
		ActorID: filters.ActorID,
		Module:  filters.Module,
		Action:  filters.Action,
		Offset:  offset,
		Limit:   pageSize + 1,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export mengambil seluruh data timeline tanpa paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.TimelineAll(ctx, windowParams{
		From:    filters.From,
		To:      filters.To,
		ActorID: filters.ActorID,
		Module:  filters.Module,
		Action:  filters.Action,
	})
}

// Prune menghapus log yang lebih tua dari retention.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("audit: repository not configured")
	}
	cutoff := time.Now().UTC().Add(-retention)
	return s.repo.DeleteOlderThan(ctx, cutoff)
}
