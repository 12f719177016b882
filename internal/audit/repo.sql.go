package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository menyediakan akses query timeline di PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository membuat repository audit baru.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type windowParams struct {
	From    time.Time
	To      time.Time
	ActorID int64
	Module  string
	Action  string
	Offset  int
	Limit   int
}

const timelineBaseQuery = `
	SELECT id, actor_id, action, module, resource_id, old_values, new_values, created_at
	FROM audit_logs
	WHERE ($1::timestamptz IS NULL OR created_at >= $1)
	  AND ($2::timestamptz IS NULL OR created_at < $2 + interval '1 day')
	  AND ($3::bigint = 0 OR actor_id = $3)
	  AND ($4::text = '' OR module = $4)
	  AND ($5::text = '' OR action = $5)
	ORDER BY created_at DESC, id DESC`

// TimelineWindow mengambil satu halaman timeline.
func (r *Repository) TimelineWindow(ctx context.Context, p windowParams) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineBaseQuery+` OFFSET $6 LIMIT $7`,
		nullTime(p.From), nullTime(p.To), p.ActorID, p.Module, p.Action, p.Offset, p.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRows(rows)
}

// TimelineAll mengambil seluruh timeline tanpa paging untuk ekspor.
func (r *Repository) TimelineAll(ctx context.Context, p windowParams) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineBaseQuery,
		nullTime(p.From), nullTime(p.To), p.ActorID, p.Module, p.Action)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRows(rows)
}

// DeleteOlderThan menghapus log audit yang lebih tua dari cutoff dan
// mengembalikan jumlah baris yang terhapus.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectRows(rows pgx.Rows) ([]TimelineRow, error) {
	var out []TimelineRow
	for rows.Next() {
		var (
			row     TimelineRow
			oldJSON []byte
			newJSON []byte
		)
		if err := rows.Scan(&row.ID, &row.ActorID, &row.Action, &row.Module, &row.ResourceID, &oldJSON, &newJSON, &row.At); err != nil {
			return nil, err
		}
		if len(oldJSON) > 0 {
			if err := json.Unmarshal(oldJSON, &row.OldValues); err != nil {
				return nil, err
			}
		}
		if len(newJSON) > 0 {
			if err := json.Unmarshal(newJSON, &row.NewValues); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
