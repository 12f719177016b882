package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aksara-hq/aksara-admin/internal/rbac"
)

// Recorder menulis event perubahan akses ke tabel audit_logs. Memenuhi
// kontrak sink milik access engine: gagal menulis tidak boleh membatalkan
// mutasi yang sudah terjadi, jadi error dikembalikan apa adanya dan biar
// pemanggil yang memutuskan.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder membuat recorder audit baru.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

var _ rbac.Sink = (*Recorder)(nil)

// Record menyimpan satu event perubahan.
func (r *Recorder) Record(ctx context.Context, event rbac.ChangeEvent) error {
	oldJSON, err := marshalValues(event.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := marshalValues(event.NewValues)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, action, module, resource_id, old_values, new_values, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ActorID, event.Action, event.Module, event.ResourceID, oldJSON, newJSON, event.At)
	return err
}

func marshalValues(values map[string]any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}
