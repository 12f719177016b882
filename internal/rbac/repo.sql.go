package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aksara-hq/aksara-admin/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the engine. Grant
// rows cascade on role/feature/permission deletion at the schema level, so
// DeleteFeature and friends need a single statement each.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// LoadSnapshot reads the entire catalog, role graph and ACL table.
func (r *Repository) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	rows, err := r.pool.Query(ctx, `SELECT id, name, route, icon FROM features ORDER BY id`)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Route, &f.Icon); err != nil {
			return Snapshot{}, err
		}
		snap.Features = append(snap.Features, f)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	rows.Close()

	rows, err = r.pool.Query(ctx, `SELECT id, name FROM permissions ORDER BY id`)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return Snapshot{}, err
		}
		snap.Permissions = append(snap.Permissions, p)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	rows.Close()

	rows, err = r.pool.Query(ctx, `SELECT id, name, description, parent_role_id FROM roles ORDER BY id`)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.ParentRoleID); err != nil {
			return Snapshot{}, err
		}
		snap.Roles = append(snap.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	rows.Close()

	rows, err = r.pool.Query(ctx, `SELECT role_id, feature_id, permission_id FROM acl ORDER BY role_id, feature_id, permission_id`)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.RoleID, &g.FeatureID, &g.PermissionID); err != nil {
			return Snapshot{}, err
		}
		snap.Grants = append(snap.Grants, g)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// InsertRole inserts a role and returns its id.
func (r *Repository) InsertRole(ctx context.Context, role Role) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, parent_role_id) VALUES ($1, $2, $3) RETURNING id`,
		role.Name, role.Description, role.ParentRoleID,
	).Scan(&id)
	return id, err
}

// UpdateRole updates a role's name and description.
func (r *Repository) UpdateRole(ctx context.Context, role Role) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE roles SET name = $2, description = $3, updated_at = NOW() WHERE id = $1`,
		role.ID, role.Name, role.Description,
	)
	return err
}

// UpdateRoleParent rewires a role's parent edge.
func (r *Repository) UpdateRoleParent(ctx context.Context, roleID int64, parentID *int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE roles SET parent_role_id = $2, updated_at = NOW() WHERE id = $1`,
		roleID, parentID,
	)
	return err
}

// DeleteRole removes a role; its grants cascade.
func (r *Repository) DeleteRole(ctx context.Context, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, roleID)
	return err
}

// InsertFeature inserts a feature and returns its id.
func (r *Repository) InsertFeature(ctx context.Context, feature Feature) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO features (name, route, icon) VALUES ($1, $2, $3) RETURNING id`,
		feature.Name, feature.Route, feature.Icon,
	).Scan(&id)
	return id, err
}

// UpdateFeature updates a feature.
func (r *Repository) UpdateFeature(ctx context.Context, feature Feature) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE features SET name = $2, route = $3, icon = $4, updated_at = NOW() WHERE id = $1`,
		feature.ID, feature.Name, feature.Route, feature.Icon,
	)
	return err
}

// DeleteFeature removes a feature; referencing grants cascade.
func (r *Repository) DeleteFeature(ctx context.Context, featureID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM features WHERE id = $1`, featureID)
	return err
}

// InsertPermission inserts a permission and returns its id.
func (r *Repository) InsertPermission(ctx context.Context, permission Permission) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (name) VALUES ($1) RETURNING id`,
		permission.Name,
	).Scan(&id)
	return id, err
}

// UpdatePermission renames a permission.
func (r *Repository) UpdatePermission(ctx context.Context, permission Permission) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE permissions SET name = $2, updated_at = NOW() WHERE id = $1`,
		permission.ID, permission.Name,
	)
	return err
}

// DeletePermission removes a permission; referencing grants cascade.
func (r *Repository) DeletePermission(ctx context.Context, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, permissionID)
	return err
}

// InsertGrant inserts one ACL row, tolerating replays.
func (r *Repository) InsertGrant(ctx context.Context, grant Grant) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO acl (role_id, feature_id, permission_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		grant.RoleID, grant.FeatureID, grant.PermissionID,
	)
	return err
}

// InsertGrants bulk inserts ACL rows in one transaction.
func (r *Repository) InsertGrants(ctx context.Context, grants []Grant) error {
	if len(grants) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, g := range grants {
			if _, err := tx.Exec(ctx,
				`INSERT INTO acl (role_id, feature_id, permission_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
				g.RoleID, g.FeatureID, g.PermissionID,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteGrant removes one ACL row.
func (r *Repository) DeleteGrant(ctx context.Context, grant Grant) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM acl WHERE role_id = $1 AND feature_id = $2 AND permission_id = $3`,
		grant.RoleID, grant.FeatureID, grant.PermissionID,
	)
	return err
}

// ReplaceGrants applies a bulk diff for one role atomically.
func (r *Repository) ReplaceGrants(ctx context.Context, roleID int64, add, remove []Grant) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, g := range remove {
			if _, err := tx.Exec(ctx,
				`DELETE FROM acl WHERE role_id = $1 AND feature_id = $2 AND permission_id = $3`,
				roleID, g.FeatureID, g.PermissionID,
			); err != nil {
				return err
			}
		}
		for _, g := range add {
			if _, err := tx.Exec(ctx,
				`INSERT INTO acl (role_id, feature_id, permission_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
				roleID, g.FeatureID, g.PermissionID,
			); err != nil {
				return err
			}
		}
		return nil
	})
}
