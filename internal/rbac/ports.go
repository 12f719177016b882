package rbac

import "context"

// Loader pulls the full engine state from storage at startup.
type Loader interface {
	LoadSnapshot(ctx context.Context) (Snapshot, error)
}

// Persister receives write-through mutations. The engine persists first and
// commits to memory only on success, so storage and memory cannot diverge.
type Persister interface {
	InsertRole(ctx context.Context, role Role) (int64, error)
	UpdateRole(ctx context.Context, role Role) error
	UpdateRoleParent(ctx context.Context, roleID int64, parentID *int64) error
	DeleteRole(ctx context.Context, roleID int64) error

	InsertFeature(ctx context.Context, feature Feature) (int64, error)
	UpdateFeature(ctx context.Context, feature Feature) error
	DeleteFeature(ctx context.Context, featureID int64) error

	InsertPermission(ctx context.Context, permission Permission) (int64, error)
	UpdatePermission(ctx context.Context, permission Permission) error
	DeletePermission(ctx context.Context, permissionID int64) error

	InsertGrant(ctx context.Context, grant Grant) error
	InsertGrants(ctx context.Context, grants []Grant) error
	DeleteGrant(ctx context.Context, grant Grant) error
	// ReplaceGrants applies adds and removes for one role in a single
	// transaction; either the whole diff lands or nothing does.
	ReplaceGrants(ctx context.Context, roleID int64, add, remove []Grant) error
}

// Store is the combined persistence contract of the engine.
type Store interface {
	Loader
	Persister
}

// UserDirectory is the external user-store collaborator consulted before a
// role may be deleted.
type UserDirectory interface {
	HasUsers(ctx context.Context, roleID int64) (bool, error)
	UserCountForRole(ctx context.Context, roleID int64) (int64, error)
}

// Stats receives engine observability signals.
type Stats interface {
	ObserveResolve(seconds float64)
	LockTimeout()
}
