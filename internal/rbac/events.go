package rbac

import (
	"context"
	"time"
)

// Audit actions.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Audit modules.
const (
	ModuleRole          = "Role"
	ModuleACL           = "ACL"
	ModuleRoleHierarchy = "RoleHierarchy"
	ModuleFeature       = "Feature"
	ModulePermission    = "Permission"
)

// ChangeEvent describes one committed mutation for the audit sink.
type ChangeEvent struct {
	Action     string
	Module     string
	ActorID    int64
	ResourceID string
	OldValues  map[string]any
	NewValues  map[string]any
	At         time.Time
}

// Sink receives change events. Sink failures are observability losses, not
// mutation failures: the engine logs them and moves on.
type Sink interface {
	Record(ctx context.Context, ev ChangeEvent) error
}
