package rbac

// Feature represents a navigable module of the dashboard (e.g. "Pengaturan").
type Feature struct {
	ID    int64
	Name  string
	Route string
	Icon  string
}

// Permission represents an atomic capability on a feature (e.g. "View").
type Permission struct {
	ID   int64
	Name string
}

// Role represents a named permission grouping. Roles form a tree through
// ParentRoleID; a nil parent marks a root.
type Role struct {
	ID           int64
	Name         string
	Description  string
	ParentRoleID *int64
}

// Grant ties a (feature, permission) pair directly to a role.
type Grant struct {
	RoleID       int64
	FeatureID    int64
	PermissionID int64
}

// GrantKey identifies a (feature, permission) pair independent of the role.
type GrantKey struct {
	FeatureID    int64
	PermissionID int64
}

// Key returns the role-independent part of the grant.
func (g Grant) Key() GrantKey {
	return GrantKey{FeatureID: g.FeatureID, PermissionID: g.PermissionID}
}

// EffectivePermission is one entry of a role's resolved permission set.
// Direct entries are granted on the role itself; inherited entries carry the
// ancestor that contributed them in SourceRoleID.
type EffectivePermission struct {
	FeatureID    int64
	PermissionID int64
	Direct       bool
	SourceRoleID *int64
}

// FeatureAccess groups the permission names a role holds on one feature.
type FeatureAccess struct {
	Feature     Feature
	Permissions []string
}

// RoleNode is a role with its children, used to render the hierarchy tree.
type RoleNode struct {
	Role
	Children []*RoleNode
}

// Snapshot is the full engine state as loaded from storage.
type Snapshot struct {
	Features    []Feature
	Permissions []Permission
	Roles       []Role
	Grants      []Grant
}
