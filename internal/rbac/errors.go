package rbac

import "errors"

var (
	// ErrNotFound indicates that the referenced role, feature or permission does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrDuplicate indicates a name collision on a unique entity.
	ErrDuplicate = errors.New("rbac: duplicate name")
	// ErrCycle indicates a reparent that would make a role its own ancestor.
	ErrCycle = errors.New("rbac: parent assignment would create a cycle")
	// ErrSelfParent indicates a role pointed at itself as parent.
	ErrSelfParent = errors.New("rbac: role cannot be its own parent")
	// ErrInUse indicates a delete blocked by child roles or provisioned users.
	ErrInUse = errors.New("rbac: role still in use")
	// ErrSameRole indicates a permission copy where source and target match.
	ErrSameRole = errors.New("rbac: source and target role are identical")
	// ErrLockTimeout indicates the engine lock could not be acquired in time.
	ErrLockTimeout = errors.New("rbac: lock acquisition timed out")
	// ErrInvalidInput indicates a malformed argument such as a blank name.
	ErrInvalidInput = errors.New("rbac: invalid input")
)
