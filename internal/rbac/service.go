package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// maxConcurrentReaders bounds the reader side of the engine lock. A writer
// acquires the full weight and is therefore serialized against everything.
const maxConcurrentReaders = 64

const defaultLockWait = 2 * time.Second

// ServiceConfig tunes engine behaviour.
type ServiceConfig struct {
	// LockWait bounds how long an operation waits for the engine lock
	// before failing with ErrLockTimeout.
	LockWait time.Duration
}

// Service owns the permission catalog, role graph and grant store, and
// exposes the mutation operations and the access decision API on top of
// them. Reads run concurrently under a shared lock; mutations are fully
// serialized, and the bulk operations hold the writer lock across their
// whole resolve-then-mutate sequence so no interleaving can be observed.
type Service struct {
	logger   *slog.Logger
	sem      *semaphore.Weighted
	lockWait time.Duration

	catalog *Catalog
	graph   *RoleGraph
	grants  *GrantStore

	store Store
	sink  Sink
	users UserDirectory
	cache *AccessCache
	stats Stats
}

// NewService builds the engine. store, sink, users, cache and stats may each
// be nil: the engine then runs purely in memory, without audit events, with
// role deletion unguarded by users, uncached, and unmetered respectively.
func NewService(logger *slog.Logger, store Store, sink Sink, users UserDirectory, cache *AccessCache, stats Stats, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	wait := cfg.LockWait
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &Service{
		logger:   logger,
		sem:      semaphore.NewWeighted(maxConcurrentReaders),
		lockWait: wait,
		catalog:  NewCatalog(),
		graph:    NewRoleGraph(),
		grants:   NewGrantStore(),
		store:    store,
		sink:     sink,
		users:    users,
		cache:    cache,
		stats:    stats,
	}
}

// Load replaces the in-memory state with the stored snapshot.
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("rbac: load snapshot: %w", err)
	}
	unlock, err := s.wlock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	s.install(snap)
	return nil
}

func (s *Service) install(snap Snapshot) {
	catalog := NewCatalog()
	for _, f := range snap.Features {
		catalog.features[f.ID] = f
		catalog.featureNames[catalogKey(f.Name)] = f.ID
		if f.ID > catalog.lastFeatureID {
			catalog.lastFeatureID = f.ID
		}
	}
	for _, p := range snap.Permissions {
		catalog.permissions[p.ID] = p
		catalog.permNames[catalogKey(p.Name)] = p.ID
		if p.ID > catalog.lastPermissionID {
			catalog.lastPermissionID = p.ID
		}
	}
	graph := NewRoleGraph()
	for _, r := range snap.Roles {
		graph.roles[r.ID] = r
		if r.ID > graph.lastRoleID {
			graph.lastRoleID = r.ID
		}
	}
	grants := NewGrantStore()
	for _, g := range snap.Grants {
		grants.add(g.RoleID, g.Key())
	}
	s.catalog = catalog
	s.graph = graph
	s.grants = grants
}

func (s *Service) rlock(ctx context.Context) (func(), error) {
	return s.acquire(ctx, 1)
}

func (s *Service) wlock(ctx context.Context) (func(), error) {
	return s.acquire(ctx, maxConcurrentReaders)
}

func (s *Service) acquire(ctx context.Context, weight int64) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	if err := s.sem.Acquire(waitCtx, weight); err != nil {
		if s.stats != nil {
			s.stats.LockTimeout()
		}
		return nil, ErrLockTimeout
	}
	return func() { s.sem.Release(weight) }, nil
}

func (s *Service) emit(ctx context.Context, ev ChangeEvent) {
	if s.sink == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := s.sink.Record(ctx, ev); err != nil {
		s.logger.Warn("audit sink record", slog.String("module", ev.Module), slog.Any("error", err))
	}
}

func (s *Service) invalidateAccess(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate access cache", slog.Any("error", err))
	}
}

// ---------------------------------------------------------------------------
// Roles

// ListRoles returns all roles ordered by id.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	unlock, err := s.rlock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.graph.list(), nil
}

// GetRole fetches a role by id.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	unlock, err := s.rlock(ctx)
	if err != nil {
		return Role{}, err
	}
	defer unlock()
	r, ok := s.graph.role(id)
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

// CreateRole inserts a new role, optionally attached under a parent.
func (s *Service) CreateRole(ctx context.Context, actorID int64, name, description string, parentID *int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", ErrInvalidInput)
	}
	unlock, err := s.wlock(ctx)
	if err != nil {
		return Role{}, err
	}
	defer unlock()

	if existing := s.graph.findByName(name); existing != nil {
		return Role{}, ErrDuplicate
	}
	if parentID != nil {
		if _, ok := s.graph.role(*parentID); !ok {
			return Role{}, ErrNotFound
		}
	}
	role := Role{Name: name, Description: strings.TrimSpace(description), ParentRoleID: parentID}
	if s.store != nil {
		id, err := s.store.InsertRole(ctx, role)
		if err != nil {
			return Role{}, err
		}
		role.ID = id
	} else {
		role.ID = s.graph.nextRoleID()
	}
	if err := s.graph.addRole(role); err != nil {
		return Role{}, err
	}
	s.emit(ctx, ChangeEvent{
		Action:     ActionCreate,
		Module:     ModuleRole,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(role.ID, 10),
		NewValues:  roleValues(role),
	})
	return role, nil
}

// UpdateRole renames a role and replaces its description.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", ErrInvalidInput)
	}
	unlock, err := s.wlock(ctx)
	if err != nil {
		return Role{}, err
	}
	defer unlock()

	old, ok := s.graph.role(id)
	if !ok {
		return Role{}, ErrNotFound
	}
	if existing := s.graph.findByName(name); existing != nil && existing.ID != id {
		return Role{}, ErrDuplicate
	}
	updated := old
	updated.Name = name
	updated.Description = strings.TrimSpace(description)
	if s.store != nil {
		if err := s.store.UpdateRole(ctx, updated); err != nil {
			return Role{}, err
		}
	}
	if err := s.graph.updateRole(id, updated.Name, updated.Description); err != nil {
		return Role{}, err
	}
	s.emit(ctx, ChangeEvent{
		Action:     ActionUpdate,
		Module:     ModuleRole,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(id, 10),
		OldValues:  roleValues(old),
		NewValues:  roleValues(updated),
	})
	return updated, nil
}

// DeleteRole removes a role together with its direct grants. Roles that still
// have children or provisioned users are refused with ErrInUse.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	unlock, err := s.wlock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	role, ok := s.graph.role(id)
	if !ok {
		return ErrNotFound
	}
	if len(s.graph.children(id)) > 0 {
		return ErrInUse
	}
	if s.users != nil {
		inUse, err := s.users.HasUsers(ctx, id)
		if err != nil {
			return fmt.Errorf("rbac: user directory: %w", err)
		}
		if inUse {
			return ErrInUse
		}
	}
	if s.store != nil {
		if err := s.store.DeleteRole(ctx, id); err != nil {
			return err
		}
	}
	if _, err := s.graph.removeRole(id); err != nil {
		return err
	}
	removed := s.grants.removeRole(id)
	s.emit(ctx, ChangeEvent{
		Action:     ActionDelete,
		Module:     ModuleRole,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(id, 10),
		OldValues:  roleValues(role),
		NewValues:  map[string]any{"removedGrants": len(removed)},
	})
	s.invalidateAccess(ctx)
	return nil
}

// ---------------------------------------------------------------------------
// Catalog

// ListFeatures returns all features ordered by id.
func (s *Service) ListFeatures(ctx context.Context) ([]Feature, error) {
	unlock, err := s.rlock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.catalog.listFeatures(), nil
}

// CreateFeature registers a new feature.
func (s *Service) CreateFeature(ctx context.Context, actorID int64, name, route, icon string) (Feature, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Feature{}, fmt.Errorf("%w: feature name required", ErrInvalidInput)
	}
	unlock, err := s.wlock(ctx)
	if err != nil {
		return Feature{}, err
	}
	defer unlock()

	if _, exists := s.catalog.featureByName(name); exists {
		return Feature{}, ErrDuplicate
	}
	feature := Feature{Name: name, Route: strings.TrimSpace(route), Icon: strings.TrimSpace(icon)}
	if s.store != nil {
		id, err := s.store.InsertFeature(ctx, feature)
		if err != nil {
			return Feature{}, err
		}
		feature.ID = id
	} else {
		feature.ID = s.catalog.nextFeatureID()
	}
	if err := s.catalog.addFeature(feature); err != nil {
		return Feature{}, err
	}
	s.emit(ctx, ChangeEvent{
		Action:     ActionCreate,
		Module:     ModuleFeature,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(feature.ID, 10),
		NewValues:  featureValues(feature),
	})
	return feature, nil
}

// UpdateFeature replaces a feature's name, route and icon.
func (s *Service) UpdateFeature(ctx context.Context, actorID, id int64, name, route, icon string) (Feature, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Feature{}, fmt.Errorf("%w: feature name required", ErrInvalidInput)
	}
	unlock, err := s.wlock(ctx)
	if err != nil {
		return Feature{}, err
	}
	defer unlock()

	old, ok := s.catalog.feature(id)
	if !ok {
		return Feature{}, ErrNotFound
	}
	if existing, exists := s.catalog.featureByName(name); exists && existing.ID != id {
		return Feature{}, ErrDuplicate
	}
	updated := Feature{ID: id, Name: name, Route: strings.TrimSpace(route), Icon: strings.TrimSpace(icon)}
	if s.store != nil {
		if err := s.store.UpdateFeature(ctx, updated); err != nil {
			return Feature{}, err
		}
	}
	if err := s.catalog.updateFeature(updated); err != nil {
		return Feature{}, err
	}
	s.emit(ctx, ChangeEvent{
		Action:     ActionUpdate,
		Module:     ModuleFeature,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(id, 10),
		OldValues:  featureValues(old),
		NewValues:  featureValues(updated),
	})
	return updated, nil
}

// DeleteFeature removes a feature and cascades into every grant that
// references it, so no role resolves to the feature afterwards.
func (s *Service) DeleteFeature(ctx context.Context, actorID, id int64) error {
	unlock, err := s.wlock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	feature, ok := s.catalog.feature(id)
	if !ok {
		return ErrNotFound
	}
	if s.store != nil {
		if err := s.store.DeleteFeature(ctx, id); err != nil {
			return err
		}
	}
	removed := s.grants.removeFeature(id)
	if _, err := s.catalog.removeFeature(id); err != nil {
		return err
	}
	s.emit(ctx, ChangeEvent{
		Action:     ActionDelete,
		Module:     ModuleFeature,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(id, 10),
		OldValues:  featureValues(feature),
		NewValues:  map[string]any{"removedGrants": len(removed)},
	})
	s.invalidateAccess(ctx)
	return nil
}

// ListPermissions returns all permissions ordered by id.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	unlock, err := s.rlock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.catalog.listPermissions(), nil
}

// CreatePermission registers a new permission.
func (s *Service) CreatePermission(ctx context.Context, actorID int64, name string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("%w: permission name required", ErrInvalidInput)
	}
	unlock, err := s.wlock(ctx)
	if err != nil {
		return Permission{}, err
	}
	defer unlock()

	if _, exists := s.catalog.permissionByName(name); exists {
		return Permission{}, ErrDuplicate
	}
	perm := Permission{Name: name}
	if s.store != nil {
		id, err := s.store.InsertPermission(ctx, perm)
		if err != nil {
			return Permission{}, err
		}
		perm.ID = id
	} else {
		perm.ID = s.catalog.nextPermissionID()
	}
	if err := s.catalog.addPermission(perm); err != nil {
		return Permission{}, err
	}
	s.emit(ctx, ChangeEvent{
		Action:     ActionCreate,
		Module:     ModulePermission,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(perm.ID, 10),
		NewValues:  map[string]any{"name": perm.Name},
	})
	return perm, nil
}

// UpdatePermission renames a permission.
func (s *Service) UpdatePermission(ctx context.Context, actorID, id int64, name string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("%w: permission name required", ErrInvalidInput)
	}
	unlock, err := s.wlock(ctx)
	if err != nil {
		return Permission{}, err
	}
	defer unlock()

	old, ok := s.catalog.permission(id)
	if !ok {
		return Permission{}, ErrNotFound
	}
	if existing, exists := s.catalog.permissionByName(name); exists && existing.ID != id {
		return Permission{}, ErrDuplicate
	}
	updated := Permission{ID: id, Name: name}
	if s.store != nil {
		if err := s.store.UpdatePermission(ctx, updated); err != nil {
			return Permission{}, err
		}
	}
	if err := s.catalog.updatePermission(updated); err != nil {
		return Permission{}, err
	}
	s.emit(ctx, ChangeEvent{
		Action:     ActionUpdate,
		Module:     ModulePermission,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(id, 10),
		OldValues:  map[string]any{"name": old.Name},
		NewValues:  map[string]any{"name": updated.Name},
	})
	return updated, nil
}

// DeletePermission removes a permission and cascades into referencing grants.
func (s *Service) DeletePermission(ctx context.Context, actorID, id int64) error {
	unlock, err := s.wlock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	perm, ok := s.catalog.permission(id)
	if !ok {
		return ErrNotFound
	}
	if s.store != nil {
		if err := s.store.DeletePermission(ctx, id); err != nil {
			return err
		}
	}
	removed := s.grants.removePermission(id)
	if _, err := s.catalog.removePermission(id); err != nil {
		return err
	}
	s.emit(ctx, ChangeEvent{
		Action:     ActionDelete,
		Module:     ModulePermission,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(id, 10),
		OldValues:  map[string]any{"name": perm.Name},
		NewValues:  map[string]any{"removedGrants": len(removed)},
	})
	s.invalidateAccess(ctx)
	return nil
}

// ---------------------------------------------------------------------------
// Hierarchy mutations

// Hierarchy returns the role forest, roots and children ordered by name.
func (s *Service) Hierarchy(ctx context.Context) ([]*RoleNode, error) {
	unlock, err := s.rlock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	roots := s.graph.tree()
	sortRoleNodes(roots)
	return roots, nil
}

// Reparent rewires a role under a new parent (nil detaches it to a root).
// Effective permissions of the role and all its descendants change
// implicitly; they are resolved lazily on the next query.
func (s *Service) Reparent(ctx context.Context, actorID, roleID int64, parentID *int64) error {
	unlock, err := s.wlock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	role, ok := s.graph.role(roleID)
	if !ok {
		return ErrNotFound
	}
	oldParent := role.ParentRoleID
	if err := s.graph.setParent(roleID, parentID); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.UpdateRoleParent(ctx, roleID, parentID); err != nil {
			// Persistence failed: put the edge back so memory matches storage.
			_ = s.graph.setParent(roleID, oldParent)
			return err
		}
	}
	s.emit(ctx, ChangeEvent{
		Action:     ActionUpdate,
		Module:     ModuleRoleHierarchy,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(roleID, 10),
		OldValues:  map[string]any{"parentRoleId": idOrNil(oldParent)},
		NewValues:  map[string]any{"parentRoleId": idOrNil(parentID)},
	})
	s.invalidateAccess(ctx)
	return nil
}

// CopyPermissions snapshots the source role's effective permission set into
// the target's direct grants and reports how many grants were actually
// added. It creates no hierarchy edge: later changes to the source do not
// propagate.
func (s *Service) CopyPermissions(ctx context.Context, actorID, sourceID, targetID int64) (int, error) {
	if sourceID == targetID {
		return 0, ErrSameRole
	}
	unlock, err := s.wlock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if _, ok := s.graph.role(targetID); !ok {
		return 0, ErrNotFound
	}
	effective, err := resolve(s.graph, s.grants, sourceID)
	if err != nil {
		return 0, err
	}
	var toAdd []Grant
	for _, entry := range effective {
		key := GrantKey{FeatureID: entry.FeatureID, PermissionID: entry.PermissionID}
		if !s.grants.has(targetID, key) {
			toAdd = append(toAdd, Grant{RoleID: targetID, FeatureID: key.FeatureID, PermissionID: key.PermissionID})
		}
	}
	if len(toAdd) == 0 {
		return 0, nil
	}
	if s.store != nil {
		if err := s.store.InsertGrants(ctx, toAdd); err != nil {
			return 0, err
		}
	}
	for _, g := range toAdd {
		s.grants.add(targetID, g.Key())
	}
	s.emit(ctx, ChangeEvent{
		Action:     ActionUpdate,
		Module:     ModuleACL,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(targetID, 10),
		OldValues:  map[string]any{"sourceRoleId": sourceID},
		NewValues:  map[string]any{"copiedCount": len(toAdd)},
	})
	s.invalidateAccess(ctx)
	return len(toAdd), nil
}

// GrantFullAccess adds the full Features × Permissions cross product as
// direct grants and reports how many pairs were newly added.
func (s *Service) GrantFullAccess(ctx context.Context, actorID, roleID int64) (int, error) {
	unlock, err := s.wlock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if _, ok := s.graph.role(roleID); !ok {
		return 0, ErrNotFound
	}
	var toAdd []Grant
	for _, f := range s.catalog.listFeatures() {
		for _, p := range s.catalog.listPermissions() {
			key := GrantKey{FeatureID: f.ID, PermissionID: p.ID}
			if !s.grants.has(roleID, key) {
				toAdd = append(toAdd, Grant{RoleID: roleID, FeatureID: f.ID, PermissionID: p.ID})
			}
		}
	}
	if len(toAdd) == 0 {
		return 0, nil
	}
	if s.store != nil {
		if err := s.store.InsertGrants(ctx, toAdd); err != nil {
			return 0, err
		}
	}
	for _, g := range toAdd {
		s.grants.add(roleID, g.Key())
	}
	s.emit(ctx, ChangeEvent{
		Action:     ActionUpdate,
		Module:     ModuleACL,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(roleID, 10),
		NewValues:  map[string]any{"addedCount": len(toAdd), "fullAccess": true},
	})
	s.invalidateAccess(ctx)
	return len(toAdd), nil
}

// TogglePermission flips a direct grant. Toggling a pair the role holds only
// through inheritance adds a direct grant (redundant but harmless) instead of
// failing: inherited permissions cannot be removed from a child, only added to.
func (s *Service) TogglePermission(ctx context.Context, actorID, roleID, featureID, permissionID int64) (bool, error) {
	unlock, err := s.wlock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, ok := s.graph.role(roleID); !ok {
		return false, ErrNotFound
	}
	if _, ok := s.catalog.feature(featureID); !ok {
		return false, ErrNotFound
	}
	if _, ok := s.catalog.permission(permissionID); !ok {
		return false, ErrNotFound
	}
	key := GrantKey{FeatureID: featureID, PermissionID: permissionID}
	grant := Grant{RoleID: roleID, FeatureID: featureID, PermissionID: permissionID}
	if s.grants.has(roleID, key) {
		if s.store != nil {
			if err := s.store.DeleteGrant(ctx, grant); err != nil {
				return false, err
			}
		}
		s.grants.remove(roleID, key)
		s.emit(ctx, ChangeEvent{
			Action:     ActionDelete,
			Module:     ModuleACL,
			ActorID:    actorID,
			ResourceID: strconv.FormatInt(roleID, 10),
			OldValues:  grantValues(grant),
		})
		s.invalidateAccess(ctx)
		return false, nil
	}
	if s.store != nil {
		if err := s.store.InsertGrant(ctx, grant); err != nil {
			return false, err
		}
	}
	s.grants.add(roleID, key)
	s.emit(ctx, ChangeEvent{
		Action:     ActionCreate,
		Module:     ModuleACL,
		ActorID:    actorID,
		ResourceID: strconv.FormatInt(roleID, 10),
		NewValues:  grantValues(grant),
	})
	s.invalidateAccess(ctx)
	return true, nil
}

// SaveBulk diffs the desired direct grant set against the current one and
// applies the difference, so the operation is idempotent and order
// independent. One change event is emitted per added and per removed grant.
func (s *Service) SaveBulk(ctx context.Context, actorID, roleID int64, desired []GrantKey) (added, removed int, err error) {
	unlock, err := s.wlock(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	if _, ok := s.graph.role(roleID); !ok {
		return 0, 0, ErrNotFound
	}
	want := make(map[GrantKey]struct{}, len(desired))
	for _, key := range desired {
		if _, ok := s.catalog.feature(key.FeatureID); !ok {
			return 0, 0, ErrNotFound
		}
		if _, ok := s.catalog.permission(key.PermissionID); !ok {
			return 0, 0, ErrNotFound
		}
		want[key] = struct{}{}
	}

	var toAdd, toRemove []Grant
	for key := range want {
		if !s.grants.has(roleID, key) {
			toAdd = append(toAdd, Grant{RoleID: roleID, FeatureID: key.FeatureID, PermissionID: key.PermissionID})
		}
	}
	for _, key := range s.grants.listDirect(roleID) {
		if _, keep := want[key]; !keep {
			toRemove = append(toRemove, Grant{RoleID: roleID, FeatureID: key.FeatureID, PermissionID: key.PermissionID})
		}
	}
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return 0, 0, nil
	}
	if s.store != nil {
		if err := s.store.ReplaceGrants(ctx, roleID, toAdd, toRemove); err != nil {
			return 0, 0, err
		}
	}
	keys := make([]GrantKey, 0, len(want))
	for key := range want {
		keys = append(keys, key)
	}
	s.grants.replaceAll(roleID, keys)
	for _, g := range toAdd {
		s.emit(ctx, ChangeEvent{
			Action:     ActionCreate,
			Module:     ModuleACL,
			ActorID:    actorID,
			ResourceID: strconv.FormatInt(roleID, 10),
			NewValues:  grantValues(g),
		})
	}
	for _, g := range toRemove {
		s.emit(ctx, ChangeEvent{
			Action:     ActionDelete,
			Module:     ModuleACL,
			ActorID:    actorID,
			ResourceID: strconv.FormatInt(roleID, 10),
			OldValues:  grantValues(g),
		})
	}
	s.invalidateAccess(ctx)
	return len(toAdd), len(toRemove), nil
}

// ---------------------------------------------------------------------------
// Access decision API

// Resolve computes the effective permission set of a role, ordered by
// feature then permission.
func (s *Service) Resolve(ctx context.Context, roleID int64) ([]EffectivePermission, error) {
	unlock, err := s.rlock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	start := time.Now()
	out, err := resolve(s.graph, s.grants, roleID)
	if s.stats != nil {
		s.stats.ObserveResolve(time.Since(start).Seconds())
	}
	return out, err
}

// DirectGrants lists the role's direct grants.
func (s *Service) DirectGrants(ctx context.Context, roleID int64) ([]Grant, error) {
	unlock, err := s.rlock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if _, ok := s.graph.role(roleID); !ok {
		return nil, ErrNotFound
	}
	keys := s.grants.listDirect(roleID)
	out := make([]Grant, 0, len(keys))
	for _, key := range keys {
		out = append(out, Grant{RoleID: roleID, FeatureID: key.FeatureID, PermissionID: key.PermissionID})
	}
	return out, nil
}

// HasPermission answers the authorization question by name. It fails closed:
// unknown names, unknown roles and lock timeouts all yield false.
func (s *Service) HasPermission(ctx context.Context, roleID int64, featureName, permissionName string) bool {
	unlock, err := s.rlock(ctx)
	if err != nil {
		return false
	}
	defer unlock()

	feature, ok := s.catalog.featureByName(featureName)
	if !ok {
		return false
	}
	perm, ok := s.catalog.permissionByName(permissionName)
	if !ok {
		return false
	}
	if _, ok := s.graph.role(roleID); !ok {
		return false
	}
	key := GrantKey{FeatureID: feature.ID, PermissionID: perm.ID}
	if s.grants.has(roleID, key) {
		return true
	}
	for _, ancestor := range s.graph.ancestors(roleID) {
		if s.grants.has(ancestor, key) {
			return true
		}
	}
	return false
}

// HasFeatureAccess reports whether the role holds at least one permission on
// the named feature, directly or through inheritance. Fail closed.
func (s *Service) HasFeatureAccess(ctx context.Context, roleID int64, featureName string) bool {
	unlock, err := s.rlock(ctx)
	if err != nil {
		return false
	}
	defer unlock()

	feature, ok := s.catalog.featureByName(featureName)
	if !ok {
		return false
	}
	if _, ok := s.graph.role(roleID); !ok {
		return false
	}
	chain := append([]int64{roleID}, s.graph.ancestors(roleID)...)
	for _, visited := range chain {
		for _, key := range s.grants.listDirect(visited) {
			if key.FeatureID == feature.ID {
				return true
			}
		}
	}
	return false
}

// ListAccessibleFeatures groups the resolved set by feature for menus and
// gates. A feature only shows up when the role holds at least one permission
// on it. Results are served from the access cache when one is configured.
func (s *Service) ListAccessibleFeatures(ctx context.Context, roleID int64) ([]FeatureAccess, error) {
	if s.cache == nil {
		return s.accessibleFeatures(ctx, roleID)
	}
	return s.cache.Access(ctx, roleID, func() ([]FeatureAccess, error) {
		return s.accessibleFeatures(ctx, roleID)
	})
}

func (s *Service) accessibleFeatures(ctx context.Context, roleID int64) ([]FeatureAccess, error) {
	unlock, err := s.rlock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()
	effective, err := resolve(s.graph, s.grants, roleID)
	if s.stats != nil {
		s.stats.ObserveResolve(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}

	grouped := make(map[int64]*FeatureAccess)
	var order []int64
	for _, entry := range effective {
		feature, ok := s.catalog.feature(entry.FeatureID)
		if !ok {
			continue
		}
		perm, ok := s.catalog.permission(entry.PermissionID)
		if !ok {
			continue
		}
		fa, seen := grouped[feature.ID]
		if !seen {
			fa = &FeatureAccess{Feature: feature}
			grouped[feature.ID] = fa
			order = append(order, feature.ID)
		}
		fa.Permissions = append(fa.Permissions, perm.Name)
	}
	out := make([]FeatureAccess, 0, len(order))
	for _, id := range order {
		out = append(out, *grouped[id])
	}
	sortFeatureAccess(out)
	return out, nil
}

// ---------------------------------------------------------------------------
// helpers

func roleValues(r Role) map[string]any {
	return map[string]any{
		"name":         r.Name,
		"description":  r.Description,
		"parentRoleId": idOrNil(r.ParentRoleID),
	}
}

func featureValues(f Feature) map[string]any {
	return map[string]any{"name": f.Name, "route": f.Route, "icon": f.Icon}
}

func grantValues(g Grant) map[string]any {
	return map[string]any{"featureId": g.FeatureID, "permissionId": g.PermissionID}
}

func idOrNil(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// Feature and role names are Indonesian; order them the way an Indonesian
// admin expects instead of by raw bytes.
func newCollator() *collate.Collator {
	return collate.New(language.Indonesian, collate.IgnoreCase)
}

func sortFeatureAccess(list []FeatureAccess) {
	c := newCollator()
	sort.SliceStable(list, func(i, j int) bool {
		return c.CompareString(list[i].Feature.Name, list[j].Feature.Name) < 0
	})
}

func sortRoleNodes(nodes []*RoleNode) {
	c := newCollator()
	var walk func([]*RoleNode)
	walk = func(level []*RoleNode) {
		sort.SliceStable(level, func(i, j int) bool {
			return c.CompareString(level[i].Name, level[j].Name) < 0
		})
		for _, node := range level {
			walk(node.Children)
		}
	}
	walk(nodes)
}
