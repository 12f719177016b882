package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordSink struct {
	events []ChangeEvent
	err    error
}

func (s *recordSink) Record(ctx context.Context, ev ChangeEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordSink) countByModule(module string) int {
	n := 0
	for _, ev := range s.events {
		if ev.Module == module {
			n++
		}
	}
	return n
}

type stubUsers struct {
	counts map[int64]int64
}

func (s *stubUsers) HasUsers(ctx context.Context, roleID int64) (bool, error) {
	return s.counts[roleID] > 0, nil
}

func (s *stubUsers) UserCountForRole(ctx context.Context, roleID int64) (int64, error) {
	return s.counts[roleID], nil
}

// stubStore fails selected persister calls and keeps everything else a no-op.
type stubStore struct {
	nextID          int64
	parentErr       error
	insertGrantsErr error
}

func (s *stubStore) LoadSnapshot(ctx context.Context) (Snapshot, error) { return Snapshot{}, nil }

func (s *stubStore) InsertRole(ctx context.Context, r Role) (int64, error) {
	s.nextID++
	return s.nextID, nil
}
func (s *stubStore) UpdateRole(ctx context.Context, r Role) error { return nil }
func (s *stubStore) UpdateRoleParent(ctx context.Context, roleID int64, parentID *int64) error {
	return s.parentErr
}
func (s *stubStore) DeleteRole(ctx context.Context, id int64) error { return nil }

func (s *stubStore) InsertFeature(ctx context.Context, f Feature) (int64, error) {
	s.nextID++
	return s.nextID, nil
}
func (s *stubStore) UpdateFeature(ctx context.Context, f Feature) error { return nil }
func (s *stubStore) DeleteFeature(ctx context.Context, id int64) error  { return nil }

func (s *stubStore) InsertPermission(ctx context.Context, p Permission) (int64, error) {
	s.nextID++
	return s.nextID, nil
}
func (s *stubStore) UpdatePermission(ctx context.Context, p Permission) error { return nil }
func (s *stubStore) DeletePermission(ctx context.Context, id int64) error     { return nil }

func (s *stubStore) InsertGrant(ctx context.Context, g Grant) error { return nil }
func (s *stubStore) InsertGrants(ctx context.Context, grants []Grant) error {
	return s.insertGrantsErr
}
func (s *stubStore) DeleteGrant(ctx context.Context, g Grant) error { return nil }
func (s *stubStore) ReplaceGrants(ctx context.Context, roleID int64, add, remove []Grant) error {
	return nil
}

type fixture struct {
	engine *Service
	sink   *recordSink
	users  *stubUsers

	superAdmin Role
	admin      Role
	manajer    Role
	staf       Role

	dashboard  Feature
	pengaturan Feature
	view       Permission
	edit       Permission
}

// newFixture seeds an in-memory engine with the standard role chain and a
// small catalog. actor id 1 is used for every mutation.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	sink := &recordSink{}
	users := &stubUsers{counts: map[int64]int64{}}
	engine := NewService(nil, nil, sink, users, nil, nil, ServiceConfig{})

	f := &fixture{engine: engine, sink: sink, users: users}
	var err error

	f.superAdmin, err = engine.CreateRole(ctx, 1, "SuperAdmin", "akses penuh", nil)
	require.NoError(t, err)
	f.admin, err = engine.CreateRole(ctx, 1, "Admin", "", &f.superAdmin.ID)
	require.NoError(t, err)
	f.manajer, err = engine.CreateRole(ctx, 1, "Manajer", "", &f.admin.ID)
	require.NoError(t, err)
	f.staf, err = engine.CreateRole(ctx, 1, "Staf", "", &f.manajer.ID)
	require.NoError(t, err)

	f.dashboard, err = engine.CreateFeature(ctx, 1, "Dashboard", "/dashboard", "home")
	require.NoError(t, err)
	f.pengaturan, err = engine.CreateFeature(ctx, 1, "Pengaturan", "/settings", "settings")
	require.NoError(t, err)
	f.view, err = engine.CreatePermission(ctx, 1, "View")
	require.NoError(t, err)
	f.edit, err = engine.CreatePermission(ctx, 1, "Edit")
	require.NoError(t, err)

	sink.events = nil
	return f
}

func TestCreateRoleDuplicateName(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateRole(context.Background(), 1, "admin", "", nil)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateRoleEmitsEvent(t *testing.T) {
	f := newFixture(t)
	role, err := f.engine.CreateRole(context.Background(), 7, "Auditor", "baca saja", nil)
	require.NoError(t, err)
	require.Len(t, f.sink.events, 1)
	ev := f.sink.events[0]
	require.Equal(t, ActionCreate, ev.Action)
	require.Equal(t, ModuleRole, ev.Module)
	require.EqualValues(t, 7, ev.ActorID)
	require.Equal(t, "Auditor", ev.NewValues["name"])
	require.NotZero(t, role.ID)
}

func TestDeleteRoleGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Children first.
	require.ErrorIs(t, f.engine.DeleteRole(ctx, 1, f.admin.ID), ErrInUse)

	// Then provisioned users.
	f.users.counts[f.staf.ID] = 3
	require.ErrorIs(t, f.engine.DeleteRole(ctx, 1, f.staf.ID), ErrInUse)

	f.users.counts[f.staf.ID] = 0
	require.NoError(t, f.engine.DeleteRole(ctx, 1, f.staf.ID))
	_, err := f.engine.GetRole(ctx, f.staf.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRoleDropsDirectGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.TogglePermission(ctx, 1, f.staf.ID, f.dashboard.ID, f.view.ID)
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteRole(ctx, 1, f.staf.ID))
	require.False(t, f.engine.grants.has(f.staf.ID, GrantKey{FeatureID: f.dashboard.ID, PermissionID: f.view.ID}))
}

func TestDeleteFeatureCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.TogglePermission(ctx, 1, f.superAdmin.ID, f.dashboard.ID, f.view.ID)
	require.NoError(t, err)
	_, err = f.engine.TogglePermission(ctx, 1, f.staf.ID, f.dashboard.ID, f.edit.ID)
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteFeature(ctx, 1, f.dashboard.ID))

	for _, roleID := range []int64{f.superAdmin.ID, f.staf.ID} {
		effective, err := f.engine.Resolve(ctx, roleID)
		require.NoError(t, err)
		for _, entry := range effective {
			require.NotEqual(t, f.dashboard.ID, entry.FeatureID)
		}
	}
}

func TestDeletePermissionCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.TogglePermission(ctx, 1, f.admin.ID, f.pengaturan.ID, f.edit.ID)
	require.NoError(t, err)

	require.NoError(t, f.engine.DeletePermission(ctx, 1, f.edit.ID))

	effective, err := f.engine.Resolve(ctx, f.admin.ID)
	require.NoError(t, err)
	require.Empty(t, effective)
}

func TestGrantFullAccessCrossProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	count, err := f.engine.GrantFullAccess(ctx, 1, f.superAdmin.ID)
	require.NoError(t, err)
	require.Equal(t, 4, count) // 2 features × 2 permissions

	// Idempotent: a second run adds nothing.
	count, err = f.engine.GrantFullAccess(ctx, 1, f.superAdmin.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCopyPermissionsSnapshotsEffectiveSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Source inherits one pair and holds one directly.
	_, err := f.engine.TogglePermission(ctx, 1, f.superAdmin.ID, f.pengaturan.ID, f.view.ID)
	require.NoError(t, err)
	_, err = f.engine.TogglePermission(ctx, 1, f.admin.ID, f.dashboard.ID, f.view.ID)
	require.NoError(t, err)

	count, err := f.engine.CopyPermissions(ctx, 1, f.admin.ID, f.staf.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	direct, err := f.engine.DirectGrants(ctx, f.staf.ID)
	require.NoError(t, err)
	require.Len(t, direct, 2)

	// Copy again: everything already present.
	count, err = f.engine.CopyPermissions(ctx, 1, f.admin.ID, f.staf.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCopyPermissionsSameRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CopyPermissions(context.Background(), 1, f.admin.ID, f.admin.ID)
	require.ErrorIs(t, err, ErrSameRole)
}

func TestTogglePermissionOnInheritedAddsDirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Staf inherits Dashboard/View from SuperAdmin.
	_, err := f.engine.TogglePermission(ctx, 1, f.superAdmin.ID, f.dashboard.ID, f.view.ID)
	require.NoError(t, err)

	added, err := f.engine.TogglePermission(ctx, 1, f.staf.ID, f.dashboard.ID, f.view.ID)
	require.NoError(t, err)
	require.True(t, added, "toggling an inherited-only pair must add a direct grant")

	effective, err := f.engine.Resolve(ctx, f.staf.ID)
	require.NoError(t, err)
	require.Len(t, effective, 1)
	require.True(t, effective[0].Direct)
}

func TestTogglePermissionRemovesDirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.TogglePermission(ctx, 1, f.staf.ID, f.dashboard.ID, f.view.ID)
	require.NoError(t, err)

	added, err := f.engine.TogglePermission(ctx, 1, f.staf.ID, f.dashboard.ID, f.view.ID)
	require.NoError(t, err)
	require.False(t, added)

	direct, err := f.engine.DirectGrants(ctx, f.staf.ID)
	require.NoError(t, err)
	require.Empty(t, direct)
}

func TestSaveBulkDiffsDesiredSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.TogglePermission(ctx, 1, f.staf.ID, f.dashboard.ID, f.view.ID)
	require.NoError(t, err)
	f.sink.events = nil

	desired := []GrantKey{
		{FeatureID: f.dashboard.ID, PermissionID: f.edit.ID},
		{FeatureID: f.pengaturan.ID, PermissionID: f.view.ID},
	}
	added, removed, err := f.engine.SaveBulk(ctx, 1, f.staf.ID, desired)
	require.NoError(t, err)
	require.Equal(t, 2, added)
	require.Equal(t, 1, removed)
	require.Equal(t, 3, f.sink.countByModule(ModuleACL))

	// Same payload again is a no-op.
	f.sink.events = nil
	added, removed, err = f.engine.SaveBulk(ctx, 1, f.staf.ID, desired)
	require.NoError(t, err)
	require.Zero(t, added)
	require.Zero(t, removed)
	require.Empty(t, f.sink.events)
}

func TestSaveBulkUnknownCatalogEntry(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.engine.SaveBulk(context.Background(), 1, f.staf.ID, []GrantKey{{FeatureID: 999, PermissionID: f.view.ID}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReparentRollsBackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	store := &stubStore{}
	engine := NewService(nil, store, nil, nil, nil, nil, ServiceConfig{})

	superAdmin, err := engine.CreateRole(ctx, 1, "SuperAdmin", "", nil)
	require.NoError(t, err)
	staf, err := engine.CreateRole(ctx, 1, "Staf", "", nil)
	require.NoError(t, err)

	store.parentErr = errors.New("db down")
	err = engine.Reparent(ctx, 1, staf.ID, &superAdmin.ID)
	require.Error(t, err)

	got, err := engine.GetRole(ctx, staf.ID)
	require.NoError(t, err)
	require.Nil(t, got.ParentRoleID, "memory edge must be rolled back when persistence fails")
}

func TestGrantFullAccessNotCommittedOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	store := &stubStore{insertGrantsErr: errors.New("db down")}
	engine := NewService(nil, store, nil, nil, nil, nil, ServiceConfig{})

	role, err := engine.CreateRole(ctx, 1, "Admin", "", nil)
	require.NoError(t, err)
	_, err = engine.CreateFeature(ctx, 1, "Dashboard", "/", "")
	require.NoError(t, err)
	_, err = engine.CreatePermission(ctx, 1, "View")
	require.NoError(t, err)

	_, err = engine.GrantFullAccess(ctx, 1, role.ID)
	require.Error(t, err)

	direct, err := engine.DirectGrants(ctx, role.ID)
	require.NoError(t, err)
	require.Empty(t, direct)
}

func TestSinkFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	sink := &recordSink{err: errors.New("sink down")}
	engine := NewService(nil, nil, sink, nil, nil, nil, ServiceConfig{})

	_, err := engine.CreateRole(ctx, 1, "Admin", "", nil)
	require.NoError(t, err)
}

func TestHasPermissionFailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.TogglePermission(ctx, 1, f.superAdmin.ID, f.pengaturan.ID, f.view.ID)
	require.NoError(t, err)

	require.True(t, f.engine.HasPermission(ctx, f.staf.ID, "Pengaturan", "View"))
	require.False(t, f.engine.HasPermission(ctx, f.staf.ID, "Pengaturan", "Edit"))
	require.False(t, f.engine.HasPermission(ctx, f.staf.ID, "TidakAda", "View"))
	require.False(t, f.engine.HasPermission(ctx, 999, "Pengaturan", "View"))
}

func TestHasFeatureAccessAnyPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.TogglePermission(ctx, 1, f.admin.ID, f.dashboard.ID, f.edit.ID)
	require.NoError(t, err)

	require.True(t, f.engine.HasFeatureAccess(ctx, f.staf.ID, "Dashboard"))
	require.False(t, f.engine.HasFeatureAccess(ctx, f.staf.ID, "Pengaturan"))
}

func TestListAccessibleFeaturesGroupsByFeature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.TogglePermission(ctx, 1, f.superAdmin.ID, f.dashboard.ID, f.view.ID)
	require.NoError(t, err)
	_, err = f.engine.TogglePermission(ctx, 1, f.superAdmin.ID, f.dashboard.ID, f.edit.ID)
	require.NoError(t, err)
	_, err = f.engine.TogglePermission(ctx, 1, f.admin.ID, f.pengaturan.ID, f.view.ID)
	require.NoError(t, err)

	access, err := f.engine.ListAccessibleFeatures(ctx, f.staf.ID)
	require.NoError(t, err)
	require.Len(t, access, 2)
	// Collation: Dashboard before Pengaturan.
	require.Equal(t, "Dashboard", access[0].Feature.Name)
	require.Len(t, access[0].Permissions, 2)
	require.Equal(t, "Pengaturan", access[1].Feature.Name)
}

func TestHierarchySortedByName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.CreateRole(ctx, 1, "Zeta", "", nil)
	require.NoError(t, err)
	_, err = f.engine.CreateRole(ctx, 1, "Alpha", "", nil)
	require.NoError(t, err)

	roots, err := f.engine.Hierarchy(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 3)
	require.Equal(t, "Alpha", roots[0].Name)
	require.Equal(t, "SuperAdmin", roots[1].Name)
	require.Equal(t, "Zeta", roots[2].Name)
}

func TestWriteLockTimeout(t *testing.T) {
	ctx := context.Background()
	engine := NewService(nil, nil, nil, nil, nil, nil, ServiceConfig{LockWait: 20 * time.Millisecond})

	unlock, err := engine.wlock(ctx)
	require.NoError(t, err)
	defer unlock()

	_, err = engine.CreateRole(ctx, 1, "Admin", "", nil)
	require.ErrorIs(t, err, ErrLockTimeout)

	// Readers are blocked by the held writer lock too.
	_, err = engine.ListRoles(ctx)
	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestConcurrentReadersShareLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unlock, err := f.engine.rlock(ctx)
	require.NoError(t, err)
	defer unlock()

	// A second reader proceeds while the first is held.
	_, err = f.engine.ListRoles(ctx)
	require.NoError(t, err)
}
