package rbac

import "sort"

// GrantStore holds the direct grants per role: the raw ACL table. Add and
// remove are idempotent and report whether the set actually changed.
type GrantStore struct {
	byRole map[int64]map[GrantKey]struct{}
}

// NewGrantStore builds an empty grant store.
func NewGrantStore() *GrantStore {
	return &GrantStore{byRole: make(map[int64]map[GrantKey]struct{})}
}

func (s *GrantStore) add(roleID int64, key GrantKey) bool {
	set, ok := s.byRole[roleID]
	if !ok {
		set = make(map[GrantKey]struct{})
		s.byRole[roleID] = set
	}
	if _, exists := set[key]; exists {
		return false
	}
	set[key] = struct{}{}
	return true
}

func (s *GrantStore) remove(roleID int64, key GrantKey) bool {
	set, ok := s.byRole[roleID]
	if !ok {
		return false
	}
	if _, exists := set[key]; !exists {
		return false
	}
	delete(set, key)
	if len(set) == 0 {
		delete(s.byRole, roleID)
	}
	return true
}

func (s *GrantStore) has(roleID int64, key GrantKey) bool {
	_, ok := s.byRole[roleID][key]
	return ok
}

// listDirect returns the role's direct grants ordered by feature then permission.
func (s *GrantStore) listDirect(roleID int64) []GrantKey {
	set := s.byRole[roleID]
	out := make([]GrantKey, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sortGrantKeys(out)
	return out
}

// replaceAll swaps the role's direct grant set in one step.
func (s *GrantStore) replaceAll(roleID int64, keys []GrantKey) {
	if len(keys) == 0 {
		delete(s.byRole, roleID)
		return
	}
	set := make(map[GrantKey]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	s.byRole[roleID] = set
}

func (s *GrantStore) removeRole(roleID int64) []GrantKey {
	removed := s.listDirect(roleID)
	delete(s.byRole, roleID)
	return removed
}

// removeFeature cascades a feature deletion across every role's grants.
func (s *GrantStore) removeFeature(featureID int64) []Grant {
	return s.removeMatching(func(key GrantKey) bool { return key.FeatureID == featureID })
}

// removePermission cascades a permission deletion across every role's grants.
func (s *GrantStore) removePermission(permissionID int64) []Grant {
	return s.removeMatching(func(key GrantKey) bool { return key.PermissionID == permissionID })
}

func (s *GrantStore) removeMatching(match func(GrantKey) bool) []Grant {
	var removed []Grant
	for roleID, set := range s.byRole {
		for key := range set {
			if match(key) {
				delete(set, key)
				removed = append(removed, Grant{RoleID: roleID, FeatureID: key.FeatureID, PermissionID: key.PermissionID})
			}
		}
		if len(set) == 0 {
			delete(s.byRole, roleID)
		}
	}
	sort.Slice(removed, func(i, j int) bool {
		if removed[i].RoleID != removed[j].RoleID {
			return removed[i].RoleID < removed[j].RoleID
		}
		if removed[i].FeatureID != removed[j].FeatureID {
			return removed[i].FeatureID < removed[j].FeatureID
		}
		return removed[i].PermissionID < removed[j].PermissionID
	})
	return removed
}

func sortGrantKeys(keys []GrantKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].FeatureID != keys[j].FeatureID {
			return keys[i].FeatureID < keys[j].FeatureID
		}
		return keys[i].PermissionID < keys[j].PermissionID
	})
}
