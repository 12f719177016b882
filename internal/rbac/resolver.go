package rbac

import "sort"

// resolve computes the effective permission set of a role: the union of its
// direct grants and every ancestor's grants, walking from the role itself
// outward to the root. The accumulator is first-write-wins, so a grant held
// closer to the queried role shadows the same grant on a farther ancestor and
// is tagged direct when it sits on the role itself. Descendants can only add
// to what ancestors grant, never revoke it.
func resolve(graph *RoleGraph, grants *GrantStore, roleID int64) ([]EffectivePermission, error) {
	if _, ok := graph.role(roleID); !ok {
		return nil, ErrNotFound
	}

	chain := append([]int64{roleID}, graph.ancestors(roleID)...)
	acc := make(map[GrantKey]EffectivePermission)
	for distance, visited := range chain {
		for _, key := range grants.listDirect(visited) {
			if _, seen := acc[key]; seen {
				continue
			}
			entry := EffectivePermission{
				FeatureID:    key.FeatureID,
				PermissionID: key.PermissionID,
				Direct:       distance == 0,
			}
			if distance > 0 {
				source := visited
				entry.SourceRoleID = &source
			}
			acc[key] = entry
		}
	}

	out := make([]EffectivePermission, 0, len(acc))
	for _, entry := range acc {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FeatureID != out[j].FeatureID {
			return out[i].FeatureID < out[j].FeatureID
		}
		return out[i].PermissionID < out[j].PermissionID
	})
	return out, nil
}
