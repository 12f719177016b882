package rbac

import (
	"errors"
	"testing"
)

// Chain SuperAdmin(1) → Admin(2) → Manajer(3) → Staf(4) with features
// Dashboard(10), Pengaturan(11) and permissions View(20), Edit(21).
func buildResolveFixture(t *testing.T) (*RoleGraph, *GrantStore) {
	t.Helper()
	g := buildChain(t)
	s := NewGrantStore()
	return g, s
}

func TestResolveUnknownRole(t *testing.T) {
	g, s := buildResolveFixture(t)
	if _, err := resolve(g, s, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveDirectOnly(t *testing.T) {
	g, s := buildResolveFixture(t)
	s.add(4, GrantKey{FeatureID: 10, PermissionID: 20})

	got, err := resolve(g, s, 4)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	entry := got[0]
	if !entry.Direct || entry.SourceRoleID != nil {
		t.Fatalf("direct grant mislabeled: %+v", entry)
	}
}

func TestResolveInheritsFromAncestors(t *testing.T) {
	g, s := buildResolveFixture(t)
	s.add(1, GrantKey{FeatureID: 11, PermissionID: 21})
	s.add(2, GrantKey{FeatureID: 10, PermissionID: 20})

	got, err := resolve(g, s, 4)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	// Sorted by feature then permission: (10,20) from role 2, (11,21) from role 1.
	if got[0].Direct || got[0].SourceRoleID == nil || *got[0].SourceRoleID != 2 {
		t.Fatalf("inherited entry mislabeled: %+v", got[0])
	}
	if got[1].SourceRoleID == nil || *got[1].SourceRoleID != 1 {
		t.Fatalf("root grant source wrong: %+v", got[1])
	}
}

func TestResolveCloserGrantWins(t *testing.T) {
	g, s := buildResolveFixture(t)
	key := GrantKey{FeatureID: 10, PermissionID: 20}
	s.add(1, key)
	s.add(3, key)

	got, err := resolve(g, s, 4)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected deduplication to 1 entry, got %d", len(got))
	}
	if got[0].SourceRoleID == nil || *got[0].SourceRoleID != 3 {
		t.Fatalf("expected nearest ancestor 3 as source, got %+v", got[0])
	}

	// The same pair held directly shadows every ancestor.
	s.add(4, key)
	got, err = resolve(g, s, 4)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 || !got[0].Direct || got[0].SourceRoleID != nil {
		t.Fatalf("direct grant should shadow ancestors: %+v", got)
	}
}

func TestResolveDescendantsDoNotLeakUpward(t *testing.T) {
	g, s := buildResolveFixture(t)
	s.add(4, GrantKey{FeatureID: 10, PermissionID: 20})

	got, err := resolve(g, s, 3)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("parent must not inherit from child, got %+v", got)
	}
}

func TestResolveRoleWithNoGrants(t *testing.T) {
	g, s := buildResolveFixture(t)
	got, err := resolve(g, s, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %+v", got)
	}
}
