package rbac

import (
	"sort"
	"strings"
)

// RoleGraph maintains roles and their parent-child edges. Each role has at
// most one parent and the parent relation is kept acyclic by setParent, so
// every upward walk terminates at a root. Like the catalog it is unlocked;
// the owning Service serializes access.
type RoleGraph struct {
	roles      map[int64]Role
	lastRoleID int64
}

// NewRoleGraph builds an empty role graph.
func NewRoleGraph() *RoleGraph {
	return &RoleGraph{roles: make(map[int64]Role)}
}

func (g *RoleGraph) addRole(r Role) error {
	if g.findByName(r.Name) != nil {
		return ErrDuplicate
	}
	if r.ParentRoleID != nil {
		if _, ok := g.roles[*r.ParentRoleID]; !ok {
			return ErrNotFound
		}
	}
	g.roles[r.ID] = r
	if r.ID > g.lastRoleID {
		g.lastRoleID = r.ID
	}
	return nil
}

func (g *RoleGraph) updateRole(id int64, name, description string) error {
	r, ok := g.roles[id]
	if !ok {
		return ErrNotFound
	}
	if existing := g.findByName(name); existing != nil && existing.ID != id {
		return ErrDuplicate
	}
	r.Name = name
	r.Description = description
	g.roles[id] = r
	return nil
}

// removeRole deletes a role. Roles with children are refused; the user guard
// lives in the Service, which consults the user directory first.
func (g *RoleGraph) removeRole(id int64) (Role, error) {
	r, ok := g.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	if len(g.children(id)) > 0 {
		return Role{}, ErrInUse
	}
	delete(g.roles, id)
	return r, nil
}

// setParent rewires a role's parent edge. Passing nil makes the role a root.
// The cycle check walks upward from the new parent: if the role itself shows
// up on that path the assignment is refused.
func (g *RoleGraph) setParent(roleID int64, parentID *int64) error {
	if _, ok := g.roles[roleID]; !ok {
		return ErrNotFound
	}
	if parentID != nil {
		if *parentID == roleID {
			return ErrSelfParent
		}
		if _, ok := g.roles[*parentID]; !ok {
			return ErrNotFound
		}
		for cursor := parentID; cursor != nil; {
			if *cursor == roleID {
				return ErrCycle
			}
			next := g.roles[*cursor].ParentRoleID
			cursor = next
		}
	}
	r := g.roles[roleID]
	r.ParentRoleID = parentID
	g.roles[roleID] = r
	return nil
}

// ancestors returns the chain of ancestor ids, nearest first, excluding the
// role itself and including the root. Finite because setParent forbids cycles.
func (g *RoleGraph) ancestors(roleID int64) []int64 {
	var out []int64
	r, ok := g.roles[roleID]
	if !ok {
		return out
	}
	for cursor := r.ParentRoleID; cursor != nil; {
		out = append(out, *cursor)
		next := g.roles[*cursor].ParentRoleID
		cursor = next
	}
	return out
}

func (g *RoleGraph) children(roleID int64) []int64 {
	var out []int64
	for id, r := range g.roles {
		if r.ParentRoleID != nil && *r.ParentRoleID == roleID {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *RoleGraph) isRoot(roleID int64) bool {
	r, ok := g.roles[roleID]
	return ok && r.ParentRoleID == nil
}

func (g *RoleGraph) role(id int64) (Role, bool) {
	r, ok := g.roles[id]
	return r, ok
}

func (g *RoleGraph) findByName(name string) *Role {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, r := range g.roles {
		if strings.ToLower(r.Name) == needle {
			out := r
			return &out
		}
	}
	return nil
}

func (g *RoleGraph) list() []Role {
	out := make([]Role, 0, len(g.roles))
	for _, r := range g.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// tree materializes the forest of role nodes, children ordered by id.
func (g *RoleGraph) tree() []*RoleNode {
	nodes := make(map[int64]*RoleNode, len(g.roles))
	for id, r := range g.roles {
		nodes[id] = &RoleNode{Role: r}
	}
	var roots []*RoleNode
	for _, r := range g.list() {
		node := nodes[r.ID]
		if r.ParentRoleID == nil {
			roots = append(roots, node)
			continue
		}
		parent := nodes[*r.ParentRoleID]
		parent.Children = append(parent.Children, node)
	}
	return roots
}

func (g *RoleGraph) nextRoleID() int64 {
	g.lastRoleID++
	return g.lastRoleID
}
