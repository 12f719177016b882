package rbac

import (
	"sort"
	"strings"
)

// Catalog holds the feature and permission registries. Names are unique.
// The catalog carries no lock of its own; the owning Service serializes access.
type Catalog struct {
	features     map[int64]Feature
	featureNames map[string]int64
	permissions  map[int64]Permission
	permNames    map[string]int64

	lastFeatureID    int64
	lastPermissionID int64
}

// NewCatalog builds an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		features:     make(map[int64]Feature),
		featureNames: make(map[string]int64),
		permissions:  make(map[int64]Permission),
		permNames:    make(map[string]int64),
	}
}

func catalogKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c *Catalog) addFeature(f Feature) error {
	key := catalogKey(f.Name)
	if _, exists := c.featureNames[key]; exists {
		return ErrDuplicate
	}
	c.features[f.ID] = f
	c.featureNames[key] = f.ID
	if f.ID > c.lastFeatureID {
		c.lastFeatureID = f.ID
	}
	return nil
}

func (c *Catalog) updateFeature(f Feature) error {
	current, ok := c.features[f.ID]
	if !ok {
		return ErrNotFound
	}
	key := catalogKey(f.Name)
	if id, exists := c.featureNames[key]; exists && id != f.ID {
		return ErrDuplicate
	}
	delete(c.featureNames, catalogKey(current.Name))
	c.features[f.ID] = f
	c.featureNames[key] = f.ID
	return nil
}

func (c *Catalog) removeFeature(id int64) (Feature, error) {
	f, ok := c.features[id]
	if !ok {
		return Feature{}, ErrNotFound
	}
	delete(c.features, id)
	delete(c.featureNames, catalogKey(f.Name))
	return f, nil
}

func (c *Catalog) feature(id int64) (Feature, bool) {
	f, ok := c.features[id]
	return f, ok
}

func (c *Catalog) featureByName(name string) (Feature, bool) {
	id, ok := c.featureNames[catalogKey(name)]
	if !ok {
		return Feature{}, false
	}
	return c.features[id], true
}

func (c *Catalog) listFeatures() []Feature {
	out := make([]Feature, 0, len(c.features))
	for _, f := range c.features {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) nextFeatureID() int64 {
	c.lastFeatureID++
	return c.lastFeatureID
}

func (c *Catalog) addPermission(p Permission) error {
	key := catalogKey(p.Name)
	if _, exists := c.permNames[key]; exists {
		return ErrDuplicate
	}
	c.permissions[p.ID] = p
	c.permNames[key] = p.ID
	if p.ID > c.lastPermissionID {
		c.lastPermissionID = p.ID
	}
	return nil
}

func (c *Catalog) updatePermission(p Permission) error {
	current, ok := c.permissions[p.ID]
	if !ok {
		return ErrNotFound
	}
	key := catalogKey(p.Name)
	if id, exists := c.permNames[key]; exists && id != p.ID {
		return ErrDuplicate
	}
	delete(c.permNames, catalogKey(current.Name))
	c.permissions[p.ID] = p
	c.permNames[key] = p.ID
	return nil
}

func (c *Catalog) removePermission(id int64) (Permission, error) {
	p, ok := c.permissions[id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	delete(c.permissions, id)
	delete(c.permNames, catalogKey(p.Name))
	return p, nil
}

func (c *Catalog) permission(id int64) (Permission, bool) {
	p, ok := c.permissions[id]
	return p, ok
}

func (c *Catalog) permissionByName(name string) (Permission, bool) {
	id, ok := c.permNames[catalogKey(name)]
	if !ok {
		return Permission{}, false
	}
	return c.permissions[id], true
}

func (c *Catalog) listPermissions() []Permission {
	out := make([]Permission, 0, len(c.permissions))
	for _, p := range c.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) nextPermissionID() int64 {
	c.lastPermissionID++
	return c.lastPermissionID
}
