package engine

import (
	"time"

	"github.com/Veraticus/spice-sort/internal/model"
)

// Catalog is an immutable snapshot of the categories loaded at one point in
// time. Reloading builds a new Catalog rather than mutating this one.
type Catalog struct {
	LoadedAt   time.Time
	byID       map[int]model.Category
	unknown    *model.Category
	Categories []model.Category
}

func newCatalog(categories []model.Category, loadedAt time.Time) *Catalog {
	c := &Catalog{
		LoadedAt:   loadedAt,
		Categories: categories,
		byID:       make(map[int]model.Category, len(categories)),
	}
	for i := range categories {
		c.byID[categories[i].ID] = categories[i]
		if categories[i].IsUnknown() {
			c.unknown = &categories[i]
		}
	}
	return c
}

// Category looks up a category by ID.
func (c *Catalog) Category(id int) (model.Category, bool) {
	cat, ok := c.byID[id]
	return cat, ok
}

// Name returns a category's name, or an empty string when it is not loaded.
func (c *Catalog) Name(id int) string {
	return c.byID[id].Name
}

// UnknownID returns the ID of the fallback category.
func (c *Catalog) UnknownID() (int, bool) {
	if c.unknown == nil {
		return 0, false
	}
	return c.unknown.ID, true
}

// Len returns the number of categories in the snapshot.
func (c *Catalog) Len() int {
	return len(c.Categories)
}
