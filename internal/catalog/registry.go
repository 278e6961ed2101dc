package catalog

import (
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
)

// Validate checks that both halves of the (name, category) key are present.
func (col Collection) Validate() error {
	return validation.ValidateStruct(&col,
		validation.Field(&col.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&col.Category, validation.Required),
	)
}

// HasCategory reports whether name is one of the catalog's categories.
func (c *Catalog) HasCategory(name string) bool {
	return slices.Contains(c.Categories, name)
}

// HasCollection reports whether the (name, category) pair is registered.
func (c *Catalog) HasCollection(name, category string) bool {
	return c.collectionIndex(name, category) >= 0
}

// AddCollection registers the (name, category) pair. Surrounding whitespace is
// trimmed. It reports false when the pair already existed.
func (c *Catalog) AddCollection(name, category string) (bool, error) {
	col := Collection{Name: strings.TrimSpace(name), Category: strings.TrimSpace(category)}
	if err := col.Validate(); err != nil {
		return false, apperr.Validation("collection: %v", err)
	}
	if c.HasCollection(col.Name, col.Category) {
		return false, nil
	}
	c.Collections = append(c.Collections, col)
	return true, nil
}

// RemoveCollection unregisters the (name, category) pair. Images that carry
// the collection label keep it.
func (c *Catalog) RemoveCollection(name, category string) bool {
	i := c.collectionIndex(strings.TrimSpace(name), strings.TrimSpace(category))
	if i < 0 {
		return false
	}
	c.Collections = slices.Delete(c.Collections, i, i+1)
	return true
}

// CollectionsFor returns the collections registered under category, in registry order.
func (c *Catalog) CollectionsFor(category string) []Collection {
	out := []Collection{}
	for _, col := range c.Collections {
		if col.Category == category {
			out = append(out, col)
		}
	}
	return out
}

func (c *Catalog) collectionIndex(name, category string) int {
	return slices.IndexFunc(c.Collections, func(col Collection) bool {
		return col.Name == name && col.Category == category
	})
}
