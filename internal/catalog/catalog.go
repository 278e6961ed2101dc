// Package catalog defines the portfolio catalog aggregate, its normalizer and
// the collection and view helpers built on top of it.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/starford/folio/internal/apperr"
)

// Seed values for a catalog that has never been stored.
const (
	DefaultModelName   = "Alana Cabanzo"
	DefaultHeroTagline = "Model"
)

// DefaultCategories is the category list used whenever a stored catalog has none.
var DefaultCategories = []string{"Editorial", "Commercial", "Runway"}

// Image is a single catalog entry.
type Image struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	Category    string `json:"category"`
	Collection  string `json:"collection"`
	IsHero      bool   `json:"isHero"`

	// Extra holds members this version does not know about. They are written
	// back unchanged on encode.
	Extra map[string]json.RawMessage `json:"-"`
}

// Collection is a named grouping of images inside one category. Two
// collections are the same when both name and category match.
type Collection struct {
	Name     string `json:"name"`
	Category string `json:"category"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Catalog is the whole persisted portfolio document.
type Catalog struct {
	Images      []Image      `json:"images"`
	Categories  []string     `json:"categories"`
	Collections []Collection `json:"collections"`
	HeroImage   string       `json:"heroImage"`
	ModelName   string       `json:"modelName"`
	HeroTagline string       `json:"heroTagline"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Document is an undecoded catalog: the members of the top-level JSON object
// with their raw values. It is the input type of Normalize and of writes.
type Document map[string]json.RawMessage

// ParseDocument decodes data as a JSON object. Anything else (arrays,
// scalars, null, malformed input) is a validation error.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperr.Validation("catalog must be a JSON object: %v", err)
	}
	if doc == nil {
		return nil, apperr.Validation("catalog must be a JSON object, got null")
	}
	return doc, nil
}

// Default returns the catalog written on first read of an empty store.
func Default() *Catalog {
	c := Normalize(Document{})
	c.ModelName = DefaultModelName
	c.HeroTagline = DefaultHeroTagline
	return c
}

// Document converts c back into its raw form. Values that cannot be encoded
// are written as null, which Normalize then replaces with defaults.
func (c *Catalog) Document() Document {
	doc := make(Document, len(c.Extra)+6)
	for k, v := range c.Extra {
		doc[k] = v
	}
	doc["images"] = encodeValue(c.Images)
	doc["categories"] = encodeValue(c.Categories)
	doc["collections"] = encodeValue(c.Collections)
	doc["heroImage"] = encodeValue(c.HeroImage)
	doc["modelName"] = encodeValue(c.ModelName)
	doc["heroTagline"] = encodeValue(c.HeroTagline)
	return doc
}

// Clone returns a deep copy of c.
func (c *Catalog) Clone() *Catalog {
	out := *c
	out.Images = make([]Image, len(c.Images))
	for i, img := range c.Images {
		img.Extra = cloneExtra(img.Extra)
		out.Images[i] = img
	}
	out.Categories = slices.Clone(c.Categories)
	out.Collections = make([]Collection, len(c.Collections))
	for i, col := range c.Collections {
		col.Extra = cloneExtra(col.Extra)
		out.Collections[i] = col
	}
	out.Extra = cloneExtra(c.Extra)
	return &out
}

// MarshalJSON writes the known members plus any passthrough members.
func (c Catalog) MarshalJSON() ([]byte, error) {
	type plain Catalog
	p := plain(c)
	if p.Images == nil {
		p.Images = []Image{}
	}
	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.Collections == nil {
		p.Collections = []Collection{}
	}
	return marshalWithExtra(p, c.Extra)
}

// UnmarshalJSON decodes and normalizes in one step, so a decoded Catalog
// always satisfies the normalized invariants.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*c = *Normalize(doc)
	return nil
}

func (img Image) MarshalJSON() ([]byte, error) {
	type plain Image
	return marshalWithExtra(plain(img), img.Extra)
}

func (col Collection) MarshalJSON() ([]byte, error) {
	type plain Collection
	return marshalWithExtra(plain(col), col.Extra)
}

// marshalWithExtra encodes v and merges extra members that v does not already define.
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("catalog: merge extra members: %w", err)
	}
	for k, raw := range extra {
		if _, known := merged[k]; known {
			continue
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

func encodeValue(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

func cloneExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		out[k] = bytes.Clone(v)
	}
	return out
}
