package catalog

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Normalize turns an arbitrary stored or submitted document into a catalog
// that satisfies the schema invariants:
//   - images, categories and collections are never nil
//   - categories falls back to DefaultCategories when missing or empty
//   - every image order is an integer >= 0; missing, negative or
//     non-numeric values become the image's position in the list
//   - isHero is true only for JSON true or the string "true"
//   - unknown members survive in Extra
//
// Normalize is pure and idempotent: Normalize(Normalize(d).Document())
// equals Normalize(d).
func Normalize(doc Document) *Catalog {
	c := &Catalog{}
	for key, raw := range doc {
		switch key {
		case "images":
			c.Images = normalizeImages(raw)
		case "categories":
			c.Categories = normalizeCategories(raw)
		case "collections":
			c.Collections = normalizeCollections(raw)
		case "heroImage":
			c.HeroImage = scalarString(raw)
		case "modelName":
			c.ModelName = scalarString(raw)
		case "heroTagline":
			c.HeroTagline = scalarString(raw)
		default:
			c.Extra = putExtra(c.Extra, key, raw)
		}
	}
	if c.Images == nil {
		c.Images = []Image{}
	}
	if len(c.Categories) == 0 {
		c.Categories = slices.Clone(DefaultCategories)
	}
	if c.Collections == nil {
		c.Collections = []Collection{}
	}
	return c
}

func normalizeImages(raw json.RawMessage) []Image {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	images := make([]Image, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		images = append(images, normalizeImage(fields, len(images)))
	}
	return images
}

func normalizeImage(fields map[string]json.RawMessage, position int) Image {
	img := Image{Order: position}
	for key, raw := range fields {
		switch key {
		case "id":
			img.ID = scalarString(raw)
		case "filename":
			img.Filename = scalarString(raw)
		case "title":
			img.Title = scalarString(raw)
		case "description":
			img.Description = scalarString(raw)
		case "category":
			img.Category = scalarString(raw)
		case "collection":
			img.Collection = scalarString(raw)
		case "order":
			if n, ok := orderValue(raw); ok {
				img.Order = n
			}
		case "isHero":
			img.IsHero = heroValue(raw)
		default:
			img.Extra = putExtra(img.Extra, key, raw)
		}
	}
	return img
}

func normalizeCategories(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil || s == "" {
			continue
		}
		if slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func normalizeCollections(raw json.RawMessage) []Collection {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]Collection, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		var col Collection
		for key, v := range fields {
			switch key {
			case "name":
				col.Name = strings.TrimSpace(scalarString(v))
			case "category":
				col.Category = strings.TrimSpace(scalarString(v))
			default:
				col.Extra = putExtra(col.Extra, key, v)
			}
		}
		if col.Name == "" || col.Category == "" {
			continue
		}
		if slices.ContainsFunc(out, func(c Collection) bool { return c.Name == col.Name && c.Category == col.Category }) {
			continue
		}
		out = append(out, col)
	}
	return out
}

// scalarString reads strings as-is and numbers as their literal text.
// Everything else, including null, reads as "".
func scalarString(raw json.RawMessage) string {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// orderValue accepts non-negative numbers (fractions truncate) and numeric strings.
func orderValue(raw json.RawMessage) (int, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func heroValue(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	default:
		return false
	}
}

// putExtra stores raw in the form encoding/json itself emits (compact,
// HTML-escaped) so that re-encoding does not change passthrough bytes.
func putExtra(extra map[string]json.RawMessage, key string, raw json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		extra = make(map[string]json.RawMessage)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		extra[key] = bytes.Clone(raw)
		return extra
	}
	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, compact.Bytes())
	extra[key] = escaped.Bytes()
	return extra
}
