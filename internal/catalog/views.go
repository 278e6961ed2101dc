package catalog

import (
	"cmp"
	"slices"
	"strings"
)

// Filter selects images by category, collection and hero flag. Empty fields match everything.
type Filter struct {
	Category   string
	Collection string
	HeroOnly   bool
}

// Match reports whether img passes the filter.
func (f Filter) Match(img Image) bool {
	if f.Category != "" && img.Category != f.Category {
		return false
	}
	if f.Collection != "" && img.Collection != f.Collection {
		return false
	}
	if f.HeroOnly && !img.IsHero {
		return false
	}
	return true
}

// FilterImages returns the images matching f, keeping their input order.
func FilterImages(images []Image, f Filter) []Image {
	out := []Image{}
	for _, img := range images {
		if f.Match(img) {
			out = append(out, img)
		}
	}
	return out
}

// Sorted returns a copy of images ordered by ascending Order. Images with
// equal Order keep their input order.
func Sorted(images []Image) []Image {
	out := slices.Clone(images)
	if out == nil {
		out = []Image{}
	}
	slices.SortStableFunc(out, func(a, b Image) int { return cmp.Compare(a.Order, b.Order) })
	return out
}

// Heroes returns the featured images in display order.
func (c *Catalog) Heroes() []Image {
	return Sorted(FilterImages(c.Images, Filter{HeroOnly: true}))
}

// ImageIndex returns the position of the first image with the given id, or -1.
func (c *Catalog) ImageIndex(id string) int {
	return slices.IndexFunc(c.Images, func(img Image) bool { return img.ID == id })
}

// IsRemote reports whether filename is a fully-qualified URL rather than a
// reference to a locally served upload.
func IsRemote(filename string) bool {
	return strings.HasPrefix(filename, "http://") || strings.HasPrefix(filename, "https://")
}

// ImageURL returns the address clients should load filename from.
func ImageURL(filename string) string {
	if IsRemote(filename) {
		return filename
	}
	return "/uploads/" + filename
}
