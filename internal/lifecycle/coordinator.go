// Package lifecycle sequences the mutations that span the catalog and the
// blob store: creating records for uploaded files, deleting files together
// with their records, reordering, and image and collection edits.
//
// Every operation is one Load followed by at most one Save. Operations are
// not transactional across the blob store and the catalog: a crash between
// a blob delete and the catalog Save leaves a record pointing at a missing
// file, and a crash between a blob Put and the Save leaves an orphan file.
// Delete keeps a file while any surviving record still points at it, and a
// failed blob delete leaves an orphan file rather than a kept record.
// Concurrent operations follow the repository's last-write-wins rule.
package lifecycle

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/blob"
	"github.com/starford/folio/internal/catalog"
)

// Repository is the catalog persistence the coordinator needs.
type Repository interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
	Save(ctx context.Context, doc catalog.Document) error
}

// Coordinator runs compound catalog operations.
type Coordinator struct {
	repo   Repository
	blobs  blob.Store
	logger *slog.Logger
	newID  func() (string, error)
	now    func() time.Time
}

// NewCoordinator returns a coordinator over repo and blobs. blobs may be nil
// when the deployment manages files elsewhere.
func NewCoordinator(repo Repository, blobs blob.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		repo:   repo,
		blobs:  blobs,
		logger: logger,
		newID:  newImageID,
		now:    time.Now,
	}
}

func newImageID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("lifecycle: new id: %w", err)
	}
	return id.String(), nil
}

// Upload describes an already stored file and the metadata of its record.
type Upload struct {
	Filename    string
	Title       string
	Description string
	Category    string
	Collection  string
	IsHero      bool
}

// File is an upload body that has not been stored yet.
type File struct {
	Name        string
	Body        io.Reader
	Size        int64
	ContentType string
}

// CreateFromUpload appends a record for a stored file. The record gets a
// fresh id and order equal to the current image count. A collection that is
// not registered under the category yet is registered in the same Save.
func (c *Coordinator) CreateFromUpload(ctx context.Context, up Upload) (*catalog.Image, error) {
	up.Filename = strings.TrimSpace(up.Filename)
	up.Category = strings.TrimSpace(up.Category)
	up.Collection = strings.TrimSpace(up.Collection)
	if up.Filename == "" {
		return nil, apperr.Validation("filename is required")
	}

	cat, err := c.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkPlacement(cat, up.Category, up.Collection); err != nil {
		return nil, err
	}
	if up.Collection != "" {
		if _, err := cat.AddCollection(up.Collection, up.Category); err != nil {
			return nil, err
		}
	}

	id, err := c.newID()
	if err != nil {
		return nil, err
	}
	img := catalog.Image{
		ID:          id,
		Filename:    up.Filename,
		Title:       up.Title,
		Description: up.Description,
		Order:       len(cat.Images),
		Category:    up.Category,
		Collection:  up.Collection,
		IsHero:      up.IsHero,
	}
	cat.Images = append(cat.Images, img)

	if err := c.repo.Save(ctx, cat.Document()); err != nil {
		return nil, err
	}
	c.logger.Info("lifecycle: image created",
		slog.String("id", img.ID),
		slog.String("filename", img.Filename))
	return &img, nil
}

// StoreUpload puts f into the blob store and creates its record. When the
// record cannot be created the stored object is removed again.
func (c *Coordinator) StoreUpload(ctx context.Context, f File, up Upload) (*catalog.Image, error) {
	if c.blobs == nil {
		return nil, errors.New("lifecycle: no blob store configured")
	}
	name := blob.ObjectName(c.now(), f.Name)
	ref, err := c.blobs.Put(ctx, name, f.Body, f.Size, f.ContentType)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return nil, err
		}
		return nil, apperr.Storage(c.blobs.Name(), "put", err)
	}
	up.Filename = ref

	img, err := c.CreateFromUpload(ctx, up)
	if err != nil {
		if delErr := c.blobs.Delete(context.WithoutCancel(ctx), ref); delErr != nil {
			c.logger.Warn("lifecycle: orphaned upload",
				slog.String("ref", ref),
				slog.String("error", delErr.Error()))
		}
		return nil, err
	}
	return img, nil
}

// DeleteRequest names the image to delete by id, by file reference, or both.
type DeleteRequest struct {
	ID       string
	Filename string
}

// Delete removes every matching record and, when no remaining record still
// references it, the backing file. References are compared in the blob
// store's canonical form, so "/uploads/x.jpg" and "x.jpg" name the same
// local file. Blob failures are logged and never block the record removal.
// It returns the number of removed records; zero removed records skip the
// Save.
func (c *Coordinator) Delete(ctx context.Context, req DeleteRequest) (int, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Filename = strings.TrimSpace(req.Filename)
	if req.ID == "" && req.Filename == "" {
		return 0, apperr.Validation("no filename provided")
	}

	cat, err := c.repo.Load(ctx)
	if err != nil {
		return 0, err
	}
	ref := req.Filename
	if ref == "" {
		i := cat.ImageIndex(req.ID)
		if i < 0 {
			return 0, fmt.Errorf("lifecycle: image %s: %w", req.ID, apperr.ErrNotFound)
		}
		ref = cat.Images[i].Filename
	}
	ref = c.ref(ref)

	before := len(cat.Images)
	cat.Images = slices.DeleteFunc(cat.Images, func(img catalog.Image) bool {
		if req.ID != "" {
			return img.ID == req.ID
		}
		return c.ref(img.Filename) == ref
	})
	removed := before - len(cat.Images)
	shared := ref != "" && slices.ContainsFunc(cat.Images, func(img catalog.Image) bool {
		return c.ref(img.Filename) == ref
	})

	switch {
	case c.blobs == nil || ref == "":
	case shared:
		c.logger.Info("lifecycle: file still referenced, kept", slog.String("filename", ref))
	default:
		c.deleteBlob(ctx, ref)
	}

	if removed == 0 {
		return 0, nil
	}
	if !shared && ref != "" && c.ref(cat.HeroImage) == ref {
		cat.HeroImage = ""
	}
	if err := c.repo.Save(ctx, cat.Document()); err != nil {
		return 0, err
	}
	c.logger.Info("lifecycle: image deleted",
		slog.String("filename", ref),
		slog.Int("removed", removed))
	return removed, nil
}

func (c *Coordinator) deleteBlob(ctx context.Context, ref string) {
	err := c.blobs.Delete(ctx, ref)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotFound):
		c.logger.Info("lifecycle: file already gone", slog.String("filename", ref))
	default:
		c.logger.Warn("lifecycle: file delete failed",
			slog.String("filename", ref),
			slog.String("error", apperr.Storage(c.blobs.Name(), "delete", err).Error()))
	}
}

// ref returns the canonical form of a file reference.
func (c *Coordinator) ref(ref string) string {
	if c.blobs == nil {
		return ref
	}
	return c.blobs.Ref(ref)
}

// Reorder moves the listed images to the front in the given sequence. The
// remaining images follow in their previous relative order. Every order is
// rewritten to its new position.
func (c *Coordinator) Reorder(ctx context.Context, ids []string) error {
	cat, err := c.repo.Load(ctx)
	if err != nil {
		return err
	}

	byID := make(map[string]int, len(cat.Images))
	for i, img := range cat.Images {
		if _, dup := byID[img.ID]; !dup {
			byID[img.ID] = i
		}
	}
	taken := make([]bool, len(cat.Images))
	out := make([]catalog.Image, 0, len(cat.Images))
	for _, id := range ids {
		i, ok := byID[id]
		if !ok {
			return apperr.Validation("unknown image id %q", id)
		}
		if taken[i] {
			return apperr.Validation("duplicate image id %q", id)
		}
		taken[i] = true
		out = append(out, cat.Images[i])
	}
	rest := make([]int, 0, len(cat.Images)-len(out))
	for i := range cat.Images {
		if !taken[i] {
			rest = append(rest, i)
		}
	}
	slices.SortStableFunc(rest, func(a, b int) int {
		return cmp.Compare(cat.Images[a].Order, cat.Images[b].Order)
	})
	for _, i := range rest {
		out = append(out, cat.Images[i])
	}
	for i := range out {
		out[i].Order = i
	}
	cat.Images = out
	return c.repo.Save(ctx, cat.Document())
}

// ImagePatch lists the fields to change. Nil fields are left alone.
type ImagePatch struct {
	Title       *string
	Description *string
	Category    *string
	Collection  *string
	IsHero      *bool
}

// UpdateImage applies p to the image with the given id. Moving an image to
// another category clears its collection unless p sets one.
func (c *Coordinator) UpdateImage(ctx context.Context, id string, p ImagePatch) (*catalog.Image, error) {
	cat, err := c.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := cat.ImageIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("lifecycle: image %s: %w", id, apperr.ErrNotFound)
	}
	img := cat.Images[i]

	if p.Title != nil {
		img.Title = *p.Title
	}
	if p.Description != nil {
		img.Description = *p.Description
	}
	if p.Category != nil {
		category := strings.TrimSpace(*p.Category)
		if category != img.Category {
			img.Category = category
			img.Collection = ""
		}
	}
	if p.Collection != nil {
		img.Collection = strings.TrimSpace(*p.Collection)
	}
	if p.IsHero != nil {
		img.IsHero = *p.IsHero
	}

	if err := checkPlacement(cat, img.Category, ""); err != nil {
		return nil, err
	}
	if img.Collection != "" && !cat.HasCollection(img.Collection, img.Category) {
		return nil, apperr.Validation("collection %q is not registered under %q", img.Collection, img.Category)
	}

	cat.Images[i] = img
	if err := c.repo.Save(ctx, cat.Document()); err != nil {
		return nil, err
	}
	return &img, nil
}

// SetHero flags or unflags one image as featured.
func (c *Coordinator) SetHero(ctx context.Context, id string, hero bool) (*catalog.Image, error) {
	return c.UpdateImage(ctx, id, ImagePatch{IsHero: &hero})
}

// AddCollection registers (name, category). It reports false, without
// saving, when the pair already exists.
func (c *Coordinator) AddCollection(ctx context.Context, name, category string) (bool, error) {
	cat, err := c.repo.Load(ctx)
	if err != nil {
		return false, err
	}
	if err := checkPlacement(cat, strings.TrimSpace(category), ""); err != nil {
		return false, err
	}
	added, err := cat.AddCollection(name, category)
	if err != nil || !added {
		return false, err
	}
	return true, c.repo.Save(ctx, cat.Document())
}

// RemoveCollection unregisters (name, category). Images keep their
// collection label. It reports false, without saving, when the pair was
// not registered.
func (c *Coordinator) RemoveCollection(ctx context.Context, name, category string) (bool, error) {
	cat, err := c.repo.Load(ctx)
	if err != nil {
		return false, err
	}
	if !cat.RemoveCollection(name, category) {
		return false, nil
	}
	return true, c.repo.Save(ctx, cat.Document())
}

// checkPlacement validates a category and collection pair against the catalog.
func checkPlacement(cat *catalog.Catalog, category, collection string) error {
	if category != "" && !cat.HasCategory(category) {
		return apperr.Validation("unknown category %q", category)
	}
	if collection != "" && category == "" {
		return apperr.Validation("collection %q needs a category", collection)
	}
	return nil
}
