package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/lifecycle"
)

// publicCache lets shared caches serve successful catalog reads briefly.
// Error responses never carry it.
const publicCache = "public, s-maxage=60, stale-while-revalidate=300"

// Repository is the catalog storage the handlers read and replace.
type Repository interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
	Save(ctx context.Context, doc catalog.Document) error
}

// Searcher answers full-text queries over catalog images.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]index.Hit, error)
}

// Handler holds API route handlers.
type Handler struct {
	repo   Repository
	coord  *lifecycle.Coordinator
	search Searcher
	logger *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithSearcher enables GET /portfolio/search.
func WithSearcher(s Searcher) HandlerOption {
	return func(h *Handler) { h.search = s }
}

// WithLogger sets the logger for failed requests.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a new Handler.
func NewHandler(repo Repository, coord *lifecycle.Coordinator, opts ...HandlerOption) *Handler {
	h := &Handler{repo: repo, coord: coord, logger: slog.Default()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// GetPortfolio handles GET /portfolio.
//
//	@Summary		Get the normalized portfolio catalog
//	@Tags			portfolio
//	@Produce		json
//	@Success		200	{object}	catalog.Catalog
//	@Failure		500	{object}	errResponse
//	@Router			/portfolio [get]
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.Load(r.Context())
	if err != nil {
		h.writeError(w, err, "Failed to load data")
		return
	}
	w.Header().Set("Cache-Control", publicCache)
	writeJSON(w, http.StatusOK, c)
}

// SavePortfolio handles POST /portfolio.
//
//	@Summary		Replace the whole portfolio catalog
//	@Tags			portfolio
//	@Accept			json
//	@Produce		json
//	@Param			body	body		catalog.Catalog	true	"Full catalog"
//	@Success		200		{object}	successResponse
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		AdminSession
//	@Router			/portfolio [post]
func (h *Handler) SavePortfolio(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid data format"))
		return
	}
	doc, err := catalog.ParseDocument(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid data format"))
		return
	}
	if err := h.repo.Save(r.Context(), doc); err != nil {
		h.writeError(w, err, "Failed to save data")
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

// ListImages handles GET /portfolio/images.
//
//	@Summary		List images in display order
//	@Tags			portfolio
//	@Produce		json
//	@Param			category	query		string	false	"Filter by category"
//	@Param			collection	query		string	false	"Filter by collection"
//	@Param			hero		query		bool	false	"Only featured images"
//	@Success		200			{object}	ImageListResponse
//	@Failure		500			{object}	errResponse
//	@Router			/portfolio/images [get]
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.Load(r.Context())
	if err != nil {
		h.writeError(w, err, "Failed to load data")
		return
	}
	q := r.URL.Query()
	hero, _ := strconv.ParseBool(q.Get("hero"))
	images := catalog.Sorted(catalog.FilterImages(c.Images, catalog.Filter{
		Category:   q.Get("category"),
		Collection: q.Get("collection"),
		HeroOnly:   hero,
	}))
	w.Header().Set("Cache-Control", publicCache)
	writeJSON(w, http.StatusOK, ImageListResponse{Images: images, Total: len(images)})
}

// Search handles GET /portfolio/search.
//
//	@Summary		Full-text search across images
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/portfolio/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		writeJSON(w, http.StatusNotFound, errorBody("search is not enabled"))
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.search.Search(r.Context(), q, limit)
	if err != nil {
		h.writeError(w, err, "Search failed")
		return
	}
	if results == nil {
		results = []index.Hit{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// DeleteImage handles POST /delete-image.
//
//	@Summary		Delete an image file and its catalog records
//	@Tags			images
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DeleteImageRequest	true	"Image to delete"
//	@Success		200		{object}	successResponse
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		AdminSession
//	@Router			/delete-image [post]
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	var req DeleteImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request body"))
		return
	}
	if req.Filename == "" && req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("No filename provided"))
		return
	}
	removed, err := h.coord.Delete(r.Context(), lifecycle.DeleteRequest{ID: req.ID, Filename: req.Filename})
	if err != nil {
		h.writeError(w, err, "Failed to delete file")
		return
	}
	h.logger.Info("image deleted",
		slog.String("filename", req.Filename),
		slog.String("id", req.ID),
		slog.Int("records", removed))
	writeJSON(w, http.StatusOK, okBody)
}

// Reorder handles POST /portfolio/reorder.
//
//	@Summary		Set the display order of images
//	@Tags			images
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReorderRequest	true	"Image ids in display order"
//	@Success		200		{object}	successResponse
//	@Failure		400		{object}	errResponse
//	@Security		AdminSession
//	@Router			/portfolio/reorder [post]
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err, "Failed to reorder images")
		return
	}
	if err := check(req); err != nil {
		h.writeError(w, err, "Failed to reorder images")
		return
	}
	if err := h.coord.Reorder(r.Context(), req.IDs); err != nil {
		h.writeError(w, err, "Failed to reorder images")
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

// PatchImage handles PATCH /portfolio/images/{id}.
//
//	@Summary		Edit image metadata
//	@Tags			images
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Image id"
//	@Param			body	body		PatchImageRequest	true	"Fields to change"
//	@Success		200		{object}	catalog.Image
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		AdminSession
//	@Router			/portfolio/images/{id} [patch]
func (h *Handler) PatchImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req PatchImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err, "Failed to update image")
		return
	}
	img, err := h.coord.UpdateImage(r.Context(), id, req.patch())
	if err != nil {
		h.writeError(w, err, "Failed to update image")
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// AddCollection handles POST /collections.
//
//	@Summary		Register a collection under a category
//	@Tags			collections
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CollectionRequest	true	"Collection"
//	@Success		200		{object}	CollectionResponse
//	@Failure		400		{object}	errResponse
//	@Security		AdminSession
//	@Router			/collections [post]
func (h *Handler) AddCollection(w http.ResponseWriter, r *http.Request) {
	h.collectionOp(w, r, h.coord.AddCollection, "Failed to add collection")
}

// RemoveCollection handles DELETE /collections.
//
//	@Summary		Remove a collection from the registry
//	@Tags			collections
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CollectionRequest	true	"Collection"
//	@Success		200		{object}	CollectionResponse
//	@Failure		400		{object}	errResponse
//	@Security		AdminSession
//	@Router			/collections [delete]
func (h *Handler) RemoveCollection(w http.ResponseWriter, r *http.Request) {
	h.collectionOp(w, r, h.coord.RemoveCollection, "Failed to remove collection")
}

func (h *Handler) collectionOp(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, name, category string) (bool, error), msg string,
) {
	var req CollectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err, msg)
		return
	}
	if err := check(req); err != nil {
		h.writeError(w, err, msg)
		return
	}
	changed, err := op(r.Context(), req.Name, req.Category)
	if err != nil {
		h.writeError(w, err, msg)
		return
	}
	writeJSON(w, http.StatusOK, CollectionResponse{Success: true, Changed: changed})
}
