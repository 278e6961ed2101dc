package api

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/blob"
	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/lifecycle"
)

// multipartOverhead is the room left for form fields around the file part.
const multipartOverhead = 1 << 20

// UploadHandler accepts image uploads and serves locally stored ones.
type UploadHandler struct {
	coord *lifecycle.Coordinator
	local *blob.Local
	h     *Handler
}

// NewUploadHandler creates an UploadHandler. local may be nil when uploads
// live in a remote object store.
func NewUploadHandler(h *Handler, local *blob.Local) *UploadHandler {
	return &UploadHandler{coord: h.coord, local: local, h: h}
}

// ServeFile handles GET /uploads/{filename}.
func (u *UploadHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	if u.local == nil {
		http.NotFound(w, r)
		return
	}
	name := chi.URLParam(r, "filename")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	abs, err := u.local.Path(name)
	if err != nil {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); statErr != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, abs)
}

// Upload handles POST /upload (multipart/form-data, field "file").
//
//	@Summary		Upload an image and add it to the catalog
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"Image file (max 10MB)"
//	@Param			category	formData	string	false	"Category"
//	@Param			collection	formData	string	false	"Collection within the category"
//	@Param			title		formData	string	false	"Title"
//	@Param			description	formData	string	false	"Description"
//	@Success		200			{object}	UploadResponse
//	@Failure		400			{object}	errResponse
//	@Failure		401			{object}	errResponse
//	@Failure		500			{object}	errResponse
//	@Security		AdminSession
//	@Router			/upload [post]
func (u *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, blob.MaxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(blob.MaxUploadSize + multipartOverhead); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("File size must be less than 10MB"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("No file provided"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeJSON(w, http.StatusBadRequest, errorBody("Please upload an image file"))
		return
	}
	if header.Size > blob.MaxUploadSize {
		writeJSON(w, http.StatusBadRequest, errorBody("File size must be less than 10MB"))
		return
	}

	img, err := u.coord.StoreUpload(r.Context(), lifecycle.File{
		Name:        header.Filename,
		Body:        file,
		Size:        header.Size,
		ContentType: contentType,
	}, lifecycle.Upload{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Collection:  r.FormValue("collection"),
	})
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		u.h.writeError(w, err, "Failed to upload file")
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Success:  true,
		Filename: img.Filename,
		URL:      catalog.ImageURL(img.Filename),
		Image:    img,
	})
}
