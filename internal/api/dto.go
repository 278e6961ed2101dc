package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/catalog"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/lifecycle"
)

// LoginRequest is the request body for POST /auth.
type LoginRequest struct {
	Password string `json:"password" example:"s3cret" validate:"required"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required.Error("password is required")),
	)
}

// LoginResponse is returned by POST /auth.
type LoginResponse struct {
	Success bool   `json:"success" example:"true" validate:"required"`
	Message string `json:"message,omitempty" example:"Invalid password"`
}

// SessionResponse is returned by GET /auth/session.
type SessionResponse struct {
	Authenticated bool `json:"authenticated" example:"true" validate:"required"`
	AuthEnabled   bool `json:"authEnabled" example:"true" validate:"required"`
}

// DeleteImageRequest is the request body for POST /delete-image. At least
// one of the fields must be set.
type DeleteImageRequest struct {
	Filename string `json:"filename" example:"1717171717171-look.jpg"`
	ID       string `json:"id" example:"0190a3c4-6e1f-7a2b-8c3d-4e5f60718293"`
}

// ReorderRequest is the request body for POST /portfolio/reorder.
type ReorderRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

func (r ReorderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.NotNil, validation.Each(validation.Required)),
	)
}

// PatchImageRequest is the request body for PATCH /portfolio/images/{id}.
// Absent members are left unchanged.
type PatchImageRequest struct {
	Title       *string `json:"title" example:"Autumn cover"`
	Description *string `json:"description" example:"Shot in Lisbon"`
	Category    *string `json:"category" example:"Editorial"`
	Collection  *string `json:"collection" example:"Vogue"`
	IsHero      *bool   `json:"isHero" example:"true"`
}

func (r PatchImageRequest) patch() lifecycle.ImagePatch {
	return lifecycle.ImagePatch{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Collection:  r.Collection,
		IsHero:      r.IsHero,
	}
}

// CollectionRequest is the request body for POST and DELETE /collections.
type CollectionRequest struct {
	Name     string `json:"name" example:"Vogue" validate:"required"`
	Category string `json:"category" example:"Editorial" validate:"required"`
}

func (r CollectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.By(notBlank("name"))),
		validation.Field(&r.Category, validation.By(notBlank("category"))),
	)
}

// CollectionResponse reports whether a collection operation changed anything.
type CollectionResponse struct {
	Success bool `json:"success" example:"true" validate:"required"`
	Changed bool `json:"changed" example:"true" validate:"required"`
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Success  bool           `json:"success" example:"true" validate:"required"`
	Filename string         `json:"filename" example:"1717171717171-look.jpg" validate:"required"`
	URL      string         `json:"url" example:"/uploads/1717171717171-look.jpg" validate:"required"`
	Image    *catalog.Image `json:"image" validate:"required"`
}

// ImageListResponse wraps a filtered image listing.
type ImageListResponse struct {
	Images []catalog.Image `json:"images" validate:"required"`
	Total  int             `json:"total" example:"12" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.Hit `json:"results" validate:"required"`
}

// check runs ozzo validation and folds failures into apperr.ErrValidation.
func check(v validation.Validatable) error {
	if err := v.Validate(); err != nil {
		return apperr.Validation("%v", err)
	}
	return nil
}

func notBlank(field string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return validation.NewError("validation_blank", field+" is required")
		}
		return nil
	}
}
