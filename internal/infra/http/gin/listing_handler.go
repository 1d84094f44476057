package ginserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rentline/internal/app/dto"
	listingssvc "rentline/internal/app/services/listings"
	domainlisting "rentline/internal/domain/listing"
)

type ListingHTTP interface {
	Create(c *gin.Context)
	Catalog(c *gin.Context)
	Get(c *gin.Context)
	Mine(c *gin.Context)
	UploadImages(c *gin.Context)
	Promote(c *gin.Context)
}

// ImageUploader stores binary content and returns a public URL.
type ImageUploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
}

type ListingHandler struct {
	Service *listingssvc.Service
	Uploads ImageUploader
	Logger  *slog.Logger
}

type createListingRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	PriceType    string   `json:"priceType"`
	City         string   `json:"city"`
	Address      string   `json:"address"`
	Lat          float64  `json:"latitude"`
	Lng          float64  `json:"longitude"`
	Rooms        int      `json:"rooms"`
	Area         int      `json:"area"`
	Amenities    []string `json:"amenities"`
	PropertyType string   `json:"propertyType"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email"`
	IsUrgent     bool     `json:"isUrgent"`
	Visibility   string   `json:"visibility"`
}

func (h ListingHandler) Create(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	created, err := h.Service.Create(c.Request.Context(), p.User.ID, domainlisting.CreateParams{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		PriceType:    req.PriceType,
		City:         req.City,
		Address:      req.Address,
		Lat:          req.Lat,
		Lng:          req.Lng,
		Rooms:        req.Rooms,
		Area:         req.Area,
		Amenities:    req.Amenities,
		PropertyType: req.PropertyType,
		ContactPhone: req.Phone,
		ContactEmail: req.Email,
		IsUrgent:     req.IsUrgent,
		Visibility:   req.Visibility,
	})
	if err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewListing(created))
}

func (h ListingHandler) Catalog(c *gin.Context) {
	items, err := h.Service.Catalog(c.Request.Context(), domainlisting.Filter{City: c.Query("city")})
	if err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListings(items))
}

func (h ListingHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}
	l, err := h.Service.ByID(c.Request.Context(), domainlisting.ID(id))
	if err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListing(l))
}

func (h ListingHandler) Mine(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	items, err := h.Service.ByOwner(c.Request.Context(), p.User.ID)
	if err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListings(items))
}

// UploadImages accepts a multipart form and stores each file through the
// configured uploader before attaching its URL to the listing.
func (h ListingHandler) UploadImages(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Uploads == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage unavailable"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no images provided"})
		return
	}
	uploaded := make([]dto.ListingImage, 0, len(files))
	for i, file := range files {
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
			return
		}
		key := fmt.Sprintf("properties/%d/%s-%s", id, uuid.NewString(), file.Filename)
		url, err := h.Uploads.Upload(c.Request.Context(), key, src, file.Size, file.Header.Get("Content-Type"))
		src.Close()
		if err != nil {
			if h.Logger != nil {
				h.Logger.Error("image upload failed", "listing_id", id, "error", err)
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
			return
		}
		img, err := h.Service.AttachImage(c.Request.Context(), p.User.ID, domainlisting.ID(id), url, i)
		if err != nil {
			h.respondListingError(c, err)
			return
		}
		uploaded = append(uploaded, dto.ListingImage{
			ID:        img.ID,
			ListingID: int64(img.ListingID),
			URL:       img.URL,
			Order:     img.Order,
		})
	}
	c.JSON(http.StatusCreated, gin.H{"images": uploaded})
}

// Promote puts a week-long promotion on one of the caller's listings.
func (h ListingHandler) Promote(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}
	until, err := h.Service.Promote(c.Request.Context(), p.User.ID, domainlisting.ID(id))
	if err != nil {
		h.respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PromotionResult{Message: "property promoted", ExpiresAt: until})
}

func (h ListingHandler) respondListingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainlisting.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
	case errors.Is(err, domainlisting.ErrTitleRequired),
		errors.Is(err, domainlisting.ErrAddressRequired),
		errors.Is(err, domainlisting.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domainlisting.ErrAlreadyPromoted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, listingssvc.ErrPlanLimitReached):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("listing operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ ListingHTTP = (*ListingHandler)(nil)
