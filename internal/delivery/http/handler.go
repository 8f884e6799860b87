package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/readar/backend/internal/domain"
	"github.com/readar/backend/internal/infrastructure/logging"
	"github.com/readar/backend/internal/usecase"
)

// ExpectedStockHeader makes a listing update conditional on the stored stock
const ExpectedStockHeader = "X-Expected-Stock"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	listings       *usecase.ListingService
	imports        *usecase.ImportService
	maxUploadBytes int64
}

// NewHandler creates a new HTTP handler
func NewHandler(listings *usecase.ListingService, imports *usecase.ImportService, maxUploadBytes int64) *Handler {
	return &Handler{
		listings:       listings,
		imports:        imports,
		maxUploadBytes: maxUploadBytes,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "readar-backend",
		"version": "1.0.0",
	})
}

// ListMyBooks returns the authenticated seller's listings
func (h *Handler) ListMyBooks(c *gin.Context) {
	listings, err := h.listings.ListMine(c.Request.Context(), SellerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

// CreateBook creates a listing from a JSON body. Omitted stock and
// is_for_sale default to 1 and true.
func (h *Handler) CreateBook(c *gin.Context) {
	req := domain.NewListing{Stock: 1, IsForSale: true}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	listing, err := h.listings.Create(c.Request.Context(), SellerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// UpdateBook applies a partial update. An X-Expected-Stock header makes it
// conditional on the stock the client last saw.
func (h *Handler) UpdateBook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	var expectedStock *int
	if raw := strings.TrimSpace(c.GetHeader(ExpectedStockHeader)); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + ExpectedStockHeader + " header"})
			return
		}
		expectedStock = &v
	}

	var req domain.ListingUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	listing, err := h.listings.Update(c.Request.Context(), SellerID(c), id, req, expectedStock)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// ImportSpreadsheet runs a bulk import of the multipart field "file"
func (h *Handler) ImportSpreadsheet(c *gin.Context) {
	if h.imports == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "bulk import is not configured"})
		return
	}

	if c.Request.ContentLength > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	result, err := h.imports.Import(c.Request.Context(), SellerID(c), header.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// statusFor maps domain errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidListing),
		errors.Is(err, domain.ErrUnsupportedFile),
		errors.Is(err, domain.ErrInvalidFile),
		errors.Is(err, domain.ErrMissingColumns):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStockConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Internal errors are logged and hidden.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
