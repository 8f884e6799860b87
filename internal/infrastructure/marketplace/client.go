package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/readar/backend/internal/domain"
)

const (
	maxAttempts      = 3
	maxErrorBodySize = 4 << 10
	userAgent        = "Readar/1.0"

	// ExpectedStockHeader carries the stock a conditional update was based on
	ExpectedStockHeader = "X-Expected-Stock"
)

// Client talks to the marketplace listing API on behalf of one seller
type Client struct {
	httpClient  *http.Client
	token       string
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
	logger      *slog.Logger
}

// NewClient creates a new marketplace API client. baseURL includes the /api
// prefix, e.g. http://localhost:8080/api.
func NewClient(token, baseURL string) *Client {
	// 10 requests per second with a burst of 20 keeps interactive use snappy
	// and bulk adjudication below the server's per-IP window
	limiter := rate.NewLimiter(rate.Limit(10), 20)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		token:       token,
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
		logger:      slog.Default(),
	}
}

// SetDebug toggles request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...any) {
	if c.debug {
		c.logger.Debug(fmt.Sprintf("[marketplace] "+format, args...))
	}
}

// exponentialBackoff returns the wait before retrying after attempt: 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// readLimitedBody reads at most limit bytes of body
func readLimitedBody(body io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, limit))
}

// retryable reports whether a GET should be retried after status
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// newRequest builds a request with the auth and client headers set
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do executes req once and decodes a 2xx JSON body into out
func (c *Client) do(req *http.Request, out any) error {
	if err := c.rateLimiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	c.debugLog("%s %s", req.Method, req.URL.Path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAPIFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := readLimitedBody(resp.Body, maxErrorBodySize)
		c.debugLog("%s %s -> %d %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
		return newAPIError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// sendJSON encodes payload and executes a single non-idempotent request
func (c *Client) sendJSON(ctx context.Context, method, path string, payload any, header http.Header, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	return c.do(req, out)
}

// ListMyBooks returns the authenticated seller's listings. Transient
// failures are retried up to three times.
func (c *Client) ListMyBooks(ctx context.Context) ([]domain.BookListing, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := c.newRequest(ctx, http.MethodGet, "/books/my/books", nil)
		if err != nil {
			return nil, err
		}

		var listings []domain.BookListing
		err = c.do(req, &listings)
		if err == nil {
			c.debugLog("fetched %d listings", len(listings))
			if listings == nil {
				listings = []domain.BookListing{}
			}
			return listings, nil
		}
		lastErr = err

		if !errors.Is(err, domain.ErrAPIFailure) {
			return nil, err
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !retryable(apiErr.StatusCode) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		c.debugLog("list attempt %d failed: %v", attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}

	return nil, lastErr
}

// CreateBook creates a new listing. Never retried.
func (c *Client) CreateBook(ctx context.Context, listing domain.NewListing) (domain.BookListing, error) {
	var created domain.BookListing
	if err := c.sendJSON(ctx, http.MethodPost, "/books/", listing, nil, &created); err != nil {
		return domain.BookListing{}, err
	}
	return created, nil
}

// UpdateBook sends a partial update. With expectedStock the server applies it
// only if the stored stock still equals that value. Never retried.
func (c *Client) UpdateBook(ctx context.Context, id int64, upd domain.ListingUpdate, expectedStock *int) (domain.BookListing, error) {
	header := http.Header{}
	if expectedStock != nil {
		header.Set(ExpectedStockHeader, strconv.Itoa(*expectedStock))
	}

	var updated domain.BookListing
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/books/%d", id), upd, header, &updated); err != nil {
		return domain.BookListing{}, err
	}
	return updated, nil
}

// ImportSpreadsheet uploads a csv or xlsx file as multipart field "file"
func (c *Client) ImportSpreadsheet(ctx context.Context, filename string, r io.Reader) (*domain.ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/books/import-excel", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result domain.ImportResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
