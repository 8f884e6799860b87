package marketplace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readar/backend/internal/domain"
)

func TestNewClient(t *testing.T) {
	client := NewClient("test-token", "https://api.example.com/api/")

	assert.NotNil(t, client)
	assert.Equal(t, "test-token", client.token)
	assert.Equal(t, "https://api.example.com/api", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestSetDebug(t *testing.T) {
	client := NewClient("test-token", "https://api.example.com")

	client.SetDebug(true)
	assert.True(t, client.debug)

	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestListMyBooks_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/books/my/books", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]domain.BookListing{
			{ID: 7, Title: "Dune", Stock: 2},
			{ID: 8, Title: "Emma", Stock: 1},
		})
	}))
	defer server.Close()

	client := NewClient("test-token", server.URL+"/api")
	listings, err := client.ListMyBooks(context.Background())

	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, int64(7), listings[0].ID)
	assert.Equal(t, 2, listings[0].Stock)
}

func TestListMyBooks_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer server.Close()

	listings, err := NewClient("", server.URL).ListMyBooks(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, listings)
	assert.Empty(t, listings)
}

func TestListMyBooks_ServerError_Retries(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]domain.BookListing{{ID: 1, Title: "Dune"}})
	}))
	defer server.Close()

	listings, err := NewClient("t", server.URL).ListMyBooks(context.Background())

	require.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestListMyBooks_TooManyRequests_Retries(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode([]domain.BookListing{})
	}))
	defer server.Close()

	_, err := NewClient("t", server.URL).ListMyBooks(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestListMyBooks_ClientError_NoRetry(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"missing bearer token"}`))
	}))
	defer server.Close()

	listings, err := NewClient("", server.URL).ListMyBooks(context.Background())

	assert.Nil(t, listings)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAPIFailure)
	assert.Contains(t, err.Error(), "missing bearer token")
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestListMyBooks_AllRetriesFail(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient("t", server.URL).ListMyBooks(context.Background())

	assert.ErrorIs(t, err, domain.ErrAPIFailure)
	assert.Equal(t, int32(maxAttempts), atomic.LoadInt32(&attempts))
}

func TestListMyBooks_InvalidJSON(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	_, err := NewClient("t", server.URL).ListMyBooks(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestListMyBooks_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	listings, err := NewClient("t", server.URL).ListMyBooks(ctx)

	assert.Nil(t, listings)
	assert.Error(t, err)
}

func TestListMyBooks_RequestCreationError(t *testing.T) {
	_, err := NewClient("t", "://invalid-url").ListMyBooks(context.Background())
	assert.Error(t, err)
}

func TestCreateBook(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload domain.NewListing
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Foundation", payload.Title)
		assert.Equal(t, 2, payload.Stock)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.BookListing{ID: 11, Title: payload.Title, Stock: payload.Stock})
	}))
	defer server.Close()

	created, err := NewClient("t", server.URL).CreateBook(context.Background(), domain.NewListing{Title: "Foundation", Price: 8, Stock: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestCreateBook_ServerError_NoRetry(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient("t", server.URL).CreateBook(context.Background(), domain.NewListing{Title: "Dune"})

	assert.ErrorIs(t, err, domain.ErrAPIFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestUpdateBook(t *testing.T) {
	t.Run("sends only set fields and the expected stock", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/books/7", r.URL.Path)
			assert.Equal(t, "2", r.Header.Get(ExpectedStockHeader))

			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"stock":5}`, string(body))

			json.NewEncoder(w).Encode(domain.BookListing{ID: 7, Title: "Dune", Stock: 5})
		}))
		defer server.Close()

		stock, expected := 5, 2
		updated, err := NewClient("t", server.URL).UpdateBook(context.Background(), 7, domain.ListingUpdate{Stock: &stock}, &expected)

		require.NoError(t, err)
		assert.Equal(t, 5, updated.Stock)
	})

	t.Run("no expected stock header when unconditional", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get(ExpectedStockHeader))
			json.NewEncoder(w).Encode(domain.BookListing{ID: 7})
		}))
		defer server.Close()

		stock := 1
		_, err := NewClient("t", server.URL).UpdateBook(context.Background(), 7, domain.ListingUpdate{Stock: &stock}, nil)
		require.NoError(t, err)
	})

	t.Run("maps statuses to domain errors", func(t *testing.T) {
		tests := []struct {
			status int
			want   error
		}{
			{http.StatusNotFound, domain.ErrListingNotFound},
			{http.StatusConflict, domain.ErrStockConflict},
			{http.StatusForbidden, domain.ErrAPIFailure},
			{http.StatusInternalServerError, domain.ErrAPIFailure},
		}

		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					w.Write([]byte(`{"error":"nope"}`))
				}))
				defer server.Close()

				stock := 1
				_, err := NewClient("t", server.URL).UpdateBook(context.Background(), 7, domain.ListingUpdate{Stock: &stock}, nil)
				assert.ErrorIs(t, err, tt.want)
			})
		}
	})
}

func TestImportSpreadsheet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books/import-excel", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		assert.Equal(t, "stock.csv", header.Filename)
		content, _ := io.ReadAll(file)
		assert.Equal(t, "title,price\nDune,5\n", string(content))

		json.NewEncoder(w).Encode(domain.ImportResult{
			BatchID: "b-1",
			Created: 1,
			Errors:  []domain.ImportError{},
			Matches: []domain.SuggestedMatch{},
		})
	}))
	defer server.Close()

	result, err := NewClient("t", server.URL).ImportSpreadsheet(context.Background(), "/tmp/stock.csv", strings.NewReader("title,price\nDune,5\n"))

	require.NoError(t, err)
	assert.Equal(t, "b-1", result.BatchID)
	assert.Equal(t, 1, result.Created)
}

func TestDebugLog(t *testing.T) {
	client := NewClient("t", "https://api.example.com")

	client.debug = false
	client.debugLog("test message %s", "arg")

	client.debug = true
	client.debugLog("test message %s", "arg")
}

func TestReadLimitedBody(t *testing.T) {
	t.Run("reads within limit", func(t *testing.T) {
		body, err := readLimitedBody(strings.NewReader("short content"), 1000)
		require.NoError(t, err)
		assert.Equal(t, "short content", string(body))
	})

	t.Run("truncates beyond limit", func(t *testing.T) {
		body, err := readLimitedBody(strings.NewReader(strings.Repeat("0123456789", 100)), 100)
		require.NoError(t, err)
		assert.Len(t, body, 100)
	})
}
