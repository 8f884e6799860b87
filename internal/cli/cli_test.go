package cli

import (
	"bytes"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readar/backend/config"
	httpDelivery "github.com/readar/backend/internal/delivery/http"
	"github.com/readar/backend/internal/domain"
	"github.com/readar/backend/internal/infrastructure/store"
	"github.com/readar/backend/internal/usecase"
)

const testSecret = "cli-test-secret"

type testAPI struct {
	url   string
	store *store.MemoryStore
}

// newTestAPI serves the real router over an in-memory store
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	memory := store.NewMemoryStore()
	listings := usecase.NewListingService(memory)
	matcher := usecase.NewMatchingService(usecase.MatchConfig{})
	imports := usecase.NewImportService(listings, matcher, nil, usecase.ImportServiceConfig{})

	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "test", MaxUploadBytes: 1 << 20},
		Auth:   config.AuthConfig{JWTSecret: testSecret},
	}
	router := httpDelivery.SetupRouter(cfg, httpDelivery.NewHandler(listings, imports, cfg.Server.MaxUploadBytes), nil)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testAPI{url: srv.URL + "/api", store: memory}
}

func (a *testAPI) seed(t *testing.T, sellerID int64, title string, stock int) domain.BookListing {
	t.Helper()
	l, err := a.store.Create(t.Context(), sellerID, domain.NewListing{
		Title: title, Price: 9.99, Stock: stock, Status: domain.StatusInStock, IsForSale: true,
	})
	require.NoError(t, err)
	return l
}

func sellerToken(t *testing.T, sellerID int64) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(sellerID, 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// scriptedInput returns one line per Read and runs before(i) ahead of line i
type scriptedInput struct {
	lines  []string
	next   int
	before func(i int)
}

func (s *scriptedInput) Read(p []byte) (int, error) {
	if s.next >= len(s.lines) {
		return 0, io.EOF
	}
	if s.before != nil {
		s.before(s.next)
	}
	n := copy(p, s.lines[s.next]+"\n")
	s.next++
	return n, nil
}

func lines(answers ...string) *scriptedInput {
	return &scriptedInput{lines: answers}
}

func runCLI(t *testing.T, api *testAPI, sellerID int64, in io.Reader, args ...string) (string, error) {
	t.Helper()
	t.Setenv("READAR_API_URL", "")
	t.Setenv("READAR_TOKEN", "")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if in == nil {
		in = strings.NewReader("")
	}
	cmd.SetIn(in)
	cmd.SetArgs(append([]string{"--api-url", api.url, "--token", sellerToken(t, sellerID)}, args...))

	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestStockCommand(t *testing.T) {
	t.Run("prints only the seller's listings", func(t *testing.T) {
		api := newTestAPI(t)
		api.seed(t, 1, "Dune", 2)
		api.seed(t, 2, "Emma", 1)
		api.seed(t, 1, "Foundation", 4)

		out, err := runCLI(t, api, 1, nil, "stock")
		require.NoError(t, err)
		assert.Contains(t, out, "TITLE")
		assert.Contains(t, out, "Dune")
		assert.Contains(t, out, "Foundation")
		assert.NotContains(t, out, "Emma")
	})

	t.Run("empty inventory", func(t *testing.T) {
		api := newTestAPI(t)

		out, err := runCLI(t, api, 1, nil, "stock")
		require.NoError(t, err)
		assert.Contains(t, out, "No listings yet.")
	})

	t.Run("reads settings from the environment", func(t *testing.T) {
		api := newTestAPI(t)
		api.seed(t, 1, "Dune", 2)

		t.Setenv("READAR_API_URL", api.url)
		t.Setenv("READAR_TOKEN", sellerToken(t, 1))

		cmd := NewRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"stock"})

		require.NoError(t, cmd.ExecuteContext(t.Context()))
		assert.Contains(t, out.String(), "Dune")
	})

	t.Run("requires a token", func(t *testing.T) {
		t.Setenv("READAR_TOKEN", "")

		cmd := NewRootCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"stock"})

		err := cmd.ExecuteContext(t.Context())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token")
	})

	t.Run("rejected token", func(t *testing.T) {
		api := newTestAPI(t)

		cmd := NewRootCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"--api-url", api.url, "--token", "not-a-jwt", "stock"})

		err := cmd.ExecuteContext(t.Context())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAPIFailure)
	})
}

func TestAddCommand(t *testing.T) {
	t.Run("creates directly when nothing matches", func(t *testing.T) {
		api := newTestAPI(t)
		api.seed(t, 1, "Dune", 2)

		out, err := runCLI(t, api, 1, nil, "add", "--title", "Foundation", "--author", "Isaac Asimov", "--price", "8", "--stock", "3")
		require.NoError(t, err)
		assert.Contains(t, out, `Created #2 "Foundation" with stock 3.`)
		assert.NotContains(t, out, "looks like")
		assert.Equal(t, 2, api.store.Size())
	})

	t.Run("merge adds to the existing stock", func(t *testing.T) {
		api := newTestAPI(t)
		dune := api.seed(t, 1, "Dune", 2)

		out, err := runCLI(t, api, 1, lines("m"), "add", "--title", "dune", "--price", "9", "--stock", "5")
		require.NoError(t, err)
		assert.Contains(t, out, "current stock: 2, adding: 5")
		assert.Contains(t, out, "stock is now 7")

		got, err := api.store.Get(t.Context(), dune.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Stock)
		assert.Equal(t, 1, api.store.Size())
	})

	t.Run("create separate keeps the existing listing", func(t *testing.T) {
		api := newTestAPI(t)
		dune := api.seed(t, 1, "Dune", 2)

		out, err := runCLI(t, api, 1, lines("c"), "add", "--title", "Dune", "--price", "9")
		require.NoError(t, err)
		assert.Contains(t, out, "Created #2")

		got, _ := api.store.Get(t.Context(), dune.ID)
		assert.Equal(t, 2, got.Stock)
		assert.Equal(t, 2, api.store.Size())
	})

	t.Run("cancel changes nothing", func(t *testing.T) {
		api := newTestAPI(t)
		dune := api.seed(t, 1, "Dune", 2)

		out, err := runCLI(t, api, 1, lines("x"), "add", "--title", "Dune", "--price", "9")
		require.NoError(t, err)
		assert.Contains(t, out, "Cancelled")

		got, _ := api.store.Get(t.Context(), dune.ID)
		assert.Equal(t, 2, got.Stock)
		assert.Equal(t, 1, api.store.Size())
	})

	t.Run("end of input cancels", func(t *testing.T) {
		api := newTestAPI(t)
		api.seed(t, 1, "Dune", 2)

		out, err := runCLI(t, api, 1, nil, "add", "--title", "Dune", "--price", "9")
		require.NoError(t, err)
		assert.Contains(t, out, "Cancelled")
		assert.Equal(t, 1, api.store.Size())
	})

	t.Run("unknown answers are asked again", func(t *testing.T) {
		api := newTestAPI(t)
		dune := api.seed(t, 1, "Dune", 2)

		out, err := runCLI(t, api, 1, lines("maybe", "m"), "add", "--title", "Dune", "--price", "9", "--stock", "abc")
		require.NoError(t, err)
		assert.Contains(t, out, "Please answer one of m, c, x.")

		got, _ := api.store.Get(t.Context(), dune.ID)
		assert.Equal(t, 3, got.Stock)
	})

	t.Run("concurrent stock change asks again with fresh stock", func(t *testing.T) {
		api := newTestAPI(t)
		dune := api.seed(t, 1, "Dune", 2)

		in := lines("m", "m")
		in.before = func(i int) {
			if i == 0 {
				stock := 3
				_, err := api.store.Update(t.Context(), dune.ID, domain.ListingUpdate{Stock: &stock}, nil)
				require.NoError(t, err)
			}
		}

		out, err := runCLI(t, api, 1, in, "add", "--title", "Dune", "--price", "9", "--stock", "5")
		require.NoError(t, err)
		assert.Contains(t, out, "stock changed since it was read")
		assert.Contains(t, out, "current stock: 3, adding: 5")

		got, _ := api.store.Get(t.Context(), dune.ID)
		assert.Equal(t, 8, got.Stock)
	})

	t.Run("invalid listing is reported", func(t *testing.T) {
		api := newTestAPI(t)

		_, err := runCLI(t, api, 1, nil, "add", "--title", "Dune", "--price=-4")
		require.Error(t, err)
		assert.Equal(t, 0, api.store.Size())
	})

	t.Run("title and price are required", func(t *testing.T) {
		api := newTestAPI(t)

		_, err := runCLI(t, api, 1, nil, "add", "--title", "Dune")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "price")
	})
}

func writeSheet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stock.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImportCommand(t *testing.T) {
	const sheet = "title,price,stock\nDune,9,3\nFoundation,8,\n,5,\n"

	t.Run("merges a suggested match", func(t *testing.T) {
		api := newTestAPI(t)
		dune := api.seed(t, 1, "Dune", 2)

		out, err := runCLI(t, api, 1, lines("m"), "import", writeSheet(t, sheet))
		require.NoError(t, err)
		assert.Contains(t, out, "1 created, 1 rejected, 1 possible duplicates")
		assert.Contains(t, out, "row 4: missing required field: title")
		assert.Contains(t, out, "stock is now 5")
		assert.Contains(t, out, "Resolved: 1 merged, 0 created, 0 skipped.")

		got, _ := api.store.Get(t.Context(), dune.ID)
		assert.Equal(t, 5, got.Stock)
		assert.Equal(t, 2, api.store.Size())
	})

	t.Run("creates a suggested match separately", func(t *testing.T) {
		api := newTestAPI(t)
		api.seed(t, 1, "Dune", 2)

		out, err := runCLI(t, api, 1, lines("c"), "import", writeSheet(t, sheet))
		require.NoError(t, err)
		assert.Contains(t, out, "Resolved: 0 merged, 1 created, 0 skipped.")
		assert.Equal(t, 3, api.store.Size())
	})

	t.Run("skipped and unanswered rows stay untouched", func(t *testing.T) {
		api := newTestAPI(t)
		dune := api.seed(t, 1, "Dune", 2)

		out, err := runCLI(t, api, 1, nil, "import", writeSheet(t, sheet))
		require.NoError(t, err)
		assert.Contains(t, out, "Resolved: 0 merged, 0 created, 1 skipped.")

		got, _ := api.store.Get(t.Context(), dune.ID)
		assert.Equal(t, 2, got.Stock)
	})

	t.Run("stock changed during import asks again", func(t *testing.T) {
		api := newTestAPI(t)
		dune := api.seed(t, 1, "Dune", 2)

		in := lines("m", "m")
		in.before = func(i int) {
			if i == 0 {
				stock := 10
				_, err := api.store.Update(t.Context(), dune.ID, domain.ListingUpdate{Stock: &stock}, nil)
				require.NoError(t, err)
			}
		}

		out, err := runCLI(t, api, 1, in, "import", writeSheet(t, sheet))
		require.NoError(t, err)
		assert.Contains(t, out, "stock changed since the import")
		assert.Contains(t, out, "(stock 10,")

		got, _ := api.store.Get(t.Context(), dune.ID)
		assert.Equal(t, 13, got.Stock)
	})

	t.Run("rejected sheet", func(t *testing.T) {
		api := newTestAPI(t)

		_, err := runCLI(t, api, 1, nil, "import", writeSheet(t, "title,author\nDune,Herbert\n"))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAPIFailure)
	})

	t.Run("missing file", func(t *testing.T) {
		api := newTestAPI(t)

		_, err := runCLI(t, api, 1, nil, "import", filepath.Join(t.TempDir(), "nope.csv"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open sheet")
	})
}
