package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-reservation/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "test:cache",
		MaxBodyBytes: 64,
	}
}

// cachedServer mounts a few routes behind the cache middlewares and counts
// how often each handler actually runs.
func cachedServer(cfg config.CacheConfig, rdb *redis.Client, calls *atomic.Int32) *echo.Echo {
	e := echo.New()
	e.Use(InvalidateCache(cfg, rdb), NewRedisCache(cfg, rdb))
	e.GET("/tables", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusOK, map[string]any{"data": []string{"Bar #1"}})
	})
	e.GET("/missing", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusNotFound, map[string]string{"error": "gone"})
	})
	e.GET("/big", func(c echo.Context) error {
		calls.Add(1)
		return c.String(http.StatusOK, strings.Repeat("x", 200))
	})
	e.POST("/tables", func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]any{"data": "ok"})
	})
	e.POST("/invalid", func(c echo.Context) error {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "table_name must exist"})
	})
	return e
}

func serveRec(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCacheMissThenHit(t *testing.T) {
	_, rdb := newRedis(t)
	var calls atomic.Int32
	e := cachedServer(cacheConfig(), rdb, &calls)

	first := serveRec(e, http.MethodGet, "/tables")
	if first.Code != http.StatusOK || first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first: %d %q", first.Code, first.Header().Get("X-Cache"))
	}
	second := serveRec(e, http.MethodGet, "/tables")
	if second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second: X-Cache %q", second.Header().Get("X-Cache"))
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("cached body %q, want %q", second.Body, first.Body)
	}
	if ct := second.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		t.Fatalf("cached content type %q", ct)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("handler ran %d times", n)
	}

	// a different query is a different entry
	if rec := serveRec(e, http.MethodGet, "/tables?x=1"); rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("query variant: X-Cache %q", rec.Header().Get("X-Cache"))
	}
}

func TestCacheSuccessfulWriteInvalidates(t *testing.T) {
	mr, rdb := newRedis(t)
	var calls atomic.Int32
	e := cachedServer(cacheConfig(), rdb, &calls)

	serveRec(e, http.MethodGet, "/tables")
	serveRec(e, http.MethodGet, "/tables?x=1")
	if n := len(mr.Keys()); n != 2 {
		t.Fatalf("%d keys cached", n)
	}
	if rec := serveRec(e, http.MethodPost, "/tables"); rec.Code != http.StatusCreated {
		t.Fatalf("post: %d", rec.Code)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("keys left after write: %v", keys)
	}
	if rec := serveRec(e, http.MethodGet, "/tables"); rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("after write: X-Cache %q", rec.Header().Get("X-Cache"))
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("handler ran %d times", n)
	}
}

func TestCacheFailedWriteKeepsEntries(t *testing.T) {
	mr, rdb := newRedis(t)
	var calls atomic.Int32
	e := cachedServer(cacheConfig(), rdb, &calls)

	serveRec(e, http.MethodGet, "/tables")
	if rec := serveRec(e, http.MethodPost, "/invalid"); rec.Code != http.StatusBadRequest {
		t.Fatalf("post: %d", rec.Code)
	}
	if n := len(mr.Keys()); n != 1 {
		t.Fatalf("%d keys after rejected write", n)
	}
	if rec := serveRec(e, http.MethodGet, "/tables"); rec.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("X-Cache %q", rec.Header().Get("X-Cache"))
	}
}

func TestCacheLeavesOtherPrefixesAlone(t *testing.T) {
	mr, rdb := newRedis(t)
	var calls atomic.Int32
	e := cachedServer(cacheConfig(), rdb, &calls)

	mr.Set("test:rl:ip:1", "x")
	serveRec(e, http.MethodGet, "/tables")
	serveRec(e, http.MethodPost, "/tables")
	if !mr.Exists("test:rl:ip:1") {
		t.Fatal("invalidation removed a key outside the cache prefix")
	}
}

func TestCacheSkipsErrorsAndLargeBodies(t *testing.T) {
	mr, rdb := newRedis(t)
	var calls atomic.Int32
	e := cachedServer(cacheConfig(), rdb, &calls)

	for _, target := range []string{"/missing", "/big"} {
		first := serveRec(e, http.MethodGet, target)
		second := serveRec(e, http.MethodGet, target)
		if second.Header().Get("X-Cache") != "MISS" {
			t.Fatalf("%s served from cache", target)
		}
		if second.Body.String() != first.Body.String() {
			t.Fatalf("%s body changed", target)
		}
	}
	if big := serveRec(e, http.MethodGet, "/big"); big.Body.Len() != 200 {
		t.Fatalf("truncated response sent to client: %d bytes", big.Body.Len())
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("unexpected keys %v", keys)
	}
	if n := calls.Load(); n != 5 {
		t.Fatalf("handler ran %d times", n)
	}
}

func TestCacheDisabledPassesThrough(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := cacheConfig()
	cfg.Enabled = false
	var calls atomic.Int32
	e := cachedServer(cfg, rdb, &calls)

	serveRec(e, http.MethodGet, "/tables")
	rec := serveRec(e, http.MethodGet, "/tables")
	if rec.Header().Get("X-Cache") != "" || calls.Load() != 2 || len(mr.Keys()) != 0 {
		t.Fatalf("cache active while disabled")
	}
}

func TestCaptureWriterTruncates(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	cw.Write([]byte("abc"))
	cw.Write([]byte("de"))
	cw.Write([]byte("f"))
	if !cw.truncated || cw.buf.String() != "abc" {
		t.Fatalf("truncated=%v buf=%q", cw.truncated, cw.buf.String())
	}
	if rec.Body.String() != "abcdef" {
		t.Fatalf("client got %q", rec.Body.String())
	}
}
