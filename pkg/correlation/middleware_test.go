package correlation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

func testEngine(cfg Config, logger *Logger, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Middleware(NewExtractor(cfg), logger))
	router.GET("/test", handler)
	router.POST("/test", handler)

	return router
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func TestMiddlewareEchoesInboundID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLogger(zap.New(core))

	router := testEngine(NewConfig(), logger, func(c *gin.Context) {
		logger.Info(c.Request.Context(), "handling")
		okHandler(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Correlation-Id", "abc-123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get("X-Correlation-Id"))

	for _, entry := range logs.All() {
		assert.Contains(t, entry.Message, "abc-123")
	}

	assert.NotZero(t, logs.Len())
}

func TestMiddlewareGeneratesID(t *testing.T) {
	router := testEngine(NewConfig(), nil, okHandler)

	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/test", nil))

	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/test", nil))

	id1 := w1.Header().Get("X-Correlation-Id")
	id2 := w2.Header().Get("X-Correlation-Id")

	_, err := uuid.Parse(id1)
	assert.NoError(t, err, "generated id should be a canonical uuid")
	assert.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2, "sequential requests get distinct ids")
}

func TestMiddlewareAutoGenerateDisabled(t *testing.T) {
	var sawID bool

	router := testEngine(NewConfig(WithAutoGenerate(false)), nil, func(c *gin.Context) {
		_, sawID = ID(c.Request.Context())
		okHandler(c)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Empty(t, w.Header().Get("X-Correlation-Id"))
	assert.False(t, sawID, "carrier should be unset without inbound header")
}

func TestMiddlewareAdditionalHeaders(t *testing.T) {
	cfg := NewConfig(
		WithAdditionalHeaders("X-Event-Id"),
		WithAdditionalResponseHeaders(true),
	)

	var captured string

	e := NewExtractor(cfg)

	router := testEngine(cfg, nil, func(c *gin.Context) {
		captured, _ = e.HeaderValue(c.Request.Context(), "X-Event-Id")
		okHandler(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Event-Id", "evt-42")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "evt-42", captured)
	assert.Equal(t, "evt-42", w.Header().Get("X-Event-Id"))
}

func TestMiddlewareErrorStillCarriesID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLogger(zap.New(core))

	router := testEngine(NewConfig(), logger, func(c *gin.Context) {
		_ = c.Error(errors.New("boom")) //nolint:errcheck
		c.AbortWithStatus(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Correlation-Id", "abc-123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get("X-Correlation-Id"))

	errLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	assert.Len(t, errLogs, 1)
	assert.Contains(t, errLogs[0].Message, "abc-123")
}

func TestMiddlewarePanicLoggedWithCorrelation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLogger(zap.New(core))

	router := gin.New()
	// recovery sits above the correlation middleware, as in the server
	router.Use(gin.Recovery())
	router.Use(Middleware(NewExtractor(NewConfig()), logger))
	router.GET("/test", func(_ *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Correlation-Id", "abc-123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get("X-Correlation-Id"))

	entries := logs.FilterMessageSnippet("request panicked").All()
	assert.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "abc-123")
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestMiddlewareSequentialOperations(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLogger(zap.New(core))

	router := testEngine(NewConfig(), logger, func(c *gin.Context) {
		ctx := c.Request.Context()

		for _, op := range []string{"validate", "store", "notify"} {
			logger.Debug(ctx, op)
		}

		logger.Info(ctx, "done")
		okHandler(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set("X-Correlation-Id", "abc-123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get("X-Correlation-Id"))

	entries := logs.All()
	assert.GreaterOrEqual(t, len(entries), 4)

	for _, entry := range entries {
		assert.Contains(t, entry.Message, "abc-123")
	}
}

func TestMiddlewareFanOut(t *testing.T) {
	router := testEngine(NewConfig(), nil, func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			mu  sync.Mutex
			ids []string
		)

		group, gctx := errgroup.WithContext(ctx)

		for i := 0; i < 3; i++ {
			group.Go(func() error {
				id, ok := ID(gctx)
				if !ok {
					return errors.New("branch lost correlation id")
				}

				mu.Lock()
				ids = append(ids, id)
				mu.Unlock()

				return nil
			})
		}

		if err := group.Wait(); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		want, _ := ID(ctx)
		for _, id := range ids {
			assert.Equal(t, want, id, "every branch sees the parent id")
		}

		okHandler(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Correlation-Id", "fan-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareConcurrentRequestIsolation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLogger(zap.New(core))

	router := testEngine(NewConfig(), logger, func(c *gin.Context) {
		ctx := c.Request.Context()

		logger.Info(ctx, "processing", zap.String("inbound", c.GetHeader("X-Correlation-Id")))

		okHandler(c)
	})

	var wg sync.WaitGroup

	ids := []string{"req-1", "req-2", "req-3", "req-4", "req-5"}

	for _, id := range ids {
		wg.Add(1)

		go func(id string) {
			defer wg.Done()

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("X-Correlation-Id", id)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, id, w.Header().Get("X-Correlation-Id"))
		}(id)
	}

	wg.Wait()

	// every record's correlation field matches the request it belongs to
	for _, entry := range logs.FilterLevelExact(zapcore.InfoLevel).All() {
		var logged, inbound string

		for _, f := range entry.Context {
			switch f.Key {
			case IDLogField:
				logged = f.String
			case "inbound":
				inbound = f.String
			}
		}

		assert.Equal(t, inbound, logged)
	}
}

func TestMiddlewareContextKey(t *testing.T) {
	var fromGin string

	router := testEngine(NewConfig(), nil, func(c *gin.Context) {
		fromGin = c.GetString(ContextKey)
		okHandler(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Correlation-Id", "abc-123")

	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "abc-123", fromGin)
}

func TestMiddlewareDoesNotClobberExistingContext(t *testing.T) {
	// a value placed on the base context by an outer middleware survives
	gin.SetMode(gin.TestMode)

	router := gin.New()

	type outerKey struct{}

	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), outerKey{}, "outer"))
		c.Next()
	})
	router.Use(Middleware(NewExtractor(NewConfig()), nil))
	router.GET("/test", func(c *gin.Context) {
		assert.Equal(t, "outer", c.Request.Context().Value(outerKey{}))
		okHandler(c)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
}
