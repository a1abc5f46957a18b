package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/haierkeys/memory-server/pkg/app"
	"github.com/haierkeys/memory-server/pkg/limiter"
	"github.com/haierkeys/memory-server/pkg/validator"

	ut "github.com/go-playground/universal-translator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var res app.ErrorRes
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.Error.Code
}

func TestNoFound(t *testing.T) {
	r := gin.New()
	r.NoRoute(NoFound())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "API_NOT_FOUND", errorCode(t, w))
}

func TestRateLimiter(t *testing.T) {
	l := limiter.NewClientLimiter(limiter.BucketRule{FillInterval: time.Hour, Capacity: 2, Quantum: 1})
	r := gin.New()
	r.Use(RateLimiter(l))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", errorCode(t, w))
}

func TestTraceMiddleware(t *testing.T) {
	var fromCtx string
	r := gin.New()
	r.Use(TraceMiddleware(""))
	r.GET("/", func(c *gin.Context) {
		fromCtx = GetTraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultTraceIDHeader, "abc")
	w := serve(r, req)
	assert.Equal(t, "abc", w.Header().Get(DefaultTraceIDHeader))
	assert.Equal(t, "abc", fromCtx)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(DefaultTraceIDHeader))
}

func TestLangWithTranslator(t *testing.T) {
	v, err := validator.NewCustomValidator()
	require.NoError(t, err)

	var locale string
	r := gin.New()
	r.Use(LangWithTranslator(v.Translator()))
	r.GET("/", func(c *gin.Context) {
		trans, _ := c.Request.Context().Value(validator.TransKey).(ut.Translator)
		locale = trans.Locale()
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9")
	serve(r, req)
	assert.Equal(t, "ja", locale)

	serve(r, httptest.NewRequest(http.MethodGet, "/?lang=xx", nil))
	assert.Equal(t, "en", locale)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryWithLogger(zap.NewNop()))
	r.GET("/", func(c *gin.Context) { panic("secret detail") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestContextTimeout(t *testing.T) {
	var deadline bool
	r := gin.New()
	r.Use(ContextTimeout(time.Second))
	r.GET("/", func(c *gin.Context) {
		_, deadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})
	serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, deadline)

	_, ok := context.Background().Deadline()
	assert.False(t, ok)
}

func TestNormalizeLang(t *testing.T) {
	assert.Equal(t, "ja", normalizeLang("ja-JP,ja;q=0.9"))
	assert.Equal(t, "en", normalizeLang("EN_us"))
	assert.Equal(t, "", normalizeLang(""))
}
