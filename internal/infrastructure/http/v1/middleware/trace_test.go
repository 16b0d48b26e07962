package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "invoicebook/internal/core/context"
)

func traceRouter(seen **appctx.TraceContext) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Trace())
	r.GET("/", func(c *gin.Context) {
		*seen = appctx.GetTrace(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestTrace_GeneratesIDs(t *testing.T) {
	var tc *appctx.TraceContext
	rec := httptest.NewRecorder()
	traceRouter(&tc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, tc)
	assert.NotEmpty(t, tc.TraceID)
	assert.Len(t, tc.SpanID, 16)
	assert.NotEqual(t, tc.TraceID, tc.RequestID)
	assert.Equal(t, tc.RequestID, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, tc.TraceID, rec.Header().Get(HeaderTraceID))
}

func TestTrace_KeepsIncomingIDs(t *testing.T) {
	var tc *appctx.TraceContext
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	req.Header.Set(HeaderTraceID, "trace-1")

	rec := httptest.NewRecorder()
	traceRouter(&tc).ServeHTTP(rec, req)

	require.NotNil(t, tc)
	assert.Equal(t, "req-1", tc.RequestID)
	assert.Equal(t, "trace-1", tc.TraceID)
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
}
