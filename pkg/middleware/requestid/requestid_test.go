package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runThrough(t *testing.T, inbound string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		c.Request.Header.Set(headerKey, inbound)
	}
	Middleware()(c)
	return c, w
}

func TestMiddlewareAssignsUUID(t *testing.T) {
	c, w := runThrough(t, "")

	id := Value(c)
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, w.Header().Get(headerKey))
}

func TestMiddlewareKeepsInboundID(t *testing.T) {
	c, w := runThrough(t, "gateway-42")

	assert.Equal(t, "gateway-42", Value(c))
	assert.Equal(t, "gateway-42", w.Header().Get(headerKey))
}

func TestMiddlewareReplacesUnsafeInboundID(t *testing.T) {
	c, _ := runThrough(t, "bad id\nwith newline")

	id := Value(c)
	require.NotEmpty(t, id)
	assert.NotContains(t, id, "\n")
}
