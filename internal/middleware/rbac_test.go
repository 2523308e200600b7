package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/haimph/transfer-approval-api/internal/models"
)

func TestRequireRolesAllowsListedRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/guarded", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: models.RoleLead})

	RequireRoles(models.RoleLead, models.RoleDataProcessor)(c)
	require.False(t, c.IsAborted())
}

func TestRequireRolesBlocksOtherRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/guarded", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: models.RoleSupervisor})

	RequireRoles(models.RoleLead)(c)
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesBlocksMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/guarded", nil)

	RequireRoles(models.RoleLead)(c)
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
