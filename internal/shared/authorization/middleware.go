package authorization

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/paybridge/internal/shared/constants"
)

// RequireAdmin rejects requests whose token role is not admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(constants.ContextKeyAdminRole)
		if role != string(RoleAdmin) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "admin access required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireTenantAccess checks the :tenantId path parameter against the token.
func RequireTenantAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := ParseRole(c.GetString(constants.ContextKeyAdminRole))
		tokenTenant := c.GetString(constants.ContextKeyAdminTenant)
		if !CanAccessTenant(role, tokenTenant, c.Param("tenantId")) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "tenant access denied",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
