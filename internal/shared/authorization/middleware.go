package authorization

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/offramp/internal/shared/constants"
	"github.com/orris-inc/offramp/internal/shared/utils"
)

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserRole(c.GetString(constants.ContextKeyUserRole)) != RoleAdmin {
			utils.ErrorResponse(c, http.StatusForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Subject returns the authenticated subject set by the auth middleware.
func Subject(c *gin.Context) string {
	return c.GetString(constants.ContextKeySubject)
}

func Role(c *gin.Context) UserRole {
	return ParseUserRole(c.GetString(constants.ContextKeyUserRole))
}
