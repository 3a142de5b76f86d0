package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/utils"
)

// WebSocketAuthMiddleware takes the token from the ?token= query parameter.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set(ContextUserName, claims.UserName)
		c.Set(ContextAccountType, claims.AccountType)
		c.Next()
	}
}
