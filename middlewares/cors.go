package middlewares

import "github.com/gin-gonic/gin"

// CORSMiddlewares allows the POS front end at origin ("*" for any).
func CORSMiddlewares(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed := origin
		if origin == "*" {
			if reqOrigin := c.GetHeader("Origin"); reqOrigin != "" {
				allowed = reqOrigin
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowed)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, Sec-WebSocket-Protocol, Sec-WebSocket-Version, Sec-WebSocket-Key, Upgrade")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
