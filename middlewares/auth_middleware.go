package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserName    = "user_name"
	ContextAccountType = "account_type"
	ContextToken       = "token"
	ContextTokenExpiry = "token_expiry"
	ContextAccount     = "account"
)

// AuthMiddleware validates the bearer token and loads the account it names,
// so a deleted or demoted account loses access right away.
func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid token format"))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, err)
			c.Abort()
			return
		}

		var account models.Account
		if err := db.WithContext(c.Request.Context()).Where("user_name = ?", claims.UserName).Take(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondError(c, http.StatusUnauthorized, errors.New("account no longer exists"))
			} else {
				utils.ErrorLogger.Errorf("Error loading account %s: %v", claims.UserName, err)
				utils.RespondError(c, http.StatusInternalServerError, err)
			}
			c.Abort()
			return
		}

		c.Set(ContextUserName, account.UserName)
		c.Set(ContextAccountType, account.Type)
		c.Set(ContextAccount, account)
		c.Set(ContextToken, tokenString)
		if claims.ExpiresAt != nil {
			c.Set(ContextTokenExpiry, claims.ExpiresAt.Time)
		}
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextAccount)
		account, ok := value.(models.Account)
		if !exists || !ok {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
			c.Abort()
			return
		}
		if !account.IsAdmin() {
			utils.RespondError(c, http.StatusForbidden, errors.New("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
