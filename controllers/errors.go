package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/middlewares"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/services"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
)

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

// respondServiceError maps service errors to status codes.
func respondServiceError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		code = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrEmptyBill),
		errors.Is(err, services.ErrDrinkNotSellable):
		code = http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientStock), errors.Is(err, services.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		code = http.StatusUnauthorized
	}
	if code == http.StatusInternalServerError {
		utils.ErrorLogger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		_ = c.Error(err)
	}
	utils.RespondError(c, code, err)
}

// exists reports whether q matches at least one row.
func exists(q *gorm.DB) (bool, error) {
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

func queryID(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(id), nil
}

func currentUser(c *gin.Context) (userName string, accountType int) {
	userName = c.GetString(middlewares.ContextUserName)
	accountType = c.GetInt(middlewares.ContextAccountType)
	return userName, accountType
}

func isAdmin(c *gin.Context) bool {
	_, accountType := currentUser(c)
	return accountType == models.AccountAdmin
}
