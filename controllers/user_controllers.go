package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/middlewares"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/services"
	"github.com/yeremiapane/cafe-pos/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AccountController struct {
	DB *gorm.DB
}

func NewAccountController(db *gorm.DB) *AccountController {
	return &AccountController{DB: db}
}

type accountView struct {
	UserName    string `json:"user_name"`
	DisplayName string `json:"display_name"`
	Type        int    `json:"type"`
}

func viewOf(a models.Account) accountView {
	return accountView{UserName: a.UserName, DisplayName: a.DisplayName, Type: a.Type}
}

// Login -> returns the account and a JWT
func (ac *AccountController) Login(c *gin.Context) {
	var input struct {
		UserName string `json:"user_name"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	input.UserName = strings.TrimSpace(input.UserName)
	if input.UserName == "" || input.Password == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("user name and password are required"))
		return
	}

	var account models.Account
	if err := ac.DB.Where("user_name = ?", input.UserName).First(&account).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondServiceError(c, err)
			return
		}
		utils.InfoLogger.Printf("Failed login for %q", input.UserName)
		respondServiceError(c, services.ErrInvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(input.Password)); err != nil {
		utils.InfoLogger.Printf("Failed login for %q", input.UserName)
		respondServiceError(c, services.ErrInvalidCredentials)
		return
	}

	token, err := utils.GenerateToken(account.UserName, account.Type)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Login successful for %s (type=%d)", account.UserName, account.Type)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":   token,
		"account": viewOf(account),
	})
}

// Logout -> revokes the current token
func (ac *AccountController) Logout(c *gin.Context) {
	token := c.GetString(middlewares.ContextToken)
	expiry := time.Now().Add(utils.TokenTTL)
	if v, ok := c.Get(middlewares.ContextTokenExpiry); ok {
		if t, ok := v.(time.Time); ok {
			expiry = t
		}
	}
	utils.BlacklistToken(token, expiry)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

func (ac *AccountController) GetProfile(c *gin.Context) {
	userName, _ := currentUser(c)
	var account models.Account
	if err := ac.DB.Where("user_name = ?", userName).First(&account).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", viewOf(account))
}

// ChangePassword -> the logged-in account changes its own password
func (ac *AccountController) ChangePassword(c *gin.Context) {
	var input struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=4"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	userName, _ := currentUser(c)
	var account models.Account
	if err := ac.DB.Where("user_name = ?", userName).First(&account).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(input.OldPassword)); err != nil {
		respondServiceError(c, services.ErrInvalidCredentials)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if err := ac.DB.Model(&account).Update("password", string(hashed)).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Password changed", nil)
}

func (ac *AccountController) GetAllAccounts(c *gin.Context) {
	var accounts []models.Account
	if err := ac.DB.Order("type DESC, user_name").Find(&accounts).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, viewOf(a))
	}
	utils.RespondJSON(c, http.StatusOK, "All accounts", views)
}

func (ac *AccountController) CreateAccount(c *gin.Context) {
	var req struct {
		UserName    string `json:"user_name" binding:"required"`
		DisplayName string `json:"display_name" binding:"required"`
		Password    string `json:"password" binding:"required,min=4"`
		Type        int    `json:"type" binding:"oneof=0 1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	taken, err := exists(ac.DB.Model(&models.Account{}).Where("user_name = ?", req.UserName))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if taken {
		utils.RespondError(c, http.StatusConflict, errors.New("user name already exists"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	account := models.Account{
		UserName:    req.UserName,
		DisplayName: req.DisplayName,
		Password:    string(hashed),
		Type:        req.Type,
	}
	if err := ac.DB.Create(&account).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New account created: %s (type=%d)", account.UserName, account.Type)
	utils.RespondJSON(c, http.StatusCreated, "Account created", viewOf(account))
}

func (ac *AccountController) UpdateAccount(c *gin.Context) {
	userName := c.Param("user_name")
	var req struct {
		DisplayName *string `json:"display_name"`
		Type        *int    `json:"type" binding:"omitempty,oneof=0 1"`
		Password    *string `json:"password" binding:"omitempty,min=4"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var account models.Account
	if err := ac.DB.Where("user_name = ?", userName).First(&account).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		if strings.TrimSpace(*req.DisplayName) == "" {
			utils.RespondError(c, http.StatusBadRequest, errors.New("display name must not be empty"))
			return
		}
		updates["display_name"] = *req.DisplayName
	}
	if req.Type != nil {
		self, _ := currentUser(c)
		if self == userName && *req.Type != models.AccountAdmin {
			utils.RespondError(c, http.StatusBadRequest, errors.New("you cannot remove your own admin rights"))
			return
		}
		updates["type"] = *req.Type
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		updates["password"] = string(hashed)
	}
	if len(updates) == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("nothing to update"))
		return
	}

	if err := ac.DB.Model(&account).Updates(updates).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	ac.DB.Where("user_name = ?", userName).First(&account)
	utils.RespondJSON(c, http.StatusOK, "Account updated", viewOf(account))
}

func (ac *AccountController) DeleteAccount(c *gin.Context) {
	userName := c.Param("user_name")
	self, _ := currentUser(c)
	if self == userName {
		utils.RespondError(c, http.StatusBadRequest, errors.New("you cannot delete your own account"))
		return
	}

	res := ac.DB.Where("user_name = ?", userName).Delete(&models.Account{})
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("account not found"))
		return
	}

	utils.InfoLogger.Printf("Account %s deleted by %s", userName, self)
	utils.RespondJSON(c, http.StatusOK, "Account deleted", gin.H{"user_name": userName})
}
