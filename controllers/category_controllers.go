package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/hub"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
)

type CategoryController struct {
	DB *gorm.DB
}

func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{DB: db}
}

type categoryRequest struct {
	Name     string `json:"name" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

// GetAllCategories -> active categories, or all of them with ?all=1
func (cc *CategoryController) GetAllCategories(c *gin.Context) {
	q := cc.DB.Order("name")
	if c.Query("all") != "1" {
		q = q.Where("is_active = ?", true)
	}
	var categories []models.Category
	if err := q.Find(&categories).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of categories", categories)
}

func (cc *CategoryController) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category := models.Category{Name: strings.TrimSpace(req.Name), IsActive: true}
	taken, err := cc.nameTaken(category.Name, 0)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if taken {
		utils.RespondError(c, http.StatusConflict, errors.New("category name already exists"))
		return
	}
	if err := cc.DB.Create(&category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if req.IsActive != nil && !*req.IsActive {
		category.IsActive = false
		if err := cc.DB.Model(&category).Update("is_active", false).Error; err != nil {
			respondServiceError(c, err)
			return
		}
	}

	hub.BroadcastMessage(hub.Message{Event: hub.EventMenuUpdate, Data: gin.H{"category": category}})
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

func (cc *CategoryController) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "category_id")
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var category models.Category
	if err := cc.DB.First(&category, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	taken, err := cc.nameTaken(name, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if taken {
		utils.RespondError(c, http.StatusConflict, errors.New("category name already exists"))
		return
	}

	updates := map[string]interface{}{"name": name}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := cc.DB.Model(&category).Updates(updates).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	cc.DB.First(&category, id)

	hub.BroadcastMessage(hub.Message{Event: hub.EventMenuUpdate, Data: gin.H{"category": category}})
	utils.RespondJSON(c, http.StatusOK, "Category updated", category)
}

func (cc *CategoryController) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "category_id")
	if !ok {
		return
	}

	hasDrinks, err := exists(cc.DB.Model(&models.Drink{}).Where("category_id = ?", id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if hasDrinks {
		utils.RespondError(c, http.StatusConflict, errors.New("category still has drinks"))
		return
	}

	res := cc.DB.Delete(&models.Category{}, id)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("category not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category deleted", gin.H{"id": id})
}

func (cc *CategoryController) nameTaken(name string, exceptID uint) (bool, error) {
	return exists(cc.DB.Model(&models.Category{}).Where("name = ? AND id <> ?", name, exceptID))
}
