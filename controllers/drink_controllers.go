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

type DrinkController struct {
	DB *gorm.DB
}

func NewDrinkController(db *gorm.DB) *DrinkController {
	return &DrinkController{DB: db}
}

type menuRow struct {
	ID           uint   `json:"id"`
	DrinkCode    string `json:"drink_code"`
	Name         string `json:"name"`
	IsActive     bool   `json:"is_active"`
	CategoryID   uint   `json:"category_id"`
	CategoryName string `json:"category_name"`
	TypeLabel    string `json:"type_label" gorm:"-"`
	PreStocked   bool   `json:"-"`
	HasRecipe    bool   `json:"-"`
}

// GetMenu -> every drink with its category and sellable variants
func (dc *DrinkController) GetMenu(c *gin.Context) {
	var rows []menuRow
	err := dc.DB.Table("drinks d").
		Select(`d.id, d.drink_code, d.name, d.is_active, d.category_id, c.name AS category_name,
			d.original_price > 0 AS pre_stocked,
			EXISTS (SELECT 1 FROM recipes r WHERE r.drink_id = d.id) AS has_recipe`).
		Joins("LEFT JOIN categories c ON c.id = d.category_id").
		Order("d.name").
		Scan(&rows).Error
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	for i := range rows {
		rows[i].TypeLabel = models.TypeLabel(rows[i].PreStocked, rows[i].HasRecipe)
	}
	utils.RespondJSON(c, http.StatusOK, "Menu", rows)
}

type drinkRequest struct {
	DrinkCode  string `json:"drink_code"`
	Name       string `json:"name" binding:"required"`
	CategoryID uint   `json:"category_id" binding:"required"`
	IsActive   *bool  `json:"is_active"`
}

// CreateDrink adds a drink with zero prices and stock. Pricing is set later
// through UpdateDrinkPricing or a recipe.
func (dc *DrinkController) CreateDrink(c *gin.Context) {
	var req drinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	req.DrinkCode = strings.ToUpper(strings.TrimSpace(req.DrinkCode))
	if req.DrinkCode == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("drink_code is required"))
		return
	}
	found, err := dc.categoryExists(req.CategoryID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !found {
		utils.RespondError(c, http.StatusBadRequest, errors.New("category not found"))
		return
	}
	taken, err := exists(dc.DB.Model(&models.Drink{}).Where("drink_code = ?", req.DrinkCode))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if taken {
		utils.RespondError(c, http.StatusConflict, errors.New("drink code already exists"))
		return
	}

	drink := models.Drink{
		DrinkCode:      req.DrinkCode,
		Name:           strings.TrimSpace(req.Name),
		CategoryID:     req.CategoryID,
		IsActive:       true,
		IsRecipeActive: true,
	}
	if err := dc.DB.Omit("Category").Create(&drink).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if req.IsActive != nil && !*req.IsActive {
		drink.IsActive = false
		if err := dc.DB.Model(&drink).Update("is_active", false).Error; err != nil {
			respondServiceError(c, err)
			return
		}
	}

	hub.BroadcastMessage(hub.Message{Event: hub.EventMenuUpdate, Data: drink})
	utils.InfoLogger.Printf("Drink created: %s %s", drink.DrinkCode, drink.Name)
	utils.RespondJSON(c, http.StatusCreated, "Drink created", drink)
}

func (dc *DrinkController) UpdateDrink(c *gin.Context) {
	id, ok := parseID(c, "drink_id")
	if !ok {
		return
	}
	var req drinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var drink models.Drink
	if err := dc.DB.First(&drink, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	found, err := dc.categoryExists(req.CategoryID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !found {
		utils.RespondError(c, http.StatusBadRequest, errors.New("category not found"))
		return
	}

	updates := map[string]interface{}{
		"name":        strings.TrimSpace(req.Name),
		"category_id": req.CategoryID,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := dc.DB.Model(&drink).Updates(updates).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	dc.DB.First(&drink, id)

	hub.BroadcastMessage(hub.Message{Event: hub.EventMenuUpdate, Data: drink})
	utils.RespondJSON(c, http.StatusOK, "Drink updated", drink)
}

// DeleteDrink -> refused once the drink has been on any bill
func (dc *DrinkController) DeleteDrink(c *gin.Context) {
	id, ok := parseID(c, "drink_id")
	if !ok {
		return
	}

	sold, err := exists(dc.DB.Model(&models.BillInfo{}).Where("drink_id = ?", id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if sold {
		utils.RespondError(c, http.StatusConflict, errors.New("drink appears on a bill"))
		return
	}

	err = dc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("drink_id = ?", id).Delete(&models.Recipe{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Drink{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	hub.BroadcastMessage(hub.Message{Event: hub.EventMenuUpdate, Data: gin.H{"deleted_drink_id": id}})
	utils.RespondJSON(c, http.StatusOK, "Drink deleted", gin.H{"id": id})
}

// GetStockedDrinks -> drinks sold pre-stocked (original price set)
func (dc *DrinkController) GetStockedDrinks(c *gin.Context) {
	var drinks []models.Drink
	if err := dc.DB.Where("original_price > 0").Order("name").Find(&drinks).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stocked drinks", drinks)
}

func (dc *DrinkController) UpdateDrinkPricing(c *gin.Context) {
	id, ok := parseID(c, "drink_id")
	if !ok {
		return
	}
	var req struct {
		OriginalPrice float64 `json:"original_price" binding:"min=0"`
		ActualPrice   float64 `json:"actual_price" binding:"min=0"`
		StockQuantity int     `json:"stock_quantity" binding:"min=0"`
		IsActive      *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var drink models.Drink
	if err := dc.DB.First(&drink, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	updates := map[string]interface{}{
		"original_price": req.OriginalPrice,
		"actual_price":   req.ActualPrice,
		"stock_quantity": req.StockQuantity,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := dc.DB.Model(&drink).Updates(updates).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	dc.DB.First(&drink, id)

	hub.BroadcastMessage(hub.Message{Event: hub.EventMenuUpdate, Data: drink})
	utils.InfoLogger.Printf("Drink %s priced at %s (stock=%d)", drink.DrinkCode, utils.FormatCurrency(drink.ActualPrice), drink.StockQuantity)
	utils.RespondJSON(c, http.StatusOK, "Drink pricing updated", drink)
}

func (dc *DrinkController) categoryExists(id uint) (bool, error) {
	return exists(dc.DB.Model(&models.Category{}).Where("id = ?", id))
}
