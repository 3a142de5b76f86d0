package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
)

type MaterialController struct {
	DB *gorm.DB
}

func NewMaterialController(db *gorm.DB) *MaterialController {
	return &MaterialController{DB: db}
}

type materialRequest struct {
	Name     string  `json:"name" binding:"required"`
	UnitID   uint    `json:"unit_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"min=0"`
	Price    float64 `json:"price" binding:"min=0"`
	IsActive *bool   `json:"is_active"`
}

// GetAllMaterials -> materials with their unit
func (mc *MaterialController) GetAllMaterials(c *gin.Context) {
	var materials []models.Material
	if err := mc.DB.Preload("Unit").Order("name").Find(&materials).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of materials", materials)
}

func (mc *MaterialController) CreateMaterial(c *gin.Context) {
	var req materialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	found, err := mc.unitExists(req.UnitID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !found {
		utils.RespondError(c, http.StatusBadRequest, errors.New("unit not found"))
		return
	}

	material := models.Material{
		Name:     strings.TrimSpace(req.Name),
		UnitID:   req.UnitID,
		Quantity: req.Quantity,
		Price:    req.Price,
		IsActive: true,
	}
	if err := mc.DB.Omit("Unit").Create(&material).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if req.IsActive != nil && !*req.IsActive {
		if err := mc.DB.Model(&material).Update("is_active", false).Error; err != nil {
			respondServiceError(c, err)
			return
		}
	}
	mc.DB.Preload("Unit").First(&material, material.ID)

	utils.InfoLogger.Printf("Material created: %s", material.Name)
	utils.RespondJSON(c, http.StatusCreated, "Material created", material)
}

func (mc *MaterialController) UpdateMaterial(c *gin.Context) {
	id, ok := parseID(c, "material_id")
	if !ok {
		return
	}
	var req materialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var material models.Material
	if err := mc.DB.First(&material, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	found, err := mc.unitExists(req.UnitID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !found {
		utils.RespondError(c, http.StatusBadRequest, errors.New("unit not found"))
		return
	}

	updates := map[string]interface{}{
		"name":     strings.TrimSpace(req.Name),
		"unit_id":  req.UnitID,
		"quantity": req.Quantity,
		"price":    req.Price,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := mc.DB.Model(&material).Updates(updates).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	mc.DB.Preload("Unit").First(&material, id)
	utils.RespondJSON(c, http.StatusOK, "Material updated", material)
}

// RestockMaterial adds a delivered quantity on top of the current stock.
func (mc *MaterialController) RestockMaterial(c *gin.Context) {
	id, ok := parseID(c, "material_id")
	if !ok {
		return
	}
	var req struct {
		Quantity float64 `json:"quantity" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	res := mc.DB.Model(&models.Material{}).Where("id = ?", id).
		Update("quantity", gorm.Expr("quantity + ?", req.Quantity))
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("material not found"))
		return
	}

	var material models.Material
	mc.DB.Preload("Unit").First(&material, id)
	utils.InfoLogger.Printf("Material %d restocked by %.3f", id, req.Quantity)
	utils.RespondJSON(c, http.StatusOK, "Material restocked", material)
}

func (mc *MaterialController) DeleteMaterial(c *gin.Context) {
	id, ok := parseID(c, "material_id")
	if !ok {
		return
	}

	used, err := exists(mc.DB.Model(&models.Recipe{}).Where("material_id = ?", id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if used {
		utils.RespondError(c, http.StatusConflict, errors.New("material is used in a recipe"))
		return
	}

	res := mc.DB.Delete(&models.Material{}, id)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("material not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Material deleted", gin.H{"id": id})
}

func (mc *MaterialController) unitExists(id uint) (bool, error) {
	return exists(mc.DB.Model(&models.Unit{}).Where("id = ?", id))
}
