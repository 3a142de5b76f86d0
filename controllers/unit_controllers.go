package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
)

type UnitController struct {
	DB *gorm.DB
}

func NewUnitController(db *gorm.DB) *UnitController {
	return &UnitController{DB: db}
}

type unitRequest struct {
	Name         string `json:"name" binding:"required"`
	Abbreviation string `json:"abbreviation"`
	Description  string `json:"description"`
	IsActive     *bool  `json:"is_active"`
}

func (uc *UnitController) GetAllUnits(c *gin.Context) {
	var units []models.Unit
	if err := uc.DB.Order("name").Find(&units).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of units", units)
}

func (uc *UnitController) CreateUnit(c *gin.Context) {
	var req unitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	unit := models.Unit{Name: req.Name, Abbreviation: req.Abbreviation, Description: req.Description, IsActive: true}
	if err := uc.DB.Create(&unit).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if req.IsActive != nil && !*req.IsActive {
		unit.IsActive = false
		if err := uc.DB.Model(&unit).Update("is_active", false).Error; err != nil {
			respondServiceError(c, err)
			return
		}
	}
	utils.RespondJSON(c, http.StatusCreated, "Unit created", unit)
}

func (uc *UnitController) UpdateUnit(c *gin.Context) {
	id, ok := parseID(c, "unit_id")
	if !ok {
		return
	}
	var req unitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var unit models.Unit
	if err := uc.DB.First(&unit, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	updates := map[string]interface{}{
		"name":         req.Name,
		"abbreviation": req.Abbreviation,
		"description":  req.Description,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := uc.DB.Model(&unit).Updates(updates).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	uc.DB.First(&unit, id)
	utils.RespondJSON(c, http.StatusOK, "Unit updated", unit)
}

// DeleteUnit -> refused while a material is measured in it
func (uc *UnitController) DeleteUnit(c *gin.Context) {
	id, ok := parseID(c, "unit_id")
	if !ok {
		return
	}

	used, err := exists(uc.DB.Model(&models.Material{}).Where("unit_id = ?", id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if used {
		utils.RespondError(c, http.StatusBadRequest, errors.New("unit is used by a material"))
		return
	}

	res := uc.DB.Delete(&models.Unit{}, id)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("unit not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Unit deleted", gin.H{"id": id})
}
