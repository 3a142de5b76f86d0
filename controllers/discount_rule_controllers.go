package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/services"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
)

type DiscountRuleController struct {
	DB      *gorm.DB
	Loyalty *services.LoyaltyService
}

func NewDiscountRuleController(db *gorm.DB, loyalty *services.LoyaltyService) *DiscountRuleController {
	return &DiscountRuleController{DB: db, Loyalty: loyalty}
}

func (dc *DiscountRuleController) GetAllRules(c *gin.Context) {
	var rules []models.DiscountRule
	if err := dc.DB.Order("criteria_type, threshold").Find(&rules).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of discount rules", rules)
}

func (dc *DiscountRuleController) CreateRule(c *gin.Context) {
	var req struct {
		CriteriaType    string  `json:"criteria_type" binding:"required"`
		Threshold       float64 `json:"threshold" binding:"gt=0"`
		DiscountPercent float64 `json:"discount_percent" binding:"min=0,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !models.ValidCriteria(req.CriteriaType) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("criteria_type must be \""+
			models.CriteriaPurchaseCount+"\" or \""+models.CriteriaTotalSpent+"\""))
		return
	}

	rule := models.DiscountRule{
		CriteriaType:    req.CriteriaType,
		Threshold:       req.Threshold,
		DiscountPercent: req.DiscountPercent,
	}
	if err := dc.DB.Create(&rule).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.InfoLogger.Printf("Discount rule created: %s >= %.0f -> %.0f%%", rule.CriteriaType, rule.Threshold, rule.DiscountPercent)
	utils.RespondJSON(c, http.StatusCreated, "Discount rule created", rule)
}

// DeleteRules removes one rule (path ID) or many (body "ids"), together with
// their customer assignments.
func (dc *DiscountRuleController) DeleteRules(c *gin.Context) {
	var ids []uint
	if c.Param("rule_id") != "" {
		id, ok := parseID(c, "rule_id")
		if !ok {
			return
		}
		ids = []uint{id}
	} else {
		var req struct {
			IDs []uint `json:"ids" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		ids = req.IDs
	}

	var deleted int64
	err := dc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("discount_rule_id IN ?", ids).Delete(&models.CustomerAppliedRule{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.DiscountRule{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if deleted == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("discount rule not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Discount rules deleted", gin.H{"deleted": deleted})
}

// ApplyRules assigns rules to customers without touching existing assignments.
func (dc *DiscountRuleController) ApplyRules(c *gin.Context) {
	var req struct {
		CustomerIDs []uint `json:"customer_ids"`
		RuleIDs     []uint `json:"rule_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := dc.Loyalty.ApplyRules(c.Request.Context(), req.CustomerIDs, req.RuleIDs); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Discount rules applied", gin.H{
		"customers": len(req.CustomerIDs),
		"rules":     len(req.RuleIDs),
	})
}
