package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/services"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
)

type CustomerController struct {
	DB      *gorm.DB
	Loyalty *services.LoyaltyService
}

func NewCustomerController(db *gorm.DB, loyalty *services.LoyaltyService) *CustomerController {
	return &CustomerController{DB: db, Loyalty: loyalty}
}

type customerRequest struct {
	CustomerCode string `json:"customer_code"`
	Name         string `json:"name" binding:"required"`
	PhoneNumber  string `json:"phone_number"`
	Address      string `json:"address"`
}

// GetAllCustomers -> registered customers, newest last
func (cc *CustomerController) GetAllCustomers(c *gin.Context) {
	var customers []models.Customer
	if err := cc.DB.Order("id").Find(&customers).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of customers", customers)
}

// CreateCustomer -> code defaults to "KH" + the zero-padded ID
func (cc *CustomerController) CreateCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	code := strings.TrimSpace(req.CustomerCode)
	taken, err := cc.codeTaken(code, 0)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if taken {
		utils.RespondError(c, http.StatusConflict, errors.New("customer code already exists"))
		return
	}

	customer := models.Customer{
		CustomerCode: code,
		Name:         strings.TrimSpace(req.Name),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		Address:      strings.TrimSpace(req.Address),
	}
	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		if code == "" {
			// placeholder until the ID is known
			customer.CustomerCode = "tmp-" + uuid.NewString()
		}
		if err := tx.Create(&customer).Error; err != nil {
			return err
		}
		if code == "" {
			customer.CustomerCode = fmt.Sprintf("KH%04d", customer.ID)
			return tx.Model(&customer).Update("customer_code", customer.CustomerCode).Error
		}
		return nil
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Customer created: %s %s", customer.CustomerCode, customer.Name)
	utils.RespondJSON(c, http.StatusCreated, "Customer created", customer)
}

func (cc *CustomerController) UpdateCustomer(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var customer models.Customer
	if err := cc.DB.First(&customer, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	updates := map[string]interface{}{
		"name":         strings.TrimSpace(req.Name),
		"phone_number": strings.TrimSpace(req.PhoneNumber),
		"address":      strings.TrimSpace(req.Address),
	}
	if code := strings.TrimSpace(req.CustomerCode); code != "" && code != customer.CustomerCode {
		taken, err := cc.codeTaken(code, id)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if taken {
			utils.RespondError(c, http.StatusConflict, errors.New("customer code already exists"))
			return
		}
		updates["customer_code"] = code
	}
	if err := cc.DB.Model(&customer).Updates(updates).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	cc.DB.First(&customer, id)
	utils.RespondJSON(c, http.StatusOK, "Customer updated", customer)
}

// DeleteCustomer -> refused once the customer has a paid bill
func (cc *CustomerController) DeleteCustomer(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}

	hasPaid, err := exists(cc.DB.Model(&models.Bill{}).Where("customer_id = ? AND status = ?", id, models.BillPaid))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if hasPaid {
		utils.RespondError(c, http.StatusConflict, errors.New("customer has paid invoices"))
		return
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", id).Delete(&models.CustomerAppliedRule{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Customer{}, id)
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
	utils.RespondJSON(c, http.StatusOK, "Customer deleted", gin.H{"id": id})
}

// GetCustomerRules -> assigned rules, purchase stats and the discount that
// checkout would apply right now
func (cc *CustomerController) GetCustomerRules(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var customer models.Customer
	if err := cc.DB.WithContext(ctx).First(&customer, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	rules, err := cc.Loyalty.AssignedRules(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	stats, err := cc.Loyalty.Stats(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	discount, err := cc.Loyalty.DiscountFor(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Customer rules", gin.H{
		"customer":         customer,
		"rules":            rules,
		"stats":            stats,
		"discount_percent": discount,
	})
}

func (cc *CustomerController) ReplaceCustomerRules(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}
	var req struct {
		RuleIDs []uint `json:"rule_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := cc.Loyalty.ReplaceRules(c.Request.Context(), id, req.RuleIDs); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer rules updated", gin.H{"customer_id": id, "rule_ids": req.RuleIDs})
}

func (cc *CustomerController) codeTaken(code string, exceptID uint) (bool, error) {
	if code == "" {
		return false, nil
	}
	return exists(cc.DB.Model(&models.Customer{}).Where("customer_code = ? AND id <> ?", code, exceptID))
}
