package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/hub"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/services"
	"github.com/yeremiapane/cafe-pos/utils"
)

// AllCategoriesName is the pseudo-category (ID 0) that lists the whole menu.
const AllCategoriesName = "Tất cả"

type BillingController struct {
	Billing *services.BillingService
}

func NewBillingController(billing *services.BillingService) *BillingController {
	return &BillingController{Billing: billing}
}

// GetCategories -> active categories behind a leading "Tất cả" entry
func (bc *BillingController) GetCategories(c *gin.Context) {
	var categories []models.Category
	err := bc.Billing.DB.WithContext(c.Request.Context()).
		Where("is_active = ?", true).Order("name").Find(&categories).Error
	if err != nil {
		respondServiceError(c, err)
		return
	}
	all := append([]models.Category{{ID: 0, Name: AllCategoriesName, IsActive: true}}, categories...)
	utils.RespondJSON(c, http.StatusOK, "Categories", all)
}

// GetMenu -> active drinks, optionally filtered by ?category_id
func (bc *BillingController) GetMenu(c *gin.Context) {
	categoryID, err := queryID(c, "category_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	drinks, err := bc.Billing.Menu(c.Request.Context(), categoryID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu", drinks)
}

func (bc *BillingController) GetDrinkStock(c *gin.Context) {
	drinkID, ok := parseID(c, "drink_id")
	if !ok {
		return
	}
	stock, err := bc.Billing.DrinkStock(c.Request.Context(), drinkID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Drink stock", stock)
}

func (bc *BillingController) GetOpenBill(c *gin.Context) {
	tableID, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	bill, err := bc.Billing.OpenBill(c.Request.Context(), tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Open bill", bill)
}

// AddItems -> {"drink_id": 3, "selections": {"Nguyên bản": 1, "Pha chế": 2}}
func (bc *BillingController) AddItems(c *gin.Context) {
	tableID, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	var req struct {
		DrinkID    uint           `json:"drink_id" binding:"required"`
		Selections map[string]int `json:"selections" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	userName, _ := currentUser(c)
	bill, err := bc.Billing.AddItems(c.Request.Context(), tableID, req.DrinkID, req.Selections, userName)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	bc.broadcastBill(bill)
	utils.RespondJSON(c, http.StatusOK, "Items added", bill)
}

func (bc *BillingController) UpdateItem(c *gin.Context) {
	tableID, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	var req struct {
		DrinkID   uint   `json:"drink_id" binding:"required"`
		DrinkType string `json:"drink_type" binding:"required"`
		Quantity  int    `json:"quantity" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	userName, _ := currentUser(c)
	bill, err := bc.Billing.UpdateItemQuantity(c.Request.Context(), tableID, req.DrinkID, req.DrinkType, req.Quantity, userName)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	bc.broadcastBill(bill)
	utils.RespondJSON(c, http.StatusOK, "Item updated", bill)
}

// RemoveItem -> DELETE .../items/:drink_id?drink_type=Pha chế
func (bc *BillingController) RemoveItem(c *gin.Context) {
	tableID, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	drinkID, ok := parseID(c, "drink_id")
	if !ok {
		return
	}
	drinkType := c.Query("drink_type")
	if !models.ValidDrinkType(drinkType) {
		utils.RespondError(c, http.StatusBadRequest, &CustomError{"drink_type must be \"" +
			models.DrinkTypeOriginal + "\" or \"" + models.DrinkTypeRecipe + "\""})
		return
	}

	userName, _ := currentUser(c)
	bill, err := bc.Billing.RemoveItem(c.Request.Context(), tableID, drinkID, drinkType, userName)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	bc.broadcastBill(bill)
	utils.RespondJSON(c, http.StatusOK, "Item removed", bill)
}

// Checkout pays the table's open bill. customer_id is omitted for walk-in guests.
func (bc *BillingController) Checkout(c *gin.Context) {
	tableID, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	var req struct {
		CustomerID *uint `json:"customer_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.CustomerID != nil && *req.CustomerID == 0 {
		req.CustomerID = nil
	}

	userName, _ := currentUser(c)
	invoice, err := bc.Billing.Checkout(c.Request.Context(), tableID, req.CustomerID, userName)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	hub.BroadcastBillPaid(invoice)
	hub.BroadcastTableUpdate(gin.H{"id": tableID, "status": models.TableEmpty})
	utils.RespondJSON(c, http.StatusOK, "Checkout successful", invoice)
}

func (bc *BillingController) broadcastBill(bill *services.OpenBill) {
	status := models.TableOccupied
	if len(bill.Items) == 0 {
		status = models.TableEmpty
	}
	hub.BroadcastBillUpdate(bill)
	hub.BroadcastTableUpdate(gin.H{"id": bill.TableID, "status": status})
}
