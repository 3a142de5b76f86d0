package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/hub"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/services"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
)

type TableController struct {
	DB      *gorm.DB
	Billing *services.BillingService
}

func NewTableController(db *gorm.DB, billing *services.BillingService) *TableController {
	return &TableController{DB: db, Billing: billing}
}

type tableRequest struct {
	Name     string `json:"name" binding:"required"`
	Capacity int    `json:"capacity" binding:"min=0"`
}

// GetAllTables -> every table with its derived status
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Billing.Tables(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) CreateTable(c *gin.Context) {
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Capacity == 0 {
		req.Capacity = 4
	}

	table := models.DiningTable{Name: req.Name, Capacity: req.Capacity, Status: models.TableEmpty}
	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	hub.BroadcastMessage(hub.Message{Event: hub.EventTableCreate, Data: table})
	utils.InfoLogger.Printf("New table created: %s (capacity=%d)", table.Name, table.Capacity)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

func (tc *TableController) UpdateTable(c *gin.Context) {
	id, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.DiningTable
	if err := tc.DB.First(&table, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	table.Name = strings.TrimSpace(req.Name)
	if req.Capacity > 0 {
		table.Capacity = req.Capacity
	}
	if err := tc.DB.Save(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	hub.BroadcastTableUpdate(table)
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// DeleteTable -> refused while the table has an open bill
func (tc *TableController) DeleteTable(c *gin.Context) {
	id, ok := parseID(c, "table_id")
	if !ok {
		return
	}

	var table models.DiningTable
	if err := tc.DB.First(&table, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	open, err := exists(tc.DB.Model(&models.Bill{}).Where("table_id = ? AND status = ?", id, models.BillOpen))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if open {
		utils.RespondError(c, http.StatusConflict, errors.New("table has an open bill"))
		return
	}
	invoiced, err := exists(tc.DB.Model(&models.Bill{}).Where("table_id = ?", id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if invoiced {
		utils.RespondError(c, http.StatusConflict, errors.New("table appears on paid invoices"))
		return
	}

	if err := tc.DB.Delete(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	hub.BroadcastMessage(hub.Message{Event: hub.EventTableDelete, Data: gin.H{"table_id": table.ID}})
	utils.InfoLogger.Printf("Table %d deleted", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": table.ID})
}
