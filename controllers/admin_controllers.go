package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/services"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
)

type AdminController struct {
	DB    *gorm.DB
	Stock *services.StockMonitor
}

func NewAdminController(db *gorm.DB, stock *services.StockMonitor) *AdminController {
	return &AdminController{DB: db, Stock: stock}
}

type topDrink struct {
	DrinkID  uint    `json:"drink_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// GetDashboardStats -> today's figures at a glance
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	now := time.Now()
	from, to := services.DayRange(now, now)
	db := ac.DB.WithContext(c.Request.Context())

	var stats struct {
		TodayInvoices int64      `json:"today_invoices"`
		TodayRevenue  float64    `json:"today_revenue"`
		TotalInvoices int64      `json:"total_invoices"`
		TotalRevenue  float64    `json:"total_revenue"`
		OpenBills     int64      `json:"open_bills"`
		OpenAmount    float64    `json:"open_amount"`
		Customers     int64      `json:"customers"`
		TopDrinks     []topDrink `json:"top_drinks"`
		TableStats    struct {
			Empty    int64 `json:"empty"`
			Occupied int64 `json:"occupied"`
		} `json:"table_stats"`
	}

	paidToday := func() *gorm.DB {
		return db.Model(&models.Bill{}).
			Where("status = ? AND date_check_out BETWEEN ? AND ?", models.BillPaid, from, to)
	}
	byStatus := func(status int) *gorm.DB {
		return db.Model(&models.Bill{}).Where("status = ?", status)
	}

	var tables int64
	if err := errors.Join(
		paidToday().Count(&stats.TodayInvoices).Error,
		paidToday().Select("COALESCE(SUM(total_amount), 0)").Scan(&stats.TodayRevenue).Error,
		byStatus(models.BillPaid).Count(&stats.TotalInvoices).Error,
		byStatus(models.BillPaid).Select("COALESCE(SUM(total_amount), 0)").Scan(&stats.TotalRevenue).Error,
		byStatus(models.BillOpen).Count(&stats.OpenBills).Error,
		byStatus(models.BillOpen).Select("COALESCE(SUM(sub_total), 0)").Scan(&stats.OpenAmount).Error,
		db.Model(&models.Customer{}).Count(&stats.Customers).Error,
		db.Model(&models.DiningTable{}).Count(&tables).Error,
		byStatus(models.BillOpen).Distinct("table_id").Count(&stats.TableStats.Occupied).Error,
	); err != nil {
		respondServiceError(c, err)
		return
	}
	stats.TableStats.Empty = tables - stats.TableStats.Occupied

	stats.TopDrinks = []topDrink{}
	err := db.Table("bill_infos bi").
		Select("bi.drink_id, d.name, SUM(bi.quantity) AS quantity, SUM(bi.quantity * bi.price) AS revenue").
		Joins("JOIN bills b ON b.id = bi.bill_id").
		Joins("JOIN drinks d ON d.id = bi.drink_id").
		Where("b.status = ? AND b.date_check_out BETWEEN ? AND ?", models.BillPaid, from, to).
		Group("bi.drink_id, d.name").
		Order("quantity DESC").
		Limit(5).
		Scan(&stats.TopDrinks).Error
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}

// GetLowStock runs a stock check now and lists everything at or below the
// threshold, including items that already alerted.
func (ac *AdminController) GetLowStock(c *gin.Context) {
	if _, err := ac.Stock.Check(c.Request.Context()); err != nil {
		respondServiceError(c, err)
		return
	}
	db := ac.DB.WithContext(c.Request.Context())

	var materials []models.Material
	if err := db.Preload("Unit").
		Where("is_active = ? AND quantity <= ?", true, ac.Stock.Threshold).
		Order("quantity").Find(&materials).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	var drinks []models.Drink
	if err := db.Where("is_active = ? AND original_price > 0 AND stock_quantity <= ?", true, ac.Stock.Threshold).
		Order("stock_quantity").Find(&drinks).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Low stock", gin.H{
		"threshold": ac.Stock.Threshold,
		"materials": materials,
		"drinks":    drinks,
	})
}
