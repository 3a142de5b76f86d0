package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/services"
	"github.com/yeremiapane/cafe-pos/utils"
)

const dateLayout = "2006-01-02"

type ReportController struct {
	Reports *services.ReportService
}

func NewReportController(reports *services.ReportService) *ReportController {
	return &ReportController{Reports: reports}
}

// dateRange reads ?start=YYYY-MM-DD&end=YYYY-MM-DD. A missing start falls back
// to the first checkout day (or today), a missing end to today.
func (rc *ReportController) dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	today := time.Now()
	start, end := today, today

	if raw := c.Query("start"); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid start date %q", raw))
			return start, end, false
		}
		start = t
	} else {
		first, err := rc.Reports.FirstCheckoutDate(c.Request.Context())
		if err != nil {
			respondServiceError(c, err)
			return start, end, false
		}
		if first != nil {
			start = *first
		}
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid end date %q", raw))
			return start, end, false
		}
		end = t
	}
	start, end = startOfDay(start), startOfDay(end)
	if end.Before(start) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("end date is before start date"))
		return start, end, false
	}
	return start, end, true
}

func startOfDay(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

func (rc *ReportController) GetInvoiceHistory(c *gin.Context) {
	start, end, ok := rc.dateRange(c)
	if !ok {
		return
	}
	history, err := rc.Reports.InvoiceHistory(c.Request.Context(), start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Invoice history", history)
}

func (rc *ReportController) GetInvoiceDetail(c *gin.Context) {
	billID, ok := parseID(c, "bill_id")
	if !ok {
		return
	}
	lines, err := rc.Reports.InvoiceDetail(c.Request.Context(), billID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Invoice detail", lines)
}

// GetInvoicePDF renders a paid bill as a printable A5 invoice.
func (rc *ReportController) GetInvoicePDF(c *gin.Context) {
	billID, ok := parseID(c, "bill_id")
	if !ok {
		return
	}
	invoice, err := rc.Reports.Invoice(c.Request.Context(), billID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteInvoicePDF(&buf, invoice); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=invoice-%s.pdf", invoice.Number))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// GetEmployeeRevenue -> staff only ever see their own row
func (rc *ReportController) GetEmployeeRevenue(c *gin.Context) {
	start, end, ok := rc.dateRange(c)
	if !ok {
		return
	}
	userName := c.Query("user_name")
	if !isAdmin(c) {
		userName, _ = currentUser(c)
	}

	rows, err := rc.Reports.EmployeeRevenue(c.Request.Context(), start, end, userName)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Employee revenue", rows)
}

func (rc *ReportController) GetProfitStatistics(c *gin.Context) {
	start, end, ok := rc.dateRange(c)
	if !ok {
		return
	}
	var filter services.ProfitFilter
	var err error
	if filter.DrinkID, err = queryID(c, "drink_id"); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if filter.CategoryID, err = queryID(c, "category_id"); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	filter.DrinkType = c.Query("drink_type")

	report, err := rc.Reports.ProfitStatistics(c.Request.Context(), start, end, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profit statistics", report)
}

func (rc *ReportController) GetLoyalCustomers(c *gin.Context) {
	customers, err := rc.Reports.LoyalCustomers(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Loyal customers", customers)
}

// GetRevenueChart -> PNG line chart of daily revenue
func (rc *ReportController) GetRevenueChart(c *gin.Context) {
	start, end, ok := rc.dateRange(c)
	if !ok {
		return
	}
	days, err := rc.Reports.RevenueByDay(c.Request.Context(), start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteRevenueChart(&buf, days); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
