package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/yeremiapane/cafe-pos/models"
	"gorm.io/gorm"
)

type InvoiceRow struct {
	ID           uint      `db:"id" json:"id"`
	Number       string    `db:"-" json:"number"`
	CustomerCode string    `db:"customer_code" json:"customer_code"`
	CustomerName string    `db:"customer_name" json:"customer_name"`
	TableName    string    `db:"table_name" json:"table_name"`
	DateCheckOut time.Time `db:"date_check_out" json:"date_check_out"`
	SubTotal     float64   `db:"sub_total" json:"sub_total"`
	TotalAmount  float64   `db:"total_amount" json:"total_amount"`
}

type InvoiceHistory struct {
	Invoices     []InvoiceRow `json:"invoices"`
	TotalRevenue float64      `json:"total_revenue"`
}

type InvoiceLine struct {
	DrinkName  string  `db:"drink_name" json:"drink_name"`
	DrinkType  string  `db:"drink_type" json:"-"`
	Quantity   int     `db:"quantity" json:"quantity"`
	Price      float64 `db:"price" json:"price"`
	TotalPrice float64 `db:"-" json:"total_price"`
}

type EmployeeRevenue struct {
	UserName     string  `db:"user_name" json:"user_name"`
	DisplayName  string  `db:"display_name" json:"display_name"`
	Type         int     `db:"type" json:"type"`
	InvoiceCount int64   `db:"invoice_count" json:"invoice_count"`
	TotalRevenue float64 `db:"total_revenue" json:"total_revenue"`
}

type ProfitFilter struct {
	DrinkID    uint
	DrinkType  string
	CategoryID uint
}

type ProfitRow struct {
	DrinkID      uint    `json:"drink_id"`
	DrinkName    string  `json:"drink_name"`
	CategoryID   uint    `json:"category_id"`
	DrinkType    string  `json:"drink_type"`
	QuantitySold int     `json:"quantity_sold"`
	UnitCost     float64 `json:"unit_cost"`
	TotalCost    float64 `json:"total_cost"`
	Revenue      float64 `json:"revenue"`
	Profit       float64 `json:"profit"`
	Margin       float64 `json:"margin"`
}

type ProfitReport struct {
	Rows             []ProfitRow `json:"rows"`
	TotalQuantity    int         `json:"total_quantity"`
	TotalCost        float64     `json:"total_cost"`
	TotalRevenue     float64     `json:"total_revenue"`
	TotalProfit      float64     `json:"total_profit"`
	FirstCheckoutDay *time.Time  `json:"first_checkout_day,omitempty"`
}

type LoyalCustomer struct {
	ID            uint    `db:"id" json:"id"`
	CustomerCode  string  `db:"customer_code" json:"customer_code"`
	Name          string  `db:"name" json:"name"`
	PhoneNumber   string  `db:"phone_number" json:"phone_number"`
	PurchaseCount int64   `db:"purchase_count" json:"purchase_count"`
	TotalSpent    float64 `db:"total_spent" json:"total_spent"`
	TotalDiscount float64 `db:"total_discount" json:"total_discount"`
	AppliedRules  string  `db:"-" json:"applied_rules"`
}

type DailyRevenue struct {
	Day     time.Time `json:"day"`
	Revenue float64   `json:"revenue"`
}

// ReportService runs the read-only report queries through sqlx on the
// connection pool gorm already holds.
type ReportService struct {
	DB *sqlx.DB
}

func NewReportService(db *gorm.DB) (*ReportService, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	driver := db.Dialector.Name()
	if driver == "sqlite" {
		driver = "sqlite3"
	}
	return &ReportService{DB: sqlx.NewDb(sqlDB, driver)}, nil
}

// DayRange widens [start, end] to whole days.
func DayRange(start, end time.Time) (time.Time, time.Time) {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return from, to
}

func (s *ReportService) InvoiceHistory(ctx context.Context, start, end time.Time) (*InvoiceHistory, error) {
	from, to := DayRange(start, end)
	query := s.DB.Rebind(`
		SELECT b.id,
			COALESCE(c.customer_code, b.guest_customer_code, '') AS customer_code,
			COALESCE(c.name, ?) AS customer_name,
			t.name AS table_name,
			b.date_check_out, b.sub_total, b.total_amount
		FROM bills b
		LEFT JOIN customers c ON b.customer_id = c.id
		JOIN dining_tables t ON b.table_id = t.id
		WHERE b.status = ? AND b.date_check_out BETWEEN ? AND ?
		ORDER BY b.date_check_out DESC`)

	history := &InvoiceHistory{Invoices: []InvoiceRow{}}
	if err := s.DB.SelectContext(ctx, &history.Invoices, query, models.GuestCustomerName, models.BillPaid, from, to); err != nil {
		return nil, fmt.Errorf("invoice history: %w", err)
	}
	for i := range history.Invoices {
		history.Invoices[i].Number = fmt.Sprintf("%06d", history.Invoices[i].ID)
		history.TotalRevenue += history.Invoices[i].TotalAmount
	}
	return history, nil
}

func (s *ReportService) InvoiceDetail(ctx context.Context, billID uint) ([]InvoiceLine, error) {
	query := s.DB.Rebind(`
		SELECT d.name AS drink_name, bi.drink_type, bi.quantity, bi.price
		FROM bill_infos bi
		JOIN drinks d ON bi.drink_id = d.id
		WHERE bi.bill_id = ?
		ORDER BY bi.id`)

	lines := []InvoiceLine{}
	if err := s.DB.SelectContext(ctx, &lines, query, billID); err != nil {
		return nil, fmt.Errorf("invoice detail: %w", err)
	}
	for i := range lines {
		lines[i].DrinkName = fmt.Sprintf("%s (%s)", lines[i].DrinkName, models.ShortType(lines[i].DrinkType))
		lines[i].TotalPrice = float64(lines[i].Quantity) * lines[i].Price
	}
	return lines, nil
}

// Invoice rebuilds the invoice of a paid bill.
func (s *ReportService) Invoice(ctx context.Context, billID uint) (*Invoice, error) {
	var header struct {
		ID              uint      `db:"id"`
		TableID         uint      `db:"table_id"`
		TableName       string    `db:"table_name"`
		CustomerID      *uint     `db:"customer_id"`
		CustomerCode    string    `db:"customer_code"`
		CustomerName    string    `db:"customer_name"`
		Cashier         string    `db:"cashier"`
		SubTotal        float64   `db:"sub_total"`
		DiscountPercent float64   `db:"discount_percent"`
		TotalAmount     float64   `db:"total_amount"`
		DateCheckIn     time.Time `db:"date_check_in"`
		DateCheckOut    time.Time `db:"date_check_out"`
	}
	query := s.DB.Rebind(`
		SELECT b.id, b.table_id, t.name AS table_name, b.customer_id,
			COALESCE(c.customer_code, b.guest_customer_code, '') AS customer_code,
			COALESCE(c.name, ?) AS customer_name,
			COALESCE(a.display_name, b.account_user_name, '') AS cashier,
			b.sub_total, b.discount_percent, b.total_amount, b.date_check_in, b.date_check_out
		FROM bills b
		JOIN dining_tables t ON b.table_id = t.id
		LEFT JOIN customers c ON b.customer_id = c.id
		LEFT JOIN accounts a ON b.account_user_name = a.user_name
		WHERE b.id = ? AND b.status = ?`)
	err := s.DB.GetContext(ctx, &header, query, models.GuestCustomerName, billID, models.BillPaid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: paid bill %d", ErrNotFound, billID)
	}
	if err != nil {
		return nil, fmt.Errorf("invoice %d: %w", billID, err)
	}

	var items []BillItem
	itemQuery := s.DB.Rebind(`
		SELECT bi.drink_id, d.name AS drink_name, d.drink_code, bi.drink_type, bi.quantity, bi.price
		FROM bill_infos bi
		JOIN drinks d ON bi.drink_id = d.id
		WHERE bi.bill_id = ?
		ORDER BY bi.id`)
	rows, err := s.DB.QueryxContext(ctx, itemQuery, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			DrinkID   uint    `db:"drink_id"`
			DrinkName string  `db:"drink_name"`
			DrinkCode string  `db:"drink_code"`
			DrinkType string  `db:"drink_type"`
			Quantity  int     `db:"quantity"`
			Price     float64 `db:"price"`
		}
		if err := rows.StructScan(&r); err != nil {
			return nil, err
		}
		items = append(items, BillItem{
			DrinkID:   r.DrinkID,
			DrinkName: r.DrinkName,
			DrinkCode: r.DrinkCode,
			DrinkType: r.DrinkType,
			Quantity:  r.Quantity,
			Price:     r.Price,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	view := newOpenBill(header.TableID, header.ID, items)
	return &Invoice{
		BillID:          header.ID,
		Number:          fmt.Sprintf("%06d", header.ID),
		TableID:         header.TableID,
		TableName:       header.TableName,
		CustomerID:      header.CustomerID,
		CustomerCode:    header.CustomerCode,
		CustomerName:    header.CustomerName,
		Cashier:         header.Cashier,
		Items:           view.Items,
		SubTotal:        header.SubTotal,
		DiscountPercent: header.DiscountPercent,
		DiscountAmount:  header.SubTotal - header.TotalAmount,
		Total:           header.TotalAmount,
		CheckIn:         header.DateCheckIn,
		CheckOut:        header.DateCheckOut,
	}, nil
}

// EmployeeRevenue reports paid bills per account in range. An empty userName
// means every account.
func (s *ReportService) EmployeeRevenue(ctx context.Context, start, end time.Time, userName string) ([]EmployeeRevenue, error) {
	from, to := DayRange(start, end)
	var sb strings.Builder
	sb.WriteString(`
		SELECT a.user_name, a.display_name, a.type,
			COUNT(b.id) AS invoice_count,
			COALESCE(SUM(b.total_amount), 0) AS total_revenue
		FROM accounts a
		LEFT JOIN bills b ON a.user_name = b.account_user_name
			AND b.status = ? AND b.date_check_out >= ? AND b.date_check_out <= ?
		WHERE a.type IN (?, ?)`)
	args := []interface{}{models.BillPaid, from, to, models.AccountStaff, models.AccountAdmin}
	if userName != "" {
		sb.WriteString(" AND a.user_name = ?")
		args = append(args, userName)
	}
	sb.WriteString(`
		GROUP BY a.user_name, a.display_name, a.type
		ORDER BY total_revenue DESC, a.display_name`)

	rows := []EmployeeRevenue{}
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(sb.String()), args...); err != nil {
		return nil, fmt.Errorf("employee revenue: %w", err)
	}
	return rows, nil
}

// ProfitStatistics reports cost, revenue and profit per (drink, type). The
// bill discount is spread over its lines in proportion to line revenue.
func (s *ReportService) ProfitStatistics(ctx context.Context, start, end time.Time, filter ProfitFilter) (*ProfitReport, error) {
	from, to := DayRange(start, end)
	var sb strings.Builder
	sb.WriteString(`
		SELECT bi.drink_id, d.name AS drink_name, d.category_id, bi.drink_type,
			bi.quantity, bi.price, b.sub_total, b.total_amount,
			d.recipe_cost, d.original_price
		FROM bill_infos bi
		JOIN bills b ON bi.bill_id = b.id
		JOIN drinks d ON bi.drink_id = d.id
		WHERE b.status = ? AND b.date_check_out BETWEEN ? AND ?`)
	args := []interface{}{models.BillPaid, from, to}
	if filter.DrinkID != 0 {
		sb.WriteString(" AND bi.drink_id = ?")
		args = append(args, filter.DrinkID)
	}
	if filter.DrinkType != "" {
		sb.WriteString(" AND bi.drink_type = ?")
		args = append(args, filter.DrinkType)
	}
	if filter.CategoryID != 0 {
		sb.WriteString(" AND d.category_id = ?")
		args = append(args, filter.CategoryID)
	}

	var lines []struct {
		DrinkID       uint    `db:"drink_id"`
		DrinkName     string  `db:"drink_name"`
		CategoryID    uint    `db:"category_id"`
		DrinkType     string  `db:"drink_type"`
		Quantity      int     `db:"quantity"`
		Price         float64 `db:"price"`
		SubTotal      float64 `db:"sub_total"`
		TotalAmount   float64 `db:"total_amount"`
		RecipeCost    float64 `db:"recipe_cost"`
		OriginalPrice float64 `db:"original_price"`
	}
	if err := s.DB.SelectContext(ctx, &lines, s.DB.Rebind(sb.String()), args...); err != nil {
		return nil, fmt.Errorf("profit statistics: %w", err)
	}

	type key struct {
		drinkID   uint
		drinkType string
	}
	byKey := make(map[key]*ProfitRow)
	var order []key
	for _, l := range lines {
		k := key{l.DrinkID, l.DrinkType}
		row, ok := byKey[k]
		if !ok {
			row = &ProfitRow{
				DrinkID:    l.DrinkID,
				DrinkName:  l.DrinkName,
				CategoryID: l.CategoryID,
				DrinkType:  l.DrinkType,
				UnitCost:   UnitCost(l.DrinkType, l.RecipeCost, l.OriginalPrice),
			}
			byKey[k] = row
			order = append(order, k)
		}
		row.QuantitySold += l.Quantity
		row.TotalCost += float64(l.Quantity) * row.UnitCost
		row.Revenue += DiscountedRevenue(float64(l.Quantity)*l.Price, l.SubTotal, l.TotalAmount)
	}

	report := &ProfitReport{Rows: make([]ProfitRow, 0, len(order))}
	for _, k := range order {
		row := byKey[k]
		row.Profit = row.Revenue - row.TotalCost
		row.Margin = Margin(row.Profit, row.Revenue)
		report.Rows = append(report.Rows, *row)
		report.TotalQuantity += row.QuantitySold
		report.TotalCost += row.TotalCost
		report.TotalRevenue += row.Revenue
		report.TotalProfit += row.Profit
	}
	sort.SliceStable(report.Rows, func(i, j int) bool {
		if report.Rows[i].Profit != report.Rows[j].Profit {
			return report.Rows[i].Profit > report.Rows[j].Profit
		}
		return report.Rows[i].DrinkName < report.Rows[j].DrinkName
	})

	first, err := s.FirstCheckoutDate(ctx)
	if err != nil {
		return nil, err
	}
	report.FirstCheckoutDay = first
	return report, nil
}

// UnitCost is what one unit of a drink type costs the café.
func UnitCost(drinkType string, recipeCost, originalPrice float64) float64 {
	switch drinkType {
	case models.DrinkTypeRecipe:
		return recipeCost
	case models.DrinkTypeOriginal:
		return originalPrice
	default:
		return 0
	}
}

// DiscountedRevenue spreads a bill's discount over one of its lines.
func DiscountedRevenue(itemRevenue, subTotal, total float64) float64 {
	if subTotal == 0 {
		return itemRevenue
	}
	return itemRevenue * total / subTotal
}

// Margin is profit as a percent of revenue, 0 without revenue.
func Margin(profit, revenue float64) float64 {
	if revenue == 0 {
		return 0
	}
	return profit / revenue * 100
}

// FirstCheckoutDate is the checkout time of the oldest paid bill, nil if none.
func (s *ReportService) FirstCheckoutDate(ctx context.Context) (*time.Time, error) {
	var first time.Time
	query := s.DB.Rebind(`
		SELECT date_check_out FROM bills
		WHERE status = ? AND date_check_out IS NOT NULL
		ORDER BY date_check_out
		LIMIT 1`)
	err := s.DB.GetContext(ctx, &first, query, models.BillPaid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("first checkout date: %w", err)
	}
	return &first, nil
}

func (s *ReportService) LoyalCustomers(ctx context.Context) ([]LoyalCustomer, error) {
	customers := []LoyalCustomer{}
	query := s.DB.Rebind(`
		SELECT c.id, c.customer_code, c.name, COALESCE(c.phone_number, '') AS phone_number,
			COUNT(b.id) AS purchase_count,
			COALESCE(SUM(b.total_amount), 0) AS total_spent,
			COALESCE(SUM(b.sub_total - b.total_amount), 0) AS total_discount
		FROM customers c
		LEFT JOIN bills b ON b.customer_id = c.id AND b.status = ?
		GROUP BY c.id, c.customer_code, c.name, c.phone_number
		ORDER BY total_spent DESC, c.name`)
	if err := s.DB.SelectContext(ctx, &customers, query, models.BillPaid); err != nil {
		return nil, fmt.Errorf("loyal customers: %w", err)
	}

	var rules []struct {
		CustomerID      uint    `db:"customer_id"`
		CriteriaType    string  `db:"criteria_type"`
		DiscountPercent float64 `db:"discount_percent"`
	}
	ruleQuery := `
		SELECT car.customer_id, dr.criteria_type, dr.discount_percent
		FROM customer_applied_rules car
		JOIN discount_rules dr ON car.discount_rule_id = dr.id
		ORDER BY car.customer_id, dr.criteria_type, dr.threshold`
	if err := s.DB.SelectContext(ctx, &rules, ruleQuery); err != nil {
		return nil, fmt.Errorf("applied rules: %w", err)
	}

	descriptions := make(map[uint][]string)
	for _, r := range rules {
		descriptions[r.CustomerID] = append(descriptions[r.CustomerID],
			fmt.Sprintf("%s (%s%%)", r.CriteriaType, strconv.FormatFloat(r.DiscountPercent, 'f', -1, 64)))
	}
	for i := range customers {
		if d, ok := descriptions[customers[i].ID]; ok {
			customers[i].AppliedRules = strings.Join(d, ", ")
		} else {
			customers[i].AppliedRules = "Tự động"
		}
	}
	return customers, nil
}

// RevenueByDay returns one entry per calendar day in range, zero-filled.
func (s *ReportService) RevenueByDay(ctx context.Context, start, end time.Time) ([]DailyRevenue, error) {
	from, to := DayRange(start, end)
	var bills []struct {
		DateCheckOut time.Time `db:"date_check_out"`
		TotalAmount  float64   `db:"total_amount"`
	}
	query := s.DB.Rebind(`
		SELECT date_check_out, total_amount FROM bills
		WHERE status = ? AND date_check_out BETWEEN ? AND ?`)
	if err := s.DB.SelectContext(ctx, &bills, query, models.BillPaid, from, to); err != nil {
		return nil, fmt.Errorf("revenue by day: %w", err)
	}

	totals := make(map[string]float64)
	for _, b := range bills {
		totals[b.DateCheckOut.In(from.Location()).Format("2006-01-02")] += b.TotalAmount
	}

	var days []DailyRevenue
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		days = append(days, DailyRevenue{Day: day, Revenue: totals[day.Format("2006-01-02")]})
	}
	return days, nil
}
