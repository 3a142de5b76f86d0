package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BillItem is one line of a table's open bill.
type BillItem struct {
	DrinkID       uint    `json:"drink_id"`
	DrinkName     string  `json:"drink_name"`
	DrinkCode     string  `json:"-"`
	DrinkType     string  `json:"drink_type"`
	DrinkTypeCode string  `json:"drink_type_code"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
	TotalPrice    float64 `json:"total_price"`
}

type OpenBill struct {
	TableID uint       `json:"table_id"`
	BillID  uint       `json:"bill_id,omitempty"`
	Items   []BillItem `json:"items"`
	Total   float64    `json:"total"`
}

type Invoice struct {
	BillID          uint       `json:"bill_id"`
	Number          string     `json:"number"`
	TableID         uint       `json:"table_id"`
	TableName       string     `json:"table_name"`
	CustomerID      *uint      `json:"customer_id,omitempty"`
	CustomerCode    string     `json:"customer_code"`
	CustomerName    string     `json:"customer_name"`
	Cashier         string     `json:"cashier"`
	Items           []BillItem `json:"items"`
	SubTotal        float64    `json:"sub_total"`
	DiscountPercent float64    `json:"discount_percent"`
	DiscountAmount  float64    `json:"discount_amount"`
	Total           float64    `json:"total"`
	CheckIn         time.Time  `json:"check_in"`
	CheckOut        time.Time  `json:"check_out"`
}

type TableView struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
}

// BillingService owns the dashboard workflow: open bills per table,
// stock deduction and checkout.
type BillingService struct {
	DB      *gorm.DB
	Events  EventPublisher
	Loyalty *LoyaltyService
	// Stock, when set, is checked after every deduction.
	Stock *StockMonitor
}

func NewBillingService(db *gorm.DB, events EventPublisher) *BillingService {
	if events == nil {
		events = LogPublisher{}
	}
	return &BillingService{
		DB:      db,
		Events:  events,
		Loyalty: NewLoyaltyService(db),
	}
}

// Tables lists every table; a table is occupied while it has an open bill.
func (s *BillingService) Tables(ctx context.Context) ([]TableView, error) {
	var tables []TableView
	err := s.DB.WithContext(ctx).
		Table("dining_tables t").
		Select(`t.id, t.name, t.capacity,
			CASE WHEN EXISTS (SELECT 1 FROM bills b WHERE b.table_id = t.id AND b.status = ?) THEN ? ELSE ? END AS status`,
			models.BillOpen, models.TableOccupied, models.TableEmpty).
		Order("t.name").
		Scan(&tables).Error
	return tables, err
}

// Menu lists active drinks, optionally for one category (0 = all).
func (s *BillingService) Menu(ctx context.Context, categoryID uint) ([]models.Drink, error) {
	q := s.DB.WithContext(ctx).Where("is_active = ?", true)
	if categoryID != 0 {
		q = q.Where("category_id = ?", categoryID)
	}
	var drinks []models.Drink
	err := q.Order("name").Find(&drinks).Error
	return drinks, err
}

// DrinkStock returns how many of each drink type can still be sold.
func (s *BillingService) DrinkStock(ctx context.Context, drinkID uint) (map[string]int, error) {
	var drink models.Drink
	if err := s.DB.WithContext(ctx).First(&drink, drinkID).Error; err != nil {
		return nil, notFound(err, "drink %d", drinkID)
	}
	stock, err := availableStock(s.DB.WithContext(ctx), drink)
	if err != nil {
		return nil, err
	}
	if len(stock) == 0 {
		return nil, ErrDrinkNotSellable
	}
	return stock, nil
}

func (s *BillingService) OpenBill(ctx context.Context, tableID uint) (*OpenBill, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findTable(db, tableID); err != nil {
		return nil, err
	}
	items, err := loadOpenItems(db, tableID)
	if err != nil {
		return nil, err
	}
	var billID uint
	var bill models.Bill
	if err := db.Select("id").Where("table_id = ? AND status = ?", tableID, models.BillOpen).Take(&bill).Error; err == nil {
		billID = bill.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return newOpenBill(tableID, billID, items), nil
}

// AddItems puts quantities of one drink on the table's bill. selections maps
// drink type to quantity; zero entries are ignored.
func (s *BillingService) AddItems(ctx context.Context, tableID, drinkID uint, selections map[string]int, userName string) (*OpenBill, error) {
	var (
		items  []BillItem
		billID uint
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findTable(tx, tableID); err != nil {
			return err
		}
		var drink models.Drink
		if err := tx.First(&drink, drinkID).Error; err != nil {
			return notFound(err, "drink %d", drinkID)
		}
		if !drink.IsActive {
			return ErrDrinkNotSellable
		}

		stock, err := availableStock(tx, drink)
		if err != nil {
			return err
		}
		if len(stock) == 0 {
			return ErrDrinkNotSellable
		}
		if err := validateSelections(selections, stock); err != nil {
			return err
		}

		items, err = loadOpenItems(tx, tableID)
		if err != nil {
			return err
		}

		for _, drinkType := range []string{models.DrinkTypeOriginal, models.DrinkTypeRecipe} {
			qty := selections[drinkType]
			if qty == 0 {
				continue
			}
			items = mergeItem(items, drink, drinkType, qty)
			if err := adjustStock(tx, drink.ID, drinkType, qty); err != nil {
				return err
			}
		}

		billID, err = saveBill(tx, tableID, items, userName)
		return err
	})
	if err != nil {
		return nil, err
	}

	view := newOpenBill(tableID, billID, items)
	utils.InfoLogger.Printf("Bill for table %d updated by %s: %d lines, total %s",
		tableID, userName, len(view.Items), utils.FormatCurrency(view.Total))
	s.publishBill(ctx, view, models.BillOpen, userName)
	s.checkStock(ctx)
	return view, nil
}

// RemoveItem drops one line and returns its quantity to stock.
func (s *BillingService) RemoveItem(ctx context.Context, tableID, drinkID uint, drinkType, userName string) (*OpenBill, error) {
	return s.UpdateItemQuantity(ctx, tableID, drinkID, drinkType, 0, userName)
}

// UpdateItemQuantity sets a line's quantity; the difference is taken from or
// returned to stock. Quantity 0 removes the line.
func (s *BillingService) UpdateItemQuantity(ctx context.Context, tableID, drinkID uint, drinkType string, quantity int, userName string) (*OpenBill, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	if !models.ValidDrinkType(drinkType) {
		return nil, fmt.Errorf("%w: unknown drink type %q", ErrInvalidInput, drinkType)
	}

	var (
		items  []BillItem
		billID uint
		diff   int
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findTable(tx, tableID); err != nil {
			return err
		}
		var err error
		items, err = loadOpenItems(tx, tableID)
		if err != nil {
			return err
		}

		idx := findItem(items, drinkID, drinkType)
		if idx < 0 {
			return fmt.Errorf("%w: drink %d (%s) is not on the bill", ErrNotFound, drinkID, models.ShortType(drinkType))
		}

		diff = quantity - items[idx].Quantity
		if diff > 0 {
			var drink models.Drink
			if err := tx.First(&drink, drinkID).Error; err != nil {
				return notFound(err, "drink %d", drinkID)
			}
			stock, err := availableStock(tx, drink)
			if err != nil {
				return err
			}
			if avail, ok := stock[drinkType]; !ok || diff > avail {
				return fmt.Errorf("%w: only %d more %s available", ErrInsufficientStock, avail, drinkType)
			}
		}
		if err := adjustStock(tx, drinkID, drinkType, diff); err != nil {
			return err
		}

		if quantity == 0 {
			items = append(items[:idx], items[idx+1:]...)
		} else {
			items[idx].Quantity = quantity
		}

		billID, err = saveBill(tx, tableID, items, userName)
		return err
	})
	if err != nil {
		return nil, err
	}

	view := newOpenBill(tableID, billID, items)
	s.publishBill(ctx, view, models.BillOpen, userName)
	if diff > 0 {
		s.checkStock(ctx)
	}
	return view, nil
}

// Checkout closes the open bill of a table. customerID may be nil for a walk-in guest.
func (s *BillingService) Checkout(ctx context.Context, tableID uint, customerID *uint, userName string) (*Invoice, error) {
	var invoice *Invoice

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := findTable(tx, tableID)
		if err != nil {
			return err
		}

		var bill models.Bill
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("table_id = ? AND status = ?", tableID, models.BillOpen).
			Take(&bill).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEmptyBill
		}
		if err != nil {
			return err
		}

		items, err := loadOpenItems(tx, tableID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyBill
		}
		view := newOpenBill(tableID, bill.ID, items)

		inv := &Invoice{
			BillID:       bill.ID,
			Number:       bill.InvoiceNumber(),
			TableID:      table.ID,
			TableName:    table.Name,
			Cashier:      userName,
			Items:        view.Items,
			SubTotal:     view.Total,
			CustomerName: models.GuestCustomerName,
			CheckIn:      bill.DateCheckIn,
			CheckOut:     time.Now(),
		}

		updates := map[string]interface{}{
			"status":            models.BillPaid,
			"sub_total":         inv.SubTotal,
			"date_check_out":    inv.CheckOut,
			"account_user_name": userName,
		}

		if customerID != nil {
			var customer models.Customer
			if err := tx.First(&customer, *customerID).Error; err != nil {
				return notFound(err, "customer %d", *customerID)
			}
			pct, err := s.Loyalty.discountFor(tx, customer.ID)
			if err != nil {
				return err
			}
			inv.CustomerID = &customer.ID
			inv.CustomerCode = customer.CustomerCode
			inv.CustomerName = customer.Name
			inv.DiscountPercent = pct
			updates["customer_id"] = customer.ID
		} else {
			inv.CustomerCode = "KH-" + strings.ToUpper(uuid.NewString()[:8])
			updates["guest_customer_code"] = inv.CustomerCode
		}

		inv.Total = ApplyDiscount(inv.SubTotal, inv.DiscountPercent)
		inv.DiscountAmount = inv.SubTotal - inv.Total
		updates["discount_percent"] = inv.DiscountPercent
		updates["total_amount"] = inv.Total

		if err := tx.Model(&models.Bill{}).Where("id = ?", bill.ID).Updates(updates).Error; err != nil {
			return err
		}
		if err := setTableStatus(tx, tableID, models.TableEmpty); err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Bill %s paid at table %d by %s: subtotal %s, discount %.2f%%, total %s",
		invoice.Number, tableID, userName, utils.FormatCurrency(invoice.SubTotal),
		invoice.DiscountPercent, utils.FormatCurrency(invoice.Total))

	publish(ctx, s.Events, RoutingBillPaid, BillEvent{
		BillID:    invoice.BillID,
		TableID:   tableID,
		Status:    models.BillPaid,
		Lines:     len(invoice.Items),
		SubTotal:  invoice.SubTotal,
		Total:     invoice.Total,
		UserName:  userName,
		Timestamp: invoice.CheckOut,
	})
	return invoice, nil
}

// ApplyDiscount returns subTotal reduced by percent, rounded to whole currency units.
func ApplyDiscount(subTotal, percent float64) float64 {
	if percent <= 0 {
		return utils.RoundMoney(subTotal)
	}
	if percent > 100 {
		percent = 100
	}
	return utils.RoundMoney(subTotal * (1 - percent/100))
}

func (s *BillingService) checkStock(ctx context.Context) {
	if s.Stock == nil {
		return
	}
	if _, err := s.Stock.Check(ctx); err != nil {
		utils.ErrorLogger.Errorf("Error checking stock levels: %v", err)
	}
}

func (s *BillingService) publishBill(ctx context.Context, view *OpenBill, status int, userName string) {
	publish(ctx, s.Events, RoutingBillUpdated, BillEvent{
		BillID:    view.BillID,
		TableID:   view.TableID,
		Status:    status,
		Lines:     len(view.Items),
		SubTotal:  view.Total,
		Total:     view.Total,
		UserName:  userName,
		Timestamp: time.Now(),
	})
}

func validateSelections(selections map[string]int, stock map[string]int) error {
	hasValue := false
	for drinkType, qty := range selections {
		if !models.ValidDrinkType(drinkType) {
			return fmt.Errorf("%w: unknown drink type %q", ErrInvalidInput, drinkType)
		}
		if qty < 0 {
			return fmt.Errorf("%w: quantity for %q must not be negative", ErrInvalidInput, drinkType)
		}
		if qty == 0 {
			continue
		}
		avail, ok := stock[drinkType]
		if !ok {
			return fmt.Errorf("%w: drink is not sold as %q", ErrDrinkNotSellable, drinkType)
		}
		if qty > avail {
			return fmt.Errorf("%w: %q exceeds stock (%d)", ErrInsufficientStock, drinkType, avail)
		}
		hasValue = true
	}
	if !hasValue {
		return fmt.Errorf("%w: enter a quantity greater than 0 for at least one type", ErrInvalidInput)
	}
	return nil
}

func mergeItem(items []BillItem, drink models.Drink, drinkType string, qty int) []BillItem {
	if idx := findItem(items, drink.ID, drinkType); idx >= 0 {
		items[idx].Quantity += qty
		return items
	}
	return append(items, BillItem{
		DrinkID:   drink.ID,
		DrinkName: drink.Name,
		DrinkCode: drink.DrinkCode,
		DrinkType: drinkType,
		Quantity:  qty,
		Price:     drink.ActualPrice,
	})
}

func findItem(items []BillItem, drinkID uint, drinkType string) int {
	for i, item := range items {
		if item.DrinkID == drinkID && item.DrinkType == drinkType {
			return i
		}
	}
	return -1
}

func newOpenBill(tableID, billID uint, items []BillItem) *OpenBill {
	view := &OpenBill{TableID: tableID, BillID: billID, Items: make([]BillItem, 0, len(items))}
	for _, item := range items {
		item.DrinkTypeCode = models.TypeCode(item.DrinkCode, item.DrinkType)
		item.TotalPrice = float64(item.Quantity) * item.Price
		view.Total += item.TotalPrice
		view.Items = append(view.Items, item)
	}
	return view
}

func findTable(tx *gorm.DB, tableID uint) (models.DiningTable, error) {
	var table models.DiningTable
	if err := tx.First(&table, tableID).Error; err != nil {
		return table, notFound(err, "table %d", tableID)
	}
	return table, nil
}

func setTableStatus(tx *gorm.DB, tableID uint, status string) error {
	return tx.Model(&models.DiningTable{}).Where("id = ?", tableID).Update("status", status).Error
}

func loadOpenItems(tx *gorm.DB, tableID uint) ([]BillItem, error) {
	var items []BillItem
	err := tx.Table("bill_infos bi").
		Select("bi.drink_id, d.name AS drink_name, d.drink_code, bi.drink_type, bi.quantity, bi.price").
		Joins("JOIN bills b ON bi.bill_id = b.id").
		Joins("JOIN drinks d ON bi.drink_id = d.id").
		Where("b.table_id = ? AND b.status = ?", tableID, models.BillOpen).
		Order("bi.id").
		Scan(&items).Error
	return items, err
}

// saveBill replaces the lines of the table's open bill. An empty item list
// deletes the open bill and frees the table. Returns the bill ID (0 if none).
func saveBill(tx *gorm.DB, tableID uint, items []BillItem, userName string) (uint, error) {
	var bill models.Bill
	err := tx.Where("table_id = ? AND status = ?", tableID, models.BillOpen).Take(&bill).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	if found {
		if err := tx.Where("bill_id = ?", bill.ID).Delete(&models.BillInfo{}).Error; err != nil {
			return 0, err
		}
	}

	if len(items) == 0 {
		if found {
			if err := tx.Delete(&models.Bill{}, bill.ID).Error; err != nil {
				return 0, err
			}
		}
		return 0, setTableStatus(tx, tableID, models.TableEmpty)
	}

	if !found {
		bill = models.Bill{
			TableID:         tableID,
			Status:          models.BillOpen,
			AccountUserName: userName,
			DateCheckIn:     time.Now(),
		}
		if err := tx.Omit(clause.Associations).Create(&bill).Error; err != nil {
			return 0, err
		}
	}

	infos := make([]models.BillInfo, 0, len(items))
	var total float64
	for _, item := range items {
		infos = append(infos, models.BillInfo{
			BillID:    bill.ID,
			DrinkID:   item.DrinkID,
			DrinkType: item.DrinkType,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
		total += float64(item.Quantity) * item.Price
	}
	if err := tx.Omit(clause.Associations).Create(&infos).Error; err != nil {
		return 0, err
	}

	if err := tx.Model(&models.Bill{}).Where("id = ?", bill.ID).Updates(map[string]interface{}{
		"sub_total":    total,
		"total_amount": total,
	}).Error; err != nil {
		return 0, err
	}
	return bill.ID, setTableStatus(tx, tableID, models.TableOccupied)
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
	}
	return err
}
