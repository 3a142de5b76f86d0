package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-pos/models"
	"gorm.io/gorm"
)

func newBilling(t *testing.T) (*BillingService, fixture, *recordingPublisher) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	events := &recordingPublisher{}
	return NewBillingService(db, events), f, events
}

func TestDrinkStock(t *testing.T) {
	svc, f, _ := newBilling(t)

	stock, err := svc.DrinkStock(context.Background(), f.Latte.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		models.DrinkTypeOriginal: 10,
		models.DrinkTypeRecipe:   5,
	}, stock)
}

func TestDrinkStockNotSellable(t *testing.T) {
	svc, f, _ := newBilling(t)

	plain := models.Drink{DrinkCode: "TR01", Name: "Trà", CategoryID: f.Category.ID, IsActive: true, IsRecipeActive: true}
	require.NoError(t, svc.DB.Create(&plain).Error)

	_, err := svc.DrinkStock(context.Background(), plain.ID)
	assert.ErrorIs(t, err, ErrDrinkNotSellable)

	_, err = svc.DrinkStock(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDrinkStockRecipeInactive(t *testing.T) {
	svc, f, _ := newBilling(t)
	require.NoError(t, svc.DB.Model(&models.Drink{}).Where("id = ?", f.Latte.ID).Update("is_recipe_active", false).Error)

	stock, err := svc.DrinkStock(context.Background(), f.Latte.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{models.DrinkTypeOriginal: 10}, stock)
}

func TestAddItemsMergesLinesAndDeductsStock(t *testing.T) {
	svc, f, events := newBilling(t)
	ctx := context.Background()

	_, err := svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{models.DrinkTypeOriginal: 2}, f.Account.UserName)
	require.NoError(t, err)

	bill, err := svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{
		models.DrinkTypeOriginal: 1,
		models.DrinkTypeRecipe:   1,
	}, f.Account.UserName)
	require.NoError(t, err)

	require.Len(t, bill.Items, 2)
	assert.Equal(t, models.DrinkTypeOriginal, bill.Items[0].DrinkType)
	assert.Equal(t, 3, bill.Items[0].Quantity)
	assert.Equal(t, "CF01_NB", bill.Items[0].DrinkTypeCode)
	assert.Equal(t, models.DrinkTypeRecipe, bill.Items[1].DrinkType)
	assert.Equal(t, 1, bill.Items[1].Quantity)
	assert.Equal(t, "CF01_PC", bill.Items[1].DrinkTypeCode)
	assert.Equal(t, float64(4*25000), bill.Total)

	assert.Equal(t, 7, reloadDrink(t, svc.DB, f.Latte.ID).StockQuantity)
	assert.InDelta(t, 8, reloadMaterial(t, svc.DB, f.Coffee.ID).Quantity, 1e-9)
	assert.InDelta(t, 17, reloadMaterial(t, svc.DB, f.Milk.ID).Quantity, 1e-9)

	var lines int64
	svc.DB.Model(&models.BillInfo{}).Count(&lines)
	assert.Equal(t, int64(2), lines)

	var saved models.Bill
	require.NoError(t, svc.DB.Where("table_id = ?", f.Table.ID).First(&saved).Error)
	assert.Equal(t, models.BillOpen, saved.Status)
	assert.Equal(t, bill.Total, saved.SubTotal)
	assert.Equal(t, bill.Total, saved.TotalAmount)

	tables, err := svc.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, models.TableOccupied, tables[0].Status)

	assert.Equal(t, []string{RoutingBillUpdated, RoutingBillUpdated}, events.keys())
}

func TestAddItemsKeepsPriceOfExistingLine(t *testing.T) {
	svc, f, _ := newBilling(t)
	ctx := context.Background()

	_, err := svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{models.DrinkTypeOriginal: 1}, "")
	require.NoError(t, err)
	require.NoError(t, svc.DB.Model(&models.Drink{}).Where("id = ?", f.Latte.ID).Update("actual_price", 30000).Error)

	bill, err := svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{models.DrinkTypeOriginal: 1}, "")
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, float64(25000), bill.Items[0].Price)
	assert.Equal(t, float64(50000), bill.Total)
}

func TestAddItemsRejectsOverStock(t *testing.T) {
	svc, f, events := newBilling(t)
	ctx := context.Background()

	_, err := svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{
		models.DrinkTypeOriginal: 1,
		models.DrinkTypeRecipe:   6,
	}, "")
	assert.ErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, 10, reloadDrink(t, svc.DB, f.Latte.ID).StockQuantity)
	assert.InDelta(t, 10, reloadMaterial(t, svc.DB, f.Coffee.ID).Quantity, 1e-9)

	var bills int64
	svc.DB.Model(&models.Bill{}).Count(&bills)
	assert.Zero(t, bills)
	assert.Empty(t, events.keys())
}

func TestAddItemsFailedSaveRollsBackStock(t *testing.T) {
	svc, f, events := newBilling(t)
	ctx := context.Background()

	_, err := svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{models.DrinkTypeOriginal: 1}, "")
	require.NoError(t, err)

	diskFull := errors.New("disk full")
	require.NoError(t, svc.DB.Callback().Create().Before("gorm:create").Register("fail_bill_infos", func(tx *gorm.DB) {
		if tx.Statement.Table == "bill_infos" {
			_ = tx.AddError(diskFull)
		}
	}))

	_, err = svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{
		models.DrinkTypeOriginal: 2,
		models.DrinkTypeRecipe:   1,
	}, "")
	assert.ErrorIs(t, err, diskFull)

	assert.Equal(t, 9, reloadDrink(t, svc.DB, f.Latte.ID).StockQuantity)
	assert.InDelta(t, 10, reloadMaterial(t, svc.DB, f.Coffee.ID).Quantity, 1e-9)
	assert.InDelta(t, 20, reloadMaterial(t, svc.DB, f.Milk.ID).Quantity, 1e-9)

	bill, err := svc.OpenBill(ctx, f.Table.ID)
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, 1, bill.Items[0].Quantity)
	assert.Equal(t, []string{RoutingBillUpdated}, events.keys())
}

func TestAddItemsValidation(t *testing.T) {
	svc, f, _ := newBilling(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		tableID    uint
		selections map[string]int
		want       error
	}{
		{"all zero", f.Table.ID, map[string]int{models.DrinkTypeOriginal: 0}, ErrInvalidInput},
		{"negative", f.Table.ID, map[string]int{models.DrinkTypeOriginal: -1}, ErrInvalidInput},
		{"unknown type", f.Table.ID, map[string]int{"Đá xay": 1}, ErrInvalidInput},
		{"missing table", 404, map[string]int{models.DrinkTypeOriginal: 1}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddItems(ctx, tt.tableID, f.Latte.ID, tt.selections, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAddItemsInactiveDrink(t *testing.T) {
	svc, f, _ := newBilling(t)
	require.NoError(t, svc.DB.Model(&models.Drink{}).Where("id = ?", f.Latte.ID).Update("is_active", false).Error)

	_, err := svc.AddItems(context.Background(), f.Table.ID, f.Latte.ID, map[string]int{models.DrinkTypeOriginal: 1}, "")
	assert.ErrorIs(t, err, ErrDrinkNotSellable)
}

func TestRemoveItemRestoresStockAndFreesTable(t *testing.T) {
	svc, f, _ := newBilling(t)
	ctx := context.Background()

	_, err := svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{
		models.DrinkTypeOriginal: 2,
		models.DrinkTypeRecipe:   2,
	}, "")
	require.NoError(t, err)

	bill, err := svc.RemoveItem(ctx, f.Table.ID, f.Latte.ID, models.DrinkTypeRecipe, "")
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)
	assert.InDelta(t, 10, reloadMaterial(t, svc.DB, f.Coffee.ID).Quantity, 1e-9)
	assert.InDelta(t, 20, reloadMaterial(t, svc.DB, f.Milk.ID).Quantity, 1e-9)

	bill, err = svc.RemoveItem(ctx, f.Table.ID, f.Latte.ID, models.DrinkTypeOriginal, "")
	require.NoError(t, err)
	assert.Empty(t, bill.Items)
	assert.Zero(t, bill.BillID)
	assert.Equal(t, 10, reloadDrink(t, svc.DB, f.Latte.ID).StockQuantity)

	var bills int64
	svc.DB.Model(&models.Bill{}).Count(&bills)
	assert.Zero(t, bills)

	var table models.DiningTable
	require.NoError(t, svc.DB.First(&table, f.Table.ID).Error)
	assert.Equal(t, models.TableEmpty, table.Status)

	_, err = svc.RemoveItem(ctx, f.Table.ID, f.Latte.ID, models.DrinkTypeOriginal, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateItemQuantity(t *testing.T) {
	svc, f, _ := newBilling(t)
	ctx := context.Background()

	_, err := svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{models.DrinkTypeOriginal: 4}, "")
	require.NoError(t, err)

	bill, err := svc.UpdateItemQuantity(ctx, f.Table.ID, f.Latte.ID, models.DrinkTypeOriginal, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 1, bill.Items[0].Quantity)
	assert.Equal(t, 9, reloadDrink(t, svc.DB, f.Latte.ID).StockQuantity)

	// 9 left in stock, so the line can grow by 9 at most
	_, err = svc.UpdateItemQuantity(ctx, f.Table.ID, f.Latte.ID, models.DrinkTypeOriginal, 11, "")
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 9, reloadDrink(t, svc.DB, f.Latte.ID).StockQuantity)

	bill, err = svc.UpdateItemQuantity(ctx, f.Table.ID, f.Latte.ID, models.DrinkTypeOriginal, 10, "")
	require.NoError(t, err)
	assert.Equal(t, float64(250000), bill.Total)
	assert.Equal(t, 0, reloadDrink(t, svc.DB, f.Latte.ID).StockQuantity)

	_, err = svc.UpdateItemQuantity(ctx, f.Table.ID, f.Latte.ID, models.DrinkTypeOriginal, -1, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckoutGuest(t *testing.T) {
	svc, f, events := newBilling(t)
	ctx := context.Background()

	_, err := svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{models.DrinkTypeOriginal: 2}, f.Account.UserName)
	require.NoError(t, err)

	inv, err := svc.Checkout(ctx, f.Table.ID, nil, f.Account.UserName)
	require.NoError(t, err)
	assert.Len(t, inv.Number, 6)
	assert.True(t, strings.HasPrefix(inv.CustomerCode, "KH-"))
	assert.Len(t, inv.CustomerCode, 11)
	assert.Equal(t, models.GuestCustomerName, inv.CustomerName)
	assert.Equal(t, float64(50000), inv.SubTotal)
	assert.Equal(t, float64(50000), inv.Total)
	assert.Zero(t, inv.DiscountPercent)

	var bill models.Bill
	require.NoError(t, svc.DB.First(&bill, inv.BillID).Error)
	assert.Equal(t, models.BillPaid, bill.Status)
	assert.NotNil(t, bill.DateCheckOut)
	assert.Equal(t, inv.CustomerCode, bill.GuestCustomerCode)
	assert.Equal(t, f.Account.UserName, bill.AccountUserName)

	open, err := svc.OpenBill(ctx, f.Table.ID)
	require.NoError(t, err)
	assert.Empty(t, open.Items)

	tables, err := svc.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TableEmpty, tables[0].Status)

	assert.Contains(t, events.keys(), RoutingBillPaid)
}

func TestCheckoutAppliesBestAssignedDiscount(t *testing.T) {
	svc, f, _ := newBilling(t)
	ctx := context.Background()

	customer := models.Customer{CustomerCode: "KH0001", Name: "Lan"}
	require.NoError(t, svc.DB.Create(&customer).Error)
	small := models.DiscountRule{CriteriaType: models.CriteriaPurchaseCount, Threshold: 100, DiscountPercent: 5}
	big := models.DiscountRule{CriteriaType: models.CriteriaTotalSpent, Threshold: 1e9, DiscountPercent: 12.5}
	require.NoError(t, svc.DB.Create(&small).Error)
	require.NoError(t, svc.DB.Create(&big).Error)
	require.NoError(t, svc.Loyalty.ApplyRules(ctx, []uint{customer.ID}, []uint{small.ID, big.ID}))

	_, err := svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{models.DrinkTypeOriginal: 3}, "")
	require.NoError(t, err)

	inv, err := svc.Checkout(ctx, f.Table.ID, &customer.ID, f.Account.UserName)
	require.NoError(t, err)
	assert.Equal(t, 12.5, inv.DiscountPercent)
	assert.Equal(t, float64(75000), inv.SubTotal)
	assert.Equal(t, float64(65625), inv.Total)
	assert.Equal(t, float64(9375), inv.DiscountAmount)
	assert.Equal(t, "KH0001", inv.CustomerCode)
	require.NotNil(t, inv.CustomerID)

	var bill models.Bill
	require.NoError(t, svc.DB.First(&bill, inv.BillID).Error)
	require.NotNil(t, bill.CustomerID)
	assert.Equal(t, customer.ID, *bill.CustomerID)
	assert.Equal(t, float64(65625), bill.TotalAmount)
}

func TestCheckoutErrors(t *testing.T) {
	svc, f, _ := newBilling(t)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, f.Table.ID, nil, "")
	assert.ErrorIs(t, err, ErrEmptyBill)

	_, err = svc.Checkout(ctx, 404, nil, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddItems(ctx, f.Table.ID, f.Latte.ID, map[string]int{models.DrinkTypeOriginal: 1}, "")
	require.NoError(t, err)
	missing := uint(77)
	_, err = svc.Checkout(ctx, f.Table.ID, &missing, "")
	assert.ErrorIs(t, err, ErrNotFound)

	open, err := svc.OpenBill(ctx, f.Table.ID)
	require.NoError(t, err)
	assert.Len(t, open.Items, 1)
}

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		subTotal, percent, want float64
	}{
		{100000, 0, 100000},
		{100000, 10, 90000},
		{99999, 15, 84999},
		{50000, 100, 0},
		{50000, 150, 0},
		{50000, -5, 50000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ApplyDiscount(tt.subTotal, tt.percent), "%v at %v%%", tt.subTotal, tt.percent)
	}
}

func TestMenuFiltersByCategory(t *testing.T) {
	svc, f, _ := newBilling(t)
	ctx := context.Background()

	other := models.Category{Name: "Trà", IsActive: true}
	require.NoError(t, svc.DB.Create(&other).Error)
	tea := models.Drink{DrinkCode: "TR01", Name: "Trà đào", CategoryID: other.ID, IsActive: true}
	require.NoError(t, svc.DB.Create(&tea).Error)

	all, err := svc.Menu(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	coffee, err := svc.Menu(ctx, f.Category.ID)
	require.NoError(t, err)
	require.Len(t, coffee, 1)
	assert.Equal(t, "CF01", coffee[0].DrinkCode)
}
