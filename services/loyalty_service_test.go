package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-pos/models"
	"gorm.io/gorm"
)

func TestEvaluateRules(t *testing.T) {
	rules := []models.DiscountRule{
		{CriteriaType: models.CriteriaPurchaseCount, Threshold: 3, DiscountPercent: 5},
		{CriteriaType: models.CriteriaPurchaseCount, Threshold: 10, DiscountPercent: 10},
		{CriteriaType: models.CriteriaTotalSpent, Threshold: 500000, DiscountPercent: 8},
	}

	tests := []struct {
		name  string
		stats CustomerStats
		want  float64
	}{
		{"new customer", CustomerStats{}, 0},
		{"three visits", CustomerStats{PurchaseCount: 3, TotalSpent: 100000}, 5},
		{"big spender", CustomerStats{PurchaseCount: 3, TotalSpent: 500000}, 8},
		{"regular", CustomerStats{PurchaseCount: 12, TotalSpent: 600000}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateRules(rules, tt.stats))
		})
	}
}

func seedPaidBill(t *testing.T, db *gorm.DB, tableID, customerID uint, subTotal, total float64) {
	t.Helper()
	now := time.Now()
	bill := models.Bill{
		TableID:         tableID,
		CustomerID:      &customerID,
		Status:          models.BillPaid,
		SubTotal:        subTotal,
		TotalAmount:     total,
		DateCheckIn:     now,
		DateCheckOut:    &now,
		AccountUserName: "thu.ngan",
	}
	require.NoError(t, db.Omit("Table", "Customer", "BillInfos").Create(&bill).Error)
}

func TestDiscountForAutomaticEvaluation(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := NewLoyaltyService(db)
	ctx := context.Background()

	customer := models.Customer{CustomerCode: "KH0001", Name: "Minh"}
	require.NoError(t, db.Create(&customer).Error)
	require.NoError(t, db.Create(&[]models.DiscountRule{
		{CriteriaType: models.CriteriaPurchaseCount, Threshold: 2, DiscountPercent: 5},
		{CriteriaType: models.CriteriaTotalSpent, Threshold: 100000, DiscountPercent: 7},
	}).Error)

	pct, err := svc.DiscountFor(ctx, customer.ID)
	require.NoError(t, err)
	assert.Zero(t, pct)

	seedPaidBill(t, db, f.Table.ID, customer.ID, 40000, 40000)
	seedPaidBill(t, db, f.Table.ID, customer.ID, 50000, 50000)

	stats, err := svc.Stats(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.PurchaseCount)
	assert.Equal(t, float64(90000), stats.TotalSpent)

	pct, err = svc.DiscountFor(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(5), pct)

	seedPaidBill(t, db, f.Table.ID, customer.ID, 20000, 20000)
	pct, err = svc.DiscountFor(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(7), pct)
}

func TestDiscountForAssignedRulesOverrideAutomatic(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := NewLoyaltyService(db)
	ctx := context.Background()

	customer := models.Customer{CustomerCode: "KH0002", Name: "Hoa"}
	require.NoError(t, db.Create(&customer).Error)
	auto := models.DiscountRule{CriteriaType: models.CriteriaPurchaseCount, Threshold: 1, DiscountPercent: 20}
	assigned := models.DiscountRule{CriteriaType: models.CriteriaTotalSpent, Threshold: 1e9, DiscountPercent: 3}
	require.NoError(t, db.Create(&auto).Error)
	require.NoError(t, db.Create(&assigned).Error)
	seedPaidBill(t, db, f.Table.ID, customer.ID, 10000, 10000)

	pct, err := svc.DiscountFor(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(20), pct)

	require.NoError(t, svc.ReplaceRules(ctx, customer.ID, []uint{assigned.ID}))
	pct, err = svc.DiscountFor(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(3), pct)

	require.NoError(t, svc.ReplaceRules(ctx, customer.ID, nil))
	pct, err = svc.DiscountFor(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(20), pct)
}

func TestApplyRulesKeepsExistingAssignments(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLoyaltyService(db)
	ctx := context.Background()

	customers := []models.Customer{{CustomerCode: "KH0001", Name: "A"}, {CustomerCode: "KH0002", Name: "B"}}
	require.NoError(t, db.Create(&customers).Error)
	rules := []models.DiscountRule{
		{CriteriaType: models.CriteriaPurchaseCount, Threshold: 5, DiscountPercent: 5},
		{CriteriaType: models.CriteriaTotalSpent, Threshold: 1000000, DiscountPercent: 10},
	}
	require.NoError(t, db.Create(&rules).Error)

	require.NoError(t, svc.ApplyRules(ctx, []uint{customers[0].ID}, []uint{rules[0].ID}))
	require.NoError(t, svc.ApplyRules(ctx, []uint{customers[0].ID, customers[1].ID}, []uint{rules[0].ID, rules[1].ID}))

	var count int64
	db.Model(&models.CustomerAppliedRule{}).Count(&count)
	assert.Equal(t, int64(4), count)

	assigned, err := svc.AssignedRules(ctx, customers[1].ID)
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	assert.ErrorIs(t, svc.ApplyRules(ctx, nil, []uint{rules[0].ID}), ErrInvalidInput)
	assert.ErrorIs(t, svc.ApplyRules(ctx, []uint{customers[0].ID}, []uint{999}), ErrNotFound)
	assert.ErrorIs(t, svc.ReplaceRules(ctx, 999, []uint{rules[0].ID}), ErrNotFound)
}

func TestReplaceRulesRollsBackOnUnknownRule(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLoyaltyService(db)
	ctx := context.Background()

	customer := models.Customer{CustomerCode: "KH0001", Name: "A"}
	require.NoError(t, db.Create(&customer).Error)
	rule := models.DiscountRule{CriteriaType: models.CriteriaPurchaseCount, Threshold: 5, DiscountPercent: 5}
	require.NoError(t, db.Create(&rule).Error)
	require.NoError(t, svc.ApplyRules(ctx, []uint{customer.ID}, []uint{rule.ID}))

	err := svc.ReplaceRules(ctx, customer.ID, []uint{rule.ID, 999})
	assert.ErrorIs(t, err, ErrNotFound)

	assigned, err := svc.AssignedRules(ctx, customer.ID)
	require.NoError(t, err)
	assert.Len(t, assigned, 1)
}
