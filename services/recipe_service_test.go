package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-pos/models"
)

func TestMaxMakeable(t *testing.T) {
	tests := []struct {
		name  string
		lines []StockLine
		want  int
	}{
		{"no lines", nil, 0},
		{"single", []StockLine{{RecipeQuantity: 2, StockQuantity: 7}}, 3},
		{"min over lines", []StockLine{{RecipeQuantity: 2, StockQuantity: 10}, {RecipeQuantity: 3, StockQuantity: 20}}, 5},
		{"float stock", []StockLine{{RecipeQuantity: 0.1, StockQuantity: 0.3}}, 3},
		{"negative stock", []StockLine{{RecipeQuantity: 1, StockQuantity: -2}}, 0},
		{"not enough", []StockLine{{RecipeQuantity: 5, StockQuantity: 4.9}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxMakeable(tt.lines))
		})
	}
}

func TestRecipeSaveReplacesLinesAndSetsCost(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := NewRecipeService(db)
	ctx := context.Background()

	cost, err := svc.Save(ctx, f.Latte.ID, []RecipeLineInput{
		{MaterialID: f.Coffee.ID, Quantity: 1.5},
	}, 28000)
	require.NoError(t, err)
	assert.Equal(t, float64(750), cost)

	var recipes []models.Recipe
	require.NoError(t, db.Where("drink_id = ?", f.Latte.ID).Find(&recipes).Error)
	require.Len(t, recipes, 1)
	assert.Equal(t, f.Coffee.ID, recipes[0].MaterialID)

	drink := reloadDrink(t, db, f.Latte.ID)
	assert.Equal(t, float64(750), drink.RecipeCost)
	assert.Equal(t, float64(28000), drink.ActualPrice)

	lines, err := svc.Lines(ctx, f.Latte.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Cà phê hạt", lines[0].MaterialName)
	assert.Equal(t, "gram", lines[0].UnitName)
	assert.InDelta(t, 750, lines[0].LineCost, 1e-9)
}

func TestRecipeSaveValidation(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := NewRecipeService(db)
	ctx := context.Background()

	tests := []struct {
		name  string
		lines []RecipeLineInput
		price float64
		want  error
	}{
		{"empty", nil, 1000, ErrInvalidInput},
		{"zero quantity", []RecipeLineInput{{MaterialID: f.Coffee.ID, Quantity: 0}}, 1000, ErrInvalidInput},
		{"duplicate", []RecipeLineInput{{MaterialID: f.Coffee.ID, Quantity: 1}, {MaterialID: f.Coffee.ID, Quantity: 2}}, 1000, ErrInvalidInput},
		{"negative price", []RecipeLineInput{{MaterialID: f.Coffee.ID, Quantity: 1}}, -1, ErrInvalidInput},
		{"unknown material", []RecipeLineInput{{MaterialID: 999, Quantity: 1}}, 1000, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(ctx, f.Latte.ID, tt.lines, tt.price)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// the original recipe survives every failed save
	var count int64
	db.Model(&models.Recipe{}).Where("drink_id = ?", f.Latte.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestRecipeCostPreview(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := NewRecipeService(db)

	cost, err := svc.Cost(context.Background(), []RecipeLineInput{
		{MaterialID: f.Coffee.ID, Quantity: 2},
		{MaterialID: f.Milk.ID, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(1600), cost)
	assert.Equal(t, float64(1600), reloadDrink(t, db, f.Latte.ID).RecipeCost)
}

func TestRecipeSummary(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := NewRecipeService(db)

	plain := models.Drink{DrinkCode: "NC01", Name: "Nước cam", CategoryID: f.Category.ID, ActualPrice: 20000, IsActive: true}
	require.NoError(t, db.Create(&plain).Error)

	summaries, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byCode := map[string]RecipeSummary{}
	for _, s := range summaries {
		byCode[s.DrinkCode] = s
	}
	latte := byCode["CF01"]
	assert.Equal(t, "Cà phê hạt(2) + Sữa đặc(3)", latte.Summary)
	assert.Equal(t, float64(1600), latte.TotalCost)
	assert.Equal(t, 5, latte.MaxMakeable)

	juice := byCode["NC01"]
	assert.Equal(t, "None", juice.Summary)
	assert.Zero(t, juice.MaxMakeable)
}

func TestRecipeDeleteAndSetActive(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := NewRecipeService(db)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, f.Latte.ID))
	var count int64
	db.Model(&models.Recipe{}).Where("drink_id = ?", f.Latte.ID).Count(&count)
	assert.Zero(t, count)
	assert.Zero(t, reloadDrink(t, db, f.Latte.ID).RecipeCost)

	require.NoError(t, svc.SetActive(ctx, f.Latte.ID, false))
	assert.False(t, reloadDrink(t, db, f.Latte.ID).IsRecipeActive)

	assert.ErrorIs(t, svc.SetActive(ctx, 999, true), ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 999), ErrNotFound)
}
