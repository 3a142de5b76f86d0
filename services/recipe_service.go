package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockLine pairs what one drink needs of a material with what is in stock.
type StockLine struct {
	MaterialID     uint    `json:"material_id"`
	RecipeQuantity float64 `json:"recipe_quantity"`
	StockQuantity  float64 `json:"stock_quantity"`
}

// MaxMakeable is the number of drinks the stock can still produce:
// the minimum over lines of floor(stock / needed). No lines means 0.
func MaxMakeable(lines []StockLine) int {
	if len(lines) == 0 {
		return 0
	}
	maxCount := math.MaxInt32
	for _, line := range lines {
		if line.RecipeQuantity <= 0 {
			continue
		}
		n := int(math.Floor(line.StockQuantity/line.RecipeQuantity + 1e-9))
		if n < maxCount {
			maxCount = n
		}
	}
	if maxCount == math.MaxInt32 || maxCount < 0 {
		return 0
	}
	return maxCount
}

func recipeStock(tx *gorm.DB, drinkID uint) ([]StockLine, error) {
	var lines []StockLine
	err := tx.Table("recipes r").
		Select("r.material_id, r.quantity AS recipe_quantity, m.quantity AS stock_quantity").
		Joins("JOIN materials m ON r.material_id = m.id").
		Where("r.drink_id = ?", drinkID).
		Order("r.material_id").
		Scan(&lines).Error
	return lines, err
}

// availableStock maps each drink type the drink is sold as to the
// quantity that can still be sold.
func availableStock(tx *gorm.DB, drink models.Drink) (map[string]int, error) {
	stock := make(map[string]int)
	if drink.OriginalPrice > 0 {
		stock[models.DrinkTypeOriginal] = drink.StockQuantity
	}
	if drink.IsRecipeActive {
		lines, err := recipeStock(tx, drink.ID)
		if err != nil {
			return nil, err
		}
		if len(lines) > 0 {
			stock[models.DrinkTypeRecipe] = MaxMakeable(lines)
		}
	}
	return stock, nil
}

// adjustStock takes delta units of a drink type out of stock; a negative
// delta puts them back.
func adjustStock(tx *gorm.DB, drinkID uint, drinkType string, delta int) error {
	if delta == 0 {
		return nil
	}
	switch drinkType {
	case models.DrinkTypeOriginal:
		return tx.Model(&models.Drink{}).Where("id = ?", drinkID).
			Update("stock_quantity", gorm.Expr("stock_quantity - ?", delta)).Error
	case models.DrinkTypeRecipe:
		var recipes []models.Recipe
		if err := tx.Where("drink_id = ?", drinkID).Find(&recipes).Error; err != nil {
			return err
		}
		for _, r := range recipes {
			if err := tx.Model(&models.Material{}).Where("id = ?", r.MaterialID).
				Update("quantity", gorm.Expr("quantity - ?", r.Quantity*float64(delta))).Error; err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown drink type %q", ErrInvalidInput, drinkType)
	}
}

type RecipeLineInput struct {
	MaterialID uint    `json:"material_id" binding:"required"`
	Quantity   float64 `json:"quantity"`
}

type RecipeLine struct {
	MaterialID   uint    `json:"material_id"`
	MaterialName string  `json:"material_name"`
	Quantity     float64 `json:"quantity"`
	UnitName     string  `json:"unit_name"`
	UnitPrice    float64 `json:"unit_price"`
	LineCost     float64 `json:"line_cost"`
}

type RecipeSummary struct {
	DrinkID     uint    `json:"drink_id"`
	DrinkCode   string  `json:"drink_code"`
	DrinkName   string  `json:"drink_name"`
	ActualPrice float64 `json:"actual_price"`
	IsActive    bool    `json:"is_recipe_active"`
	Summary     string  `json:"summary"`
	TotalCost   float64 `json:"total_cost"`
	MaxMakeable int     `json:"max_makeable"`
}

type RecipeService struct {
	DB *gorm.DB
}

func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{DB: db}
}

func (s *RecipeService) Summary(ctx context.Context) ([]RecipeSummary, error) {
	db := s.DB.WithContext(ctx)

	var drinks []models.Drink
	if err := db.Order("name").Find(&drinks).Error; err != nil {
		return nil, err
	}

	type row struct {
		DrinkID        uint
		MaterialID     uint
		MaterialName   string
		RecipeQuantity float64
		StockQuantity  float64
		Price          float64
	}
	var rows []row
	err := db.Table("recipes r").
		Select("r.drink_id, r.material_id, m.name AS material_name, r.quantity AS recipe_quantity, m.quantity AS stock_quantity, m.price").
		Joins("JOIN materials m ON r.material_id = m.id").
		Order("r.drink_id, m.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byDrink := make(map[uint][]row)
	for _, r := range rows {
		byDrink[r.DrinkID] = append(byDrink[r.DrinkID], r)
	}

	result := make([]RecipeSummary, 0, len(drinks))
	for _, d := range drinks {
		summary := RecipeSummary{
			DrinkID:     d.ID,
			DrinkCode:   d.DrinkCode,
			DrinkName:   d.Name,
			ActualPrice: d.ActualPrice,
			IsActive:    d.IsRecipeActive,
			Summary:     "None",
		}
		lines := byDrink[d.ID]
		if len(lines) > 0 {
			parts := make([]string, 0, len(lines))
			stock := make([]StockLine, 0, len(lines))
			for _, l := range lines {
				parts = append(parts, fmt.Sprintf("%s(%s)", l.MaterialName, formatQuantity(l.RecipeQuantity)))
				stock = append(stock, StockLine{MaterialID: l.MaterialID, RecipeQuantity: l.RecipeQuantity, StockQuantity: l.StockQuantity})
				summary.TotalCost += l.RecipeQuantity * l.Price
			}
			summary.Summary = strings.Join(parts, " + ")
			summary.MaxMakeable = MaxMakeable(stock)
		}
		result = append(result, summary)
	}
	return result, nil
}

func (s *RecipeService) Lines(ctx context.Context, drinkID uint) ([]RecipeLine, error) {
	db := s.DB.WithContext(ctx)
	var drink models.Drink
	if err := db.Select("id").First(&drink, drinkID).Error; err != nil {
		return nil, notFound(err, "drink %d", drinkID)
	}

	var lines []RecipeLine
	err := db.Table("recipes r").
		Select(`r.material_id, m.name AS material_name, r.quantity, COALESCE(u.name, '') AS unit_name,
			m.price AS unit_price, r.quantity * m.price AS line_cost`).
		Joins("JOIN materials m ON r.material_id = m.id").
		Joins("LEFT JOIN units u ON m.unit_id = u.id").
		Where("r.drink_id = ?", drinkID).
		Order("m.name").
		Scan(&lines).Error
	return lines, err
}

// Cost previews the recipe cost of lines without saving anything.
func (s *RecipeService) Cost(ctx context.Context, lines []RecipeLineInput) (float64, error) {
	if err := validateRecipeLines(lines); err != nil {
		return 0, err
	}
	prices, err := materialPrices(s.DB.WithContext(ctx), lines)
	if err != nil {
		return 0, err
	}
	return recipeCost(lines, prices), nil
}

// Save replaces the drink's recipe and sets its recipe cost and sell price.
func (s *RecipeService) Save(ctx context.Context, drinkID uint, lines []RecipeLineInput, actualPrice float64) (float64, error) {
	if actualPrice < 0 {
		return 0, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("%w: a recipe needs at least one material", ErrInvalidInput)
	}
	if err := validateRecipeLines(lines); err != nil {
		return 0, err
	}

	var cost float64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var drink models.Drink
		if err := tx.First(&drink, drinkID).Error; err != nil {
			return notFound(err, "drink %d", drinkID)
		}
		prices, err := materialPrices(tx, lines)
		if err != nil {
			return err
		}
		cost = recipeCost(lines, prices)

		if err := tx.Where("drink_id = ?", drinkID).Delete(&models.Recipe{}).Error; err != nil {
			return err
		}
		recipes := make([]models.Recipe, 0, len(lines))
		for _, l := range lines {
			recipes = append(recipes, models.Recipe{DrinkID: drinkID, MaterialID: l.MaterialID, Quantity: l.Quantity})
		}
		if err := tx.Omit(clause.Associations).Create(&recipes).Error; err != nil {
			return err
		}
		return tx.Model(&models.Drink{}).Where("id = ?", drinkID).Updates(map[string]interface{}{
			"recipe_cost":  cost,
			"actual_price": actualPrice,
		}).Error
	})
	if err != nil {
		return 0, err
	}

	utils.InfoLogger.Printf("Recipe for drink %d saved: %d materials, cost %s",
		drinkID, len(lines), utils.FormatCurrency(cost))
	return cost, nil
}

func (s *RecipeService) Delete(ctx context.Context, drinkID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var drink models.Drink
		if err := tx.Select("id").First(&drink, drinkID).Error; err != nil {
			return notFound(err, "drink %d", drinkID)
		}
		if err := tx.Where("drink_id = ?", drinkID).Delete(&models.Recipe{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Drink{}).Where("id = ?", drinkID).Update("recipe_cost", 0).Error
	})
}

func (s *RecipeService) SetActive(ctx context.Context, drinkID uint, active bool) error {
	db := s.DB.WithContext(ctx)
	var drink models.Drink
	if err := db.Select("id").First(&drink, drinkID).Error; err != nil {
		return notFound(err, "drink %d", drinkID)
	}
	return db.Model(&models.Drink{}).Where("id = ?", drinkID).Update("is_recipe_active", active).Error
}

func validateRecipeLines(lines []RecipeLineInput) error {
	seen := make(map[uint]bool, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for material %d must be greater than 0", ErrInvalidInput, l.MaterialID)
		}
		if seen[l.MaterialID] {
			return fmt.Errorf("%w: material %d appears twice", ErrInvalidInput, l.MaterialID)
		}
		seen[l.MaterialID] = true
	}
	return nil
}

func materialPrices(tx *gorm.DB, lines []RecipeLineInput) (map[uint]float64, error) {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MaterialID)
	}
	var materials []models.Material
	if err := tx.Select("id", "price").Where("id IN ?", ids).Find(&materials).Error; err != nil {
		return nil, err
	}
	prices := make(map[uint]float64, len(materials))
	for _, m := range materials {
		prices[m.ID] = m.Price
	}

	missing := make([]uint, 0)
	for _, id := range ids {
		if _, ok := prices[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return nil, fmt.Errorf("%w: materials %v", ErrNotFound, missing)
	}
	return prices, nil
}

func recipeCost(lines []RecipeLineInput, prices map[uint]float64) float64 {
	var cost float64
	for _, l := range lines {
		cost += prices[l.MaterialID] * l.Quantity
	}
	return cost
}

func formatQuantity(q float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", q), "0"), ".")
}
