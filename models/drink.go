package models

import "time"

// Drink types stored on bill lines. A drink can be sold pre-stocked,
// made from its recipe, or both.
const (
	DrinkTypeOriginal = "Nguyên bản"
	DrinkTypeRecipe   = "Pha chế"
)

type Drink struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DrinkCode      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"drink_code"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	CategoryID     uint      `gorm:"not null" json:"category_id"`
	Category       Category  `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	OriginalPrice  float64   `gorm:"type:decimal(12,2);not null;default:0" json:"original_price"`
	RecipeCost     float64   `gorm:"type:decimal(12,2);not null;default:0" json:"recipe_cost"`
	ActualPrice    float64   `gorm:"type:decimal(12,2);not null;default:0" json:"actual_price"`
	StockQuantity  int       `gorm:"not null;default:0" json:"stock_quantity"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	IsRecipeActive bool      `gorm:"not null;default:true" json:"is_recipe_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TypeCode returns e.g. "CF01_NB" for the pre-stocked variant and "CF01_PC" for the recipe one.
func TypeCode(drinkCode, drinkType string) string {
	if drinkType == DrinkTypeOriginal {
		return drinkCode + "_NB"
	}
	return drinkCode + "_PC"
}

// ShortType is the abbreviation printed on invoices.
func ShortType(drinkType string) string {
	switch drinkType {
	case DrinkTypeOriginal:
		return "NB"
	case DrinkTypeRecipe:
		return "PC"
	default:
		return drinkType
	}
}

func ValidDrinkType(drinkType string) bool {
	return drinkType == DrinkTypeOriginal || drinkType == DrinkTypeRecipe
}

// Menu labels for which variants a drink can be sold as.
const (
	TypeLabelBoth       = "Nguyên bản/Pha chế"
	TypeLabelUnassigned = "Chưa gán"
)

func TypeLabel(preStocked, hasRecipe bool) string {
	switch {
	case preStocked && hasRecipe:
		return TypeLabelBoth
	case preStocked:
		return DrinkTypeOriginal
	case hasRecipe:
		return DrinkTypeRecipe
	default:
		return TypeLabelUnassigned
	}
}
