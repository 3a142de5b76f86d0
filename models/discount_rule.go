package models

import "time"

// Criteria a DiscountRule is measured against.
const (
	CriteriaPurchaseCount = "Số lần mua"
	CriteriaTotalSpent    = "Tổng chi tiêu"
)

type DiscountRule struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CriteriaType    string    `gorm:"type:varchar(50);not null" json:"criteria_type"`
	Threshold       float64   `gorm:"type:decimal(14,2);not null" json:"threshold"`
	DiscountPercent float64   `gorm:"type:decimal(5,2);not null" json:"discount_percent"`
	CreatedAt       time.Time `json:"created_at"`
}

type CustomerAppliedRule struct {
	CustomerID     uint `gorm:"primaryKey;autoIncrement:false"`
	DiscountRuleID uint `gorm:"primaryKey;autoIncrement:false"`
}

func ValidCriteria(criteria string) bool {
	return criteria == CriteriaPurchaseCount || criteria == CriteriaTotalSpent
}
