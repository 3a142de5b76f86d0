package services

import (
	"context"
	"fmt"

	"github.com/yeremiapane/cafe-pos/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerStats are measured over a customer's paid bills.
type CustomerStats struct {
	PurchaseCount int64   `json:"purchase_count"`
	TotalSpent    float64 `json:"total_spent"`
}

type LoyaltyService struct {
	DB *gorm.DB
}

func NewLoyaltyService(db *gorm.DB) *LoyaltyService {
	return &LoyaltyService{DB: db}
}

// DiscountFor returns the percent a customer gets at checkout. Assigned rules
// win outright; without any, every rule is evaluated against the customer's
// history. The best qualifying percent is used.
func (s *LoyaltyService) DiscountFor(ctx context.Context, customerID uint) (float64, error) {
	return s.discountFor(s.DB.WithContext(ctx), customerID)
}

func (s *LoyaltyService) discountFor(tx *gorm.DB, customerID uint) (float64, error) {
	var assigned []float64
	err := tx.Table("customer_applied_rules car").
		Joins("JOIN discount_rules dr ON dr.id = car.discount_rule_id").
		Where("car.customer_id = ?", customerID).
		Pluck("dr.discount_percent", &assigned).Error
	if err != nil {
		return 0, err
	}
	if len(assigned) > 0 {
		return maxPercent(assigned), nil
	}

	stats, err := customerStats(tx, customerID)
	if err != nil {
		return 0, err
	}
	var rules []models.DiscountRule
	if err := tx.Find(&rules).Error; err != nil {
		return 0, err
	}
	return EvaluateRules(rules, stats), nil
}

// EvaluateRules returns the highest percent among the rules the stats satisfy.
func EvaluateRules(rules []models.DiscountRule, stats CustomerStats) float64 {
	var qualifying []float64
	for _, r := range rules {
		switch r.CriteriaType {
		case models.CriteriaPurchaseCount:
			if float64(stats.PurchaseCount) >= r.Threshold {
				qualifying = append(qualifying, r.DiscountPercent)
			}
		case models.CriteriaTotalSpent:
			if stats.TotalSpent >= r.Threshold {
				qualifying = append(qualifying, r.DiscountPercent)
			}
		}
	}
	return maxPercent(qualifying)
}

func (s *LoyaltyService) Stats(ctx context.Context, customerID uint) (CustomerStats, error) {
	return customerStats(s.DB.WithContext(ctx), customerID)
}

func customerStats(tx *gorm.DB, customerID uint) (CustomerStats, error) {
	var stats CustomerStats
	err := tx.Model(&models.Bill{}).
		Select("COUNT(*) AS purchase_count, COALESCE(SUM(total_amount), 0) AS total_spent").
		Where("customer_id = ? AND status = ?", customerID, models.BillPaid).
		Scan(&stats).Error
	return stats, err
}

// ApplyRules assigns every rule to every customer, keeping existing assignments.
func (s *LoyaltyService) ApplyRules(ctx context.Context, customerIDs, ruleIDs []uint) error {
	if len(customerIDs) == 0 || len(ruleIDs) == 0 {
		return fmt.Errorf("%w: select at least one customer and one rule", ErrInvalidInput)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkIDs(tx, &models.Customer{}, customerIDs, "customers"); err != nil {
			return err
		}
		if err := checkIDs(tx, &models.DiscountRule{}, ruleIDs, "discount rules"); err != nil {
			return err
		}
		rows := make([]models.CustomerAppliedRule, 0, len(customerIDs)*len(ruleIDs))
		for _, c := range customerIDs {
			for _, r := range ruleIDs {
				rows = append(rows, models.CustomerAppliedRule{CustomerID: c, DiscountRuleID: r})
			}
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

// ReplaceRules sets a customer's assigned rules to exactly ruleIDs. An empty
// list puts the customer back on automatic evaluation.
func (s *LoyaltyService) ReplaceRules(ctx context.Context, customerID uint, ruleIDs []uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkIDs(tx, &models.Customer{}, []uint{customerID}, "customers"); err != nil {
			return err
		}
		if err := tx.Where("customer_id = ?", customerID).Delete(&models.CustomerAppliedRule{}).Error; err != nil {
			return err
		}
		if len(ruleIDs) == 0 {
			return nil
		}
		if err := checkIDs(tx, &models.DiscountRule{}, ruleIDs, "discount rules"); err != nil {
			return err
		}
		rows := make([]models.CustomerAppliedRule, 0, len(ruleIDs))
		seen := make(map[uint]bool, len(ruleIDs))
		for _, r := range ruleIDs {
			if seen[r] {
				continue
			}
			seen[r] = true
			rows = append(rows, models.CustomerAppliedRule{CustomerID: customerID, DiscountRuleID: r})
		}
		return tx.Create(&rows).Error
	})
}

func (s *LoyaltyService) AssignedRules(ctx context.Context, customerID uint) ([]models.DiscountRule, error) {
	var rules []models.DiscountRule
	err := s.DB.WithContext(ctx).
		Joins("JOIN customer_applied_rules car ON car.discount_rule_id = discount_rules.id").
		Where("car.customer_id = ?", customerID).
		Order("discount_rules.criteria_type, discount_rules.threshold").
		Find(&rules).Error
	return rules, err
}

func checkIDs(tx *gorm.DB, model interface{}, ids []uint, what string) error {
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	var count int64
	if err := tx.Model(model).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(unique) {
		return fmt.Errorf("%w: some %s do not exist", ErrNotFound, what)
	}
	return nil
}

func maxPercent(values []float64) float64 {
	var best float64
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return best
}
