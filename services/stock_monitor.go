package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yeremiapane/cafe-pos/hub"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/gorm"
)

// StockMonitor watches material and pre-stocked drink levels and raises a
// stock.low alert when an item drops to the threshold or below. An item is
// reported once per dip; restocking above the threshold re-arms it.
type StockMonitor struct {
	DB        *gorm.DB
	Events    EventPublisher
	Hub       *hub.Hub
	Threshold float64
	Interval  time.Duration
	StopChan  chan struct{}

	mu  sync.Mutex
	low map[string]bool
}

func NewStockMonitor(db *gorm.DB, events EventPublisher, threshold float64) *StockMonitor {
	return &StockMonitor{
		DB:        db,
		Events:    events,
		Hub:       hub.Default(),
		Threshold: threshold,
		Interval:  time.Minute,
		StopChan:  make(chan struct{}),
		low:       make(map[string]bool),
	}
}

func (m *StockMonitor) Start() {
	go func() {
		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := m.Check(context.Background()); err != nil {
					utils.ErrorLogger.Errorf("Error checking stock levels: %v", err)
				}
			case <-m.StopChan:
				return
			}
		}
	}()
}

func (m *StockMonitor) Stop() {
	close(m.StopChan)
}

// Check scans stock levels and returns the alerts raised by this call.
func (m *StockMonitor) Check(ctx context.Context) ([]StockAlert, error) {
	db := m.DB.WithContext(ctx)

	var materials []models.Material
	if err := db.Select("id", "name", "quantity").Where("is_active = ?", true).Find(&materials).Error; err != nil {
		return nil, err
	}
	var drinks []models.Drink
	if err := db.Select("id", "name", "stock_quantity").
		Where("is_active = ? AND original_price > 0", true).Find(&drinks).Error; err != nil {
		return nil, err
	}

	current := make([]StockAlert, 0, len(materials)+len(drinks))
	for _, mat := range materials {
		current = append(current, StockAlert{Kind: "material", ID: mat.ID, Name: mat.Name, Quantity: mat.Quantity})
	}
	for _, d := range drinks {
		current = append(current, StockAlert{Kind: "drink", ID: d.ID, Name: d.Name, Quantity: float64(d.StockQuantity)})
	}

	m.mu.Lock()
	var raised []StockAlert
	for _, item := range current {
		key := fmt.Sprintf("%s:%d", item.Kind, item.ID)
		if item.Quantity <= m.Threshold {
			if !m.low[key] {
				m.low[key] = true
				raised = append(raised, item)
			}
		} else {
			delete(m.low, key)
		}
	}
	m.mu.Unlock()

	for _, alert := range raised {
		utils.InfoLogger.Printf("Low stock: %s %q at %.3f", alert.Kind, alert.Name, alert.Quantity)
		if m.Hub != nil {
			m.Hub.BroadcastStockLow(alert)
		}
		publish(ctx, m.Events, RoutingStockLow, alert)
	}
	return raised, nil
}
