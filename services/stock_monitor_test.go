package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-pos/hub"
	"github.com/yeremiapane/cafe-pos/models"
)

type screenConn struct {
	messages []hub.Message
}

func (s *screenConn) WriteMessage(_ int, data []byte) error {
	var msg hub.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *screenConn) Close() error { return nil }

func TestStockMonitorRaisesOncePerDip(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	events := &recordingPublisher{}
	monitor := NewStockMonitor(db, events, 5)
	monitor.Hub = hub.NewHub()
	screen := &screenConn{}
	monitor.Hub.Register(screen, "thu.ngan")
	ctx := context.Background()

	alerts, err := monitor.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	require.NoError(t, db.Model(&models.Material{}).Where("id = ?", f.Coffee.ID).Update("quantity", 4).Error)
	alerts, err = monitor.Check(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "material", alerts[0].Kind)
	assert.Equal(t, f.Coffee.ID, alerts[0].ID)

	alerts, err = monitor.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	require.NoError(t, db.Model(&models.Material{}).Where("id = ?", f.Coffee.ID).Update("quantity", 50).Error)
	_, err = monitor.Check(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Material{}).Where("id = ?", f.Coffee.ID).Update("quantity", 1).Error)
	alerts, err = monitor.Check(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)

	assert.Equal(t, []string{RoutingStockLow, RoutingStockLow}, events.keys())
	require.Len(t, screen.messages, 2)
	assert.Equal(t, hub.EventStockLow, screen.messages[0].Event)
}

func TestBillingChecksStockAfterDeduction(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	events := &recordingPublisher{}
	svc := NewBillingService(db, events)
	svc.Stock = NewStockMonitor(db, events, 5)
	svc.Stock.Hub = hub.NewHub()

	_, err := svc.AddItems(context.Background(), f.Table.ID, f.Latte.ID, map[string]int{models.DrinkTypeOriginal: 6}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{RoutingBillUpdated, RoutingStockLow}, events.keys())
	alert, ok := events.events[1].Payload.(StockAlert)
	require.True(t, ok)
	assert.Equal(t, "drink", alert.Kind)
	assert.Equal(t, float64(4), alert.Quantity)
}

func TestStockMonitorStartStop(t *testing.T) {
	db := setupTestDB(t)
	monitor := NewStockMonitor(db, LogPublisher{}, 5)
	monitor.Start()
	monitor.Stop()
}
