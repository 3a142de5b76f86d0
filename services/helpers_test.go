package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-pos/database"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

type recordedEvent struct {
	Key     string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Key: key, Payload: payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.Key)
	}
	return keys
}

// fixture is a café with one table and a latte that is sold both
// pre-stocked (10 in stock) and made from its recipe (5 makeable).
type fixture struct {
	Table    models.DiningTable
	Category models.Category
	Latte    models.Drink
	Coffee   models.Material
	Milk     models.Material
	Account  models.Account
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	var f fixture

	f.Account = models.Account{UserName: "thu.ngan", DisplayName: "Thu Ngân", Password: "x", Type: models.AccountStaff}
	require.NoError(t, db.Create(&f.Account).Error)

	f.Table = models.DiningTable{Name: "Bàn 1", Capacity: 4, Status: models.TableEmpty}
	require.NoError(t, db.Create(&f.Table).Error)

	f.Category = models.Category{Name: "Cà phê", IsActive: true}
	require.NoError(t, db.Create(&f.Category).Error)

	unit := models.Unit{Name: "gram", Abbreviation: "g", IsActive: true}
	require.NoError(t, db.Create(&unit).Error)

	f.Coffee = models.Material{Name: "Cà phê hạt", UnitID: unit.ID, Quantity: 10, Price: 500, IsActive: true}
	require.NoError(t, db.Create(&f.Coffee).Error)
	f.Milk = models.Material{Name: "Sữa đặc", UnitID: unit.ID, Quantity: 20, Price: 200, IsActive: true}
	require.NoError(t, db.Create(&f.Milk).Error)

	f.Latte = models.Drink{
		DrinkCode:      "CF01",
		Name:           "Cà phê sữa",
		CategoryID:     f.Category.ID,
		OriginalPrice:  10000,
		RecipeCost:     1600,
		ActualPrice:    25000,
		StockQuantity:  10,
		IsActive:       true,
		IsRecipeActive: true,
	}
	require.NoError(t, db.Create(&f.Latte).Error)

	require.NoError(t, db.Create(&[]models.Recipe{
		{DrinkID: f.Latte.ID, MaterialID: f.Coffee.ID, Quantity: 2},
		{DrinkID: f.Latte.ID, MaterialID: f.Milk.ID, Quantity: 3},
	}).Error)
	return f
}

func reloadDrink(t *testing.T, db *gorm.DB, id uint) models.Drink {
	t.Helper()
	var d models.Drink
	require.NoError(t, db.First(&d, id).Error)
	return d
}

func reloadMaterial(t *testing.T, db *gorm.DB, id uint) models.Material {
	t.Helper()
	var m models.Material
	require.NoError(t, db.First(&m, id).Error)
	return m
}
