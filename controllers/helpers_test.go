package controllers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-pos/database"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/router"
	"github.com/yeremiapane/cafe-pos/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	adminPassword = "admin123"
	staffPassword = "staff123"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	R          *gin.Engine
	DB         *gorm.DB
	AdminToken string
	StaffToken string
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// newTestServer wires the full router over a fresh database holding an
// "admin" and a "staff" account.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)

	require.NoError(t, database.SeedAdmin(db, "admin", adminPassword))
	hashed, err := bcrypt.GenerateFromPassword([]byte(staffPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Account{
		UserName:    "staff",
		DisplayName: "Thu Ngân",
		Password:    string(hashed),
		Type:        models.AccountStaff,
	}).Error)

	r, err := router.SetupRouter(db, router.Options{})
	require.NoError(t, err)

	s := &testServer{R: r, DB: db}
	s.AdminToken, err = utils.GenerateToken("admin", models.AccountAdmin)
	require.NoError(t, err)
	s.StaffToken, err = utils.GenerateToken("staff", models.AccountStaff)
	require.NoError(t, err)
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.R.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

// menu is one table and a latte sold pre-stocked (10) and from its recipe
// (5 makeable: 10g coffee / 2g, 20g milk / 3g).
type menu struct {
	Table    models.DiningTable
	Category models.Category
	Unit     models.Unit
	Coffee   models.Material
	Milk     models.Material
	Latte    models.Drink
}

func seedMenu(t *testing.T, db *gorm.DB) menu {
	t.Helper()
	var m menu

	m.Table = models.DiningTable{Name: "Bàn 1", Capacity: 4, Status: models.TableEmpty}
	require.NoError(t, db.Create(&m.Table).Error)
	m.Category = models.Category{Name: "Cà phê", IsActive: true}
	require.NoError(t, db.Create(&m.Category).Error)
	m.Unit = models.Unit{Name: "gram", Abbreviation: "g", IsActive: true}
	require.NoError(t, db.Create(&m.Unit).Error)

	m.Coffee = models.Material{Name: "Cà phê hạt", UnitID: m.Unit.ID, Quantity: 10, Price: 500, IsActive: true}
	require.NoError(t, db.Create(&m.Coffee).Error)
	m.Milk = models.Material{Name: "Sữa đặc", UnitID: m.Unit.ID, Quantity: 20, Price: 200, IsActive: true}
	require.NoError(t, db.Create(&m.Milk).Error)

	m.Latte = models.Drink{
		DrinkCode:      "CF01",
		Name:           "Cà phê sữa",
		CategoryID:     m.Category.ID,
		OriginalPrice:  10000,
		RecipeCost:     1600,
		ActualPrice:    25000,
		StockQuantity:  10,
		IsActive:       true,
		IsRecipeActive: true,
	}
	require.NoError(t, db.Create(&m.Latte).Error)
	require.NoError(t, db.Create(&[]models.Recipe{
		{DrinkID: m.Latte.ID, MaterialID: m.Coffee.ID, Quantity: 2},
		{DrinkID: m.Latte.ID, MaterialID: m.Milk.ID, Quantity: 3},
	}).Error)
	return m
}

// failQueriesOn makes every read of table fail, e.g. a dropped connection.
func failQueriesOn(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(errors.New("connection reset"))
		}
	}))
}
