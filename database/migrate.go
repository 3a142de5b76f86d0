package database

import (
	"errors"
	"os"
	"strings"

	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AllModels lists every table in creation order.
func AllModels() []interface{} {
	return []interface{}{
		&models.Account{},
		&models.Category{},
		&models.Unit{},
		&models.Material{},
		&models.Drink{},
		&models.Recipe{},
		&models.DiningTable{},
		&models.Customer{},
		&models.DiscountRule{},
		&models.CustomerAppliedRule{},
		&models.Bill{},
		&models.BillInfo{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// SeedAdmin creates the first admin account when the accounts table is empty.
func SeedAdmin(db *gorm.DB, userName, password string) error {
	var count int64
	if err := db.Model(&models.Account{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.Account{
		UserName:    userName,
		DisplayName: "Administrator",
		Password:    string(hashed),
		Type:        models.AccountAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	utils.InfoLogger.Printf("Seeded admin account %q", userName)
	return nil
}

// ExecuteSQLFile runs a seed script. Statements are separated by ';' at line end,
// lines starting with "--" are skipped. A missing file is not an error.
func ExecuteSQLFile(db *gorm.DB, path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		utils.InfoLogger.Printf("Seed file %s not found, skipping", path)
		return nil
	}
	if err != nil {
		return err
	}

	executed := 0
	for _, stmt := range SplitStatements(string(raw)) {
		if err := db.Exec(stmt).Error; err != nil {
			utils.ErrorLogger.Errorf("Error executing seed statement: %v\nStatement: %s", err, stmt)
			continue
		}
		executed++
	}
	utils.InfoLogger.Printf("Executed %d statements from %s", executed, path)
	return nil
}

// SeedSampleData runs the seed script only on a fresh database (no tables yet).
func SeedSampleData(db *gorm.DB, path string) error {
	var tables int64
	if err := db.Model(&models.DiningTable{}).Count(&tables).Error; err != nil {
		return err
	}
	if tables > 0 {
		return nil
	}
	return ExecuteSQLFile(db, path)
}

func SplitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";")
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
