package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yeremiapane/cafe-pos/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	RabbitMQ RabbitMQConfig
	Seed     SeedConfig

	LogLevel       string
	CurrencySuffix string
	LowStockLevel  float64
	// minutes between background stock checks
	StockCheckInterval int
}

type ServerConfig struct {
	Port       string
	GinMode    string
	CORSOrigin string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutes
}

type JWTConfig struct {
	Secret   string
	TTLHours int
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type SeedConfig struct {
	AdminUserName string
	AdminPassword string
	SQLFile       string
}

// Load reads .env (if any) and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && utils.InfoLogger != nil {
		utils.InfoLogger.Println("Warning: .env file not found, using environment only")
	}

	return &Config{
		Server: ServerConfig{
			Port:       getEnv("PORT", "8080"),
			GinMode:    getEnv("GIN_MODE", "debug"),
			CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", ""),
			User:            getEnv("DB_USER", "root"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "cafe"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsInt("DB_CONN_MAX_LIFETIME", 30),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			TTLHours: getEnvAsInt("JWT_TTL_HOURS", 12),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "cafe.events"),
		},
		Seed: SeedConfig{
			AdminUserName: getEnv("SEED_ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", "admin"),
			SQLFile:       getEnv("SEED_SQL_FILE", "database/migrations/seed.sql"),
		},
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CurrencySuffix: getEnv("CURRENCY_SUFFIX", "VNĐ"),
		LowStockLevel:  getEnvAsFloat("LOW_STOCK_LEVEL", 5),

		StockCheckInterval: getEnvAsInt("STOCK_CHECK_INTERVAL", 5),
	}
}

// DSNFor builds a driver specific DSN when DB_DSN is not given.
func (d DatabaseConfig) DSNFor() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "mysql":
		port := d.Port
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User, d.Password, d.Host, port, d.Name)
	case "postgres":
		port := d.Port
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			d.Host, port, d.User, d.Password, d.Name)
	default:
		return d.Name + ".db"
	}
}

// InitDB opens the gorm connection for the configured driver and tunes the pool.
func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	dsn := cfg.Database.DSNFor()

	switch cfg.Database.Driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	utils.InfoLogger.Printf("Connected to %s database", cfg.Database.Driver)
	return db, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsFloat(key string, fallback float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}
