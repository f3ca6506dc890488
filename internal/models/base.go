package models

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	DSN      string
	LogLevel logger.LogLevel
}

// DefaultCategories are seeded on startup.
var DefaultCategories = []string{
	"Agriculture", "Construction", "Design", "Hospitality", "Marketing",
	"Childcare", "Technology", "Tourism",
}

// InitDB opens the configured database, migrates the schema and seeds
// reference data.
func InitDB(config DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case "", "mysql":
		dialector = mysql.Open(config.DSN)
	case "sqlite":
		dialector = sqlite.Open(config.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	logLevel := config.LogLevel
	if logLevel == 0 {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := SeedCategories(db, DefaultCategories); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Profile{},
		&RefreshToken{},
		&Category{},
		&Offer{},
		&Message{},
		&Grade{},
		&Answer{},
	)
}

// SeedCategories inserts the named categories that do not exist yet.
func SeedCategories(db *gorm.DB, names []string) error {
	for _, name := range names {
		category := Category{Name: name}
		if err := db.FirstOrCreate(&category, Category{Name: name}).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", name, err)
		}
	}
	return nil
}
