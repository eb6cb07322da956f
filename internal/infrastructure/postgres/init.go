package postgres

import (
	"fmt"
	"log"

	"github.com/LavaJover/shvark-checkout-service/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func MustInitDB(cfg *config.CheckoutConfig) *gorm.DB {
	db, err := InitDB(cfg.CheckoutDB.Dsn)
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}
	return db
}

func InitDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("checkout_db.dsn is empty")
	}
	// TranslateError maps unique violations to gorm.ErrDuplicatedKey
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}
