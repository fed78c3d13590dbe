package database

import (
	"optipos-backend/internal/config"
	"optipos-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		config.Logger().Fatalf("could not connect to database: %v", err)
	}

	if err := Migrate(DB); err != nil {
		config.Logger().Fatalf("auto migration failed: %v", err)
	}

	config.Logger().Info("database connected, migrations complete")
}

// LockForUpdate takes a row-level write lock on the rows the query
// selects. SQLite has no FOR UPDATE and serializes writers anyway, so
// the clause is only added on Postgres.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// Migrate runs schema migration for every model. Split out of Init so
// tests can run it against an in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Customer{},
		&models.Supplier{},
		&models.Category{},
		&models.Item{},
		&models.StockMovement{},
		&models.Purchase{},
		&models.PurchaseItem{},
		&models.Sale{},
		&models.SaleItem{},
		&models.Payment{},
		&models.Prescription{},
		&models.LensOrder{},
		&models.LensOrderStatusLog{},
		&models.AuditLog{},
	)
}
