package config

import (
	"log"

	"github.com/tambolalive/tambola-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// SetupDatabase connects to Postgres and runs migrations for the journal
// tables. The journal is write-behind: live room state never reads from it.
func SetupDatabase(cfg Config) *gorm.DB {
	if cfg.DatabaseURL == "" {
		log.Fatal("[FATAL] DATABASE_URL is required in .env or environment")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("[FATAL] Failed to connect to DB: %v", err)
	}

	if err := db.AutoMigrate(
		&models.GameRecord{},
		&models.TicketRecord{},
		&models.ClaimRecord{},
		&models.SettlementRecord{},
	); err != nil {
		log.Fatalf("[FATAL] Migration failed: %v", err)
	}

	DB = db
	log.Println("[INFO] Database connected and migrated")
	return db
}
