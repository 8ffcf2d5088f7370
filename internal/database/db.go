package database

import (
	"log"
	"os"

	"github.com/justsurfingit/jobtrack/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens the configured database and runs migrations.
// DB_DRIVER selects the backend: "sqlite" (default, local single-user
// file) or "postgres". DB_DSN overrides the connection string.
func Connect() *gorm.DB {
	driver := os.Getenv("DB_DRIVER")
	dsn := os.Getenv("DB_DSN")

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		if dsn == "" {
			dsn = "host=localhost user=postgres password=password dbname=jobtrack port=5432 sslmode=disable"
		}
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		if dsn == "" {
			dsn = "tracker.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		log.Fatalf("Unknown DB_DRIVER %q (want sqlite or postgres)", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	log.Println("Database connection established")

	log.Println("Running Migrations...")
	if err := db.AutoMigrate(
		&models.Application{},
		&models.StageTransition{},
		&models.Note{},
		&models.ProcessedEmail{},
		&models.SyncState{},
	); err != nil {
		log.Fatal("Migration failed:", err)
	}
	return db
}
