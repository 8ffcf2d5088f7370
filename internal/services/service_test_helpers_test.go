package services

import (
	"path/filepath"
	"testing"

	"github.com/justsurfingit/jobtrack/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB gives each test its own SQLite database in a temp dir with
// migrations applied. A file database, not :memory:, so every pooled
// connection sees the same data.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Application{},
		&models.StageTransition{},
		&models.Note{},
		&models.ProcessedEmail{},
		&models.SyncState{},
	))
	return db
}

// newTestReconciler wires a store, matcher and reconciler over one DB
// with the default thresholds.
func newTestReconciler(t *testing.T) (*gorm.DB, *StoreService, *ReconcilerService) {
	t.Helper()
	db := openTestDB(t)
	store := NewStoreService(db)
	matcher := NewMatcherService(db, 0)
	reconciler := NewReconcilerService(db, store, matcher, 0)
	return db, store, reconciler
}

func transitionsFor(t *testing.T, db *gorm.DB, appID uint) []models.StageTransition {
	t.Helper()
	var trs []models.StageTransition
	require.NoError(t, db.Where("application_id = ?", appID).Order("occurred_at").Order("id").Find(&trs).Error)
	return trs
}
