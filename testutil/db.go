package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sidneypayan/linguami-sub005/models"
)

// OpenTestDB returns an isolated in-memory database migrated with the full
// schema. TranslateError is on so duplicate-key checks behave like the
// Postgres driver; a single connection keeps sqlite's locking out of the way.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.UserProgress{},
		&models.XpTransaction{},
		&models.Goal{},
		&models.PeriodXpTracking{},
		&models.XpRewardConfig{},
		&models.BadgeType{},
		&models.UserBadge{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}
