package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
	"github.com/MarcoPoloResearchLab/lemon/internal/social"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsNormalizesNotificationKinds(testContext *testing.T) {
	ctx := context.Background()
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&recordstore.TableSnapshot{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	backend, err := recordstore.NewSQLiteBackend(database)
	if err != nil {
		testContext.Fatalf("failed to create backend: %v", err)
	}
	legacy := []recordstore.Row{
		{ID: 1, Fields: []string{"followed_notification", "2", "1"}},
		{ID: 2, Fields: []string{"replied", "2", "5", "6"}},
		{ID: 3, Fields: []string{"favorited_notification", "3", "5"}},
		{ID: 4, Fields: []string{"mystery_notification", "3"}},
	}
	if err := backend.Save(ctx, social.TableNotifications, legacy); err != nil {
		testContext.Fatalf("failed to seed notifications: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	rows, err := backend.Load(ctx, social.TableNotifications)
	if err != nil {
		testContext.Fatalf("failed to reload notifications: %v", err)
	}
	expected := []string{"followed", "replied", "favorited", "mystery_notification"}
	if len(rows) != len(expected) {
		testContext.Fatalf("expected %d rows, got %d", len(expected), len(rows))
	}
	for index, row := range rows {
		if row.Fields[0] != expected[index] {
			testContext.Fatalf("row %d: expected kind %q, got %q", index, expected[index], row.Fields[0])
		}
		if row.ID != legacy[index].ID {
			testContext.Fatalf("row %d: expected id %d, got %d", index, legacy[index].ID, row.ID)
		}
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationNormalizeNotificationKinds).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsRunsOnce(testContext *testing.T) {
	database, err := OpenSQLite(filepath.Join(testContext.TempDir(), "lemon.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}

	backend, err := recordstore.NewSQLiteBackend(database)
	if err != nil {
		testContext.Fatalf("failed to create backend: %v", err)
	}
	ctx := context.Background()
	late := []recordstore.Row{{ID: 1, Fields: []string{"followed_notification", "2", "1"}}}
	if err := backend.Save(ctx, social.TableNotifications, late); err != nil {
		testContext.Fatalf("failed to seed notifications: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to re-apply migrations: %v", err)
	}
	rows, err := backend.Load(ctx, social.TableNotifications)
	if err != nil {
		testContext.Fatalf("failed to reload notifications: %v", err)
	}
	if rows[0].Fields[0] != "followed_notification" {
		testContext.Fatalf("expected applied migration to be skipped, got %q", rows[0].Fields[0])
	}

	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count migrations: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected one migration record, got %d", count)
	}
}

func TestOpenSQLiteRequiresPath(testContext *testing.T) {
	if _, err := OpenSQLite("", nil); err == nil {
		testContext.Fatalf("expected error for empty path")
	}
}
