package database

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
	"github.com/MarcoPoloResearchLab/lemon/internal/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationNormalizeNotificationKinds = "2026-10-01_normalize_notification_kinds"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeNotificationKinds, apply: normalizeNotificationKinds},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeNotificationKinds rewrites "<kind>_notification" tags to the bare kind.
func normalizeNotificationKinds(db *gorm.DB) error {
	ctx := context.Background()
	backend, err := recordstore.NewSQLiteBackend(db)
	if err != nil {
		return err
	}
	rows, err := backend.Load(ctx, social.TableNotifications)
	if err != nil {
		return err
	}

	changed := false
	for index := range rows {
		if len(rows[index].Fields) == 0 {
			continue
		}
		kind, ok := social.NormalizeLegacyKind(rows[index].Fields[0])
		if !ok {
			continue
		}
		rows[index].Fields[0] = string(kind)
		changed = true
	}
	if !changed {
		return nil
	}
	return backend.Save(ctx, social.TableNotifications, rows)
}
