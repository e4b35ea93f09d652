package recordstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingDatabase = errors.New("recordstore: database handle is required")

// TableSnapshot stores the serialized rows of one table.
type TableSnapshot struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	RowsJSON         string `gorm:"column:rows_json;type:text;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (TableSnapshot) TableName() string {
	return "record_tables"
}

// SQLiteBackend keeps each table as a single snapshot row in a SQL database.
type SQLiteBackend struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewSQLiteBackend wraps a migrated gorm handle.
func NewSQLiteBackend(db *gorm.DB) (*SQLiteBackend, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &SQLiteBackend{db: db, clock: time.Now}, nil
}

// Load reads the snapshot row for table.
func (b *SQLiteBackend) Load(ctx context.Context, table string) ([]Row, error) {
	var snapshot TableSnapshot
	err := b.db.WithContext(ctx).Where("name = ?", table).Take(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeTable([]byte(snapshot.RowsJSON))
}

// Save upserts the snapshot row for table with the full set of rows.
func (b *SQLiteBackend) Save(ctx context.Context, table string, rows []Row) error {
	data, err := encodeTable(cloneRows(rows))
	if err != nil {
		return err
	}
	snapshot := TableSnapshot{
		Name:             table,
		RowsJSON:         string(data),
		UpdatedAtSeconds: b.clock().UTC().Unix(),
	}
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"rows_json", "updated_at_s"}),
		}).
		Create(&snapshot).Error
}
