package recordstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrInvalidRecord indicates that a value handed to Insert or Update is not a string.
	ErrInvalidRecord = errors.New("recordstore: invalid record")
	// ErrInvalidTable indicates that a table name is empty or not usable as a storage key.
	ErrInvalidTable = errors.New("recordstore: invalid table")

	errMissingBackend = errors.New("backend is required")
	noOpLogger        = zap.NewNop()
)

const (
	opStoreNew = "recordstore.new"
	opInsert   = "recordstore.insert"
	opFind     = "recordstore.find"
	opWhere    = "recordstore.where"
	opUpdate   = "recordstore.update"
	opDelete   = "recordstore.delete"
	opClear    = "recordstore.clear"

	reasonLoadFailed = "load_failed"
	reasonSaveFailed = "save_failed"
)

// StoreError wraps a backend failure with the operation that observed it.
type StoreError struct {
	code string
	err  error
}

func (e *StoreError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *StoreError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation.reason code.
func (e *StoreError) Code() string {
	return e.code
}

func newStoreError(operation, reason string, cause error) error {
	return &StoreError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// Backend persists whole tables. Load of an unknown table returns no rows.
type Backend interface {
	Load(ctx context.Context, table string) ([]Row, error)
	Save(ctx context.Context, table string, rows []Row) error
}

// Config describes the dependencies of a Store.
type Config struct {
	Backend Backend
	Logger  *zap.Logger
}

// Store is a table-oriented record store supporting point lookup by id and full-scan filters.
//
// Every mutation loads the entire table, applies the change and saves the entire table back.
// There is no locking: two writers racing on the same table can lose updates.
type Store struct {
	backend Backend
	logger  *zap.Logger
}

// New constructs a Store over the provided backend.
func New(cfg Config) (*Store, error) {
	if cfg.Backend == nil {
		return nil, newStoreError(opStoreNew, "missing_backend", errMissingBackend)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Store{backend: cfg.Backend, logger: logger}, nil
}

// Insert appends a row and returns its freshly assigned id (max existing id + 1).
func (s *Store) Insert(ctx context.Context, table string, values ...any) (ID, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}
	fields, err := toFields(values)
	if err != nil {
		return 0, err
	}

	rows, err := s.load(ctx, opInsert, table)
	if err != nil {
		return 0, err
	}
	id := nextID(rows)
	rows = append(rows, Row{ID: id, Fields: fields})
	if err := s.save(ctx, opInsert, table, rows); err != nil {
		return 0, err
	}

	s.logger.Debug("record inserted", zap.String("table", table), zap.Uint64("id", uint64(id)))
	return id, nil
}

// Find returns the first row whose id matches.
func (s *Store) Find(ctx context.Context, table string, id ID) (Row, bool, error) {
	if err := validateTable(table); err != nil {
		return Row{}, false, err
	}
	rows, err := s.load(ctx, opFind, table)
	if err != nil {
		return Row{}, false, err
	}
	for _, row := range rows {
		if row.ID == id {
			return row, true, nil
		}
	}
	return Row{}, false, nil
}

// Where returns every row accepted by predicate in table order. A nil predicate matches all rows.
func (s *Store) Where(ctx context.Context, table string, predicate Predicate) ([]Row, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	rows, err := s.load(ctx, opWhere, table)
	if err != nil {
		return nil, err
	}
	matches := make([]Row, 0, len(rows))
	for _, row := range rows {
		if predicate == nil || predicate(row) {
			matches = append(matches, row)
		}
	}
	return matches, nil
}

// Update replaces the fields of the row with the given id in place. Absent ids are a no-op.
func (s *Store) Update(ctx context.Context, table string, id ID, values ...any) error {
	if err := validateTable(table); err != nil {
		return err
	}
	fields, err := toFields(values)
	if err != nil {
		return err
	}

	rows, err := s.load(ctx, opUpdate, table)
	if err != nil {
		return err
	}
	for index := range rows {
		if rows[index].ID != id {
			continue
		}
		rows[index].Fields = fields
		return s.save(ctx, opUpdate, table, rows)
	}
	return nil
}

// Delete removes the row with the given id. Absent ids are a no-op.
func (s *Store) Delete(ctx context.Context, table string, id ID) error {
	if err := validateTable(table); err != nil {
		return err
	}
	rows, err := s.load(ctx, opDelete, table)
	if err != nil {
		return err
	}
	for index := range rows {
		if rows[index].ID != id {
			continue
		}
		remaining := append(rows[:index:index], rows[index+1:]...)
		return s.save(ctx, opDelete, table, remaining)
	}
	return nil
}

// Clear empties the table.
func (s *Store) Clear(ctx context.Context, table string) error {
	if err := validateTable(table); err != nil {
		return err
	}
	return s.save(ctx, opClear, table, nil)
}

func (s *Store) load(ctx context.Context, operation, table string) ([]Row, error) {
	rows, err := s.backend.Load(ctx, table)
	if err != nil {
		s.logError(operation, reasonLoadFailed, err, zap.String("table", table))
		return nil, newStoreError(operation, reasonLoadFailed, err)
	}
	return rows, nil
}

func (s *Store) save(ctx context.Context, operation, table string, rows []Row) error {
	if err := s.backend.Save(ctx, table, rows); err != nil {
		s.logError(operation, reasonSaveFailed, err, zap.String("table", table))
		return newStoreError(operation, reasonSaveFailed, err)
	}
	return nil
}

func (s *Store) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("record store error", attrs...)
}

func validateTable(table string) error {
	trimmed := strings.TrimSpace(table)
	if trimmed == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTable)
	}
	if trimmed != table || strings.ContainsAny(table, `/\`) || strings.Contains(table, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return nil
}

func toFields(values []any) ([]string, error) {
	fields := make([]string, len(values))
	for index, value := range values {
		text, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %d is %T", ErrInvalidRecord, index, value)
		}
		fields[index] = text
	}
	return fields, nil
}
