package recordstore

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Config{Backend: NewMemoryBackend()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatalf("expected error for missing backend")
	}
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.Code() != "recordstore.new.missing_backend" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	id, err := store.Insert(ctx, "users", "a@x.org", "secret")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	row, ok, err := store.Find(ctx, "users", id)
	if err != nil || !ok {
		t.Fatalf("expected row to be found, ok=%v err=%v", ok, err)
	}
	if row.ID != id || row.Field(0) != "a@x.org" || row.Field(1) != "secret" {
		t.Fatalf("unexpected row %#v", row)
	}

	if err := store.Update(ctx, "users", id, "b@x.org", "changed"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	row, ok, err = store.Find(ctx, "users", id)
	if err != nil || !ok {
		t.Fatalf("expected updated row, ok=%v err=%v", ok, err)
	}
	if row.ID != id || row.Field(0) != "b@x.org" || row.Field(1) != "changed" {
		t.Fatalf("update not reflected: %#v", row)
	}

	if err := store.Delete(ctx, "users", id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, err := store.Find(ctx, "users", id); err != nil || ok {
		t.Fatalf("expected row to be gone, ok=%v err=%v", ok, err)
	}
}

func TestInsertAssignsMaxPlusOne(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	first, _ := store.Insert(ctx, "follows", "1", "2")
	second, _ := store.Insert(ctx, "follows", "1", "3")
	if first != 1 || second != 2 {
		t.Fatalf("unexpected ids %d, %d", first, second)
	}

	if err := store.Delete(ctx, "follows", first); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	third, err := store.Insert(ctx, "follows", "1", "4")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if third != 3 {
		t.Fatalf("expected id 3 after deleting the first row, got %d", third)
	}

	if err := store.Delete(ctx, "follows", third); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	fourth, _ := store.Insert(ctx, "follows", "1", "5")
	if fourth != 3 {
		t.Fatalf("expected max+1 policy to give 3, got %d", fourth)
	}
}

func TestInsertRejectsNonStringFields(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	_, err := store.Insert(ctx, "users", "a@x.org", 42)
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	rows, err := store.Where(ctx, "users", nil)
	if err != nil {
		t.Fatalf("where failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no partial write, got %d rows", len(rows))
	}
}

func TestUpdateRejectsNonStringFieldsWithoutWriting(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	id, _ := store.Insert(ctx, "users", "a@x.org")

	err := store.Update(ctx, "users", id, true)
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	row, _, _ := store.Find(ctx, "users", id)
	if row.Field(0) != "a@x.org" {
		t.Fatalf("row should be untouched, got %#v", row)
	}
}

func TestUpdateAndDeleteMissingIDAreNoOps(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	id, _ := store.Insert(ctx, "blocks", "1", "2")

	if err := store.Update(ctx, "blocks", id+10, "x", "y"); err != nil {
		t.Fatalf("update of missing id should not fail: %v", err)
	}
	if err := store.Delete(ctx, "blocks", id+10); err != nil {
		t.Fatalf("delete of missing id should not fail: %v", err)
	}
	rows, _ := store.Where(ctx, "blocks", nil)
	if len(rows) != 1 || rows[0].Field(0) != "1" {
		t.Fatalf("unexpected rows %#v", rows)
	}
}

func TestWherePreservesTableOrderAndUpdatePosition(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	for _, owner := range []string{"1", "2", "1", "3", "1"} {
		if _, err := store.Insert(ctx, "status_updates", owner, "", ""); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	if err := store.Update(ctx, "status_updates", 1, "1", "", "5"); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	rows, err := store.Where(ctx, "status_updates", func(row Row) bool {
		return row.Field(0) == "1"
	})
	if err != nil {
		t.Fatalf("where failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(rows))
	}
	expected := []ID{1, 3, 5}
	for index, row := range rows {
		if row.ID != expected[index] {
			t.Fatalf("unexpected order at %d: got %d want %d", index, row.ID, expected[index])
		}
	}
	if rows[0].Field(2) != "5" {
		t.Fatalf("expected updated row to keep its position, got %#v", rows[0])
	}
}

func TestWhereAndFindOnEmptyTable(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	rows, err := store.Where(ctx, "notifications", func(Row) bool { return true })
	if err != nil {
		t.Fatalf("where failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	if _, ok, err := store.Find(ctx, "notifications", 1); err != nil || ok {
		t.Fatalf("expected nothing found, ok=%v err=%v", ok, err)
	}
}

func TestClearEmptiesOnlyTheNamedTable(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	_, _ = store.Insert(ctx, "users", "a@x.org")
	_, _ = store.Insert(ctx, "notifications", "followed", "1", "2")

	if err := store.Clear(ctx, "notifications"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	notifications, _ := store.Where(ctx, "notifications", nil)
	users, _ := store.Where(ctx, "users", nil)
	if len(notifications) != 0 {
		t.Fatalf("expected cleared table, got %d rows", len(notifications))
	}
	if len(users) != 1 {
		t.Fatalf("expected users untouched, got %d rows", len(users))
	}

	id, _ := store.Insert(ctx, "notifications", "followed", "1", "2")
	if id != 1 {
		t.Fatalf("expected ids to restart after clear, got %d", id)
	}
}

func TestInvalidTableNames(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	for _, table := range []string{"", "  ", "../users", "a/b", " users"} {
		if _, err := store.Insert(ctx, table, "x"); !errors.Is(err, ErrInvalidTable) {
			t.Fatalf("expected ErrInvalidTable for %q, got %v", table, err)
		}
		if _, err := store.Where(ctx, table, nil); !errors.Is(err, ErrInvalidTable) {
			t.Fatalf("expected ErrInvalidTable from where for %q, got %v", table, err)
		}
	}
}

func TestReturnedRowsDoNotAliasStoredRows(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	id, _ := store.Insert(ctx, "users", "a@x.org")

	row, _, _ := store.Find(ctx, "users", id)
	row.Fields[0] = "mutated"

	again, _, _ := store.Find(ctx, "users", id)
	if again.Field(0) != "a@x.org" {
		t.Fatalf("stored row was mutated through a returned copy: %#v", again)
	}
}

type failingBackend struct {
	loadErr error
	saveErr error
}

func (b failingBackend) Load(context.Context, string) ([]Row, error) {
	return nil, b.loadErr
}

func (b failingBackend) Save(context.Context, string, []Row) error {
	return b.saveErr
}

func TestBackendFailuresAreWrappedAndLogged(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	saveErr := errors.New("disk full")
	store, err := New(Config{
		Backend: failingBackend{saveErr: saveErr},
		Logger:  zap.New(core),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	_, err = store.Insert(ctx, "users", "a@x.org")
	if !errors.Is(err, saveErr) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.Code() != "recordstore.insert.save_failed" {
		t.Fatalf("unexpected error code: %v", err)
	}

	entries := logs.FilterMessage("record store error").All()
	if len(entries) != 1 {
		t.Fatalf("expected one error log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %s", entries[0].Level)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw    string
		wantID ID
		wantOK bool
	}{
		{raw: "7", wantID: 7, wantOK: true},
		{raw: " 12 ", wantID: 12, wantOK: true},
		{raw: "", wantOK: false},
		{raw: "0", wantOK: false},
		{raw: "-1", wantOK: false},
		{raw: "abc", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id, ok := ParseID(tt.raw)
			if ok != tt.wantOK || id != tt.wantID {
				t.Fatalf("ParseID(%q) = %d, %v", tt.raw, id, ok)
			}
		})
	}
	if ID(0).String() != "" || ID(42).String() != "42" {
		t.Fatalf("unexpected string encoding")
	}
}
