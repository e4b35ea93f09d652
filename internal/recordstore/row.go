package recordstore

import (
	"strconv"
	"strings"
)

// ID identifies a row within a table. The zero value means no id has been assigned.
type ID uint64

// String returns the persisted form of the id. The zero ID encodes as the empty string.
func (id ID) String() string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

// IsZero reports whether the id is unassigned.
func (id ID) IsZero() bool {
	return id == 0
}

// ParseID decodes a persisted id. Empty, malformed, or zero input yields false.
func ParseID(raw string) (ID, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	value, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return ID(value), true
}

// Row is a single stored record: an id plus its ordered string fields.
type Row struct {
	ID     ID       `json:"id"`
	Fields []string `json:"fields"`
}

// Field returns the field at position index, or the empty string when the row is shorter.
func (r Row) Field(index int) string {
	if index < 0 || index >= len(r.Fields) {
		return ""
	}
	return r.Fields[index]
}

// Predicate selects rows during a scan.
type Predicate func(Row) bool

func cloneRows(rows []Row) []Row {
	if len(rows) == 0 {
		return nil
	}
	cloned := make([]Row, len(rows))
	for index, row := range rows {
		cloned[index] = Row{ID: row.ID, Fields: append([]string(nil), row.Fields...)}
	}
	return cloned
}

func nextID(rows []Row) ID {
	var maxID ID
	for _, row := range rows {
		if row.ID > maxID {
			maxID = row.ID
		}
	}
	return maxID + 1
}
