package recordstore

import (
	"encoding/json"
	"fmt"
)

// encodeTable serializes a whole table as a JSON array of rows.
func encodeTable(rows []Row) ([]byte, error) {
	if rows == nil {
		rows = []Row{}
	}
	for index := range rows {
		if rows[index].Fields == nil {
			rows[index].Fields = []string{}
		}
	}
	return json.Marshal(rows)
}

func decodeTable(data []byte) ([]Row, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	return rows, nil
}
