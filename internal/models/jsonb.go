package models

import (
	"database/sql/driver"
	"fmt"
)

// RawJSON хранит jsonb колонку как есть. Сканируется из []byte (lib/pq) и string (pgx).
type RawJSON []byte

// Scan реализует sql.Scanner.
func (j *RawJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = RawJSON(v)
	default:
		return fmt.Errorf("models: RawJSON: неподдерживаемый тип %T", src)
	}
	return nil
}

// Value реализует driver.Valuer.
func (j RawJSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// MarshalJSON отдаёт содержимое без повторного кодирования.
func (j RawJSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON сохраняет исходный JSON.
func (j *RawJSON) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}
