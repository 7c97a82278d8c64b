package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONColumn stores V as a JSONB value
type JSONColumn[T any] struct {
	V T
}

// Value implements driver.Valuer
func (j JSONColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner
func (j *JSONColumn[T]) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column source %T", src)
	}
	return json.Unmarshal(raw, &j.V)
}

// MarshalJSON renders the wrapped value directly
func (j JSONColumn[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.V)
}

// UnmarshalJSON reads the wrapped value directly
func (j *JSONColumn[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &j.V)
}
