package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonColumn maps a JSONB column onto a Go value. A NULL column leaves Valid false.
type jsonColumn[T any] struct {
	Val   T
	Valid bool
}

func newJSONColumn[T any](v *T) jsonColumn[T] {
	if v == nil {
		return jsonColumn[T]{}
	}
	return jsonColumn[T]{Val: *v, Valid: true}
}

func (c jsonColumn[T]) Value() (driver.Value, error) {
	if !c.Valid {
		return nil, nil
	}
	b, err := json.Marshal(c.Val)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json column: %w", err)
	}
	return b, nil
}

func (c *jsonColumn[T]) Scan(src any) error {
	var zero T
	c.Val, c.Valid = zero, false

	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported json column source %T", src)
	}
	if err := json.Unmarshal(data, &c.Val); err != nil {
		return fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	c.Valid = true
	return nil
}

// Ptr returns a pointer to the decoded value, or nil for NULL.
func (c jsonColumn[T]) Ptr() *T {
	if !c.Valid {
		return nil
	}
	v := c.Val
	return &v
}
