package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ImportRun is the stored report of one bulk import
type ImportRun struct {
	Model
	Entity   string          `gorm:"type:varchar(16);not null;index" json:"entity"`
	Filename string          `json:"filename"`
	Format   string          `gorm:"type:varchar(8)" json:"format"`
	DryRun   bool            `json:"dry_run"`
	Inserted int             `json:"inserted"`
	Updated  int             `json:"updated"`
	Skipped  int             `json:"skipped"`
	Errors   ImportRowErrors `gorm:"type:text" json:"errors"`
	UserID   string          `gorm:"index" json:"user_id"`
}

// ImportRowError reports why one input row was skipped
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportRowErrors is stored as a JSON text column
type ImportRowErrors []ImportRowError

// Scan implements the sql.Scanner interface for reading from database
func (e *ImportRowErrors) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*e = ImportRowErrors{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported ImportRowErrors source %T", value)
	}
	if len(raw) == 0 {
		*e = ImportRowErrors{}
		return nil
	}

	out := ImportRowErrors{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode import errors: %w", err)
	}
	*e = out
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (e ImportRowErrors) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]ImportRowError(e))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// MarshalJSON keeps an empty list as [] rather than null
func (e ImportRowErrors) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ImportRowError(e))
}
