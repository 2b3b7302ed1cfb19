package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model carries the primary key and timestamps shared by every table.
// IDs are generated in Go so the same schema works on PostgreSQL and SQLite.
type Model struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not set one
func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// StringArray is a list of strings stored as a JSON text column.
// Scan also understands PostgreSQL's {a,b} array literal for rows written by
// older clients.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	var str string
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("unsupported StringArray source %T", value)
	}

	str = strings.TrimSpace(str)
	if str == "" {
		*a = StringArray{}
		return nil
	}
	if strings.HasPrefix(str, "{") {
		str = strings.Trim(str, "{}")
		if str == "" {
			*a = StringArray{}
			return nil
		}
		*a = strings.Split(str, ",")
		return nil
	}

	var out []string
	if err := json.Unmarshal([]byte(str), &out); err != nil {
		return fmt.Errorf("decode string array: %w", err)
	}
	*a = out
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Contains reports whether s is in the list, ignoring case
func (a StringArray) Contains(s string) bool {
	for _, v := range a {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// TagPattern is the LIKE pattern matching one element of a StringArray column.
func TagPattern(tag string) string {
	b, _ := json.Marshal(strings.ToLower(strings.TrimSpace(tag)))
	return "%" + string(b) + "%"
}

// NormalizeTags lowercases, trims and de-duplicates tags, keeping order.
func NormalizeTags(tags []string) StringArray {
	seen := make(map[string]bool, len(tags))
	out := StringArray{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
