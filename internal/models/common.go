// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Base model with common fields. Rows are hard-deleted, so there is no
// DeletedAt column.
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONMap is a map stored as a JSON TEXT column. TEXT rather than a native
// json type keeps the column portable between SQLite and Postgres.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}

	return nil
}

// StringList is a string slice stored as a JSON TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}

	return nil
}

// Enums
type WineStyle string

const (
	WineStyleRed       WineStyle = "Red"
	WineStyleWhite     WineStyle = "White"
	WineStyleRose      WineStyle = "Rosé"
	WineStyleSparkling WineStyle = "Sparkling"
	WineStyleDessert   WineStyle = "Dessert"
	WineStyleFortified WineStyle = "Fortified"
)

// WineStyles lists every recognized style, in display order.
func WineStyles() []WineStyle {
	return []WineStyle{
		WineStyleRed,
		WineStyleWhite,
		WineStyleRose,
		WineStyleSparkling,
		WineStyleDessert,
		WineStyleFortified,
	}
}

func (s WineStyle) IsValid() bool {
	switch s {
	case WineStyleRed, WineStyleWhite, WineStyleRose, WineStyleSparkling, WineStyleDessert, WineStyleFortified:
		return true
	}
	return false
}
