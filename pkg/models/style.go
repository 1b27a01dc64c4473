package models

import (
	"database/sql/driver"
	"encoding/json"
)

// SubtitleStyle is a declarative description of subtitle presentation.
// All fields are optional; zero values mean "use the default".
type SubtitleStyle struct {
	FontSize   string `json:"font_size,omitempty"`   // small, medium, large
	FontWeight string `json:"font_weight,omitempty"` // normal, bold
	FontStyle  string `json:"font_style,omitempty"`  // normal, italic
	Color      string `json:"color,omitempty"`       // #RRGGBB
	Position   string `json:"position,omitempty"`    // top, bottom
	Alignment  string `json:"alignment,omitempty"`   // left, center, right
}

// Value implements driver.Valuer for database storage
func (s *SubtitleStyle) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for database retrieval
func (s *SubtitleStyle) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, s)
}
