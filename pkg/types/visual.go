package types

import (
	"database/sql/driver"
	"encoding/json"
)

const (
	DefaultVisualType  = "gradient"
	DefaultVisualColor = "#3B82F6"
)

// VisualItem is one icon/text bullet rendered on a tool card.
type VisualItem struct {
	Icon string `json:"icon" bson:"icon"`
	Text string `json:"text" bson:"text"`
}

// Visual describes how a tool card is rendered. Content is never nil once
// normalized.
type Visual struct {
	Type    string       `json:"type" bson:"type"`
	Color   string       `json:"color" bson:"color"`
	Content []VisualItem `json:"content" bson:"content"`
}

// WithDefaults fills any missing visual attribute with the catalog defaults.
func (v Visual) WithDefaults() Visual {
	if v.Type == "" {
		v.Type = DefaultVisualType
	}
	if v.Color == "" {
		v.Color = DefaultVisualColor
	}
	if v.Content == nil {
		v.Content = []VisualItem{}
	}
	return v
}

func (v Visual) Value() (driver.Value, error) {
	buf, err := json.Marshal(v.WithDefaults())
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

func (v *Visual) Scan(value any) error {
	*v = Visual{}
	if value != nil {
		if err := scanJSON("visual", value, v); err != nil {
			return err
		}
	}
	*v = v.WithDefaults()
	return nil
}
