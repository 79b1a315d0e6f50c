package feeds

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strings"
)

// Categories used for built-in items.
const (
	CategoryEmail    = "email"
	CategoryWeather  = "weather"
	CategoryCalendar = "calendar"
)

// Item is one tagged context record. It encodes as a flat JSON object with
// a "category" key next to its fields.
type Item struct {
	Category string
	Fields   map[string]any
}

// NewItem builds an item, dropping a "category" key from fields.
func NewItem(category string, fields map[string]any) Item {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "category" {
			continue
		}
		copied[k] = v
	}
	return Item{Category: category, Fields: copied}
}

// String returns a field rendered as text, or "" when absent.
func (i Item) String(key string) string {
	value, ok := i.Fields[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// MarshalJSON flattens the item. NaN floats encode as null.
func (i Item) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Fields)+1)
	maps.Copy(out, i.Fields)
	for k, v := range out {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			out[k] = nil
		}
	}
	out["category"] = i.Category
	return json.Marshal(out)
}

// UnmarshalJSON reads a flat object. A missing category stays empty.
func (i *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("context item must be a JSON object")
	}
	category, _ := raw["category"].(string)
	*i = NewItem(strings.TrimSpace(category), raw)
	return nil
}

// Nullable maps NaN to nil so JSON payloads carry null instead of failing
// to encode.
func Nullable(value float64) *float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	return &value
}
