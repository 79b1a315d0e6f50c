package feeds

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadEmails reads the email digest: a JSON list of objects. Items without
// a category are tagged as email.
func LoadEmails(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FetchError{Source: CategoryEmail, Err: err}
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &FetchError{Source: CategoryEmail, Err: fmt.Errorf("email summary %s must be a JSON list of objects: %w", path, err)}
	}
	for idx := range items {
		if items[idx].Category == "" {
			items[idx].Category = CategoryEmail
		}
	}
	return items, nil
}

// SaveEmails writes items as an indented JSON list.
func SaveEmails(path string, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode email summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write email summary: %w", err)
	}
	return nil
}
