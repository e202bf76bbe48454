package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// render выводит v в выбранном формате; для text вызывает text
func (c *Cli) render(v any, text func()) error {
	switch c.format {
	case FormatJSON:
		enc := json.NewEncoder(c.io)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(c.io)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
	default:
		text()
	}
	return nil
}

// ago относительное время от c.now, например "3 minutes ago"
func (c *Cli) ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, c.now(), "ago", "from now")
}

// formatValue компактное представление значения поля
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<none>"
	case string:
		return fmt.Sprintf("%q", val)
	case float64:
		return humanize.Ftoa(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// sortedKeys ключи map по алфавиту
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
