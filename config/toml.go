package config

import (
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// TOML is a koanf parser for TOML documents.
type TOML struct{}

// TOMLParser returns a TOML parser.
func TOMLParser() *TOML {
	return &TOML{}
}

// Unmarshal parses TOML bytes into a nested map.
func (p *TOML) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any
	if err := toml.Unmarshal(b, &out); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("toml: line %d column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("toml: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Marshal renders a nested map as TOML.
func (p *TOML) Marshal(m map[string]any) ([]byte, error) {
	return toml.Marshal(m)
}
