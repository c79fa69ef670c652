package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DecodeFile reads path into v. Files ending in .yaml or .yml are YAML,
// everything else is TOML.
func DecodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := DecodeBytes(filepath.Ext(path), data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// DecodeBytes decodes data as YAML when ext is .yaml/.yml, otherwise TOML.
func DecodeBytes(ext string, data []byte, v any) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return toml.Unmarshal(data, v)
	}
}
