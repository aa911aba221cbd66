package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Read loads a catalog; .yaml/.yml files are YAML, anything else JSON.
func Read(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data, isYAML(path))
}

// Decode parses a catalog document.
func Decode(data []byte, asYAML bool) (*Catalog, error) {
	var c Catalog
	if asYAML {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		return &c, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

// Write saves the catalog in the format implied by the extension.
func Write(c *Catalog, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
