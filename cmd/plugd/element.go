package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/promptplug/pkg/ui"
)

// loadElement reads an element tree authored as YAML, or JSON by extension.
func loadElement(path string) (ui.StaticElement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read element file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ui.ParseJSON(data)
	}
	return ui.ParseYAML(data)
}
