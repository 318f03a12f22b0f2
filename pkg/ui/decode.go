package ui

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// wireElement mirrors the serialized form of any static variant.
type wireElement struct {
	Class       string           `mapstructure:"class"`
	S           string           `mapstructure:"s"`
	Data        string           `mapstructure:"data"`
	ID          string           `mapstructure:"id"`
	Placeholder string           `mapstructure:"placeholder"`
	Choices     []string         `mapstructure:"choices"`
	Direction   string           `mapstructure:"direction"`
	Children    []map[string]any `mapstructure:"children"`
}

// Decode rebuilds a static tree from its serialized map form.
// In this form an "id" of "" (or no id at all) denotes DefaultInputID.
func Decode(m map[string]any) (StaticElement, error) {
	var w wireElement
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &w,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("failed to decode element: %w", err)
	}

	var opts []InputOption
	if w.ID != "" {
		opts = append(opts, WithID(w.ID))
	}

	switch w.Class {
	case ClassText:
		return NewText(w.S), nil
	case ClassImage:
		data, err := base64.StdEncoding.DecodeString(w.Data)
		if err != nil {
			return nil, fmt.Errorf("image data: %w", err)
		}
		return NewImage(data), nil
	case ClassTextInput:
		return NewTextInput(w.Placeholder, opts...)
	case ClassSelect:
		return NewSelect(w.Choices, opts...)
	case ClassFlex:
		dir := Direction(w.Direction)
		if dir == "" {
			dir = TopDown
		}
		if !dir.Valid() {
			return nil, fmt.Errorf("flex: unknown direction %q", w.Direction)
		}
		children := make([]StaticElement, 0, len(w.Children))
		for i, cm := range w.Children {
			c, err := Decode(cm)
			if err != nil {
				return nil, fmt.Errorf("flex child %d: %w", i, err)
			}
			children = append(children, c)
		}
		return NewStaticFlex(dir, children...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, w.Class)
	}
}

// ParseJSON decodes a serialized element from JSON bytes.
func ParseJSON(data []byte) (StaticElement, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse element json: %w", err)
	}
	return Decode(m)
}

// ParseYAML decodes an element authored in YAML using the serialized field names.
func ParseYAML(data []byte) (StaticElement, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse element yaml: %w", err)
	}
	return Decode(m)
}
