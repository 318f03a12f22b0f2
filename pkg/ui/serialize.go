package ui

import "encoding/base64"

// Wire discriminators written under the "class" key.
const (
	ClassText      = "Text"
	ClassImage     = "Image"
	ClassTextInput = "TextInput"
	ClassSelect    = "Select"
	ClassFlex      = "Flex"
)

// Serialize renders a static tree as a JSON-compatible map.
// Every node carries a "class" tag; containers list their children in order.
// A nil element serializes to nil.
func Serialize(se StaticElement) map[string]any {
	switch v := derefStatic(se).(type) {
	case Text:
		return map[string]any{"class": ClassText, "s": v.S}
	case Image:
		return map[string]any{"class": ClassImage, "data": base64.StdEncoding.EncodeToString(v.Data)}
	case TextInput:
		return map[string]any{"class": ClassTextInput, "id": v.ID, "placeholder": v.Placeholder}
	case Select:
		choices := make([]any, len(v.Choices))
		for i, c := range v.Choices {
			choices[i] = c
		}
		return map[string]any{"class": ClassSelect, "id": v.ID, "choices": choices}
	case StaticFlex:
		children := make([]any, len(v.Children))
		for i, c := range v.Children {
			children[i] = Serialize(c)
		}
		return map[string]any{"class": ClassFlex, "direction": string(v.Direction), "children": children}
	default:
		return nil
	}
}

// Inputs returns the ids of all input elements in render order.
func Inputs(se StaticElement) []string {
	var ids []string
	var walk func(StaticElement)
	walk = func(e StaticElement) {
		switch v := derefStatic(e).(type) {
		case TextInput:
			ids = append(ids, v.ID)
		case Select:
			ids = append(ids, v.ID)
		case StaticFlex:
			for _, c := range v.Children {
				walk(c)
			}
		}
	}
	walk(se)
	return ids
}
