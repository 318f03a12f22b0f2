package ui

import (
	"fmt"
)

// DefaultMaxDepth bounds nesting of Flex and Dynamic nodes during resolution.
const DefaultMaxDepth = 64

// Resolver converts Element trees into static trees.
// The zero value uses DefaultMaxDepth.
type Resolver struct {
	// MaxDepth is the deepest Flex/Dynamic nesting accepted. Values <= 0 mean DefaultMaxDepth.
	MaxDepth int
}

// Resolve resolves e with a zero Resolver.
func Resolve(e Element) (StaticElement, error) {
	return Resolver{}.Resolve(e)
}

// Resolve returns a fully static copy of e.
// Static leaves are returned unchanged, Flex children are resolved in order,
// and every Dynamic producer is invoked exactly once per occurrence.
// Pointers to variants are accepted and come back as values.
func (r Resolver) Resolve(e Element) (StaticElement, error) {
	limit := r.MaxDepth
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	return resolve(e, 0, limit)
}

func resolve(e Element, depth, limit int) (StaticElement, error) {
	if depth > limit {
		return nil, &DepthError{MaxDepth: limit}
	}
	switch v := deref(e).(type) {
	case nil:
		return nil, ErrNilElement
	case Text:
		return v, nil
	case Image:
		return v, nil
	case TextInput:
		return v, nil
	case Select:
		return v, nil
	case StaticFlex:
		children := make([]StaticElement, len(v.Children))
		for i, c := range v.Children {
			sc, err := resolve(c, depth+1, limit)
			if err != nil {
				return nil, err
			}
			children[i] = sc
		}
		return StaticFlex{Direction: v.Direction, Children: children}, nil
	case Flex:
		children := make([]StaticElement, len(v.Children))
		for i, c := range v.Children {
			sc, err := resolve(c, depth+1, limit)
			if err != nil {
				return nil, err
			}
			children[i] = sc
		}
		return StaticFlex{Direction: v.Direction, Children: children}, nil
	case Dynamic:
		if v.Producer == nil {
			return nil, fmt.Errorf("dynamic: %w producer", ErrNilElement)
		}
		return resolve(v.Producer(), depth+1, limit)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownElement, e)
	}
}
