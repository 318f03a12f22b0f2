package ui

import (
	"fmt"
)

// DefaultInputID is the reserved key of an input element created without an id.
// A response of the form {"": value} addresses it.
const DefaultInputID = ""

// Direction is the layout axis of a flex container.
type Direction string

const (
	TopDown   Direction = "top_down"
	BottomUp  Direction = "bottom_up"
	LeftRight Direction = "left_right"
	RightLeft Direction = "right_left"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	switch d {
	case TopDown, BottomUp, LeftRight, RightLeft:
		return true
	}
	return false
}

// Element is a node in a prompt's UI description.
// The set of implementations is closed: only types in this package satisfy it.
type Element interface {
	element()
}

// StaticElement is an Element that needs no further evaluation before serialization.
type StaticElement interface {
	Element
	static()
}

// Text is a static block of text.
type Text struct {
	S string
}

// Image carries raw image bytes; they are serialized as base64.
type Image struct {
	Data []byte
}

// TextInput requests free text from the responder.
type TextInput struct {
	ID          string
	Placeholder string
}

// Select requests one of a fixed, ordered set of choices.
type Select struct {
	ID      string
	Choices []string
}

// StaticFlex is a container whose children are all static.
// Child order is render order.
type StaticFlex struct {
	Direction Direction
	Children  []StaticElement
}

// Flex is a container whose children may be dynamic.
type Flex struct {
	Direction Direction
	Children  []Element
}

// Producer computes an Element at resolution time.
// It may be expensive or observe live state, and it must not call back into
// the coordinator that owns the prompt.
type Producer func() Element

// Dynamic wraps a Producer evaluated lazily on every resolution.
type Dynamic struct {
	Producer Producer
}

func (Text) element()       {}
func (Image) element()      {}
func (TextInput) element()  {}
func (Select) element()     {}
func (StaticFlex) element() {}
func (Flex) element()       {}
func (Dynamic) element()    {}

func (Text) static()       {}
func (Image) static()      {}
func (TextInput) static()  {}
func (Select) static()     {}
func (StaticFlex) static() {}

// deref unwraps a pointer to one of the variants so that &Text{} and Text{}
// are treated alike. A nil pointer yields a nil Element.
func deref(e Element) Element {
	switch v := e.(type) {
	case *Text:
		if v != nil {
			return *v
		}
	case *Image:
		if v != nil {
			return *v
		}
	case *TextInput:
		if v != nil {
			return *v
		}
	case *Select:
		if v != nil {
			return *v
		}
	case *StaticFlex:
		if v != nil {
			return *v
		}
	case *Flex:
		if v != nil {
			return *v
		}
	case *Dynamic:
		if v != nil {
			return *v
		}
	default:
		return e
	}
	return nil
}

func derefStatic(se StaticElement) StaticElement {
	v, _ := deref(se).(StaticElement)
	return v
}

// InputOption configures an input element.
type InputOption func(*inputConfig)

type inputConfig struct {
	id  string
	set bool
}

// WithID assigns the key under which the input's value is returned.
// An explicit empty id is rejected by the constructor.
func WithID(id string) InputOption {
	return func(c *inputConfig) {
		c.id = id
		c.set = true
	}
}

func buildInput(kind string, opts []InputOption) (string, error) {
	cfg := inputConfig{id: DefaultInputID}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.set && cfg.id == "" {
		return "", fmt.Errorf("%s: %w: explicit id must not be empty", kind, ErrInvalidElementID)
	}
	return cfg.id, nil
}

// NewText creates a Text element.
func NewText(s string) Text {
	return Text{S: s}
}

// NewImage creates an Image element from raw bytes.
func NewImage(data []byte) Image {
	return Image{Data: data}
}

// NewTextInput creates a TextInput. Without WithID it uses DefaultInputID.
func NewTextInput(placeholder string, opts ...InputOption) (TextInput, error) {
	id, err := buildInput("text input", opts)
	if err != nil {
		return TextInput{}, err
	}
	return TextInput{ID: id, Placeholder: placeholder}, nil
}

// NewSelect creates a Select over choices. Without WithID it uses DefaultInputID.
func NewSelect(choices []string, opts ...InputOption) (Select, error) {
	id, err := buildInput("select", opts)
	if err != nil {
		return Select{}, err
	}
	c := make([]string, len(choices))
	copy(c, choices)
	return Select{ID: id, Choices: c}, nil
}

// MustTextInput is like NewTextInput but panics on error.
func MustTextInput(placeholder string, opts ...InputOption) TextInput {
	in, err := NewTextInput(placeholder, opts...)
	if err != nil {
		panic(err)
	}
	return in
}

// MustSelect is like NewSelect but panics on error.
func MustSelect(choices []string, opts ...InputOption) Select {
	sel, err := NewSelect(choices, opts...)
	if err != nil {
		panic(err)
	}
	return sel
}

// NewFlex creates a container of possibly dynamic children.
func NewFlex(dir Direction, children ...Element) Flex {
	return Flex{Direction: dir, Children: children}
}

// NewStaticFlex creates a container of static children.
func NewStaticFlex(dir Direction, children ...StaticElement) StaticFlex {
	return StaticFlex{Direction: dir, Children: children}
}

// NewDynamic wraps a producer.
func NewDynamic(p Producer) Dynamic {
	return Dynamic{Producer: p}
}
