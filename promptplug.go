package promptplug

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aretw0/promptplug/pkg/response"
	"github.com/aretw0/promptplug/pkg/ui"
)

var (
	// ErrInvalidChoice is returned by AskChoice when the answer is not one of the choices.
	ErrInvalidChoice = errors.New("answer is not one of the offered choices")

	// ErrUnexpectedValue is returned when an answer does not have the shape the helper expects.
	ErrUnexpectedValue = errors.New("unexpected answer value")
)

// Asker starts a prompt and waits for its answer. *plug.Plug implements it.
type Asker interface {
	Ask(ctx context.Context, root ui.Element, timeout time.Duration) (any, error)
}

// AskText asks for one free-text value.
func AskText(ctx context.Context, a Asker, message string, timeout time.Duration) (string, error) {
	root := ui.NewFlex(ui.TopDown, ui.NewText(message), ui.MustTextInput(""))
	v, err := a.Ask(ctx, root, timeout)
	if err != nil {
		return "", err
	}
	return scalar(v)
}

// AskChoice asks the responder to pick one of choices.
func AskChoice(ctx context.Context, a Asker, message string, choices []string, timeout time.Duration) (string, error) {
	sel, err := ui.NewSelect(choices)
	if err != nil {
		return "", err
	}
	v, err := a.Ask(ctx, ui.NewFlex(ui.TopDown, ui.NewText(message), sel), timeout)
	if err != nil {
		return "", err
	}
	s, err := scalar(v)
	if err != nil {
		return "", err
	}
	if !slices.Contains(choices, s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, s)
	}
	return s, nil
}

// AskForm asks with a caller-built root holding several named inputs and binds
// the answer into dst, a pointer to a struct tagged with `prompt:"<input id>"`.
func AskForm(ctx context.Context, a Asker, root ui.Element, timeout time.Duration, dst any) error {
	v, err := a.Ask(ctx, root, timeout)
	if err != nil {
		return err
	}
	if _, ok := v.(map[string]any); !ok {
		return fmt.Errorf("%w: want an object, got %T", ErrUnexpectedValue, v)
	}
	return response.Bind(v, dst)
}

func scalar(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64, bool:
		return fmt.Sprint(x), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnexpectedValue, v)
	}
}
