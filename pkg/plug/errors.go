package plug

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPromptUnanswered is matched by the error Wait returns when its timeout expires.
	ErrPromptUnanswered = errors.New("prompt unanswered")

	// ErrPromptCancelled is returned by Wait when the awaited prompt was removed
	// or replaced before it was answered.
	ErrPromptCancelled = errors.New("prompt cancelled")

	// ErrNoPrompt is returned by Wait when there is neither an active prompt nor an answer to collect.
	ErrNoPrompt = errors.New("no active prompt")

	// ErrNilElement is returned by Start when no root element is given.
	ErrNilElement = errors.New("prompt root element is nil")
)

// UnansweredError reports which prompt timed out and after how long.
type UnansweredError struct {
	PromptID string
	Timeout  time.Duration
}

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("%s: prompt %s after %s", ErrPromptUnanswered, e.PromptID, e.Timeout)
}

func (e *UnansweredError) Is(target error) bool {
	return target == ErrPromptUnanswered
}
