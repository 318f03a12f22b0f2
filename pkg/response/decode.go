package response

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DefaultKey is the key of the unnamed default input.
const DefaultKey = ""

// ErrMalformedResponse is matched by every DecodeError.
var ErrMalformedResponse = errors.New("malformed response payload")

// DecodeError reports a payload that is not valid JSON.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedResponse, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// Decode parses raw as JSON. A mapping with exactly one entry under DefaultKey
// decodes to that entry's value; any other value is returned unchanged.
func Decode(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, &DecodeError{Raw: raw, Err: err}
	}
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		if only, ok := m[DefaultKey]; ok {
			return only, nil
		}
	}
	return v, nil
}

// Encode builds a payload from input ids to values.
func Encode(fields map[string]string) (string, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Bind copies a decoded multi-field response into dst, a pointer to a struct.
// Fields are matched by their `prompt` tag, falling back to the field name.
// Scalar strings are converted to the field's type where possible.
func Bind(value any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		TagName:          "prompt",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create binder: %w", err)
	}
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("failed to bind response: %w", err)
	}
	return nil
}
