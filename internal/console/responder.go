// Package console answers prompts of a remote plugd from a terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/promptplug/internal/presentation/tui"
	"github.com/aretw0/promptplug/pkg/plug"
	"github.com/aretw0/promptplug/pkg/response"
	"github.com/aretw0/promptplug/pkg/ui"
)

// DefaultPollInterval matches the default prompt update period.
const DefaultPollInterval = time.Second

// Responder polls a station's GET /prompt and answers each new prompt once.
type Responder struct {
	Reader       *bufio.Reader
	Writer       io.Writer
	Render       func(string) (string, error)
	PollInterval time.Duration

	client   *Client
	logger   *slog.Logger
	answered string
}

// Option configures a Responder.
type Option func(*Responder)

// WithHTTPClient sets the HTTP client used to reach the station.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Responder) {
		r.client.HTTP = c
	}
}

// WithIO sets the operator's input and output.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *Responder) {
		r.Reader = bufio.NewReader(in)
		r.Writer = out
	}
}

// WithRenderer sets the markdown renderer, see tui.NewRenderer.
func WithRenderer(render func(string) (string, error)) Option {
	return func(r *Responder) {
		r.Render = render
	}
}

// WithPollInterval sets how often Run polls for a prompt.
func WithPollInterval(d time.Duration) Option {
	return func(r *Responder) {
		if d > 0 {
			r.PollInterval = d
		}
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Responder) {
		r.logger = logger
	}
}

// NewResponder creates a Responder for the station at baseURL.
func NewResponder(baseURL string, opts ...Option) *Responder {
	r := &Responder{
		client:       NewClient(baseURL, nil),
		Reader:       bufio.NewReader(os.Stdin),
		Writer:       os.Stdout,
		Render:       tui.NewRenderer(false),
		PollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch returns the station's active prompt, or nil when it is idle.
func (r *Responder) Fetch(ctx context.Context) (*plug.Snapshot, error) {
	return r.client.Fetch(ctx)
}

// Answer renders snap, reads one line per input and posts the payload.
// It reports false when the prompt was no longer active.
func (r *Responder) Answer(ctx context.Context, snap *plug.Snapshot) (bool, error) {
	tree, err := ui.Decode(snap.Element)
	if err != nil {
		return false, fmt.Errorf("decode prompt %s: %w", snap.ID, err)
	}
	ids := ui.Inputs(tree)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return false, fmt.Errorf("prompt %s: %w %q", snap.ID, ErrDuplicateInput, id)
		}
		seen[id] = true
	}

	out, err := r.Render(tui.Markdown(tree))
	if err != nil {
		return false, err
	}
	fmt.Fprint(r.Writer, out)

	fields := make(map[string]string)
	for _, id := range ids {
		value, err := r.readInput(id, choicesFor(tree, id))
		if err != nil {
			return false, err
		}
		fields[id] = value
	}

	payload, err := response.Encode(fields)
	if err != nil {
		return false, err
	}
	return r.client.Respond(ctx, snap.ID, payload)
}

// Run answers prompts until ctx is done. With once set it returns after the
// first accepted answer.
func (r *Responder) Run(ctx context.Context, once bool) error {
	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()

	for {
		snap, err := r.Fetch(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("Poll failed", "error", err)
		case snap != nil && snap.ID != r.answered:
			ok, err := r.Answer(ctx, snap)
			if err != nil {
				return err
			}
			r.answered = snap.ID
			if !ok {
				fmt.Fprintln(r.Writer, "Prompt was closed before the answer arrived.")
			} else if once {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Responder) readInput(id string, choices []string) (string, error) {
	label := "> "
	if id != ui.DefaultInputID {
		label = id + "> "
	}
	for {
		fmt.Fprint(r.Writer, label)
		line, err := r.Reader.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			return "", fmt.Errorf("read input %q: %w", id, err)
		}
		text := strings.TrimSpace(line)
		if len(choices) == 0 {
			return text, nil
		}
		if choice, ok := pickChoice(text, choices); ok {
			return choice, nil
		}
		if err != nil {
			return "", fmt.Errorf("read input %q: %w", id, err)
		}
		fmt.Fprintf(r.Writer, "Choose one of: %s\n", strings.Join(choices, ", "))
	}
}

// pickChoice accepts a choice by its text or by its 1-based position.
func pickChoice(text string, choices []string) (string, bool) {
	for _, c := range choices {
		if c == text {
			return c, true
		}
	}
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1], true
	}
	return "", false
}

func choicesFor(se ui.StaticElement, id string) []string {
	switch v := se.(type) {
	case ui.Select:
		if v.ID == id {
			return v.Choices
		}
	case ui.StaticFlex:
		for _, c := range v.Children {
			if choices := choicesFor(c, id); choices != nil {
				return choices
			}
		}
	}
	return nil
}
