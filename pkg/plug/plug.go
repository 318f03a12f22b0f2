package plug

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/promptplug/internal/logging"
	"github.com/aretw0/promptplug/pkg/ports"
	"github.com/aretw0/promptplug/pkg/response"
	"github.com/aretw0/promptplug/pkg/ui"
)

// answer is a decoded response tied to the prompt it satisfied.
type answer struct {
	promptID string
	value    any
}

// Plug coordinates at most one active prompt with its response.
// It is safe for concurrent use. Construct one per test session; it is not a singleton.
type Plug struct {
	mu      sync.Mutex
	cond    *sync.Cond
	current *prompt
	pending *answer
	last    *ports.Record

	updatePeriod time.Duration
	resolver     ui.Resolver
	newID        func() string
	logger       *slog.Logger
	observer     Observer
	journal      ports.Journal
	listeners    []func(Event)
}

// New creates an idle Plug.
func New(opts ...Option) *Plug {
	p := &Plug{
		updatePeriod: DefaultUpdatePeriod,
		newID:        defaultID,
		logger:       logging.NewNop(),
		observer:     nopObserver{},
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start installs a new prompt around root and returns its id.
// Any pending answer is discarded. A prompt that is already active is replaced
// without error; waiters on the replaced prompt return ErrPromptCancelled.
func (p *Plug) Start(root ui.Element) (string, error) {
	if root == nil {
		return "", ErrNilElement
	}
	now := time.Now()

	p.mu.Lock()
	id := p.newID()
	replaced := p.current
	p.current = newPrompt(id, root, p.updatePeriod, now)
	p.pending = nil
	if replaced != nil {
		p.cond.Broadcast()
	}
	p.mu.Unlock()

	if replaced != nil {
		p.logger.Warn("Prompt replaced while still active", "prompt_id", replaced.id, "new_prompt_id", id)
	}
	p.logger.Debug("Prompt started", "prompt_id", id)
	p.observer.PromptStarted(replaced != nil)
	p.notify(Event{Type: EventPromptStarted, PromptID: id, Timestamp: now})
	return id, nil
}

// Wait blocks until the active prompt is answered and returns the decoded
// response. A timeout <= 0 waits forever. The wait also ends with
// ErrPromptCancelled when the prompt is removed or replaced, with ctx.Err()
// when ctx is done, and with an *UnansweredError when the timeout expires.
// None of these outcomes removes the prompt.
//
// If the prompt was already answered, Wait returns that answer at once.
func (p *Plug) Wait(ctx context.Context, timeout time.Duration) (any, error) {
	return p.wait(ctx, "", timeout)
}

// WaitFor is Wait for a known prompt id, for callers that may race with a
// newer Start. It returns ErrNoPrompt when id is neither active nor the
// prompt of the pending answer.
func (p *Plug) WaitFor(ctx context.Context, id string, timeout time.Duration) (any, error) {
	if id == "" {
		return nil, ErrNoPrompt
	}
	return p.wait(ctx, id, timeout)
}

// wait blocks on target, or on the active prompt when target is empty.
func (p *Plug) wait(ctx context.Context, target string, timeout time.Duration) (any, error) {
	wake := func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		timer := time.AfterFunc(timeout, wake)
		defer timer.Stop()
	}
	stop := context.AfterFunc(ctx, wake)
	defer stop()

	p.mu.Lock()
	switch {
	case target != "":
		known := (p.current != nil && p.current.id == target) ||
			(p.pending != nil && p.pending.promptID == target)
		if !known {
			p.mu.Unlock()
			return nil, ErrNoPrompt
		}
	case p.current != nil:
		target = p.current.id
	case p.pending != nil:
		target = p.pending.promptID
	default:
		p.mu.Unlock()
		return nil, ErrNoPrompt
	}

	for {
		if p.pending != nil && p.pending.promptID == target {
			value := p.pending.value
			p.mu.Unlock()
			return value, nil
		}
		if p.current == nil || p.current.id != target {
			p.mu.Unlock()
			return nil, ErrPromptCancelled
		}
		if err := ctx.Err(); err != nil {
			p.mu.Unlock()
			return nil, err
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			p.mu.Unlock()
			p.logger.Info("Prompt wait timed out", "prompt_id", target, "timeout", timeout)
			p.observer.WaitTimedOut()
			return nil, &UnansweredError{PromptID: target, Timeout: timeout}
		}
		// Woken by respond, remove, start, the timer or ctx; every case re-checks above.
		p.cond.Wait()
	}
}

// Respond delivers raw as the answer to prompt id. It reports whether the
// answer was accepted. A response for an inactive or different prompt is
// ignored. A malformed payload returns a *response.DecodeError and leaves the
// prompt active so the responder can send it again.
func (p *Plug) Respond(ctx context.Context, id, raw string) (bool, error) {
	p.mu.Lock()
	if p.current == nil || p.current.id != id {
		p.mu.Unlock()
		p.logger.Debug("Ignoring response for inactive prompt", "prompt_id", id)
		return false, nil
	}
	value, err := response.Decode(raw)
	if err != nil {
		p.mu.Unlock()
		p.logger.Warn("Rejected malformed response", "prompt_id", id, "error", err)
		p.observer.ResponseRejected()
		return false, err
	}
	now := time.Now()
	waited := now.Sub(p.current.createdAt)
	rec := ports.Record{PromptID: id, Raw: raw, ReceivedAt: now}
	p.pending = &answer{promptID: id, value: value}
	p.last = &rec
	p.current = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	p.logger.Info("Prompt answered", "prompt_id", id, "waited", waited)
	p.observer.PromptAnswered(waited)
	if p.journal != nil {
		if err := p.journal.Append(ctx, rec); err != nil {
			p.logger.Warn("Failed to journal response", "prompt_id", id, "error", err)
		}
	}
	p.notify(Event{Type: EventPromptAnswered, PromptID: id, Timestamp: now})
	return true, nil
}

// Remove clears the active prompt without answering it and releases every
// waiter with ErrPromptCancelled. It reports whether a prompt was active.
func (p *Plug) Remove() bool {
	return p.remove("")
}

// remove clears the active prompt if id is empty or matches it.
func (p *Plug) remove(id string) bool {
	p.mu.Lock()
	cur := p.current
	if cur == nil || (id != "" && cur.id != id) {
		p.mu.Unlock()
		return false
	}
	p.current = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	p.logger.Debug("Prompt removed", "prompt_id", cur.id)
	p.observer.PromptRemoved()
	p.notify(Event{Type: EventPromptRemoved, PromptID: cur.id, Timestamp: time.Now()})
	return true
}

// Teardown ends the Plug's session by removing any active prompt.
// Hosts call it once when the test run that owns the Plug finishes.
func (p *Plug) Teardown() {
	if p.Remove() {
		p.logger.Info("Removed active prompt at teardown")
	}
}

// Snapshot returns the active prompt's rendering at time now, or nil when no
// prompt is active.
//
// The rendering is cached per prompt: it is recomputed only when no rendering
// exists yet or now is past the previous rendering time plus the update
// period. Two calls less than one update period apart return the same map even
// if the sources behind Dynamic elements changed in between. Callers must treat
// the returned map as read-only.
//
// Dynamic producers run while the coordinator lock is held and must not call
// back into the Plug.
func (p *Plug) Snapshot(now time.Time) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil, nil
	}
	start := time.Now()
	element, hit, err := p.current.snapshot(now, p.resolver)
	if err != nil {
		return nil, err
	}
	p.observer.SnapshotServed(hit, time.Since(start))
	return &Snapshot{ID: p.current.id, Element: element}, nil
}

// Ask starts a prompt around root and waits for its answer. If the wait
// fails for any reason other than cancellation, the prompt is removed.
func (p *Plug) Ask(ctx context.Context, root ui.Element, timeout time.Duration) (any, error) {
	id, err := p.Start(root)
	if err != nil {
		return nil, err
	}
	value, err := p.Wait(ctx, timeout)
	if err != nil && !errors.Is(err, ErrPromptCancelled) {
		p.remove(id)
	}
	return value, err
}

// Active returns the id of the active prompt, if any.
func (p *Plug) Active() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return "", false
	}
	return p.current.id, true
}

// LastResponse returns the most recent accepted response, for diagnostics.
// Until this Plug accepts a response it reads the journal, so a restarted
// daemon still reports the answer recorded before the restart.
func (p *Plug) LastResponse(ctx context.Context) (ports.Record, bool) {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last != nil {
		return *last, true
	}
	if p.journal == nil {
		return ports.Record{}, false
	}
	rec, err := p.journal.Last(ctx)
	if err != nil {
		if !errors.Is(err, ports.ErrNoRecord) {
			p.logger.Warn("Failed to read journal", "error", err)
		}
		return ports.Record{}, false
	}
	return rec, true
}

// Responses returns up to limit accepted responses, newest first; limit <= 0
// means all. Without a journal only the last response is known.
func (p *Plug) Responses(ctx context.Context, limit int) ([]ports.Record, error) {
	if p.journal != nil {
		return p.journal.List(ctx, limit)
	}
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last == nil {
		return []ports.Record{}, nil
	}
	return []ports.Record{*last}, nil
}

func (p *Plug) notify(ev Event) {
	for _, fn := range p.listeners {
		fn(ev)
	}
}
