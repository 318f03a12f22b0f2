package plug

import (
	"log/slog"
	"time"

	"github.com/aretw0/promptplug/pkg/ports"
	"github.com/google/uuid"
)

// Option defines a functional option for configuring the Plug.
type Option func(*Plug)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plug) {
		p.logger = logger
	}
}

// WithUpdatePeriod sets how long a snapshot is reused before dynamic content
// is evaluated again. Non-positive values keep DefaultUpdatePeriod.
func WithUpdatePeriod(d time.Duration) Option {
	return func(p *Plug) {
		if d > 0 {
			p.updatePeriod = d
		}
	}
}

// WithMaxDepth bounds Flex/Dynamic nesting when resolving snapshots.
func WithMaxDepth(n int) Option {
	return func(p *Plug) {
		p.resolver.MaxDepth = n
	}
}

// WithIDGenerator replaces the default UUID prompt ids.
func WithIDGenerator(gen func() string) Option {
	return func(p *Plug) {
		if gen != nil {
			p.newID = gen
		}
	}
}

// WithObserver configures the metrics observer.
func WithObserver(o Observer) Option {
	return func(p *Plug) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithJournal records every accepted response in j.
func WithJournal(j ports.Journal) Option {
	return func(p *Plug) {
		p.journal = j
	}
}

// WithStateListener registers fn as a "state changed" notification.
// It is called after every Start, accepted Respond and effective Remove,
// with the coordinator lock released. It may be given several times.
func WithStateListener(fn func(Event)) Option {
	return func(p *Plug) {
		if fn != nil {
			p.listeners = append(p.listeners, fn)
		}
	}
}

func defaultID() string {
	return uuid.NewString()
}
