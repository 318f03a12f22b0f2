package plug

import (
	"time"

	"github.com/aretw0/promptplug/pkg/ui"
)

// DefaultUpdatePeriod is how long a resolved snapshot is served before the
// prompt's dynamic content is evaluated again.
const DefaultUpdatePeriod = time.Second

// Snapshot is the wire form of the active prompt.
type Snapshot struct {
	ID      string         `json:"id"`
	Element map[string]any `json:"element"`
}

// prompt is one in-flight request. Its cache fields are guarded by the owning Plug's mutex.
type prompt struct {
	id           string
	root         ui.Element
	updatePeriod time.Duration
	createdAt    time.Time

	cached map[string]any
	expiry time.Time
}

func newPrompt(id string, root ui.Element, period time.Duration, now time.Time) *prompt {
	return &prompt{
		id:           id,
		root:         root,
		updatePeriod: period,
		createdAt:    now,
	}
}

// snapshot returns the cached rendering while now <= expiry, otherwise it
// resolves and serializes the root again and restarts the window at now.
// hit reports whether the cached rendering was served.
func (p *prompt) snapshot(now time.Time, r ui.Resolver) (element map[string]any, hit bool, err error) {
	if p.cached != nil && !now.After(p.expiry) {
		return p.cached, true, nil
	}
	static, err := r.Resolve(p.root)
	if err != nil {
		return nil, false, err
	}
	p.cached = ui.Serialize(static)
	p.expiry = now.Add(p.updatePeriod)
	return p.cached, false, nil
}
