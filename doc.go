/*
Package promptplug lets automated test code ask a human operator, or another
process, for input while the test runs.

A test goroutine describes what it needs as a tree of UI elements (package ui)
and hands it to a coordinator (package plug). The coordinator exposes a cached
snapshot of the prompt for remote UIs to render and pairs the prompt with
exactly one matching response. The helpers in this package cover the common
single-value cases on top of that.

# Usage

	p := plug.New()
	defer p.Teardown()

	// Serve p to responders, e.g. with the http adapter, then:
	serial, err := promptplug.AskText(ctx, p, "Scan the unit's serial number", 5*time.Minute)
	if errors.Is(err, plug.ErrPromptUnanswered) {
		t.Skip("operator did not answer")
	}

The plugd command (cmd/plugd) runs the coordinator as a daemon with an HTTP
API, Prometheus metrics, an MCP endpoint and an optional Redis journal.
*/
package promptplug
