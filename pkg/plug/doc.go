/*
Package plug implements the operator prompt coordinator.

A Plug lets a test-execution goroutine ask an external, asynchronous responder
(a human behind a remote UI, or another process) for input, while pollers read
a rate-limited snapshot of the prompt's UI for display.

One mutex and one condition variable guard all coordinator state. Start and
Respond pair exactly one prompt with exactly one response: a response whose id
does not match the active prompt is ignored, so duplicate or late answers are
harmless.

# Lifecycle

	Idle --Start--> Prompting --Respond(id)--> Idle (answered)
	                Prompting --Remove------> Idle (cancelled)

A Wait that times out ends only the waiting call; the prompt stays active and
can still be answered or waited on again. Ask bundles Start and Wait and removes
its prompt when the wait fails.

# Usage

	p := plug.New(plug.WithLogger(logger))
	defer p.Teardown()

	input := ui.MustTextInput("serial number")
	value, err := p.Ask(ctx, ui.NewFlex(ui.TopDown, ui.NewText("Enter SN"), input), time.Minute)
	switch {
	case errors.Is(err, plug.ErrPromptUnanswered):
		// operator did not answer in time
	case errors.Is(err, plug.ErrPromptCancelled):
		// prompt was removed or replaced
	}
*/
package plug
