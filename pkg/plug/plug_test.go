package plug_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/promptplug/pkg/adapters/memory"
	"github.com/aretw0/promptplug/pkg/plug"
	"github.com/aretw0/promptplug/pkg/ports"
	"github.com/aretw0/promptplug/pkg/response"
	"github.com/aretw0/promptplug/pkg/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequentialIDs yields p1, p2, ...
func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("p%d", n.Add(1))
	}
}

func serialPrompt() ui.Element {
	return ui.NewFlex(ui.TopDown, ui.NewText("Enter SN"), ui.MustTextInput(""))
}

// waitResult carries the outcome of a Wait run on another goroutine.
type waitResult struct {
	value any
	err   error
}

func waitAsync(p *plug.Plug, ctx context.Context, timeout time.Duration) <-chan waitResult {
	ch := make(chan waitResult, 1)
	go func() {
		v, err := p.Wait(ctx, timeout)
		ch <- waitResult{v, err}
	}()
	return ch
}

func TestPlug_EndToEnd(t *testing.T) {
	p := plug.New(plug.WithIDGenerator(sequentialIDs()))

	id, err := p.Start(serialPrompt())
	require.NoError(t, err)
	require.Equal(t, "p1", id)

	done := waitAsync(p, context.Background(), 0)

	go func() {
		time.Sleep(20 * time.Millisecond)
		ok, err := p.Respond(context.Background(), "p1", `{"":"UNIT-42"}`)
		assert.NoError(t, err)
		assert.True(t, ok)
	}()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, "UNIT-42", res.value)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Respond")
	}

	_, active := p.Active()
	assert.False(t, active)
}

func TestPlug_RespondWrongID(t *testing.T) {
	p := plug.New(plug.WithIDGenerator(sequentialIDs()))
	id, err := p.Start(serialPrompt())
	require.NoError(t, err)

	ok, err := p.Respond(context.Background(), "other", `{"":"x"}`)
	require.NoError(t, err)
	assert.False(t, ok)

	active, isActive := p.Active()
	assert.True(t, isActive)
	assert.Equal(t, id, active)

	_, err = p.Wait(context.Background(), 30*time.Millisecond)
	assert.ErrorIs(t, err, plug.ErrPromptUnanswered, "wrong id must not set a response")

	_, recorded := p.LastResponse(context.Background())
	assert.False(t, recorded)
}

func TestPlug_RespondWithoutPrompt(t *testing.T) {
	p := plug.New()
	ok, err := p.Respond(context.Background(), "p1", `{"":"x"}`)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPlug_DuplicateResponseIgnored(t *testing.T) {
	p := plug.New()
	id, _ := p.Start(serialPrompt())

	ok, err := p.Respond(context.Background(), id, `{"":"first"}`)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Respond(context.Background(), id, `{"":"second"}`)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := p.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	last, ok := p.LastResponse(context.Background())
	require.True(t, ok)
	assert.Equal(t, id, last.PromptID)
	assert.Equal(t, `{"":"first"}`, last.Raw)
}

func TestPlug_WaitTimeout(t *testing.T) {
	p := plug.New()
	id, _ := p.Start(serialPrompt())

	const short = 50 * time.Millisecond
	start := time.Now()
	_, err := p.Wait(context.Background(), short)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, plug.ErrPromptUnanswered)
	var unanswered *plug.UnansweredError
	require.ErrorAs(t, err, &unanswered)
	assert.Equal(t, id, unanswered.PromptID)
	assert.Equal(t, short, unanswered.Timeout)

	assert.GreaterOrEqual(t, elapsed, short)
	assert.Less(t, elapsed, short+500*time.Millisecond, "Wait overslept")

	// The prompt survives the timeout and can still be answered.
	active, ok := p.Active()
	assert.True(t, ok)
	assert.Equal(t, id, active)
	ok, err = p.Respond(context.Background(), id, `{"":"late"}`)
	require.NoError(t, err)
	assert.True(t, ok)
	v, err := p.Wait(context.Background(), short)
	require.NoError(t, err)
	assert.Equal(t, "late", v)
}

func TestPlug_WaitForeverUntilRespond(t *testing.T) {
	p := plug.New()
	id, _ := p.Start(serialPrompt())
	done := waitAsync(p, context.Background(), 0)

	select {
	case <-done:
		t.Fatal("Wait without timeout returned early")
	case <-time.After(100 * time.Millisecond):
	}

	_, err := p.Respond(context.Background(), id, `{"a":"1","b":"2"}`)
	require.NoError(t, err)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, map[string]any{"a": "1", "b": "2"}, res.value)
}

func TestPlug_RemoveCancelsWaiter(t *testing.T) {
	p := plug.New()
	_, _ = p.Start(serialPrompt())
	done := waitAsync(p, context.Background(), 0)

	time.Sleep(20 * time.Millisecond)
	assert.True(t, p.Remove())
	assert.False(t, p.Remove(), "second remove has nothing to clear")

	select {
	case res := <-done:
		assert.ErrorIs(t, res.err, plug.ErrPromptCancelled)
		assert.NotErrorIs(t, res.err, plug.ErrPromptUnanswered)
		assert.Nil(t, res.value)
	case <-time.After(2 * time.Second):
		t.Fatal("Remove did not release the waiter")
	}
}

func TestPlug_ReplaceCancelsOldWaiters(t *testing.T) {
	p := plug.New(plug.WithIDGenerator(sequentialIDs()))
	first, _ := p.Start(serialPrompt())
	oldWaiter := waitAsync(p, context.Background(), 0)
	time.Sleep(20 * time.Millisecond)

	second, err := p.Start(serialPrompt())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	res := <-oldWaiter
	assert.ErrorIs(t, res.err, plug.ErrPromptCancelled)

	ok, _ := p.Respond(context.Background(), first, `{"":"stale"}`)
	assert.False(t, ok, "replaced prompt can no longer be answered")

	newWaiter := waitAsync(p, context.Background(), time.Second)
	ok, _ = p.Respond(context.Background(), second, `{"":"fresh"}`)
	assert.True(t, ok)
	res = <-newWaiter
	require.NoError(t, res.err)
	assert.Equal(t, "fresh", res.value)
}

func TestPlug_BroadcastReleasesAllWaiters(t *testing.T) {
	p := plug.New()
	id, _ := p.Start(serialPrompt())

	const waiters = 8
	var wg sync.WaitGroup
	results := make(chan any, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := p.Wait(context.Background(), 2*time.Second)
			if err == nil {
				results <- v
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	_, err := p.Respond(context.Background(), id, `{"":"all"}`)
	require.NoError(t, err)
	wg.Wait()
	close(results)

	count := 0
	for v := range results {
		assert.Equal(t, "all", v)
		count++
	}
	assert.Equal(t, waiters, count)
}

func TestPlug_WaitContextCancel(t *testing.T) {
	p := plug.New()
	_, _ = p.Start(serialPrompt())

	ctx, cancel := context.WithCancel(context.Background())
	done := waitAsync(p, ctx, 0)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case res := <-done:
		assert.ErrorIs(t, res.err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("context cancellation did not release the waiter")
	}
	_, active := p.Active()
	assert.True(t, active, "cancelling a wait does not remove the prompt")
}

func TestPlug_WaitWithoutPrompt(t *testing.T) {
	p := plug.New()
	_, err := p.Wait(context.Background(), time.Second)
	assert.ErrorIs(t, err, plug.ErrNoPrompt)
}

func TestPlug_MalformedResponse(t *testing.T) {
	p := plug.New()
	id, _ := p.Start(serialPrompt())

	ok, err := p.Respond(context.Background(), id, `{"":`)
	assert.False(t, ok)
	assert.ErrorIs(t, err, response.ErrMalformedResponse)

	active, isActive := p.Active()
	assert.True(t, isActive, "bad payload leaves the prompt active")
	assert.Equal(t, id, active)

	ok, err = p.Respond(context.Background(), id, `{"":"ok"}`)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPlug_StartNil(t *testing.T) {
	p := plug.New()
	_, err := p.Start(nil)
	assert.ErrorIs(t, err, plug.ErrNilElement)
}

func TestPlug_StartClearsPendingAnswer(t *testing.T) {
	p := plug.New()
	id, _ := p.Start(serialPrompt())
	_, _ = p.Respond(context.Background(), id, `{"":"old"}`)

	_, _ = p.Start(serialPrompt())
	_, err := p.Wait(context.Background(), 30*time.Millisecond)
	assert.ErrorIs(t, err, plug.ErrPromptUnanswered)
}

func TestPlug_Ask(t *testing.T) {
	t.Run("answered", func(t *testing.T) {
		p := plug.New(plug.WithIDGenerator(sequentialIDs()))
		go func() {
			for {
				if id, ok := p.Active(); ok {
					_, _ = p.Respond(context.Background(), id, `{"sn":"UNIT-7"}`)
					return
				}
				time.Sleep(5 * time.Millisecond)
			}
		}()
		v, err := p.Ask(context.Background(), serialPrompt(), 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"sn": "UNIT-7"}, v)
	})

	t.Run("timeout removes prompt", func(t *testing.T) {
		p := plug.New()
		_, err := p.Ask(context.Background(), serialPrompt(), 20*time.Millisecond)
		assert.ErrorIs(t, err, plug.ErrPromptUnanswered)
		_, active := p.Active()
		assert.False(t, active)
	})
}

func TestPlug_Teardown(t *testing.T) {
	p := plug.New()
	_, _ = p.Start(serialPrompt())
	done := waitAsync(p, context.Background(), 0)
	time.Sleep(10 * time.Millisecond)

	p.Teardown()
	res := <-done
	assert.ErrorIs(t, res.err, plug.ErrPromptCancelled)

	snap, err := p.Snapshot(time.Now())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestPlug_StateListener(t *testing.T) {
	var mu sync.Mutex
	var events []plug.EventType
	p := plug.New(plug.WithStateListener(func(ev plug.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev.Type)
	}))

	id, _ := p.Start(serialPrompt())
	_, _ = p.Respond(context.Background(), "nope", `{}`)
	_, _ = p.Respond(context.Background(), id, `{"":"x"}`)
	_, _ = p.Start(serialPrompt())
	p.Remove()
	p.Remove()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []plug.EventType{
		plug.EventPromptStarted,
		plug.EventPromptAnswered,
		plug.EventPromptStarted,
		plug.EventPromptRemoved,
	}, events)
}

func TestPlug_ListenerMayCallBack(t *testing.T) {
	var seen atomic.Value
	var p *plug.Plug
	p = plug.New(plug.WithStateListener(func(ev plug.Event) {
		snap, _ := p.Snapshot(time.Now())
		seen.Store(snap != nil)
	}))
	_, _ = p.Start(serialPrompt())
	assert.Equal(t, true, seen.Load())
}

func TestPlug_WaitFor(t *testing.T) {
	p := plug.New(plug.WithIDGenerator(sequentialIDs()))
	ctx := context.Background()

	_, err := p.WaitFor(ctx, "p1", time.Second)
	assert.ErrorIs(t, err, plug.ErrNoPrompt)

	id, err := p.Start(serialPrompt())
	require.NoError(t, err)

	done := make(chan waitResult, 1)
	go func() {
		v, err := p.WaitFor(ctx, id, 0)
		done <- waitResult{v, err}
	}()
	time.Sleep(10 * time.Millisecond)
	ok, err := p.Respond(ctx, id, `{"":"UNIT-9"}`)
	require.NoError(t, err)
	require.True(t, ok)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "UNIT-9", res.value)

	// The answer stays retrievable until the next Start.
	v, err := p.WaitFor(ctx, id, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "UNIT-9", v)

	_, err = p.Start(serialPrompt())
	require.NoError(t, err)
	_, err = p.WaitFor(ctx, id, time.Second)
	assert.ErrorIs(t, err, plug.ErrNoPrompt)
}

func TestPlug_WaitForReplaced(t *testing.T) {
	p := plug.New(plug.WithIDGenerator(sequentialIDs()))
	id, _ := p.Start(serialPrompt())

	done := make(chan waitResult, 1)
	go func() {
		v, err := p.WaitFor(context.Background(), id, 0)
		done <- waitResult{v, err}
	}()
	time.Sleep(10 * time.Millisecond)
	_, _ = p.Start(serialPrompt())

	res := <-done
	assert.ErrorIs(t, res.err, plug.ErrPromptCancelled)
}

func TestPlug_LastResponseFallsBackToJournal(t *testing.T) {
	ctx := context.Background()
	journal := memory.NewJournal(0)
	require.NoError(t, journal.Append(ctx, ports.Record{PromptID: "old-1", Raw: `{"":"A"}`}))
	require.NoError(t, journal.Append(ctx, ports.Record{PromptID: "old-2", Raw: `{"":"B"}`}))

	// A fresh coordinator, as after a restart, still sees the journal.
	p := plug.New(plug.WithJournal(journal), plug.WithIDGenerator(sequentialIDs()))
	last, ok := p.LastResponse(ctx)
	require.True(t, ok)
	assert.Equal(t, "old-2", last.PromptID)

	id, _ := p.Start(serialPrompt())
	accepted, err := p.Respond(ctx, id, `{"":"C"}`)
	require.NoError(t, err)
	require.True(t, accepted)

	last, ok = p.LastResponse(ctx)
	require.True(t, ok)
	assert.Equal(t, id, last.PromptID)

	recs, err := p.Responses(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, id, recs[0].PromptID)
	assert.Equal(t, "old-2", recs[1].PromptID)
}

func TestPlug_ResponsesWithoutJournal(t *testing.T) {
	ctx := context.Background()
	p := plug.New()

	recs, err := p.Responses(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	id, _ := p.Start(serialPrompt())
	_, err = p.Respond(ctx, id, `{"":"x"}`)
	require.NoError(t, err)

	recs, err = p.Responses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].PromptID)
}
