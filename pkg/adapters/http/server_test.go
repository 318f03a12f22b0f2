package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/promptplug/pkg/adapters/memory"
	"github.com/aretw0/promptplug/pkg/plug"
	"github.com/aretw0/promptplug/pkg/ports"
	"github.com/aretw0/promptplug/pkg/ui"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*plug.Plug, http.Handler, *StreamManager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	streams := NewStreamManager(logger)
	n := 0
	p := plug.New(
		plug.WithStateListener(streams.Notify),
		plug.WithIDGenerator(func() string {
			n++
			return "p" + string(rune('0'+n))
		}),
	)
	h := NewHandler(p, WithLogger(logger), WithStreams(streams), WithStation("bench-1"),
		WithMetricsHandler(promhttp.Handler()))
	return p, h, streams
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetPrompt(t *testing.T) {
	p, h, _ := newTestServer(t)

	w := do(h, "GET", "/prompt", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := p.Start(ui.NewFlex(ui.TopDown, ui.NewText("Enter SN"), ui.MustTextInput("")))
	require.NoError(t, err)

	w = do(h, "GET", "/prompt", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"id": "p1",
		"element": {
			"class": "Flex",
			"direction": "top_down",
			"children": [
				{"class": "Text", "s": "Enter SN"},
				{"class": "TextInput", "id": "", "placeholder": ""}
			]
		}
	}`, w.Body.String())
}

func TestGetPrompt_ResolveError(t *testing.T) {
	p, h, _ := newTestServer(t)
	_, _ = p.Start(ui.NewDynamic(nil))

	w := do(h, "GET", "/prompt", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPostResponse(t *testing.T) {
	p, h, _ := newTestServer(t)
	id, _ := p.Start(ui.MustTextInput(""))

	done := make(chan any, 1)
	go func() {
		v, err := p.Wait(context.Background(), 2*time.Second)
		if err != nil {
			done <- err
			return
		}
		done <- v
	}()

	w := do(h, "POST", "/prompt/other/response", `{"":"x"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(h, "POST", "/prompt/"+id+"/response", `{"":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "malformed")

	w = do(h, "POST", "/prompt/"+id+"/response", `{"":"UNIT-42"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var res RespondResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Accepted)

	assert.Equal(t, "UNIT-42", <-done)

	w = do(h, "GET", "/responses/last", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"prompt_id":"p1"`)
}

func TestGetResponses(t *testing.T) {
	ctx := context.Background()
	journal := memory.NewJournal(0)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, journal.Append(ctx, ports.Record{PromptID: id, Raw: `{}`}))
	}
	h := NewHandler(plug.New(plug.WithJournal(journal)), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	w := do(h, "GET", "/responses?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var recs []ports.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].PromptID)
	assert.Equal(t, "b", recs[1].PromptID)

	w = do(h, "GET", "/responses", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	assert.Len(t, recs, 3)

	// Served from the journal although this coordinator accepted nothing yet.
	w = do(h, "GET", "/responses/last", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"prompt_id":"c"`)

	w = do(h, "GET", "/responses?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostResponse_TooLarge(t *testing.T) {
	t.Setenv("PLUGD_MAX_RESPONSE_SIZE", "16")
	p, h, _ := newTestServer(t)
	id, _ := p.Start(ui.MustTextInput(""))

	w := do(h, "POST", "/prompt/"+id+"/response", `{"":"this is far too long"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	_, active := p.Active()
	assert.True(t, active)
}

func TestDeletePrompt(t *testing.T) {
	p, h, _ := newTestServer(t)

	w := do(h, "DELETE", "/prompt", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, _ = p.Start(ui.NewText("x"))
	w = do(h, "DELETE", "/prompt", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, active := p.Active()
	assert.False(t, active)
}

func TestHealthInfoMetrics(t *testing.T) {
	_, h, _ := newTestServer(t)

	w := do(h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(h, "GET", "/info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"station":"bench-1"`)
	assert.Contains(t, w.Body.String(), `"subscribers":0`)

	w = do(h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(h, "OPTIONS", "/prompt", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents(t *testing.T) {
	p, h, streams := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/events", nil).WithContext(ctx)

	served := make(chan struct{})
	go func() {
		defer close(served)
		h.ServeHTTP(wSub, reqSub)
	}()

	require.Eventually(t, func() bool { return streams.Len() == 1 }, time.Second, 10*time.Millisecond)

	id, _ := p.Start(ui.MustTextInput(""))
	_, err := p.Respond(context.Background(), id, `{"":"ok"}`)
	require.NoError(t, err)

	// Give the handler time to drain the buffered events before disconnecting.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-served

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"type":"prompt_started"`)
	assert.Contains(t, output, `"type":"prompt_answered"`)
	assert.Equal(t, 0, streams.Len())
}

func TestSubscribeEvents_ClosedStreams(t *testing.T) {
	_, h, streams := newTestServer(t)

	wSub := httptest.NewRecorder()
	served := make(chan struct{})
	go func() {
		defer close(served)
		h.ServeHTTP(wSub, httptest.NewRequest("GET", "/events", nil))
	}()
	require.Eventually(t, func() bool { return streams.Len() == 1 }, time.Second, 10*time.Millisecond)

	streams.Close()
	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("stream did not end after Close")
	}
	assert.Equal(t, 0, streams.Len())

	// Late subscribers get a finished stream.
	ch, cancel := streams.Subscribe()
	defer cancel()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestPostPrompt(t *testing.T) {
	p, h, _ := newTestServer(t)

	w := do(h, "POST", "/prompt", `{"class":"Flex","direction":"top_down","children":[
		{"class":"Text","s":"Scan the unit"},
		{"class":"TextInput","id":"","placeholder":"serial"}
	]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"p1"}`, w.Body.String())

	id, active := p.Active()
	assert.True(t, active)
	assert.Equal(t, "p1", id)
}

func TestPostPrompt_YAML(t *testing.T) {
	p, h, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/prompt", strings.NewReader("class: Select\nid: verdict\nchoices: [pass, fail]\n"))
	req.Header.Set("Content-Type", "application/yaml")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	snap, err := p.Snapshot(time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Select", snap.Element["class"])
}

func TestPostPrompt_Invalid(t *testing.T) {
	_, h, _ := newTestServer(t)

	w := do(h, "POST", "/prompt", `{"class":"Video"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(h, "POST", "/prompt", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAnswer(t *testing.T) {
	p, h, _ := newTestServer(t)
	id, err := p.Start(ui.MustTextInput(""))
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = p.Respond(context.Background(), id, `{"":"UNIT-42"}`)
	}()

	w := do(h, "GET", "/prompt/p1/answer?timeout=2s", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"p1","value":"UNIT-42"}`, w.Body.String())
}

func TestGetAnswer_Outcomes(t *testing.T) {
	p, h, _ := newTestServer(t)

	w := do(h, "GET", "/prompt/p1/answer?timeout=10ms", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err := p.Start(ui.MustTextInput(""))
	require.NoError(t, err)

	w = do(h, "GET", "/prompt/p1/answer?timeout=20ms", "")
	assert.Equal(t, http.StatusRequestTimeout, w.Code)

	w = do(h, "GET", "/prompt/p1/answer?timeout=soon", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	go func() {
		time.Sleep(20 * time.Millisecond)
		p.Remove()
	}()
	w = do(h, "GET", "/prompt/p1/answer?timeout=2s", "")
	assert.Equal(t, http.StatusGone, w.Code)
}
