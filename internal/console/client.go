package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/promptplug/pkg/plug"
	"github.com/aretw0/promptplug/pkg/ports"
)

// ErrRejected is returned when the station refuses a payload (4xx other than 409).
var ErrRejected = errors.New("response rejected by station")

// ErrDuplicateInput is returned for a prompt whose inputs share an id, since
// one payload key cannot carry both answers.
var ErrDuplicateInput = errors.New("duplicate input id")

// Client talks to the prompt API of a remote station. It satisfies the
// coordinator interface of the MCP adapter, so an agent can answer a
// station it does not run in.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a Client for the station at baseURL.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

// Fetch returns the station's active prompt, or nil when it is idle.
func (c *Client) Fetch(ctx context.Context) (*plug.Snapshot, error) {
	var snap plug.Snapshot
	found, err := c.getJSON(ctx, "/prompt", &snap)
	if err != nil {
		return nil, fmt.Errorf("fetch prompt: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &snap, nil
}

// Snapshot is Fetch without a caller context; the station decides freshness.
func (c *Client) Snapshot(time.Time) (*plug.Snapshot, error) {
	return c.Fetch(context.Background())
}

// Respond posts raw to prompt id. It reports false when the station no
// longer has that prompt active.
func (c *Client) Respond(ctx context.Context, id, raw string) (bool, error) {
	endpoint := c.BaseURL + "/prompt/" + url.PathEscape(id) + "/response"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(raw))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("post response: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		return true, nil
	case http.StatusConflict:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrRejected, statusError(resp))
	}
}

// LastResponse returns the station's most recent accepted response.
func (c *Client) LastResponse(ctx context.Context) (ports.Record, bool) {
	var rec ports.Record
	found, err := c.getJSON(ctx, "/responses/last", &rec)
	if err != nil || !found {
		return ports.Record{}, false
	}
	return rec, true
}

// getJSON decodes a 200 body into v. It reports false for 204 and 404.
func (c *Client) getJSON(ctx context.Context, path string, v any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, json.NewDecoder(resp.Body).Decode(v)
	case http.StatusNoContent, http.StatusNotFound:
		return false, nil
	default:
		return false, errors.New(statusError(resp))
	}
}

func statusError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
