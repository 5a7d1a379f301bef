package wwsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
)

// PrepareRequest builds a signed EXECJSON request. It returns
// ErrNotAuthenticated before any I/O when the client is not registered.
// Extra headers override the defaults.
func (c *Client) PrepareRequest(ctx context.Context, method, function string, version uint32, params Parameters, extra map[string]string) (*http.Request, error) {
	if !c.Registered() {
		return nil, ErrNotAuthenticated
	}

	sh, err := c.buildHeaders(ResultTypeJSON, extra)
	if err != nil {
		return nil, err
	}
	if !sh.signed {
		// deregistered concurrently
		return nil, ErrNotAuthenticated
	}

	body := NewExecJSONRequest(function, params.serviceParameters(), version, sh.servicePass, sh.sig)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("wwsvc: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.execURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("wwsvc: build request: %w", err)
	}
	if sh.header.Get("Content-Type") == "" {
		sh.header.Set("Content-Type", "application/json")
	}
	req.Header = sh.header

	return req, nil
}

// ExecuteRequest sends req and advances the cursor from the WWSVC-CURSOR
// response header. The HTTP status is not inspected; the COMRESULT of the
// body carries the outcome.
func (c *Client) ExecuteRequest(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: path.Base(req.URL.Path), Err: err}
	}
	c.observeCursor(resp.Header)
	return resp, nil
}

// RequestAsResponse prepares and executes a request. The caller closes the
// response body.
func (c *Client) RequestAsResponse(ctx context.Context, method, function string, version uint32, params Parameters, extra map[string]string) (*http.Response, error) {
	req, err := c.PrepareRequest(ctx, method, function, version, params, extra)
	if err != nil {
		return nil, err
	}

	if c.logger.Enabled(ctx, slog.LevelDebug) {
		if dump, err := DumpRequest(req); err == nil {
			c.logger.DebugContext(ctx, "sending request", "function", function, "request", dump)
		}
	}

	return c.ExecuteRequest(req)
}

// Request executes a function and returns the raw JSON response.
func (c *Client) Request(ctx context.Context, method, function string, version uint32, params Parameters, extra map[string]string) (json.RawMessage, error) {
	body, status, err := c.roundTrip(ctx, method, function, version, params, extra)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &DecodeError{StatusCode: status, Body: body, Err: fmt.Errorf("invalid JSON")}
	}
	return json.RawMessage(body), nil
}

// RequestAs executes a function and decodes the response into T. A
// *DecodeError carries the raw body when decoding fails.
func RequestAs[T any](ctx context.Context, c *Client, method, function string, version uint32, params Parameters, extra map[string]string) (T, error) {
	var out T
	body, status, err := c.roundTrip(ctx, method, function, version, params, extra)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, &DecodeError{StatusCode: status, Body: body, Err: err}
	}
	return out, nil
}

func (c *Client) roundTrip(ctx context.Context, method, function string, version uint32, params Parameters, extra map[string]string) ([]byte, int, error) {
	resp, err := c.RequestAsResponse(ctx, method, function, version, params, extra)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Op: "EXECJSON", Err: err}
	}
	return body, resp.StatusCode, nil
}
