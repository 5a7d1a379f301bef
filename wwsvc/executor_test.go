package wwsvc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/al-bashkir/wwsvc-go/apphash"
	"github.com/al-bashkir/wwsvc-go/internal/mockserver"
)

func TestPrepareRequestNotAuthenticated(t *testing.T) {
	calls := 0
	opts := testOptions("http://webware.invalid")
	opts.HTTPClient = doerFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("unexpected request")
	})
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.PrepareRequest(t.Context(), http.MethodPut, "ARTIKEL.GET", 1, nil, nil); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("PrepareRequest: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := c.Request(t.Context(), http.MethodPut, "ARTIKEL.GET", 1, nil, nil); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Request: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := RequestAs[map[string]any](t.Context(), c, http.MethodPut, "ARTIKEL.GET", 1, nil, nil); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("RequestAs: expected ErrNotAuthenticated, got %v", err)
	}

	p := NewPaginator[article](c, http.MethodPut, "ARTIKEL.GET", 1, nil, 10)
	if _, _, err := p.Next(t.Context()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Next: expected ErrNotAuthenticated, got %v", err)
	}

	if calls != 0 {
		t.Errorf("expected no network calls, got %d", calls)
	}
}

func TestPrepareRequestBodyMatchesHeaders(t *testing.T) {
	creds := NewCredentials("PASS", "APP")
	opts := testOptions("https://webware.example.com")
	opts.Credentials = &creds
	c, err := NewRegistered(opts)
	if err != nil {
		t.Fatal(err)
	}

	params := Parameters{"FELDER": "ART_1_25,ART_2_25", "ART_1_25": "A*"}
	req, err := c.PrepareRequest(t.Context(), http.MethodPut, "ARTIKEL.GET", 2, params, nil)
	if err != nil {
		t.Fatalf("PrepareRequest failed: %v", err)
	}

	if req.Method != http.MethodPut {
		t.Errorf("expected PUT, got %s", req.Method)
	}
	if req.URL.String() != "https://webware.example.com/WWSVC/EXECJSON" {
		t.Errorf("unexpected URL %s", req.URL)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	raw, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatal(err)
	}
	var body ExecJSONRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}

	if body.Function.FunctionName != "ARTIKEL.GET" || body.Function.Revision != 2 {
		t.Errorf("unexpected function %+v", body.Function)
	}
	if len(body.Function.Parameters) != 2 || body.Function.Parameters[0].Name != "ART_1_25" {
		t.Errorf("expected sorted parameters, got %+v", body.Function.Parameters)
	}

	info := body.PassInfo
	if info.ServicePass != "PASS" || info.ExecuteMode != "SYNCHRON" {
		t.Errorf("unexpected pass info %+v", info)
	}
	if req.Header.Get(HeaderRequestID) != strconv.FormatUint(uint64(info.RequestID), 10) {
		t.Errorf("request id differs: header %s, body %d", req.Header.Get(HeaderRequestID), info.RequestID)
	}
	if req.Header.Get(HeaderTimestamp) != info.Timestamp {
		t.Errorf("timestamp differs: header %s, body %s", req.Header.Get(HeaderTimestamp), info.Timestamp)
	}
	if req.Header.Get(HeaderHash) != info.AppHash || info.AppHash != apphash.Compute("APP", info.Timestamp) {
		t.Errorf("hash differs: header %s, body %s", req.Header.Get(HeaderHash), info.AppHash)
	}
}

func TestPrepareRequestEmptyParameters(t *testing.T) {
	creds := NewCredentials("PASS", "APP")
	opts := testOptions("https://webware.example.com")
	opts.Credentials = &creds
	c, err := NewRegistered(opts)
	if err != nil {
		t.Fatal(err)
	}

	req, err := c.PrepareRequest(t.Context(), http.MethodPut, "LAGER.GET", 1, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(req.Body)
	if !strings.Contains(string(raw), `"PARAMETER":[]`) {
		t.Errorf("expected empty PARAMETER array, got %s", raw)
	}
}

func TestRequestAgainstServer(t *testing.T) {
	mock, c := newRegisteredClient(t, mockserver.WithPages(
		mockserver.ListPage("", "ARTIKELLISTE", "ARTIKEL", 0, 3),
	))

	raw, err := c.Request(t.Context(), http.MethodPut, "ARTIKEL.GET", 1, Parameters{"FELDER": "ID"}, nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	resp, err := DecodeList[struct {
		ID string `json:"ID"`
	}](raw, ShapeFor("ARTIKEL"))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 3 || resp.Items[2].ID != "2" {
		t.Errorf("unexpected items %+v", resp.Items)
	}
	if resp.ComResult.Status != 200 {
		t.Errorf("expected COMRESULT 200, got %d", resp.ComResult.Status)
	}

	if mock.Calls(mockserver.EndpointExecJSON) != 1 {
		t.Errorf("expected 1 EXECJSON call, got %d", mock.Calls(mockserver.EndpointExecJSON))
	}
}

func TestSequentialRequestIDs(t *testing.T) {
	mock, c := newRegisteredClient(t)

	for i := 0; i < 3; i++ {
		if _, err := c.Request(t.Context(), http.MethodPut, "LAGER.GET", 1, nil, nil); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}

	for i, call := range mock.Requests() {
		if want := uint32(i + 1); call.Body.PassInfo.RequestID != want {
			t.Errorf("request %d: expected id %d, got %d", i, want, call.Body.PassInfo.RequestID)
		}
	}
}

func TestRequestInvalidJSON(t *testing.T) {
	_, c := newRegisteredClient(t, mockserver.WithPages(mockserver.Page{Body: "<html>oops</html>"}))

	_, err := c.Request(t.Context(), http.MethodPut, "ARTIKEL.GET", 1, nil, nil)

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if string(de.Body) != "<html>oops</html>" || de.StatusCode != http.StatusOK {
		t.Errorf("unexpected decode error %+v", de)
	}
}

func TestRequestAsDecodeErrorKeepsBody(t *testing.T) {
	body := `{"COMRESULT":{"STATUS":"not a number"}}`
	_, c := newRegisteredClient(t, mockserver.WithPages(mockserver.Page{Body: body}))

	type result struct {
		ComResult ComResult `json:"COMRESULT"`
	}
	_, err := RequestAs[result](t.Context(), c, http.MethodPut, "ARTIKEL.GET", 1, nil, nil)

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if string(de.Body) != body {
		t.Errorf("expected raw body, got %q", de.Body)
	}

	// The raw body can still be inspected
	var fallback map[string]any
	if err := json.Unmarshal(de.Body, &fallback); err != nil {
		t.Errorf("fallback decode failed: %v", err)
	}
}

func TestRequestAsTyped(t *testing.T) {
	_, c := newRegisteredClient(t, mockserver.WithPages(
		mockserver.ListPage("", "LAGERLISTE", "LAGER", 10, 1),
	))

	type lagerResponse struct {
		ComResult ComResult `json:"COMRESULT"`
		Liste     struct {
			Lager []struct {
				ID string `json:"ID"`
			} `json:"LAGER"`
		} `json:"LAGERLISTE"`
	}

	got, err := RequestAs[lagerResponse](t.Context(), c, http.MethodPut, "LAGER.GET", 1, nil, nil)
	if err != nil {
		t.Fatalf("RequestAs failed: %v", err)
	}
	if len(got.Liste.Lager) != 1 || got.Liste.Lager[0].ID != "10" {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestExecuteRequestTransportError(t *testing.T) {
	creds := NewCredentials("P", "A")
	opts := testOptions("http://webware.invalid")
	opts.Credentials = &creds
	opts.HTTPClient = doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("timeout")
	})
	c, err := NewRegistered(opts)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Request(t.Context(), http.MethodPut, "ARTIKEL.GET", 1, nil, nil)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if te.Op != "EXECJSON" {
		t.Errorf("expected op EXECJSON, got %s", te.Op)
	}
}

func TestExecuteRequestAdvancesCursor(t *testing.T) {
	_, c := newRegisteredClient(t, mockserver.WithPages(
		mockserver.NoListPage("tok1"),
		mockserver.NoListPage("tok2"),
		mockserver.NoListPage("tok3"),
	))

	// Without a cursor the header is ignored
	if _, err := c.Request(t.Context(), http.MethodPut, "ARTIKEL.GET", 1, nil, nil); err != nil {
		t.Fatal(err)
	}
	if c.HasCursor() {
		t.Fatal("response must not create a cursor")
	}

	c.CreateCursor(10)
	if _, err := c.Request(t.Context(), http.MethodPut, "ARTIKEL.GET", 1, nil, nil); err != nil {
		t.Fatal(err)
	}
	if cur, _ := c.Cursor(); cur.ID() != "tok2" {
		t.Errorf("expected cursor tok2, got %s", cur.ID())
	}

	// Suspended cursors are neither sent nor advanced
	c.SuspendCursor()
	if _, err := c.Request(t.Context(), http.MethodPut, "ARTIKEL.GET", 1, nil, nil); err != nil {
		t.Fatal(err)
	}
	if cur, _ := c.Cursor(); cur.ID() != "tok2" {
		t.Errorf("suspended cursor advanced to %s", cur.ID())
	}
	if !c.CursorSuspended() {
		t.Error("expected suspended cursor")
	}
}

func TestDumpRequest(t *testing.T) {
	creds := NewCredentials("PASS", "APP")
	opts := testOptions("https://webware.example.com:8443")
	opts.Credentials = &creds
	c, err := NewRegistered(opts)
	if err != nil {
		t.Fatal(err)
	}

	req, err := c.PrepareRequest(t.Context(), http.MethodPut, "ARTIKEL.GET", 1, Parameters{"FELDER": "ART_1_25"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	dump, err := DumpRequest(req)
	if err != nil {
		t.Fatalf("DumpRequest failed: %v", err)
	}

	for _, want := range []string{
		"PUT /WWSVC/EXECJSON HTTP/1.1",
		"Host: webware.example.com:8443",
		"Wwsvc-Reqid: 1",
		`"FUNCTIONNAME":"ARTIKEL.GET"`,
	} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q:\n%s", want, dump)
		}
	}

	// Body is still readable after the dump
	raw, err := io.ReadAll(req.Body)
	if err != nil || !strings.Contains(string(raw), "ARTIKEL.GET") {
		t.Errorf("body not restored after dump: %q, %v", raw, err)
	}
}
