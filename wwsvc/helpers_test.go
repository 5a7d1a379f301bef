package wwsvc

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/al-bashkir/wwsvc-go/internal/mockserver"
)

// doerFunc adapts a function to the Doer interface
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(url string) Options {
	return Options{
		BaseURL:    url,
		VendorHash: "vendor",
		AppHash:    "app",
		Secret:     "1",
		Revision:   3,
		Logger:     discardLogger(),
	}
}

// newTestClient starts a mock server and returns an unregistered client for it.
func newTestClient(t *testing.T, opts ...mockserver.Option) (*mockserver.Server, *Client) {
	t.Helper()

	opts = append([]mockserver.Option{mockserver.WithLogger(discardLogger())}, opts...)
	mock := mockserver.New(opts...)
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	c, err := New(testOptions(srv.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return mock, c
}

// newRegisteredClient is newTestClient followed by Register.
func newRegisteredClient(t *testing.T, opts ...mockserver.Option) (*mockserver.Server, *Client) {
	t.Helper()

	mock, c := newTestClient(t, opts...)
	if err := c.Register(t.Context()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return mock, c
}

// newHTTPTestServer serves mock and returns its URL.
func newHTTPTestServer(t *testing.T, mock *mockserver.Server) string {
	t.Helper()

	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}
