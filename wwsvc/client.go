package wwsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/al-bashkir/wwsvc-go/internal/logsanitize"
	"github.com/al-bashkir/wwsvc-go/internal/transport"
)

// DefaultResultMaxLines is sent as WWSVC-ACCEPT-RESULT-MAX-LINES when no
// cursor is open.
const DefaultResultMaxLines uint32 = 1000

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer = transport.Doer

// BreakerOptions configures the optional circuit breaker.
type BreakerOptions = transport.BreakerOptions

// Options configures a Client.
type Options struct {
	// BaseURL is the WEBWARE server, e.g. "https://webware.example.com:8443".
	// Any path is replaced by /WWSVC/.
	BaseURL string

	VendorHash string
	AppHash    string
	Secret     string
	Revision   uint32

	// Credentials of a pre-provisioned service pass. When set, Register adopts
	// them without contacting the server.
	Credentials *Credentials

	ResultMaxLines uint32        // 0 = DefaultResultMaxLines
	AllowInsecure  bool          // skip TLS verification
	Timeout        time.Duration // 0 = 60s

	RateLimit float64 // requests per second, 0 = unlimited
	RateBurst int
	Breaker   BreakerOptions

	// HTTPClient replaces the built-in transport. AllowInsecure and Timeout
	// are ignored when it is set.
	HTTPClient Doer

	Logger *slog.Logger
}

// State is the authentication state of a Client.
type State int

const (
	StateUnregistered State = iota
	StateRegistered
)

func (s State) String() string {
	if s == StateRegistered {
		return "registered"
	}
	return "unregistered"
}

// sessionState is the mutable part of a Client, guarded by Client.mu.
type sessionState struct {
	resultMaxLines uint32
	cursor         *Cursor
	currentRequest uint32
	suspendCursor  bool
	credentials    *Credentials // set while registered
	preset         *Credentials // adopted by the next Register
}

// Client is a WEBSERVICES session. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	vendorHash string
	appHash    string
	secret     string
	revision   uint32

	http   Doer
	logger *slog.Logger
	now    func() time.Time

	regMu sync.Mutex // serialises Register and Deregister

	mu    sync.Mutex
	state sessionState
}

// New returns an unregistered client.
func New(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	doer := opts.HTTPClient
	if doer == nil {
		doer = transport.NewHTTPClient(transport.Options{
			Timeout:       opts.Timeout,
			AllowInsecure: opts.AllowInsecure,
		})
	}
	doer = transport.Wrap(doer, transport.Options{
		RateLimit: opts.RateLimit,
		RateBurst: opts.RateBurst,
		Breaker:   opts.Breaker,
	})

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxLines := opts.ResultMaxLines
	if maxLines == 0 {
		maxLines = DefaultResultMaxLines
	}

	c := &Client{
		base:       base,
		vendorHash: opts.VendorHash,
		appHash:    opts.AppHash,
		secret:     opts.Secret,
		revision:   opts.Revision,
		http:       doer,
		logger:     logger.With("component", "wwsvc", "client_id", uuid.NewString()),
		now:        time.Now,
		state:      sessionState{resultMaxLines: maxLines},
	}
	if opts.Credentials != nil {
		creds := *opts.Credentials
		c.state.preset = &creds
	}

	return c, nil
}

// NewRegistered returns a client that is registered with opts.Credentials
// without contacting the server.
func NewRegistered(opts Options) (*Client, error) {
	if opts.Credentials == nil || opts.Credentials.ServicePass == "" || opts.Credentials.AppID == "" {
		return nil, ErrMissingCredentials
	}
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	if _, err := c.register(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &URLError{URL: raw, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &URLError{URL: raw, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return nil, &URLError{URL: raw, Err: errors.New("missing host")}
	}
	return u.ResolveReference(&url.URL{Path: "/WWSVC/"}), nil
}

// serviceURL returns /WWSVC/<segments...>/ with every segment path-escaped.
func (c *Client) serviceURL(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	escaped[len(escaped)-1] += "/"
	return c.base.JoinPath(escaped...).String()
}

func (c *Client) execURL() string {
	return c.base.JoinPath("EXECJSON").String()
}

// State reports whether the client is registered.
func (c *Client) State() State {
	if c.Registered() {
		return StateRegistered
	}
	return StateUnregistered
}

// Registered reports whether the client holds a service pass.
func (c *Client) Registered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.credentials != nil
}

// Credentials returns the credentials of the current session.
func (c *Client) Credentials() (Credentials, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.credentials == nil {
		return Credentials{}, false
	}
	return *c.state.credentials, true
}

// Register obtains a service pass. A registered client is left unchanged.
func (c *Client) Register(ctx context.Context) error {
	_, err := c.register(ctx)
	return err
}

// register reports whether the server was contacted.
func (c *Client) register(ctx context.Context) (bool, error) {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	c.mu.Lock()
	if c.state.credentials != nil {
		c.mu.Unlock()
		return false, nil
	}
	if preset := c.state.preset; preset != nil {
		c.state.credentials = preset
		c.mu.Unlock()
		c.logger.Info("registered with preset credentials", "credentials", *preset)
		return false, nil
	}
	c.mu.Unlock()

	target := c.serviceURL("WWSERVICE", "REGISTER", c.vendorHash, c.appHash, c.secret, strconv.FormatUint(uint64(c.revision), 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error repeats the URL, which carries the secret.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = fmt.Errorf("%s: %w", ue.Op, ue.Err)
		}
		return true, fmt.Errorf("%w: %w", ErrRegistrationFailed, &TransportError{Op: "REGISTER", Err: err})
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("%w: %w", ErrRegistrationFailed, &TransportError{Op: "REGISTER", Err: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return true, fmt.Errorf("%w: unexpected status %d", ErrRegistrationFailed, resp.StatusCode)
	}

	var rr RegisterResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return true, fmt.Errorf("%w: %w", ErrRegistrationFailed, &DecodeError{StatusCode: resp.StatusCode, Body: body, Err: err})
	}
	if rr.ServicePass == nil || rr.ServicePass.PassID == "" || rr.ServicePass.AppID == "" {
		info := ""
		if rr.ComResult != nil {
			info = logsanitize.Sanitize(strings.TrimSpace(rr.ComResult.Code + " " + rr.ComResult.Info))
		}
		return true, fmt.Errorf("%w: response carries no service pass %s", ErrRegistrationFailed, info)
	}

	creds := &Credentials{ServicePass: rr.ServicePass.PassID, AppID: rr.ServicePass.AppID}
	c.mu.Lock()
	c.state.credentials = creds
	c.mu.Unlock()

	c.logger.Info("registered", "credentials", *creds)
	return true, nil
}

// Deregister invalidates the service pass. Network failures are logged and
// otherwise ignored; the client is unregistered afterwards in every case.
func (c *Client) Deregister(ctx context.Context) {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	creds, ok := c.Credentials()
	if !ok {
		return
	}

	if sh, err := c.buildHeaders(ResultTypeJSON, nil); err == nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serviceURL("WWSERVICE", "DEREGISTER", creds.ServicePass), nil)
		if err == nil {
			req.Header = sh.header
			if resp, err := c.http.Do(req); err != nil {
				c.logger.Warn("deregister failed", "error", err)
			} else {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			}
		}
	}

	c.mu.Lock()
	c.state.credentials = nil
	c.state.preset = nil
	c.mu.Unlock()

	c.logger.Info("deregistered")
}

// WithRegistered registers, runs fn and deregisters again. The service pass
// is only released when this call obtained it from the server, so preset
// credentials and an already registered session survive.
func (c *Client) WithRegistered(ctx context.Context, fn func(context.Context, *Client) error) error {
	contacted, err := c.register(ctx)
	if err != nil {
		return err
	}
	if contacted {
		defer c.Deregister(context.WithoutCancel(ctx))
	}
	return fn(ctx, c)
}

// CreateCursor replaces any existing cursor with a new one. Requests carry
// WWSVC-CURSOR until the server closes it.
func (c *Client) CreateCursor(pageSize uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.cursor = NewCursor(pageSize)
}

// CloseCursor drops the cursor.
func (c *Client) CloseCursor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.cursor = nil
}

// HasCursor reports whether a cursor is held, open or closed.
func (c *Client) HasCursor() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.cursor != nil
}

// CursorClosed reports true when no cursor is held or the server closed it.
func (c *Client) CursorClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.cursor == nil || c.state.cursor.Closed()
}

// Cursor returns a copy of the current cursor.
func (c *Client) Cursor() (Cursor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.cursor == nil {
		return Cursor{}, false
	}
	return *c.state.cursor, true
}

// SuspendCursor stops sending and advancing the cursor until ResumeCursor,
// so unrelated requests can be made while a cursor is open.
func (c *Client) SuspendCursor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.suspendCursor = true
}

// ResumeCursor undoes SuspendCursor.
func (c *Client) ResumeCursor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.suspendCursor = false
}

// CursorSuspended reports whether the cursor is suspended.
func (c *Client) CursorSuspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.suspendCursor
}

// SetResultMaxLines changes the page size requested outside of a cursor.
func (c *Client) SetResultMaxLines(n uint32) {
	if n == 0 {
		n = DefaultResultMaxLines
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.resultMaxLines = n
}

// ResultMaxLines returns the page size requested outside of a cursor.
func (c *Client) ResultMaxLines() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.resultMaxLines
}

// observeCursor advances the cursor from a response header.
func (c *Client) observeCursor(h http.Header) {
	values := h.Values(HeaderCursor)
	if len(values) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.state
	if s.suspendCursor || s.cursor == nil || s.cursor.Closed() {
		return
	}
	s.cursor.Advance(values[0])
	c.logger.Debug("cursor advanced", "cursor", logsanitize.Sanitize(values[0]))
}
