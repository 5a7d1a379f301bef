// Package transport builds the HTTP transport shared by all requests of a
// WEBSERVICES client.
package transport

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 60 * time.Second

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures the transport
type Options struct {
	Timeout       time.Duration // Per-exchange timeout (0 = DefaultTimeout)
	AllowInsecure bool          // Skip TLS certificate verification (test/dev servers)
	RateLimit     float64       // Max requests per second (0 = unlimited)
	RateBurst     int           // Burst size for RateLimit (0 = 1)
	Breaker       BreakerOptions
}

// BreakerOptions configures the optional circuit breaker. It never retries;
// while open, requests fail immediately with gobreaker.ErrOpenState.
type BreakerOptions struct {
	Enabled      bool
	Name         string
	MaxRequests  uint32        // Requests allowed while half-open
	Interval     time.Duration // Closed-state counter reset period (0 = never)
	Timeout      time.Duration // Open-state duration before probing
	MinRequests  uint32        // Requests observed before the breaker may trip
	FailureRatio float64       // Failure ratio that trips the breaker
}

// errServerStatus marks 5xx responses as failures for the breaker only.
var errServerStatus = errors.New("server error status")

// NewHTTPClient returns an *http.Client with a pooled transport. The client is
// safe for concurrent use and should be shared by all requests of a session.
func NewHTTPClient(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = 20
	tr.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	if opts.AllowInsecure {
		tr.TLSClientConfig.InsecureSkipVerify = true // #nosec G402 -- opt-in for self-signed WEBWARE instances
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: tr,
	}
}

// Guard wraps a Doer with client-side throttling and a circuit breaker.
type Guard struct {
	next    Doer
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// Wrap returns next unchanged when neither throttling nor the breaker is
// configured, otherwise a *Guard around it.
func Wrap(next Doer, opts Options) Doer {
	if opts.RateLimit <= 0 && !opts.Breaker.Enabled {
		return next
	}

	g := &Guard{next: next}

	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	if opts.Breaker.Enabled {
		g.breaker = newBreaker(opts.Breaker)
	}

	return g
}

func newBreaker(opts BreakerOptions) *gobreaker.CircuitBreaker {
	name := opts.Name
	if name == "" {
		name = "wwsvc"
	}
	minRequests := opts.MinRequests
	if minRequests == 0 {
		minRequests = 3
	}
	ratio := opts.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: opts.MaxRequests,
		Interval:    opts.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		},
	})
}

// Do waits for the rate limiter, then sends req through the breaker.
func (g *Guard) Do(req *http.Request) (*http.Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if g.breaker == nil {
		return g.next.Do(req)
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		resp, err := g.next.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if errors.Is(err, errServerStatus) {
		return out.(*http.Response), nil
	}
	if err != nil {
		return nil, err
	}
	return out.(*http.Response), nil
}

// State reports the breaker state, or "disabled".
func (g *Guard) State() string {
	if g.breaker == nil {
		return "disabled"
	}
	return g.breaker.State().String()
}
