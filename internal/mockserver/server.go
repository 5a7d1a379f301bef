// Package mockserver is an in-process WEBSERVICES server for tests and local
// experiments. It answers REGISTER and DEREGISTER, verifies the signature of
// every EXECJSON request and replies with scripted pages.
package mockserver

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Endpoint names used by Calls.
const (
	EndpointRegister   = "REGISTER"
	EndpointDeregister = "DEREGISTER"
	EndpointExecJSON   = "EXECJSON"
)

// Page is one scripted EXECJSON response.
type Page struct {
	Cursor string // WWSVC-CURSOR response header; "" omits it
	Status int    // 0 = 200
	Body   string
}

// Registration is a received REGISTER request.
type Registration struct {
	VendorHash string
	AppHash    string
	Secret     string
	Revision   string
}

// Call is a received EXECJSON request.
type Call struct {
	Header http.Header
	Body   ExecRequest
}

// ExecRequest mirrors the EXECJSON request body.
type ExecRequest struct {
	Function struct {
		FunctionName string `json:"FUNCTIONNAME"`
		Parameter    []struct {
			Name    string `json:"PNAME"`
			Content string `json:"PCONTENT"`
		} `json:"PARAMETER"`
		Revision uint32 `json:"REVISION"`
	} `json:"WWSVC_FUNCTION"`
	PassInfo struct {
		ServicePass string `json:"SERVICEPASS"`
		AppHash     string `json:"APPHASH"`
		Timestamp   string `json:"TIMESTAMP"`
		RequestID   uint32 `json:"REQUESTID"`
		ExecuteMode string `json:"EXECUTE_MODE"`
	} `json:"WWSVC_PASSINFO"`
}

// Param returns the content of parameter name.
func (r ExecRequest) Param(name string) (string, bool) {
	for _, p := range r.Function.Parameter {
		if p.Name == name {
			return p.Content, true
		}
	}
	return "", false
}

// Option configures a Server.
type Option func(*Server)

// WithServicePass sets the pass and app id issued by REGISTER.
func WithServicePass(passID, appID string) Option {
	return func(s *Server) {
		s.passID = passID
		s.appID = appID
	}
}

// WithRegisterResponse makes REGISTER answer with status and body.
func WithRegisterResponse(status int, body string) Option {
	return func(s *Server) {
		s.registerStatus = status
		s.registerBody = body
	}
}

// WithPages queues EXECJSON responses.
func WithPages(pages ...Page) Option {
	return func(s *Server) { s.pages = append(s.pages, pages...) }
}

// WithoutSignatureCheck accepts EXECJSON requests with any signature.
func WithoutSignatureCheck() Option {
	return func(s *Server) { s.checkSignature = false }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server is a fake WEBSERVICES server.
type Server struct {
	mux     *http.ServeMux
	handler http.Handler
	logger  *slog.Logger

	mu             sync.Mutex
	httpServer     *http.Server
	passID         string
	appID          string
	registerStatus int
	registerBody   string
	checkSignature bool
	pages          []Page
	calls          map[string]int
	registrations  []Registration
	deregistered   []string
	requests       []Call
}

// New returns a server issuing a fixed service pass.
func New(opts ...Option) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		logger:         slog.Default(),
		passID:         "PASS-0001",
		appID:          "APP-0001",
		checkSignature: true,
		calls:          make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("/WWSVC/WWSERVICE/REGISTER/", s.handleRegister)
	s.mux.HandleFunc("/WWSVC/WWSERVICE/DEREGISTER/", s.handleDeregister)
	s.mux.HandleFunc("/WWSVC/EXECJSON", s.handleExecJSON)
	s.mux.HandleFunc("/health", s.handleHealth)

	handler := s.loggingMiddleware(s.mux)
	s.handler = s.recoveryMiddleware(handler)

	return s
}

// Handler returns the HTTP handler, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("starting mock WEBSERVICES server", "addr", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down mock WEBSERVICES server")
	return srv.Shutdown(ctx)
}

// AddPages queues more EXECJSON responses.
func (s *Server) AddPages(pages ...Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, pages...)
}

// Calls returns how often endpoint was requested.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// Registrations returns the received REGISTER requests.
func (s *Server) Registrations() []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Registration(nil), s.registrations...)
}

// Deregistered returns the service passes of received DEREGISTER requests.
func (s *Server) Deregistered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deregistered...)
}

// Requests returns the received EXECJSON requests.
func (s *Server) Requests() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.requests...)
}
