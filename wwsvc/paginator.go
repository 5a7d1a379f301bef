package wwsvc

import (
	"context"

	"github.com/al-bashkir/wwsvc-go/internal/logsanitize"
)

// EmptyPagePolicy decides whether an empty list ends pagination.
type EmptyPagePolicy int

const (
	// EmptyPageEnds ends pagination on the first empty page.
	EmptyPageEnds EmptyPagePolicy = iota

	// EmptyPageContinues only ends on an empty page when the server has
	// closed the cursor.
	EmptyPageContinues
)

// Page is one page of a cursored list. Items is nil once pagination ended.
type Page[T any] struct {
	Items     []T
	ComResult ComResult
}

type paginatorConfig struct {
	shape   *ListShape
	policy  EmptyPagePolicy
	headers map[string]string
}

// PaginatorOption configures a Paginator.
type PaginatorOption func(*paginatorConfig)

// WithListShape overrides the list shape derived from the function name.
func WithListShape(shape ListShape) PaginatorOption {
	return func(c *paginatorConfig) { c.shape = &shape }
}

// WithEmptyPagePolicy sets how empty pages are treated.
func WithEmptyPagePolicy(p EmptyPagePolicy) PaginatorOption {
	return func(c *paginatorConfig) { c.policy = p }
}

// WithHeaders adds extra headers to every page request.
func WithHeaders(h map[string]string) PaginatorOption {
	return func(c *paginatorConfig) { c.headers = h }
}

// Paginator pages through a list with the client's cursor. The cursor is
// created on the first call to Next. A Paginator must not be shared between
// goroutines, and the client should not run other cursored requests while it
// is in use.
type Paginator[T any] struct {
	client   *Client
	method   string
	function string
	version  uint32
	params   Parameters
	pageSize uint32
	shape    ListShape
	policy   EmptyPagePolicy
	headers  map[string]string
	finished bool
}

// NewPaginator returns a paginator for function. pageSize 0 selects
// DefaultPageSize.
func NewPaginator[T any](c *Client, method, function string, version uint32, params Parameters, pageSize uint32, opts ...PaginatorOption) *Paginator[T] {
	cfg := paginatorConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	shape := ShapeFor(function)
	if cfg.shape != nil {
		shape = *cfg.shape
	}

	return &Paginator[T]{
		client:   c,
		method:   method,
		function: function,
		version:  version,
		params:   params.Clone(),
		pageSize: pageSize,
		shape:    shape,
		policy:   cfg.policy,
		headers:  cfg.headers,
	}
}

// Finished reports whether pagination ended.
func (p *Paginator[T]) Finished() bool { return p.finished }

// Next returns the next page. ok is false once pagination ended; further
// calls do not touch the network. A failed request leaves the paginator
// unfinished so the call may be retried.
func (p *Paginator[T]) Next(ctx context.Context) (items []T, ok bool, err error) {
	page, err := p.NextWithComResult(ctx)
	if err != nil {
		return nil, false, err
	}
	if page == nil || page.Items == nil {
		return nil, false, nil
	}
	return page.Items, true, nil
}

// NextWithComResult is Next with the COMRESULT of the page. It returns nil
// after pagination ended, and a page with nil Items for the response that
// ended it.
func (p *Paginator[T]) NextWithComResult(ctx context.Context) (*Page[T], error) {
	if p.finished {
		return nil, nil
	}

	// A closed cursor left over from earlier use cannot be continued.
	if p.client.CursorClosed() {
		p.client.CreateCursor(p.pageSize)
	}

	body, _, err := p.client.roundTrip(ctx, p.method, p.function, p.version, p.params, p.headers)
	if err != nil {
		return nil, err
	}

	resp, err := DecodeList[T](body, p.shape)
	if err != nil {
		return nil, err
	}

	closed := p.client.CursorClosed()
	page := &Page[T]{ComResult: resp.ComResult}

	switch {
	case !resp.HasList:
		p.client.logger.Warn("no list in response, ending pagination",
			"function", p.function,
			"list", p.shape.Container+"."+p.shape.List,
			"info", logsanitize.Sanitize(resp.ComResult.Info))
		p.finish()
		return page, nil
	case len(resp.Items) == 0 && (p.policy == EmptyPageEnds || closed):
		p.client.logger.Debug("empty page, ending pagination", "function", p.function)
		p.finish()
		return page, nil
	}

	if closed {
		p.client.logger.Debug("cursor closed", "function", p.function)
		p.finish()
	}
	page.Items = resp.Items
	return page, nil
}

// CollectAll drains the paginator. On error the items collected so far are
// returned along with it.
func (p *Paginator[T]) CollectAll(ctx context.Context) ([]T, error) {
	var all []T
	for {
		items, ok, err := p.Next(ctx)
		if err != nil {
			return all, err
		}
		if !ok {
			return all, nil
		}
		all = append(all, items...)
	}
}

func (p *Paginator[T]) finish() {
	p.finished = true
	p.client.CloseCursor()
}
