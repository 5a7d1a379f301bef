package wwsvc

import (
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/net/http/httpguts"

	"github.com/al-bashkir/wwsvc-go/apphash"
)

// Request and response headers of the WEBSERVICES protocol.
const (
	HeaderExecuteMode          = "WWSVC-EXECUTE-MODE"
	HeaderAcceptResultType     = "WWSVC-ACCEPT-RESULT-TYPE"
	HeaderAcceptResultMaxLines = "WWSVC-ACCEPT-RESULT-MAX-LINES"
	HeaderRequestID            = "WWSVC-REQID"
	HeaderTimestamp            = "WWSVC-TS"
	HeaderHash                 = "WWSVC-HASH"
	HeaderCursor               = "WWSVC-CURSOR"

	ExecuteModeSynchron = "SYNCHRON"
)

// ResultType selects the response encoding.
type ResultType string

const (
	ResultTypeJSON ResultType = "JSON"
	ResultTypeBIN  ResultType = "BIN"
)

// signedHeaders is the outcome of one locked header computation. The body of
// the same request must reuse sig so that header and body agree.
type signedHeaders struct {
	header      http.Header
	signed      bool
	sig         apphash.AppHash
	servicePass string
}

// DefaultHeaders returns the headers of the next request with a JSON result.
// On a registered client every call consumes a request id.
func (c *Client) DefaultHeaders(extra map[string]string) (http.Header, error) {
	sh, err := c.buildHeaders(ResultTypeJSON, extra)
	if err != nil {
		return nil, err
	}
	return sh.header, nil
}

// BinHeaders is DefaultHeaders with a binary result.
func (c *Client) BinHeaders(extra map[string]string) (http.Header, error) {
	sh, err := c.buildHeaders(ResultTypeBIN, extra)
	if err != nil {
		return nil, err
	}
	return sh.header, nil
}

func (c *Client) buildHeaders(resultType ResultType, extra map[string]string) (signedHeaders, error) {
	if err := validateHeaders(extra); err != nil {
		return signedHeaders{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.state
	h := make(http.Header)
	out := signedHeaders{header: h}

	if s.credentials != nil {
		sig := apphash.NewAt(s.currentRequest, s.credentials.AppID, c.now())
		s.currentRequest = sig.RequestID

		h.Set(HeaderRequestID, strconv.FormatUint(uint64(sig.RequestID), 10))
		h.Set(HeaderTimestamp, sig.Timestamp)
		h.Set(HeaderHash, sig.Hash)

		out.signed = true
		out.sig = sig
		out.servicePass = s.credentials.ServicePass
	}

	maxLines := s.resultMaxLines
	if s.cursor != nil && !s.cursor.Closed() && !s.suspendCursor {
		h.Set(HeaderCursor, s.cursor.ID())
		maxLines = s.cursor.PageSize()
	}

	h.Set(HeaderExecuteMode, ExecuteModeSynchron)
	h.Set(HeaderAcceptResultType, string(resultType))
	h.Set(HeaderAcceptResultMaxLines, strconv.FormatUint(uint64(maxLines), 10))

	for k, v := range extra {
		h.Set(k, v)
	}

	return out, nil
}

// validateHeaders rejects names and values that cannot be sent, including any
// non-ASCII byte.
func validateHeaders(extra map[string]string) error {
	for k, v := range extra {
		if !httpguts.ValidHeaderFieldName(k) {
			return fmt.Errorf("%w: name %q", ErrInvalidHeader, k)
		}
		if !httpguts.ValidHeaderFieldValue(v) || !isASCII(v) {
			return fmt.Errorf("%w: value of %s", ErrInvalidHeader, k)
		}
	}
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
