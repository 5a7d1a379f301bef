package wwsvc

import (
	"fmt"
	"net/http"
	"net/http/httputil"
)

// DumpRequest renders req in HTTP/1.1 wire format, body included. The body
// of req remains readable.
func DumpRequest(req *http.Request) (string, error) {
	out, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		return "", fmt.Errorf("wwsvc: dump request: %w", err)
	}
	return string(out), nil
}
