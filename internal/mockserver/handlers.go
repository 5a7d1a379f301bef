package mockserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/al-bashkir/wwsvc-go/apphash"
	"github.com/al-bashkir/wwsvc-go/internal/logsanitize"
)

type comResult struct {
	Status int    `json:"STATUS"`
	Code   string `json:"CODE"`
	Info   string `json:"INFO"`
}

func okResult() comResult {
	return comResult{Status: http.StatusOK, Code: "OK", Info: ""}
}

func errorResult(status int, info string) comResult {
	return comResult{Status: status, Code: http.StatusText(status), Info: info}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// endpointOf maps a request path to an endpoint name.
func endpointOf(path string) string {
	switch {
	case strings.HasPrefix(path, "/WWSVC/WWSERVICE/REGISTER/"):
		return EndpointRegister
	case strings.HasPrefix(path, "/WWSVC/WWSERVICE/DEREGISTER/"):
		return EndpointDeregister
	case path == "/WWSVC/EXECJSON":
		return EndpointExecJSON
	default:
		return "unknown"
	}
}

// segments returns the unescaped path segments after prefix.
func segments(r *http.Request, prefix string) ([]string, error) {
	rest := strings.TrimSuffix(strings.TrimPrefix(r.URL.EscapedPath(), prefix), "/")
	if rest == "" {
		return nil, nil
	}
	parts := strings.Split(rest, "/")
	for i, p := range parts {
		u, err := url.PathUnescape(p)
		if err != nil {
			return nil, err
		}
		parts[i] = u
	}
	return parts, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"COMRESULT": errorResult(http.StatusMethodNotAllowed, "")})
		return
	}

	parts, err := segments(r, "/WWSVC/WWSERVICE/REGISTER/")
	if err != nil || len(parts) != 4 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"COMRESULT": errorResult(http.StatusBadRequest, "malformed REGISTER path")})
		return
	}

	s.mu.Lock()
	s.calls[EndpointRegister]++
	s.registrations = append(s.registrations, Registration{
		VendorHash: parts[0],
		AppHash:    parts[1],
		Secret:     parts[2],
		Revision:   parts[3],
	})
	status, body := s.registerStatus, s.registerBody
	passID, appID := s.passID, s.appID
	s.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"COMRESULT": okResult(),
		"SERVICEPASS": map[string]string{
			"PASSID": passID,
			"APPID":  appID,
		},
	})
}

func (s *Server) handleDeregister(w http.ResponseWriter, r *http.Request) {
	parts, err := segments(r, "/WWSVC/WWSERVICE/DEREGISTER/")
	if err != nil || len(parts) != 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"COMRESULT": errorResult(http.StatusBadRequest, "malformed DEREGISTER path")})
		return
	}

	s.mu.Lock()
	s.calls[EndpointDeregister]++
	s.deregistered = append(s.deregistered, parts[0])
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"COMRESULT": okResult()})
}

func (s *Server) handleExecJSON(w http.ResponseWriter, r *http.Request) {
	var req ExecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"COMRESULT": errorResult(http.StatusBadRequest, "malformed body")})
		return
	}

	s.mu.Lock()
	s.calls[EndpointExecJSON]++
	s.requests = append(s.requests, Call{Header: r.Header.Clone(), Body: req})
	check := s.checkSignature
	passID, appID := s.passID, s.appID
	var page Page
	havePage := len(s.pages) > 0
	if havePage {
		page = s.pages[0]
		s.pages = s.pages[1:]
	}
	s.mu.Unlock()

	if check {
		if err := verify(r.Header, req, passID, appID); err != nil {
			s.logger.Warn("rejected request", "reason", logsanitize.Sanitize(err.Error()))
			writeJSON(w, http.StatusUnauthorized, map[string]any{"COMRESULT": errorResult(http.StatusUnauthorized, err.Error())})
			return
		}
	}

	if !havePage {
		writeJSON(w, http.StatusOK, map[string]any{"COMRESULT": okResult()})
		return
	}

	if page.Cursor != "" {
		w.Header().Set("WWSVC-CURSOR", page.Cursor)
	}
	status := page.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, page.Body)
}

// verify checks that headers and body carry the same, valid signature.
func verify(h http.Header, req ExecRequest, passID, appID string) error {
	info := req.PassInfo
	if info.ServicePass != passID {
		return fmt.Errorf("unknown service pass")
	}
	if h.Get("WWSVC-REQID") != strconv.FormatUint(uint64(info.RequestID), 10) {
		return fmt.Errorf("request id mismatch: header %q, body %d", h.Get("WWSVC-REQID"), info.RequestID)
	}
	if h.Get("WWSVC-TS") != info.Timestamp {
		return fmt.Errorf("timestamp mismatch")
	}
	want := apphash.Compute(appID, info.Timestamp)
	if info.AppHash != want || h.Get("WWSVC-HASH") != want {
		return fmt.Errorf("hash mismatch")
	}
	if info.ExecuteMode != "SYNCHRON" {
		return fmt.Errorf("unsupported execute mode %q", info.ExecuteMode)
	}
	return nil
}

// ListPage builds a page holding n items {"ID": "<offset+i>"} in
// {"COMRESULT": ..., container: {list: [...]}}.
func ListPage(cursor, container, list string, offset, n int) Page {
	items := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]string{"ID": strconv.Itoa(offset + i)})
	}
	return JSONPage(cursor, map[string]any{
		"COMRESULT": okResult(),
		container:   map[string]any{list: items},
	})
}

// NoListPage builds a page without any list.
func NoListPage(cursor string) Page {
	return JSONPage(cursor, map[string]any{"COMRESULT": okResult()})
}

// JSONPage builds a page from any JSON-encodable value.
func JSONPage(cursor string, v any) Page {
	body, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mockserver: encode page: %v", err))
	}
	return Page{Cursor: cursor, Body: string(body)}
}
