package mockserver

import "net/http"

// HealthResponse is the JSON response for the health check endpoint
type HealthResponse struct {
	Status       string         `json:"status"`
	Calls        map[string]int `json:"calls"`
	PendingPages int            `json:"pending_pages"`
}

// handleHealth reports call counters and the remaining scripted pages
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := HealthResponse{
		Status:       "ok",
		Calls:        make(map[string]int, len(s.calls)),
		PendingPages: len(s.pages),
	}
	for k, v := range s.calls {
		resp.Calls[k] = v
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}
