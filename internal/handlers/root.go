package handlers

import "net/http"

// IndexInfo is the informational payload served at the API root.
type IndexInfo struct {
	Message  string `json:"message"`
	Database string `json:"database"`
	Usage    string `json:"usage"`
}

// Index returns an informational handler describing the API. The
// database field names the configured backend only; credentials and
// hosts stay out of the response.
func Index(database string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, IndexInfo{
			Message:  "User Auth API",
			Database: database,
			Usage:    "Use /api/auth/register & login",
		})
	}
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
