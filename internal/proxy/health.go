package proxy

import "net/http"

type healthStatus struct {
	Status string `json:"status"`
}

// livenessHandler reports that the process is up. It never consults the upstream.
func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(r.Context(), w, healthStatus{Status: "ok"}, http.StatusOK)
	}
}

// readinessHandler answers 200 once the application accepts traffic and 503
// before startup completes or after shutdown began.
func readinessHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		if !checker.IsReady() {
			status := "unavailable"
			if s, ok := checker.(interface{ Status() string }); ok {
				status = s.Status()
			}
			writeJSON(r.Context(), w, healthStatus{Status: status}, http.StatusServiceUnavailable)
			return
		}
		writeJSON(r.Context(), w, healthStatus{Status: "ready"}, http.StatusOK)
	}
}
