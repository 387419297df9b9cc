package http

import (
	"net/http"

	"ecobud/internal/core"
)

// handleAnalytics handles GET /analytics?startDate=YYYY-MM-DD&endDate=YYYY-MM-DD
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request, username string) {
	q := r.URL.Query()
	start, err := core.ParseDate(q.Get("startDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
		return
	}
	end, err := core.ParseDate(q.Get("endDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "endDate must be YYYY-MM-DD")
		return
	}

	out, err := s.deps.Analytics.Query(r.Context(), core.AnalyticsInput{Username: username, StartDate: start, EndDate: end})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
