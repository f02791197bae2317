package http

import (
	"net/http"

	"healthdash/internal/middleware/trace"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) failJSON(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	logFailure(r, op, status, err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, errorBody{Error: publicMessage(err, status), RequestID: trace.GetRequestID(r.Context())})
}

func (s *Server) handleAPIYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.dashboard.Years()
	if err != nil {
		s.failJSON(w, r, "api_years", err)
		return
	}
	writeJSON(w, http.StatusOK, years)
}

func (s *Server) handleAPICountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.dashboard.Countries()
	if err != nil {
		s.failJSON(w, r, "api_countries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"countries": countries})
}

func (s *Server) handleAPIMap(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.failJSON(w, r, "api_map", err)
		return
	}
	mv, err := s.mapView(r.Context(), sel.Year)
	if err != nil {
		s.failJSON(w, r, "api_map", err)
		return
	}
	writeJSON(w, http.StatusOK, mv)
}

func (s *Server) handleAPITop(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.failJSON(w, r, "api_top", err)
		return
	}
	tv, err := s.topView(r.Context(), sel.Year, sel.TopN)
	if err != nil {
		s.failJSON(w, r, "api_top", err)
		return
	}
	writeJSON(w, http.StatusOK, tv)
}

// handleAPITrend rejects unknown country names with 400; the HTML partial
// renders them as an empty series instead.
func (s *Server) handleAPITrend(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.failJSON(w, r, "api_trend", err)
		return
	}
	trv, err := s.trendView(r.Context(), sel.Country, true)
	if err != nil {
		s.failJSON(w, r, "api_trend", err)
		return
	}
	writeJSON(w, http.StatusOK, trv)
}
