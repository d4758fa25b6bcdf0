package http

import (
	"net/http"
)

// handleAttendance checks a student into the event running now.
func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	p, err := ParseRequestBody(w, r)
	if err != nil {
		s.writeStatus(w, r, "", err)
		return
	}
	res, err := s.ledger.CheckIn(r.Context(), p.Get("studentId"))
	s.metrics.checkIn(err)
	s.writeStatus(w, r, res.Message, err)
}

type eventBody struct {
	Name  string `json:"name"`
	Date  string `json:"date"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// handleActiveEvent tells the check-in page which event is open.
func (s *Server) handleActiveEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.ledger.ActiveEvent(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, eventBody{
		Name:  ev.Name,
		Date:  ev.Date.Format("2006-01-02"),
		Start: ev.Start,
		End:   ev.End,
	})
}
