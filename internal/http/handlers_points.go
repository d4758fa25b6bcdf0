package http

import (
	"net/http"
	"strings"
	"sync/atomic"

	"pointsledger/internal/core"
	"pointsledger/internal/ledger"
)

// actorFields are the body keys that may carry the actor's name, with the
// policy each one implies.
var actorFields = []struct {
	key    string
	policy string
}{
	{"actorName", ""},
	{"excorName", ledger.PolicyEXCOR},
	{"RAsName", ledger.PolicyRA},
}

// resolveActor returns the actor name and the policy to apply: an explicit
// "policy" field wins, then the one implied by the name field, then
// fallback.
func resolveActor(p *RequestBodyParser, fallback string) (name, policy string) {
	for _, f := range actorFields {
		if v := p.Get(f.key); v != "" {
			name, policy = v, f.policy
			break
		}
	}
	if explicit := p.Get("policy"); explicit != "" {
		policy = explicit
	}
	if policy == "" {
		policy = fallback
	}
	if policy == "" {
		policy = ledger.PolicyRA
	}
	return name, policy
}

// handlePoints adds or removes points. defaultPolicy applies when the body
// does not pick one.
func (s *Server) handlePoints(defaultPolicy string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := ParseRequestBody(w, r)
		if err != nil {
			s.writeStatus(w, r, "", err)
			return
		}

		actor, policy := resolveActor(p, defaultPolicy)
		points, err := p.Int("points")
		if err != nil {
			s.writeStatus(w, r, "", core.InvalidRequest("Points must be a whole number."))
			return
		}
		action, err := core.ParseAction(p.Get("action"))
		if err != nil {
			s.writeStatus(w, r, "", core.InvalidRequest("Action must be 'add' or 'remove'."))
			return
		}

		res, err := s.ledger.Mutate(r.Context(), policy, core.Mutation{
			Subject: p.Get("studentName"),
			Actor:   actor,
			Points:  points,
			Action:  action,
			Reason:  p.Get("reason"),
		})
		s.metrics.mutation(err)
		s.writeStatus(w, r, res.Message, err)
	}
}

type balanceBody struct {
	Balance int `json:"balance"`
}

// handleBalance reports an actor's remaining budget.
func (s *Server) handleBalance(defaultPolicy string) http.HandlerFunc {
	if defaultPolicy == "" {
		defaultPolicy = ledger.PolicyEXCOR
	}
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := ParseRequestBody(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		name, policy := resolveActor(p, defaultPolicy)
		actor, err := s.roster.Balance(r.Context(), policy, name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, balanceBody{Balance: actor.Balance})
	}
}

// handleActors lists the actors of ?policy=, RAs by default.
func (s *Server) handleActors(w http.ResponseWriter, r *http.Request) {
	policy := strings.TrimSpace(r.URL.Query().Get("policy"))
	if policy == "" {
		policy = ledger.PolicyRA
	}
	s.handleActorsOf(policy)(w, r)
}

func (s *Server) handleActorsOf(policy string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := s.roster.Actors(r.Context(), policy)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, names)
	}
}

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	names, err := s.roster.Students(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, names)
}

// appMetrics counts ledger traffic for /metrics.
type appMetrics struct {
	mutations       int64
	mutationsFailed int64
	checkIns        int64
	checkInsFailed  int64
}

func newAppMetrics() *appMetrics { return &appMetrics{} }

func (m *appMetrics) mutation(err error) {
	atomic.AddInt64(&m.mutations, 1)
	if err != nil {
		atomic.AddInt64(&m.mutationsFailed, 1)
	}
}

func (m *appMetrics) checkIn(err error) {
	atomic.AddInt64(&m.checkIns, 1)
	if err != nil {
		atomic.AddInt64(&m.checkInsFailed, 1)
	}
}
