package ledger

import (
	"fmt"
	"sort"
	"strings"

	"pointsledger/internal/core"
	"pointsledger/internal/sheets"
)

// ExclusionRule restricts who may award points to whom. Removal is never
// restricted.
type ExclusionRule struct {
	// CoordinatorRoles are exempt from DenyInGroupIncrease.
	CoordinatorRoles []string
	// DenyInGroupIncrease rejects adding points to a subject whose group
	// is led by the actor.
	DenyInGroupIncrease bool
	// DenyActorSubjects rejects adding points to another actor's row.
	DenyActorSubjects bool
	// SkipAuditForSelf suppresses the audit row when actor and subject
	// are the same person.
	SkipAuditForSelf bool
}

func (r ExclusionRule) IsCoordinator(role string) bool {
	role = strings.TrimSpace(role)
	if role == "" {
		return false
	}
	for _, c := range r.CoordinatorRoles {
		if strings.EqualFold(c, role) {
			return true
		}
	}
	return false
}

// Policy parameterizes the mutator for one kind of actor.
type Policy struct {
	Name      string // "ra", "excor"
	RoleLabel string // shown in messages: "RA 'x' not found."

	BalanceTable    string
	ActorHeaderRows int
	NameColumn      int
	BalanceColumn   int
	RoleColumn      int // -1 when the balance table has no role column

	Weeks            core.WeekSelector
	PointColumnLabel string
	Grid             GridSchema

	AuditTable        string
	GroupLabelFormat  string // e.g. "RAs %s's Group"
	UnknownGroupLabel string

	Exclusion ExclusionRule
}

const (
	PolicyRA    = "ra"
	PolicyEXCOR = "excor"
)

// RAPolicy is the residential-advisor program: no exclusion rule.
func RAPolicy(weeks core.WeekSelector) Policy {
	return Policy{
		Name:              PolicyRA,
		RoleLabel:         "RA",
		BalanceTable:      "RAs",
		ActorHeaderRows:   1,
		NameColumn:        0,
		BalanceColumn:     1,
		RoleColumn:        -1,
		Weeks:             weeks,
		PointColumnLabel:  "RA Points",
		Grid:              DefaultGridSchema,
		AuditTable:        "Points",
		GroupLabelFormat:  "RAs %s's Group",
		UnknownGroupLabel: "Unknown Group",
	}
}

// EXCORPolicy is the executive-committee program. EXCORs may not inflate
// their own group or each other; coordinators are exempt from the group
// rule.
func EXCORPolicy(weeks core.WeekSelector) Policy {
	p := RAPolicy(weeks)
	p.Name = PolicyEXCOR
	p.RoleLabel = "EXCOR"
	p.BalanceTable = "EXCORS"
	p.RoleColumn = 2
	p.PointColumnLabel = "Daily Points"
	p.Exclusion = ExclusionRule{
		CoordinatorRoles:    []string{"coordinator"},
		DenyInGroupIncrease: true,
		DenyActorSubjects:   true,
		SkipAuditForSelf:    true,
	}
	return p
}

// GroupLabel renders the audit group column for a subject's group cell.
func (p Policy) GroupLabel(group string) string {
	group = strings.TrimSpace(group)
	if group == "" || p.GroupLabelFormat == "" {
		return p.UnknownGroupLabel
	}
	return fmt.Sprintf(p.GroupLabelFormat, group)
}

// actorRange covers every column the balance table needs.
func (p Policy) actorRange() string {
	last := p.BalanceColumn
	if p.NameColumn > last {
		last = p.NameColumn
	}
	if p.RoleColumn > last {
		last = p.RoleColumn
	}
	return sheets.ColumnRange(p.BalanceTable, 0, last)
}

func (p Policy) Validate() error {
	var problems []string
	if p.Name == "" {
		problems = append(problems, "policy name is empty")
	}
	if p.BalanceTable == "" {
		problems = append(problems, "balance table is empty")
	}
	if p.AuditTable == "" {
		problems = append(problems, "audit table is empty")
	}
	if strings.TrimSpace(p.PointColumnLabel) == "" {
		problems = append(problems, "point column label is empty")
	}
	if p.NameColumn == p.BalanceColumn {
		problems = append(problems, "name and balance columns must differ")
	}
	if len(problems) > 0 {
		return fmt.Errorf("policy %q: %s", p.Name, strings.Join(problems, "; "))
	}
	return nil
}

// Policies indexes policies by name.
type Policies map[string]Policy

func NewPolicies(ps ...Policy) Policies {
	out := Policies{}
	for _, p := range ps {
		out[p.Name] = p
	}
	return out
}

// Get resolves a policy name case-insensitively.
func (ps Policies) Get(name string) (Policy, bool) {
	p, ok := ps[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

func (ps Policies) Names() []string {
	out := make([]string, 0, len(ps))
	for name := range ps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
