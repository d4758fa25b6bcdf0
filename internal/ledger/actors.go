package ledger

import (
	"context"
	"strings"

	"pointsledger/internal/core"
	"pointsledger/internal/sheets"
)

// LoadActors reads a policy's balance table. Rows without a name are
// skipped; balances that do not parse count as 0.
func LoadActors(ctx context.Context, r sheets.Reader, p Policy) ([]core.Actor, error) {
	rng := p.actorRange()
	rows, err := r.Get(ctx, rng)
	if err != nil {
		return nil, core.StoreUnavailable("read "+rng, err)
	}
	var out []core.Actor
	for i := p.ActorHeaderRows; i < len(rows); i++ {
		row := rows[i]
		name := strings.TrimSpace(cell(row, p.NameColumn))
		if name == "" {
			continue
		}
		a := core.Actor{
			Name:    name,
			Balance: core.ParseCellInt(cell(row, p.BalanceColumn)),
			Row:     i,
		}
		if p.RoleColumn >= 0 {
			a.Role = strings.TrimSpace(cell(row, p.RoleColumn))
		}
		out = append(out, a)
	}
	return out, nil
}

// FindActor matches the trimmed name exactly.
func FindActor(actors []core.Actor, name string) (core.Actor, bool) {
	name = strings.TrimSpace(name)
	for _, a := range actors {
		if a.Name == name {
			return a, true
		}
	}
	return core.Actor{}, false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// sameName matches names the way FindActor and WeekGrid do: trimmed and
// exact.
func sameName(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
