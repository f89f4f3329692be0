package postgres

import (
	"fmt"
	"strings"

	"github.com/schulmaterial/schulmaterial/internal/material"
)

// listQuery builds the SELECT for a filtered listing. Exact-match
// predicates cover klasse, fach and materialform; thema matches as a
// case-insensitive substring, and search spans titel, thema and
// beschreibung. All predicates are ANDed; the empty filter selects
// the whole catalog.
func listQuery(f material.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(format string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if f.Klasse != "" {
		add("klasse = $%d", f.Klasse)
	}
	if f.Fach != "" {
		add("fach = $%d", f.Fach)
	}
	if f.Materialform != "" {
		add("materialform = $%d", f.Materialform)
	}
	if f.Thema != "" {
		add("thema ILIKE '%%' || $%d || '%%'", f.Thema)
	}
	if f.Search != "" {
		args = append(args, f.Search)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(titel ILIKE '%%' || $%d || '%%' OR thema ILIKE '%%' || $%d || '%%' OR beschreibung ILIKE '%%' || $%d || '%%')",
			n, n, n))
	}

	query := `SELECT ` + selectColumns + ` FROM materialien`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"
	return query, args
}
