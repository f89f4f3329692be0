package postgres

import (
	"strings"
	"testing"

	"github.com/schulmaterial/schulmaterial/internal/material"
)

func TestListQueryEmptyFilter(t *testing.T) {
	query, args := listQuery(material.Filter{})
	if strings.Contains(query, "WHERE") {
		t.Errorf("empty filter must not add predicates: %s", query)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
	if !strings.HasSuffix(query, "ORDER BY id") {
		t.Errorf("missing stable ordering: %s", query)
	}
}

func TestListQueryExactMatches(t *testing.T) {
	query, args := listQuery(material.Filter{Klasse: "5", Fach: "Mathematik", Materialform: "Arbeitsblatt"})
	for _, want := range []string{"klasse = $1", "fach = $2", "materialform = $3"} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q: %s", want, query)
		}
	}
	if strings.Count(query, " AND ") != 2 {
		t.Errorf("predicates not ANDed: %s", query)
	}
	if len(args) != 3 || args[0] != "5" || args[1] != "Mathematik" || args[2] != "Arbeitsblatt" {
		t.Errorf("args = %v", args)
	}
}

func TestListQueryThemaSubstring(t *testing.T) {
	query, args := listQuery(material.Filter{Thema: "Bruch"})
	if !strings.Contains(query, "thema ILIKE '%' || $1 || '%'") {
		t.Errorf("thema must match as case-insensitive substring: %s", query)
	}
	if len(args) != 1 || args[0] != "Bruch" {
		t.Errorf("args = %v", args)
	}
}

func TestListQuerySearchSpansColumns(t *testing.T) {
	query, args := listQuery(material.Filter{Fach: "Physik", Search: "Optik"})
	for _, col := range []string{"titel ILIKE", "thema ILIKE", "beschreibung ILIKE"} {
		if !strings.Contains(query, col) {
			t.Errorf("search must span %s: %s", col, query)
		}
	}
	// One placeholder is reused for all three search columns.
	if strings.Count(query, "$2") != 3 {
		t.Errorf("search placeholder not reused: %s", query)
	}
	if len(args) != 2 {
		t.Errorf("args = %v", args)
	}
}
