// Package diag aggregates read-only statistics over the combo catalogue.
package diag

import (
	"strconv"

	"svw.info/meldsolver/internal/combo"
	"svw.info/meldsolver/internal/domain"
)

// Collect computes the statistics over the whole catalogue.
func Collect() domain.CatalogueStats {
	return collect(combo.All())
}

func collect(combos []domain.TileSet) domain.CatalogueStats {
	var st domain.CatalogueStats
	var touching [domain.TileCount]int
	for _, c := range combos {
		n := c.Len()
		st.Combos++
		st.Assignments += n
		if !c.Contains(domain.Joker) {
			st.JokerlessCombos++
			st.JokerlessAssignment += n
		}
		for t := range c.Unique() {
			touching[t.Code()]++
		}
	}
	st.MinCombosPerTile = touching[0]
	st.MaxCombosPerTile = touching[0]
	for _, n := range touching[1:] {
		st.MinCombosPerTile = min(st.MinCombosPerTile, n)
		st.MaxCombosPerTile = max(st.MaxCombosPerTile, n)
	}
	return st
}

// Rows renders the statistics as label/value pairs for a table.
func Rows(st domain.CatalogueStats) [][2]string {
	item := func(label string, n int) [2]string { return [2]string{label, strconv.Itoa(n)} }
	return [][2]string{
		item("Combination count", st.Combos),
		item("Assignment count", st.Assignments),
		item("Jokerless combinations", st.JokerlessCombos),
		item("Jokerless assignment count", st.JokerlessAssignment),
		item("Fewest combinations on a tile", st.MinCombosPerTile),
		item("Most combinations on a tile", st.MaxCombosPerTile),
	}
}
