// Package combo builds the catalogue of every valid meld: groups and runs,
// each with zero, one or two tiles replaced by jokers.
//
// The catalogue is a pure function of the tile domain. It is built on first
// use and shared read-only afterwards.
package combo

import (
	"sync"

	"svw.info/meldsolver/internal/domain"
)

const minRun = 3

var (
	once      sync.Once
	catalogue []domain.TileSet
	plain     []domain.TileSet
)

func load() {
	catalogue = Generate()
	plain = make([]domain.TileSet, 0, 329)
	for _, c := range catalogue {
		if !c.Contains(domain.Joker) {
			plain = append(plain, c)
		}
	}
}

// All returns the catalogue in generation order. The slice is shared and
// must not be modified.
func All() []domain.TileSet {
	once.Do(load)
	return catalogue
}

// Jokerless returns the catalogue combos without jokers, in catalogue
// order. Every other combo is one of these with one or two members
// replaced by jokers. The slice is shared and must not be modified.
func Jokerless() []domain.TileSet {
	once.Do(load)
	return plain
}

// Generate builds the catalogue from scratch. Most callers want All.
func Generate() []domain.TileSet {
	base := jokerless()
	seen := make(map[domain.TileSet]struct{}, len(base)*16)
	out := make([]domain.TileSet, 0, len(base)*16)
	for _, c := range base {
		for _, v := range jokerized(c) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Within lists the catalogue combos that fit in pool.
func Within(pool domain.TileSet) []domain.TileSet {
	var out []domain.TileSet
	for _, c := range All() {
		if c.SubsetOf(pool) {
			out = append(out, c)
		}
	}
	return out
}

// Covering lists the combos that fit in pool and contain t.
func Covering(pool domain.TileSet, t domain.Tile) []domain.TileSet {
	if !pool.Contains(t) {
		return nil
	}
	var out []domain.TileSet
	for _, c := range All() {
		if c.Contains(t) && c.SubsetOf(pool) {
			out = append(out, c)
		}
	}
	return out
}

func jokerless() []domain.TileSet {
	out := make([]domain.TileSet, 0, 329)
	out = append(out, groups()...)
	out = append(out, runs()...)
	return out
}

// groups: for every value, the four three-color groups (leaving out Red,
// Green, Black, Blue in turn) followed by the four-color group.
func groups() []domain.TileSet {
	var out []domain.TileSet
	for v := domain.MinValue; v <= domain.MaxValue; v++ {
		for skip := 0; skip <= domain.ColorCount; skip++ {
			var g domain.TileSet
			for _, c := range domain.Colors {
				if int(c) != skip {
					g = g.Add(domain.NewTile(c, v))
				}
			}
			out = append(out, g)
		}
	}
	return out
}

// runs: every color and every [start, end] with at least minRun values.
func runs() []domain.TileSet {
	var out []domain.TileSet
	for _, c := range domain.Colors {
		for start := domain.MinValue; start+minRun-1 <= domain.MaxValue; start++ {
			for end := start + minRun - 1; end <= domain.MaxValue; end++ {
				var r domain.TileSet
				for v := start; v <= end; v++ {
					r = r.Add(domain.NewTile(c, v))
				}
				out = append(out, r)
			}
		}
	}
	return out
}

// jokerized returns c, then c with each member replaced by a joker, then c
// with each unordered pair of members replaced by two jokers.
func jokerized(c domain.TileSet) []domain.TileSet {
	members := c.Tiles()
	out := make([]domain.TileSet, 0, 1+len(members)+len(members)*(len(members)-1)/2)
	out = append(out, c)
	for _, t := range members {
		out = append(out, c.Remove(t).Add(domain.Joker))
	}
	for i, a := range members {
		for _, b := range members[i+1:] {
			out = append(out, c.Remove(a).Remove(b).Add(domain.Joker).Add(domain.Joker))
		}
	}
	return out
}
