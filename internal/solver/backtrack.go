package solver

import (
	"context"
	"time"

	"svw.info/meldsolver/internal/combo"
	"svw.info/meldsolver/internal/domain"
	"svw.info/meldsolver/internal/ports"
)

// BacktrackingSolver is a straightforward recursive solver: it covers the
// lowest tile of the pool with each fitting combo in turn. It has no
// propagation and is meant for small pools and for cross-checking.
type BacktrackingSolver struct{}

func NewBacktrackingSolver() *BacktrackingSolver { return &BacktrackingSolver{} }

// lowest returns the first tile of a non-empty pool.
func lowest(pool domain.TileSet) domain.Tile {
	for t := range pool.Unique() {
		return t
	}
	panic("solver: lowest of empty pool")
}

func (s *BacktrackingSolver) Solve(ctx context.Context, pool domain.TileSet) (domain.Solution, ports.Stats) {
	start := time.Now()
	combos := combo.Within(pool)
	nodes := 0
	canceled := false
	var accum []domain.TileSet
	var dfs func(rest domain.TileSet) bool
	dfs = func(rest domain.TileSet) bool {
		if rest.IsEmpty() {
			return true
		}
		if ctx.Err() != nil {
			canceled = true
			return false
		}
		t := lowest(rest)
		for _, c := range combos {
			if !c.Contains(t) || !c.SubsetOf(rest) {
				continue
			}
			nodes++
			accum = append(accum, c)
			if dfs(rest.Difference(c)) {
				return true
			}
			accum = accum[:len(accum)-1]
			if canceled {
				return false
			}
		}
		return false
	}
	found := dfs(pool)
	st := ports.Stats{Nodes: nodes, Duration: time.Since(start)}
	switch {
	case found:
		return domain.Solution{Outcome: domain.Solved, Melds: accum}, st
	case canceled:
		return domain.Solution{Outcome: domain.Unknown}, st
	}
	return domain.Solution{Outcome: domain.Failed}, st
}
