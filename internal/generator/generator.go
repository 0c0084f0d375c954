// Package generator builds pools that are known to be solvable, by adding
// up randomly drawn catalogue combos.
package generator

import (
	"context"
	"errors"
	"math/rand"

	"svw.info/meldsolver/internal/combo"
	"svw.info/meldsolver/internal/domain"
)

// ErrPoolFull is returned when no further combo fits next to the ones
// already drawn.
var ErrPoolFull = errors.New("no combo fits the remaining tiles")

// maxDraws bounds the random draws spent looking for a combo that fits.
const maxDraws = 2000

// PoolGenerator draws combos from the catalogue.
type PoolGenerator struct {
	// Jokerless restricts draws to combos without jokers.
	Jokerless bool
}

func NewPoolGenerator(jokerless bool) *PoolGenerator {
	return &PoolGenerator{Jokerless: jokerless}
}

// Generate returns a pool made of n combos together with those combos.
// The combos add up without any face exceeding two copies, so the returned
// list is a valid partition of the pool. The same seed gives the same pool.
func (g *PoolGenerator) Generate(ctx context.Context, seed int64, n int) (domain.TileSet, []domain.TileSet, error) {
	rng := rand.New(rand.NewSource(seed))
	all := combo.All()
	var pool domain.TileSet
	melds := make([]domain.TileSet, 0, n)
	for len(melds) < n {
		if err := ctx.Err(); err != nil {
			return domain.TileSet{}, nil, err
		}
		c, ok := g.draw(rng, all, pool)
		if !ok {
			return pool, melds, ErrPoolFull
		}
		pool = pool.Union(c)
		melds = append(melds, c)
	}
	return pool, melds, nil
}

func (g *PoolGenerator) draw(rng *rand.Rand, all []domain.TileSet, pool domain.TileSet) (domain.TileSet, bool) {
	for range maxDraws {
		c := all[rng.Intn(len(all))]
		if g.Jokerless && c.Contains(domain.Joker) {
			continue
		}
		if fits(pool, c) {
			return c, true
		}
	}
	return domain.TileSet{}, false
}

// fits reports whether adding c to pool keeps every count at most two,
// which is when Union is a true sum.
func fits(pool, c domain.TileSet) bool {
	for t := range c.Unique() {
		if pool.Amount(t)+c.Amount(t) > domain.MaxCopies {
			return false
		}
	}
	return true
}
