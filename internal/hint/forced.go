package hint

import (
	"context"
	"fmt"

	"svw.info/meldsolver/internal/combo"
	"svw.info/meldsolver/internal/domain"
)

// Forced implements a minimal Hinter that points at dead tiles and at
// melds that are the only way to place a tile.
type Forced struct{}

func NewForced() *Forced { return &Forced{} }

// Hint reports, in tile code order, the first tile no fitting combo covers
// or else the first tile covered by exactly one fitting combo.
func (h *Forced) Hint(ctx context.Context, pool domain.TileSet) (domain.Hint, bool, error) {
	within := combo.Within(pool)
	var counts [domain.TileCount]int
	var last [domain.TileCount]domain.TileSet
	for _, c := range within {
		for t := range c.Unique() {
			counts[t.Code()]++
			last[t.Code()] = c
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.Hint{}, false, err
	}

	for t := range pool.Unique() {
		if counts[t.Code()] == 0 {
			return domain.Hint{
				Message: fmt.Sprintf("Dead tile: %s fits in no meld", t),
				Tile:    &t,
				Dead:    true,
			}, true, nil
		}
	}
	for t := range pool.Unique() {
		if counts[t.Code()] == 1 {
			m := last[t.Code()]
			return domain.Hint{
				Message: fmt.Sprintf("Forced: %s only fits in %s", t, m),
				Tile:    &t,
				Meld:    m,
			}, true, nil
		}
	}
	return domain.Hint{}, false, nil
}
