package validator

import (
	"context"

	"svw.info/meldsolver/internal/domain"
)

const (
	minGroup  = 3
	maxGroup  = domain.ColorCount
	minRun    = 3
	maxRun    = int(domain.MaxValue)
	maxJokers = 2
)

type FastValidator struct{}

func New() *FastValidator { return &FastValidator{} }

// split separates a meld into its normal tiles and its joker count. ok is
// false when some normal face appears twice, which no meld allows.
func split(m domain.TileSet) (normals []domain.Tile, jokers int, ok bool) {
	jokers = m.Amount(domain.Joker)
	for t := range m.Unique() {
		if t.IsJoker() {
			continue
		}
		if m.Amount(t) > 1 {
			return nil, 0, false
		}
		normals = append(normals, t)
	}
	return normals, jokers, true
}

// IsGroup reports a same-value meld of 3 or 4 distinct colors, jokers
// standing in for missing colors.
func IsGroup(m domain.TileSet) bool {
	normals, jokers, ok := split(m)
	if !ok || jokers > maxJokers || len(normals) == 0 {
		return false
	}
	size := len(normals) + jokers
	if size < minGroup || size > maxGroup {
		return false
	}
	v := normals[0].Value()
	for _, t := range normals[1:] {
		if t.Value() != v {
			return false
		}
	}
	// distinct colors follow from distinct faces of equal value
	return true
}

// IsRun reports a single-color meld of at least 3 consecutive values,
// jokers filling gaps or extending either end within 1..13.
func IsRun(m domain.TileSet) bool {
	normals, jokers, ok := split(m)
	if !ok || jokers > maxJokers || len(normals) == 0 {
		return false
	}
	size := len(normals) + jokers
	if size < minRun || size > maxRun {
		return false
	}
	c := normals[0].Color()
	lo, hi := normals[0].Value(), normals[0].Value()
	for _, t := range normals[1:] {
		if t.Color() != c {
			return false
		}
		lo = min(lo, t.Value())
		hi = max(hi, t.Value())
	}
	return int(hi-lo)+1 <= size
}

func IsMeld(m domain.TileSet) bool { return IsGroup(m) || IsRun(m) }

// Validate checks that every meld is valid and that the melds add up to
// pool exactly, counting copies without saturation.
func (v *FastValidator) Validate(ctx context.Context, pool domain.TileSet, melds []domain.TileSet) (domain.Validation, error) {
	var res domain.Validation
	var sum [domain.TileCount]int
	for i, m := range melds {
		if err := ctx.Err(); err != nil {
			return domain.Validation{}, err
		}
		if !IsMeld(m) {
			res.Invalid = append(res.Invalid, i)
		}
		for t := range m.All() {
			sum[t.Code()]++
		}
	}
	for _, t := range domain.AllTiles() {
		have, want := sum[t.Code()], pool.Amount(t)
		for ; have < want; have++ {
			res.Missing = res.Missing.Add(t)
		}
		for ; want < have; want++ {
			res.Surplus = res.Surplus.Add(t)
		}
	}
	res.OK = len(res.Invalid) == 0 && res.Missing.IsEmpty() && res.Surplus.IsEmpty()
	return res, nil
}
