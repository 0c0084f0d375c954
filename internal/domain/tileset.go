package domain

import (
	"encoding/json"
	"fmt"
	"iter"
	"math/bits"
	"strings"
)

// MaxCopies is the number of physical copies of every face.
const MaxCopies = 2

// TileSet is a multiset of tiles with at most two copies per face.
//
// Bit i of once is set when face i is present, bit i of twice when it is
// present twice. twice is always a subset of once, which keeps the
// encoding canonical so TileSet values compare with ==.
type TileSet struct {
	once  uint64
	twice uint64
}

// NewTileSet adds every tile in order, saturating at two copies.
func NewTileSet(tiles ...Tile) TileSet {
	var s TileSet
	for _, t := range tiles {
		s = s.Add(t)
	}
	return s
}

func bit(t Tile) uint64 { return 1 << uint(t.Code()) }

// Amount returns 0, 1 or 2.
func (s TileSet) Amount(t Tile) int {
	b := bit(t)
	switch {
	case s.once&b == 0:
		return 0
	case s.twice&b == 0:
		return 1
	}
	return 2
}

func (s TileSet) Contains(t Tile) bool { return s.once&bit(t) != 0 }

// Add returns s with one more copy of t. Adding to a face that already
// holds two copies returns s unchanged; use TryAdd to detect that.
func (s TileSet) Add(t Tile) TileSet {
	out, _ := s.TryAdd(t)
	return out
}

// TryAdd is Add that reports whether the copy was taken.
func (s TileSet) TryAdd(t Tile) (TileSet, bool) {
	b := bit(t)
	switch {
	case s.once&b == 0:
		s.once |= b
	case s.twice&b == 0:
		s.twice |= b
	default:
		return s, false
	}
	return s, true
}

// Remove returns s with one copy of t less, floored at zero.
func (s TileSet) Remove(t Tile) TileSet {
	b := bit(t)
	if s.twice&b != 0 {
		s.twice &^= b
	} else {
		s.once &^= b
	}
	return s
}

// Union adds counts per face, saturating at two.
func (s TileSet) Union(o TileSet) TileSet {
	return TileSet{
		once:  s.once | o.once,
		twice: s.twice | o.twice | (s.once & o.once),
	}
}

// Difference subtracts counts per face, floored at zero.
func (s TileSet) Difference(o TileSet) TileSet {
	return TileSet{
		once:  (s.once &^ o.once) | (s.twice &^ o.twice),
		twice: s.twice &^ o.once,
	}
}

// SubsetOf reports s <= o: every count in s is at most the count in o.
func (s TileSet) SubsetOf(o TileSet) bool {
	return s.once&^o.once == 0 && s.twice&^o.twice == 0
}


func (s TileSet) IsEmpty() bool { return s.once == 0 }

// Len is the number of tile copies.
func (s TileSet) Len() int { return bits.OnesCount64(s.once) + bits.OnesCount64(s.twice) }

// Distinct is the number of faces present.
func (s TileSet) Distinct() int { return bits.OnesCount64(s.once) }

// All yields every copy in code order; a doubled face is yielded twice.
func (s TileSet) All() iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		for m := s.once; m != 0; m &= m - 1 {
			code := bits.TrailingZeros64(m)
			t := tileAt(code)
			if !yield(t) {
				return
			}
			if s.twice&(1<<uint(code)) != 0 && !yield(t) {
				return
			}
		}
	}
}

// Unique yields each present face once, in code order.
func (s TileSet) Unique() iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		for m := s.once; m != 0; m &= m - 1 {
			if !yield(tileAt(bits.TrailingZeros64(m))) {
				return
			}
		}
	}
}

// Tiles collects All into a slice.
func (s TileSet) Tiles() []Tile {
	out := make([]Tile, 0, s.Len())
	for t := range s.All() {
		out = append(out, t)
	}
	return out
}

// Key is a stable, compact identifier of the multiset.
func (s TileSet) Key() string {
	return fmt.Sprintf("%014x%014x", s.once, s.twice)
}

func (s TileSet) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	first := true
	for t := range s.All() {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(t.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (s TileSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Tiles())
}

// UnmarshalJSON reads a list of tiles. A face listed more than twice is
// rejected rather than silently truncated.
func (s *TileSet) UnmarshalJSON(b []byte) error {
	var tiles []Tile
	if err := json.Unmarshal(b, &tiles); err != nil {
		return err
	}
	out, err := CollectTiles(tiles)
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// CollectTiles builds a TileSet and fails on a third copy of a face.
func CollectTiles(tiles []Tile) (TileSet, error) {
	var s TileSet
	for _, t := range tiles {
		var ok bool
		if s, ok = s.TryAdd(t); !ok {
			return TileSet{}, fmt.Errorf("%w: more than %d copies of %s", ErrInvalidTile, MaxCopies, t)
		}
	}
	return s, nil
}
