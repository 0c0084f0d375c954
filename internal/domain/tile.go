package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidEncoding is returned when a tile code falls outside [0, TileCount).
var ErrInvalidEncoding = errors.New("invalid tile encoding")

// ErrInvalidTile is returned when a tile notation cannot be parsed.
var ErrInvalidTile = errors.New("invalid tile")

// Color of a normal tile.
type Color uint8

const (
	Red Color = iota
	Green
	Black
	Blue
)

// ColorCount is the number of tile colors.
const ColorCount = 4

// Colors lists every color in code order.
var Colors = [ColorCount]Color{Red, Green, Black, Blue}

func (c Color) Name() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Black:
		return "black"
	case Blue:
		return "blue"
	}
	return "color(" + strconv.Itoa(int(c)) + ")"
}

// Letter is the single-letter notation: R, G, B, U.
func (c Color) Letter() byte {
	return "RGBU"[c]
}

// Value of a normal tile, 1..13.
type Value uint8

const (
	MinValue Value = 1
	MaxValue Value = 13
)

func (v Value) Valid() bool { return v >= MinValue && v <= MaxValue }

// Tile is a tile face: a color/value pair or the joker.
// The zero value is the joker.
type Tile struct {
	color Color
	value Value // 0 marks the joker
}

// Joker is the wildcard face.
var Joker = Tile{}

const (
	// TileCount is the size of the tile domain: 4 colors x 13 values + joker.
	TileCount = ColorCount*int(MaxValue) + 1
	jokerCode = TileCount - 1
)

// NewTile builds a normal tile. It panics on an out-of-range value,
// callers parsing untrusted input go through ParseTile or DecodeTile.
func NewTile(c Color, v Value) Tile {
	if c >= ColorCount || !v.Valid() {
		panic(fmt.Sprintf("domain: tile out of range: color=%d value=%d", c, v))
	}
	return Tile{color: c, value: v}
}

func (t Tile) IsJoker() bool { return t.value == 0 }

// Color of a normal tile; meaningless for the joker.
func (t Tile) Color() Color { return t.color }

// Value of a normal tile; 0 for the joker.
func (t Tile) Value() Value { return t.value }

// Code maps the tile to its dense index in [0, TileCount).
func (t Tile) Code() int {
	if t.IsJoker() {
		return jokerCode
	}
	return (int(t.value)-1)*ColorCount + int(t.color)
}

// DecodeTile is the inverse of Tile.Code.
func DecodeTile(code int) (Tile, error) {
	if code < 0 || code >= TileCount {
		return Tile{}, fmt.Errorf("%w: %d", ErrInvalidEncoding, code)
	}
	return tileAt(code), nil
}

// tileAt decodes a code already known to be in range.
func tileAt(code int) Tile {
	if code == jokerCode {
		return Joker
	}
	return Tile{color: Color(code % ColorCount), value: Value(code/ColorCount + 1)}
}

// AllTiles returns every tile face in code order.
func AllTiles() []Tile {
	out := make([]Tile, TileCount)
	for i := range out {
		out[i] = tileAt(i)
	}
	return out
}

// String renders R7, U13, J.
func (t Tile) String() string {
	if t.IsJoker() {
		return "J"
	}
	return string(t.color.Letter()) + strconv.Itoa(int(t.value))
}

// ParseTile accepts the String notation, case-insensitive.
func ParseTile(s string) (Tile, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "J" || s == "JOKER" {
		return Joker, nil
	}
	if len(s) < 2 {
		return Tile{}, fmt.Errorf("%w: %q", ErrInvalidTile, s)
	}
	idx := strings.IndexByte("RGBU", s[0])
	if idx < 0 {
		return Tile{}, fmt.Errorf("%w: unknown color in %q", ErrInvalidTile, s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < int(MinValue) || n > int(MaxValue) {
		return Tile{}, fmt.Errorf("%w: bad value in %q", ErrInvalidTile, s)
	}
	return Tile{color: Color(idx), value: Value(n)}, nil
}

// ParseTiles parses a list of notations; an empty list is allowed.
func ParseTiles(ss []string) ([]Tile, error) {
	out := make([]Tile, 0, len(ss))
	for _, s := range ss {
		t, err := ParseTile(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (t Tile) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts either the notation string or the integer code.
func (t *Tile) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		tt, err := ParseTile(s)
		if err != nil {
			return err
		}
		*t = tt
		return nil
	}
	var code int
	if err := json.Unmarshal(b, &code); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTile, string(b))
	}
	tt, err := DecodeTile(code)
	if err != nil {
		return err
	}
	*t = tt
	return nil
}
