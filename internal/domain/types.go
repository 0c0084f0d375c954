package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Outcome of a solve call.
type Outcome int

const (
	// Unknown: the search was cut short by a deadline or node budget.
	Unknown Outcome = iota
	// Solved: Solution.Melds partitions the pool.
	Solved
	// Failed: no partition exists.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Solved:
		return "solved"
	case Failed:
		return "failed"
	}
	return "unknown"
}

func (o Outcome) MarshalJSON() ([]byte, error) { return json.Marshal(o.String()) }

func (o *Outcome) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "solved":
		*o = Solved
	case "failed":
		*o = Failed
	case "unknown", "":
		*o = Unknown
	default:
		return fmt.Errorf("unknown outcome %q", s)
	}
	return nil
}

// Solution is the result of partitioning a pool into melds.
type Solution struct {
	Outcome Outcome   `json:"outcome"`
	Melds   []TileSet `json:"melds,omitzero"`
}

// Hint points a player at the next deduction for a pool.
type Hint struct {
	Message string  `json:"message,omitempty"`
	Tile    *Tile   `json:"tile,omitempty"`
	Meld    TileSet `json:"meld,omitzero"`
	// Dead is set when Tile cannot be placed in any meld.
	Dead bool `json:"dead,omitempty"`
}

// SavedPool is a persisted pool with metadata.
type SavedPool struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Pool      TileSet `json:"pool"`
	CreatedAt int64   `json:"createdAt,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// SavedPoolMeta is a lightweight listing entry.
type SavedPoolMeta struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Tiles     int    `json:"tiles"`
	CreatedAt int64  `json:"createdAt"`
}

// CatalogueStats aggregates the combo catalogue for diagnostics.
type CatalogueStats struct {
	Combos              int `json:"combos"`
	Assignments         int `json:"assignments"`
	JokerlessCombos     int `json:"jokerlessCombos"`
	JokerlessAssignment int `json:"jokerlessAssignments"`
	MinCombosPerTile    int `json:"minCombosPerTile"`
	MaxCombosPerTile    int `json:"maxCombosPerTile"`
}

// Validation reports why a proposed partition does not match a pool.
type Validation struct {
	OK bool `json:"ok"`
	// Invalid holds the indexes of melds that are neither group nor run.
	Invalid []int   `json:"invalid,omitempty"`
	Missing TileSet `json:"missing,omitzero"`
	Surplus TileSet `json:"surplus,omitzero"`
}
