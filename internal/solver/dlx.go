package solver

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"svw.info/meldsolver/internal/combo"
	"svw.info/meldsolver/internal/domain"
	"svw.info/meldsolver/internal/ports"
)

// DLXSolver partitions a pool with a dancing-links exact cover search.
// Rows are the jokerless catalogue combos, columns are tile faces.
//
// A row fits when the remaining jokers can stand in for the members it
// is missing from the remaining pool. Taking it uses the real tiles first
// and jokers for the rest, which always yields a catalogue combo. A joker
// is never put in place of a face that is still in the pool: whichever
// meld takes that face later gets the joker instead.
//
// Faces may be needed twice, so a row is not consumed when it is chosen:
// it stays available for as long as it still fits. Every row still linked
// into the matrix fits.
type DLXSolver struct {
	// MaxNodes bounds the number of branch candidates tried; 0 means no bound.
	MaxNodes int
}

func NewDLXSolver(maxNodes int) *DLXSolver { return &DLXSolver{MaxNodes: maxNodes} }

// handle addresses a cell in the arena; nilHandle marks a missing link.
type handle int32

const nilHandle handle = -1

type cell struct {
	up, down    handle // cells of the same face
	left, right handle // cells of the same combo
	row         int32
	col         int32
}

type row struct {
	combo       domain.TileSet
	first, last handle
	hidden      bool
}

type column struct {
	head  handle
	avail int // rows linked into this column
}

type opKind uint8

const (
	opHide opKind = iota
	opTake
)

// op is one undo log entry.
type op struct {
	kind opKind
	row  int32
	pool domain.TileSet // pool before opTake
}

type dlx struct {
	ctx      context.Context
	maxNodes int

	cells []cell
	rows  []row
	cols  [domain.TileCount]column
	pool  domain.TileSet
	accum []domain.TileSet
	log   []op

	// failed holds pools shown to have no partition.
	failed map[domain.TileSet]struct{}

	nodes   int
	forced  int
	aborted bool
}

// newDLX links the jokerless combos that fit in pool.
func newDLX(ctx context.Context, pool domain.TileSet, combos []domain.TileSet, maxNodes int) *dlx {
	d := &dlx{
		ctx:      ctx,
		maxNodes: maxNodes,
		pool:     pool,
		failed:   make(map[domain.TileSet]struct{}),
	}
	var tails [domain.TileCount]handle
	for i := range d.cols {
		d.cols[i].head = nilHandle
		tails[i] = nilHandle
	}
	for _, c := range combos {
		if c.Contains(domain.Joker) {
			panic(fmt.Sprintf("solver: row %s holds a joker", c))
		}
		if !d.fits(c) {
			continue
		}
		r := int32(len(d.rows))
		rw := row{combo: c, first: nilHandle, last: nilHandle}
		for t := range c.Unique() {
			col := int32(t.Code())
			h := handle(len(d.cells))
			d.cells = append(d.cells, cell{
				up: tails[col], down: nilHandle,
				left: rw.last, right: nilHandle,
				row: r, col: col,
			})
			if rw.last != nilHandle {
				d.cells[rw.last].right = h
			} else {
				rw.first = h
			}
			rw.last = h
			if tails[col] != nilHandle {
				d.cells[tails[col]].down = h
			} else {
				d.cols[col].head = h
			}
			tails[col] = h
			d.cols[col].avail++
		}
		d.rows = append(d.rows, rw)
	}
	return d
}

// fits reports whether the jokers left can fill in what c is missing.
func (d *dlx) fits(c domain.TileSet) bool {
	return c.Difference(d.pool).Len() <= d.pool.Amount(domain.Joker)
}

// missing counts the jokers taking row r would use.
func (d *dlx) missing(r int32) int {
	return d.rows[r].combo.Difference(d.pool).Len()
}

// meld is row r as it would be taken now: its members still in the pool
// plus a joker for each one that is not.
func (d *dlx) meld(r int32) domain.TileSet {
	c := d.rows[r].combo
	gone := c.Difference(d.pool)
	m := c.Difference(gone)
	for range gone.Len() {
		m = m.Add(domain.Joker)
	}
	return m
}

func (d *dlx) unlink(h handle) {
	c := &d.cells[h]
	if c.up != nilHandle {
		d.cells[c.up].down = c.down
	} else {
		d.cols[c.col].head = c.down
	}
	if c.down != nilHandle {
		d.cells[c.down].up = c.up
	}
	d.cols[c.col].avail--
}

func (d *dlx) relink(h handle) {
	c := &d.cells[h]
	if c.up != nilHandle {
		d.cells[c.up].down = h
	} else {
		d.cols[c.col].head = h
	}
	if c.down != nilHandle {
		d.cells[c.down].up = h
	}
	d.cols[c.col].avail++
}

// hide removes row r from every column it occupies.
func (d *dlx) hide(r int32) {
	rw := &d.rows[r]
	if rw.hidden {
		panic(fmt.Sprintf("solver: row %d hidden twice", r))
	}
	rw.hidden = true
	for h := rw.first; h != nilHandle; h = d.cells[h].right {
		d.unlink(h)
	}
	d.log = append(d.log, op{kind: opHide, row: r})
}

func (d *dlx) unhide(r int32) {
	rw := &d.rows[r]
	if !rw.hidden {
		panic(fmt.Sprintf("solver: row %d restored while visible", r))
	}
	for h := rw.last; h != nilHandle; h = d.cells[h].left {
		d.relink(h)
	}
	rw.hidden = false
}

// take commits row r: its meld leaves the pool, and every row that no
// longer fits is hidden. Without jokers spent only rows sharing a face
// with r can stop fitting.
func (d *dlx) take(r int32) {
	rw := &d.rows[r]
	if rw.hidden || !d.fits(rw.combo) {
		panic(fmt.Sprintf("solver: take of unavailable row %d %s", r, rw.combo))
	}
	m := d.meld(r)
	d.log = append(d.log, op{kind: opTake, row: r, pool: d.pool})
	d.pool = d.pool.Difference(m)
	d.accum = append(d.accum, m)

	if m.Contains(domain.Joker) {
		for i := range d.rows {
			if !d.rows[i].hidden && !d.fits(d.rows[i].combo) {
				d.hide(int32(i))
			}
		}
		return
	}
	for h := rw.first; h != nilHandle; h = d.cells[h].right {
		col := d.cells[h].col
		for v := d.cols[col].head; v != nilHandle; {
			next := d.cells[v].down
			other := d.cells[v].row
			if !d.fits(d.rows[other].combo) {
				d.hide(other)
			}
			v = next
		}
	}
}

// undoTo replays the log backwards until it is mark entries long.
func (d *dlx) undoTo(mark int) {
	for len(d.log) > mark {
		e := d.log[len(d.log)-1]
		d.log = d.log[:len(d.log)-1]
		switch e.kind {
		case opHide:
			d.unhide(e.row)
		case opTake:
			d.pool = e.pool
			d.accum = d.accum[:len(d.accum)-1]
		}
	}
}

// propagate commits forced rows until none is left. It returns false when
// some face of the pool can no longer be covered.
func (d *dlx) propagate() bool {
	for {
		progress := false
		for t := range d.pool.Unique() {
			if t.IsJoker() {
				continue
			}
			col := &d.cols[t.Code()]
			switch col.avail {
			case 0:
				return false
			case 1:
				d.take(d.cells[col.head].row)
				d.forced++
				progress = true
			}
			if progress {
				break
			}
		}
		if !progress {
			return true
		}
	}
}

// choose picks the pool face with the fewest rows, lowest code on ties.
func (d *dlx) choose() int32 {
	best, bestAvail := int32(-1), 0
	for t := range d.pool.Unique() {
		if t.IsJoker() {
			continue
		}
		code := int32(t.Code())
		if a := d.cols[code].avail; best < 0 || a < bestAvail {
			best, bestAvail = code, a
		}
	}
	return best
}

// candidates lists the rows of a column: fewest jokers first, then larger
// combos, then catalogue order.
func (d *dlx) candidates(col int32) []int32 {
	out := make([]int32, 0, d.cols[col].avail)
	for h := d.cols[col].head; h != nilHandle; h = d.cells[h].down {
		out = append(out, d.cells[h].row)
	}
	slices.SortStableFunc(out, func(a, b int32) int {
		if c := cmp.Compare(d.missing(a), d.missing(b)); c != 0 {
			return c
		}
		return cmp.Compare(d.rows[b].combo.Len(), d.rows[a].combo.Len())
	})
	return out
}

func (d *dlx) stop() bool {
	if d.aborted {
		return true
	}
	if d.ctx.Err() != nil || (d.maxNodes > 0 && d.nodes > d.maxNodes) {
		d.aborted = true
	}
	return d.aborted
}

// search reports whether the pool can be partitioned. Failures are
// remembered by pool: sibling exclusion only hides rows that no partition
// of the pool uses, so a failure never depends on the path taken.
func (d *dlx) search() bool {
	entry := d.pool
	if _, ok := d.failed[entry]; ok {
		return false
	}
	if !d.propagate() {
		return false
	}
	if jokers := d.pool.Amount(domain.Joker); d.pool.Len() == jokers {
		// a meld needs at least one real tile
		return jokers == 0
	}
	col := d.choose()
	mark := len(d.log)
	for _, r := range d.candidates(col) {
		d.nodes++
		if d.stop() {
			break
		}
		m := len(d.log)
		d.take(r)
		if d.search() {
			return true
		}
		d.undoTo(m)
		if d.aborted {
			break
		}
		// no partition of the current pool uses r
		d.hide(r)
		if d.cols[col].avail == 0 {
			break
		}
	}
	d.undoTo(mark)
	if !d.aborted {
		d.failed[entry] = struct{}{}
	}
	return false
}

func (s *DLXSolver) Solve(ctx context.Context, pool domain.TileSet) (domain.Solution, ports.Stats) {
	start := time.Now()
	d := newDLX(ctx, pool, combo.Jokerless(), s.MaxNodes)
	found := d.search()

	st := ports.Stats{Nodes: d.nodes, Forced: d.forced, Duration: time.Since(start)}
	switch {
	case found:
		return domain.Solution{Outcome: domain.Solved, Melds: slices.Clone(d.accum)}, st
	case d.aborted:
		return domain.Solution{Outcome: domain.Unknown}, st
	}
	return domain.Solution{Outcome: domain.Failed}, st
}
