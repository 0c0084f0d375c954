package solver

import (
	"context"
	"fmt"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"svw.info/meldsolver/internal/combo"
	"svw.info/meldsolver/internal/domain"
	"svw.info/meldsolver/internal/generator"
	"svw.info/meldsolver/internal/ports"
	"svw.info/meldsolver/internal/validator"
)

type scenario struct {
	Name    string     `yaml:"name"`
	Pool    []string   `yaml:"pool"`
	Outcome string     `yaml:"outcome"`
	Melds   [][]string `yaml:"melds"`
}

func loadScenarios(t *testing.T) []scenario {
	t.Helper()
	data, err := os.ReadFile("testdata/scenarios.yaml")
	require.NoError(t, err)
	var out []scenario
	require.NoError(t, yaml.Unmarshal(data, &out))
	require.NotEmpty(t, out)
	return out
}

func parseSet(t *testing.T, ss []string) domain.TileSet {
	t.Helper()
	tiles, err := domain.ParseTiles(ss)
	require.NoError(t, err)
	s, err := domain.CollectTiles(tiles)
	require.NoError(t, err)
	return s
}

// requirePartition checks the solution adds up to pool with valid melds.
func requirePartition(t *testing.T, pool domain.TileSet, sol domain.Solution) {
	t.Helper()
	require.Equal(t, domain.Solved, sol.Outcome)
	res, err := validator.New().Validate(context.Background(), pool, sol.Melds)
	require.NoError(t, err)
	require.True(t, res.OK, "pool %s melds %v: %+v", pool, sol.Melds, res)
}

func solvers() map[string]ports.Solver {
	return map[string]ports.Solver{
		"dlx":       NewDLXSolver(0),
		"backtrack": NewBacktrackingSolver(),
	}
}

func TestScenarios(t *testing.T) {
	for name, s := range solvers() {
		for _, sc := range loadScenarios(t) {
			t.Run(name+"/"+sc.Name, func(t *testing.T) {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()

				pool := parseSet(t, sc.Pool)
				sol, st := s.Solve(ctx, pool)
				assert.Equal(t, sc.Outcome, sol.Outcome.String(), "nodes=%d", st.Nodes)
				if sol.Outcome != domain.Solved {
					assert.Empty(t, sol.Melds)
					return
				}
				requirePartition(t, pool, sol)
				if sc.Melds != nil {
					want := make([]domain.TileSet, 0, len(sc.Melds))
					for _, m := range sc.Melds {
						want = append(want, parseSet(t, m))
					}
					assert.ElementsMatch(t, want, sol.Melds)
				}
			})
		}
	}
}

// serverBudget is the default solver.max_nodes of the web server.
const serverBudget = 200000

func TestDLXSolvesGeneratedPools(t *testing.T) {
	s := NewDLXSolver(serverBudget)
	for _, jokerless := range []bool{true, false} {
		g := generator.NewPoolGenerator(jokerless)
		for seed := int64(1); seed <= 40; seed++ {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n := 1 + int(seed%8)
			pool, _, err := g.Generate(ctx, seed, n)
			require.NoError(t, err)

			sol, st := s.Solve(ctx, pool)
			cancel()
			require.Equal(t, domain.Solved, sol.Outcome, "seed %d pool %s nodes %d", seed, pool, st.Nodes)
			requirePartition(t, pool, sol)
		}
	}
}

func TestDLXSolvesLargeTwoJokerPools(t *testing.T) {
	g := generator.NewPoolGenerator(false)
	for _, seed := range []int64{7, 103, 129, 150, 152, 174} {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n := 8 + int(seed%12)
			pool, melds, err := g.Generate(ctx, seed, n)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(melds), 14)
			require.Equal(t, 2, pool.Amount(domain.Joker))

			sol, st := NewDLXSolver(serverBudget).Solve(ctx, pool)
			require.Equal(t, domain.Solved, sol.Outcome, "pool %s nodes %d", pool, st.Nodes)
			requirePartition(t, pool, sol)
		})
	}
}

func TestDLXFillsMissingFacesWithJokers(t *testing.T) {
	// R3 is absent, so the only way to place R1 and R2 is one joker
	pool := parseSet(t, []string{"R1", "R2", "J", "B7", "B8", "B9"})
	sol, _ := NewDLXSolver(0).Solve(context.Background(), pool)
	requirePartition(t, pool, sol)
	assert.ElementsMatch(t, []domain.TileSet{
		parseSet(t, []string{"R1", "R2", "J"}),
		parseSet(t, []string{"B7", "B8", "B9"}),
	}, sol.Melds)
	for _, m := range sol.Melds {
		assert.True(t, slices.Contains(combo.All(), m), "meld %s is not in the catalogue", m)
	}
}

func TestDLXLeftoverJokersFail(t *testing.T) {
	// R1 R2 R3 partitions on its own, but the joker must join a meld too
	pool := parseSet(t, []string{"R1", "R2", "R3", "J"})
	sol, _ := NewDLXSolver(0).Solve(context.Background(), pool)
	requirePartition(t, pool, sol)
	require.Len(t, sol.Melds, 1)
	assert.Equal(t, 1, sol.Melds[0].Amount(domain.Joker))

	// a four color group cannot take the joker and no run reaches R5
	sol, _ = NewDLXSolver(0).Solve(context.Background(), parseSet(t, []string{"R5", "G5", "B5", "U5", "J"}))
	assert.Equal(t, domain.Failed, sol.Outcome)
}

func TestDLXAgreesWithBacktracking(t *testing.T) {
	dlx := NewDLXSolver(0)
	bt := NewBacktrackingSolver()
	all := domain.AllTiles()
	g := generator.NewPoolGenerator(false)
	for seed := int64(1); seed <= 60; seed++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pool, _, err := g.Generate(ctx, seed, 1+int(seed%3))
		require.NoError(t, err)
		if pool.Len() > 15 {
			cancel()
			continue
		}
		// drop or add one tile so that some pools become unsolvable
		switch seed % 3 {
		case 1:
			pool = pool.Remove(pool.Tiles()[0])
		case 2:
			pool = pool.Add(all[int(seed*7)%len(all)])
		}

		a, _ := dlx.Solve(ctx, pool)
		b, _ := bt.Solve(ctx, pool)
		cancel()
		require.NotEqual(t, domain.Unknown, a.Outcome)
		require.NotEqual(t, domain.Unknown, b.Outcome)
		assert.Equal(t, b.Outcome, a.Outcome, "seed %d pool %s", seed, pool)
		if a.Outcome == domain.Solved {
			requirePartition(t, pool, a)
		}
	}
}

func TestDLXIsDeterministic(t *testing.T) {
	ctx := context.Background()
	pool, _, err := generator.NewPoolGenerator(false).Generate(ctx, 7, 5)
	require.NoError(t, err)
	s := NewDLXSolver(0)
	first, _ := s.Solve(ctx, pool)
	for range 3 {
		again, _ := s.Solve(ctx, pool)
		assert.Equal(t, first, again)
	}
}

func TestDLXCanceledIsUnknown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// needs at least one branch, so the canceled context is noticed
	pool := parseSet(t, []string{"R5", "G5", "B5", "U5", "R5", "G5", "B5"})
	sol, _ := NewDLXSolver(0).Solve(ctx, pool)
	assert.Equal(t, domain.Unknown, sol.Outcome)
	assert.Empty(t, sol.Melds)
}

func TestDLXNodeBudget(t *testing.T) {
	ctx := context.Background()
	// every face is coverable on its own, so failure is only found by
	// trying each group for R5
	pool := parseSet(t, []string{"R5", "G5", "B5", "U5", "R5"})
	full, st := NewDLXSolver(0).Solve(ctx, pool)
	require.Equal(t, domain.Failed, full.Outcome)
	require.GreaterOrEqual(t, st.Nodes, 2)

	sol, bst := NewDLXSolver(st.Nodes-1).Solve(ctx, pool)
	assert.Equal(t, domain.Unknown, sol.Outcome)
	assert.Equal(t, st.Nodes, bst.Nodes)
}

func TestDLXPrefersLargerCombos(t *testing.T) {
	pool := parseSet(t, []string{"G1", "G2", "G3", "G4", "G5", "G6", "G7", "G8"})
	sol, st := NewDLXSolver(0).Solve(context.Background(), pool)
	requirePartition(t, pool, sol)
	assert.Equal(t, []domain.TileSet{pool}, sol.Melds)
	assert.Equal(t, 1, st.Nodes)
}

func TestSearchUndoRestoresMatrix(t *testing.T) {
	pool := parseSet(t, []string{"R1", "R2", "R3", "R4", "G1", "B1", "U1", "G2", "J"})
	d := newDLX(context.Background(), pool, combo.Jokerless(), 0)

	var before [domain.TileCount]int
	for i := range d.cols {
		before[i] = d.cols[i].avail
	}
	cells := append([]cell(nil), d.cells...)

	// one row taken with real tiles only, one that needs the joker
	withJoker := int32(-1)
	for i := range d.rows {
		if d.missing(int32(i)) > 0 {
			withJoker = int32(i)
			break
		}
	}
	require.NotEqual(t, int32(-1), withJoker)
	require.Zero(t, d.missing(0))

	for _, r := range []int32{0, withJoker} {
		mark := len(d.log)
		d.take(r)
		for i := range d.rows {
			if !d.rows[i].hidden {
				d.hide(int32(i))
				break
			}
		}
		require.NotEqual(t, pool, d.pool)
		d.undoTo(mark)

		assert.Equal(t, pool, d.pool)
		assert.Empty(t, d.accum)
		assert.Equal(t, cells, d.cells)
		for i := range d.cols {
			assert.Equal(t, before[i], d.cols[i].avail, "column %d", i)
		}
		for i := range d.rows {
			assert.False(t, d.rows[i].hidden)
		}
	}
}

func TestTakeWithJokerHidesRowsElsewhere(t *testing.T) {
	pool := parseSet(t, []string{"R1", "R2", "J", "B7", "B8"})
	d := newDLX(context.Background(), pool, combo.Jokerless(), 0)
	// R1 R2 R3, B6 B7 B8 and B7 B8 B9 each need the one joker
	require.Len(t, d.rows, 3)

	d.take(0)
	assert.Equal(t, []domain.TileSet{parseSet(t, []string{"R1", "R2", "J"})}, d.accum)
	for i := range d.rows {
		assert.True(t, d.rows[i].hidden, "row %s", d.rows[i].combo)
	}
	assert.Zero(t, d.cols[domain.NewTile(domain.Black, 7).Code()].avail)
}

func TestSearchRemembersFailedPools(t *testing.T) {
	pool := parseSet(t, []string{"R5", "G5", "B5", "U5", "R5"})
	d := newDLX(context.Background(), pool, combo.Jokerless(), 0)
	require.False(t, d.search())
	assert.Contains(t, d.failed, pool)

	// a second search is refused before any branching
	nodes := d.nodes
	assert.False(t, d.search())
	assert.Equal(t, nodes, d.nodes)
}

func TestSearchDoesNotRememberAbortedPools(t *testing.T) {
	pool := parseSet(t, []string{"R5", "G5", "B5", "U5", "R5"})
	d := newDLX(context.Background(), pool, combo.Jokerless(), 1)
	require.False(t, d.search())
	require.True(t, d.aborted)
	assert.NotContains(t, d.failed, pool)
}

func TestTakeKeepsRowsThatStillFit(t *testing.T) {
	pool := parseSet(t, []string{"R1", "R2", "R3", "R1", "R2", "R3"})
	d := newDLX(context.Background(), pool, combo.Jokerless(), 0)
	require.Len(t, d.rows, 1)

	d.take(0)
	assert.False(t, d.rows[0].hidden, "a second copy still fits")
	d.take(0)
	assert.True(t, d.rows[0].hidden)
	assert.True(t, d.pool.IsEmpty())
}
