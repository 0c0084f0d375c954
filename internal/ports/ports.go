package ports

import (
	"context"
	"time"

	"svw.info/meldsolver/internal/domain"
)

// Stats captures performance characteristics of an operation.
type Stats struct {
	Nodes    int
	Forced   int
	Duration time.Duration
}

// Solver partitions a pool into melds. The outcome distinguishes a proven
// failure from a search that was cut short.
type Solver interface {
	Solve(ctx context.Context, pool domain.TileSet) (domain.Solution, Stats)
}

// PoolGenerator creates solvable pools.
type PoolGenerator interface {
	Generate(ctx context.Context, seed int64, melds int) (domain.TileSet, []domain.TileSet, error)
}

// Validator checks a proposed partition against a pool.
type Validator interface {
	Validate(ctx context.Context, pool domain.TileSet, melds []domain.TileSet) (domain.Validation, error)
}

// Hinter returns the next forced deduction for a pool.
type Hinter interface {
	Hint(ctx context.Context, pool domain.TileSet) (domain.Hint, bool, error)
}

// Storage persists and retrieves saved pools.
type Storage interface {
	Save(ctx context.Context, p *domain.SavedPool) error
	Load(ctx context.Context, id string) (*domain.SavedPool, error)
	List(ctx context.Context) ([]domain.SavedPoolMeta, error)
}

// SolutionCache memoizes conclusive solve results by pool.
type SolutionCache interface {
	Get(ctx context.Context, pool domain.TileSet) (*domain.Solution, error)
	Put(ctx context.Context, pool domain.TileSet, s domain.Solution) error
}
