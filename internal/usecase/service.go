package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"svw.info/meldsolver/internal/combo"
	"svw.info/meldsolver/internal/diag"
	"svw.info/meldsolver/internal/domain"
	"svw.info/meldsolver/internal/ports"
	"svw.info/meldsolver/internal/workerpool"
)

type Service struct {
	Solver    ports.Solver
	Generator ports.PoolGenerator
	Validator ports.Validator
	Hinter    ports.Hinter
	Storage   ports.Storage

	// Optional collaborators.
	Cache   ports.SolutionCache
	Workers *workerpool.Pool
	// Timeout bounds a single solve; 0 leaves it to the caller's context.
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewService(s ports.Solver, g ports.PoolGenerator, v ports.Validator, h ports.Hinter, st ports.Storage) *Service {
	return &Service{Solver: s, Generator: g, Validator: v, Hinter: h, Storage: st, Logger: slog.Default()}
}

var errNotConfigured = errors.New("usecase dependency not configured")

// SolveResult pairs a solution with the cost of finding it.
type SolveResult struct {
	Solution domain.Solution
	Stats    ports.Stats
	Cached   bool
}

func (u *Service) logger() *slog.Logger {
	if u.Logger == nil {
		return slog.Default()
	}
	return u.Logger
}

func (u *Service) Solve(ctx context.Context, pool domain.TileSet) (SolveResult, error) {
	if u.Solver == nil {
		return SolveResult{}, errNotConfigured
	}
	if u.Cache != nil {
		s, err := u.Cache.Get(ctx, pool)
		if err != nil {
			u.logger().Warn("solution cache read failed", "err", err)
		} else if s != nil {
			return SolveResult{Solution: *s, Cached: true}, nil
		}
	}

	sctx := ctx
	if u.Timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}
	sol, st := u.Solver.Solve(sctx, pool)
	u.logger().Debug("solve",
		"tiles", pool.Len(),
		"outcome", sol.Outcome.String(),
		"melds", len(sol.Melds),
		"nodes", st.Nodes,
		"forced", st.Forced,
		"dur", st.Duration,
	)

	if u.Cache != nil && sol.Outcome != domain.Unknown {
		if err := u.Cache.Put(ctx, pool, sol); err != nil {
			u.logger().Warn("solution cache write failed", "err", err)
		}
	}
	return SolveResult{Solution: sol, Stats: st}, nil
}

// SolveBatch solves independent pools, concurrently when a worker pool is
// configured. Results keep the order of pools; a pool that could not be
// scheduled reports an Unknown outcome.
func (u *Service) SolveBatch(ctx context.Context, pools []domain.TileSet) ([]SolveResult, error) {
	if u.Solver == nil {
		return nil, errNotConfigured
	}
	out := make([]SolveResult, len(pools))
	if u.Workers == nil {
		for i, p := range pools {
			r, err := u.Solve(ctx, p)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}

	var wg sync.WaitGroup
	for i, p := range pools {
		wg.Add(1)
		ok := u.Workers.Submit(ctx, func() {
			defer wg.Done()
			r, err := u.Solve(ctx, p)
			if err != nil {
				u.logger().Error("batch solve failed", "index", i, "err", err)
				return
			}
			out[i] = r
		})
		if !ok {
			wg.Done()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (u *Service) Generate(ctx context.Context, seed int64, melds int) (domain.TileSet, []domain.TileSet, error) {
	if u.Generator == nil {
		return domain.TileSet{}, nil, errNotConfigured
	}
	return u.Generator.Generate(ctx, seed, melds)
}

func (u *Service) Validate(ctx context.Context, pool domain.TileSet, melds []domain.TileSet) (domain.Validation, error) {
	if u.Validator == nil {
		return domain.Validation{}, errNotConfigured
	}
	return u.Validator.Validate(ctx, pool, melds)
}

func (u *Service) Hint(ctx context.Context, pool domain.TileSet) (domain.Hint, bool, error) {
	if u.Hinter == nil {
		return domain.Hint{}, false, errNotConfigured
	}
	return u.Hinter.Hint(ctx, pool)
}

// Combos lists the catalogue, or only the combos that fit in pool.
func (u *Service) Combos(pool *domain.TileSet) []domain.TileSet {
	if pool == nil {
		return combo.All()
	}
	return combo.Within(*pool)
}

func (u *Service) CatalogueStats() domain.CatalogueStats {
	return diag.Collect()
}

// Persistence
func (u *Service) Save(ctx context.Context, p *domain.SavedPool) error {
	if u.Storage == nil {
		return errNotConfigured
	}
	return u.Storage.Save(ctx, p)
}
func (u *Service) Load(ctx context.Context, id string) (*domain.SavedPool, error) {
	if u.Storage == nil {
		return nil, errNotConfigured
	}
	return u.Storage.Load(ctx, id)
}
func (u *Service) List(ctx context.Context) ([]domain.SavedPoolMeta, error) {
	if u.Storage == nil {
		return nil, errNotConfigured
	}
	return u.Storage.List(ctx)
}
