package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"svw.info/meldsolver/internal/domain"
)

var (
	// ErrNotFound is returned by Load when no pool has the given id.
	ErrNotFound = errors.New("saved pool not found")
	// ErrInvalidID is returned for an empty id or one that is not a single
	// path element.
	ErrInvalidID = errors.New("invalid saved pool id")
)

// record is the on-disk form: tiles are stored as codes so a file edited
// by hand with an out-of-range code is rejected on load.
type record struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Codes     []int  `json:"codes"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

func toRecord(p *domain.SavedPool) record {
	codes := make([]int, 0, p.Pool.Len())
	for t := range p.Pool.All() {
		codes = append(codes, t.Code())
	}
	return record{ID: p.ID, Name: p.Name, Codes: codes, CreatedAt: p.CreatedAt, Notes: p.Notes}
}

// decodePool turns stored codes back into a pool.
func decodePool(codes []int) (domain.TileSet, error) {
	tiles := make([]domain.Tile, 0, len(codes))
	for _, c := range codes {
		t, err := domain.DecodeTile(c)
		if err != nil {
			return domain.TileSet{}, err
		}
		tiles = append(tiles, t)
	}
	return domain.CollectTiles(tiles)
}

func (r record) toPool() (*domain.SavedPool, error) {
	pool, err := decodePool(r.Codes)
	if err != nil {
		return nil, fmt.Errorf("saved pool %s: %w", r.ID, err)
	}
	return &domain.SavedPool{ID: r.ID, Name: r.Name, Pool: pool, CreatedAt: r.CreatedAt, Notes: r.Notes}, nil
}

// validID keeps ids to a single path element.
func validID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}

// FS stores one JSON file per saved pool.
type FS struct{ dir string }

func NewFS(dir string) *FS { return &FS{dir: dir} }

func (s *FS) pathFor(id string) string {
	return filepath.Join(s.dir, strings.TrimSpace(id)+".json")
}

func (s *FS) Save(ctx context.Context, p *domain.SavedPool) error {
	if p == nil || !validID(p.ID) {
		return ErrInvalidID
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(s.pathFor(p.ID))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(toRecord(p))
}

func (s *FS) Load(ctx context.Context, id string) (*domain.SavedPool, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	data, err := os.ReadFile(s.pathFor(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r.toPool()
}

func (s *FS) List(ctx context.Context) ([]domain.SavedPoolMeta, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []domain.SavedPoolMeta
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var r record
		if err := json.Unmarshal(data, &r); err != nil || r.ID == "" {
			continue
		}
		out = append(out, domain.SavedPoolMeta{
			ID:        r.ID,
			Name:      r.Name,
			Tiles:     len(r.Codes),
			CreatedAt: r.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}
