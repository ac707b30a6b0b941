package repository

import (
	"context"
	"errors"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/user/moviecatalog/internal/embedding"
	"github.com/user/moviecatalog/internal/model"
)

// MemoryStore 内存存储，用于本地运行（DATABASE_URL=memory://）和测试
// 事务在快照上执行，提交时整体替换
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

type memoryData struct {
	movies map[uuid.UUID]*model.Movie
	order  []uuid.UUID // 插入顺序，距离相同时保持稳定
}

var (
	errDuplicateID = errors.New("movie id already exists")
	errUnknownKind = errors.New("unknown vector type")
)

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryData{movies: map[uuid.UUID]*model.Movie{}}}
}

var _ MovieStore = (*MemoryStore)(nil)

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx MovieStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&memoryTx{data: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *MemoryStore) view(fn func(tx *memoryTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memoryTx{data: s.data})
}

func (s *MemoryStore) Create(ctx context.Context, movie *model.Movie) error {
	return s.view(func(tx *memoryTx) error { return tx.Create(ctx, movie) })
}

func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (movie *model.Movie, err error) {
	err = s.view(func(tx *memoryTx) error {
		movie, err = tx.FindByID(ctx, id)
		return err
	})
	return movie, err
}

func (s *MemoryStore) FindByIMDbID(ctx context.Context, imdbID string) (movie *model.Movie, err error) {
	err = s.view(func(tx *memoryTx) error {
		movie, err = tx.FindByIMDbID(ctx, imdbID)
		return err
	})
	return movie, err
}

func (s *MemoryStore) Save(ctx context.Context, movie *model.Movie) error {
	return s.view(func(tx *memoryTx) error { return tx.Save(ctx, movie) })
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) (ok bool, err error) {
	err = s.view(func(tx *memoryTx) error {
		ok, err = tx.Delete(ctx, id)
		return err
	})
	return ok, err
}

func (s *MemoryStore) List(ctx context.Context, filter model.MovieFilter) (movies []model.Movie, total int64, err error) {
	err = s.view(func(tx *memoryTx) error {
		movies, total, err = tx.List(ctx, filter)
		return err
	})
	return movies, total, err
}

func (s *MemoryStore) SearchText(ctx context.Context, query string, skip, limit int) (movies []model.Movie, total int64, err error) {
	err = s.view(func(tx *memoryTx) error {
		movies, total, err = tx.SearchText(ctx, query, skip, limit)
		return err
	})
	return movies, total, err
}

func (s *MemoryStore) NearestNeighbors(ctx context.Context, vector []float32, kind model.VectorKind, limit int) (neighbors []model.Neighbor, err error) {
	err = s.view(func(tx *memoryTx) error {
		neighbors, err = tx.NearestNeighbors(ctx, vector, kind, limit)
		return err
	})
	return neighbors, err
}

// memoryTx 持有锁期间对某个快照的操作
type memoryTx struct {
	data *memoryData
}

func (tx *memoryTx) Transaction(_ context.Context, fn func(tx MovieStore) error) error {
	return fn(tx)
}

func (tx *memoryTx) Create(_ context.Context, movie *model.Movie) error {
	if movie.ID == uuid.Nil {
		movie.ID = uuid.New()
	}
	if _, exists := tx.data.movies[movie.ID]; exists {
		return errDuplicateID
	}
	now := time.Now()
	if movie.CreatedAt.IsZero() {
		movie.CreatedAt = now
	}
	movie.UpdatedAt = now
	tx.data.movies[movie.ID] = cloneMovie(movie)
	tx.data.order = append(tx.data.order, movie.ID)
	return nil
}

func (tx *memoryTx) FindByID(_ context.Context, id uuid.UUID) (*model.Movie, error) {
	movie, ok := tx.data.movies[id]
	if !ok {
		return nil, nil
	}
	return cloneMovie(movie), nil
}

func (tx *memoryTx) FindByIMDbID(_ context.Context, imdbID string) (*model.Movie, error) {
	for _, id := range tx.data.order {
		if m := tx.data.movies[id]; m.IMDbID != nil && *m.IMDbID == imdbID {
			return cloneMovie(m), nil
		}
	}
	return nil, nil
}

func (tx *memoryTx) Save(ctx context.Context, movie *model.Movie) error {
	if _, ok := tx.data.movies[movie.ID]; !ok {
		return tx.Create(ctx, movie)
	}
	movie.UpdatedAt = time.Now()
	tx.data.movies[movie.ID] = cloneMovie(movie)
	return nil
}

func (tx *memoryTx) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := tx.data.movies[id]; !ok {
		return false, nil
	}
	delete(tx.data.movies, id)
	tx.data.order = slices.DeleteFunc(tx.data.order, func(v uuid.UUID) bool { return v == id })
	return true, nil
}

func (tx *memoryTx) List(_ context.Context, filter model.MovieFilter) ([]model.Movie, int64, error) {
	director := strings.ToLower(filter.Director)
	return tx.page(func(m *model.Movie) bool {
		if filter.Genre != "" && !slices.Contains(m.Genres, filter.Genre) {
			return false
		}
		if filter.Year != nil && (m.ReleaseDate == nil || m.ReleaseDate.Year() != *filter.Year) {
			return false
		}
		if director != "" && !strings.Contains(strings.ToLower(m.Director), director) {
			return false
		}
		if filter.MinRating != nil && (m.IMDbRating == nil || *m.IMDbRating < *filter.MinRating) {
			return false
		}
		if filter.MaxRating != nil && (m.IMDbRating == nil || *m.IMDbRating > *filter.MaxRating) {
			return false
		}
		return true
	}, filter.Skip, filter.Limit)
}

func (tx *memoryTx) SearchText(_ context.Context, query string, skip, limit int) ([]model.Movie, int64, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []model.Movie{}, 0, nil
	}
	return tx.page(func(m *model.Movie) bool {
		fields := strings.ToLower(strings.Join([]string{m.Title, m.Synopsis, m.Director, m.SearchText}, "\n"))
		for _, term := range terms {
			if strings.Contains(fields, term) {
				return true
			}
		}
		return false
	}, skip, limit)
}

func (tx *memoryTx) page(match func(*model.Movie) bool, skip, limit int) ([]model.Movie, int64, error) {
	var matched []model.Movie
	for _, id := range tx.data.order {
		if m := tx.data.movies[id]; match(m) {
			matched = append(matched, *cloneMovie(m))
		}
	}

	total := int64(len(matched))
	if skip >= len(matched) {
		return []model.Movie{}, total, nil
	}
	end := len(matched)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return matched[skip:end], total, nil
}

func (tx *memoryTx) NearestNeighbors(_ context.Context, vector []float32, kind model.VectorKind, limit int) ([]model.Neighbor, error) {
	if _, ok := kind.Column(); !ok {
		return nil, errUnknownKind
	}

	var neighbors []model.Neighbor
	for _, id := range tx.data.order {
		m := tx.data.movies[id]
		v := m.Vector(kind)
		if v == nil || len(v.Slice()) != len(vector) || embedding.IsZero(v.Slice()) {
			continue
		}
		d := embedding.CosineDistance(vector, v.Slice())
		if math.IsNaN(d) {
			continue
		}
		neighbors = append(neighbors, model.Neighbor{Movie: *cloneMovie(m), Distance: d})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if limit >= 0 && len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

func (d *memoryData) clone() *memoryData {
	out := &memoryData{
		movies: make(map[uuid.UUID]*model.Movie, len(d.movies)),
		order:  slices.Clone(d.order),
	}
	for id, m := range d.movies {
		out.movies[id] = m
	}
	return out
}

// cloneMovie 深拷贝，避免调用方修改存储内容
func cloneMovie(m *model.Movie) *model.Movie {
	c := *m
	c.Writers = slices.Clone(m.Writers)
	c.Cast = slices.Clone(m.Cast)
	c.Genres = slices.Clone(m.Genres)
	c.Languages = slices.Clone(m.Languages)
	c.Countries = slices.Clone(m.Countries)
	c.ProductionCompanies = slices.Clone(m.ProductionCompanies)
	c.Distributors = slices.Clone(m.Distributors)
	c.SoundMix = slices.Clone(m.SoundMix)
	for _, kind := range model.VectorKinds {
		c.SetVector(kind, cloneVector(m.Vector(kind)))
	}
	return &c
}

func cloneVector(v *pgvector.Vector) *pgvector.Vector {
	if v == nil {
		return nil
	}
	cloned := pgvector.NewVector(slices.Clone(v.Slice()))
	return &cloned
}
