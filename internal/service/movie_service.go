package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"math"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/user/moviecatalog/internal/embedding"
	"github.com/user/moviecatalog/internal/metrics"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
)

var (
	// ErrNotFound 电影不存在
	ErrNotFound = errors.New("movie not found")
	// ErrInvalidVectorType 向量类型不在 title/synopsis/combined 之内
	ErrInvalidVectorType = errors.New("invalid vector type")
)

// Embedder 批量生成向量，失败时返回全零向量而不是错误
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) [][]float32
}

var _ Embedder = (*embedding.Generator)(nil)

// MovieService 电影服务：写入时派生搜索文本和向量，读取时做相似查询
type MovieService struct {
	store    repository.MovieStore
	embedder Embedder
	metrics  *metrics.Metrics
}

// NewMovieService 创建电影服务
func NewMovieService(store repository.MovieStore, embedder Embedder, m *metrics.Metrics) *MovieService {
	return &MovieService{
		store:    store,
		embedder: embedder,
		metrics:  m,
	}
}

// Create 创建电影
// 先在事务外生成向量，再在一个事务里写入
func (s *MovieService) Create(ctx context.Context, req *model.MovieCreate) (*model.Movie, error) {
	movie := req.ToMovie()
	movie.ID = uuid.New()
	movie.SearchText = model.BuildSearchText(movie)
	s.attachVectors(ctx, movie)

	err := s.store.Transaction(ctx, func(tx repository.MovieStore) error {
		return tx.Create(ctx, movie)
	})
	if err != nil {
		log.Printf("[MovieService] 创建电影失败: %v", err)
		return nil, err
	}

	log.Printf("[MovieService] 创建电影: %s (%s)", movie.Title, movie.ID)
	return movie, nil
}

// Get 获取电影
func (s *MovieService) Get(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	movie, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, ErrNotFound
	}
	return movie, nil
}

// GetByIMDbID 按 IMDb ID 获取电影
func (s *MovieService) GetByIMDbID(ctx context.Context, imdbID string) (*model.Movie, error) {
	movie, err := s.store.FindByIMDbID(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, ErrNotFound
	}
	return movie, nil
}

// List 按条件分页列出电影
func (s *MovieService) List(ctx context.Context, filter model.MovieFilter) (*model.MoviePage, error) {
	movies, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return model.NewMoviePage(movies, total, filter.Skip, filter.Limit), nil
}

// SearchText 关键词搜索
func (s *MovieService) SearchText(ctx context.Context, query model.TextSearchQuery) (*model.MoviePage, error) {
	movies, total, err := s.store.SearchText(ctx, query.Q, query.Skip, query.Limit)
	if err != nil {
		return nil, err
	}
	return model.NewMoviePage(movies, total, query.Skip, query.Limit), nil
}

// Update 部分更新
// 向量先在事务外按合并后的记录生成，事务内只做读取、合并、派生和保存
func (s *MovieService) Update(ctx context.Context, id uuid.UUID, req *model.MovieUpdate) (*model.Movie, error) {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}

	draft := *current
	req.ApplyTo(&draft)
	var prepared *vectorSet
	if sourcesChanged(current, &draft) {
		prepared = s.embedVectors(ctx, &draft)
	}

	var updated *model.Movie
	err = s.store.Transaction(ctx, func(tx repository.MovieStore) error {
		movie, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if movie == nil {
			return ErrNotFound
		}

		before := *movie
		req.ApplyTo(movie)

		if req.TouchesSearchText() {
			movie.SearchText = model.BuildSearchText(movie)
		}
		// 只有标题或简介的值真正变化时才重新生成向量
		if sourcesChanged(&before, movie) {
			if prepared != nil && prepared.matches(movie) {
				prepared.apply(movie)
			} else {
				// 事务外读取之后记录被并发修改过
				s.attachVectors(ctx, movie)
			}
		}

		if err := tx.Save(ctx, movie); err != nil {
			return err
		}
		updated = movie
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[MovieService] 更新电影 %s 失败: %v", id, err)
		}
		return nil, err
	}

	return updated, nil
}

// Delete 删除电影
func (s *MovieService) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		log.Printf("[MovieService] 删除电影 %s 失败: %v", id, err)
		return err
	}
	if !ok {
		return ErrNotFound
	}
	log.Printf("[MovieService] 删除电影: %s", id)
	return nil
}

// FindSimilar 按指定向量类型查找相似电影，结果按相似度降序，不含自身
// 参考电影没有该类型向量（或向量是降级的全零向量）时返回空列表
func (s *MovieService) FindSimilar(ctx context.Context, id uuid.UUID, limit int, kind model.VectorKind) ([]model.SimilarMovie, error) {
	if _, ok := kind.Column(); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVectorType, kind)
	}

	ref, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, ErrNotFound
	}

	if s.metrics != nil {
		s.metrics.SimilarityQueries.WithLabelValues(kind.String()).Inc()
	}

	results := []model.SimilarMovie{}
	vector := ref.Vector(kind)
	if vector == nil || embedding.IsZero(vector.Slice()) || limit <= 0 {
		return results, nil
	}

	// 多取一条，参考电影自身通常排在第一位
	neighbors, err := s.store.NearestNeighbors(ctx, vector.Slice(), kind, limit+1)
	if err != nil {
		log.Printf("[MovieService] 相似查询失败 (%s, %s): %v", id, kind, err)
		return nil, err
	}

	for _, n := range neighbors {
		if n.Movie.ID == id || math.IsNaN(n.Distance) {
			continue
		}
		results = append(results, model.SimilarMovie{
			Movie:           n.Movie,
			SimilarityScore: 1 - n.Distance,
		})
		if len(results) == limit {
			break
		}
	}

	return results, nil
}

// vectorSet 按一组源文本生成的三种向量
type vectorSet struct {
	sources map[model.VectorKind]string
	vectors map[model.VectorKind]*pgvector.Vector
}

func (vs *vectorSet) matches(movie *model.Movie) bool {
	return maps.Equal(vs.sources, model.EmbeddingSources(movie))
}

// apply 替换三种向量，源文本为空的类型清空
func (vs *vectorSet) apply(movie *model.Movie) {
	for _, kind := range model.VectorKinds {
		movie.SetVector(kind, vs.vectors[kind])
	}
}

func sourcesChanged(before, after *model.Movie) bool {
	a, b := model.EmbeddingSources(before), model.EmbeddingSources(after)
	return a[model.VectorTitle] != b[model.VectorTitle] ||
		a[model.VectorSynopsis] != b[model.VectorSynopsis]
}

// embedVectors 按当前标题和简介在一次批量调用中生成向量
func (s *MovieService) embedVectors(ctx context.Context, movie *model.Movie) *vectorSet {
	vs := &vectorSet{
		sources: model.EmbeddingSources(movie),
		vectors: make(map[model.VectorKind]*pgvector.Vector, len(model.VectorKinds)),
	}

	kinds := make([]model.VectorKind, 0, len(model.VectorKinds))
	texts := make([]string, 0, len(model.VectorKinds))
	for _, kind := range model.VectorKinds {
		if text := vs.sources[kind]; text != "" {
			kinds = append(kinds, kind)
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return vs
	}

	vectors := s.embedder.EmbedBatch(ctx, texts)
	for i, kind := range kinds {
		v := pgvector.NewVector(vectors[i])
		vs.vectors[kind] = &v
	}
	return vs
}

func (s *MovieService) attachVectors(ctx context.Context, movie *model.Movie) {
	s.embedVectors(ctx, movie).apply(movie)
}
