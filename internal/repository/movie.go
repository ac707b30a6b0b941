package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
)

// MovieStore 电影存储，Postgres 与内存实现共用
type MovieStore interface {
	// Transaction 在同一事务中执行 fn，fn 返回错误时整体回滚
	Transaction(ctx context.Context, fn func(tx MovieStore) error) error

	Create(ctx context.Context, movie *model.Movie) error
	// FindByID 不存在时返回 nil, nil
	FindByID(ctx context.Context, id uuid.UUID) (*model.Movie, error)
	// FindByIMDbID 不存在时返回 nil, nil
	FindByIMDbID(ctx context.Context, imdbID string) (*model.Movie, error)
	Save(ctx context.Context, movie *model.Movie) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter model.MovieFilter) ([]model.Movie, int64, error)
	SearchText(ctx context.Context, query string, skip, limit int) ([]model.Movie, int64, error)
	// NearestNeighbors 按余弦距离升序返回最多 limit 条带该类型向量的电影
	NearestNeighbors(ctx context.Context, vector []float32, kind model.VectorKind, limit int) ([]model.Neighbor, error)
}

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

var _ MovieStore = (*MovieRepository)(nil)

// Transaction 开启事务
func (r *MovieRepository) Transaction(ctx context.Context, fn func(tx MovieStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&MovieRepository{db: tx})
	})
}

// Create 新建电影
func (r *MovieRepository) Create(ctx context.Context, movie *model.Movie) error {
	if err := r.db.WithContext(ctx).Create(movie).Error; err != nil {
		return fmt.Errorf("create movie: %w", err)
	}
	return nil
}

// FindByID 根据 ID 查找电影
func (r *MovieRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find movie %s: %w", id, err)
	}
	return &movie, nil
}

// FindByIMDbID 根据 IMDb ID 查找电影
func (r *MovieRepository) FindByIMDbID(ctx context.Context, imdbID string) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).Where("imdb_id = ?", imdbID).First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find movie by imdb id %s: %w", imdbID, err)
	}
	return &movie, nil
}

// Save 保存全部字段，nil 向量写为 NULL
func (r *MovieRepository) Save(ctx context.Context, movie *model.Movie) error {
	if err := r.db.WithContext(ctx).Save(movie).Error; err != nil {
		return fmt.Errorf("save movie %s: %w", movie.ID, err)
	}
	return nil
}

// Delete 删除电影，向量随行一起删除
func (r *MovieRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Movie{})
	if res.Error != nil {
		return false, fmt.Errorf("delete movie %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// List 条件筛选并分页，total 为同条件下的总数
func (r *MovieRepository) List(ctx context.Context, filter model.MovieFilter) ([]model.Movie, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Genre != "" {
			db = db.Where("? = ANY(genres)", filter.Genre)
		}
		if filter.Year != nil {
			db = db.Where("EXTRACT(YEAR FROM release_date) = ?", *filter.Year)
		}
		if filter.Director != "" {
			db = db.Where("director ILIKE ?", "%"+escapeLike(filter.Director)+"%")
		}
		if filter.MinRating != nil {
			db = db.Where("imdb_rating >= ?", *filter.MinRating)
		}
		if filter.MaxRating != nil {
			db = db.Where("imdb_rating <= ?", *filter.MaxRating)
		}
		return db
	}

	return r.page(ctx, scope, filter.Skip, filter.Limit)
}

// SearchText 关键词搜索：任一关键词命中标题、简介、导演或搜索文本即返回
func (r *MovieRepository) SearchText(ctx context.Context, query string, skip, limit int) ([]model.Movie, int64, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return []model.Movie{}, 0, nil
	}

	clauses := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)*4)
	for _, term := range terms {
		pattern := "%" + escapeLike(term) + "%"
		clauses = append(clauses, "(title ILIKE ? OR synopsis ILIKE ? OR director ILIKE ? OR search_text ILIKE ?)")
		args = append(args, pattern, pattern, pattern, pattern)
	}
	where := strings.Join(clauses, " OR ")

	return r.page(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where(where, args...)
	}, skip, limit)
}

func (r *MovieRepository) page(ctx context.Context, scope func(*gorm.DB) *gorm.DB, skip, limit int) ([]model.Movie, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Movie{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count movies: %w", err)
	}

	movies := []model.Movie{}
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at, id").
		Offset(skip).
		Limit(limit).
		Find(&movies).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list movies: %w", err)
	}

	return movies, total, nil
}

// neighborRow 最近邻查询行
type neighborRow struct {
	model.Movie
	Distance float64
}

// NearestNeighbors 使用 pgvector 的 <=> 余弦距离查询最近邻
// 列名只来自 VectorKind 白名单，向量和 limit 作为绑定参数
func (r *MovieRepository) NearestNeighbors(ctx context.Context, vector []float32, kind model.VectorKind, limit int) ([]model.Neighbor, error) {
	col, ok := kind.Column()
	if !ok {
		return nil, fmt.Errorf("unknown vector type %q", kind)
	}

	var rows []neighborRow
	err := r.db.WithContext(ctx).
		Model(&model.Movie{}).
		Select("movies.*, ("+col+" <=> ?) AS distance", pgvector.NewVector(vector)).
		// 全零向量（降级结果）的余弦距离无定义，不参与排序
		// 维度不同的旧数据（EMBEDDING_DIMENSION 改过）会让 <=> 报错，同样排除
		Where(col+" IS NOT NULL AND vector_norm("+col+") > 0 AND vector_dims("+col+") = ?", len(vector)).
		Order("distance").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors by %s: %w", kind, err)
	}

	neighbors := make([]model.Neighbor, 0, len(rows))
	for _, row := range rows {
		neighbors = append(neighbors, model.Neighbor{Movie: row.Movie, Distance: row.Distance})
	}
	return neighbors, nil
}

// escapeLike 转义 LIKE 通配符
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
