package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Movie 电影模型
// 三个向量字段只存在于数据库中，不参与 JSON 序列化
type Movie struct {
	ID                  uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title               string         `json:"title" gorm:"size:255;not null;index"`
	OriginalTitle       string         `json:"original_title" gorm:"size:255"`
	ReleaseDate         *Date          `json:"release_date"`
	Runtime             *int           `json:"runtime"` // 分钟
	Synopsis            string         `json:"synopsis" gorm:"type:text"`
	Plot                string         `json:"plot" gorm:"type:text"`
	Tagline             string         `json:"tagline" gorm:"size:500"`
	IMDbRating          *float64       `json:"imdb_rating" gorm:"column:imdb_rating;index"`
	MetacriticScore     *int           `json:"metacritic_score"`
	RottenTomatoesScore *int           `json:"rotten_tomatoes_score"`
	Budget              *int64         `json:"budget"`     // 美元
	BoxOffice           *int64         `json:"box_office"` // 美元
	Director            string         `json:"director" gorm:"size:255"`
	Writers             pq.StringArray `json:"writers" gorm:"type:text[]"`
	Cast                []CastMember   `json:"cast" gorm:"type:jsonb;serializer:json"`
	Genres              pq.StringArray `json:"genres" gorm:"type:text[]"`
	Languages           pq.StringArray `json:"languages" gorm:"type:text[]"`
	Countries           pq.StringArray `json:"countries" gorm:"type:text[]"`
	ProductionCompanies pq.StringArray `json:"production_companies" gorm:"type:text[]"`
	Distributors        pq.StringArray `json:"distributors" gorm:"type:text[]"`
	AspectRatio         string         `json:"aspect_ratio" gorm:"size:50"`
	SoundMix            pq.StringArray `json:"sound_mix" gorm:"type:text[]"`
	Color               string         `json:"color" gorm:"size:50"`
	PosterURL           string         `json:"poster_url" gorm:"size:500"`
	BackdropURL         string         `json:"backdrop_url" gorm:"size:500"`
	TrailerURL          string         `json:"trailer_url" gorm:"size:500"`
	IMDbID              *string        `json:"imdb_id" gorm:"column:imdb_id;size:20;uniqueIndex"`
	TMDbID              *int           `json:"tmdb_id" gorm:"column:tmdb_id;uniqueIndex"`

	TitleVector    *pgvector.Vector `json:"-" gorm:"type:vector"`
	SynopsisVector *pgvector.Vector `json:"-" gorm:"type:vector"`
	CombinedVector *pgvector.Vector `json:"-" gorm:"type:vector"`

	// SearchText 关键词搜索使用的拼接文本
	SearchText string    `json:"search_text" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"index"`
}

// CastMember 演员
type CastMember struct {
	Name      string `json:"name" binding:"required"`
	Character string `json:"character" binding:"required"`
	Order     int    `json:"order"`
}

// Vector 返回指定类型的向量，未计算时为 nil
func (m *Movie) Vector(kind VectorKind) *pgvector.Vector {
	switch kind {
	case VectorTitle:
		return m.TitleVector
	case VectorSynopsis:
		return m.SynopsisVector
	case VectorCombined:
		return m.CombinedVector
	}
	return nil
}

// SetVector 设置指定类型的向量，传 nil 表示清空
func (m *Movie) SetVector(kind VectorKind, v *pgvector.Vector) {
	switch kind {
	case VectorTitle:
		m.TitleVector = v
	case VectorSynopsis:
		m.SynopsisVector = v
	case VectorCombined:
		m.CombinedVector = v
	}
}

// BuildSearchText 拼接标题、简介、导演、演员名和类型，供关键词搜索
func BuildSearchText(m *Movie) string {
	parts := make([]string, 0, 4+len(m.Cast)+len(m.Genres))
	for _, s := range []string{m.Title, m.Synopsis, m.Director} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	for _, member := range m.Cast {
		if name := strings.TrimSpace(member.Name); name != "" {
			parts = append(parts, name)
		}
	}
	for _, genre := range m.Genres {
		if genre = strings.TrimSpace(genre); genre != "" {
			parts = append(parts, genre)
		}
	}
	return strings.Join(parts, " ")
}

// EmbeddingSources 返回三种向量各自的源文本，源缺失时为空串
func EmbeddingSources(m *Movie) map[VectorKind]string {
	title := strings.TrimSpace(m.Title)
	synopsis := strings.TrimSpace(m.Synopsis)

	combined := ""
	if title != "" && synopsis != "" {
		combined = title + " " + synopsis
	}

	return map[VectorKind]string{
		VectorTitle:    title,
		VectorSynopsis: synopsis,
		VectorCombined: combined,
	}
}

// Neighbor 最近邻查询结果
type Neighbor struct {
	Movie    Movie
	Distance float64
}

// SimilarMovie 相似电影
type SimilarMovie struct {
	Movie           Movie   `json:"movie"`
	SimilarityScore float64 `json:"similarity_score"`
}
