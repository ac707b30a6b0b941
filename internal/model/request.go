package model

import (
	"github.com/lib/pq"
)

// MovieCreate 创建电影请求
type MovieCreate struct {
	Title               string       `json:"title" binding:"required,min=1,max=255"`
	OriginalTitle       string       `json:"original_title" binding:"max=255"`
	ReleaseDate         *Date        `json:"release_date"`
	Runtime             *int         `json:"runtime" binding:"omitempty,gt=0"`
	Synopsis            string       `json:"synopsis"`
	Plot                string       `json:"plot"`
	Tagline             string       `json:"tagline" binding:"max=500"`
	IMDbRating          *float64     `json:"imdb_rating" binding:"omitempty,min=0,max=10"`
	MetacriticScore     *int         `json:"metacritic_score" binding:"omitempty,min=0,max=100"`
	RottenTomatoesScore *int         `json:"rotten_tomatoes_score" binding:"omitempty,min=0,max=100"`
	Budget              *int64       `json:"budget" binding:"omitempty,min=0"`
	BoxOffice           *int64       `json:"box_office" binding:"omitempty,min=0"`
	Director            string       `json:"director" binding:"max=255"`
	Writers             []string     `json:"writers"`
	Cast                []CastMember `json:"cast" binding:"omitempty,dive"`
	Genres              []string     `json:"genres"`
	Languages           []string     `json:"languages"`
	Countries           []string     `json:"countries"`
	ProductionCompanies []string     `json:"production_companies"`
	Distributors        []string     `json:"distributors"`
	AspectRatio         string       `json:"aspect_ratio" binding:"max=50"`
	SoundMix            []string     `json:"sound_mix"`
	Color               string       `json:"color" binding:"max=50"`
	PosterURL           string       `json:"poster_url" binding:"max=500"`
	BackdropURL         string       `json:"backdrop_url" binding:"max=500"`
	TrailerURL          string       `json:"trailer_url" binding:"max=500"`
	IMDbID              *string      `json:"imdb_id" binding:"omitempty,max=20"`
	TMDbID              *int         `json:"tmdb_id"`
}

// ToMovie 转换为电影模型，不含 ID、派生字段和向量
func (r *MovieCreate) ToMovie() *Movie {
	return &Movie{
		Title:               r.Title,
		OriginalTitle:       r.OriginalTitle,
		ReleaseDate:         r.ReleaseDate,
		Runtime:             r.Runtime,
		Synopsis:            r.Synopsis,
		Plot:                r.Plot,
		Tagline:             r.Tagline,
		IMDbRating:          r.IMDbRating,
		MetacriticScore:     r.MetacriticScore,
		RottenTomatoesScore: r.RottenTomatoesScore,
		Budget:              r.Budget,
		BoxOffice:           r.BoxOffice,
		Director:            r.Director,
		Writers:             stringArray(r.Writers),
		Cast:                castList(r.Cast),
		Genres:              stringArray(r.Genres),
		Languages:           stringArray(r.Languages),
		Countries:           stringArray(r.Countries),
		ProductionCompanies: stringArray(r.ProductionCompanies),
		Distributors:        stringArray(r.Distributors),
		AspectRatio:         r.AspectRatio,
		SoundMix:            stringArray(r.SoundMix),
		Color:               r.Color,
		PosterURL:           r.PosterURL,
		BackdropURL:         r.BackdropURL,
		TrailerURL:          r.TrailerURL,
		IMDbID:              r.IMDbID,
		TMDbID:              r.TMDbID,
	}
}

// MovieUpdate 部分更新请求，nil 字段表示未提交
type MovieUpdate struct {
	Title               *string       `json:"title" binding:"omitempty,min=1,max=255"`
	OriginalTitle       *string       `json:"original_title" binding:"omitempty,max=255"`
	ReleaseDate         *Date         `json:"release_date"`
	Runtime             *int          `json:"runtime" binding:"omitempty,gt=0"`
	Synopsis            *string       `json:"synopsis"`
	Plot                *string       `json:"plot"`
	Tagline             *string       `json:"tagline" binding:"omitempty,max=500"`
	IMDbRating          *float64      `json:"imdb_rating" binding:"omitempty,min=0,max=10"`
	MetacriticScore     *int          `json:"metacritic_score" binding:"omitempty,min=0,max=100"`
	RottenTomatoesScore *int          `json:"rotten_tomatoes_score" binding:"omitempty,min=0,max=100"`
	Budget              *int64        `json:"budget" binding:"omitempty,min=0"`
	BoxOffice           *int64        `json:"box_office" binding:"omitempty,min=0"`
	Director            *string       `json:"director" binding:"omitempty,max=255"`
	Writers             *[]string     `json:"writers"`
	Cast                *[]CastMember `json:"cast" binding:"omitempty,dive"`
	Genres              *[]string     `json:"genres"`
	Languages           *[]string     `json:"languages"`
	Countries           *[]string     `json:"countries"`
	ProductionCompanies *[]string     `json:"production_companies"`
	Distributors        *[]string     `json:"distributors"`
	AspectRatio         *string       `json:"aspect_ratio" binding:"omitempty,max=50"`
	SoundMix            *[]string     `json:"sound_mix"`
	Color               *string       `json:"color" binding:"omitempty,max=50"`
	PosterURL           *string       `json:"poster_url" binding:"omitempty,max=500"`
	BackdropURL         *string       `json:"backdrop_url" binding:"omitempty,max=500"`
	TrailerURL          *string       `json:"trailer_url" binding:"omitempty,max=500"`
	IMDbID              *string       `json:"imdb_id" binding:"omitempty,max=20"`
	TMDbID              *int          `json:"tmdb_id"`
}

// TouchesSearchText 是否提交了参与搜索文本拼接的字段
func (r *MovieUpdate) TouchesSearchText() bool {
	return r.Title != nil || r.Synopsis != nil || r.Director != nil || r.Cast != nil || r.Genres != nil
}

// ApplyTo 把已提交的字段写入 m
func (r *MovieUpdate) ApplyTo(m *Movie) {
	setString(&m.Title, r.Title)
	setString(&m.OriginalTitle, r.OriginalTitle)
	setString(&m.Synopsis, r.Synopsis)
	setString(&m.Plot, r.Plot)
	setString(&m.Tagline, r.Tagline)
	setString(&m.Director, r.Director)
	setString(&m.AspectRatio, r.AspectRatio)
	setString(&m.Color, r.Color)
	setString(&m.PosterURL, r.PosterURL)
	setString(&m.BackdropURL, r.BackdropURL)
	setString(&m.TrailerURL, r.TrailerURL)

	if r.ReleaseDate != nil {
		m.ReleaseDate = r.ReleaseDate
	}
	if r.Runtime != nil {
		m.Runtime = r.Runtime
	}
	if r.IMDbRating != nil {
		m.IMDbRating = r.IMDbRating
	}
	if r.MetacriticScore != nil {
		m.MetacriticScore = r.MetacriticScore
	}
	if r.RottenTomatoesScore != nil {
		m.RottenTomatoesScore = r.RottenTomatoesScore
	}
	if r.Budget != nil {
		m.Budget = r.Budget
	}
	if r.BoxOffice != nil {
		m.BoxOffice = r.BoxOffice
	}
	if r.IMDbID != nil {
		m.IMDbID = r.IMDbID
	}
	if r.TMDbID != nil {
		m.TMDbID = r.TMDbID
	}
	if r.Cast != nil {
		m.Cast = castList(*r.Cast)
	}

	setArray(&m.Writers, r.Writers)
	setArray(&m.Genres, r.Genres)
	setArray(&m.Languages, r.Languages)
	setArray(&m.Countries, r.Countries)
	setArray(&m.ProductionCompanies, r.ProductionCompanies)
	setArray(&m.Distributors, r.Distributors)
	setArray(&m.SoundMix, r.SoundMix)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setArray(dst *pq.StringArray, src *[]string) {
	if src != nil {
		*dst = stringArray(*src)
	}
}

// 列表字段统一存空数组而不是 NULL
func stringArray(s []string) pq.StringArray {
	if s == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(s)
}

func castList(c []CastMember) []CastMember {
	if c == nil {
		return []CastMember{}
	}
	return c
}

// MovieFilter 列表筛选参数
type MovieFilter struct {
	Skip      int      `form:"skip" binding:"min=0"`
	Limit     int      `form:"limit,default=100" binding:"min=1,max=1000"`
	Genre     string   `form:"genre"`
	Year      *int     `form:"year"`
	Director  string   `form:"director"`
	MinRating *float64 `form:"min_rating" binding:"omitempty,min=0,max=10"`
	MaxRating *float64 `form:"max_rating" binding:"omitempty,min=0,max=10"`
}

// TextSearchQuery 关键词搜索参数
type TextSearchQuery struct {
	Q     string `form:"q" binding:"required,min=1"`
	Skip  int    `form:"skip" binding:"min=0"`
	Limit int    `form:"limit,default=100" binding:"min=1,max=1000"`
}

// SimilarQuery 相似电影查询参数
type SimilarQuery struct {
	MovieID    string `form:"movie_id" binding:"required,uuid"`
	Limit      int    `form:"limit,default=10" binding:"min=1,max=50"`
	VectorType string `form:"vector_type,default=combined" binding:"oneof=title synopsis combined"`
}

// MoviePage 分页结果
type MoviePage struct {
	Movies     []Movie `json:"movies"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	Size       int     `json:"size"`
	TotalPages int     `json:"total_pages"`
}

// NewMoviePage 根据 skip/limit 计算页码
func NewMoviePage(movies []Movie, total int64, skip, limit int) *MoviePage {
	if movies == nil {
		movies = []Movie{}
	}
	if limit < 1 {
		limit = 1
	}
	return &MoviePage{
		Movies:     movies,
		Total:      total,
		Page:       skip/limit + 1,
		Size:       len(movies),
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}
}
