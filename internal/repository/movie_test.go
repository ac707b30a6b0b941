package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moviecatalog/internal/embedding"
	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
)

// 需要带 pgvector 扩展的 Postgres：TEST_DATABASE_URL=postgres://... go test ./...
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := InitDB(url)
	require.NoError(t, err)
	require.NoError(t, db.Exec("TRUNCATE movies").Error)
	t.Cleanup(func() {
		db.Exec("TRUNCATE movies")
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestMovieRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMovieRepository(openTestDB(t))
	d := model.NewDate(1999, 3, 31)

	m := &model.Movie{
		Title:       "The Matrix",
		ReleaseDate: &d,
		Genres:      []string{"Action", "Sci-Fi"},
		Cast:        []model.CastMember{{Name: "Keanu Reeves", Character: "Neo", Order: 1}},
		TitleVector: vec(1, 2, 3),
	}
	m.ID = uuid.New()
	require.NoError(t, repo.Create(ctx, m))

	got, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "The Matrix", got.Title)
	assert.Equal(t, "1999-03-31", got.ReleaseDate.String())
	assert.Equal(t, []string{"Action", "Sci-Fi"}, []string(got.Genres))
	assert.Equal(t, "Neo", got.Cast[0].Character)
	require.NotNil(t, got.TitleVector)
	assert.Equal(t, []float32{1, 2, 3}, got.TitleVector.Slice())
	assert.Nil(t, got.SynopsisVector)

	got.TitleVector = nil
	require.NoError(t, repo.Save(ctx, got))
	again, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, again.TitleVector)

	ok, err := repo.Delete(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	missing, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMovieRepositoryNearestNeighborsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMovieRepository(openTestDB(t))

	ref := []float32{0.2, 0.7, -0.1, 0.4}
	others := [][]float32{{0.25, 0.65, -0.05, 0.5}, {-0.6, 0.1, 0.9, 0}, {0.1, 0.1, 0.1, 0.1}}
	for i, v := range append([][]float32{ref}, others...) {
		m := &model.Movie{Title: string(rune('A' + i)), CombinedVector: vec(v...)}
		m.ID = uuid.New()
		require.NoError(t, repo.Create(ctx, m))
	}
	zero := &model.Movie{Title: "Z", CombinedVector: vec(0, 0, 0, 0)}
	zero.ID = uuid.New()
	require.NoError(t, repo.Create(ctx, zero))
	// 旧维度的数据不参与查询，也不能让 <=> 报错
	stale := &model.Movie{Title: "S", CombinedVector: vec(0.2, 0.7, -0.1)}
	stale.ID = uuid.New()
	require.NoError(t, repo.Create(ctx, stale))

	got, err := repo.NearestNeighbors(ctx, ref, model.VectorCombined, 10)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "A", got[0].Movie.Title)
	for i, n := range got {
		if i > 0 {
			assert.GreaterOrEqual(t, n.Distance, got[i-1].Distance)
		}
		sim := embedding.CosineSimilarity(ref, n.Movie.CombinedVector.Slice())
		assert.InDelta(t, sim, 1-n.Distance, 1e-6)
	}
}

func TestMovieRepositoryListAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewMovieRepository(openTestDB(t))

	for _, m := range []*model.Movie{
		{Title: "The Matrix", Director: "Lana Wachowski", Genres: []string{"Sci-Fi"}, SearchText: "The Matrix Lana Wachowski Sci-Fi"},
		{Title: "Inception", Director: "Christopher Nolan", Genres: []string{"Sci-Fi", "Thriller"}, SearchText: "Inception Christopher Nolan"},
		{Title: "100% Wolf", Genres: []string{"Animation"}},
	} {
		m.ID = uuid.New()
		require.NoError(t, repo.Create(ctx, m))
	}

	movies, total, err := repo.List(ctx, model.MovieFilter{Limit: 10, Genre: "Sci-Fi"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, movies, 2)

	movies, total, err = repo.SearchText(ctx, "nolan", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Inception", movies[0].Title)

	// % 按字面匹配
	movies, _, err = repo.SearchText(ctx, "100%", 0, 10)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "100% Wolf", movies[0].Title)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\d`, escapeLike(`c:\d`))
}
