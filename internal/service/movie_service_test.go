package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moviecatalog/internal/embedding"
	"github.com/user/moviecatalog/internal/embedding/embeddingtest"
	"github.com/user/moviecatalog/internal/metrics"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
)

const dim = 256

type fixture struct {
	svc      *MovieService
	store    *repository.MemoryStore
	provider *embeddingtest.HashProvider
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	p := embeddingtest.NewHashProvider(dim)
	m := metrics.New(nil)
	gen := embedding.NewGenerator(p, dim, m)
	return &fixture{
		svc:      NewMovieService(store, gen, m),
		store:    store,
		provider: p,
		metrics:  m,
	}
}

func (f *fixture) create(t *testing.T, title, synopsis string) *model.Movie {
	t.Helper()
	movie, err := f.svc.Create(context.Background(), &model.MovieCreate{Title: title, Synopsis: synopsis})
	require.NoError(t, err)
	return movie
}

func strPtr(s string) *string { return &s }

func TestCreateAttachesVectors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	movie, err := f.svc.Create(ctx, &model.MovieCreate{
		Title:    "The Matrix",
		Synopsis: "A computer hacker learns about the true nature of reality.",
		Director: "Lana Wachowski",
		Cast:     []model.CastMember{{Name: "Keanu Reeves", Character: "Neo"}},
		Genres:   []string{"Action", "Sci-Fi"},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, movie.ID)

	stored, err := f.store.FindByID(ctx, movie.ID)
	require.NoError(t, err)
	for _, kind := range model.VectorKinds {
		v := stored.Vector(kind)
		require.NotNil(t, v, "%s vector", kind)
		assert.Len(t, v.Slice(), dim)
		assert.False(t, embedding.IsZero(v.Slice()))
	}
	assert.Equal(t,
		"The Matrix A computer hacker learns about the true nature of reality. Lana Wachowski Keanu Reeves Action Sci-Fi",
		stored.SearchText)

	// 三条源文本一次批量调用
	require.Equal(t, 1, f.provider.Calls())
	assert.Equal(t, []string{
		"The Matrix",
		"A computer hacker learns about the true nature of reality.",
		"The Matrix A computer hacker learns about the true nature of reality.",
	}, f.provider.Inputs()[0])
}

func TestCreateWithoutSynopsis(t *testing.T) {
	f := newFixture(t)
	movie := f.create(t, "Untitled Project", "  ")

	stored, err := f.store.FindByID(context.Background(), movie.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.TitleVector)
	assert.Nil(t, stored.SynopsisVector)
	assert.Nil(t, stored.CombinedVector)
}

func TestCreateProviderFailureStillStoresRecord(t *testing.T) {
	f := newFixture(t)
	f.provider.SetFail(true)

	movie := f.create(t, "Inception", "A thief who steals corporate secrets through dream-sharing technology.")

	stored, err := f.svc.Get(context.Background(), movie.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CombinedVector)
	assert.True(t, embedding.IsZero(stored.CombinedVector.Slice()))
	assert.Len(t, stored.CombinedVector.Slice(), dim)
	assert.Equal(t, 3.0, testutil.ToFloat64(
		f.metrics.EmbeddingFallbacks.WithLabelValues("hash", metrics.ReasonProviderError)))

	// 降级向量不参与相似查询
	similar, err := f.svc.FindSimilar(context.Background(), movie.ID, 10, model.VectorCombined)
	require.NoError(t, err)
	assert.Empty(t, similar)
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateNonTextFieldKeepsVectors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	movie := f.create(t, "The Matrix", "A computer hacker learns about the true nature of reality.")
	before, _ := f.store.FindByID(ctx, movie.ID)
	calls := f.provider.Calls()

	updated, err := f.svc.Update(ctx, movie.ID, &model.MovieUpdate{Director: strPtr("The Wachowskis")})
	require.NoError(t, err)
	assert.Equal(t, "The Wachowskis", updated.Director)

	after, _ := f.store.FindByID(ctx, movie.ID)
	for _, kind := range model.VectorKinds {
		assert.Equal(t, before.Vector(kind).Slice(), after.Vector(kind).Slice(), "%s vector", kind)
	}
	assert.Equal(t, calls, f.provider.Calls())
	assert.Contains(t, after.SearchText, "The Wachowskis")
}

func TestUpdateSameTitleDoesNotReembed(t *testing.T) {
	f := newFixture(t)
	movie := f.create(t, "Heat", "A group of professional bank robbers.")
	calls := f.provider.Calls()

	_, err := f.svc.Update(context.Background(), movie.ID, &model.MovieUpdate{Title: strPtr("Heat")})
	require.NoError(t, err)
	assert.Equal(t, calls, f.provider.Calls())
}

func TestUpdateSynopsisRecomputesVectors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	movie := f.create(t, "Heat", "A group of professional bank robbers.")
	before, _ := f.store.FindByID(ctx, movie.ID)

	_, err := f.svc.Update(ctx, movie.ID, &model.MovieUpdate{Synopsis: strPtr("A detective hunts a crew of thieves in Los Angeles.")})
	require.NoError(t, err)

	after, _ := f.store.FindByID(ctx, movie.ID)
	assert.Equal(t, before.TitleVector.Slice(), after.TitleVector.Slice())
	assert.NotEqual(t, before.SynopsisVector.Slice(), after.SynopsisVector.Slice())
	assert.NotEqual(t, before.CombinedVector.Slice(), after.CombinedVector.Slice())
	assert.Contains(t, after.SearchText, "detective")
}

func TestUpdateClearingSynopsisDropsVectors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	movie := f.create(t, "Heat", "A group of professional bank robbers.")

	_, err := f.svc.Update(ctx, movie.ID, &model.MovieUpdate{Synopsis: strPtr("")})
	require.NoError(t, err)

	after, _ := f.store.FindByID(ctx, movie.ID)
	assert.NotNil(t, after.TitleVector)
	assert.Nil(t, after.SynopsisVector)
	assert.Nil(t, after.CombinedVector)
}

func TestUpdateNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Update(context.Background(), uuid.New(), &model.MovieUpdate{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

// failingSave 在事务内保存时失败
type failingSave struct {
	repository.MovieStore
}

var errSave = errors.New("disk full")

func (s failingSave) Transaction(ctx context.Context, fn func(tx repository.MovieStore) error) error {
	return s.MovieStore.Transaction(ctx, func(tx repository.MovieStore) error {
		return fn(failingSave{tx})
	})
}

func (failingSave) Save(context.Context, *model.Movie) error {
	return errSave
}

func TestUpdateRollsBackOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	movie := f.create(t, "Heat", "A group of professional bank robbers.")
	before, _ := f.store.FindByID(ctx, movie.ID)

	svc := NewMovieService(failingSave{f.store}, embedding.NewGenerator(f.provider, dim, nil), f.metrics)
	_, err := svc.Update(ctx, movie.ID, &model.MovieUpdate{
		Title:    strPtr("Heat 2"),
		Synopsis: strPtr("Something else entirely."),
	})
	require.ErrorIs(t, err, errSave)

	after, _ := f.store.FindByID(ctx, movie.ID)
	assert.Equal(t, "Heat", after.Title)
	assert.Equal(t, before.SearchText, after.SearchText)
	assert.Equal(t, before.CombinedVector.Slice(), after.CombinedVector.Slice())
}

// gatedEmbedder 在 release 关闭前阻塞批量生成
type gatedEmbedder struct {
	Embedder
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedEmbedder(inner Embedder) *gatedEmbedder {
	return &gatedEmbedder{Embedder: inner, started: make(chan struct{}), release: make(chan struct{})}
}

func (e *gatedEmbedder) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	e.once.Do(func() { close(e.started) })
	<-e.release
	return e.Embedder.EmbedBatch(ctx, texts)
}

func hashVector(t *testing.T, text string) []float32 {
	t.Helper()
	v, err := embeddingtest.NewHashProvider(dim).Embed(context.Background(), []string{text})
	require.NoError(t, err)
	return v[0]
}

func TestUpdateEmbedsOutsideTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	movie := f.create(t, "Heat", "A group of professional bank robbers.")
	other := f.create(t, "Ronin", "Mercenaries hunt a mysterious briefcase.")

	gate := newGatedEmbedder(embedding.NewGenerator(f.provider, dim, nil))
	svc := NewMovieService(f.store, gate, f.metrics)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Update(ctx, movie.ID, &model.MovieUpdate{Title: strPtr("Heat 2")})
		done <- err
	}()
	<-gate.started

	// 生成向量期间读写都不被阻塞
	read := make(chan error, 1)
	go func() {
		_, err := f.svc.Get(ctx, other.ID)
		read <- err
	}()
	select {
	case err := <-read:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("read blocked while an update was embedding")
	}

	close(gate.release)
	require.NoError(t, <-done)

	got, err := f.svc.Get(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heat 2", got.Title)
	assert.Equal(t, hashVector(t, "Heat 2"), got.TitleVector.Slice())
	assert.Equal(t, hashVector(t, "Heat 2 A group of professional bank robbers."), got.CombinedVector.Slice())
}

func TestUpdateReembedsAfterConcurrentChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	movie := f.create(t, "Heat", "A group of professional bank robbers.")

	gate := newGatedEmbedder(embedding.NewGenerator(f.provider, dim, nil))
	svc := NewMovieService(f.store, gate, f.metrics)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Update(ctx, movie.ID, &model.MovieUpdate{Title: strPtr("Heat 2")})
		done <- err
	}()
	<-gate.started

	// 另一个写入在第一个更新生成向量时改了简介
	_, err := f.svc.Update(ctx, movie.ID, &model.MovieUpdate{Synopsis: strPtr("A detective chases a thief.")})
	require.NoError(t, err)

	close(gate.release)
	require.NoError(t, <-done)

	got, err := f.svc.Get(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heat 2", got.Title)
	assert.Equal(t, "A detective chases a thief.", got.Synopsis)
	assert.Equal(t, hashVector(t, "A detective chases a thief."), got.SynopsisVector.Slice())
	assert.Equal(t, hashVector(t, "Heat 2 A detective chases a thief."), got.CombinedVector.Slice())
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	movie := f.create(t, "Heat", "A group of professional bank robbers.")

	require.NoError(t, f.svc.Delete(ctx, movie.ID))
	_, err := f.svc.Get(ctx, movie.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, movie.ID), ErrNotFound)
}

func TestListAndSearchText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, title := range []string{"Alien", "Aliens", "Alien 3", "Heat", "Ronin"} {
		f.create(t, title, "")
	}

	page, err := f.svc.List(ctx, model.MovieFilter{Skip: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Size)
	assert.Equal(t, 3, page.TotalPages)

	page, err = f.svc.SearchText(ctx, model.TextSearchQuery{Q: "alien", Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Movies, 2)
	assert.Equal(t, 2, page.TotalPages)
}

func TestFindSimilarRanksNearDuplicateFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ref := f.create(t, "The Matrix", "A computer hacker discovers that reality is a simulation run by machines.")
	near := f.create(t, "The Matrix Reloaded", "A computer hacker learns that reality is a simulation controlled by machines.")
	f.create(t, "Notting Hill", "A bookshop owner in London falls for a famous actress.")
	f.create(t, "Finding Nemo", "A clownfish crosses the ocean to rescue his son.")

	for _, kind := range model.VectorKinds {
		similar, err := f.svc.FindSimilar(ctx, ref.ID, 10, kind)
		require.NoError(t, err, kind.String())
		require.Len(t, similar, 3, kind.String())
		assert.Equal(t, near.ID, similar[0].Movie.ID, kind.String())
		for i := 1; i < len(similar); i++ {
			assert.GreaterOrEqual(t, similar[i-1].SimilarityScore, similar[i].SimilarityScore)
		}
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SimilarityQueries.WithLabelValues("synopsis")))
}

func TestFindSimilarProperties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, s := range []struct{ title, synopsis string }{
		{"Alien", "The crew of a space freighter meets a deadly creature."},
		{"Aliens", "A marine unit returns to the planet where the creature was found."},
		{"Sunshine", "A space crew travels to reignite the dying sun."},
		{"Moon", "An astronaut alone on the moon base discovers a secret."},
		{"Gravity", "Two astronauts drift in space after debris destroys their shuttle."},
	} {
		ids = append(ids, f.create(t, s.title, s.synopsis).ID)
	}

	for _, id := range ids {
		for _, n := range []int{1, 2, 10} {
			similar, err := f.svc.FindSimilar(ctx, id, n, model.VectorCombined)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(similar), n)

			ref, _ := f.store.FindByID(ctx, id)
			for _, s := range similar {
				assert.NotEqual(t, id, s.Movie.ID)
				got, _ := f.store.FindByID(ctx, s.Movie.ID)
				want := embedding.CosineSimilarity(ref.CombinedVector.Slice(), got.CombinedVector.Slice())
				assert.InDelta(t, want, s.SimilarityScore, 1e-6)
			}
		}
	}
}

func TestFindSimilarEdgeCases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.FindSimilar(ctx, uuid.New(), 10, model.VectorCombined)
	assert.ErrorIs(t, err, ErrNotFound)

	noSynopsis := f.create(t, "Untitled", "")
	f.create(t, "Heat", "A group of professional bank robbers.")

	similar, err := f.svc.FindSimilar(ctx, noSynopsis.ID, 10, model.VectorSynopsis)
	require.NoError(t, err)
	assert.NotNil(t, similar)
	assert.Empty(t, similar)

	_, err = f.svc.FindSimilar(ctx, noSynopsis.ID, 10, model.VectorKind("plot"))
	assert.ErrorIs(t, err, ErrInvalidVectorType)

	f.create(t, "Solo", "Alone in the catalog.")
	similar, err = f.svc.FindSimilar(ctx, noSynopsis.ID, 10, model.VectorTitle)
	require.NoError(t, err)
	assert.Len(t, similar, 2)
}
