package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhy3800/MovieWebsite/internal/domain"
	"github.com/zhy3800/MovieWebsite/internal/events"
	"github.com/zhy3800/MovieWebsite/internal/repository"
	"github.com/zhy3800/MovieWebsite/pkg/crypto"
	"github.com/zhy3800/MovieWebsite/pkg/jwt"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*events.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *events.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) types() []events.MessageType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.MessageType, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Type)
	}
	return out
}

type fixture struct {
	store      *repository.MemoryStore
	pub        *recordingPublisher
	aggregates *AggregateService
	ratings    *RatingService
	favorites  *FavoriteService
	comments   *CommentService
	movies     *MovieService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	log := logger.Nop()
	agg := NewAggregateService(store, domain.DefaultPopularityWeights(), log)
	return &fixture{
		store:      store,
		pub:        pub,
		aggregates: agg,
		ratings:    NewRatingService(store, agg, pub, log),
		favorites:  NewFavoriteService(store, agg, pub, log),
		comments:   NewCommentService(store, agg, pub, log),
		movies:     NewMovieService(store),
	}
}

func (f *fixture) user(t *testing.T, name string) int64 {
	t.Helper()
	u := &domain.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, f.store.Repos().Users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) movie(t *testing.T, title string) int64 {
	t.Helper()
	m := &domain.Movie{ZhyTitle: title, EngTitle: title}
	require.NoError(t, f.store.Repos().Movies.Create(context.Background(), m))
	return m.ID
}

func (f *fixture) get(t *testing.T, id int64) *domain.Movie {
	t.Helper()
	m, err := f.store.Repos().Movies.GetByID(context.Background(), id)
	require.NoError(t, err)
	return m
}

func TestRatingService_CreateThenUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	m := f.movie(t, "Heat")

	res, err := f.ratings.Rate(ctx, a, m, a, 4)
	require.NoError(t, err)
	assert.True(t, res.Created)
	require.NotNil(t, res.Aggregate.Rating)
	assert.Equal(t, 4.0, *res.Aggregate.Rating)

	_, err = f.ratings.Rate(ctx, b, m, b, 5)
	require.NoError(t, err)

	res, err = f.ratings.Rate(ctx, a, m, a, 2)
	require.NoError(t, err)
	assert.False(t, res.Created)

	movie := f.get(t, m)
	require.NotNil(t, movie.Rating)
	assert.Equal(t, 3.5, *movie.Rating)
	// 2 条评分 * 0.3
	assert.Equal(t, 0.6, movie.Popularity)

	ur, err := f.ratings.GetUserRating(ctx, m, a)
	require.NoError(t, err)
	assert.Equal(t, &domain.UserRating{Rated: true, Rating: 2}, ur)

	ur, err = f.ratings.GetUserRating(ctx, m, 99)
	require.NoError(t, err)
	assert.False(t, ur.Rated)
	assert.Zero(t, ur.Rating)
}

func TestRatingService_Clamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	m := f.movie(t, "Heat")

	res, err := f.ratings.Rate(ctx, a, m, a, 9)
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Rating.Value)

	res, err = f.ratings.Rate(ctx, a, m, a, -3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Rating.Value)

	res, err = f.ratings.Rate(ctx, a, m, a, 3.46)
	require.NoError(t, err)
	assert.Equal(t, 3.5, res.Rating.Value)
}

func TestRatingService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	m := f.movie(t, "Heat")

	_, err := f.ratings.Rate(ctx, a, 0, a, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidMovieID)
	_, err = f.ratings.Rate(ctx, a, m, -1, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)
	_, err = f.ratings.Rate(ctx, a+1, m, a, 3)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
	_, err = f.ratings.Rate(ctx, a, 404, a, 3)
	assert.ErrorIs(t, err, domain.ErrMovieNotFound)

	assert.Empty(t, f.pub.types())
}

func TestRatingService_RollbackOnRecomputeFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	m := f.movie(t, "Heat")

	f.store.FailOn("movies.update_aggregate", errors.New("db down"))
	_, err := f.ratings.Rate(ctx, a, m, a, 4)
	require.Error(t, err)

	n, mean, err := f.store.Repos().Ratings.Stats(ctx, m)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, mean)
	assert.Nil(t, f.get(t, m).Rating)
	assert.Empty(t, f.pub.types())
}

func TestFavoriteService_AddRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	m := f.movie(t, "Heat")

	agg, err := f.favorites.Add(ctx, a, a, m)
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.FavoritesCount)
	assert.Equal(t, 0.4, f.get(t, m).Popularity)

	_, err = f.favorites.Add(ctx, a, a, m)
	assert.ErrorIs(t, err, domain.ErrAlreadyFavorited)

	ok, err := f.favorites.IsFavorited(ctx, a, m)
	require.NoError(t, err)
	assert.True(t, ok)

	agg, err = f.favorites.Remove(ctx, a, a, m)
	require.NoError(t, err)
	assert.Zero(t, agg.FavoritesCount)
	assert.Zero(t, f.get(t, m).Popularity)

	_, err = f.favorites.Remove(ctx, a, a, m)
	assert.ErrorIs(t, err, domain.ErrFavoriteNotFound)

	history, err := f.favorites.History(ctx, a)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.FavoriteActionRemove, history[0].Action)
	assert.Equal(t, domain.FavoriteActionAdd, history[1].Action)

	assert.Equal(t, []events.MessageType{
		events.MessageTypeFavoriteAdded, events.MessageTypeAggregateUpdated,
		events.MessageTypeFavoriteRemoved, events.MessageTypeAggregateUpdated,
	}, f.pub.types())
}

func TestFavoriteService_RollbackOnHistoryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	m := f.movie(t, "Heat")

	f.store.FailOn("history.append", errors.New("disk full"))
	_, err := f.favorites.Add(ctx, a, a, m)
	require.Error(t, err)

	ok, err := f.favorites.IsFavorited(ctx, a, m)
	require.NoError(t, err)
	assert.False(t, ok)
	count, err := f.favorites.CountByMovie(ctx, m)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFavoriteService_NotOwner(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, "alice"), f.user(t, "bob")
	m := f.movie(t, "Heat")

	_, err := f.favorites.Add(context.Background(), b, a, m)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}

func TestFavoriteService_ConcurrentToggles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.movie(t, "Heat")

	const n = 20
	users := make([]int64, n)
	for i := range users {
		users[i] = f.user(t, fmt.Sprintf("user%d", i))
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			_, err := f.favorites.Add(ctx, u, u, m)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	// 前一半再取消
	for _, u := range users[:n/2] {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			_, err := f.favorites.Remove(ctx, u, u, m)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	count, err := f.favorites.CountByMovie(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, int64(n/2), count)
	assert.Equal(t, 4.0, f.get(t, m).Popularity)
}

func TestCommentService_Post(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	m := f.movie(t, "Heat")

	c, err := f.comments.Post(ctx, a, a, m, "great")
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	_, err = f.comments.Post(ctx, a, a, m, "again")
	require.NoError(t, err)

	_, err = f.comments.Post(ctx, a, a, m, "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyComment)

	list, err := f.comments.List(ctx, m)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "again", list[0].Text)
	assert.Equal(t, "alice", list[0].Username)

	count, err := f.comments.Count(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 0.6, f.get(t, m).Popularity)
}

func TestCommentService_RollbackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	m := f.movie(t, "Heat")

	f.store.FailOn("tx.commit", errors.New("connection reset"))
	_, err := f.comments.Post(ctx, a, a, m, "lost")
	require.Error(t, err)

	count, err := f.comments.Count(ctx, m)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAggregateService_RecomputeAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	m1, m2 := f.movie(t, "Heat"), f.movie(t, "Ran")

	_, err := f.favorites.Add(ctx, a, a, m1)
	require.NoError(t, err)
	_, err = f.ratings.Rate(ctx, a, m2, a, 5)
	require.NoError(t, err)

	// 人为破坏派生值
	require.NoError(t, f.store.Repos().Movies.UpdateAggregate(ctx, &domain.Aggregate{MovieID: m1, Popularity: 99}))

	done, err := f.aggregates.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, done)
	assert.Equal(t, 0.4, f.get(t, m1).Popularity)
	assert.Equal(t, 0.3, f.get(t, m2).Popularity)

	agg, err := f.aggregates.RecomputeMovie(ctx, m2)
	require.NoError(t, err)
	require.NotNil(t, agg.Rating)
	assert.Equal(t, 5.0, *agg.Rating)

	_, err = f.aggregates.RecomputeMovie(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrMovieNotFound)
}

func TestAggregateService_ScoreTerm(t *testing.T) {
	store := repository.NewMemoryStore()
	w := domain.DefaultPopularityWeights()
	w.RatingTerm = domain.RatingTermScore
	agg := NewAggregateService(store, w, logger.Nop())
	ratings := NewRatingService(store, agg, events.NopPublisher{}, logger.Nop())
	ctx := context.Background()

	u := &domain.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, store.Repos().Users.Create(ctx, u))
	m := &domain.Movie{ZhyTitle: "Heat"}
	require.NoError(t, store.Repos().Movies.Create(ctx, m))

	res, err := ratings.Rate(ctx, u.ID, m.ID, u.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 1.2, res.Aggregate.Popularity)
}

func TestMovieService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, title := range []string{"Titanic", "Titan A.E.", "Up"} {
		f.movie(t, title)
	}

	movies, total, err := f.movies.List(ctx, domain.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, movies, 2)
	assert.Equal(t, int64(3), total)

	_, err = f.movies.Search(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidSearchQuery)

	found, err := f.movies.Search(ctx, "titan")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	res, err := f.movies.PagedSearch(ctx, "titan", domain.Page{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	assert.Equal(t, 2, res.TotalPages)
	assert.Len(t, res.Movies, 1)

	res, err = f.movies.PagedSearch(ctx, "titan", domain.Page{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchLimit, res.Limit)
	assert.Equal(t, 1, res.Page)

	_, err = f.movies.Get(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidMovieID)

	hot, err := f.movies.Hot(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, hot, 3)
}

func newCredentialService(t *testing.T) (*CredentialService, *jwt.Manager) {
	t.Helper()
	tokens := jwt.NewManager(&jwt.Config{Secret: "test-secret-that-is-long-enough-32b", Issuer: "movie-svc"})
	hasher := crypto.NewPasswordHasherWithParams(crypto.FastArgon2Params())
	return NewCredentialService(repository.NewMemoryStore(), hasher, tokens, logger.Nop()), tokens
}

func TestCredentialService_RegisterLogin(t *testing.T) {
	svc, _ := newCredentialService(t)
	ctx := context.Background()

	id, err := svc.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = svc.Register(ctx, "alice2", "ALICE@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	_, err = svc.Register(ctx, "alice", "other@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)
	_, err = svc.Register(ctx, "bob", "not-an-email", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	_, err = svc.Register(ctx, "bob", "bob@example.com", "123")
	assert.ErrorIs(t, err, domain.ErrPasswordTooShort)

	res, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, id, res.User.ID)
	assert.NotEmpty(t, res.Token)

	claims, err := svc.Authenticate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestCredentialService_InvalidCredentials(t *testing.T) {
	svc, _ := newCredentialService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Authenticate("garbage")
	assert.Error(t, err)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("redis down")
	a := f.user(t, "alice")
	m := f.movie(t, "Heat")

	_, err := f.favorites.Add(context.Background(), a, a, m)
	require.NoError(t, err)
	assert.Len(t, f.pub.types(), 2)
}

func TestFavoriteService_HistoryReAdd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	m := f.movie(t, "Heat")

	_, err := f.favorites.Add(ctx, a, a, m)
	require.NoError(t, err)
	_, err = f.favorites.Remove(ctx, a, a, m)
	require.NoError(t, err)
	agg, err := f.favorites.Add(ctx, a, a, m)
	require.NoError(t, err)

	// 重新收藏不重复计数
	assert.Equal(t, int64(1), agg.FavoritesCount)
	assert.Equal(t, 0.4, f.get(t, m).Popularity)

	history, err := f.favorites.History(ctx, a)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.FavoriteActionAdd, history[0].Action)
	assert.Equal(t, domain.FavoriteActionRemove, history[1].Action)
	assert.Equal(t, domain.FavoriteActionAdd, history[2].Action)

	ok, err := f.favorites.IsFavorited(ctx, a, m)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFavoriteService_RemoveUnknownLeavesAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	m := f.movie(t, "Heat")

	_, err := f.favorites.Add(ctx, b, b, m)
	require.NoError(t, err)
	_, err = f.comments.Post(ctx, b, b, m, "nice")
	require.NoError(t, err)
	before := f.get(t, m)

	_, err = f.favorites.Remove(ctx, a, a, m)
	assert.ErrorIs(t, err, domain.ErrFavoriteNotFound)

	after := f.get(t, m)
	assert.Equal(t, before.Popularity, after.Popularity)
	assert.Equal(t, before.Rating, after.Rating)

	history, err := f.favorites.History(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAggregateService_ConcurrentMixedMatchesRecompute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.movie(t, "Heat")

	const n = 12
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		u := f.user(t, fmt.Sprintf("user%d", i))
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := f.favorites.Add(ctx, u, u, m)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.ratings.Rate(ctx, u, m, u, float64(i%5)+1)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.comments.Post(ctx, u, u, m, "comment")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	live := f.get(t, m)
	fresh, err := f.aggregates.RecomputeMovie(ctx, m)
	require.NoError(t, err)

	assert.Equal(t, int64(n), fresh.FavoritesCount)
	assert.Equal(t, int64(n), fresh.CommentsCount)
	assert.Equal(t, fresh.Popularity, live.Popularity)
	require.NotNil(t, live.Rating)
	assert.Equal(t, *fresh.Rating, *live.Rating)
}

func TestAggregateService_RecomputeIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	m := f.movie(t, "Heat")

	_, err := f.ratings.Rate(ctx, a, m, a, 3.5)
	require.NoError(t, err)
	_, err = f.favorites.Add(ctx, a, a, m)
	require.NoError(t, err)

	first, err := f.aggregates.RecomputeMovie(ctx, m)
	require.NoError(t, err)
	second, err := f.aggregates.RecomputeMovie(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, first.Popularity, second.Popularity)
	assert.Equal(t, *first.Rating, *second.Rating)
	assert.Equal(t, first.FavoritesCount, second.FavoritesCount)
}

func TestRecomputeIsTraced(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	m := f.movie(t, "Heat")

	_, err := f.favorites.Add(ctx, a, a, m)
	require.NoError(t, err)

	f.store.FailOn("movies.update_aggregate", errors.New("disk full"))
	_, err = f.favorites.Remove(ctx, a, a, m)
	require.Error(t, err)

	byName := map[string][]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		byName[s.Name()] = append(byName[s.Name()], s)
	}
	require.Len(t, byName["store.tx"], 2)
	require.Len(t, byName["aggregate.recompute"], 2)

	ok := byName["aggregate.recompute"][0]
	assert.Contains(t, ok.Attributes(), attribute.Int64("movie.id", m))
	assert.Contains(t, ok.Attributes(), attribute.String("trigger", TriggerMutation))
	assert.Equal(t, codes.Error, byName["aggregate.recompute"][1].Status().Code)
	assert.Equal(t, codes.Error, byName["store.tx"][1].Status().Code)
}
