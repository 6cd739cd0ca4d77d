package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhy3800/MovieWebsite/internal/domain"
)

func seed(t *testing.T, s *MemoryStore) (userID, movieID int64) {
	t.Helper()
	ctx := context.Background()
	u := &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, s.Repos().Users.Create(ctx, u))
	m := &domain.Movie{ZhyTitle: "霸王别姬", EngTitle: "Farewell My Concubine"}
	require.NoError(t, s.Repos().Movies.Create(ctx, m))
	return u.ID, m.ID
}

func TestMemoryStore_ExecTxCommits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	userID, movieID := seed(t, s)

	err := s.ExecTx(ctx, func(repos *Repositories) error {
		if err := repos.Favorites.Create(ctx, &domain.Favorite{UserID: userID, MovieID: movieID}); err != nil {
			return err
		}
		return repos.History.Append(ctx, &domain.FavoriteHistoryEvent{UserID: userID, MovieID: movieID, Action: domain.FavoriteActionAdd})
	})
	require.NoError(t, err)

	ok, err := s.Repos().Favorites.Exists(ctx, userID, movieID)
	require.NoError(t, err)
	assert.True(t, ok)

	events, err := s.Repos().History.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "霸王别姬", events[0].Movie.ZhyTitle)
}

func TestMemoryStore_ExecTxRollsBack(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	userID, movieID := seed(t, s)
	boom := errors.New("boom")

	err := s.ExecTx(ctx, func(repos *Repositories) error {
		require.NoError(t, repos.Ratings.Create(ctx, &domain.Rating{MovieID: movieID, UserID: userID, Value: 4}))
		// visible inside the transaction
		n, _, err := repos.Ratings.Stats(ctx, movieID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, mean, err := s.Repos().Ratings.Stats(ctx, movieID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, mean)
}

func TestMemoryStore_FailOn(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, movieID := seed(t, s)
	boom := errors.New("disk full")

	s.FailOn("movies.update_aggregate", boom)
	err := s.Repos().Movies.UpdateAggregate(ctx, &domain.Aggregate{MovieID: movieID, Popularity: 1})
	assert.ErrorIs(t, err, boom)

	s.FailOn("movies.update_aggregate", nil)
	require.NoError(t, s.Repos().Movies.UpdateAggregate(ctx, &domain.Aggregate{MovieID: movieID, Popularity: 1}))

	s.FailOn("tx.commit", boom)
	err = s.ExecTx(ctx, func(repos *Repositories) error {
		return repos.Movies.UpdateAggregate(ctx, &domain.Aggregate{MovieID: movieID, Popularity: 9})
	})
	assert.ErrorIs(t, err, boom)
	m, err := s.Repos().Movies.GetByID(ctx, movieID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Popularity)
}

func TestMemoryStore_Constraints(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	userID, movieID := seed(t, s)

	require.NoError(t, s.Repos().Favorites.Create(ctx, &domain.Favorite{UserID: userID, MovieID: movieID}))
	err := s.Repos().Favorites.Create(ctx, &domain.Favorite{UserID: userID, MovieID: movieID})
	assert.ErrorIs(t, err, domain.ErrAlreadyFavorited)

	err = s.Repos().Favorites.Create(ctx, &domain.Favorite{UserID: userID, MovieID: 999})
	assert.ErrorIs(t, err, domain.ErrMovieNotFound)

	err = s.Repos().Users.Create(ctx, &domain.User{Username: "bob", Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	err = s.Repos().Users.Create(ctx, &domain.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	assert.ErrorIs(t, s.Repos().Movies.LockForUpdate(ctx, 999), domain.ErrMovieNotFound)
}

func TestMemoryStore_SearchAndHot(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, title := range []string{"Titanic", "Titan A.E.", "Up"} {
		require.NoError(t, s.Repos().Movies.Create(ctx, &domain.Movie{ZhyTitle: title, EngTitle: title}))
	}
	require.NoError(t, s.Repos().Movies.UpdateAggregate(ctx, &domain.Aggregate{MovieID: 2, Popularity: 5}))

	movies, total, err := s.Repos().Movies.Search(ctx, "TITAN", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, movies, 1)
	assert.Equal(t, int64(2), movies[0].ID)

	hot, err := s.Repos().Movies.ListHot(ctx, 2)
	require.NoError(t, err)
	require.Len(t, hot, 2)
	assert.Equal(t, int64(2), hot[0].ID)
	assert.Equal(t, int64(1), hot[1].ID)

	page, err := s.Repos().Movies.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Up", page[0].ZhyTitle)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.ExecTx(ctx, func(*Repositories) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Repos().Movies.Count(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
