package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhy3800/MovieWebsite/internal/domain"
	"github.com/zhy3800/MovieWebsite/internal/events"
	"github.com/zhy3800/MovieWebsite/internal/handler"
	"github.com/zhy3800/MovieWebsite/internal/middleware"
	"github.com/zhy3800/MovieWebsite/internal/repository"
	"github.com/zhy3800/MovieWebsite/internal/service"
	"github.com/zhy3800/MovieWebsite/pkg/crypto"
	"github.com/zhy3800/MovieWebsite/pkg/jwt"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *repository.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	log := logger.Nop()
	tokens := jwt.NewManager(&jwt.Config{Secret: "test-secret-that-is-long-enough-32b", Issuer: "movie-svc"})
	hasher := crypto.NewPasswordHasherWithParams(crypto.FastArgon2Params())
	pub := events.NopPublisher{}

	aggregates := service.NewAggregateService(store, domain.DefaultPopularityWeights(), log)
	router := NewRouter(Deps{
		Credentials: service.NewCredentialService(store, hasher, tokens, log),
		Movies:      service.NewMovieService(store),
		Aggregates:  aggregates,
		Ratings:     service.NewRatingService(store, aggregates, pub, log),
		Favorites:   service.NewFavoriteService(store, aggregates, pub, log),
		Comments:    service.NewCommentService(store, aggregates, pub, log),
		Health:      map[string]handler.Pinger{"store": store},
		Tokens:      tokens,
		AuthLimiter: middleware.NewRateLimiter(1000, 1000),
		Logger:      log,
	})

	ctx := context.Background()
	for _, title := range []string{"霸王别姬", "Titanic", "Titan A.E."} {
		require.NoError(t, store.Repos().Movies.Create(ctx, &domain.Movie{ZhyTitle: title, EngTitle: title}))
	}
	return &testServer{t: t, router: router, store: store}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](t, w)
	return body.Error.Code
}

// signup 注册并登录，返回令牌与用户ID
func (s *testServer) signup(name string) (string, int64) {
	s.t.Helper()
	w := s.do("POST", "/api/users/register", "", gin.H{"username": name, "email": name + "@example.com", "password": "secret1"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do("POST", "/api/users/login", "", gin.H{"username": name, "password": "secret1"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	login := decode[struct {
		Token string            `json:"token"`
		User  domain.PublicUser `json:"user"`
	}](s.t, w)
	return login.Token, login.User.ID
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do("GET", "/api/movies?page=1&limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Movies []domain.Movie `json:"movies"`
		Total  int64          `json:"total"`
	}](t, w)
	assert.Len(t, list.Movies, 2)
	assert.Equal(t, int64(3), list.Total)

	w = s.do("GET", "/api/search/movies?query=titan&limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	paged := decode[service.SearchResult](t, w)
	assert.Equal(t, int64(2), paged.Total)
	assert.Equal(t, 2, paged.TotalPages)

	w = s.do("GET", "/api/movies/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("GET", "/api/movies/hot", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do("GET", "/api/movies/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do("POST", "/api/favorites", "not.a.token", gin.H{"user_id": 1, "movie_id": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.signup("alice")

	w := s.do("POST", "/api/users/login", "", gin.H{"username": "alice", "password": "nope123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))

	w = s.do("POST", "/api/users/register", "", gin.H{"username": "alice2", "email": "alice@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DUPLICATE_EMAIL", errorCode(t, w))

	w = s.do("POST", "/api/users/register", "", gin.H{"username": "bob", "email": "bad", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestFavoriteFlow(t *testing.T) {
	s := newTestServer(t)
	token, uid := s.signup("alice")
	_, otherID := s.signup("bob")

	w := s.do("POST", "/api/favorites", token, gin.H{"user_id": uid, "movie_id": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do("POST", "/api/favorites", token, gin.H{"user_id": uid, "movie_id": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ALREADY_FAVORITED", errorCode(t, w))

	w = s.do("POST", "/api/favorites", token, gin.H{"user_id": otherID, "movie_id": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "NOT_OWNER", errorCode(t, w))

	w = s.do("GET", "/api/favorites/check/1/2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[struct {
		IsFavorited bool `json:"isFavorited"`
	}](t, w).IsFavorited)

	w = s.do("GET", "/api/favorites/count/2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[struct {
		Count int64 `json:"count"`
	}](t, w).Count)

	w = s.do("GET", "/api/movies/hot?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hot := decode[[]domain.Movie](t, w)
	require.Len(t, hot, 1)
	assert.Equal(t, int64(2), hot[0].ID)
	assert.Equal(t, 0.4, hot[0].Popularity)

	w = s.do("DELETE", "/api/favorites/1/2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do("DELETE", "/api/favorites/1/2", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do("GET", "/api/favorites/history/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]domain.FavoriteHistoryEvent](t, w)
	require.Len(t, history, 2)
	assert.Equal(t, domain.FavoriteActionRemove, history[0].Action)
	require.NotNil(t, history[0].Movie)
	assert.Equal(t, "Titanic", history[0].Movie.ZhyTitle)

	w = s.do("GET", "/api/favorites/user/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.Favorite](t, w))
}

func TestRatingFlow(t *testing.T) {
	s := newTestServer(t)
	token, uid := s.signup("alice")

	w := s.do("POST", "/api/movies/1/rate", token, gin.H{"user_id": uid, "rating": 7})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rated := decode[struct {
		Rating float64      `json:"rating"`
		Movie  domain.Movie `json:"movie"`
	}](t, w)
	assert.Equal(t, 5.0, rated.Rating)
	require.NotNil(t, rated.Movie.Rating)
	assert.Equal(t, 5.0, *rated.Movie.Rating)

	w = s.do("POST", "/api/movies/1/rate", token, gin.H{"user_id": uid})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("GET", "/api/movies/1/user-rating/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.UserRating{Rated: true, Rating: 5}, decode[domain.UserRating](t, w))

	w = s.do("PUT", "/api/movies/1/rating", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	agg := decode[struct {
		Rating     *float64 `json:"rating"`
		Popularity float64  `json:"popularity"`
	}](t, w)
	require.NotNil(t, agg.Rating)
	assert.Equal(t, 5.0, *agg.Rating)
	assert.Equal(t, 0.3, agg.Popularity)

	w = s.do("PUT", "/api/movies/3/rating", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rating":null`)

	w = s.do("GET", "/api/movies/99", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MOVIE_NOT_FOUND", errorCode(t, w))
}

func TestCommentFlow(t *testing.T) {
	s := newTestServer(t)
	token, uid := s.signup("alice")

	w := s.do("POST", "/api/comments", token, gin.H{"movie_id": 1, "user_id": uid, "comment_text": "经典"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotZero(t, decode[struct {
		CommentID int64 `json:"comment_id"`
	}](t, w).CommentID)

	w = s.do("POST", "/api/comments", token, gin.H{"movie_id": 1, "user_id": uid, "comment_text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("GET", "/api/comments/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	comments := decode[[]domain.Comment](t, w)
	require.Len(t, comments, 1)
	assert.Equal(t, "alice", comments[0].Username)

	w = s.do("GET", "/api/comments/count/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1}`, w.Body.String())
}

func TestAuthLimiter(t *testing.T) {
	s := newTestServer(t)
	log := logger.Nop()
	store := repository.NewMemoryStore()
	tokens := jwt.NewManager(&jwt.Config{Secret: "test-secret-that-is-long-enough-32b"})
	router := NewRouter(Deps{
		Credentials: service.NewCredentialService(store, crypto.NewPasswordHasherWithParams(crypto.FastArgon2Params()), tokens, log),
		Tokens:      tokens,
		AuthLimiter: middleware.NewRateLimiter(0.001, 1),
		Logger:      log,
	})
	s.router = router

	w := s.do("POST", "/api/users/login", "", gin.H{"username": "x", "password": "y"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do("POST", "/api/users/login", "", gin.H{"username": "x", "password": "y"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
