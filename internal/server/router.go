// Package server wires handlers and middleware into the HTTP router.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zhy3800/MovieWebsite/internal/handler"
	"github.com/zhy3800/MovieWebsite/internal/middleware"
	"github.com/zhy3800/MovieWebsite/internal/service"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
)

// Deps 路由依赖
type Deps struct {
	Credentials *service.CredentialService
	Movies      *service.MovieService
	Aggregates  *service.AggregateService
	Ratings     *service.RatingService
	Favorites   *service.FavoriteService
	Comments    *service.CommentService
	Health      map[string]handler.Pinger
	Tokens      middleware.TokenValidator
	AuthLimiter middleware.Limiter
	Logger      logger.Logger
	ServiceName string
}

// PublicRoutes 免认证的路由模板
var PublicRoutes = []middleware.PublicRoute{
	{Method: http.MethodPost, Path: "/api/users/login"},
	{Method: http.MethodPost, Path: "/api/users/register"},
	{Method: http.MethodGet, Path: "/api/movies"},
	{Method: http.MethodGet, Path: "/api/movies/search"},
	{Method: http.MethodGet, Path: "/api/search/movies"},
	{Method: http.MethodGet, Path: "/api/movies/hot"},
}

// NewRouter 构建 gin 路由
func NewRouter(d Deps) *gin.Engine {
	serviceName := d.ServiceName
	if serviceName == "" {
		serviceName = "movie-svc"
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Tracing(serviceName),
		middleware.Recovery(d.Logger),
		middleware.Logging(d.Logger),
		middleware.Metrics(),
		httputil.CORSMiddleware(),
		httputil.SecurityHeadersMiddleware(),
	)

	router.GET("/health", handler.NewHealthHandler(d.Health).Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	users := handler.NewUserHandler(d.Credentials)
	movies := handler.NewMovieHandler(d.Movies, d.Aggregates)
	ratings := handler.NewRatingHandler(d.Ratings, d.Movies)
	favorites := handler.NewFavoriteHandler(d.Favorites)
	comments := handler.NewCommentHandler(d.Comments)

	limit := func(c *gin.Context) { c.Next() }
	if d.AuthLimiter != nil {
		limit = d.AuthLimiter.Limit()
	}

	api := router.Group("/api")
	api.Use(middleware.Auth(d.Tokens, PublicRoutes, d.Logger))
	{
		api.POST("/users/login", limit, users.Login)
		api.POST("/users/register", limit, users.Register)

		api.GET("/movies", movies.List)
		api.GET("/movies/search", movies.Search)
		api.GET("/movies/hot", movies.Hot)
		api.GET("/search/movies", movies.PagedSearch)
		api.GET("/movies/:id", movies.Get)
		api.PUT("/movies/:id/rating", movies.RecomputeRating)

		api.POST("/movies/:id/rate", ratings.Rate)
		api.GET("/movies/:id/user-rating/:userId", ratings.GetUserRating)

		api.POST("/favorites", favorites.Add)
		api.DELETE("/favorites/:userId/:movieId", favorites.Remove)
		api.GET("/favorites/check/:userId/:movieId", favorites.Check)
		api.GET("/favorites/history/:userId", favorites.History)
		api.GET("/favorites/user/:userId", favorites.ListByUser)
		api.GET("/favorites/count/:movieId", favorites.Count)

		api.GET("/comments/count/:movieId", comments.Count)
		api.GET("/comments/:movieId", comments.List)
		api.POST("/comments", comments.Post)
	}

	return router
}
