package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/zhy3800/MovieWebsite/internal/domain"
)

const movieColumns = `id, zhy_title, eng_title, description, poster_path, release_date, rating, popularity, updated_at`

// MovieRepositoryImpl 电影仓储实现
type MovieRepositoryImpl struct {
	db DBTX
}

// NewMovieRepository 创建电影仓储
func NewMovieRepository(db DBTX) MovieRepository {
	return &MovieRepositoryImpl{db: db}
}

func scanMovie(row pgx.Row) (*domain.Movie, error) {
	var m domain.Movie
	err := row.Scan(
		&m.ID,
		&m.ZhyTitle,
		&m.EngTitle,
		&m.Description,
		&m.PosterPath,
		&m.ReleaseDate,
		&m.Rating,
		&m.Popularity,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMovies(rows pgx.Rows) ([]*domain.Movie, error) {
	defer rows.Close()
	movies := make([]*domain.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// GetByID 根据ID获取电影
func (r *MovieRepositoryImpl) GetByID(ctx context.Context, id int64) (*domain.Movie, error) {
	m, err := scanMovie(r.db.QueryRow(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	return m, nil
}

// LockForUpdate 行锁，必须在事务中调用
func (r *MovieRepositoryImpl) LockForUpdate(ctx context.Context, id int64) error {
	var locked int64
	err := r.db.QueryRow(ctx, `SELECT id FROM movies WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrMovieNotFound
	}
	if err != nil {
		return fmt.Errorf("lock movie %d: %w", id, err)
	}
	return nil
}

// List 分页获取电影
func (r *MovieRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*domain.Movie, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+movieColumns+`
		FROM movies
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return collectMovies(rows)
}

// Count 统计电影总数
func (r *MovieRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return n, nil
}

// Search 按中英文片名模糊搜索
func (r *MovieRepositoryImpl) Search(ctx context.Context, query string, limit, offset int) ([]*domain.Movie, int64, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	const where = `WHERE LOWER(zhy_title) LIKE $1 OR LOWER(eng_title) LIKE $1`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM movies `+where, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+movieColumns+`
		FROM movies
		`+where+`
		ORDER BY popularity DESC, id
		LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search movies: %w", err)
	}
	movies, err := collectMovies(rows)
	if err != nil {
		return nil, 0, err
	}
	return movies, total, nil
}

// ListHot 按热度倒序获取电影
func (r *MovieRepositoryImpl) ListHot(ctx context.Context, limit int) ([]*domain.Movie, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+movieColumns+`
		FROM movies
		ORDER BY popularity DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list hot movies: %w", err)
	}
	return collectMovies(rows)
}

// ListIDs 获取全部电影ID
func (r *MovieRepositoryImpl) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM movies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list movie ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan movie ids: %w", err)
	}
	return ids, nil
}

// Create 创建电影
func (r *MovieRepositoryImpl) Create(ctx context.Context, movie *domain.Movie) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO movies (zhy_title, eng_title, description, poster_path, release_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, popularity, updated_at
	`, movie.ZhyTitle, movie.EngTitle, movie.Description, movie.PosterPath, movie.ReleaseDate,
	).Scan(&movie.ID, &movie.Popularity, &movie.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create movie: %w", err)
	}
	return nil
}

// UpdateAggregate 写入派生指标
func (r *MovieRepositoryImpl) UpdateAggregate(ctx context.Context, agg *domain.Aggregate) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE movies
		SET rating = $2, popularity = $3, updated_at = NOW()
		WHERE id = $1
	`, agg.MovieID, agg.Rating, agg.Popularity)
	if err != nil {
		return fmt.Errorf("update aggregate for movie %d: %w", agg.MovieID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMovieNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
