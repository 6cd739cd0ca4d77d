package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zhy3800/MovieWebsite/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// DBTX 连接池与事务的公共子集
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore 基于 pgxpool 的 Store 实现
type PostgresStore struct {
	pool  *pgxpool.Pool
	repos *Repositories
}

// NewPostgresStore 创建 PostgreSQL 存储
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, repos: newRepositories(pool)}
}

func newRepositories(db DBTX) *Repositories {
	return &Repositories{
		Movies:    NewMovieRepository(db),
		Ratings:   NewRatingRepository(db),
		Favorites: NewFavoriteRepository(db),
		History:   NewFavoriteHistoryRepository(db),
		Comments:  NewCommentRepository(db),
		Users:     NewUserRepository(db),
	}
}

// Repos 返回基于连接池的仓储
func (s *PostgresStore) Repos() *Repositories {
	return s.repos
}

// Ping 检查数据库连通性
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ExecTx 在事务中执行函数
func (s *PostgresStore) ExecTx(ctx context.Context, fn func(repos *Repositories) error) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "store.tx", attribute.String("db.system", "postgresql"))
	defer func() { telemetry.EndSpan(span, err) }()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// 确保事务会被提交或回滚
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
			}
		}
	}()

	if err = fn(newRepositories(tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// uniqueViolation 返回违反的唯一约束名
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
