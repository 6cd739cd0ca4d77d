package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zhy3800/MovieWebsite/internal/domain"
	"github.com/zhy3800/MovieWebsite/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// MemoryStore 内存版 Store，用于测试与本地开发
//
// 事务在状态快照上执行，仅在 fn 成功时整体替换，失败即丢弃快照。
// 事务持有写锁，因此所有变更天然串行。
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	repos *Repositories

	faultMu sync.Mutex
	faults  map[string]error
}

type pairKey struct {
	a, b int64
}

type memState struct {
	movies    map[int64]*domain.Movie
	users     map[int64]*domain.User
	ratings   map[pairKey]*domain.Rating   // (movie, user)
	favorites map[pairKey]*domain.Favorite // (user, movie)
	history   []*domain.FavoriteHistoryEvent
	comments  []*domain.Comment
	seq       map[string]int64
}

func newMemState() *memState {
	return &memState{
		movies:    make(map[int64]*domain.Movie),
		users:     make(map[int64]*domain.User),
		ratings:   make(map[pairKey]*domain.Rating),
		favorites: make(map[pairKey]*domain.Favorite),
		seq:       make(map[string]int64),
	}
}

func (s *memState) next(name string) int64 {
	s.seq[name]++
	return s.seq[name]
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.movies {
		m := *v
		c.movies[k] = &m
	}
	for k, v := range s.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range s.ratings {
		r := *v
		c.ratings[k] = &r
	}
	for k, v := range s.favorites {
		f := *v
		c.favorites[k] = &f
	}
	c.history = append(c.history, s.history...)
	c.comments = append(c.comments, s.comments...)
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

// memAccess 区分事务内访问（已持锁）与直接访问（按需加锁）
type memAccess interface {
	read(fn func(st *memState) error) error
	write(fn func(st *memState) error) error
}

type storeAccess struct {
	s *MemoryStore
}

func (a storeAccess) read(fn func(st *memState) error) error {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return fn(a.s.state)
}

func (a storeAccess) write(fn func(st *memState) error) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return fn(a.s.state)
}

type txAccess struct {
	st *memState
}

func (a txAccess) read(fn func(st *memState) error) error  { return fn(a.st) }
func (a txAccess) write(fn func(st *memState) error) error { return fn(a.st) }

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		state:  newMemState(),
		faults: make(map[string]error),
	}
	s.repos = s.newRepositories(storeAccess{s: s})
	return s
}

func (s *MemoryStore) newRepositories(acc memAccess) *Repositories {
	base := memRepo{store: s, acc: acc}
	return &Repositories{
		Movies:    &memMovieRepo{base},
		Ratings:   &memRatingRepo{base},
		Favorites: &memFavoriteRepo{base},
		History:   &memHistoryRepo{base},
		Comments:  &memCommentRepo{base},
		Users:     &memUserRepo{base},
	}
}

// Repos 返回非事务仓储
func (s *MemoryStore) Repos() *Repositories {
	return s.repos
}

// Ping 总是成功
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ExecTx 在快照上执行 fn，成功才提交
func (s *MemoryStore) ExecTx(ctx context.Context, fn func(repos *Repositories) error) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "store.tx", attribute.String("db.system", "memory"))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(s.newRepositories(txAccess{st: snapshot})); err != nil {
		return err
	}
	if err := s.fault("tx.commit"); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.state = snapshot
	return nil
}

// FailOn 让名为 op 的操作（如 "movies.update_aggregate"）返回 err，err 为 nil 时取消
func (s *MemoryStore) FailOn(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *MemoryStore) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.faults[op]
}

type memRepo struct {
	store *MemoryStore
	acc   memAccess
}

func (r memRepo) read(ctx context.Context, op string, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.store.fault(op); err != nil {
		return err
	}
	return r.acc.read(fn)
}

func (r memRepo) write(ctx context.Context, op string, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.store.fault(op); err != nil {
		return err
	}
	return r.acc.write(fn)
}

func summaryOf(st *memState, movieID int64) *domain.MovieSummary {
	if m, ok := st.movies[movieID]; ok {
		return m.Summary()
	}
	return &domain.MovieSummary{ID: movieID}
}

// ---- movies ----

type memMovieRepo struct{ memRepo }

func (r *memMovieRepo) GetByID(ctx context.Context, id int64) (*domain.Movie, error) {
	var out *domain.Movie
	err := r.read(ctx, "movies.get", func(st *memState) error {
		m, ok := st.movies[id]
		if !ok {
			return domain.ErrMovieNotFound
		}
		cp := *m
		out = &cp
		return nil
	})
	return out, err
}

func (r *memMovieRepo) LockForUpdate(ctx context.Context, id int64) error {
	return r.read(ctx, "movies.lock", func(st *memState) error {
		if _, ok := st.movies[id]; !ok {
			return domain.ErrMovieNotFound
		}
		return nil
	})
}

func sortedMovies(st *memState, keep func(*domain.Movie) bool, less func(a, b *domain.Movie) bool) []*domain.Movie {
	out := make([]*domain.Movie, 0, len(st.movies))
	for _, m := range st.movies {
		if keep == nil || keep(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byID(a, b *domain.Movie) bool { return a.ID < b.ID }

func byPopularity(a, b *domain.Movie) bool {
	if a.Popularity != b.Popularity {
		return a.Popularity > b.Popularity
	}
	return a.ID < b.ID
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func (r *memMovieRepo) List(ctx context.Context, limit, offset int) ([]*domain.Movie, error) {
	var out []*domain.Movie
	err := r.read(ctx, "movies.list", func(st *memState) error {
		out = window(sortedMovies(st, nil, byID), limit, offset)
		return nil
	})
	return out, err
}

func (r *memMovieRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.read(ctx, "movies.count", func(st *memState) error {
		n = int64(len(st.movies))
		return nil
	})
	return n, err
}

func (r *memMovieRepo) Search(ctx context.Context, query string, limit, offset int) ([]*domain.Movie, int64, error) {
	q := strings.ToLower(query)
	var (
		out   []*domain.Movie
		total int64
	)
	err := r.read(ctx, "movies.search", func(st *memState) error {
		all := sortedMovies(st, func(m *domain.Movie) bool {
			return strings.Contains(strings.ToLower(m.ZhyTitle), q) || strings.Contains(strings.ToLower(m.EngTitle), q)
		}, byPopularity)
		total = int64(len(all))
		out = window(all, limit, offset)
		return nil
	})
	return out, total, err
}

func (r *memMovieRepo) ListHot(ctx context.Context, limit int) ([]*domain.Movie, error) {
	var out []*domain.Movie
	err := r.read(ctx, "movies.list_hot", func(st *memState) error {
		out = window(sortedMovies(st, nil, byPopularity), limit, 0)
		return nil
	})
	return out, err
}

func (r *memMovieRepo) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.read(ctx, "movies.list_ids", func(st *memState) error {
		ids = make([]int64, 0, len(st.movies))
		for id := range st.movies {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return nil
	})
	return ids, err
}

func (r *memMovieRepo) Create(ctx context.Context, movie *domain.Movie) error {
	return r.write(ctx, "movies.create", func(st *memState) error {
		movie.ID = st.next("movies")
		movie.Rating = nil
		movie.Popularity = 0
		movie.UpdatedAt = time.Now()
		cp := *movie
		st.movies[movie.ID] = &cp
		return nil
	})
}

func (r *memMovieRepo) UpdateAggregate(ctx context.Context, agg *domain.Aggregate) error {
	return r.write(ctx, "movies.update_aggregate", func(st *memState) error {
		m, ok := st.movies[agg.MovieID]
		if !ok {
			return domain.ErrMovieNotFound
		}
		if agg.Rating != nil {
			v := *agg.Rating
			m.Rating = &v
		} else {
			m.Rating = nil
		}
		m.Popularity = agg.Popularity
		m.UpdatedAt = time.Now()
		return nil
	})
}

// ---- ratings ----

type memRatingRepo struct{ memRepo }

func (r *memRatingRepo) Get(ctx context.Context, movieID, userID int64) (*domain.Rating, error) {
	var out *domain.Rating
	err := r.read(ctx, "ratings.get", func(st *memState) error {
		rt, ok := st.ratings[pairKey{movieID, userID}]
		if !ok {
			return domain.ErrRatingNotFound
		}
		cp := *rt
		out = &cp
		return nil
	})
	return out, err
}

func (r *memRatingRepo) Create(ctx context.Context, rating *domain.Rating) error {
	return r.write(ctx, "ratings.create", func(st *memState) error {
		key := pairKey{rating.MovieID, rating.UserID}
		if _, ok := st.ratings[key]; ok {
			return fmt.Errorf("create rating: duplicate key (movie %d, user %d)", rating.MovieID, rating.UserID)
		}
		if _, ok := st.movies[rating.MovieID]; !ok {
			return domain.ErrMovieNotFound
		}
		if _, ok := st.users[rating.UserID]; !ok {
			return domain.ErrUserNotFound
		}
		now := time.Now()
		rating.ID = st.next("ratings")
		rating.CreatedAt, rating.UpdatedAt = now, now
		cp := *rating
		st.ratings[key] = &cp
		return nil
	})
}

func (r *memRatingRepo) Update(ctx context.Context, rating *domain.Rating) error {
	return r.write(ctx, "ratings.update", func(st *memState) error {
		existing, ok := st.ratings[pairKey{rating.MovieID, rating.UserID}]
		if !ok {
			return domain.ErrRatingNotFound
		}
		existing.Value = rating.Value
		existing.UpdatedAt = time.Now()
		rating.ID = existing.ID
		rating.CreatedAt = existing.CreatedAt
		rating.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r *memRatingRepo) Stats(ctx context.Context, movieID int64) (int64, *float64, error) {
	var (
		count int64
		sum   float64
	)
	err := r.read(ctx, "ratings.stats", func(st *memState) error {
		for k, rt := range st.ratings {
			if k.a == movieID {
				count++
				sum += rt.Value
			}
		}
		return nil
	})
	if err != nil || count == 0 {
		return count, nil, err
	}
	mean := sum / float64(count)
	return count, &mean, nil
}

// ---- favorites ----

type memFavoriteRepo struct{ memRepo }

func (r *memFavoriteRepo) Exists(ctx context.Context, userID, movieID int64) (bool, error) {
	var ok bool
	err := r.read(ctx, "favorites.exists", func(st *memState) error {
		_, ok = st.favorites[pairKey{userID, movieID}]
		return nil
	})
	return ok, err
}

func (r *memFavoriteRepo) Create(ctx context.Context, favorite *domain.Favorite) error {
	return r.write(ctx, "favorites.create", func(st *memState) error {
		key := pairKey{favorite.UserID, favorite.MovieID}
		if _, ok := st.favorites[key]; ok {
			return domain.ErrAlreadyFavorited
		}
		if _, ok := st.movies[favorite.MovieID]; !ok {
			return domain.ErrMovieNotFound
		}
		if _, ok := st.users[favorite.UserID]; !ok {
			return domain.ErrUserNotFound
		}
		favorite.ID = st.next("favorites")
		favorite.CreatedAt = time.Now()
		cp := *favorite
		cp.Movie = nil
		st.favorites[key] = &cp
		return nil
	})
}

func (r *memFavoriteRepo) Delete(ctx context.Context, userID, movieID int64) (bool, error) {
	var deleted bool
	err := r.write(ctx, "favorites.delete", func(st *memState) error {
		key := pairKey{userID, movieID}
		if _, ok := st.favorites[key]; ok {
			delete(st.favorites, key)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

func (r *memFavoriteRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.Favorite, error) {
	out := make([]*domain.Favorite, 0)
	err := r.read(ctx, "favorites.list", func(st *memState) error {
		for k, f := range st.favorites {
			if k.a != userID {
				continue
			}
			cp := *f
			cp.Movie = summaryOf(st, f.MovieID)
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r *memFavoriteRepo) CountByMovie(ctx context.Context, movieID int64) (int64, error) {
	var n int64
	err := r.read(ctx, "favorites.count", func(st *memState) error {
		for k := range st.favorites {
			if k.b == movieID {
				n++
			}
		}
		return nil
	})
	return n, err
}

// ---- favorite history ----

type memHistoryRepo struct{ memRepo }

func (r *memHistoryRepo) Append(ctx context.Context, event *domain.FavoriteHistoryEvent) error {
	return r.write(ctx, "history.append", func(st *memState) error {
		event.ID = st.next("history")
		event.CreatedAt = time.Now()
		cp := *event
		cp.Movie = nil
		st.history = append(st.history, &cp)
		return nil
	})
}

func (r *memHistoryRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.FavoriteHistoryEvent, error) {
	out := make([]*domain.FavoriteHistoryEvent, 0)
	err := r.read(ctx, "history.list", func(st *memState) error {
		for i := len(st.history) - 1; i >= 0; i-- {
			e := st.history[i]
			if e.UserID != userID {
				continue
			}
			cp := *e
			cp.Movie = summaryOf(st, e.MovieID)
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

// ---- comments ----

type memCommentRepo struct{ memRepo }

func (r *memCommentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	return r.write(ctx, "comments.create", func(st *memState) error {
		if _, ok := st.movies[comment.MovieID]; !ok {
			return domain.ErrMovieNotFound
		}
		if _, ok := st.users[comment.UserID]; !ok {
			return domain.ErrUserNotFound
		}
		comment.ID = st.next("comments")
		comment.CreatedAt = time.Now()
		cp := *comment
		st.comments = append(st.comments, &cp)
		return nil
	})
}

func (r *memCommentRepo) ListByMovie(ctx context.Context, movieID int64) ([]*domain.Comment, error) {
	out := make([]*domain.Comment, 0)
	err := r.read(ctx, "comments.list", func(st *memState) error {
		for i := len(st.comments) - 1; i >= 0; i-- {
			c := st.comments[i]
			if c.MovieID != movieID {
				continue
			}
			cp := *c
			if u, ok := st.users[c.UserID]; ok {
				cp.Username = u.Username
			}
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

func (r *memCommentRepo) CountByMovie(ctx context.Context, movieID int64) (int64, error) {
	var n int64
	err := r.read(ctx, "comments.count", func(st *memState) error {
		for _, c := range st.comments {
			if c.MovieID == movieID {
				n++
			}
		}
		return nil
	})
	return n, err
}

// ---- users ----

type memUserRepo struct{ memRepo }

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	return r.write(ctx, "users.create", func(st *memState) error {
		for _, u := range st.users {
			if u.Username == user.Username {
				return domain.ErrDuplicateUsername
			}
			if strings.EqualFold(u.Email, user.Email) {
				return domain.ErrDuplicateEmail
			}
		}
		user.ID = st.next("users")
		user.CreatedAt = time.Now()
		cp := *user
		st.users[user.ID] = &cp
		return nil
	})
}

func (r *memUserRepo) find(ctx context.Context, op string, match func(*domain.User) bool) (*domain.User, error) {
	var out *domain.User
	err := r.read(ctx, op, func(st *memState) error {
		for _, u := range st.users {
			if match(u) {
				cp := *u
				out = &cp
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	return out, err
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.find(ctx, "users.get", func(u *domain.User) bool { return u.ID == id })
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(ctx, "users.get", func(u *domain.User) bool { return u.Username == username })
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, "users.get", func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}
