package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSessionInvalid is returned when a request is blocked because the
	// stored token no longer matches the session.
	ErrSessionInvalid = errors.New("session invalidated")
	// ErrNotLoggedIn is returned for authenticated operations without a session.
	ErrNotLoggedIn = errors.New("not logged in")
)

// resyncConcurrency bounds parallel requests during Resync.
const resyncConcurrency = 4

// Session is one tab's view of the user session. All methods are serialized.
type Session struct {
	mu sync.Mutex

	storage Storage
	api     API
	nav     Navigator
	routes  RoutePolicy
	log     logger.Logger

	state            State
	lastGood         string
	user             *User
	ratings          map[int64]float64
	path             string
	lastInvalidation State
}

// Option configures a Session.
type Option func(*Session)

// WithRoutePolicy overrides the default route table.
func WithRoutePolicy(p RoutePolicy) Option {
	return func(s *Session) { s.routes = p }
}

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) { s.log = l }
}

// NewSession creates an unauthenticated session.
func NewSession(storage Storage, api API, nav Navigator, opts ...Option) *Session {
	s := &Session{
		storage: storage,
		api:     api,
		nav:     nav,
		routes:  DefaultRoutePolicy(),
		log:     logger.Nop(),
		state:   StateUnauthenticated,
		ratings: make(map[int64]float64),
		path:    "/",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastInvalidation returns why the session was last purged
// (StateExpired or StateTampered), or StateUnauthenticated if never.
func (s *Session) LastInvalidation() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInvalidation
}

// User returns the logged in user, or nil.
func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Login authenticates, persists the token and user, and pulls favorites.
// A failed favorites pull does not fail the login.
func (s *Session) Login(ctx context.Context, username, password string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		return nil, err
	}
	// 先写 user 再写 token, 其他标签页看到 token 时 user 已就绪
	if err := s.storage.Set(ctx, KeyUser, string(userJSON)); err != nil {
		return nil, err
	}
	if err := s.storage.Set(ctx, KeyToken, resp.Token); err != nil {
		return nil, err
	}

	user := resp.User
	s.user = &user
	s.lastGood = resp.Token
	s.state = StateAuthenticated
	s.ratings = make(map[int64]float64)

	ids, err := s.api.Favorites(ctx, resp.Token, user.ID)
	if err != nil {
		s.log.Warn("favorites pull failed", logger.Int64("user_id", user.ID), logger.Err(err))
	} else if err := s.writeFavorites(ctx, favoriteSet(ids)); err != nil {
		s.log.Warn("favorites write failed", logger.Err(err))
	}

	u := user
	return &u, nil
}

type restoreResult int

const (
	restoreAdopted restoreResult = iota
	// restorePending means there is nothing complete to adopt yet: no token,
	// or a token whose user record has not been written.
	restorePending
	restorePurged
)

// Restore adopts a well-formed token already in storage, as after a reload.
// A malformed token or unreadable user record purges the session. A token
// without a user record is left alone.
func (s *Session) Restore(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreLocked(ctx) == restoreAdopted
}

func (s *Session) restoreLocked(ctx context.Context) restoreResult {
	token, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		return restorePending
	}
	if CheckTokenShape(token) != nil {
		s.invalidateLocked(ctx, StateTampered)
		return restorePurged
	}

	raw, err := s.storage.Get(ctx, KeyUser)
	if errors.Is(err, ErrNotFound) {
		return restorePending
	}
	var user User
	if err != nil || json.Unmarshal([]byte(raw), &user) != nil || user.ID <= 0 {
		s.invalidateLocked(ctx, StateTampered)
		return restorePurged
	}

	s.user = &user
	s.lastGood = token
	s.state = StateAuthenticated
	return restoreAdopted
}

// guardLocked checks the stored token against the last known good one and
// returns the token to send ("" when anonymous).
func (s *Session) guardLocked(ctx context.Context) (string, error) {
	current, err := s.storage.Get(ctx, KeyToken)
	present := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	if s.state != StateAuthenticated {
		if present && s.restoreLocked(ctx) == restorePurged {
			return "", ErrSessionInvalid
		}
		return s.lastGood, nil
	}

	if !present || current != s.lastGood || CheckTokenShape(current) != nil {
		s.invalidateLocked(ctx, StateTampered)
		return "", ErrSessionInvalid
	}
	return current, nil
}

// authorizedLocked returns the token and user for an authenticated call.
func (s *Session) authorizedLocked(ctx context.Context) (string, *User, error) {
	token, err := s.guardLocked(ctx)
	if err != nil {
		return "", nil, err
	}
	if token == "" || s.user == nil {
		return "", nil, ErrNotLoggedIn
	}
	return token, s.user, nil
}

// callLocked runs fn and purges the session on a 401.
func (s *Session) callLocked(ctx context.Context, fn func() error) error {
	err := fn()
	if IsUnauthorized(err) {
		s.invalidateLocked(ctx, StateExpired)
	}
	return err
}

// invalidateLocked purges local state, tells the user, and returns to
// Unauthenticated via reason.
func (s *Session) invalidateLocked(ctx context.Context, reason State) {
	s.state = reason
	s.lastInvalidation = reason

	for _, key := range []string{KeyToken, KeyUser, KeyFavorites} {
		if err := s.storage.Remove(context.WithoutCancel(ctx), key); err != nil {
			s.log.Warn("storage purge failed", logger.String("key", key), logger.Err(err))
		}
	}
	s.lastGood = ""
	s.user = nil
	s.ratings = make(map[int64]float64)

	s.log.Info("session invalidated", logger.String("reason", reason.String()))
	s.nav.Notify(MessageSessionExpired)
	s.nav.Redirect(LoginPath)
	s.state = StateUnauthenticated
}

// CheckValidity re-checks the token and the current route.
func (s *Session) CheckValidity(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkValidityLocked(ctx)
}

func (s *Session) checkValidityLocked(ctx context.Context) bool {
	if _, err := s.guardLocked(ctx); err != nil {
		return false
	}
	if s.routes.IsPublic(s.path) {
		return true
	}
	if s.routes.IsProtected(s.path) && s.state != StateAuthenticated {
		s.nav.Redirect(LoginPath)
		return false
	}
	return true
}

// OnRouteChange records the new route and re-checks validity.
func (s *Session) OnRouteChange(ctx context.Context, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	return s.checkValidityLocked(ctx)
}

// IsFavorited reads the local favorite flag without a request.
func (s *Session) IsFavorited(ctx context.Context, movieID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readFavorites(ctx)[movieID]
}

// CheckFavorite fetches the server's favorite flag and stores it locally.
// On failure the local value is returned with the error.
func (s *Session) CheckFavorite(ctx context.Context, movieID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, user, err := s.authorizedLocked(ctx)
	if err != nil {
		return false, err
	}
	local := s.readFavorites(ctx)[movieID]

	var remote bool
	err = s.callLocked(ctx, func() error {
		var err error
		remote, err = s.api.CheckFavorite(ctx, token, user.ID, movieID)
		return err
	})
	if err != nil {
		return local, err
	}
	s.setFavorite(ctx, movieID, remote)
	return remote, nil
}

// ToggleFavorite flips the favorite flag optimistically and returns the
// resulting local value.
func (s *Session) ToggleFavorite(ctx context.Context, movieID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, user, err := s.authorizedLocked(ctx)
	if err != nil {
		return false, err
	}
	prior := s.readFavorites(ctx)[movieID]
	desired := !prior

	err = s.optimistic(
		func() func() {
			s.setFavorite(ctx, movieID, desired)
			return func() { s.setFavorite(ctx, movieID, prior) }
		},
		func() error {
			return s.callLocked(ctx, func() error {
				if desired {
					return s.api.AddFavorite(ctx, token, user.ID, movieID)
				}
				return s.api.RemoveFavorite(ctx, token, user.ID, movieID)
			})
		},
	)
	if err != nil {
		s.log.Warn("favorite toggle failed", logger.Int64("movie_id", movieID), logger.Bool("desired", desired), logger.Err(err))
		return prior, err
	}
	return desired, nil
}

// Rating returns the locally known rating for a movie.
func (s *Session) Rating(movieID int64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.ratings[movieID]
	return v, ok
}

// Rate sets the rating optimistically and returns the stored value.
func (s *Session) Rate(ctx context.Context, movieID int64, value float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, user, err := s.authorizedLocked(ctx)
	if err != nil {
		return 0, err
	}
	prior, had := s.ratings[movieID]

	var stored float64
	err = s.optimistic(
		func() func() {
			s.ratings[movieID] = value
			return func() {
				if had {
					s.ratings[movieID] = prior
				} else {
					delete(s.ratings, movieID)
				}
			}
		},
		func() error {
			return s.callLocked(ctx, func() error {
				var err error
				stored, err = s.api.Rate(ctx, token, user.ID, movieID, value)
				return err
			})
		},
	)
	if err != nil {
		s.log.Warn("rating failed", logger.Int64("movie_id", movieID), logger.Float64("value", value), logger.Err(err))
		return prior, err
	}
	s.ratings[movieID] = stored
	return stored, nil
}

// LoadRating fetches the user's rating for a movie and caches it.
func (s *Session) LoadRating(ctx context.Context, movieID int64) (*UserRating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, user, err := s.authorizedLocked(ctx)
	if err != nil {
		return nil, err
	}
	var r *UserRating
	err = s.callLocked(ctx, func() error {
		var err error
		r, err = s.api.UserRating(ctx, token, user.ID, movieID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if r.Rated {
		s.ratings[movieID] = r.Rating
	} else {
		delete(s.ratings, movieID)
	}
	return r, nil
}

// Resync replaces the local favorites and cached ratings with server truth.
func (s *Session) Resync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, user, err := s.authorizedLocked(ctx)
	if err != nil {
		return err
	}

	movieIDs := make([]int64, 0, len(s.ratings))
	for id := range s.ratings {
		movieIDs = append(movieIDs, id)
	}
	ratings := make([]*UserRating, len(movieIDs))
	var favorites []int64

	// 不取消兄弟请求, 任何一个 401 都要让会话失效
	var (
		authMu  sync.Mutex
		authErr error
	)
	track := func(err error) error {
		if IsUnauthorized(err) {
			authMu.Lock()
			if authErr == nil {
				authErr = err
			}
			authMu.Unlock()
		}
		return err
	}

	var g errgroup.Group
	g.SetLimit(resyncConcurrency)
	g.Go(func() error {
		var err error
		favorites, err = s.api.Favorites(ctx, token, user.ID)
		return track(err)
	})
	for i, id := range movieIDs {
		g.Go(func() error {
			var err error
			ratings[i], err = s.api.UserRating(ctx, token, user.ID, id)
			return track(err)
		})
	}
	err = g.Wait()
	if authErr != nil {
		s.invalidateLocked(ctx, StateExpired)
		return authErr
	}
	if err != nil {
		return err
	}

	if err := s.writeFavorites(ctx, favoriteSet(favorites)); err != nil {
		return err
	}
	for i, id := range movieIDs {
		if ratings[i].Rated {
			s.ratings[id] = ratings[i].Rating
		} else {
			delete(s.ratings, id)
		}
	}
	return nil
}

// optimistic applies a local change, runs call, and compensates only when
// call fails and the session survived it.
func (s *Session) optimistic(apply func() (compensate func()), call func() error) error {
	compensate := apply()
	err := call()
	if err == nil {
		return nil
	}
	if s.state == StateAuthenticated {
		compensate()
		s.nav.Notify(MessageActionFailed)
	}
	return err
}

func (s *Session) readFavorites(ctx context.Context) map[int64]bool {
	favs := make(map[int64]bool)
	raw, err := s.storage.Get(ctx, KeyFavorites)
	if err != nil {
		return favs
	}
	if err := json.Unmarshal([]byte(raw), &favs); err != nil {
		s.log.Warn("discarding unreadable favorites cache", logger.Err(err))
		return make(map[int64]bool)
	}
	return favs
}

func (s *Session) writeFavorites(ctx context.Context, favs map[int64]bool) error {
	raw, err := json.Marshal(favs)
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, KeyFavorites, string(raw))
}

func (s *Session) setFavorite(ctx context.Context, movieID int64, v bool) {
	favs := s.readFavorites(ctx)
	favs[movieID] = v
	if err := s.writeFavorites(ctx, favs); err != nil {
		s.log.Warn("favorites write failed", logger.Int64("movie_id", movieID), logger.Err(err))
	}
}

func favoriteSet(ids []int64) map[int64]bool {
	favs := make(map[int64]bool, len(ids))
	for _, id := range ids {
		favs[id] = true
	}
	return favs
}
