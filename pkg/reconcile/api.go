package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
)

// User is the locally persisted user record.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// LoginResponse is the body returned by a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UserRating is the server's view of one user's rating of a movie.
type UserRating struct {
	Rated  bool    `json:"rated"`
	Rating float64 `json:"rating"`
}

// API is the subset of the movie API the session talks to. Every call except
// Login carries the session token.
type API interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	Favorites(ctx context.Context, token string, userID int64) ([]int64, error)
	CheckFavorite(ctx context.Context, token string, userID, movieID int64) (bool, error)
	AddFavorite(ctx context.Context, token string, userID, movieID int64) error
	RemoveFavorite(ctx context.Context, token string, userID, movieID int64) error
	Rate(ctx context.Context, token string, userID, movieID int64, value float64) (float64, error)
	UserRating(ctx context.Context, token string, userID, movieID int64) (*UserRating, error)
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// HTTPClient implements API over the JSON HTTP interface.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for baseURL (for example http://localhost:3000/api).
// A nil httpClient uses a pooled client without shared global state.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Login exchanges credentials for a token.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/users/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Favorites returns the ids of the user's favorited movies.
func (c *HTTPClient) Favorites(ctx context.Context, token string, userID int64) ([]int64, error) {
	var rows []struct {
		MovieID int64 `json:"movie_id"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/favorites/user/%d", userID), token, nil, &rows); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.MovieID)
	}
	return ids, nil
}

// CheckFavorite asks the server whether the movie is favorited.
func (c *HTTPClient) CheckFavorite(ctx context.Context, token string, userID, movieID int64) (bool, error) {
	var out struct {
		IsFavorited bool `json:"isFavorited"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/favorites/check/%d/%d", userID, movieID), token, nil, &out); err != nil {
		return false, err
	}
	return out.IsFavorited, nil
}

// AddFavorite favorites a movie.
func (c *HTTPClient) AddFavorite(ctx context.Context, token string, userID, movieID int64) error {
	body := map[string]int64{"user_id": userID, "movie_id": movieID}
	return c.do(ctx, http.MethodPost, "/favorites", token, body, nil)
}

// RemoveFavorite unfavorites a movie.
func (c *HTTPClient) RemoveFavorite(ctx context.Context, token string, userID, movieID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/favorites/%d/%d", userID, movieID), token, nil, nil)
}

// Rate rates a movie and returns the stored (clamped) value.
func (c *HTTPClient) Rate(ctx context.Context, token string, userID, movieID int64, value float64) (float64, error) {
	var out struct {
		Rating float64 `json:"rating"`
	}
	body := map[string]interface{}{"user_id": userID, "rating": value}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/movies/%d/rate", movieID), token, body, &out); err != nil {
		return 0, err
	}
	return out.Rating, nil
}

// UserRating returns the user's rating for a movie.
func (c *HTTPClient) UserRating(ctx context.Context, token string, userID, movieID int64) (*UserRating, error) {
	var out UserRating
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/movies/%d/user-rating/%d", movieID, userID), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&envelope) == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
