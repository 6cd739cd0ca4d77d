package domain

import "errors"

var (
	// 参数校验错误
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrInvalidMovieID     = errors.New("invalid movie id")
	ErrInvalidRating      = errors.New("invalid rating value")
	ErrEmptyComment       = errors.New("comment text is required")
	ErrCommentTooLong     = errors.New("comment text too long")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidSearchQuery = errors.New("search query is required")

	// 资源不存在
	ErrMovieNotFound    = errors.New("movie not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrRatingNotFound   = errors.New("rating not found")
	ErrFavoriteNotFound = errors.New("favorite not found")

	// 冲突
	ErrAlreadyFavorited  = errors.New("movie already favorited")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")

	// 认证相关错误
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotOwner           = errors.New("cannot act on behalf of another user")
)
