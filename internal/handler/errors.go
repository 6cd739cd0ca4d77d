package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/internal/domain"
	apperrors "github.com/zhy3800/MovieWebsite/pkg/errors"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
)

// handleError 统一将domain错误映射为API错误
func handleError(c *gin.Context, err error) {
	_ = c.Error(err)
	httputil.ErrorResponse(c, toAPIError(err))
}

func toAPIError(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}

	switch {
	// 400 Bad Request
	case errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrInvalidMovieID),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrEmptyComment),
		errors.Is(err, domain.ErrCommentTooLong),
		errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrInvalidSearchQuery):
		return apperrors.Validation(err.Error())

	// 冲突按 400 返回
	case errors.Is(err, domain.ErrAlreadyFavorited):
		return apperrors.ErrAlreadyFavorited
	case errors.Is(err, domain.ErrDuplicateEmail):
		return apperrors.ErrDuplicateEmail
	case errors.Is(err, domain.ErrDuplicateUsername):
		return apperrors.ErrDuplicateUser

	// 404 Not Found
	case errors.Is(err, domain.ErrMovieNotFound):
		return apperrors.ErrMovieNotFound
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.ErrUserNotFound
	case errors.Is(err, domain.ErrFavoriteNotFound):
		return apperrors.ErrNotFavorited
	case errors.Is(err, domain.ErrRatingNotFound):
		return apperrors.ErrNotFound.WithMessage(err.Error())

	// 401 Unauthorized
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.ErrInvalidCredentials
	case errors.Is(err, domain.ErrNotOwner):
		return apperrors.ErrNotOwner

	default:
		return apperrors.Internal(err)
	}
}
