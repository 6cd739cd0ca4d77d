package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxCommentLength 评论最大字符数
const MaxCommentLength = 500

// Comment 评论实体，只追加
type Comment struct {
	ID        int64     `json:"id"`
	MovieID   int64     `json:"movie_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Text      string    `json:"comment_text"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateCommentText 校验评论内容
func ValidateCommentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyComment
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}
