package events

import (
	"time"

	"github.com/google/uuid"
)

// MessageType 领域事件类型
type MessageType string

const (
	MessageTypeFavoriteAdded    MessageType = "favorite.added"
	MessageTypeFavoriteRemoved  MessageType = "favorite.removed"
	MessageTypeRatingUpdated    MessageType = "rating.updated"
	MessageTypeCommentPosted    MessageType = "comment.posted"
	MessageTypeAggregateUpdated MessageType = "aggregate.updated"
)

// Message 已提交变更的领域事件
type Message struct {
	ID         string                 `json:"id"`
	Type       MessageType            `json:"type"`
	UserID     int64                  `json:"user_id,omitempty"`
	MovieID    int64                  `json:"movie_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	InstanceID string                 `json:"instance_id,omitempty"` // 发送实例ID
}

// NewMessage 创建事件
func NewMessage(t MessageType, userID, movieID int64, data map[string]interface{}) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      t,
		UserID:    userID,
		MovieID:   movieID,
		Data:      data,
		Timestamp: time.Now(),
	}
}
