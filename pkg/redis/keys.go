package redis

import (
	"strconv"
	"strings"
)

// Key naming conventions for Redis keys.
// All keys follow the pattern: {namespace}:{entity}:{id}:{field}
//
// Example: "ms:sync:user:123" for user 123's event channel

// KeyNamespace is the prefix of every key and channel.
const KeyNamespace = "ms"

// KeyBuilder helps build Redis keys following naming conventions.
type KeyBuilder struct {
	parts []string
}

// NewKeyBuilder creates a new key builder.
func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{parts: []string{KeyNamespace}}
}

// Entity adds an entity type to the key.
func (kb *KeyBuilder) Entity(entity string) *KeyBuilder {
	kb.parts = append(kb.parts, entity)
	return kb
}

// ID adds an ID to the key.
func (kb *KeyBuilder) ID(id string) *KeyBuilder {
	kb.parts = append(kb.parts, id)
	return kb
}

// Field adds a field name to the key.
func (kb *KeyBuilder) Field(field string) *KeyBuilder {
	kb.parts = append(kb.parts, field)
	return kb
}

// Build constructs the final key string.
func (kb *KeyBuilder) Build() string {
	return strings.Join(kb.parts, ":")
}

// UserEventChannel is the per-user domain event channel.
// Example: ms:sync:user:123
func UserEventChannel(userID int64) string {
	return NewKeyBuilder().Entity("sync").Entity("user").ID(strconv.FormatInt(userID, 10)).Build()
}

// MovieEventChannel is the per-movie aggregate channel.
// Example: ms:sync:movie:42
func MovieEventChannel(movieID int64) string {
	return NewKeyBuilder().Entity("sync").Entity("movie").ID(strconv.FormatInt(movieID, 10)).Build()
}

// EventChannelPattern matches every domain event channel.
func EventChannelPattern() string {
	return NewKeyBuilder().Entity("sync").Build() + ":*"
}

// ClientStorageKey is a client storage slot shared by the processes of one device.
// Example: ms:client:device-1:token
func ClientStorageKey(namespace, key string) string {
	return NewKeyBuilder().Entity("client").ID(namespace).Field(key).Build()
}

// ClientStorageChannel carries change notifications for a client namespace.
// Example: ms:client:device-1:changes
func ClientStorageChannel(namespace string) string {
	return NewKeyBuilder().Entity("client").ID(namespace).Field("changes").Build()
}

// RateLimitKey is a fixed-window counter for one scope and subject.
// Example: ms:ratelimit:auth:10.0.0.1
func RateLimitKey(scope, subject string) string {
	return NewKeyBuilder().Entity("ratelimit").Entity(scope).ID(subject).Build()
}
