package redis

import (
	"fmt"
	"strings"
)

const (
	// KeyPrefixBookmark is the prefix for bookmark row keys
	KeyPrefixBookmark = "smartmark:bookmark:"
	// KeyPrefixUser is the prefix for per-user keys
	KeyPrefixUser = "smartmark:user:"
	// KeyPrefixUserEmail maps a lowercased email to a user id
	KeyPrefixUserEmail = "smartmark:user:email:"
	// KeyPrefixSession is the prefix for session keys
	KeyPrefixSession = "smartmark:session:"
	// KeyAllUsers is the set of all user ids
	KeyAllUsers = "smartmark:users:all"

	// ChannelPrefixChanges is the pub/sub channel prefix for row changes
	ChannelPrefixChanges = "smartmark:changes:"
	// ChannelRevoked carries the ids of revoked sessions
	ChannelRevoked = "smartmark:sessions:revoked"
)

// BookmarkKey returns the Redis key for a bookmark row
func BookmarkKey(id string) string {
	return KeyPrefixBookmark + id
}

// UserBookmarksKey returns the sorted set of a user's bookmark ids,
// scored by created_at in milliseconds
func UserBookmarksKey(userID string) string {
	return KeyPrefixUser + userID + ":bookmarks"
}

// UserEmailKey returns the key holding the user id for email
func UserEmailKey(email string) string {
	return KeyPrefixUserEmail + email
}

// SessionKey returns the Redis key for a session
func SessionKey(id string) string {
	return KeyPrefixSession + id
}

// AllUsersKey returns the key for the set of all user ids
func AllUsersKey() string {
	return KeyAllUsers
}

// ChangesChannel returns the pub/sub channel for a user's row changes
func ChangesChannel(userID string) string {
	return ChannelPrefixChanges + userID
}

// ChangesPattern matches every ChangesChannel
func ChangesPattern() string {
	return ChannelPrefixChanges + "*"
}

// ExtractUserID extracts the user id from a changes channel name
func ExtractUserID(channel string) (string, error) {
	if !strings.HasPrefix(channel, ChannelPrefixChanges) || len(channel) <= len(ChannelPrefixChanges) {
		return "", fmt.Errorf("invalid changes channel: %s", channel)
	}
	return channel[len(ChannelPrefixChanges):], nil
}
