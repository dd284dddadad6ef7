package redis

import (
	"fmt"

	"github.com/wheremyfriends/webapp/internal/model"
)

// Key prefix for all application data
const keyPrefix = "wmf"

// Key generation functions for each entity type

// userNextIDKey returns the Redis key for the user id counter
func userNextIDKey() string {
	return fmt.Sprintf("%s:user:next_id", keyPrefix)
}

// userKey returns the Redis key for a User identity record
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%d", keyPrefix, id)
}

// accountKey returns the Redis key for an Account
func accountKey(id model.UserID) string {
	return fmt.Sprintf("%s:account:%d", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// roomKey returns the Redis key marking a room's existence
func roomKey(uri model.RoomURI) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, uri)
}

// roomMembersKey returns the Redis key for the HASH of user_id -> member JSON
func roomMembersKey(uri model.RoomURI) string {
	return fmt.Sprintf("%s:room:%s:members", keyPrefix, uri)
}

// roomNamesKey returns the Redis key for the HASH enforcing per-room display
// name uniqueness (name -> user_id)
func roomNamesKey(uri model.RoomURI) string {
	return fmt.Sprintf("%s:room:%s:names", keyPrefix, uri)
}

// userRoomsKey returns the Redis key for the SET of rooms a user is a member of
func userRoomsKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%d:rooms", keyPrefix, id)
}

// moduleKey returns the Redis key for the SET of lesson entries in a module
func moduleKey(key model.ModuleKey) string {
	return fmt.Sprintf("%s:module:%d:%d:%s", keyPrefix, key.OwnerID, key.Semester, key.ModuleCode)
}

// userModulesKey returns the Redis key for the SET of a user's module fields
// (each field is "semester|moduleCode")
func userModulesKey(id model.UserID) string {
	return fmt.Sprintf("%s:idx:modules:%d", keyPrefix, id)
}

// configKey returns the Redis key for a user's config blob
func configKey(id model.UserID) string {
	return fmt.Sprintf("%s:config:%d", keyPrefix, id)
}
