package model

import "time"

// UserID uniquely identifies an identity (anonymous or authenticated) across the system
type UserID int64

// RoomURI identifies a room by its opaque URI string
type RoomURI string

// User is the base identity record. Anonymous identities are Users with no
// linked Account; authenticated identities additionally have an Account row.
type User struct {
	ID        UserID
	CreatedAt time.Time
}

// Account extends a User with authentication data
// Stored separately so credential hashes never travel with membership data
type Account struct {
	UserID       UserID
	Username     string // login username, globally unique
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}

// Member is a user's membership in a single room, carrying the room-local
// display name. Anonymous users have exactly one membership for their lifetime;
// authenticated users may hold many.
type Member struct {
	RoomURI  RoomURI
	UserID   UserID
	Name     string
	IsAuth   bool
	JoinedAt time.Time
}
