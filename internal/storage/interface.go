package storage

import (
	"context"
	"errors"

	"github.com/wheremyfriends/webapp/internal/model"
)

// ErrContention is returned by UpsertModuleLesson when an optimistic
// transaction loses a race with a concurrent writer. Callers are expected to
// retry the whole operation; it is never surfaced to API callers.
var ErrContention = errors.New("concurrent modification")

// LessonFilter selects lessons either by the room their owners are members of,
// or by a single owner. Exactly one field should be set.
type LessonFilter struct {
	RoomURI model.RoomURI
	OwnerID model.UserID
}

// Store defines the interface for data persistence
type Store interface {
	// Room operations
	CreateRoomIfAbsent(ctx context.Context, uri model.RoomURI) error
	RoomExists(ctx context.Context, uri model.RoomURI) (bool, error)

	// Membership operations
	//
	// CreateAnonymousUser allocates a fresh anonymous identity bound to the
	// room (creating the room if absent). Fails with model.ErrConflict if the
	// display name is already taken in the room.
	CreateAnonymousUser(ctx context.Context, uri model.RoomURI, name string) (*model.Member, error)
	GetMember(ctx context.Context, uri model.RoomURI, id model.UserID) (*model.Member, error)
	// RenameMember updates the room-local display name of any member.
	// Fails with model.ErrNotFound if the (room, id) pair is not a membership,
	// model.ErrConflict if the name is taken by another member of the room.
	RenameMember(ctx context.Context, uri model.RoomURI, id model.UserID, newName string) error
	// DeleteAnonymousUser destroys an anonymous identity and its membership.
	// Fails with model.ErrNotFound if the user is not a member of the room.
	DeleteAnonymousUser(ctx context.Context, uri model.RoomURI, id model.UserID) (*model.Member, error)
	// JoinRoom adds an authenticated user to a room (creating the room if
	// absent), using the account username as display name. Fails with
	// model.ErrConflict if already a member or the name is taken.
	JoinRoom(ctx context.Context, uri model.RoomURI, id model.UserID) (*model.Member, error)
	// LeaveRoom removes an authenticated user's membership without touching
	// the identity or its config
	LeaveRoom(ctx context.Context, uri model.RoomURI, id model.UserID) error
	ListMembers(ctx context.Context, uri model.RoomURI) ([]*model.Member, error)
	ListRoomsForUser(ctx context.Context, id model.UserID) ([]model.RoomURI, error)
	IsAuthUser(ctx context.Context, id model.UserID) (bool, error)

	// Timetable operations
	//
	// UpsertModuleLesson creates the module if absent and attaches the lesson.
	// Returns ErrContention when an optimistic transaction races another
	// writer, model.ErrConflict when the lesson itself already exists.
	UpsertModuleLesson(ctx context.Context, lesson model.Lesson) error
	// Deletes are idempotent: removing an absent lesson/module is not an error
	DeleteLesson(ctx context.Context, lesson model.Lesson) error
	DeleteModule(ctx context.Context, key model.ModuleKey) error
	DeleteSemester(ctx context.Context, owner model.UserID, semester int) error
	ListLessons(ctx context.Context, filter LessonFilter) ([]model.Lesson, error)

	// Config operations (latest-write-wins JSON blob per authenticated user)
	GetConfig(ctx context.Context, owner model.UserID) (string, error)
	SetConfig(ctx context.Context, owner model.UserID, data string) error

	// Account operations
	//
	// CreateAccount fails with model.ErrConflict if the username is taken
	CreateAccount(ctx context.Context, username, passwordHash string) (*model.Account, error)
	GetAccount(ctx context.Context, id model.UserID) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
}
