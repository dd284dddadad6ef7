package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

// Membership tests

func (s *StorageSuite) TestCreateAnonymousUserCreatesRoom() {
	member, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	s.Equal(model.RoomURI("room1"), member.RoomURI)
	s.Equal("user 1", member.Name)
	s.False(member.IsAuth)

	exists, err := s.storage.RoomExists(s.ctx, "room1")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestCreateAnonymousUserAllocatesDistinctIDs() {
	m1, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	m2, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 2")
	s.Require().NoError(err)
	s.NotEqual(m1.UserID, m2.UserID)
}

func (s *StorageSuite) TestCreateAnonymousUserDuplicateNameConflicts() {
	_, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)

	_, err = s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.ErrorIs(err, model.ErrConflict)
}

func (s *StorageSuite) TestSameNameAllowedInDifferentRooms() {
	_, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)

	_, err = s.storage.CreateAnonymousUser(s.ctx, "room2", "user 1")
	s.NoError(err)
}

func (s *StorageSuite) TestRenameMemberToTakenNameConflicts() {
	_, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	m2, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 2")
	s.Require().NoError(err)

	err = s.storage.RenameMember(s.ctx, "room1", m2.UserID, "user 1")
	s.ErrorIs(err, model.ErrConflict)

	// State unchanged
	member, err := s.storage.GetMember(s.ctx, "room1", m2.UserID)
	s.Require().NoError(err)
	s.Equal("user 2", member.Name)
}

func (s *StorageSuite) TestRenameMemberToOwnNameSucceeds() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)

	s.NoError(s.storage.RenameMember(s.ctx, "room1", m.UserID, "user 1"))
}

func (s *StorageSuite) TestRenameMemberDoesNotMutateSharedStructs() {
	member, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 0")
	s.Require().NoError(err)

	// Concurrent renames against snapshot reads, the path a member-stream
	// subscriber takes while another caller renames. Run under -race.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 100; i++ {
			err := s.storage.RenameMember(s.ctx, "room1", member.UserID, fmt.Sprintf("user %d", i))
			s.NoError(err)
		}
	}()

	for i := 0; i < 100; i++ {
		members, err := s.storage.ListMembers(s.ctx, "room1")
		s.Require().NoError(err)
		s.Require().Len(members, 1)
		s.NotEmpty(members[0].Name)
	}
	<-done

	// The caller-held struct is a snapshot from before the renames
	s.Equal("user 0", member.Name)

	got, err := s.storage.GetMember(s.ctx, "room1", member.UserID)
	s.Require().NoError(err)
	s.Equal("user 100", got.Name)
}

func (s *StorageSuite) TestRenameUnknownMemberNotFound() {
	_, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)

	err = s.storage.RenameMember(s.ctx, "room1", 99, "new name")
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *StorageSuite) TestDeleteAnonymousUserInEmptyRoomNotFound() {
	s.Require().NoError(s.storage.CreateRoomIfAbsent(s.ctx, "room1"))

	_, err := s.storage.DeleteAnonymousUser(s.ctx, "room1", 99)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *StorageSuite) TestDeleteAnonymousUserRemovesEverything() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, model.Lesson{
		OwnerID: m.UserID, Semester: 1, ModuleCode: "CS1101S", LessonType: "Lecture", ClassNo: "1",
	}))

	deleted, err := s.storage.DeleteAnonymousUser(s.ctx, "room1", m.UserID)
	s.Require().NoError(err)
	s.Equal(m.UserID, deleted.UserID)

	_, err = s.storage.GetMember(s.ctx, "room1", m.UserID)
	s.ErrorIs(err, model.ErrNotFound)

	lessons, err := s.storage.ListLessons(s.ctx, storage.LessonFilter{OwnerID: m.UserID})
	s.Require().NoError(err)
	s.Empty(lessons)
}

func (s *StorageSuite) TestJoinRoomUsesUsername() {
	account, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)

	member, err := s.storage.JoinRoom(s.ctx, "room1", account.UserID)
	s.Require().NoError(err)
	s.Equal("alice", member.Name)
	s.True(member.IsAuth)
}

func (s *StorageSuite) TestJoinRoomTwiceConflicts() {
	account, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)
	_, err = s.storage.JoinRoom(s.ctx, "room1", account.UserID)
	s.Require().NoError(err)

	_, err = s.storage.JoinRoom(s.ctx, "room1", account.UserID)
	s.ErrorIs(err, model.ErrConflict)
}

func (s *StorageSuite) TestJoinRoomUnknownAccountNotFound() {
	_, err := s.storage.JoinRoom(s.ctx, "room1", 42)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *StorageSuite) TestLeaveRoomKeepsAccount() {
	account, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.SetConfig(s.ctx, account.UserID, `{"theme":"dark"}`))
	_, err = s.storage.JoinRoom(s.ctx, "room1", account.UserID)
	s.Require().NoError(err)

	s.Require().NoError(s.storage.LeaveRoom(s.ctx, "room1", account.UserID))

	_, err = s.storage.GetMember(s.ctx, "room1", account.UserID)
	s.ErrorIs(err, model.ErrNotFound)

	// Identity and config survive
	got, err := s.storage.GetAccount(s.ctx, account.UserID)
	s.Require().NoError(err)
	s.Equal("alice", got.Username)
	cfg, err := s.storage.GetConfig(s.ctx, account.UserID)
	s.Require().NoError(err)
	s.Equal(`{"theme":"dark"}`, cfg)
}

func (s *StorageSuite) TestListRoomsForUser() {
	account, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)
	_, err = s.storage.JoinRoom(s.ctx, "room-b", account.UserID)
	s.Require().NoError(err)
	_, err = s.storage.JoinRoom(s.ctx, "room-a", account.UserID)
	s.Require().NoError(err)

	rooms, err := s.storage.ListRoomsForUser(s.ctx, account.UserID)
	s.Require().NoError(err)
	s.Equal([]model.RoomURI{"room-a", "room-b"}, rooms)
}

func (s *StorageSuite) TestIsAuthUser() {
	account, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)
	anon, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)

	isAuth, err := s.storage.IsAuthUser(s.ctx, account.UserID)
	s.Require().NoError(err)
	s.True(isAuth)

	isAuth, err = s.storage.IsAuthUser(s.ctx, anon.UserID)
	s.Require().NoError(err)
	s.False(isAuth)
}

// Timetable tests

func (s *StorageSuite) lesson(owner model.UserID, code, lessonType, classNo string) model.Lesson {
	return model.Lesson{OwnerID: owner, Semester: 1, ModuleCode: code, LessonType: lessonType, ClassNo: classNo}
}

func (s *StorageSuite) TestUpsertModuleLessonCreatesModuleOnce() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)

	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, s.lesson(m.UserID, "CS1101S", "Lecture", "1")))
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, s.lesson(m.UserID, "CS1101S", "Tutorial", "08")))

	lessons, err := s.storage.ListLessons(s.ctx, storage.LessonFilter{OwnerID: m.UserID})
	s.Require().NoError(err)
	s.Len(lessons, 2)
}

func (s *StorageSuite) TestUpsertDuplicateLessonConflicts() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	lesson := s.lesson(m.UserID, "CS1101S", "Lecture", "1")
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, lesson))

	err = s.storage.UpsertModuleLesson(s.ctx, lesson)
	s.ErrorIs(err, model.ErrConflict)
}

func (s *StorageSuite) TestUpsertLessonForUnknownOwnerNotFound() {
	err := s.storage.UpsertModuleLesson(s.ctx, s.lesson(99, "CS1101S", "Lecture", "1"))
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *StorageSuite) TestDeleteLessonIsIdempotent() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	lesson := s.lesson(m.UserID, "CS1101S", "Lecture", "1")
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, lesson))

	s.NoError(s.storage.DeleteLesson(s.ctx, lesson))
	s.NoError(s.storage.DeleteLesson(s.ctx, lesson))
}

func (s *StorageSuite) TestDeleteModuleCascades() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, s.lesson(m.UserID, "CS1101S", "Lecture", "1")))
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, s.lesson(m.UserID, "CS1101S", "Tutorial", "08")))
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, s.lesson(m.UserID, "MA1521", "Lecture", "2")))

	s.Require().NoError(s.storage.DeleteModule(s.ctx, model.ModuleKey{OwnerID: m.UserID, Semester: 1, ModuleCode: "CS1101S"}))

	lessons, err := s.storage.ListLessons(s.ctx, storage.LessonFilter{OwnerID: m.UserID})
	s.Require().NoError(err)
	s.Len(lessons, 1)
	s.Equal("MA1521", lessons[0].ModuleCode)
}

func (s *StorageSuite) TestDeleteSemesterRemovesOnlyThatSemester() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, s.lesson(m.UserID, "CS1101S", "Lecture", "1")))
	other := model.Lesson{OwnerID: m.UserID, Semester: 2, ModuleCode: "CS2030", LessonType: "Lecture", ClassNo: "1"}
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, other))

	s.Require().NoError(s.storage.DeleteSemester(s.ctx, m.UserID, 1))

	lessons, err := s.storage.ListLessons(s.ctx, storage.LessonFilter{OwnerID: m.UserID})
	s.Require().NoError(err)
	s.Len(lessons, 1)
	s.Equal(2, lessons[0].Semester)
}

func (s *StorageSuite) TestListLessonsByRoomSpansMembers() {
	m1, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	m2, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 2")
	s.Require().NoError(err)
	outsider, err := s.storage.CreateAnonymousUser(s.ctx, "room2", "user 3")
	s.Require().NoError(err)

	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, s.lesson(m1.UserID, "CS1101S", "Lecture", "1")))
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, s.lesson(m2.UserID, "MA1521", "Lecture", "2")))
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, s.lesson(outsider.UserID, "GER1000", "Tutorial", "3")))

	lessons, err := s.storage.ListLessons(s.ctx, storage.LessonFilter{RoomURI: "room1"})
	s.Require().NoError(err)
	s.Len(lessons, 2)
}

// Config tests

func (s *StorageSuite) TestGetConfigAbsentNotFound() {
	_, err := s.storage.GetConfig(s.ctx, 1)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *StorageSuite) TestSetConfigLatestWriteWins() {
	account, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)

	s.Require().NoError(s.storage.SetConfig(s.ctx, account.UserID, `{"v":1}`))
	s.Require().NoError(s.storage.SetConfig(s.ctx, account.UserID, `{"v":2}`))

	data, err := s.storage.GetConfig(s.ctx, account.UserID)
	s.Require().NoError(err)
	s.Equal(`{"v":2}`, data)
}

// Account tests

func (s *StorageSuite) TestCreateAccountDuplicateUsernameConflicts() {
	first, err := s.storage.CreateAccount(s.ctx, "alice", "hash1")
	s.Require().NoError(err)

	_, err = s.storage.CreateAccount(s.ctx, "alice", "hash2")
	s.ErrorIs(err, model.ErrConflict)

	// Original account untouched
	got, err := s.storage.GetAccountByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(first.UserID, got.UserID)
	s.Equal("hash1", got.PasswordHash)
}

func (s *StorageSuite) TestGetAccountByUsernameNotFound() {
	_, err := s.storage.GetAccountByUsername(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrNotFound)
}
