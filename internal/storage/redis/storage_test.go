package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

// brokenPipelines fails every pipeline exec while single commands keep
// working, so the name claim succeeds but the member write does not
type brokenPipelines struct{}

func (brokenPipelines) DialHook(next redis.DialHook) redis.DialHook { return next }

func (brokenPipelines) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (brokenPipelines) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		return errors.New("pipeline write failed")
	}
}

// brokenStorage returns a second storage on the same miniredis whose
// pipeline writes always fail
func (s *StorageSuite) brokenStorage() *Storage {
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	client.AddHook(brokenPipelines{})
	s.T().Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, DefaultConfig())
}

// Membership tests

func (s *StorageSuite) TestCreateAnonymousUserRoundTrip() {
	member, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)

	got, err := s.storage.GetMember(s.ctx, "room1", member.UserID)
	s.Require().NoError(err)
	s.Equal("user 1", got.Name)
	s.False(got.IsAuth)

	exists, err := s.storage.RoomExists(s.ctx, "room1")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestCreateAnonymousUserDuplicateNameConflicts() {
	_, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)

	_, err = s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.ErrorIs(err, model.ErrConflict)
}

func (s *StorageSuite) TestCreateAnonymousUserReleasesNameOnWriteFailure() {
	_, err := s.brokenStorage().CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().Error(err)

	members, err := s.storage.ListMembers(s.ctx, "room1")
	s.Require().NoError(err)
	s.Empty(members)

	// The failed attempt must not keep the name claimed
	member, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	s.Equal("user 1", member.Name)
}

func (s *StorageSuite) TestRenameMemberReclaimsOldName() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)

	s.Require().NoError(s.storage.RenameMember(s.ctx, "room1", m.UserID, "renamed"))

	// Old name is free again
	_, err = s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.NoError(err)
}

func (s *StorageSuite) TestRenameMemberToTakenNameConflicts() {
	_, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	m2, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 2")
	s.Require().NoError(err)

	err = s.storage.RenameMember(s.ctx, "room1", m2.UserID, "user 1")
	s.ErrorIs(err, model.ErrConflict)
}

func (s *StorageSuite) TestRenameUnknownMemberNotFound() {
	err := s.storage.RenameMember(s.ctx, "room1", 99, "name")
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *StorageSuite) TestDeleteAnonymousUserCascades() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, model.Lesson{
		OwnerID: m.UserID, Semester: 1, ModuleCode: "CS1101S", LessonType: "Lecture", ClassNo: "1",
	}))
	s.Require().NoError(s.storage.SetConfig(s.ctx, m.UserID, `{}`))

	_, err = s.storage.DeleteAnonymousUser(s.ctx, "room1", m.UserID)
	s.Require().NoError(err)

	_, err = s.storage.GetMember(s.ctx, "room1", m.UserID)
	s.ErrorIs(err, model.ErrNotFound)
	lessons, err := s.storage.ListLessons(s.ctx, storage.LessonFilter{OwnerID: m.UserID})
	s.Require().NoError(err)
	s.Empty(lessons)
	_, err = s.storage.GetConfig(s.ctx, m.UserID)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *StorageSuite) TestJoinAndLeaveRoom() {
	account, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)

	member, err := s.storage.JoinRoom(s.ctx, "room1", account.UserID)
	s.Require().NoError(err)
	s.Equal("alice", member.Name)
	s.True(member.IsAuth)

	rooms, err := s.storage.ListRoomsForUser(s.ctx, account.UserID)
	s.Require().NoError(err)
	s.Equal([]model.RoomURI{"room1"}, rooms)

	s.Require().NoError(s.storage.LeaveRoom(s.ctx, "room1", account.UserID))

	rooms, err = s.storage.ListRoomsForUser(s.ctx, account.UserID)
	s.Require().NoError(err)
	s.Empty(rooms)

	// Account survives leaving
	_, err = s.storage.GetAccount(s.ctx, account.UserID)
	s.NoError(err)
}

func (s *StorageSuite) TestJoinRoomTwiceConflicts() {
	account, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)
	_, err = s.storage.JoinRoom(s.ctx, "room1", account.UserID)
	s.Require().NoError(err)

	_, err = s.storage.JoinRoom(s.ctx, "room1", account.UserID)
	s.ErrorIs(err, model.ErrConflict)
}

func (s *StorageSuite) TestJoinRoomReleasesNameOnWriteFailure() {
	account, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)

	_, err = s.brokenStorage().JoinRoom(s.ctx, "room1", account.UserID)
	s.Require().Error(err)

	member, err := s.storage.JoinRoom(s.ctx, "room1", account.UserID)
	s.Require().NoError(err)
	s.Equal("alice", member.Name)
}

func (s *StorageSuite) TestListMembers() {
	_, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	_, err = s.storage.CreateAnonymousUser(s.ctx, "room1", "user 2")
	s.Require().NoError(err)

	members, err := s.storage.ListMembers(s.ctx, "room1")
	s.Require().NoError(err)
	s.Len(members, 2)
}

// Timetable tests

func (s *StorageSuite) TestUpsertDuplicateLessonConflicts() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	lesson := model.Lesson{OwnerID: m.UserID, Semester: 1, ModuleCode: "CS1101S", LessonType: "Lecture", ClassNo: "1"}
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, lesson))

	err = s.storage.UpsertModuleLesson(s.ctx, lesson)
	s.ErrorIs(err, model.ErrConflict)
}

func (s *StorageSuite) TestUpsertLessonForUnknownOwnerNotFound() {
	err := s.storage.UpsertModuleLesson(s.ctx, model.Lesson{
		OwnerID: 99, Semester: 1, ModuleCode: "CS1101S", LessonType: "Lecture", ClassNo: "1",
	})
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *StorageSuite) TestDeleteModuleCascades() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	for _, classNo := range []string{"1", "2", "3"} {
		s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, model.Lesson{
			OwnerID: m.UserID, Semester: 1, ModuleCode: "CS1101S", LessonType: "Tutorial", ClassNo: classNo,
		}))
	}

	s.Require().NoError(s.storage.DeleteModule(s.ctx, model.ModuleKey{OwnerID: m.UserID, Semester: 1, ModuleCode: "CS1101S"}))

	lessons, err := s.storage.ListLessons(s.ctx, storage.LessonFilter{OwnerID: m.UserID})
	s.Require().NoError(err)
	s.Empty(lessons)
}

func (s *StorageSuite) TestDeleteSemester() {
	m, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, model.Lesson{
		OwnerID: m.UserID, Semester: 1, ModuleCode: "CS1101S", LessonType: "Lecture", ClassNo: "1",
	}))
	s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, model.Lesson{
		OwnerID: m.UserID, Semester: 2, ModuleCode: "CS2030", LessonType: "Lecture", ClassNo: "1",
	}))

	s.Require().NoError(s.storage.DeleteSemester(s.ctx, m.UserID, 1))

	lessons, err := s.storage.ListLessons(s.ctx, storage.LessonFilter{OwnerID: m.UserID})
	s.Require().NoError(err)
	s.Len(lessons, 1)
	s.Equal(2, lessons[0].Semester)
}

func (s *StorageSuite) TestListLessonsByRoom() {
	m1, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 1")
	s.Require().NoError(err)
	m2, err := s.storage.CreateAnonymousUser(s.ctx, "room1", "user 2")
	s.Require().NoError(err)
	other, err := s.storage.CreateAnonymousUser(s.ctx, "room2", "user 3")
	s.Require().NoError(err)

	for _, owner := range []model.UserID{m1.UserID, m2.UserID, other.UserID} {
		s.Require().NoError(s.storage.UpsertModuleLesson(s.ctx, model.Lesson{
			OwnerID: owner, Semester: 1, ModuleCode: "CS1101S", LessonType: "Lecture", ClassNo: "1",
		}))
	}

	lessons, err := s.storage.ListLessons(s.ctx, storage.LessonFilter{RoomURI: "room1"})
	s.Require().NoError(err)
	s.Len(lessons, 2)
}

// Config tests

func (s *StorageSuite) TestConfigRoundTrip() {
	account, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)

	_, err = s.storage.GetConfig(s.ctx, account.UserID)
	s.ErrorIs(err, model.ErrNotFound)

	s.Require().NoError(s.storage.SetConfig(s.ctx, account.UserID, `{"theme":"dark"}`))

	data, err := s.storage.GetConfig(s.ctx, account.UserID)
	s.Require().NoError(err)
	s.Equal(`{"theme":"dark"}`, data)
}

// Account tests

func (s *StorageSuite) TestCreateAccountDuplicateUsernameConflicts() {
	_, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)

	_, err = s.storage.CreateAccount(s.ctx, "alice", "other")
	s.ErrorIs(err, model.ErrConflict)
}

func (s *StorageSuite) TestGetAccountByUsername() {
	created, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)

	got, err := s.storage.GetAccountByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(created.UserID, got.UserID)

	_, err = s.storage.GetAccountByUsername(s.ctx, "bob")
	s.ErrorIs(err, model.ErrNotFound)
}
