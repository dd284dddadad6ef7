package timetable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/wheremyfriends/webapp/internal/bus"
	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/services/guard"
	"github.com/wheremyfriends/webapp/internal/storage"
	"github.com/wheremyfriends/webapp/internal/storage/memory"
	"github.com/wheremyfriends/webapp/internal/testutil"
)

// contentiousStore fails the first N upsert attempts with ErrContention,
// simulating lost optimistic transactions on the redis backend
type contentiousStore struct {
	storage.Store
	failures int
	attempts int
}

func (c *contentiousStore) UpsertModuleLesson(ctx context.Context, lesson model.Lesson) error {
	c.attempts++
	if c.attempts <= c.failures {
		return storage.ErrContention
	}
	return c.Store.UpsertModuleLesson(ctx, lesson)
}

type ServiceSuite struct {
	suite.Suite
	storage  *memory.Storage
	exchange *bus.Exchange
	service  *Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.exchange = bus.NewExchange(testutil.NopLogger())
	guardService := guard.New(s.storage, testutil.NopLogger())
	s.service = New(s.storage, guardService, s.exchange, DefaultConfig(), testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) TearDownTest() {
	s.exchange.Close()
}

func (s *ServiceSuite) newMember(uri model.RoomURI, name string) *model.Member {
	member, err := s.storage.CreateAnonymousUser(s.ctx, uri, name)
	s.Require().NoError(err)
	return member
}

func (s *ServiceSuite) recvLesson(sub *bus.Subscription[model.LessonEvent]) model.LessonEvent {
	select {
	case event := <-sub.C():
		return event
	case <-time.After(time.Second):
		s.T().Fatal("timed out waiting for lesson event")
		panic("unreachable")
	}
}

func (s *ServiceSuite) expectNoLesson(sub *bus.Subscription[model.LessonEvent]) {
	select {
	case event := <-sub.C():
		s.T().Fatalf("unexpected lesson event: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func lessonFor(owner model.UserID) model.Lesson {
	return model.Lesson{
		OwnerID:    owner,
		Semester:   1,
		ModuleCode: "CS1101S",
		LessonType: "Lecture",
		ClassNo:    "1",
	}
}

// CreateLesson tests

func (s *ServiceSuite) TestCreateLessonStoresAndPublishes() {
	member := s.newMember("room1", "user 1")
	sub := s.exchange.Lessons.Subscribe("room1")
	defer sub.Close()

	s.Require().NoError(s.service.CreateLesson(s.ctx, "room1", lessonFor(member.UserID), nil))

	event := s.recvLesson(sub)
	s.Equal(model.ActionCreateLesson, event.Action)
	s.Equal(member.UserID, event.UserID)
	s.Equal("CS1101S", event.ModuleCode)
	s.Equal("Lecture", event.LessonType)

	lessons, err := s.storage.ListLessons(s.ctx, storage.LessonFilter{OwnerID: member.UserID})
	s.Require().NoError(err)
	s.Len(lessons, 1)
}

func (s *ServiceSuite) TestCreateLessonOutsideMembershipNotFound() {
	member := s.newMember("room1", "user 1")

	err := s.service.CreateLesson(s.ctx, "room2", lessonFor(member.UserID), nil)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *ServiceSuite) TestCreateDuplicateLessonConflicts() {
	member := s.newMember("room1", "user 1")
	s.Require().NoError(s.service.CreateLesson(s.ctx, "room1", lessonFor(member.UserID), nil))

	err := s.service.CreateLesson(s.ctx, "room1", lessonFor(member.UserID), nil)
	s.ErrorIs(err, model.ErrConflict)
}

func (s *ServiceSuite) TestCreateLessonRetriesContention() {
	member := s.newMember("room1", "user 1")
	store := &contentiousStore{Store: s.storage, failures: 3}
	guardService := guard.New(store, testutil.NopLogger())
	service := New(store, guardService, s.exchange, DefaultConfig(), testutil.NopLogger())

	s.Require().NoError(service.CreateLesson(s.ctx, "room1", lessonFor(member.UserID), nil))
	s.Equal(4, store.attempts)
}

func (s *ServiceSuite) TestCreateLessonExhaustsRetryBudget() {
	member := s.newMember("room1", "user 1")
	store := &contentiousStore{Store: s.storage, failures: 100}
	guardService := guard.New(store, testutil.NopLogger())
	service := New(store, guardService, s.exchange, Config{MaxUpsertAttempts: 3}, testutil.NopLogger())

	sub := s.exchange.Lessons.Subscribe("room1")
	defer sub.Close()

	err := service.CreateLesson(s.ctx, "room1", lessonFor(member.UserID), nil)
	s.ErrorIs(err, model.ErrContentionExceeded)
	s.Equal(3, store.attempts)
	s.expectNoLesson(sub)
}

func (s *ServiceSuite) TestCreateLessonFansOutToAllOwnerRooms() {
	account, err := s.storage.CreateAccount(s.ctx, "alice", "hash")
	s.Require().NoError(err)
	_, err = s.storage.JoinRoom(s.ctx, "room1", account.UserID)
	s.Require().NoError(err)
	_, err = s.storage.JoinRoom(s.ctx, "room2", account.UserID)
	s.Require().NoError(err)

	sub1 := s.exchange.Lessons.Subscribe("room1")
	defer sub1.Close()
	sub2 := s.exchange.Lessons.Subscribe("room2")
	defer sub2.Close()

	s.Require().NoError(s.service.CreateLesson(s.ctx, "room1", lessonFor(account.UserID), account))

	s.Equal(model.ActionCreateLesson, s.recvLesson(sub1).Action)
	s.Equal(model.ActionCreateLesson, s.recvLesson(sub2).Action)
}

// DeleteLesson tests

func (s *ServiceSuite) TestDeleteLessonPublishes() {
	member := s.newMember("room1", "user 1")
	s.Require().NoError(s.service.CreateLesson(s.ctx, "room1", lessonFor(member.UserID), nil))

	sub := s.exchange.Lessons.Subscribe("room1")
	defer sub.Close()

	s.Require().NoError(s.service.DeleteLesson(s.ctx, "room1", lessonFor(member.UserID), nil))

	event := s.recvLesson(sub)
	s.Equal(model.ActionDeleteLesson, event.Action)
	s.Equal("1", event.ClassNo)
}

func (s *ServiceSuite) TestDeleteAbsentLessonStillPublishes() {
	member := s.newMember("room1", "user 1")

	sub := s.exchange.Lessons.Subscribe("room1")
	defer sub.Close()

	s.Require().NoError(s.service.DeleteLesson(s.ctx, "room1", lessonFor(member.UserID), nil))
	s.Equal(model.ActionDeleteLesson, s.recvLesson(sub).Action)
}

// DeleteModule tests

func (s *ServiceSuite) TestDeleteModulePublishesSingleEvent() {
	member := s.newMember("room1", "user 1")
	for _, classNo := range []string{"1", "2"} {
		lesson := lessonFor(member.UserID)
		lesson.ClassNo = classNo
		s.Require().NoError(s.service.CreateLesson(s.ctx, "room1", lesson, nil))
	}

	sub := s.exchange.Lessons.Subscribe("room1")
	defer sub.Close()

	key := model.ModuleKey{OwnerID: member.UserID, Semester: 1, ModuleCode: "CS1101S"}
	s.Require().NoError(s.service.DeleteModule(s.ctx, "room1", key, nil))

	event := s.recvLesson(sub)
	s.Equal(model.ActionDeleteModule, event.Action)
	s.Equal("CS1101S", event.ModuleCode)
	s.Empty(event.LessonType)
	s.Empty(event.ClassNo)
	s.expectNoLesson(sub)
}

// ResetTimetable tests

func (s *ServiceSuite) TestResetTimetableClearsSemester() {
	member := s.newMember("room1", "user 1")
	s.Require().NoError(s.service.CreateLesson(s.ctx, "room1", lessonFor(member.UserID), nil))
	other := lessonFor(member.UserID)
	other.Semester = 2
	s.Require().NoError(s.service.CreateLesson(s.ctx, "room1", other, nil))

	sub := s.exchange.Lessons.Subscribe("room1")
	defer sub.Close()

	s.Require().NoError(s.service.ResetTimetable(s.ctx, "room1", member.UserID, 1, nil))

	event := s.recvLesson(sub)
	s.Equal(model.ActionResetTimetable, event.Action)
	s.Equal(1, event.Semester)
	s.Empty(event.ModuleCode)

	lessons, err := s.service.Lessons(s.ctx, "room1")
	s.Require().NoError(err)
	s.Len(lessons, 1)
	s.Equal(2, lessons[0].Semester)
}
