package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/testutil"
)

func recvOne[P any](t *testing.T, sub *Subscription[P]) P {
	t.Helper()
	select {
	case event, ok := <-sub.C():
		require.True(t, ok, "subscription channel closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	b := New[model.RoomURI, model.LessonEvent](testutil.NopLogger())
	defer b.Close()

	sub := b.Subscribe("room1")
	defer sub.Close()

	b.Publish("room1", model.LessonEvent{Action: model.ActionCreateLesson, ModuleCode: "CS1101S"})

	got := recvOne(t, sub)
	assert.Equal(t, model.ActionCreateLesson, got.Action)
	assert.Equal(t, "CS1101S", got.ModuleCode)
}

func TestPublishIsKeyedByRoom(t *testing.T) {
	b := New[model.RoomURI, model.LessonEvent](testutil.NopLogger())
	defer b.Close()

	sub1 := b.Subscribe("room1")
	defer sub1.Close()
	sub2 := b.Subscribe("room2")
	defer sub2.Close()

	b.Publish("room1", model.LessonEvent{ModuleCode: "CS1101S"})

	recvOne(t, sub1)
	select {
	case event := <-sub2.C():
		t.Fatalf("room2 subscriber received room1 event: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := New[model.RoomURI, model.MemberEvent](testutil.NopLogger())
	defer b.Close()

	sub1 := b.Subscribe("room1")
	defer sub1.Close()
	sub2 := b.Subscribe("room1")
	defer sub2.Close()

	b.Publish("room1", model.MemberEvent{Action: model.ActionCreateUser, Name: "user 1"})

	assert.Equal(t, "user 1", recvOne(t, sub1).Name)
	assert.Equal(t, "user 1", recvOne(t, sub2).Name)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	b := New[model.UserID, string](testutil.NopLogger())
	defer b.Close()

	b.Publish(1, `{"theme":"dark"}`)
	assert.Equal(t, 0, b.SubscriberCount(1))
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := New[model.UserID, string](testutil.NopLogger())
	defer b.Close()

	slow := b.Subscribe(1)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			b.Publish(1, "event")
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
}

func TestCloseSubscriptionDeregisters(t *testing.T) {
	b := New[model.RoomURI, model.LessonEvent](testutil.NopLogger())
	defer b.Close()

	sub := b.Subscribe("room1")
	require.Equal(t, 1, b.SubscriberCount("room1"))

	sub.Close()
	assert.Equal(t, 0, b.SubscriberCount("room1"))

	_, ok := <-sub.C()
	assert.False(t, ok)

	// Idempotent
	sub.Close()
}

func TestCloseBusClosesSubscribers(t *testing.T) {
	b := New[model.RoomURI, model.LessonEvent](testutil.NopLogger())

	sub := b.Subscribe("room1")
	b.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)

	// Publish and Subscribe after Close are safe
	b.Publish("room1", model.LessonEvent{})
	late := b.Subscribe("room1")
	_, ok = <-late.C()
	assert.False(t, ok)
}

func TestExchangeWiresAllBuses(t *testing.T) {
	e := NewExchange(testutil.NopLogger())
	defer e.Close()

	lessons := e.Lessons.Subscribe("room1")
	defer lessons.Close()
	members := e.Members.Subscribe("room1")
	defer members.Close()
	configs := e.Configs.Subscribe(1)
	defer configs.Close()

	e.Lessons.Publish("room1", model.LessonEvent{Action: model.ActionDeleteModule})
	e.Members.Publish("room1", model.MemberEvent{Action: model.ActionUpdateUser})
	e.Configs.Publish(1, `{}`)

	assert.Equal(t, model.ActionDeleteModule, recvOne(t, lessons).Action)
	assert.Equal(t, model.ActionUpdateUser, recvOne(t, members).Action)
	assert.Equal(t, `{}`, recvOne(t, configs))
}
