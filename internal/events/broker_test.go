package events

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/vazadinhas/internal/model"
)

func TestBroker_DeliversOnlyToOwner(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	alice, bob := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	chA, cancelA := b.Subscribe(alice)
	defer cancelA()
	chB, cancelB := b.Subscribe(bob)
	defer cancelB()

	ev := model.SessionEvent{Kind: model.SessionSignedIn, UserID: alice, At: time.Now()}
	require.Equal(t, 1, b.Publish(ev))

	select {
	case got := <-chA:
		require.Equal(t, ev, got)
	default:
		t.Fatalf("alice did not get her event")
	}
	select {
	case got := <-chB:
		t.Fatalf("bob got foreign event %+v", got)
	default:
	}
}

func TestBroker_CancelClosesAndIsIdempotent(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	u := uuid.Must(uuid.NewV4())

	ch, cancel := b.Subscribe(u)
	cancel()
	cancel()

	_, open := <-ch
	require.False(t, open)
	require.Equal(t, 0, b.Publish(model.SessionEvent{UserID: u}))
	require.Empty(t, b.subs)
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	u := uuid.Must(uuid.NewV4())
	_, cancel := b.Subscribe(u)
	defer cancel()

	for i := 0; i < subscriberBuffer; i++ {
		require.Equal(t, 1, b.Publish(model.SessionEvent{UserID: u}))
	}
	require.Equal(t, 0, b.Publish(model.SessionEvent{UserID: u}))
}

func TestBroker_Close(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	u := uuid.Must(uuid.NewV4())
	ch, cancel := b.Subscribe(u)
	b.Close()
	cancel()

	_, open := <-ch
	require.False(t, open)

	late, _ := b.Subscribe(u)
	_, open = <-late
	require.False(t, open)
}
