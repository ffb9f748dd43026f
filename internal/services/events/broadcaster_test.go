package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBroadcaster(t *testing.T) (*Broadcaster, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBroadcaster(client, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestBroadcaster_PublishSubscribe(t *testing.T) {
	b, _ := setupBroadcaster(t)
	ctx := context.Background()
	gameID := uuid.New()

	sub := b.Subscribe(ctx, gameID)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	err = b.Publish(ctx, gameID, EventTypeDayAdvanced, map[string]any{"day": 2})
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, Channel(gameID), msg.Channel)
		event, err := Decode(msg.Payload)
		require.NoError(t, err)
		assert.Equal(t, EventTypeDayAdvanced, event.Type)
		assert.Equal(t, gameID.String(), event.GameID)
		assert.EqualValues(t, 2, event.Data["day"])
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestBroadcaster_OtherGamesNotDelivered(t *testing.T) {
	b, _ := setupBroadcaster(t)
	ctx := context.Background()
	mine, other := uuid.New(), uuid.New()

	sub := b.Subscribe(ctx, mine)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, other, EventTypeStateReset, nil))

	select {
	case msg := <-sub.Channel():
		t.Fatalf("unexpected message %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcaster_PublishError(t *testing.T) {
	b, mr := setupBroadcaster(t)
	mr.Close()

	err := b.Publish(context.Background(), uuid.New(), EventTypeMissionCompleted, nil)
	assert.Error(t, err)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("{not json")
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), uuid.New(), EventTypeResourcesUpdated, nil))
}
