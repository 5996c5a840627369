package offline

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymmanager/workout-app/internal/domain"
)

func TestRedisSlot(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client, err := DialRedis(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	slot := NewRedisSlot(client, "offline-pending-actions")

	data, err := slot.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	q, err := NewQueue(ctx, slot, &recordingReplayer{}, 0, zerolog.Nop())
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, domain.ActionUpdateWorkout, map[string]string{"id": "w1"})
	require.NoError(t, err)

	assert.True(t, mr.Exists("offline-pending-actions"))

	reloaded, err := NewQueue(ctx, slot, &recordingReplayer{}, 0, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())

	require.NoError(t, reloaded.Clear(ctx))
	assert.False(t, mr.Exists("offline-pending-actions"))
}

func TestDialRedisErrors(t *testing.T) {
	_, err := DialRedis(context.Background(), "")
	assert.Error(t, err)

	_, err = DialRedis(context.Background(), "not a url")
	assert.Error(t, err)
}
