package offline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymmanager/workout-app/internal/config"
	"gymmanager/workout-app/internal/domain"
)

const testDelay = 30 * time.Millisecond

func TestMonitorReplaysAfterComingOnline(t *testing.T) {
	ctx := context.Background()
	replayer := &recordingReplayer{}
	q := newTestQueue(t, afero.NewMemMapFs(), replayer)
	m := NewMonitor(q, config.SyncConfig{StabilizeDelay: testDelay}, zerolog.Nop())
	defer m.Stop()

	_, err := q.Enqueue(ctx, domain.ActionDeleteWorkout, map[string]string{"id": "w1"})
	require.NoError(t, err)
	assert.False(t, m.IsOnline())

	m.SetOnline(true)
	assert.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, replayer.count())

	status := m.Status()
	assert.True(t, status.Online)
	assert.Equal(t, 0, status.Pending)
	require.NotNil(t, status.LastReplay)
	assert.Equal(t, 1, status.LastReplay.Attempted)
}

func TestMonitorGoingOfflineCancelsReplay(t *testing.T) {
	ctx := context.Background()
	replayer := &recordingReplayer{}
	q := newTestQueue(t, afero.NewMemMapFs(), replayer)
	m := NewMonitor(q, config.SyncConfig{StabilizeDelay: testDelay}, zerolog.Nop())
	defer m.Stop()

	_, err := q.Enqueue(ctx, domain.ActionAddWorkout, nil)
	require.NoError(t, err)

	m.SetOnline(true)
	m.SetOnline(false)

	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 0, replayer.count())
}

func TestMonitorEnqueueWhileOnlineTriggersReplay(t *testing.T) {
	replayer := &recordingReplayer{}
	q := newTestQueue(t, afero.NewMemMapFs(), replayer)
	m := NewMonitor(q, config.SyncConfig{StabilizeDelay: testDelay, StartOnline: true}, zerolog.Nop())
	defer m.Stop()

	_, err := q.Enqueue(context.Background(), domain.ActionAddMedia, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMonitorStopPreventsReplay(t *testing.T) {
	replayer := &recordingReplayer{}
	q := newTestQueue(t, afero.NewMemMapFs(), replayer)
	m := NewMonitor(q, config.SyncConfig{StabilizeDelay: testDelay, StartOnline: true}, zerolog.Nop())

	_, err := q.Enqueue(context.Background(), domain.ActionAddMedia, nil)
	require.NoError(t, err)
	m.Stop()

	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, q.Len())
}

func TestMonitorProbe(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	q := newTestQueue(t, afero.NewMemMapFs(), &recordingReplayer{})
	m := NewMonitor(q, config.SyncConfig{
		ProbeURL:       srv.URL,
		ProbeInterval:  10 * time.Millisecond,
		StabilizeDelay: testDelay,
		StartOnline:    true,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return !m.IsOnline() }, time.Second, 5*time.Millisecond)
	healthy.Store(true)
	assert.Eventually(t, m.IsOnline, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestMonitorReplaysActionsLoadedAtStartup(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	previous := newTestQueue(t, fs, &recordingReplayer{})
	_, err := previous.Enqueue(ctx, domain.ActionDeleteWorkout, map[string]string{"id": "w1"})
	require.NoError(t, err)

	replayer := &recordingReplayer{}
	q := newTestQueue(t, fs, replayer)
	require.Equal(t, 1, q.Len())

	m := NewMonitor(q, config.SyncConfig{StabilizeDelay: testDelay, StartOnline: true}, zerolog.Nop())
	defer m.Stop()

	assert.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, replayer.count())
}

func TestMonitorStartingOfflineKeepsLoadedActions(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	previous := newTestQueue(t, fs, &recordingReplayer{})
	_, err := previous.Enqueue(ctx, domain.ActionDeleteWorkout, map[string]string{"id": "w1"})
	require.NoError(t, err)

	replayer := &recordingReplayer{}
	q := newTestQueue(t, fs, replayer)
	m := NewMonitor(q, config.SyncConfig{StabilizeDelay: testDelay}, zerolog.Nop())
	defer m.Stop()

	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, q.Len())
	assert.Zero(t, replayer.count())
}
