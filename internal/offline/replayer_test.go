package offline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymmanager/workout-app/internal/domain"
)

func TestHTTPReplayer(t *testing.T) {
	var got domain.PendingAction
	status := http.StatusNoContent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(status)
	}))
	defer srv.Close()

	r, err := NewHTTPReplayer(srv.URL, time.Second)
	require.NoError(t, err)

	action := domain.PendingAction{ID: "a1", Type: domain.ActionDeleteWorkout, Payload: json.RawMessage(`{"id":"w1"}`), Timestamp: 42}
	require.NoError(t, r.Replay(context.Background(), action))
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, domain.ActionDeleteWorkout, got.Type)
	assert.JSONEq(t, `{"id":"w1"}`, string(got.Payload))

	status = http.StatusBadGateway
	assert.Error(t, r.Replay(context.Background(), action))
}

func TestNewHTTPReplayerRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPReplayer("", 0)
	assert.Error(t, err)
}

func TestLogReplayerNeverFails(t *testing.T) {
	r := NewLogReplayer(zerolog.Nop())
	assert.NoError(t, r.Replay(context.Background(), domain.PendingAction{ID: "a", Type: domain.ActionAddWorkout}))
}
