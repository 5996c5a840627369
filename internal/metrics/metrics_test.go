package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gathered(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestGinMiddlewareRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	names := gathered(t)
	assert.True(t, names["gym_manager_workout_app_requests_total"])
	assert.True(t, names["gym_manager_workout_app_request_duration_seconds"])
}

func TestRecordHelpers(t *testing.T) {
	RecordMutation("create_workout", nil)
	RecordMutation("create_workout", errors.New("boom"))
	RecordReplay("add_workout", nil)
	RecordMetadataFetch("video", nil)
	SetOnline(true)

	names := gathered(t)
	assert.True(t, names["gym_manager_workout_app_mutations_total"])
	assert.True(t, names["gym_manager_workout_app_replayed_actions_total"])
	assert.True(t, names["gym_manager_workout_app_metadata_fetches_total"])
	assert.True(t, names["gym_manager_workout_app_online"])
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "success", statusLabel(nil))
	assert.Equal(t, "error", statusLabel(errors.New("x")))
}
