package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymmanager/workout-app/internal/config"
	"gymmanager/workout-app/internal/domain"
	"gymmanager/workout-app/internal/metadata"
	"gymmanager/workout-app/internal/offline"
	"gymmanager/workout-app/internal/repository/sqlite"
	"gymmanager/workout-app/internal/service"
	"gymmanager/workout-app/internal/storage"
)

var pngData = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

type stubFetcher struct {
	err error
}

func (f *stubFetcher) Fetch(ctx context.Context, rawURL string) (*metadata.Metadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &metadata.Metadata{URL: rawURL, Title: "Example", Type: domain.LinkWebpage}, nil
}

type testServer struct {
	router  *gin.Engine
	queue   *offline.Queue
	monitor *offline.Monitor
	fetcher *stubFetcher
}

func newTestServer(t *testing.T, passwordHash string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	store := sqlite.NewStore(db)
	t.Cleanup(func() { _ = store.Close(ctx) })

	fs := afero.NewMemMapFs()
	files, err := storage.NewLocalStorage(fs, "/media", "/files", zerolog.Nop())
	require.NoError(t, err)

	slot, err := offline.NewFileSlot(fs, "/queue", "pending")
	require.NoError(t, err)
	queue, err := offline.NewQueue(ctx, slot, offline.NewLogReplayer(zerolog.Nop()), 0, zerolog.Nop())
	require.NoError(t, err)
	monitor := offline.NewMonitor(queue, config.SyncConfig{StabilizeDelay: time.Hour, StartOnline: true}, zerolog.Nop())
	t.Cleanup(monitor.Stop)

	fetcher := &stubFetcher{}
	authService, err := service.NewAuthService(passwordHash, "test-secret", time.Hour)
	require.NoError(t, err)
	workoutService, err := service.NewWorkoutService(store, files, fetcher, service.WorkoutServiceConfig{
		MaxUploadBytes: 1 << 20,
		PresignTTL:     time.Minute,
	}, zerolog.Nop(), service.WithOfflineRecorder(queue, monitor))
	require.NoError(t, err)

	router := NewRouter(Dependencies{
		AuthService:    authService,
		WorkoutService: workoutService,
		Files:          files,
		Fetcher:        fetcher,
		Queue:          queue,
		Monitor:        monitor,
		Log:            zerolog.Nop(),
	})
	return &testServer{router: router, queue: queue, monitor: monitor, fetcher: fetcher}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createLegDay(t *testing.T, s *testServer) domain.WorkoutPlan {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/workouts", gin.H{
		"title":    "Leg Day",
		"category": "Strength",
		"sets":     []gin.H{{"reps": 10, "weight": 60}, {"reps": 8, "weight": 70}},
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.WorkoutPlan](t, w)
}

func TestPing(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(t, http.MethodGet, "/ping", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestWorkoutCRUD(t *testing.T) {
	s := newTestServer(t, "")
	plan := createLegDay(t, s)
	assert.NotEmpty(t, plan.ID)
	assert.Len(t, plan.Sets, 2)

	w := s.do(t, http.MethodGet, "/api/v1/workouts/"+plan.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Leg Day", decode[domain.WorkoutPlan](t, w).Title)

	w = s.do(t, http.MethodPatch, "/api/v1/workouts/"+plan.ID, gin.H{"title": "Leg Day 2"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Leg Day 2", decode[domain.WorkoutPlan](t, w).Title)

	w = s.do(t, http.MethodGet, "/api/v1/workouts?category=Strength", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.WorkoutPlan](t, w), 1)

	w = s.do(t, http.MethodGet, "/api/v1/workouts?category=Cardio", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.WorkoutPlan](t, w))

	w = s.do(t, http.MethodDelete, "/api/v1/workouts/"+plan.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/workouts/"+plan.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/workouts", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.WorkoutPlan](t, w))
}

func TestWorkoutValidationErrors(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodPost, "/api/v1/workouts", gin.H{"title": "", "sets": []gin.H{{"reps": 5}}}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/workouts", gin.H{"title": "No sets", "sets": []gin.H{}}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/workouts/missing", gin.H{"title": "x"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMediaUploadAndServe(t *testing.T) {
	s := newTestServer(t, "")
	plan := createLegDay(t, s)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "squat.png")
	require.NoError(t, err)
	_, err = part.Write(pngData)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts/"+plan.ID+"/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	media := decode[[]domain.Media](t, w)
	require.Len(t, media, 1)
	assert.Equal(t, domain.MediaPhoto, media[0].Type)
	require.True(t, strings.HasPrefix(media[0].DisplayURL, "/files/"), media[0].DisplayURL)

	w = s.do(t, http.MethodGet, media[0].DisplayURL, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngData, w.Body.Bytes())

	w = s.do(t, http.MethodDelete, "/api/v1/workouts/"+plan.ID+"/media/"+media[0].ID, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, media[0].DisplayURL, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMediaUploadWithoutFiles(t *testing.T) {
	s := newTestServer(t, "")
	plan := createLegDay(t, s)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "nothing"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts/"+plan.ID+"/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLinks(t *testing.T) {
	s := newTestServer(t, "")
	plan := createLegDay(t, s)

	w := s.do(t, http.MethodPost, "/api/v1/workouts/"+plan.ID+"/links", gin.H{"url": "https://example.com/squat"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	link := decode[domain.URLLink](t, w)
	assert.Equal(t, "Example", link.Title)

	w = s.do(t, http.MethodDelete, "/api/v1/workouts/"+plan.ID+"/links/"+link.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/workouts/"+plan.ID+"/links/"+link.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategoriesEndpoints(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodPost, "/api/v1/categories", gin.H{"name": "Mobility"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	createLegDay(t, s)

	w = s.do(t, http.MethodGet, "/api/v1/categories?unique=true", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Mobility", "Strength"}, decode[[]string](t, w))

	w = s.do(t, http.MethodGet, "/api/v1/categories/Strength/usage", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"Strength","used":true}`, w.Body.String())

	w = s.do(t, http.MethodDelete, "/api/v1/categories/Strength", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/categories/Mobility", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestURLMetadataEndpoint(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodPost, "/api/v1/url-metadata", gin.H{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"URL is required"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/url-metadata", gin.H{"url": "ftp://example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid URL format"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/url-metadata", gin.H{"url": "example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	md := decode[metadata.Metadata](t, w)
	assert.Equal(t, "https://example.com", md.URL)

	s.fetcher.err = errors.New("connection refused")
	w = s.do(t, http.MethodPost, "/api/v1/url-metadata", gin.H{"url": "https://example.com"}, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch metadata","details":"connection refused"}`, w.Body.String())
}

func TestSyncEndpoints(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodPut, "/api/v1/sync/status", gin.H{"online": false}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[offline.Status](t, w).Online)

	// Mutations made while offline are recorded.
	createLegDay(t, s)
	assert.Equal(t, 1, s.queue.Len())

	w = s.do(t, http.MethodPost, "/api/v1/sync/actions", gin.H{"type": "delete_workout", "payload": gin.H{"id": "x"}}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	action := decode[domain.PendingAction](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/sync/actions", gin.H{"type": "explode"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/sync/actions", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.PendingAction](t, w), 2)

	w = s.do(t, http.MethodDelete, "/api/v1/sync/actions/"+action.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, s.queue.Len())

	w = s.do(t, http.MethodPost, "/api/v1/sync/replay", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, offline.SkipOffline, decode[offline.ReplayReport](t, w).Skipped)

	w = s.do(t, http.MethodPut, "/api/v1/sync/status", gin.H{"online": true}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/sync/replay", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[offline.ReplayReport](t, w)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 0, s.queue.Len())

	w = s.do(t, http.MethodDelete, "/api/v1/sync/actions", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/sync/status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[offline.Status](t, w)
	assert.True(t, status.Online)
	assert.Zero(t, status.Pending)
	require.NotNil(t, status.LastReplay)
}

func TestAuth(t *testing.T) {
	hash, err := service.HashPassword("s3cret")
	require.NoError(t, err)
	s := newTestServer(t, hash)

	w := s.do(t, http.MethodGet, "/api/v1/workouts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"password": "s3cret"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[LoginResponse](t, w)
	require.NotEmpty(t, login.Token)
	assert.True(t, login.ExpiresAt.After(time.Now()))

	w = s.do(t, http.MethodGet, "/api/v1/workouts", nil, login.Token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/workouts", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Blob routes stay public.
	w = s.do(t, http.MethodGet, "/files/media/none.png", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginWhenAuthDisabled(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"password": "anything"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
