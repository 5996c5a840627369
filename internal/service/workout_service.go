package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gymmanager/workout-app/internal/domain"
	"gymmanager/workout-app/internal/metadata"
	"gymmanager/workout-app/internal/metrics"
	"gymmanager/workout-app/internal/repository"
	"gymmanager/workout-app/internal/storage"
)

// --- Error Definitions ---
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrWorkoutNotFound  = errors.New("workout plan not found")
	ErrMediaNotFound    = errors.New("media not found")
	ErrLinkNotFound     = errors.New("url link not found")
	ErrCategoryInUse    = errors.New("category is used by existing workouts")
	ErrUnsupportedMedia = errors.New("only photos and videos can be attached")
	ErrMediaTooLarge    = errors.New("media file exceeds the upload limit")
)

// DefaultMaxUploadBytes bounds a single media file when no limit is configured.
const DefaultMaxUploadBytes int64 = 100 << 20

// ActionRecorder appends a mutation to the pending-action queue.
type ActionRecorder interface {
	Enqueue(ctx context.Context, actionType domain.ActionType, payload any) (domain.PendingAction, error)
}

// Connectivity reports whether the device is online.
type Connectivity interface {
	IsOnline() bool
}

// MediaUpload is one file handed to AddMedia.
type MediaUpload struct {
	Name    string
	Content io.Reader
}

type WorkoutService interface {
	List(ctx context.Context) ([]domain.WorkoutPlan, error)
	ListByCategory(ctx context.Context, category string) ([]domain.WorkoutPlan, error)
	Get(ctx context.Context, id string) (*domain.WorkoutPlan, error)
	Create(ctx context.Context, input domain.NewWorkoutPlan) (*domain.WorkoutPlan, error)
	Update(ctx context.Context, id string, patch domain.WorkoutPlanPatch) (*domain.WorkoutPlan, error)
	Delete(ctx context.Context, id string) error

	AddMedia(ctx context.Context, planID string, files []MediaUpload) ([]domain.Media, error)
	RemoveMedia(ctx context.Context, planID, mediaID string) error

	AddURLLink(ctx context.Context, planID, rawURL string) (*domain.URLLink, error)
	RemoveURLLink(ctx context.Context, planID, linkID string) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, name string) error
	UniqueCategories(ctx context.Context) ([]string, error)
	IsCategoryUsed(ctx context.Context, name string) (bool, error)

	// Close releases every display handle.
	Close()
}

// WorkoutServiceConfig tunes media handling.
type WorkoutServiceConfig struct {
	MaxUploadBytes  int64
	PresignTTL      time.Duration
	HandleCacheSize int
}

// Option customizes a workoutService.
type Option func(*workoutService)

// WithOfflineRecorder records every successful mutation to rec while conn reports offline.
func WithOfflineRecorder(rec ActionRecorder, conn Connectivity) Option {
	return func(s *workoutService) {
		s.recorder = rec
		s.connectivity = conn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *workoutService) {
		s.now = now
	}
}

// workoutService implements the WorkoutService interface.
type workoutService struct {
	plans      repository.WorkoutPlanRepository
	media      repository.MediaRepository
	categories repository.CategoryRepository
	files      storage.FileStorage
	fetcher    metadata.Fetcher
	handles    *handleCache
	validate   *validator.Validate

	maxUploadBytes int64
	recorder       ActionRecorder
	connectivity   Connectivity
	now            func() time.Time
	log            zerolog.Logger
}

// NewWorkoutService creates a new instance of workoutService.
func NewWorkoutService(
	store repository.Store,
	files storage.FileStorage,
	fetcher metadata.Fetcher,
	cfg WorkoutServiceConfig,
	log zerolog.Logger,
	opts ...Option,
) (WorkoutService, error) {
	s := &workoutService{
		plans:          store.Plans,
		media:          store.Media,
		categories:     store.Categories,
		files:          files,
		fetcher:        fetcher,
		validate:       validator.New(),
		maxUploadBytes: cfg.MaxUploadBytes,
		now:            time.Now,
		log:            log.With().Str("component", "workout-service").Logger(),
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = DefaultMaxUploadBytes
	}
	for _, opt := range opts {
		opt(s)
	}

	handles, err := newHandleCache(cfg.HandleCacheSize, files, cfg.PresignTTL, s.now)
	if err != nil {
		return nil, fmt.Errorf("create handle cache: %w", err)
	}
	s.handles = handles
	return s, nil
}

// === Plans ===

func (s *workoutService) List(ctx context.Context) ([]domain.WorkoutPlan, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list workout plans")
		return nil, fmt.Errorf("list workout plans: %w", err)
	}
	return s.withMedia(ctx, plans)
}

// ListByCategory returns the plans in category; an empty category means all plans.
func (s *workoutService) ListByCategory(ctx context.Context, category string) ([]domain.WorkoutPlan, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return s.List(ctx)
	}
	plans, err := s.plans.ListByCategory(ctx, category)
	if err != nil {
		s.log.Error().Err(err).Str("category", category).Msg("failed to list workout plans by category")
		return nil, fmt.Errorf("list workout plans by category: %w", err)
	}
	return s.withMedia(ctx, plans)
}

func (s *workoutService) Get(ctx context.Context, id string) (*domain.WorkoutPlan, error) {
	plan, err := s.getPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadMedia(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *workoutService) Create(ctx context.Context, input domain.NewWorkoutPlan) (*domain.WorkoutPlan, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Category = strings.TrimSpace(input.Category)
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}

	if err := s.ensureCategory(ctx, input.Category); err != nil {
		return nil, err
	}

	now := s.now()
	plan := &domain.WorkoutPlan{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Sets:        domain.NewSets(input.Sets),
		Media:       []domain.Media{},
		URLLinks:    []domain.URLLink{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.plans.Create(ctx, plan)
	metrics.RecordMutation("create_workout", err)
	if err != nil {
		s.log.Error().Err(err).Str("title", plan.Title).Msg("failed to create workout plan")
		return nil, fmt.Errorf("create workout plan: %w", err)
	}

	s.log.Info().Str("workout_id", plan.ID).Str("title", plan.Title).Msg("workout plan created")
	s.record(ctx, domain.ActionAddWorkout, plan)
	return plan, nil
}

// Update merges patch into the plan. An unknown id is ErrWorkoutNotFound.
func (s *workoutService) Update(ctx context.Context, id string, patch domain.WorkoutPlanPatch) (*domain.WorkoutPlan, error) {
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		patch.Title = &trimmed
	}
	if patch.Category != nil {
		trimmed := strings.TrimSpace(*patch.Category)
		patch.Category = &trimmed
	}
	if err := s.validateStruct(patch); err != nil {
		return nil, err
	}

	plan, err := s.getPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return plan, s.loadMedia(ctx, plan)
	}

	if patch.Category != nil {
		if err := s.ensureCategory(ctx, *patch.Category); err != nil {
			return nil, err
		}
	}
	if patch.URLLinks != nil {
		for _, l := range *patch.URLLinks {
			if l.URL == "" {
				return nil, fmt.Errorf("%w: url links require a url", ErrValidationFailed)
			}
		}
	}

	plan.Apply(patch, s.now())
	if err := s.savePlan(ctx, plan, "update_workout"); err != nil {
		return nil, err
	}
	if err := s.loadMedia(ctx, plan); err != nil {
		return nil, err
	}

	s.log.Info().Str("workout_id", plan.ID).Msg("workout plan updated")
	s.record(ctx, domain.ActionUpdateWorkout, plan)
	return plan, nil
}

// Delete removes the plan together with every media record and blob it owns.
// Deleting a missing plan succeeds.
func (s *workoutService) Delete(ctx context.Context, id string) error {
	media, err := s.media.ListByPlanID(ctx, id)
	if err != nil {
		return fmt.Errorf("list media for workout %s: %w", id, err)
	}
	for _, m := range media {
		if err := s.files.DeleteObject(ctx, m.StorageKey); err != nil {
			s.log.Error().Err(err).Str("media_id", m.ID).Msg("failed to delete media blob")
			return fmt.Errorf("delete media blob %s: %w", m.ID, err)
		}
		s.handles.Release(m.ID)
	}
	if _, err := s.media.DeleteByPlanID(ctx, id); err != nil {
		return fmt.Errorf("delete media for workout %s: %w", id, err)
	}

	err = s.plans.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	metrics.RecordMutation("delete_workout", err)
	if err != nil {
		s.log.Error().Err(err).Str("workout_id", id).Msg("failed to delete workout plan")
		return fmt.Errorf("delete workout plan: %w", err)
	}

	s.log.Info().Str("workout_id", id).Int("media_removed", len(media)).Msg("workout plan deleted")
	s.record(ctx, domain.ActionDeleteWorkout, map[string]string{"id": id})
	return nil
}

// === Media ===

type preparedMedia struct {
	media domain.Media
	data  []byte
}

// AddMedia stores every file or none of them: type and size are checked for
// all files before anything is written.
func (s *workoutService) AddMedia(ctx context.Context, planID string, files []MediaUpload) ([]domain.Media, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", ErrValidationFailed)
	}
	plan, err := s.getPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	prepared := make([]preparedMedia, 0, len(files))
	for _, f := range files {
		p, err := s.prepareMedia(plan.ID, f)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, p)
	}

	added := make([]domain.Media, 0, len(prepared))
	for _, p := range prepared {
		m := p.media
		if err := s.files.Upload(ctx, m.StorageKey, bytes.NewReader(p.data), m.Size, m.MimeType); err != nil {
			s.rollbackMedia(ctx, added)
			return nil, fmt.Errorf("upload media %s: %w", m.Name, err)
		}
		if err := s.media.Create(ctx, &m); err != nil {
			_ = s.files.DeleteObject(ctx, m.StorageKey)
			s.rollbackMedia(ctx, added)
			return nil, fmt.Errorf("save media %s: %w", m.Name, err)
		}
		metrics.UploadBytesTotal.WithLabelValues(string(m.Type)).Add(float64(m.Size))
		added = append(added, m)
	}

	plan.Touch(s.now())
	if err := s.savePlan(ctx, plan, "add_media"); err != nil {
		s.rollbackMedia(ctx, added)
		return nil, err
	}

	for i := range added {
		s.attachDisplayURL(ctx, &added[i])
	}
	s.log.Info().Str("workout_id", plan.ID).Int("count", len(added)).Msg("media added")
	s.record(ctx, domain.ActionAddMedia, map[string]any{"planId": plan.ID, "media": added})
	return added, nil
}

func (s *workoutService) prepareMedia(planID string, f MediaUpload) (preparedMedia, error) {
	if f.Content == nil {
		return preparedMedia{}, fmt.Errorf("%w: empty file", ErrValidationFailed)
	}
	data, err := io.ReadAll(io.LimitReader(f.Content, s.maxUploadBytes+1))
	if err != nil {
		return preparedMedia{}, fmt.Errorf("read media %s: %w", f.Name, err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return preparedMedia{}, fmt.Errorf("%w: %s", ErrMediaTooLarge, f.Name)
	}
	if len(data) == 0 {
		return preparedMedia{}, fmt.Errorf("%w: %s is empty", ErrValidationFailed, f.Name)
	}

	mtype := mimetype.Detect(data)
	mediaType, ok := domain.MediaTypeFromMIME(mtype.String())
	if !ok {
		return preparedMedia{}, fmt.Errorf("%w: %s is %s", ErrUnsupportedMedia, f.Name, mtype.String())
	}

	id := uuid.NewString()
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(f.Name), `\`, "/"))
	if name == "" || name == "." || name == "/" {
		name = string(mediaType) + mtype.Extension()
	}

	return preparedMedia{
		media: domain.Media{
			ID:         id,
			PlanID:     planID,
			Type:       mediaType,
			Name:       name,
			MimeType:   mtype.String(),
			Size:       int64(len(data)),
			StorageKey: storage.MediaKey(planID, id, mtype.Extension()),
			CreatedAt:  s.now(),
		},
		data: data,
	}, nil
}

func (s *workoutService) rollbackMedia(ctx context.Context, added []domain.Media) {
	for _, m := range added {
		if err := s.media.Delete(ctx, m.ID); err != nil {
			s.log.Warn().Err(err).Str("media_id", m.ID).Msg("failed to roll back media record")
		}
		if err := s.files.DeleteObject(ctx, m.StorageKey); err != nil {
			s.log.Warn().Err(err).Str("media_id", m.ID).Msg("failed to roll back media blob")
		}
	}
}

// RemoveMedia deletes the media record, its blob and its display handle.
func (s *workoutService) RemoveMedia(ctx context.Context, planID, mediaID string) error {
	plan, err := s.getPlan(ctx, planID)
	if err != nil {
		return err
	}

	m, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMediaNotFound
		}
		return fmt.Errorf("get media %s: %w", mediaID, err)
	}
	if m.PlanID != plan.ID {
		return ErrMediaNotFound
	}

	if err := s.files.DeleteObject(ctx, m.StorageKey); err != nil {
		return fmt.Errorf("delete media blob %s: %w", m.ID, err)
	}
	if err := s.media.Delete(ctx, m.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete media %s: %w", m.ID, err)
	}
	s.handles.Release(m.ID)

	plan.Touch(s.now())
	if err := s.savePlan(ctx, plan, "remove_media"); err != nil {
		return err
	}

	s.log.Info().Str("workout_id", plan.ID).Str("media_id", m.ID).Msg("media removed")
	s.record(ctx, domain.ActionRemoveMedia, map[string]string{"planId": plan.ID, "mediaId": m.ID})
	return nil
}

// === URL links ===

// AddURLLink snapshots the URL's metadata onto the plan. A failed fetch still
// adds the link with placeholder metadata.
func (s *workoutService) AddURLLink(ctx context.Context, planID, rawURL string) (*domain.URLLink, error) {
	target, err := metadata.NormalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	plan, err := s.getPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	md := metadata.Fallback(target)
	if s.fetcher != nil {
		fetched, err := s.fetcher.Fetch(ctx, target)
		if err != nil {
			s.log.Warn().Err(err).Str("url", target).Msg("error fetching URL metadata")
		} else {
			md = *fetched
		}
	}

	now := s.now()
	link := md.ToURLLink()
	link.ID = uuid.NewString()
	link.CreatedAt = now
	plan.URLLinks = append(plan.URLLinks, link)
	plan.Touch(now)

	if err := s.savePlan(ctx, plan, "add_link"); err != nil {
		return nil, err
	}
	s.log.Info().Str("workout_id", plan.ID).Str("url", link.URL).Str("type", string(link.Type)).Msg("url link added")
	s.record(ctx, domain.ActionUpdateWorkout, plan)
	return &link, nil
}

func (s *workoutService) RemoveURLLink(ctx context.Context, planID, linkID string) error {
	plan, err := s.getPlan(ctx, planID)
	if err != nil {
		return err
	}
	idx := plan.FindURLLink(linkID)
	if idx < 0 {
		return ErrLinkNotFound
	}
	plan.URLLinks = append(plan.URLLinks[:idx], plan.URLLinks[idx+1:]...)
	plan.Touch(s.now())

	if err := s.savePlan(ctx, plan, "remove_link"); err != nil {
		return err
	}
	s.record(ctx, domain.ActionUpdateWorkout, plan)
	return nil
}

// === Categories ===

func (s *workoutService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CreateCategory returns the existing category when one matches name ignoring case.
func (s *workoutService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidationFailed)
	}
	if len([]rune(name)) > domain.MaxTitleLength {
		return nil, fmt.Errorf("%w: category name is too long", ErrValidationFailed)
	}

	existing, err := s.categories.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("get category: %w", err)
	}

	category := &domain.Category{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now(),
	}
	err = s.categories.Create(ctx, category)
	if errors.Is(err, repository.ErrDuplicate) {
		// created concurrently
		return s.categories.GetByName(ctx, name)
	}
	metrics.RecordMutation("create_category", err)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.log.Info().Str("category", name).Msg("category created")
	return category, nil
}

// DeleteCategory refuses while any plan uses the category. An absent category is not an error.
func (s *workoutService) DeleteCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: category name is required", ErrValidationFailed)
	}

	used, err := s.IsCategoryUsed(ctx, name)
	if err != nil {
		return err
	}
	if used {
		return ErrCategoryInUse
	}

	_, err = s.categories.DeleteByName(ctx, name)
	metrics.RecordMutation("delete_category", err)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.log.Info().Str("category", name).Msg("category deleted")
	return nil
}

// IsCategoryUsed reports whether any plan references name, or the stored
// spelling of the category matching name.
func (s *workoutService) IsCategoryUsed(ctx context.Context, name string) (bool, error) {
	names := []string{name}
	if c, err := s.categories.GetByName(ctx, name); err == nil && c.Name != name {
		names = append(names, c.Name)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("get category: %w", err)
	}

	for _, n := range names {
		count, err := s.plans.CountByCategory(ctx, n)
		if err != nil {
			return false, fmt.Errorf("count plans in category: %w", err)
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// UniqueCategories is the sorted union of explicit categories and the
// categories referenced by plans, without duplicates.
func (s *workoutService) UniqueCategories(ctx context.Context) ([]string, error) {
	explicit, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	used, err := s.plans.DistinctCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plan categories: %w", err)
	}

	seen := make(map[string]bool, len(explicit)+len(used))
	names := make([]string, 0, len(explicit)+len(used))
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	for _, c := range explicit {
		add(c.Name)
	}
	for _, name := range used {
		add(name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *workoutService) Close() {
	s.handles.Purge()
}

// === Helpers ===

func (s *workoutService) validateStruct(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}

func (s *workoutService) getPlan(ctx context.Context, id string) (*domain.WorkoutPlan, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		s.log.Error().Err(err).Str("workout_id", id).Msg("failed to load workout plan")
		return nil, fmt.Errorf("get workout plan %s: %w", id, err)
	}
	return plan, nil
}

func (s *workoutService) savePlan(ctx context.Context, plan *domain.WorkoutPlan, operation string) error {
	err := s.plans.Update(ctx, plan)
	metrics.RecordMutation(operation, err)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkoutNotFound
		}
		s.log.Error().Err(err).Str("workout_id", plan.ID).Str("operation", operation).Msg("failed to save workout plan")
		return fmt.Errorf("save workout plan: %w", err)
	}
	return nil
}

// ensureCategory creates a non-empty category the first time a plan uses it.
func (s *workoutService) ensureCategory(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	if _, err := s.CreateCategory(ctx, name); err != nil {
		return err
	}
	return nil
}

func (s *workoutService) withMedia(ctx context.Context, plans []domain.WorkoutPlan) ([]domain.WorkoutPlan, error) {
	for i := range plans {
		if err := s.loadMedia(ctx, &plans[i]); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

func (s *workoutService) loadMedia(ctx context.Context, plan *domain.WorkoutPlan) error {
	media, err := s.media.ListByPlanID(ctx, plan.ID)
	if err != nil {
		s.log.Error().Err(err).Str("workout_id", plan.ID).Msg("failed to load media")
		return fmt.Errorf("load media for workout %s: %w", plan.ID, err)
	}
	for i := range media {
		s.attachDisplayURL(ctx, &media[i])
	}
	plan.Media = media
	return nil
}

// attachDisplayURL leaves DisplayURL empty when no handle can be issued.
func (s *workoutService) attachDisplayURL(ctx context.Context, m *domain.Media) {
	url, err := s.handles.Resolve(ctx, m)
	if err != nil {
		s.log.Warn().Err(err).Str("media_id", m.ID).Msg("failed to resolve display url")
		return
	}
	m.DisplayURL = url
}

// record queues the mutation for replay when the device is offline.
func (s *workoutService) record(ctx context.Context, actionType domain.ActionType, payload any) {
	if s.recorder == nil || s.connectivity == nil || s.connectivity.IsOnline() {
		return
	}
	if _, err := s.recorder.Enqueue(ctx, actionType, payload); err != nil {
		s.log.Warn().Err(err).Str("type", string(actionType)).Msg("failed to record offline action")
	}
}
