package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gymmanager/workout-app/internal/domain"
	"gymmanager/workout-app/internal/metrics"
)

var ErrUnknownActionType = errors.New("unknown action type")

// Reasons a replay did not run.
const (
	SkipOffline   = "offline"
	SkipEmpty     = "no pending actions"
	SkipReplaying = "replay already running"
)

// Connectivity reports whether upstream is reachable.
type Connectivity interface {
	IsOnline() bool
}

type alwaysOnline struct{}

func (alwaysOnline) IsOnline() bool { return true }

// ReplayReport summarizes one ReplayAll call.
type ReplayReport struct {
	Attempted  int       `json:"attempted"`
	Failed     int       `json:"failed"`
	Skipped    string    `json:"skipped,omitempty"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Queue is the ordered list of pending actions, persisted as one JSON
// document in a Slot after every change.
type Queue struct {
	mu      sync.Mutex
	actions []domain.PendingAction
	slot    Slot

	replayer     Replayer
	connectivity Connectivity
	spacing      time.Duration
	replaying    atomic.Bool
	lastReport   *ReplayReport

	onEnqueue func()
	now       func() time.Time
	log       zerolog.Logger
}

// NewQueue loads any persisted actions from slot. Unreadable content is
// logged and the queue starts empty.
func NewQueue(ctx context.Context, slot Slot, replayer Replayer, spacing time.Duration, log zerolog.Logger) (*Queue, error) {
	q := &Queue{
		slot:         slot,
		replayer:     replayer,
		connectivity: alwaysOnline{},
		spacing:      spacing,
		now:          time.Now,
		log:          log.With().Str("component", "offline-queue").Logger(),
	}

	data, err := slot.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &q.actions); err != nil {
			q.log.Error().Err(err).Msg("error loading pending actions")
			q.actions = nil
		}
	}
	metrics.PendingActions.Set(float64(len(q.actions)))
	q.log.Info().Int("pending", len(q.actions)).Msg("pending actions loaded")
	return q, nil
}

// SetConnectivity sets the online source consulted by ReplayAll.
func (q *Queue) SetConnectivity(c Connectivity) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.connectivity = c
}

// OnEnqueue registers fn to run after every successful Enqueue.
func (q *Queue) OnEnqueue(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onEnqueue = fn
}

// Enqueue appends an action with a fresh id and the current time.
func (q *Queue) Enqueue(ctx context.Context, actionType domain.ActionType, payload any) (domain.PendingAction, error) {
	if !actionType.Valid() {
		return domain.PendingAction{}, fmt.Errorf("%w: %q", ErrUnknownActionType, actionType)
	}

	var raw json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return domain.PendingAction{}, fmt.Errorf("encode payload: %w", err)
		}
		raw = b
	}

	q.mu.Lock()
	action := domain.PendingAction{
		ID:        uuid.NewString(),
		Type:      actionType,
		Payload:   raw,
		Timestamp: q.now().UnixMilli(),
	}
	updated := append(append([]domain.PendingAction(nil), q.actions...), action)
	if err := q.persistLocked(ctx, updated); err != nil {
		q.mu.Unlock()
		return domain.PendingAction{}, err
	}
	notify := q.onEnqueue
	q.mu.Unlock()

	q.log.Debug().Str("action_id", action.ID).Str("type", string(action.Type)).Msg("action queued")
	if notify != nil {
		notify()
	}
	return action, nil
}

// Dequeue removes the action with id. Unknown ids are ignored.
func (q *Queue) Dequeue(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	updated := make([]domain.PendingAction, 0, len(q.actions))
	for _, a := range q.actions {
		if a.ID != id {
			updated = append(updated, a)
		}
	}
	if len(updated) == len(q.actions) {
		return nil
	}
	return q.persistLocked(ctx, updated)
}

// Clear drops every pending action and empties the slot.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.slot.Delete(ctx); err != nil {
		return err
	}
	q.actions = nil
	metrics.PendingActions.Set(0)
	return nil
}

// List returns a copy of the pending actions in enqueue order.
func (q *Queue) List() []domain.PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.PendingAction{}, q.actions...)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Replaying reports whether a ReplayAll is in progress.
func (q *Queue) Replaying() bool {
	return q.replaying.Load()
}

// LastReport returns the outcome of the most recent replay that ran, if any.
func (q *Queue) LastReport() *ReplayReport {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.lastReport == nil {
		return nil
	}
	r := *q.lastReport
	return &r
}

// ReplayAll hands every pending action to the replayer in order. Each action
// is removed afterwards whether or not the replayer succeeded.
func (q *Queue) ReplayAll(ctx context.Context) (ReplayReport, error) {
	q.mu.Lock()
	connectivity := q.connectivity
	q.mu.Unlock()

	if !connectivity.IsOnline() {
		return ReplayReport{Skipped: SkipOffline}, nil
	}
	if q.Len() == 0 {
		return ReplayReport{Skipped: SkipEmpty}, nil
	}
	if !q.replaying.CompareAndSwap(false, true) {
		return ReplayReport{Skipped: SkipReplaying}, nil
	}
	defer q.replaying.Store(false)

	snapshot := q.List()
	report := ReplayReport{}
	var ctxErr error
	for i, action := range snapshot {
		if i > 0 && q.spacing > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(q.spacing):
			}
		}
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}

		report.Attempted++
		err := q.replayer.Replay(ctx, action)
		metrics.RecordReplay(string(action.Type), err)
		if err != nil {
			report.Failed++
			q.log.Error().Err(err).Str("action_id", action.ID).Str("type", string(action.Type)).Msg("error syncing action")
		}

		// Dequeue even when the caller has gone away.
		if err := q.Dequeue(context.WithoutCancel(ctx), action.ID); err != nil {
			q.log.Error().Err(err).Str("action_id", action.ID).Msg("failed to remove replayed action")
		}
	}
	report.FinishedAt = q.now()

	q.mu.Lock()
	q.lastReport = &report
	q.mu.Unlock()

	q.log.Info().
		Int("attempted", report.Attempted).
		Int("failed", report.Failed).
		Int("remaining", q.Len()).
		Msg("replay finished")
	return report, ctxErr
}

// persistLocked writes actions to the slot and, on success, makes them current.
func (q *Queue) persistLocked(ctx context.Context, actions []domain.PendingAction) error {
	data, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("encode pending actions: %w", err)
	}
	if err := q.slot.Save(ctx, data); err != nil {
		return err
	}
	q.actions = actions
	metrics.PendingActions.Set(float64(len(actions)))
	return nil
}
