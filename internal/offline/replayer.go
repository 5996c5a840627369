package offline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"gymmanager/workout-app/internal/domain"
)

// Replayer delivers one pending action upstream.
type Replayer interface {
	Replay(ctx context.Context, action domain.PendingAction) error
}

// LogReplayer only logs the action. It is used when no remote endpoint is configured.
type LogReplayer struct {
	log zerolog.Logger
}

func NewLogReplayer(log zerolog.Logger) *LogReplayer {
	return &LogReplayer{log: log.With().Str("component", "log-replayer").Logger()}
}

func (r *LogReplayer) Replay(ctx context.Context, action domain.PendingAction) error {
	r.log.Info().
		Str("action_id", action.ID).
		Str("type", string(action.Type)).
		Int64("timestamp", action.Timestamp).
		RawJSON("payload", payloadOrNull(action.Payload)).
		Msg("syncing action")
	return nil
}

func payloadOrNull(p []byte) []byte {
	if len(p) == 0 {
		return []byte("null")
	}
	return p
}

// HTTPReplayer POSTs each action as JSON to a remote endpoint.
type HTTPReplayer struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPReplayer(endpoint string, timeout time.Duration) (*HTTPReplayer, error) {
	if endpoint == "" {
		return nil, errors.New("replay endpoint is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPReplayer{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		endpoint: endpoint,
	}, nil
}

func (r *HTTPReplayer) Replay(ctx context.Context, action domain.PendingAction) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(action).
		Post(r.endpoint)
	if err != nil {
		return fmt.Errorf("replay %s: %w", action.ID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("replay %s: remote returned %d", action.ID, resp.StatusCode())
	}
	return nil
}
