package offline

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"gymmanager/workout-app/internal/config"
	"gymmanager/workout-app/internal/metrics"
)

// DefaultStabilizeDelay is how long the connection must stay up before a replay starts.
const DefaultStabilizeDelay = 2 * time.Second

// Status is a point-in-time view of connectivity and the queue.
type Status struct {
	Online     bool          `json:"online"`
	Pending    int           `json:"pending"`
	Replaying  bool          `json:"replaying"`
	LastReplay *ReplayReport `json:"lastReplay,omitempty"`
}

// Monitor tracks connectivity and schedules a queue replay after the
// connection has been up for the stabilization delay.
type Monitor struct {
	queue *Queue
	delay time.Duration

	probeURL      string
	probeInterval time.Duration
	http          *resty.Client

	mu     sync.Mutex
	online bool
	timer  *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// NewMonitor attaches a monitor to q: q consults it for connectivity and
// notifies it on every enqueue.
func NewMonitor(q *Queue, cfg config.SyncConfig, log zerolog.Logger) *Monitor {
	delay := cfg.StabilizeDelay
	if delay <= 0 {
		delay = DefaultStabilizeDelay
	}
	interval := cfg.ProbeInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		queue:         q,
		delay:         delay,
		probeURL:      cfg.ProbeURL,
		probeInterval: interval,
		http:          resty.New().SetTimeout(5 * time.Second),
		online:        cfg.StartOnline,
		ctx:           ctx,
		cancel:        cancel,
		log:           log.With().Str("component", "sync-monitor").Logger(),
	}
	metrics.SetOnline(m.online)

	q.SetConnectivity(m)
	q.OnEnqueue(m.Kick)

	// Actions left over from a previous run replay once the connection is stable.
	m.Kick()
	return m
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a connectivity change. Coming online schedules a replay;
// going offline cancels one that has not started yet.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online == online {
		return
	}
	m.online = online
	metrics.SetOnline(online)
	m.log.Info().Bool("online", online).Msg("connectivity changed")

	if online {
		m.scheduleLocked()
	} else {
		m.cancelLocked()
	}
}

// Kick schedules a replay when online with pending actions. Repeated kicks
// within the delay push the replay back.
func (m *Monitor) Kick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online {
		m.scheduleLocked()
	}
}

func (m *Monitor) Status() Status {
	return Status{
		Online:     m.IsOnline(),
		Pending:    m.queue.Len(),
		Replaying:  m.queue.Replaying(),
		LastReplay: m.queue.LastReport(),
	}
}

func (m *Monitor) scheduleLocked() {
	if m.ctx.Err() != nil || m.queue.Len() == 0 {
		return
	}
	m.cancelLocked()
	m.timer = time.AfterFunc(m.delay, func() {
		if _, err := m.queue.ReplayAll(m.ctx); err != nil {
			m.log.Warn().Err(err).Msg("replay interrupted")
		}
	})
}

func (m *Monitor) cancelLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Run probes the configured URL until ctx is done. Without a probe URL it
// only waits, leaving connectivity to SetOnline.
func (m *Monitor) Run(ctx context.Context) {
	defer m.Stop()

	if m.probeURL == "" {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	m.SetOnline(m.probe(ctx))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetOnline(m.probe(ctx))
		}
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	resp, err := m.http.R().SetContext(ctx).Head(m.probeURL)
	if err != nil {
		m.log.Debug().Err(err).Str("url", m.probeURL).Msg("probe failed")
		return false
	}
	return resp.StatusCode() < 500
}

// Stop cancels any scheduled replay and interrupts one in progress.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	m.cancel()
}
