package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/idilsaglam/weavetodo/internal/arweave"
	"github.com/idilsaglam/weavetodo/internal/logger"
)

const (
	DefaultInterval  = 20 * time.Second
	DefaultThreshold = 2
)

// StatusSource reports confirmations for a record id.
type StatusSource interface {
	Status(ctx context.Context, id string) (arweave.Status, error)
}

// Update is one observation of a tracked record.
type Update struct {
	ID     string
	Status arweave.Status
	State  arweave.TxState
	Err    error
}

// Tracker polls the confirmation count of one pending record at a time.
// Track tears down the previous poll before starting a new one, so once it
// returns no update for an older record is delivered again.
type Tracker struct {
	src       StatusSource
	interval  time.Duration
	threshold int
	onUpdate  func(Update)

	mu     sync.Mutex
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Tracker)

func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

func WithThreshold(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.threshold = n
		}
	}
}

// WithOnUpdate registers the observer. It runs on the polling goroutine and
// must not call Track or Stop.
func WithOnUpdate(fn func(Update)) Option { return func(t *Tracker) { t.onUpdate = fn } }

func New(src StatusSource, opts ...Option) *Tracker {
	t := &Tracker{
		src:       src,
		interval:  DefaultInterval,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Threshold() int { return t.threshold }

// Track starts polling id, replacing any poll in progress.
func (t *Tracker) Track(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.id, t.cancel, t.done = id, cancel, done
	go t.poll(ctx, id, done)
}

// Stop ends the current poll and waits for it to exit.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Active reports the id being polled, if the poll is still running.
func (t *Tracker) Active() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == nil {
		return "", false
	}
	select {
	case <-t.done:
		return "", false
	default:
		return t.id, true
	}
}

// Wait blocks until the current poll finishes (threshold reached or
// stopped) or ctx ends.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) stopLocked() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	logger.Logger.Debug("tracker stopped", zap.String("id", t.id))
	t.id, t.cancel, t.done = "", nil, nil
}

func (t *Tracker) poll(ctx context.Context, id string, done chan struct{}) {
	defer close(done)
	log := logger.Logger.With(zap.String("id", id))
	log.Debug("tracker started", zap.Duration("interval", t.interval))

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		st, err := t.src.Status(ctx, id)
		if ctx.Err() != nil {
			return
		}
		u := Update{ID: id, Status: st, Err: err, State: arweave.StateSubmitted}
		if err != nil {
			log.Warn("status lookup", zap.Error(err))
		} else {
			u.State = st.State(t.threshold)
		}
		if t.onUpdate != nil {
			t.onUpdate(u)
		}
		if err == nil && u.State == arweave.StateConfirmed {
			log.Info("record confirmed", zap.Int("confirmations", st.Confirmations))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
