package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/idilsaglam/weavetodo/internal/arweave"
	"github.com/idilsaglam/weavetodo/internal/logger"
	"github.com/idilsaglam/weavetodo/internal/model"
	"github.com/idilsaglam/weavetodo/internal/synchronizer"
	"github.com/idilsaglam/weavetodo/internal/tracker"
)

var ErrClosed = errors.New("session closed")

// Syncer is the list synchronizer as seen by a session.
type Syncer interface {
	Load(ctx context.Context, id synchronizer.Identity) (synchronizer.Record, error)
	Append(ctx context.Context, id synchronizer.Identity, items []model.Item) (synchronizer.Record, error)
}

// Pending describes the record currently being tracked.
type Pending struct {
	ID            string
	State         arweave.TxState
	Confirmations int
	Threshold     int
}

// Confirmed reports whether the pending record has settled.
func (p Pending) Confirmed() bool { return p.ID != "" && p.Confirmations >= p.Threshold }

// Session is one user's open list: the identity, the synchronizer and the
// confirmation tracker, plus the optimistic local copy of the items.
// Changes land in the local copy at once and are published afterwards, one
// publish at a time; a failed publish leaves the local copy ahead of the
// network.
type Session struct {
	identity synchronizer.Identity
	sync     Syncer
	tracker  *tracker.Tracker
	topts    []tracker.Option
	onChange func()
	noTrack  bool

	// writeMu orders publishes: each one carries the newest local list and
	// is stamped after the previous one.
	writeMu sync.Mutex

	mu         sync.Mutex
	items      []model.Item
	version    uint64 // bumped on every local change
	published  uint64 // version carried by the last accepted record
	publishing bool
	record     Pending // last record the gateway accepted
	closed     bool
}

type Option func(*Session)

// WithOnChange is called after local state or confirmation status changes.
// It may run on the tracker goroutine.
func WithOnChange(fn func()) Option { return func(s *Session) { s.onChange = fn } }

// WithTracker passes options (interval, threshold) to the session's tracker.
func WithTracker(opts ...tracker.Option) Option {
	return func(s *Session) { s.topts = append(s.topts, opts...) }
}

// WithoutTracking never polls for confirmations. One-shot commands that
// exit right after publishing use it.
func WithoutTracking() Option { return func(s *Session) { s.noTrack = true } }

// Publish sends the newest local list to the gateway.
type Publish func(ctx context.Context) error

// New wires a session. The tracker is created here so its updates land in
// this session.
func New(id synchronizer.Identity, syncer Syncer, status tracker.StatusSource, opts ...Option) *Session {
	s := &Session{identity: id, sync: syncer, items: model.ClearItems()}
	for _, opt := range opts {
		opt(s)
	}
	s.tracker = tracker.New(status, append(s.topts, tracker.WithOnUpdate(s.observe))...)
	s.record.Threshold = s.tracker.Threshold()
	return s
}

func (s *Session) Address() string { return s.identity.Address() }

// Open loads the newest list and starts tracking its record. Calling it
// again reloads, dropping local changes that were never published.
func (s *Session) Open(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.sync.Load(ctx, s.identity)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.items = rec.Snapshot.Items
	s.version++
	s.published = s.version
	s.record = Pending{ID: rec.ID, State: arweave.StateSubmitted, Threshold: s.tracker.Threshold()}
	s.mu.Unlock()

	s.changed()
	s.track(rec.ID)
	return nil
}

// Items returns a copy of the local list.
func (s *Session) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Pending reports the record being written or, between writes, the last
// record the gateway accepted.
func (s *Session) Pending() Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publishing {
		return Pending{State: arweave.StateCreated, Threshold: s.record.Threshold}
	}
	return s.record
}

// Add appends a new item and publishes the list.
func (s *Session) Add(ctx context.Context, text string) (model.Item, error) {
	var added model.Item
	err := s.mutate(ctx, func(items []model.Item) ([]model.Item, error) {
		out, it, err := model.AddItem(items, text)
		added = it
		return out, err
	})
	return added, err
}

func (s *Session) Toggle(ctx context.Context, id string) error {
	return s.mutate(ctx, func(items []model.Item) ([]model.Item, error) {
		return model.ToggleItem(items, id)
	})
}

func (s *Session) Edit(ctx context.Context, id, text string) error {
	return s.mutate(ctx, func(items []model.Item) ([]model.Item, error) {
		return model.EditItem(items, id, text)
	})
}

func (s *Session) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, func(items []model.Item) ([]model.Item, error) {
		return model.RemoveItem(items, id)
	})
}

// Restore puts a removed item back at index, keeping its id and state.
func (s *Session) Restore(ctx context.Context, index int, it model.Item) error {
	return s.mutate(ctx, func(items []model.Item) ([]model.Item, error) {
		return model.InsertItem(items, index, it)
	})
}

// DeleteAll publishes an empty list.
func (s *Session) DeleteAll(ctx context.Context) error {
	return s.mutate(ctx, func([]model.Item) ([]model.Item, error) {
		return model.ClearItems(), nil
	})
}

// Stage applies fn to the local list right away and returns the publish
// that carries the change. A publish finding its change already carried by
// a later one returns nil without writing.
func (s *Session) Stage(fn func([]model.Item) ([]model.Item, error)) (Publish, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	next, err := fn(s.items)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.items = next
	s.version++
	v := s.version
	s.mu.Unlock()
	s.changed()

	return func(ctx context.Context) error { return s.publish(ctx, v) }, nil
}

// Wait blocks until the tracked record is confirmed or ctx ends.
func (s *Session) Wait(ctx context.Context) error { return s.tracker.Wait(ctx) }

// Close stops tracking. The session cannot be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.tracker.Stop()
}

func (s *Session) mutate(ctx context.Context, fn func([]model.Item) ([]model.Item, error)) error {
	publish, err := s.Stage(fn)
	if err != nil {
		return err
	}
	return publish(ctx)
}

func (s *Session) publish(ctx context.Context, v uint64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.published >= v {
		s.mu.Unlock()
		return nil
	}
	items := make([]model.Item, len(s.items))
	copy(items, s.items)
	latest := s.version
	prev := s.record
	s.publishing = true
	s.mu.Unlock()
	s.changed()

	// The old poll goes away before the new record exists.
	s.tracker.Stop()

	rec, err := s.sync.Append(ctx, s.identity, items)

	s.mu.Lock()
	s.publishing = false
	closed := s.closed
	if err == nil {
		s.published = latest
		s.record = Pending{ID: rec.ID, State: arweave.StateSubmitted, Threshold: s.tracker.Threshold()}
	}
	s.mu.Unlock()
	s.changed()

	if err != nil {
		// The list stays as the user left it; only the status line goes
		// back to the last record that did reach the gateway.
		if !closed && prev.ID != "" && !prev.Confirmed() {
			s.track(prev.ID)
		}
		logger.Logger.Error("publish list", zap.String("address", s.Address()), zap.Error(err))
		return fmt.Errorf("publish: %w", err)
	}
	if !closed {
		s.track(rec.ID)
	}
	return nil
}

func (s *Session) track(id string) {
	if !s.noTrack {
		s.tracker.Track(id)
	}
}

func (s *Session) observe(u tracker.Update) {
	if u.Err != nil {
		return
	}
	s.mu.Lock()
	if s.record.ID != u.ID {
		s.mu.Unlock()
		return
	}
	s.record.Confirmations = u.Status.Confirmations
	s.record.State = u.State
	s.mu.Unlock()
	s.changed()
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
