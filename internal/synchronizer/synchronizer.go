package synchronizer

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/idilsaglam/weavetodo/internal/arweave"
	"github.com/idilsaglam/weavetodo/internal/logger"
	"github.com/idilsaglam/weavetodo/internal/model"
)

const (
	// DefaultAppTag is the tag name binding records to an address. It is the
	// value the browser app used, so lists written there load here.
	DefaultAppTag = "ar-todo-0.1.8pre"

	DefaultConcurrency = 8

	TagContentType  = "Content-Type"
	TagTimestamp    = "timestamp"
	ContentTypeJSON = "application/json"
)

// Gateway is the subset of *arweave.Client the synchronizer needs.
type Gateway interface {
	Query(ctx context.Context, q arweave.Query) ([]string, error)
	Data(ctx context.Context, id string) ([]byte, error)
	Prepare(ctx context.Context, tx *arweave.Transaction) error
	Submit(ctx context.Context, tx *arweave.Transaction) error
}

// Identity signs records and names the list they belong to.
type Identity interface {
	arweave.Signer
	Address() string
}

// Cache keeps immutable record bodies and the last pending id per address.
type Cache interface {
	Body(id string) ([]byte, bool, error)
	PutBody(id string, body []byte) error
	PutPending(address, id string) error
}

// Record is a snapshot paired with the id of the record carrying it.
type Record struct {
	ID       string
	Snapshot model.Snapshot
}

// Synchronizer maps a todo list onto an append-only log of records.
type Synchronizer struct {
	gw          Gateway
	cache       Cache
	appTag      string
	concurrency int
	now         func() time.Time

	mu     sync.Mutex
	lastTS int64
}

type Option func(*Synchronizer)

func WithCache(c Cache) Option { return func(s *Synchronizer) { s.cache = c } }

func WithAppTag(tag string) Option {
	return func(s *Synchronizer) {
		if tag != "" {
			s.appTag = tag
		}
	}
}

// WithConcurrency bounds parallel body fetches during Load.
func WithConcurrency(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Synchronizer) { s.now = now } }

func New(gw Gateway, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		gw:          gw,
		appTag:      DefaultAppTag,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) AppTag() string { return s.appTag }

// Load returns the newest snapshot for the identity's address. With no
// records yet, it seeds the log with an empty list. A body that cannot be
// fetched or parsed fails the whole Load.
func (s *Synchronizer) Load(ctx context.Context, id Identity) (Record, error) {
	addr := id.Address()
	ids, err := s.gw.Query(ctx, arweave.Query{
		Owners: []string{addr},
		Tags:   []arweave.TagFilter{{Name: s.appTag, Values: []string{addr}}},
	})
	if err != nil {
		return Record{}, fmt.Errorf("query: %w", err)
	}
	logger.Logger.Debug("records found", zap.String("address", addr), zap.Int("count", len(ids)))

	if len(ids) == 0 {
		logger.Logger.Info("no records yet, seeding an empty list", zap.String("address", addr))
		return s.Append(ctx, id, model.ClearItems())
	}

	snaps := make([]model.Snapshot, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, txID := range ids {
		i, txID := i, txID
		g.Go(func() error {
			body, err := s.body(gctx, txID)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", txID, err)
			}
			snap, err := model.Parse(body)
			if err != nil {
				return fmt.Errorf("parse %s: %w", txID, err)
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Record{}, err
	}

	rec := Latest(ids, snaps)
	s.observe(rec.Snapshot.Timestamp)
	return rec, nil
}

// Latest picks the snapshot with the greatest timestamp. On a tie the one
// listed first wins. ids and snaps are parallel slices.
func Latest(ids []string, snaps []model.Snapshot) Record {
	best := 0
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Timestamp > snaps[best].Timestamp {
			best = i
		}
	}
	return Record{ID: ids[best], Snapshot: snaps[best]}
}

// Append publishes items as a new record and returns as soon as the
// gateway acknowledges it. Nothing is sent before the record is signed.
func (s *Synchronizer) Append(ctx context.Context, id Identity, items []model.Item) (Record, error) {
	addr := id.Address()
	snap := model.NewSnapshot(items, time.UnixMilli(s.stamp()))
	body, err := model.Marshal(snap)
	if err != nil {
		return Record{}, err
	}

	ts := strconv.FormatInt(snap.Timestamp, 10)
	tx := arweave.NewTransaction(body,
		arweave.Tag{Name: TagContentType, Value: ContentTypeJSON},
		arweave.Tag{Name: s.appTag, Value: addr},
		arweave.Tag{Name: TagTimestamp, Value: ts},
	)
	log := logger.Logger.With(zap.String("address", addr), zap.String("timestamp", ts))
	log.Debug("record state", zap.Stringer("state", arweave.StateCreated))

	if err := s.gw.Prepare(ctx, tx); err != nil {
		return Record{}, fmt.Errorf("prepare: %w", err)
	}
	if err := tx.Sign(id); err != nil {
		return Record{}, fmt.Errorf("sign: %w", err)
	}
	log.Debug("record state", zap.Stringer("state", arweave.StateSigned), zap.String("id", tx.ID))

	if err := s.gw.Submit(ctx, tx); err != nil {
		return Record{}, fmt.Errorf("submit: %w", err)
	}
	log.Info("record state", zap.Stringer("state", arweave.StateSubmitted), zap.String("id", tx.ID), zap.Int("items", len(snap.Items)))

	if s.cache != nil {
		if err := s.cache.PutBody(tx.ID, body); err != nil {
			log.Warn("cache body", zap.Error(err))
		}
		if err := s.cache.PutPending(addr, tx.ID); err != nil {
			log.Warn("cache pending", zap.Error(err))
		}
	}
	return Record{ID: tx.ID, Snapshot: snap}, nil
}

func (s *Synchronizer) body(ctx context.Context, id string) ([]byte, error) {
	if s.cache != nil {
		b, ok, err := s.cache.Body(id)
		if err != nil {
			logger.Logger.Warn("cache read", zap.String("id", id), zap.Error(err))
		} else if ok {
			return b, nil
		}
	}
	b, err := s.gw.Data(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.PutBody(id, b); err != nil {
			logger.Logger.Warn("cache write", zap.String("id", id), zap.Error(err))
		}
	}
	return b, nil
}

// stamp returns now in milliseconds, bumped past the newest timestamp this
// synchronizer has seen so successive writes always order after each other.
func (s *Synchronizer) stamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().UnixMilli()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts
	return ts
}

func (s *Synchronizer) observe(ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts > s.lastTS {
		s.lastTS = ts
	}
}
