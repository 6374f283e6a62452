package synchronizer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/weavetodo/internal/arweave"
	"github.com/idilsaglam/weavetodo/internal/model"
	"github.com/idilsaglam/weavetodo/internal/wallet"
)

var testWallet = sync.OnceValue(func() *wallet.Wallet {
	w, err := wallet.Generate(1024)
	if err != nil {
		panic(err)
	}
	return w
})

type fakeRecord struct {
	id    string
	owner string
	tags  []arweave.Tag
	body  []byte
}

// fakeGateway keeps records in query order and lets tests delay or fail
// individual fetches.
type fakeGateway struct {
	mu        sync.Mutex
	records   []fakeRecord
	delays    map[string]time.Duration
	dataErr   map[string]error
	submitErr error
	dataCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{delays: map[string]time.Duration{}, dataErr: map[string]error{}}
}

// seed adds a record as if another session had written it.
func (g *fakeGateway) seed(id, owner, appTag string, snap model.Snapshot) {
	body, err := model.Marshal(snap)
	if err != nil {
		panic(err)
	}
	g.seedRaw(id, owner, appTag, body)
}

func (g *fakeGateway) seedRaw(id, owner, appTag string, body []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = append(g.records, fakeRecord{
		id:    id,
		owner: owner,
		tags:  []arweave.Tag{{Name: appTag, Value: owner}},
		body:  body,
	})
}

func (g *fakeGateway) Query(_ context.Context, q arweave.Query) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var ids []string
	for _, r := range g.records {
		if len(q.Owners) > 0 && r.owner != q.Owners[0] {
			continue
		}
		if !matchesTags(r.tags, q.Tags) {
			continue
		}
		ids = append(ids, r.id)
	}
	return ids, nil
}

func (g *fakeGateway) Data(ctx context.Context, id string) ([]byte, error) {
	g.mu.Lock()
	g.dataCalls++
	delay, err := g.delays[id], g.dataErr[id]
	var body []byte
	for _, r := range g.records {
		if r.id == id {
			body = r.body
		}
	}
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errors.New("not found")
	}
	return body, nil
}

func (g *fakeGateway) Prepare(_ context.Context, tx *arweave.Transaction) error {
	tx.LastTx = ""
	tx.Reward = "0"
	return nil
}

func (g *fakeGateway) Submit(_ context.Context, tx *arweave.Transaction) error {
	if g.submitErr != nil {
		return g.submitErr
	}
	if err := tx.Verify(); err != nil {
		return err
	}
	owner, err := tx.OwnerAddress()
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = append(g.records, fakeRecord{id: tx.ID, owner: owner, tags: tx.Tags, body: tx.Data})
	return nil
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

func (g *fakeGateway) last() fakeRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.records[len(g.records)-1]
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dataCalls
}

func matchesTags(have []arweave.Tag, filters []arweave.TagFilter) bool {
	for _, f := range filters {
		found := false
		for _, t := range have {
			if t.Name != f.Name {
				continue
			}
			for _, v := range f.Values {
				if t.Value == v {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// stepClock advances by one second on every call.
func stepClock(start int64) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := time.UnixMilli(next)
		next += 1000
		return t
	}
}

func tagValue(t *testing.T, r fakeRecord, name string) string {
	t.Helper()
	for _, tag := range r.tags {
		if tag.Name == name {
			return tag.Value
		}
	}
	require.FailNow(t, "missing tag "+name)
	return ""
}

func parseBody(t *testing.T, r fakeRecord) model.Snapshot {
	t.Helper()
	s, err := model.Parse(r.body)
	require.NoError(t, err)
	require.Equal(t, strconv.FormatInt(s.Timestamp, 10), tagValue(t, r, TagTimestamp))
	return s
}
