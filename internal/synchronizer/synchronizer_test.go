package synchronizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/weavetodo/internal/model"
	"github.com/idilsaglam/weavetodo/internal/recordcache"
)

func TestLoad_FirstUseSeedsEmptyList(t *testing.T) {
	gw := newFakeGateway()
	w := testWallet()
	s := New(gw, WithClock(stepClock(1000)))

	rec, err := s.Load(context.Background(), w)
	require.NoError(t, err)
	require.Empty(t, rec.Snapshot.Items)
	require.NotNil(t, rec.Snapshot.Items)
	require.NotEmpty(t, rec.ID)

	require.Equal(t, 1, gw.count(), "exactly one record must be seeded")
	seeded := gw.last()
	require.Equal(t, rec.ID, seeded.id)
	require.Equal(t, ContentTypeJSON, tagValue(t, seeded, TagContentType))
	require.Equal(t, w.Address(), tagValue(t, seeded, DefaultAppTag))
	require.Equal(t, rec.Snapshot, parseBody(t, seeded))
}

func TestLoad_PicksNewestRegardlessOfFetchOrder(t *testing.T) {
	w := testWallet()
	addr := w.Address()

	// each permutation makes a different record arrive first
	for name, delays := range map[string]map[string]time.Duration{
		"newest last":  {"old": 0, "mid": 10 * time.Millisecond, "new": 40 * time.Millisecond},
		"newest first": {"old": 40 * time.Millisecond, "mid": 10 * time.Millisecond, "new": 0},
		"newest mid":   {"old": 20 * time.Millisecond, "mid": 40 * time.Millisecond, "new": 5 * time.Millisecond},
	} {
		t.Run(name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.seed("mid", addr, DefaultAppTag, model.Snapshot{Items: []model.Item{{ID: "2", Text: "mid"}}, Timestamp: 200})
			gw.seed("new", addr, DefaultAppTag, model.Snapshot{Items: []model.Item{{ID: "3", Text: "new"}}, Timestamp: 300})
			gw.seed("old", addr, DefaultAppTag, model.Snapshot{Items: []model.Item{{ID: "1", Text: "old"}}, Timestamp: 100})
			gw.delays = delays

			rec, err := New(gw).Load(context.Background(), w)
			require.NoError(t, err)
			require.Equal(t, "new", rec.ID)
			require.EqualValues(t, 300, rec.Snapshot.Timestamp)
			require.Equal(t, "new", rec.Snapshot.Items[0].Text)
			require.Equal(t, 3, gw.count(), "Load must not write when records exist")
		})
	}
}

func TestLoad_IgnoresOtherAddressesAndTags(t *testing.T) {
	w := testWallet()
	gw := newFakeGateway()
	gw.seed("mine", w.Address(), DefaultAppTag, model.Snapshot{Items: []model.Item{}, Timestamp: 10})
	gw.seed("theirs", "someone-else", DefaultAppTag, model.Snapshot{Items: []model.Item{}, Timestamp: 99})
	gw.seed("other-app", w.Address(), "another-app", model.Snapshot{Items: []model.Item{}, Timestamp: 98})

	rec, err := New(gw).Load(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, "mine", rec.ID)
}

func TestLatest_TieGoesToFirstListed(t *testing.T) {
	snaps := []model.Snapshot{{Timestamp: 5}, {Timestamp: 7}, {Timestamp: 7}, {Timestamp: 1}}
	rec := Latest([]string{"a", "b", "c", "d"}, snaps)
	require.Equal(t, "b", rec.ID)

	// same inputs, same answer
	require.Equal(t, rec, Latest([]string{"a", "b", "c", "d"}, snaps))
}

func TestLoad_FetchFailureAbortsLoad(t *testing.T) {
	w := testWallet()
	gw := newFakeGateway()
	gw.seed("ok", w.Address(), DefaultAppTag, model.Snapshot{Items: []model.Item{}, Timestamp: 1})
	gw.seed("bad", w.Address(), DefaultAppTag, model.Snapshot{Items: []model.Item{}, Timestamp: 2})
	gw.dataErr["bad"] = errors.New("connection reset")

	_, err := New(gw).Load(context.Background(), w)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch bad")
}

func TestLoad_ParseFailureAbortsLoad(t *testing.T) {
	w := testWallet()
	gw := newFakeGateway()
	gw.seed("ok", w.Address(), DefaultAppTag, model.Snapshot{Items: []model.Item{}, Timestamp: 1})
	gw.seedRaw("garbage", w.Address(), DefaultAppTag, []byte("<html>"))

	_, err := New(gw).Load(context.Background(), w)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse garbage")
}

func TestAppend_ThenLoadSeesIt(t *testing.T) {
	w := testWallet()
	gw := newFakeGateway()
	s := New(gw)
	ctx := context.Background()

	_, err := s.Load(ctx, w)
	require.NoError(t, err)

	items, _, err := model.AddItem(nil, "milk")
	require.NoError(t, err)
	written, err := s.Append(ctx, w, items)
	require.NoError(t, err)

	loaded, err := New(gw).Load(ctx, w)
	require.NoError(t, err)
	require.GreaterOrEqual(t, loaded.Snapshot.Timestamp, written.Snapshot.Timestamp)
	require.Equal(t, written.ID, loaded.ID)
	require.Equal(t, items, loaded.Snapshot.Items)
}

func TestAppend_TimestampsStrictlyIncrease(t *testing.T) {
	frozen := time.UnixMilli(5000)
	s := New(newFakeGateway(), WithClock(func() time.Time { return frozen }))
	w := testWallet()

	a, err := s.Append(context.Background(), w, nil)
	require.NoError(t, err)
	b, err := s.Append(context.Background(), w, nil)
	require.NoError(t, err)
	require.Greater(t, b.Snapshot.Timestamp, a.Snapshot.Timestamp)
	require.NotEqual(t, a.ID, b.ID)
}

func TestAppend_DeleteAllTwice(t *testing.T) {
	w := testWallet()
	gw := newFakeGateway()
	s := New(gw)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rec, err := s.Append(ctx, w, model.ClearItems())
		require.NoError(t, err)
		require.Empty(t, rec.Snapshot.Items)
		require.Empty(t, parseBody(t, gw.last()).Items)
	}
	require.Equal(t, 2, gw.count())
}

func TestAppend_SubmitFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.submitErr = errors.New("502 bad gateway")

	_, err := New(gw).Append(context.Background(), testWallet(), nil)
	require.ErrorContains(t, err, "submit: 502 bad gateway")
	require.Zero(t, gw.count())
}

func TestScenario_AddToggleDeleteAll(t *testing.T) {
	w := testWallet()
	gw := newFakeGateway()
	s := New(gw, WithClock(stepClock(1_700_000_000_000)))
	ctx := context.Background()

	rec0, err := s.Load(ctx, w)
	require.NoError(t, err)
	require.Empty(t, rec0.Snapshot.Items)

	x := model.Item{ID: "x", Text: "milk"}
	r1, err := s.Append(ctx, w, []model.Item{x})
	require.NoError(t, err)
	require.Equal(t, []model.Item{x}, parseBody(t, gw.last()).Items)

	toggled, err := model.ToggleItem([]model.Item{x}, "x")
	require.NoError(t, err)
	r2, err := s.Append(ctx, w, toggled)
	require.NoError(t, err)
	require.Equal(t, []model.Item{{ID: "x", Text: "milk", Complete: true}}, parseBody(t, gw.last()).Items)

	r3, err := s.Append(ctx, w, model.ClearItems())
	require.NoError(t, err)
	require.Empty(t, parseBody(t, gw.last()).Items)

	require.Less(t, r1.Snapshot.Timestamp, r2.Snapshot.Timestamp)
	require.Less(t, r2.Snapshot.Timestamp, r3.Snapshot.Timestamp)

	final, err := New(gw).Load(ctx, w)
	require.NoError(t, err)
	require.Equal(t, r3.ID, final.ID)
	require.Empty(t, final.Snapshot.Items)
}

func TestLoad_UsesRecordCache(t *testing.T) {
	w := testWallet()
	gw := newFakeGateway()
	gw.seed("a", w.Address(), DefaultAppTag, model.Snapshot{Items: []model.Item{}, Timestamp: 1})
	gw.seed("b", w.Address(), DefaultAppTag, model.Snapshot{Items: []model.Item{}, Timestamp: 2})

	cache, err := recordcache.OpenMemory()
	require.NoError(t, err)
	defer cache.Close()

	s := New(gw, WithCache(cache))
	ctx := context.Background()

	_, err = s.Load(ctx, w)
	require.NoError(t, err)
	require.Equal(t, 2, gw.calls())

	rec, err := s.Load(ctx, w)
	require.NoError(t, err)
	require.Equal(t, "b", rec.ID)
	require.Equal(t, 2, gw.calls(), "cached bodies must not be fetched again")

	written, err := s.Append(ctx, w, nil)
	require.NoError(t, err)
	pending, ok, err := cache.Pending(w.Address())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, written.ID, pending)
}
