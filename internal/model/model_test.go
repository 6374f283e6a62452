package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	cases := []Snapshot{
		{Items: []Item{}, Timestamp: 0},
		{Items: []Item{{ID: "x", Text: "milk"}}, Timestamp: 1700000000000},
		{Items: []Item{
			{ID: "a", Text: "one", Complete: true},
			{ID: "b", Text: "two \"quoted\" ✔", Complete: false},
			{ID: "c", Text: "three"},
		}, Timestamp: -5},
	}
	for _, s := range cases {
		b, err := Marshal(s)
		require.NoError(t, err)

		got, err := Parse(b)
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestSnapshot_WireFormat(t *testing.T) {
	b, err := Marshal(Snapshot{Items: []Item{{ID: "x", Text: "milk"}}, Timestamp: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[{"id":"x","value":"milk","complete":false}],"timestamp":42}`, string(b))

	b, err = Marshal(Snapshot{Timestamp: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"timestamp":7}`, string(b))
}

func TestParse_LegacyTodosKey(t *testing.T) {
	s, err := Parse([]byte(`{"todos":[{"id":"1","value":"eggs","complete":true}],"timestamp":99}`))
	require.NoError(t, err)
	require.Equal(t, []Item{{ID: "1", Text: "eggs", Complete: true}}, s.Items)
	require.EqualValues(t, 99, s.Timestamp)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"items":[]}`))
	require.Error(t, err)
}

func TestNewSnapshot(t *testing.T) {
	now := time.UnixMilli(1234)
	s := NewSnapshot(nil, now)
	require.NotNil(t, s.Items)
	require.EqualValues(t, 1234, s.Timestamp)
	require.True(t, s.Time().Equal(now))
}

func TestListOperations(t *testing.T) {
	items, milk, err := AddItem(nil, "  milk ")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "milk", milk.Text)
	require.NotEmpty(t, milk.ID)

	_, _, err = AddItem(items, "   ")
	require.ErrorIs(t, err, ErrEmptyText)

	items2, eggs, err := AddItem(items, "eggs")
	require.NoError(t, err)
	require.NotEqual(t, milk.ID, eggs.ID)
	require.Len(t, items, 1, "input must not be mutated")

	toggled, err := ToggleItem(items2, milk.ID)
	require.NoError(t, err)
	require.True(t, toggled[0].Complete)
	require.False(t, items2[0].Complete, "input must not be mutated")

	done, pending := Stats(toggled)
	require.Equal(t, 1, done)
	require.Equal(t, 1, pending)

	edited, err := EditItem(toggled, eggs.ID, "brown eggs")
	require.NoError(t, err)
	require.Equal(t, "brown eggs", edited[1].Text)
	require.Equal(t, "eggs", toggled[1].Text)

	removed, err := RemoveItem(edited, milk.ID)
	require.NoError(t, err)
	require.Equal(t, []Item{{ID: eggs.ID, Text: "brown eggs"}}, removed)
	require.Len(t, edited, 2)

	_, err = ToggleItem(removed, "missing")
	require.ErrorIs(t, err, ErrItemNotFound)
	_, err = RemoveItem(removed, "missing")
	require.ErrorIs(t, err, ErrItemNotFound)

	require.Empty(t, ClearItems())
	require.NotNil(t, ClearItems())
}

func TestInsertItem(t *testing.T) {
	a := Item{ID: "a", Text: "first", Complete: true}
	b := Item{ID: "b", Text: "second"}
	rest := []Item{b}

	out, err := InsertItem(rest, 0, a)
	require.NoError(t, err)
	require.Equal(t, []Item{a, b}, out)
	require.Equal(t, []Item{b}, rest, "input must not be mutated")

	out, err = InsertItem(rest, 9, a)
	require.NoError(t, err)
	require.Equal(t, []Item{b, a}, out, "index past the end appends")

	out, err = InsertItem(rest, -1, a)
	require.NoError(t, err)
	require.Equal(t, a, out[0])

	_, err = InsertItem(rest, 0, b)
	require.ErrorIs(t, err, ErrDuplicateID)
	_, err = InsertItem(rest, 0, Item{ID: "c", Text: " "})
	require.ErrorIs(t, err, ErrEmptyText)
}
