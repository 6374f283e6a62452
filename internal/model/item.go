package model

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyText    = errors.New("empty text")
	ErrItemNotFound = errors.New("item not found")
	ErrDuplicateID  = errors.New("item id already in list")
)

// Item is the domain model for a todo entry.
// ID is assigned once at creation and never derived from the text.
type Item struct {
	ID       string `json:"id"`
	Text     string `json:"value"`
	Complete bool   `json:"complete"`
}

// The list helpers below never mutate their input: every change produces
// a fresh slice, because the whole list is republished as one snapshot.

// AddItem appends a new incomplete item with a fresh id.
func AddItem(items []Item, text string) ([]Item, Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Item{}, ErrEmptyText
	}
	it := Item{ID: uuid.NewString(), Text: text}
	out := make([]Item, 0, len(items)+1)
	out = append(out, items...)
	out = append(out, it)
	return out, it, nil
}

// ToggleItem flips the complete flag of the item with the given id.
func ToggleItem(items []Item, id string) ([]Item, error) {
	idx := IndexOf(items, id)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	out := clone(items)
	out[idx].Complete = !out[idx].Complete
	return out, nil
}

// EditItem replaces the text of the item with the given id.
func EditItem(items []Item, id, text string) ([]Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	idx := IndexOf(items, id)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	out := clone(items)
	out[idx].Text = text
	return out, nil
}

// RemoveItem drops the item with the given id, keeping the order of the rest.
func RemoveItem(items []Item, id string) ([]Item, error) {
	idx := IndexOf(items, id)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:idx]...)
	out = append(out, items[idx+1:]...)
	return out, nil
}

// InsertItem puts an existing item back at index, clamped to the list
// bounds. Its id and complete flag are kept.
func InsertItem(items []Item, index int, it Item) ([]Item, error) {
	if strings.TrimSpace(it.Text) == "" {
		return nil, ErrEmptyText
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	} else if IndexOf(items, it.ID) >= 0 {
		return nil, ErrDuplicateID
	}
	index = max(0, min(index, len(items)))
	out := make([]Item, 0, len(items)+1)
	out = append(out, items[:index]...)
	out = append(out, it)
	out = append(out, items[index:]...)
	return out, nil
}

// ClearItems returns the empty list written by "delete all".
func ClearItems() []Item { return []Item{} }

func IndexOf(items []Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Stats counts done and pending items.
func Stats(items []Item) (done, pending int) {
	for _, it := range items {
		if it.Complete {
			done++
		} else {
			pending++
		}
	}
	return
}

func clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
