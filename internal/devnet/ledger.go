package devnet

import (
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/idilsaglam/weavetodo/internal/arweave"
)

var (
	ErrDuplicate = errors.New("transaction already processed")
	ErrNotFound  = errors.New("transaction not found")
	ErrNoData    = errors.New("transaction carries no data")
)

// MaxPageSize caps GraphQL pages the way public gateways do.
const MaxPageSize = 100

type entry struct {
	tx      *arweave.Transaction
	owner   string
	seq     int
	height  int64 // inclusion height, 0 while in the mempool
	blockID string
}

// Ledger is an in-memory chain: accepted transactions wait in the mempool
// until the next block is mined.
type Ledger struct {
	mu      sync.RWMutex
	byID    map[string]*entry
	order   []*entry
	height  int64
	blocks  []string
	mempool []*entry
}

func NewLedger() *Ledger {
	l := &Ledger{byID: map[string]*entry{}}
	l.blocks = append(l.blocks, blockHash(0))
	return l
}

// Add verifies and stores a signed transaction.
func (l *Ledger) Add(tx *arweave.Transaction) error {
	if len(tx.Data) == 0 {
		return ErrNoData
	}
	if err := tx.Verify(); err != nil {
		return err
	}
	owner, err := tx.OwnerAddress()
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byID[tx.ID]; ok {
		return ErrDuplicate
	}
	e := &entry{tx: tx, owner: owner, seq: len(l.order) + 1}
	l.byID[tx.ID] = e
	l.order = append(l.order, e)
	l.mempool = append(l.mempool, e)
	return nil
}

// Mine produces a block holding the whole mempool and returns the new height.
func (l *Ledger) Mine() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height++
	id := blockHash(l.height)
	l.blocks = append(l.blocks, id)
	for _, e := range l.mempool {
		e.height = l.height
		e.blockID = id
	}
	l.mempool = nil
	return l.height
}

func (l *Ledger) Height() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.height
}

// Anchor is the hash of the current block.
func (l *Ledger) Anchor() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[len(l.blocks)-1]
}

// Status returns ErrNotFound for unknown ids and Found with zero
// confirmations for mempool transactions.
func (l *Ledger) Status(id string) (arweave.Status, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byID[id]
	if !ok {
		return arweave.Status{}, ErrNotFound
	}
	if e.height == 0 {
		return arweave.Status{Found: true}, nil
	}
	return arweave.Status{
		Found:          true,
		BlockHeight:    e.height,
		BlockIndepHash: e.blockID,
		Confirmations:  int(l.height - e.height + 1),
	}, nil
}

func (l *Ledger) Data(id string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.tx.Data, nil
}

// Find answers a transactions query, newest first. Cursors are sequence
// numbers; After returns only older entries.
func (l *Ledger) Find(vars arweave.QueryVariables) (arweave.TransactionConnection, error) {
	first := vars.First
	if first <= 0 {
		first = 10
	}
	first = min(first, MaxPageSize)
	after := -1
	if vars.After != "" {
		n, err := strconv.Atoi(vars.After)
		if err != nil {
			return arweave.TransactionConnection{}, fmt.Errorf("invalid cursor %q", vars.After)
		}
		after = n
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	var conn arweave.TransactionConnection
	conn.Edges = []arweave.TransactionEdge{}
	for i := len(l.order) - 1; i >= 0; i-- {
		e := l.order[i]
		if after >= 0 && e.seq >= after {
			continue
		}
		if !e.matches(vars) {
			continue
		}
		if len(conn.Edges) == first {
			conn.PageInfo.HasNextPage = true
			break
		}
		var edge arweave.TransactionEdge
		edge.Cursor = strconv.Itoa(e.seq)
		edge.Node.ID = e.tx.ID
		conn.Edges = append(conn.Edges, edge)
	}
	return conn, nil
}

func (e *entry) matches(vars arweave.QueryVariables) bool {
	if len(vars.Owners) > 0 && !slices.Contains(vars.Owners, e.owner) {
		return false
	}
	for _, f := range vars.Tags {
		found := false
		for _, t := range e.tx.Tags {
			if t.Name == f.Name && (len(f.Values) == 0 || slices.Contains(f.Values, t.Value)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func blockHash(height int64) string {
	sum := sha512.Sum384([]byte("weavetodo-devnet-block-" + strconv.FormatInt(height, 10)))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
