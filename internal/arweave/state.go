package arweave

// TxState is the lifecycle of a pending write. Transitions only move forward.
type TxState int

const (
	StateCreated TxState = iota
	StateSigned
	StateSubmitted
	StateConfirming
	StateConfirmed
)

func (s TxState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSigned:
		return "signed"
	case StateSubmitted:
		return "submitted"
	case StateConfirming:
		return "confirming"
	case StateConfirmed:
		return "confirmed"
	}
	return "unknown"
}

// Status is the gateway view of a submitted transaction.
type Status struct {
	Found          bool   `json:"-"`
	BlockHeight    int64  `json:"block_height"`
	BlockIndepHash string `json:"block_indep_hash"`
	Confirmations  int    `json:"number_of_confirmations"`
}

// State maps a status to the write lifecycle given a confirmation threshold.
func (s Status) State(threshold int) TxState {
	if s.Confirmations >= threshold {
		return StateConfirmed
	}
	return StateConfirming
}
