package scan

import (
	"sync"
	"sync/atomic"
)

// Sink receives the side effects of finished scans.
type Sink interface {
	Accepted(o Outcome)
	Failed(o Outcome)
	PaidCall()
	Cost(units int64)
}

// Tally counts outcomes and paid usage. Safe for concurrent use.
type Tally struct {
	free      atomic.Int64
	paid      atomic.Int64
	paidCalls atomic.Int64
	cost      atomic.Int64

	mu     sync.Mutex
	failed map[Reason]int64
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{failed: map[Reason]int64{}}
}

func (t *Tally) Accepted(o Outcome) {
	if o.Method == MethodPaid {
		t.paid.Add(1)
		return
	}
	t.free.Add(1)
}

func (t *Tally) Failed(o Outcome) {
	t.mu.Lock()
	t.failed[o.Reason]++
	t.mu.Unlock()
}

func (t *Tally) PaidCall() { t.paidCalls.Add(1) }

func (t *Tally) Cost(units int64) { t.cost.Add(units) }

// TallySnapshot is a point-in-time copy of a Tally.
type TallySnapshot struct {
	Scans        int64            `json:"scans"`
	FreeAccepted int64            `json:"free_accepted"`
	PaidAccepted int64            `json:"paid_accepted"`
	PaidCalls    int64            `json:"paid_calls"`
	CostUnits    int64            `json:"cost_units"`
	Failed       map[Reason]int64 `json:"failed"`
}

// Snapshot copies the counters.
func (t *Tally) Snapshot() TallySnapshot {
	s := TallySnapshot{
		FreeAccepted: t.free.Load(),
		PaidAccepted: t.paid.Load(),
		PaidCalls:    t.paidCalls.Load(),
		CostUnits:    t.cost.Load(),
		Failed:       map[Reason]int64{},
	}
	t.mu.Lock()
	for r, n := range t.failed {
		s.Failed[r] = n
		s.Scans += n
	}
	t.mu.Unlock()
	s.Scans += s.FreeAccepted + s.PaidAccepted
	return s
}
