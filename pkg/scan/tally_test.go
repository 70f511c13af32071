package scan

import (
	"sync"
	"testing"
)

func TestTallyConcurrent(t *testing.T) {
	tally := NewTally()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				tally.Accepted(Outcome{Method: MethodFree})
			case 1:
				tally.PaidCall()
				tally.Accepted(Outcome{Method: MethodPaid})
				tally.Cost(1)
			default:
				tally.Failed(Outcome{Reason: ReasonNotFound})
			}
		}(i)
	}
	wg.Wait()
	s := tally.Snapshot()
	if s.Scans != 50 || s.FreeAccepted != 17 || s.PaidAccepted != 17 || s.CostUnits != 17 || s.Failed[ReasonNotFound] != 16 {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}
