package llm

import (
	"sync"
	"testing"
)

func TestTokenTracker_Accumulates(t *testing.T) {
	tracker := NewTokenTracker()

	in, out, calls := tracker.Totals()
	if in != 0 || out != 0 || calls != 0 {
		t.Fatalf("fresh tracker = %d/%d/%d", in, out, calls)
	}

	tracker.Add(100, 40)
	tracker.Add(25, 10)

	in, out, calls = tracker.Totals()
	if in != 125 || out != 50 || calls != 2 {
		t.Errorf("Totals() = %d/%d/%d, want 125/50/2", in, out, calls)
	}
}

func TestTokenTracker_ConcurrentAdds(t *testing.T) {
	tracker := NewTokenTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Add(10, 5)
		}()
	}
	wg.Wait()

	in, out, calls := tracker.Totals()
	if in != 500 || out != 250 || calls != 50 {
		t.Errorf("Totals() = %d/%d/%d, want 500/250/50", in, out, calls)
	}
}
