package executor

import (
	"sync"
	"testing"
	"time"
)

func TestSubmitRunsJobsInOrder(t *testing.T) {
	e := New("test")
	e.Start()
	defer e.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		e.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("expected submission order, got %v", order)
		}
	}
}

func TestSubmitBeforeStartRunsSynchronously(t *testing.T) {
	e := New("unstarted")
	ran := false
	e.Submit(func() { ran = true })
	if !ran {
		t.Fatalf("expected job to run synchronously before Start")
	}
}

func TestStopDrainsAndHalts(t *testing.T) {
	e := New("test")
	e.Start()

	done := make(chan struct{})
	e.Submit(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("job never ran")
	}

	e.Stop()
	// A second Stop is a no-op; this test only confirms Stop returned
	// without blocking forever.
}
