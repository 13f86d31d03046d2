package queue

import (
	"sync"
	"testing"
)

type row struct {
	Tick      int
	VehicleID string
}

func TestQueue_PushPopOrder(t *testing.T) {
	q := New[row]()
	if !q.Empty() || q.Len() != 0 {
		t.Fatalf("expected empty queue, got len %d", q.Len())
	}

	q.Push(row{Tick: 1, VehicleID: "a"})
	q.Push(row{Tick: 2, VehicleID: "b"}, row{Tick: 3, VehicleID: "c"})
	if q.Len() != 3 {
		t.Fatalf("expected length 3, got %d", q.Len())
	}

	for want := 1; want <= 3; want++ {
		if got := q.Pop(); got.Tick != want {
			t.Errorf("expected tick %d, got %+v", want, got)
		}
	}

	// empty queue yields the zero value
	if got := q.Pop(); got != (row{}) {
		t.Errorf("expected zero value, got %+v", got)
	}
}

func TestQueue_ClearAndGetAndEmpty(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)
	q.Clear()
	if !q.Empty() {
		t.Errorf("expected empty after Clear, got %d", q.Len())
	}

	q.Push(4, 5)
	items := q.GetAndEmpty()
	if len(items) != 2 || items[0] != 4 || items[1] != 5 {
		t.Errorf("expected [4 5], got %v", items)
	}
	if !q.Empty() {
		t.Error("expected empty after GetAndEmpty")
	}

	// the returned slice is not reused by later pushes
	q.Push(6)
	if items[0] != 4 {
		t.Errorf("drained slice was overwritten: %v", items)
	}
}

func TestQueue_Requeue(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	failed := q.GetAndEmpty()
	q.Push(3)

	q.Requeue(failed...)

	got := q.GetAndEmpty()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	q.Requeue()
	if !q.Empty() {
		t.Error("requeue of nothing should leave the queue empty")
	}
}

func TestQueue_ConcurrentPushAndDrain(t *testing.T) {
	q := New[row]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(tick int) {
			defer wg.Done()
			q.Push(row{Tick: tick})
		}(i)
	}
	wg.Wait()

	results := make(chan []row, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.GetAndEmpty()
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for r := range results {
		total += len(r)
	}
	if total != 100 {
		t.Errorf("expected 100 drained items, got %d", total)
	}
}
