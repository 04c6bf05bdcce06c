package sim

import (
	"github.com/oisee/hdlsim/pkg/signal"
	"github.com/oisee/hdlsim/pkg/waiter"
)

// futureEvent is one entry in the scheduler's future-event heap: either a
// waiter due to wake at time t, or a DelayedSignal apply closure due to
// fire at time t (spec §3's "(time, event) where event is either a
// waiter or a delayed-signal apply record"). insertionIndex breaks ties
// so that events scheduled for the same time run in insertion order
// (spec §5: "future events at the same time are processed in insertion
// order").
type futureEvent struct {
	time           uint64
	insertionIndex uint64
	runnable       waiter.Runnable                    // set when this is a waiter wakeup
	apply          func(now uint64) []signal.Waiter   // set when this is a delayed-signal apply
}

// futureHeap implements container/heap.Interface, ordered by (time,
// insertionIndex).
type futureHeap []*futureEvent

func (h futureHeap) Len() int { return len(h) }
func (h futureHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].insertionIndex < h[j].insertionIndex
}
func (h futureHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *futureHeap) Push(x interface{}) {
	*h = append(*h, x.(*futureEvent))
}

func (h *futureHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
