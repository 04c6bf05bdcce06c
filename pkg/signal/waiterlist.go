package signal

// Waiter is the narrow interface Signal needs from a suspended process in
// order to wake it. Fire is called when an event this waiter is registered
// for occurs; it returns false if the waiter has already fired earlier in
// the same delta (the tuple/"any-of" dedup discipline in spec §5), in
// which case the caller must not enqueue it again.
//
// The full waiter variants (single-signal, edge, tuple, join, delay) live
// in package waiter, which implements this interface; keeping the
// interface here (rather than importing package waiter) avoids a signal
// <-> waiter import cycle, following "accept interfaces, return structs".
type Waiter interface {
	Fire() bool
}

// WaiterList is a swap-and-clear queue of waiters
// registered against one signal event kind (event, posedge, or negedge).
// Not safe for concurrent use from more than one goroutine at a time; the
// scheduler's single-runnable-goroutine baton discipline (package waiter)
// is what makes that safe in practice.
type WaiterList struct {
	waiters []Waiter
}

// Add registers w to be woken the next time this list's event fires.
func (wl *WaiterList) Add(w Waiter) {
	wl.waiters = append(wl.waiters, w)
}

// Remove deletes w from the list without firing it - used to purge a
// tuple waiter's stale registration in sibling lists once it has already
// fired via a different sensitivity this delta.
func (wl *WaiterList) Remove(w Waiter) {
	for i, existing := range wl.waiters {
		if existing == w {
			wl.waiters = append(wl.waiters[:i], wl.waiters[i+1:]...)
			return
		}
	}
}

// Drain empties the list and returns the waiters that had been registered,
// skipping (and leaving un-returned) any waiter whose Fire reports it
// already ran this delta via another registration.
func (wl *WaiterList) Drain() []Waiter {
	pending := wl.waiters
	wl.waiters = nil
	woken := make([]Waiter, 0, len(pending))
	for _, w := range pending {
		if w.Fire() {
			woken = append(woken, w)
		}
	}
	return woken
}

// Len reports how many waiters are currently registered.
func (wl *WaiterList) Len() int { return len(wl.waiters) }
