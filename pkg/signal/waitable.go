package signal

// Waitable is the surface package waiter needs to suspend a process on a
// signal, regardless of whether it is a plain Signal, a DelayedSignal, or
// a ShadowSignal.
type Waitable interface {
	Name() string
	Val() interface{}
	EdgeCapable() bool
	PosEdge() EdgeToken
	NegEdge() EdgeToken
	AddEventWaiter(w Waiter)
	AddPosEdgeWaiter(w Waiter)
	AddNegEdgeWaiter(w Waiter)
	RemoveEventWaiter(w Waiter)
	RemovePosEdgeWaiter(w Waiter)
	RemoveNegEdgeWaiter(w Waiter)
}

var (
	_ Waitable = (*Signal)(nil)
	_ Waitable = (*DelayedSignal)(nil)
	_ Waitable = (*ShadowSignal)(nil)
)
