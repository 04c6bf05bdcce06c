package signal

// EdgeKind distinguishes a rising from a falling transition.
type EdgeKind int

const (
	PosEdge EdgeKind = iota
	NegEdge
)

func (k EdgeKind) String() string {
	if k == PosEdge {
		return "posedge"
	}
	return "negedge"
}

// EdgeToken is an opaque handle for "the posedge/negedge of signal S",
// suitable for use as a process suspension target. Edge semantics are
// defined only for boolean/width-1 signals (spec §3); constructing one
// against a wider signal is allowed here but registering a waiter against
// it fails at registration time (package waiter), per the Open Question
// resolution in spec §9.
type EdgeToken struct {
	Signal *Signal
	Kind   EdgeKind
}

// PosEdge returns an edge token for this signal's rising transition.
func (s *Signal) PosEdge() EdgeToken { return EdgeToken{Signal: s, Kind: PosEdge} }

// NegEdge returns an edge token for this signal's falling transition.
func (s *Signal) NegEdge() EdgeToken { return EdgeToken{Signal: s, Kind: NegEdge} }

// EdgeCapable reports whether this signal's domain supports edge waits:
// boolean domains, or sized-vector domains of width exactly 1.
func (s *Signal) EdgeCapable() bool { return s.domain.Width() == 1 }
