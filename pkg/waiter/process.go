// Package waiter implements the suspension records (single-signal,
// single-edge, tuple "any-of", join "all-of", delay) that drive a
// cooperative process one step at a time, and the goroutine+channel
// "resumable generator" mechanism those processes run on. Grounded on
// myhdl/_Simulation.py's waiter.next(waiters, actives, exc) dispatch; see
// DESIGN.md for the goroutine/baton substitution rationale.
package waiter

// Process is a cooperative "generator": a function body running in its
// own goroutine that suspends by calling Yield and is driven one step at
// a time by the scheduler calling Advance. Exactly one Process goroutine
// is ever unblocked at a time - the channel handoff between Advance and
// Yield is the "baton" (see glossary).
type Process struct {
	name    string
	body    func(p *Process) error
	toGen   chan struct{}
	fromGen chan genResult
	started bool
}

type genResult struct {
	target interface{}
	err    error
}

// NewProcess launches body in a new goroutine, immediately runnable until
// its first Yield or return. The caller must call Advance once to learn
// what it first suspended on (or whether it exited immediately).
func NewProcess(name string, body func(p *Process) error) *Process {
	p := &Process{
		name:    name,
		body:    body,
		toGen:   make(chan struct{}, 1),
		fromGen: make(chan genResult, 1),
	}
	go p.run()
	return p
}

func (p *Process) run() {
	err := p.body(p)
	p.fromGen <- genResult{err: err}
}

// Yield suspends the calling process on target, blocking until the
// scheduler calls Advance again. Must only be called from within the
// Process's own body goroutine.
func (p *Process) Yield(target interface{}) {
	p.fromGen <- genResult{target: target}
	<-p.toGen
}

// Advance lets the process run until its next Yield or completion. On
// the very first call it simply waits for the goroutine (already running
// since NewProcess) to reach its first suspension point; on later calls
// it first releases the baton so the goroutine resumes past its blocked
// Yield. Returns (target, false, nil) on a fresh suspension,
// (nil, true, nil) on ordinary completion, or (nil, true, err) if the
// body returned a non-nil error (e.g. a StopSimulation sentinel).
func (p *Process) Advance() (target interface{}, done bool, err error) {
	if p.started {
		p.toGen <- struct{}{}
	}
	p.started = true
	res := <-p.fromGen
	if res.err != nil {
		return nil, true, res.err
	}
	if res.target == nil {
		return nil, true, nil
	}
	return res.target, false, nil
}

// Name returns the process's declared name, for debugging/tracing.
func (p *Process) Name() string { return p.name }
