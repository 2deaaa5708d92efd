package node

import (
	"sync"
	"sync/atomic"
)

// State captures the state of a murmur node: Initialising, Running or Shutdown
type State uint32

const (
	// Initialising is the initial state of a node. It has not yet learned its
	// id and the ids of the other cluster members.
	Initialising State = iota
	// Running nodes know the cluster membership.
	Running
	// Shutdown is shutdown
	Shutdown
)

// String ...
func (s State) String() string {
	switch s {
	case Initialising:
		return "Initialising"
	case Running:
		return "Running"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

type state struct {
	state   State
	wg      sync.WaitGroup
	wgCount int32
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// Start a goroutine and add it to waitgroup. Unlike gossip routines, request
// handlers can not be dropped, so there is no limit on their number.
func (b *state) goFunc(f func()) {
	b.wg.Add(1)
	atomic.AddInt32(&b.wgCount, 1)
	go func() {
		defer b.wg.Done()
		defer atomic.AddInt32(&b.wgCount, -1)
		f()
	}()
}

func (b *state) routines() int32 {
	return atomic.LoadInt32(&b.wgCount)
}

func (b *state) waitRoutines() {
	b.wg.Wait()
}
