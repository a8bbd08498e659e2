////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"sync"
	"sync/atomic"

	jww "github.com/spf13/jwalterweatherman"
)

// Single stops one goroutine. The goroutine selects on Quit while it is
// blocked and also polls IsStopping between blocking calls, because a
// transport may swallow the interruption inside its own receive.
type Single struct {
	name   string
	quit   chan struct{}
	status uint32
	once   sync.Once
}

// NewSingle returns a running Single with the given name.
func NewSingle(name string) *Single {
	return &Single{
		name:   name,
		quit:   make(chan struct{}),
		status: uint32(Running),
	}
}

// Name returns the name of the Single.
func (s *Single) Name() string {
	return s.name
}

// GetStatus returns the status of the Single.
func (s *Single) GetStatus() Status {
	return Status(atomic.LoadUint32(&s.status))
}

// IsRunning returns true if the Single has not been asked to quit.
func (s *Single) IsRunning() bool { return s.GetStatus() == Running }

// IsStopping returns true if Close was called but the goroutine has not
// confirmed with ToStopped yet.
func (s *Single) IsStopping() bool { return s.GetStatus() == Stopping }

// IsStopped returns true once the goroutine has confirmed it exited.
func (s *Single) IsStopped() bool { return s.GetStatus() == Stopped }

// Quit returns a channel that is closed when the Single is asked to quit.
func (s *Single) Quit() <-chan struct{} {
	return s.quit
}

// ToStopped is called by the owned goroutine right before it returns. Panics
// if Close was never called, since that means the goroutine exited on its own
// without going through the stopping state.
func (s *Single) ToStopped() {
	if !atomic.CompareAndSwapUint32(
		&s.status, uint32(Stopping), uint32(Stopped)) {
		jww.FATAL.Panicf("Failed to set %q to %s: status is %s",
			s.name, Stopped, s.GetStatus())
	}

	jww.TRACE.Printf("Stoppable %q is %s", s.name, Stopped)
}

// Close moves the Single to Stopping and closes the quit channel. Calling it
// again is a no-op.
func (s *Single) Close() error {
	s.once.Do(func() {
		atomic.StoreUint32(&s.status, uint32(Stopping))
		jww.TRACE.Printf("Stoppable %q is %s", s.name, Stopping)
		close(s.quit)
	})
	return nil
}
