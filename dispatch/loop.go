////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package dispatch provides the single goroutine that owns all mutation of
// message stores and UI-observable state. Ingestion pipelines, debounce
// timers and senders hand work to it instead of mutating state themselves.
package dispatch

import (
	"sync"

	"github.com/golang-collections/collections/queue"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/deskchat/stoppable"
)

// Poster accepts units of work to run on the owning context.
type Poster interface {
	Post(fn func())
}

// Loop runs posted functions one at a time in the order they were posted.
// Post never blocks, so a pipeline is never held up by a slow consumer.
type Loop struct {
	name   string
	queue  *queue.Queue
	signal chan struct{}
	mux    sync.Mutex
}

// NewLoop returns a loop that is not yet running. Work posted before Start is
// kept and run once the loop starts.
func NewLoop(name string) *Loop {
	return &Loop{
		name:   name,
		queue:  queue.New(),
		signal: make(chan struct{}, 1),
	}
}

// Post queues fn to run on the loop.
func (l *Loop) Post(fn func()) {
	l.mux.Lock()
	l.queue.Enqueue(fn)
	l.mux.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Invoke runs fn on the loop and waits for it to return. It must not be called
// from the loop itself.
func (l *Loop) Invoke(fn func()) {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	<-done
}

// Len returns the number of queued functions.
func (l *Loop) Len() int {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.queue.Len()
}

// Start launches the loop goroutine.
func (l *Loop) Start() stoppable.Stoppable {
	stop := stoppable.NewSingle(l.name)
	go l.run(stop)
	return stop
}

func (l *Loop) run(stop *stoppable.Single) {
	jww.DEBUG.Printf("[Dispatch] %s started", l.name)
	for {
		for fn := l.next(); fn != nil; fn = l.next() {
			l.execute(fn)
			if stop.IsStopping() {
				break
			}
		}

		select {
		case <-stop.Quit():
			jww.DEBUG.Printf("[Dispatch] %s stopping with %d queued",
				l.name, l.Len())
			stop.ToStopped()
			return
		case <-l.signal:
		}
	}
}

func (l *Loop) next() func() {
	l.mux.Lock()
	defer l.mux.Unlock()
	if l.queue.Len() == 0 {
		return nil
	}
	return l.queue.Dequeue().(func())
}

// execute runs one unit of work. A panic is logged and does not take the loop
// down with it.
func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			jww.ERROR.Printf("[Dispatch] %s recovered from panic: %v", l.name, r)
		}
	}()
	fn()
}
