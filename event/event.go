////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package event surfaces errors and state changes of the chat core to the UI,
// such as a failed join or a history log that can no longer be written.
package event

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/deskchat/stoppable"
)

// Size of the report queue. Reports are dropped and logged when it is full.
const eventQueueSize = 1000

type reportableEvent struct {
	Priority  int
	Category  string
	EventType string
	Details   string
}

// String returns a human-readable form of the event for logging.
func (e reportableEvent) String() string {
	return fmt.Sprintf("Event(%d, %s, %s, %s)", e.Priority, e.Category,
		e.EventType, e.Details)
}

type eventManager struct {
	eventCh chan reportableEvent

	names []string
	cbs   map[string]Callback
	mux   sync.RWMutex
}

// NewEventManager returns a Manager. Reports are queued until EventService
// is started.
func NewEventManager() Manager {
	return &eventManager{
		eventCh: make(chan reportableEvent, eventQueueSize),
		cbs:     make(map[string]Callback),
	}
}

// Report queues an event for delivery. It never blocks.
func (e *eventManager) Report(priority int, category, evtType, details string) {
	re := reportableEvent{
		Priority:  priority,
		Category:  category,
		EventType: evtType,
		Details:   details,
	}
	select {
	case e.eventCh <- re:
		jww.TRACE.Printf("Event reported: %s", re)
	default:
		jww.ERROR.Printf("Event queue full, unable to report: %s", re)
	}
}

// RegisterEventCallback records the given function to receive events.
func (e *eventManager) RegisterEventCallback(name string, myFunc Callback) error {
	e.mux.Lock()
	defer e.mux.Unlock()

	if _, exists := e.cbs[name]; exists {
		return errors.Errorf("event callback %q already registered", name)
	}
	e.cbs[name] = myFunc
	e.names = append(e.names, name)
	return nil
}

// UnregisterEventCallback deletes the named callback.
func (e *eventManager) UnregisterEventCallback(name string) {
	e.mux.Lock()
	defer e.mux.Unlock()

	if _, exists := e.cbs[name]; !exists {
		return
	}
	delete(e.cbs, name)
	for i, n := range e.names {
		if n == name {
			e.names = append(e.names[:i], e.names[i+1:]...)
			break
		}
	}
}

// EventService starts delivering queued events.
func (e *eventManager) EventService() (stoppable.Stoppable, error) {
	stop := stoppable.NewSingle("EventReporting")
	go e.reportEventsHandler(stop)
	return stop, nil
}

// reportEventsHandler delivers each event to every callback in registration
// order.
func (e *eventManager) reportEventsHandler(stop *stoppable.Single) {
	jww.DEBUG.Print("reportEventsHandler routine started")
	for {
		select {
		case <-stop.Quit():
			jww.DEBUG.Print("Stopping reportEventsHandler")
			stop.ToStopped()
			return
		case evt := <-e.eventCh:
			jww.TRACE.Printf("Delivering event: %s", evt)
			// Callbacks run on this goroutine; a slow callback holds up
			// delivery and the queue fills instead of spawning goroutines
			e.mux.RLock()
			cbs := make([]Callback, 0, len(e.names))
			for _, n := range e.names {
				cbs = append(cbs, e.cbs[n])
			}
			e.mux.RUnlock()

			for _, cb := range cbs {
				cb(evt.Priority, evt.Category, evt.EventType, evt.Details)
			}
		}
	}
}
