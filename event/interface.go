////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package event

import "gitlab.com/elixxir/deskchat/stoppable"

// Categories of events reported by the chat core.
const (
	Connection = "Connection"
	History    = "History"
	ReadState  = "ReadState"
)

// Priorities of reported events. Higher is more urgent.
const (
	Debug   = 1
	Info    = 5
	Warning = 10
	Error   = 20
)

// Callback defines the callback functions for event reports.
type Callback func(priority int, category, evtType, details string)

// Reporter is the reporting api used by the chat core.
type Reporter interface {
	Report(priority int, category, evtType, details string)
}

// Manager reports events to registered UI callbacks.
type Manager interface {
	Reporter

	// RegisterEventCallback records the given function to receive events
	// under the given name. Returns an error if the name is taken.
	RegisterEventCallback(name string, myFunc Callback) error

	// UnregisterEventCallback removes the named callback.
	UnregisterEventCallback(name string)

	// EventService starts the goroutine delivering reports to callbacks.
	EventService() (stoppable.Stoppable, error)
}
