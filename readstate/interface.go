////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package readstate marks messages read once they have stayed fully visible
// in the viewport for a dwell time.
//
// Every visibility signal collects the unread messages that are fully in view
// into a pending set for the displayed target and restarts one debounce timer.
// When the timer fires, on the dispatch loop, the pending messages that are
// still fully visible are marked read, unless the user has switched to another
// target in the meantime, in which case the batch is dropped.
//
// A message that arrives while already fully in view is not picked up until
// the next visibility signal, because arrivals do not produce one.
package readstate

import (
	"time"

	"gitlab.com/elixxir/deskchat/message"
)

const defaultDelay = 5 * time.Second

// Visibility is how much of a message the viewport shows.
type Visibility uint8

const (
	// NotLocated means the message has no rendered region yet. Scanning
	// stops there.
	NotLocated Visibility = iota
	Hidden
	Partial
	Full
)

// String returns a human-readable form of the Visibility.
func (v Visibility) String() string {
	switch v {
	case NotLocated:
		return "NotLocated"
	case Hidden:
		return "Hidden"
	case Partial:
		return "Partial"
	case Full:
		return "Full"
	default:
		return "Unknown"
	}
}

// Target is the part of a chat target the tracker needs.
type Target interface {
	ID() string
	Messages() *message.Store
}

// Viewport is implemented by the UI showing a target's messages.
type Viewport interface {
	// Displayed returns the target currently shown, or nil.
	Displayed() Target

	// Visibility returns how much of the message at index of t is on screen.
	Visibility(t Target, index int) Visibility
}

// Params configures the Tracker.
type Params struct {
	// Delay is how long messages must stay visible before they are marked
	// read.
	Delay time.Duration
}

// GetDefaultParams returns a usable set of default Tracker parameters.
func GetDefaultParams() Params {
	return Params{Delay: defaultDelay}
}
