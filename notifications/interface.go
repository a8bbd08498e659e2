////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package notifications collapses bursts of inbound messages from every chat
// target into one popup that dismisses itself once the burst is over.
//
// The Aggregator is created by the application before the chat manager and
// handed to it; there is no package-level instance.
package notifications

import (
	"time"

	"gitlab.com/elixxir/deskchat/message"
)

const (
	defaultDisplayLimit = 3
	defaultDismissDelay = 5 * time.Second

	summaryFormat = "%d new messages"
)

// Popup is a notification window. Its methods are called with the aggregator
// lock held and must not call back into the Aggregator.
type Popup interface {
	// AddEntry shows one more message.
	AddEntry(target string, m message.Message)

	// SetSummary replaces the individual entries with a summary line.
	SetSummary(summary string)

	// Dismiss closes the popup.
	Dismiss()
}

// PopupFactory creates a new, empty popup.
type PopupFactory func() Popup

// Params configures the Aggregator.
type Params struct {
	// DisplayLimit is the most entries shown before collapsing to a summary.
	DisplayLimit int

	// DismissDelay is how long the popup stays after the last message.
	DismissDelay time.Duration
}

// GetDefaultParams returns a usable set of default notification parameters.
func GetDefaultParams() Params {
	return Params{
		DisplayLimit: defaultDisplayLimit,
		DismissDelay: defaultDismissDelay,
	}
}
