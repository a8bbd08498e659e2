////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package notifications

import (
	"fmt"
	"sync"
	"time"

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/deskchat/message"
)

// Aggregator owns the current popup, the number of messages it holds and its
// dismiss timer.
type Aggregator struct {
	factory PopupFactory
	params  Params

	popup   Popup
	counter int
	timer   *time.Timer
	closed  bool

	mux sync.Mutex
}

// NewAggregator returns an Aggregator creating popups with factory.
func NewAggregator(factory PopupFactory, params Params) *Aggregator {
	return &Aggregator{
		factory: factory,
		params:  params,
	}
}

// AddMessage adds a message from target to the popup, creating it if needed,
// and restarts the dismiss timer.
func (a *Aggregator) AddMessage(target string, m message.Message) {
	a.mux.Lock()
	defer a.mux.Unlock()

	if a.closed {
		return
	}

	if a.timer != nil {
		a.timer.Stop()
	}

	if a.popup == nil {
		a.popup = a.factory()
		a.counter = 0
	}
	a.counter++

	if a.counter <= a.params.DisplayLimit {
		a.popup.AddEntry(target, m)
	} else {
		a.popup.SetSummary(fmt.Sprintf(summaryFormat, a.counter))
	}

	stamp, popup := a.counter, a.popup
	a.timer = time.AfterFunc(a.params.DismissDelay, func() {
		a.dismiss(popup, stamp)
	})
}

// dismiss closes the popup unless messages arrived after the timer was set.
func (a *Aggregator) dismiss(popup Popup, stamp int) {
	a.mux.Lock()
	defer a.mux.Unlock()

	if a.closed || a.popup != popup || a.counter != stamp {
		return
	}

	jww.DEBUG.Printf("[Notify] Dismissing popup after %d messages", a.counter)
	a.popup.Dismiss()
	a.popup = nil
	a.counter = 0
	a.timer = nil
}

// Count returns the number of messages in the current popup.
func (a *Aggregator) Count() int {
	a.mux.Lock()
	defer a.mux.Unlock()
	return a.counter
}

// Close cancels the dismiss timer and dismisses any open popup.
func (a *Aggregator) Close() {
	a.mux.Lock()
	defer a.mux.Unlock()

	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.popup != nil {
		a.popup.Dismiss()
		a.popup = nil
	}
	a.counter = 0
}
