////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"gitlab.com/elixxir/deskchat/chat"
	"gitlab.com/elixxir/deskchat/emoji"
	"gitlab.com/elixxir/deskchat/message"
	"gitlab.com/elixxir/deskchat/notifications"
	"gitlab.com/elixxir/deskchat/readstate"
)

const defaultWindow = 10

// terminal serialises output from the input loop, the dispatch loop and the
// timers.
type terminal struct {
	w   io.Writer
	mux sync.Mutex
}

func (t *terminal) Printf(format string, a ...interface{}) {
	t.mux.Lock()
	defer t.mux.Unlock()
	_, _ = fmt.Fprintf(t.w, format, a...)
}

func formatMessage(m message.Message) string {
	marker := " "
	if !m.Read {
		marker = "*"
	}
	return fmt.Sprintf("%s %s <%s> %s", marker,
		m.Time().Format(time.Kitchen), m.Sender, m.Body)
}

// terminalPopup prints notifications inline.
type terminalPopup struct {
	term *terminal
}

func newPopupFactory(term *terminal) notifications.PopupFactory {
	return func() notifications.Popup {
		return &terminalPopup{term: term}
	}
}

func (p *terminalPopup) AddEntry(target string, m message.Message) {
	if emoji.IsEmojiOnly(m.Body) {
		p.term.Printf("[notify] %s: %s reacted %s\n", target, m.Sender, m.Body)
		return
	}
	p.term.Printf("[notify] %s: <%s> %s\n", target, m.Sender, m.Body)
}

func (p *terminalPopup) SetSummary(summary string) {
	p.term.Printf("[notify] %s\n", summary)
}

func (p *terminalPopup) Dismiss() {
	p.term.Printf("[notify] dismissed\n")
}

// terminalView shows the last window messages of the displayed target,
// scrolled up by offset lines. Lines in the window are fully visible and
// everything else is hidden.
type terminalView struct {
	term      *terminal
	displayed chat.Target
	offset    int
	window    int
	mux       sync.Mutex
}

func newTerminalView(term *terminal, window int) *terminalView {
	if window <= 0 {
		window = defaultWindow
	}
	return &terminalView{term: term, window: window}
}

// Displayed returns the target being shown.
func (v *terminalView) Displayed() readstate.Target {
	v.mux.Lock()
	defer v.mux.Unlock()
	if v.displayed == nil {
		return nil
	}
	return v.displayed
}

func (v *terminalView) target() chat.Target {
	v.mux.Lock()
	defer v.mux.Unlock()
	return v.displayed
}

// Visibility reports whether the message at index falls inside the window.
func (v *terminalView) Visibility(t readstate.Target, index int) readstate.Visibility {
	n := t.Messages().Len()
	if index < 0 || index >= n {
		return readstate.NotLocated
	}

	v.mux.Lock()
	end := n - v.offset
	start := end - v.window
	v.mux.Unlock()

	if index >= start && index < end {
		return readstate.Full
	}
	return readstate.Hidden
}

// show switches the view to t, scrolled to the bottom.
func (v *terminalView) show(t chat.Target) {
	v.mux.Lock()
	v.displayed = t
	v.offset = 0
	v.mux.Unlock()
	v.render()
}

// scroll moves the window by delta lines, positive is up, and clamps it to
// the messages available.
func (v *terminalView) scroll(delta int) {
	v.mux.Lock()
	if v.displayed != nil {
		maxOffset := v.displayed.Messages().Len() - v.window
		if maxOffset < 0 {
			maxOffset = 0
		}
		v.offset += delta
		if v.offset > maxOffset {
			v.offset = maxOffset
		}
		if v.offset < 0 {
			v.offset = 0
		}
	}
	v.mux.Unlock()
	v.render()
}

func (v *terminalView) render() {
	t := v.target()
	if t == nil {
		v.term.Printf("-- no chat open --\n")
		return
	}

	list := t.Messages().All()
	v.mux.Lock()
	end := len(list) - v.offset
	v.mux.Unlock()
	start := end - v.window
	if start < 0 {
		start = 0
	}

	v.term.Printf("-- %s %s [%s] %d unread --\n", t.Kind(), t.Title(),
		t.State(), t.UnreadCount())
	for _, m := range list[start:end] {
		v.term.Printf("%s\n", formatMessage(m))
	}
}
