////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package notifications

import (
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/stretchr/testify/require"

	"gitlab.com/elixxir/deskchat/message"
)

const testDelay = 50 * time.Millisecond

func TestMain(m *testing.M) {
	jww.SetStdoutThreshold(jww.LevelTrace)
	os.Exit(m.Run())
}

type mockPopup struct {
	entries   []string
	summary   string
	dismissed bool
	mux       sync.Mutex
}

func (p *mockPopup) AddEntry(target string, m message.Message) {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.entries = append(p.entries, target+": "+m.Body)
}

func (p *mockPopup) SetSummary(summary string) {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.summary = summary
}

func (p *mockPopup) Dismiss() {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.dismissed = true
}

func (p *mockPopup) isDismissed() bool {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.dismissed
}

// popupRecorder creates mock popups and keeps them.
type popupRecorder struct {
	popups []*mockPopup
	mux    sync.Mutex
}

func (r *popupRecorder) factory() Popup {
	r.mux.Lock()
	defer r.mux.Unlock()
	p := &mockPopup{}
	r.popups = append(r.popups, p)
	return p
}

func (r *popupRecorder) get() []*mockPopup {
	r.mux.Lock()
	defer r.mux.Unlock()
	return append([]*mockPopup(nil), r.popups...)
}

func newTestAggregator(t *testing.T) (*Aggregator, *popupRecorder) {
	r := &popupRecorder{}
	a := NewAggregator(r.factory, Params{DisplayLimit: 3, DismissDelay: testDelay})
	t.Cleanup(a.Close)
	return a, r
}

// Tests that 5 messages in one burst show 3 entries and then collapse to the
// summary "5 new messages".
func TestAggregator_AddMessage_Summary(t *testing.T) {
	a, r := newTestAggregator(t)

	for i := 0; i < 5; i++ {
		a.AddMessage("lobby", message.Message{Body: strconv.Itoa(i)})
	}

	popups := r.get()
	require.Len(t, popups, 1)
	popups[0].mux.Lock()
	require.Equal(t, []string{"lobby: 0", "lobby: 1", "lobby: 2"}, popups[0].entries)
	if popups[0].summary != "5 new messages" {
		t.Errorf("Unexpected summary.\nexpected: %q\nreceived: %q",
			"5 new messages", popups[0].summary)
	}
	popups[0].mux.Unlock()
	require.Equal(t, 5, a.Count())
}

// Tests that the popup is dismissed once messages stop arriving and a new
// popup is created for the next burst.
func TestAggregator_Dismiss(t *testing.T) {
	a, r := newTestAggregator(t)

	a.AddMessage("lobby", message.Message{Body: "a"})
	popup := r.get()[0]
	require.Eventually(t, popup.isDismissed, 20*testDelay, testDelay/10)
	require.Zero(t, a.Count())

	a.AddMessage("dev", message.Message{Body: "b"})
	popups := r.get()
	require.Len(t, popups, 2)
	require.False(t, popups[1].isDismissed())
	require.Equal(t, 1, a.Count())
}

// Tests that a timer scheduled before a later message does not dismiss the
// popup.
func TestAggregator_dismiss_CounterChanged(t *testing.T) {
	a, r := newTestAggregator(t)

	a.AddMessage("lobby", message.Message{Body: "a"})
	a.AddMessage("lobby", message.Message{Body: "b"})
	popup := r.get()[0]

	a.dismiss(popup, 1)
	require.False(t, popup.isDismissed())
	require.Equal(t, 2, a.Count())

	a.dismiss(popup, 2)
	require.True(t, popup.isDismissed())
}

// Tests that a burst keeps the popup open while messages keep arriving.
func TestAggregator_Burst(t *testing.T) {
	a, r := newTestAggregator(t)

	for i := 0; i < 5; i++ {
		a.AddMessage("lobby", message.Message{Body: "m"})
		time.Sleep(testDelay / 5)
	}
	popup := r.get()[0]
	require.False(t, popup.isDismissed())
	require.Len(t, r.get(), 1)
	require.Eventually(t, popup.isDismissed, 20*testDelay, testDelay/10)
}

// Tests that Close dismisses the popup and ignores later messages.
func TestAggregator_Close(t *testing.T) {
	a, r := newTestAggregator(t)

	a.AddMessage("lobby", message.Message{Body: "a"})
	a.Close()
	require.True(t, r.get()[0].isDismissed())

	a.AddMessage("lobby", message.Message{Body: "b"})
	require.Len(t, r.get(), 1)
	require.Zero(t, a.Count())
}
