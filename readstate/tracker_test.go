////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package readstate

import (
	"os"
	"sync"
	"testing"
	"time"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/stretchr/testify/require"

	"gitlab.com/elixxir/deskchat/dispatch"
	"gitlab.com/elixxir/deskchat/message"
)

const testDelay = 50 * time.Millisecond

func TestMain(m *testing.M) {
	jww.SetStdoutThreshold(jww.LevelTrace)
	os.Exit(m.Run())
}

type mockTarget struct {
	id    string
	store *message.Store
}

func (t *mockTarget) ID() string               { return t.id }
func (t *mockTarget) Messages() *message.Store { return t.store }

// newMockTarget returns a target holding n unread messages.
func newMockTarget(id string, n int) *mockTarget {
	t := &mockTarget{id: id, store: message.NewStore()}
	for i := 0; i < n; i++ {
		t.store.Append(message.Message{Timestamp: int64(100 * (i + 1)),
			Sender: "alice", Body: "hi"})
	}
	return t
}

// mockViewport shows one target. Messages without an explicit visibility are
// Full.
type mockViewport struct {
	displayed Target
	vis       map[Target]map[int]Visibility
	mux       sync.Mutex
}

func newMockViewport(displayed Target) *mockViewport {
	return &mockViewport{
		displayed: displayed,
		vis:       make(map[Target]map[int]Visibility),
	}
}

func (vp *mockViewport) Displayed() Target {
	vp.mux.Lock()
	defer vp.mux.Unlock()
	return vp.displayed
}

func (vp *mockViewport) Visibility(t Target, index int) Visibility {
	vp.mux.Lock()
	defer vp.mux.Unlock()
	if v, exists := vp.vis[t][index]; exists {
		return v
	}
	return Full
}

func (vp *mockViewport) display(t Target) {
	vp.mux.Lock()
	defer vp.mux.Unlock()
	vp.displayed = t
}

func (vp *mockViewport) set(t Target, index int, v Visibility) {
	vp.mux.Lock()
	defer vp.mux.Unlock()
	if vp.vis[t] == nil {
		vp.vis[t] = make(map[int]Visibility)
	}
	vp.vis[t][index] = v
}

func newTestTracker(t *testing.T, vp Viewport) *Tracker {
	loop := dispatch.NewLoop("readstateTest")
	stop := loop.Start()
	t.Cleanup(func() { _ = stop.Close() })

	tr := NewTracker(vp, loop, Params{Delay: testDelay})
	t.Cleanup(tr.Close)
	return tr
}

// Tests that 3 fully visible unread messages are all read after the delay and
// not before.
func TestTracker_AllVisible(t *testing.T) {
	target := newMockTarget("lobby", 3)
	tr := newTestTracker(t, newMockViewport(target))

	tr.VisibilityChanged()
	require.Equal(t, 3, target.store.UnreadCount())

	require.Eventually(t, func() bool {
		return target.store.UnreadCount() == 0
	}, 20*testDelay, testDelay/10)
}

// Tests that switching the displayed target before the delay elapses leaves
// all 3 messages unread.
func TestTracker_TargetSwitched(t *testing.T) {
	target := newMockTarget("lobby", 3)
	other := newMockTarget("dev", 0)
	vp := newMockViewport(target)
	tr := newTestTracker(t, vp)

	tr.VisibilityChanged()
	vp.display(other)

	require.Never(t, func() bool {
		return target.store.UnreadCount() != 3
	}, 4*testDelay, testDelay/10)

	tr.mux.Lock()
	require.Empty(t, tr.pending)
	tr.mux.Unlock()
}

// Tests that a message scrolled out of view before the timer fires stays
// unread while the other 2 are marked.
func TestTracker_ScrolledOut(t *testing.T) {
	target := newMockTarget("lobby", 3)
	vp := newMockViewport(target)
	tr := newTestTracker(t, vp)

	tr.VisibilityChanged()
	vp.set(target, 1, Hidden)

	require.Eventually(t, func() bool {
		return target.store.UnreadCount() == 1
	}, 20*testDelay, testDelay/10)

	m, err := target.store.Get(1)
	require.NoError(t, err)
	if m.Read {
		t.Errorf("Message scrolled out of view was marked read: %s", m)
	}
}

// Tests the scan over different visibility layouts.
func TestScan(t *testing.T) {
	tests := []struct {
		name     string
		vis      []Visibility
		read     []int
		expected []int
	}{
		{"allFull", []Visibility{Full, Full, Full}, nil, []int{0, 1, 2}},
		{"hiddenAbove", []Visibility{Hidden, Hidden, Full, Full},
			nil, []int{2, 3}},
		{"stopAtPartial", []Visibility{Full, Partial, Full}, nil, []int{0}},
		{"startAtPartial", []Visibility{Partial, Full}, nil, nil},
		{"stopAtHiddenBelow", []Visibility{Full, Hidden, Full}, nil, []int{0}},
		{"stopAtNotLocated", []Visibility{Full, NotLocated, Full}, nil, []int{0}},
		{"notLocatedFirst", []Visibility{NotLocated, Full}, nil, nil},
		{"readSkipped", []Visibility{Full, Partial, Full}, []int{1}, []int{0, 2}},
		{"allHidden", []Visibility{Hidden, Hidden}, nil, nil},
	}

	for _, tt := range tests {
		target := newMockTarget(tt.name, len(tt.vis))
		vp := newMockViewport(target)
		for i, v := range tt.vis {
			vp.set(target, i, v)
		}
		for _, i := range tt.read {
			_, err := target.store.MarkRead(i)
			require.NoError(t, err)
		}

		batch := scan(vp, target)
		require.Equal(t, tt.expected, batch, tt.name)
	}
}

// Tests that a message that arrives while already fully in view stays unread
// until another visibility signal.
func TestTracker_ArrivalInView(t *testing.T) {
	target := newMockTarget("lobby", 0)
	tr := newTestTracker(t, newMockViewport(target))

	tr.VisibilityChanged()
	target.store.Append(message.Message{Timestamp: 100, Sender: "bob", Body: "new"})

	require.Never(t, func() bool {
		return target.store.UnreadCount() == 0
	}, 4*testDelay, testDelay/10)

	tr.VisibilityChanged()
	require.Eventually(t, func() bool {
		return target.store.UnreadCount() == 0
	}, 20*testDelay, testDelay/10)
}

// Tests that a new signal restarts the timer and adds to the pending set.
func TestTracker_Restart(t *testing.T) {
	target := newMockTarget("lobby", 4)
	vp := newMockViewport(target)
	vp.set(target, 2, Partial)
	vp.set(target, 3, Partial)
	tr := newTestTracker(t, vp)

	tr.VisibilityChanged()
	tr.mux.Lock()
	require.Equal(t, 2, tr.pending[target].Len())
	tr.mux.Unlock()

	vp.set(target, 2, Full)
	vp.set(target, 3, Full)
	tr.VisibilityChanged()
	tr.mux.Lock()
	require.Equal(t, 4, tr.pending[target].Len())
	require.Equal(t, uint64(2), tr.gen)
	tr.mux.Unlock()

	require.Eventually(t, func() bool {
		return target.store.UnreadCount() == 0
	}, 20*testDelay, testDelay/10)
}

// Tests that concurrent visibility signals are safe and end with everything
// read.
func TestTracker_ConcurrentSignals(t *testing.T) {
	target := newMockTarget("lobby", 10)
	tr := newTestTracker(t, newMockViewport(target))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.VisibilityChanged()
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return target.store.UnreadCount() == 0
	}, 20*testDelay, testDelay/10)
}

// Tests that Close cancels the pending timer.
func TestTracker_Close(t *testing.T) {
	target := newMockTarget("lobby", 3)
	tr := newTestTracker(t, newMockViewport(target))

	tr.VisibilityChanged()
	tr.Close()
	tr.VisibilityChanged()

	require.Never(t, func() bool {
		return target.store.UnreadCount() != 3
	}, 4*testDelay, testDelay/10)
}

// Tests that no displayed target is a no-op.
func TestTracker_NoTarget(t *testing.T) {
	tr := newTestTracker(t, newMockViewport(nil))
	tr.VisibilityChanged()

	tr.mux.Lock()
	defer tr.mux.Unlock()
	require.Nil(t, tr.timer)
}
