////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package readstate

import (
	"sort"
	"sync"
	"time"

	"github.com/golang-collections/collections/set"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/deskchat/dispatch"
	"gitlab.com/elixxir/deskchat/metrics"
)

// Tracker debounces visibility signals into read marks.
type Tracker struct {
	vp     Viewport
	poster dispatch.Poster
	params Params

	// pending holds message indices awaiting the timer, per target
	pending  map[Target]*set.Set
	captured Target
	timer    *time.Timer
	gen      uint64
	closed   bool

	mux sync.Mutex
}

// NewTracker returns a tracker for vp. Marking happens on poster.
func NewTracker(vp Viewport, poster dispatch.Poster, params Params) *Tracker {
	return &Tracker{
		vp:      vp,
		poster:  poster,
		params:  params,
		pending: make(map[Target]*set.Set),
	}
}

// VisibilityChanged must be called whenever the viewport scrolls or resizes.
func (tr *Tracker) VisibilityChanged() {
	t := tr.vp.Displayed()
	if t == nil {
		return
	}

	batch := scan(tr.vp, t)
	if len(batch) == 0 {
		return
	}

	tr.mux.Lock()
	defer tr.mux.Unlock()
	if tr.closed {
		return
	}

	s, exists := tr.pending[t]
	if !exists {
		s = set.New()
		tr.pending[t] = s
	}
	for _, index := range batch {
		s.Insert(index)
	}

	tr.captured = t
	tr.gen++
	gen := tr.gen
	if tr.timer != nil {
		tr.timer.Stop()
	}
	tr.timer = time.AfterFunc(tr.params.Delay, func() {
		tr.poster.Post(func() { tr.fire(gen) })
	})

	jww.TRACE.Printf("[ReadState] %d messages of %s pending", s.Len(), t.ID())
}

// scan returns the contiguous run of fully visible unread messages starting
// at the first unread message that is at least partly visible. Read messages
// do not break the run.
func scan(vp Viewport, t Target) []int {
	var batch []int
	started := false

	for i, m := range t.Messages().All() {
		if m.Read {
			continue
		}

		vis := vp.Visibility(t, i)
		if vis == NotLocated {
			break
		}
		if !started {
			if vis == Hidden {
				continue
			}
			started = true
		}
		if vis != Full {
			break
		}
		batch = append(batch, i)
	}

	return batch
}

// fire marks the pending messages of the captured target that are still
// fully visible. Runs on the dispatch loop.
func (tr *Tracker) fire(gen uint64) {
	tr.mux.Lock()
	if gen != tr.gen || tr.closed {
		tr.mux.Unlock()
		return
	}
	captured, pending := tr.captured, tr.pending
	tr.captured, tr.timer = nil, nil
	tr.pending = make(map[Target]*set.Set)
	tr.mux.Unlock()

	for t := range pending {
		if t != captured {
			metrics.ReadBatchesDiscarded.Inc()
		}
	}

	batch, exists := pending[captured]
	if !exists {
		return
	}

	if tr.vp.Displayed() != captured {
		metrics.ReadBatchesDiscarded.Inc()
		jww.DEBUG.Printf("[ReadState] Displayed target changed from %s, "+
			"dropping %d pending messages", captured.ID(), batch.Len())
		return
	}

	indices := make([]int, 0, batch.Len())
	batch.Do(func(v interface{}) { indices = append(indices, v.(int)) })
	sort.Ints(indices)

	store := captured.Messages()
	marked := 0
	for _, index := range indices {
		if tr.vp.Visibility(captured, index) != Full {
			continue
		}
		changed, err := store.MarkRead(index)
		if err != nil {
			jww.WARN.Printf("[ReadState] %+v", err)
			continue
		}
		if changed {
			marked++
		}
	}

	metrics.MessagesMarkedRead.Add(float64(marked))
	jww.DEBUG.Printf("[ReadState] Marked %d of %d pending messages of %s read",
		marked, len(indices), captured.ID())
}

// Close cancels the timer and drops everything pending.
func (tr *Tracker) Close() {
	tr.mux.Lock()
	defer tr.mux.Unlock()
	tr.closed = true
	if tr.timer != nil {
		tr.timer.Stop()
		tr.timer = nil
	}
	tr.pending = make(map[Target]*set.Set)
	tr.captured = nil
}
