////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package chat

import (
	"fmt"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/deskchat/connection"
	"gitlab.com/elixxir/deskchat/event"
	"gitlab.com/elixxir/deskchat/message"
	"gitlab.com/elixxir/deskchat/metrics"
	"gitlab.com/elixxir/deskchat/stoppable"
)

// Reasons a stanza is dropped, used as metric labels.
const (
	dropKind  = "kind"
	dropEmpty = "empty"
	dropEcho  = "echo"
	dropStale = "stale"
)

func pipelineName(kind Kind, id string) string {
	return fmt.Sprintf("Ingest(%s/%s)", kind, id)
}

// ingest pulls stanzas from the session until it is stopped or the session
// ends. Interrupted waits only end the loop once the stoppable is stopping,
// since some transports report interruptions that were not asked for and
// others never report them at all.
func (t *target) ingest(stop *stoppable.Single, s connection.Session,
	gen uint64) {
	metrics.ActivePipelines.Inc()
	defer metrics.ActivePipelines.Dec()
	jww.DEBUG.Printf("[Chat] %s started on session %s", stop.Name(), s.ID())

	for {
		if stop.IsStopping() {
			jww.DEBUG.Printf("[Chat] %s stopping", stop.Name())
			stop.ToStopped()
			return
		}

		st, err := s.Next(stop.Quit())
		if err != nil {
			if errors.Is(err, connection.ErrInterrupted) || stop.IsStopping() {
				continue
			}

			jww.WARN.Printf("[Chat] %s lost session %s: %+v",
				stop.Name(), s.ID(), err)
			t.poster.Post(func() { t.sessionLost(gen, err) })
			_ = stop.Close()
			stop.ToStopped()
			return
		}

		work, reason := t.v.accept(st)
		if work == nil {
			metrics.StanzasDropped.WithLabelValues(reason).Inc()
			jww.TRACE.Printf("[Chat] %s dropped %s stanza from %s: %s",
				stop.Name(), st.Kind, st.From, reason)
			continue
		}

		t.poster.Post(func() { t.deliver(gen, work) })
	}
}

// deliver runs work handed off by the pipeline of generation gen. Runs on the
// dispatch loop.
func (t *target) deliver(gen uint64, work func()) {
	t.mux.RLock()
	current := gen == t.gen && t.state == Active
	t.mux.RUnlock()

	if !current {
		metrics.StanzasDropped.WithLabelValues(dropStale).Inc()
		return
	}
	work()
}

// appendInbound returns the work that adds an inbound message to the store.
func (t *target) appendInbound(m message.Message) func() {
	return func() {
		t.store.Append(m)
		metrics.MessagesIngested.WithLabelValues(t.kind.String()).Inc()
		if t.onInbound != nil {
			t.onInbound(t.self, m)
		}
	}
}

// sessionLost moves an Active target back to Idle after its session ended on
// its own. The user has to rejoin. Runs on the dispatch loop.
func (t *target) sessionLost(gen uint64, cause error) {
	t.mux.Lock()
	if gen != t.gen || t.state != Active {
		t.mux.Unlock()
		return
	}
	t.state = Idle
	_, s := t.detachUnsafe()
	t.mux.Unlock()

	if err := s.Close(); err != nil {
		jww.WARN.Printf("[Chat] Failed to close session %s: %+v", s.ID(), err)
	}

	err := errors.Wrapf(ErrConnection, "session of %s %s lost: %v",
		t.kind, t.id, cause)
	jww.ERROR.Printf("[Chat] %+v", err)
	t.events.Report(event.Warning, event.Connection, "ConnectionError",
		err.Error())
}
