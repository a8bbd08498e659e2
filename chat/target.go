////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package chat

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/deskchat/connection"
	"gitlab.com/elixxir/deskchat/dispatch"
	"gitlab.com/elixxir/deskchat/emoji"
	"gitlab.com/elixxir/deskchat/event"
	"gitlab.com/elixxir/deskchat/history"
	"gitlab.com/elixxir/deskchat/message"
	"gitlab.com/elixxir/deskchat/stoppable"
)

const historyListener = "history"

// variant holds what differs between direct chats and rooms.
type variant interface {
	// openSession asks the connection for a session with the target.
	openSession(conn connection.Connection) (connection.Session, error)

	// accept turns an inbound stanza into work for the dispatch loop. A nil
	// func drops the stanza for the given reason.
	accept(st connection.Stanza) (func(), string)
}

// deps are the collaborators shared by every target of a manager.
type deps struct {
	user      string
	poster    dispatch.Poster
	events    event.Reporter
	emoji     *emoji.Set
	params    Params
	onInbound func(t Target, m message.Message)
}

// target is the state machine shared by DirectChat and RoomChat.
type target struct {
	id   string
	kind Kind
	self Target
	v    variant
	deps

	title string
	state State

	// gen is bumped whenever the session changes so work posted by an old
	// pipeline can be recognised and dropped.
	gen      uint64
	session  connection.Session
	pipeline *stoppable.Single

	store      *message.Store
	history    *history.Log
	persistErr error

	mux sync.RWMutex
}

// newTarget builds the shared state and replays the history log into the
// store. The persisting listener is attached after the replay so replayed
// messages are not written again.
func newTarget(id string, kind Kind, self Target, v variant, d deps) *target {
	t := &target{
		id:    id,
		kind:  kind,
		self:  self,
		v:     v,
		deps:  d,
		title: id,
		state: Idle,
		store: message.NewStore(),
	}

	if d.params.HistoryDir != "" {
		t.history = history.Open(
			history.Path(d.params.HistoryDir, d.user, kind.String(), id))
		t.replay()
	}

	if err := t.store.AddListener(historyListener, t.persist); err != nil {
		jww.FATAL.Panicf("[Chat] %+v", err)
	}

	return t
}

func (t *target) replay() {
	list, skipped, err := t.history.Replay()
	if err != nil {
		jww.ERROR.Printf("[Chat] Failed to replay history of %s %s: %+v",
			t.kind, t.id, err)
		t.events.Report(event.Error, event.History, "ReplayError", err.Error())
	}
	if skipped > 0 {
		t.events.Report(event.Warning, event.History, "MalformedHistoryRecord",
			errors.Wrapf(history.ErrMalformedRecord, "%d records of %s %s",
				skipped, t.kind, t.id).Error())
	}

	for _, m := range list {
		t.store.Append(m)
	}
	jww.DEBUG.Printf("[Chat] Replayed %d messages of %s %s (%d skipped)",
		len(list), t.kind, t.id, skipped)
}

// persist writes every added message to the history log. The first failure
// is surfaced once; the log refuses further writes after it.
func (t *target) persist(e message.Event) {
	if e.Kind != message.Added || t.history == nil {
		return
	}

	err := t.history.Append(e.Message)
	if err == nil || errors.Is(err, history.ErrClosed) {
		return
	}

	t.mux.Lock()
	first := t.persistErr == nil
	t.persistErr = err
	t.mux.Unlock()

	if first {
		t.events.Report(event.Error, event.History, "PersistenceIOError",
			err.Error())
	}
}

func (t *target) ID() string { return t.id }

func (t *target) Kind() Kind { return t.kind }

func (t *target) Title() string {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return t.title
}

func (t *target) setTitle(title string) {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.title = title
}

func (t *target) State() State {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return t.state
}

func (t *target) Messages() *message.Store { return t.store }

func (t *target) UnreadCount() int { return t.store.UnreadCount() }

func (t *target) LatestTimestamp() int64 { return t.store.LatestTimestamp() }

func (t *target) PersistenceError() error {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return t.persistErr
}

// Join opens a session if the target is Idle.
func (t *target) Join(conn connection.Connection) error {
	t.mux.Lock()
	switch t.state {
	case Closed:
		t.mux.Unlock()
		return errors.Wrapf(ErrTargetClosed, "cannot join %s %s", t.kind, t.id)
	case Joining, Active:
		jww.DEBUG.Printf("[Chat] Ignoring join of %s %s: already %s",
			t.kind, t.id, t.state)
		t.mux.Unlock()
		return nil
	}
	t.state = Joining
	t.mux.Unlock()

	return t.establish(conn)
}

// Rejoin replaces the current session with a new one.
func (t *target) Rejoin(conn connection.Connection) error {
	t.mux.Lock()
	switch t.state {
	case Closed:
		t.mux.Unlock()
		return errors.Wrapf(ErrTargetClosed, "cannot rejoin %s %s", t.kind, t.id)
	case Joining:
		jww.DEBUG.Printf("[Chat] Ignoring rejoin of %s %s: already joining",
			t.kind, t.id)
		t.mux.Unlock()
		return nil
	}
	t.state = Joining
	p, s := t.detachUnsafe()
	t.mux.Unlock()

	t.shutdown(p, s)
	return t.establish(conn)
}

// establish opens the session of a Joining target and starts its pipeline.
func (t *target) establish(conn connection.Connection) error {
	jww.INFO.Printf("[Chat] Joining %s %s", t.kind, t.id)
	s, err := t.v.openSession(conn)

	t.mux.Lock()
	if err != nil {
		if t.state == Joining {
			t.state = Idle
		}
		t.mux.Unlock()

		err = errors.Wrapf(ErrConnection, "join %s %s: %v", t.kind, t.id, err)
		jww.ERROR.Printf("[Chat] %+v", err)
		t.events.Report(event.Error, event.Connection, "ConnectionError",
			err.Error())
		return err
	}

	if t.state != Joining {
		// Deleted while the session was being opened
		t.mux.Unlock()
		if closeErr := s.Close(); closeErr != nil {
			jww.WARN.Printf("[Chat] Failed to close session %s: %+v",
				s.ID(), closeErr)
		}
		return errors.Wrapf(ErrTargetClosed, "join %s %s", t.kind, t.id)
	}

	t.gen++
	t.session = s
	t.pipeline = stoppable.NewSingle(pipelineName(t.kind, t.id))
	t.state = Active
	go t.ingest(t.pipeline, s, t.gen)
	t.mux.Unlock()

	jww.INFO.Printf("[Chat] %s %s is active on session %s", t.kind, t.id, s.ID())
	return nil
}

// detachUnsafe removes the current pipeline and session and invalidates any
// work they have posted. Must be called under the lock.
func (t *target) detachUnsafe() (*stoppable.Single, connection.Session) {
	p, s := t.pipeline, t.session
	t.pipeline, t.session = nil, nil
	t.gen++
	return p, s
}

// shutdown stops the pipeline and then closes the session. Either may be nil.
func (t *target) shutdown(p *stoppable.Single, s connection.Session) {
	var err error
	if p != nil {
		if err = p.Close(); err == nil {
			err = stoppable.WaitForStopped(p, t.params.StopTimeout)
		}
	}

	if s != nil {
		if closeErr := s.Close(); closeErr != nil {
			jww.WARN.Printf("[Chat] Failed to close session %s: %+v",
				s.ID(), closeErr)
		}
	}

	if err != nil {
		jww.ERROR.Printf("[Chat] Pipeline of %s %s did not stop cleanly: %+v",
			t.kind, t.id, err)
	}
}

// SendMessage sends text after expanding emoji shortcodes. The local copy is
// appended on the dispatch loop.
func (t *target) SendMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	t.mux.RLock()
	state, s := t.state, t.session
	t.mux.RUnlock()
	if state != Active {
		return errors.Wrapf(ErrNotActive, "send to %s %s (%s)",
			t.kind, t.id, state)
	}

	body := t.emoji.Expand(text)
	if err := s.Send(body); err != nil {
		return errors.WithMessagef(err, "failed to send to %s %s", t.kind, t.id)
	}

	m := message.NewNow(t.user, body)
	m.Read = true
	t.poster.Post(func() { t.store.Append(m) })
	return nil
}

// Delete closes the target for good. The history file stays on disk.
func (t *target) Delete() error {
	t.mux.Lock()
	if t.state == Closed {
		t.mux.Unlock()
		return nil
	}
	t.state = Closed
	p, s := t.detachUnsafe()
	t.mux.Unlock()

	t.shutdown(p, s)
	t.store.RemoveListener(historyListener)

	jww.INFO.Printf("[Chat] Closed %s %s", t.kind, t.id)
	if t.history != nil {
		return t.history.Close()
	}
	return nil
}
