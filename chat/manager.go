////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package chat

import (
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"go.uber.org/ratelimit"

	"gitlab.com/elixxir/deskchat/connection"
	"gitlab.com/elixxir/deskchat/dispatch"
	"gitlab.com/elixxir/deskchat/emoji"
	"gitlab.com/elixxir/deskchat/event"
	"gitlab.com/elixxir/deskchat/message"
	"gitlab.com/elixxir/deskchat/recent"
	"gitlab.com/elixxir/deskchat/storage/versioned"
)

// Manager owns the chat targets of the logged-in user and keeps the recent
// targets list in step with them.
type Manager struct {
	conn     connection.Connection
	recent   *recent.Log
	notifier Notifier
	deps

	targets map[string]Target
	order   []string
	mux     sync.RWMutex
}

// NewManager creates a manager for the user logged in on conn. The emoji set
// and the notifier must be ready before the first target is joined.
func NewManager(conn connection.Connection, kv *versioned.KV,
	poster dispatch.Poster, notifier Notifier, emojis *emoji.Set,
	events event.Reporter, params Params) *Manager {
	m := &Manager{
		conn:     conn,
		recent:   recent.NewLog(kv, conn.CurrentUser()),
		notifier: notifier,
		targets:  make(map[string]Target),
	}
	m.deps = deps{
		user:      conn.CurrentUser(),
		poster:    poster,
		events:    events,
		emoji:     emojis,
		params:    params,
		onInbound: m.onInbound,
	}
	return m
}

func makeKey(kind Kind, id string) string {
	return kind.String() + "/" + id
}

// Direct returns the direct chat with peerID, creating it if needed.
func (m *Manager) Direct(peerID string) *DirectChat {
	m.mux.Lock()
	defer m.mux.Unlock()
	key := makeKey(Direct, peerID)
	if t, exists := m.targets[key]; exists {
		return t.(*DirectChat)
	}
	dc := newDirectChat(peerID, m.deps)
	m.addUnsafe(key, dc)
	return dc
}

// Room returns the room with roomID, creating it if needed.
func (m *Manager) Room(roomID string) *RoomChat {
	m.mux.Lock()
	defer m.mux.Unlock()
	key := makeKey(Room, roomID)
	if t, exists := m.targets[key]; exists {
		return t.(*RoomChat)
	}
	rc := newRoomChat(roomID, m.deps)
	m.addUnsafe(key, rc)
	return rc
}

func (m *Manager) addUnsafe(key string, t Target) {
	m.targets[key] = t
	m.order = append(m.order, key)
	jww.DEBUG.Printf("[Chat] Created target %s", key)
}

// Get returns the target of the given kind and ID if it exists.
func (m *Manager) Get(kind Kind, id string) (Target, bool) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	t, exists := m.targets[makeKey(kind, id)]
	return t, exists
}

// Targets returns every target in creation order.
func (m *Manager) Targets() []Target {
	m.mux.RLock()
	defer m.mux.RUnlock()
	list := make([]Target, 0, len(m.order))
	for _, key := range m.order {
		list = append(list, m.targets[key])
	}
	return list
}

// Activate joins the target and records it in the recent targets list.
func (m *Manager) Activate(t Target) error {
	if err := t.Join(m.conn); err != nil {
		return err
	}
	if err := m.SaveRecent(); err != nil {
		jww.ERROR.Printf("[Chat] %+v", err)
	}
	return nil
}

// Remove deletes the target and drops it from the recent targets list.
func (m *Manager) Remove(t Target) error {
	err := t.Delete()

	key := makeKey(t.Kind(), t.ID())
	m.mux.Lock()
	delete(m.targets, key)
	for i := range m.order {
		if m.order[i] == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mux.Unlock()

	if saveErr := m.SaveRecent(); saveErr != nil {
		jww.ERROR.Printf("[Chat] %+v", saveErr)
	}
	return err
}

// SaveRecent replaces the stored recent targets list with every target that
// is not closed.
func (m *Manager) SaveRecent() error {
	var entries []recent.Entry
	for _, t := range m.Targets() {
		if t.State() == Closed {
			continue
		}
		entries = append(entries, recent.Entry{Kind: t.Kind().String(), ID: t.ID()})
	}
	return errors.WithMessage(m.recent.Save(entries),
		"failed to save recent targets")
}

// Restore recreates the targets of the recent targets list and joins them.
// Joins are paced at Params.RestoreRate per second. A failed join leaves its
// target Idle and does not stop the others. Returns the restored targets.
func (m *Manager) Restore() ([]Target, error) {
	entries, err := m.recent.Load()
	if err != nil {
		return nil, err
	}

	rate := m.params.RestoreRate
	if rate <= 0 {
		rate = defaultRestoreRate
	}
	rl := ratelimit.New(rate)

	list := make([]Target, 0, len(entries))
	for _, e := range entries {
		var t Target
		switch e.Kind {
		case recent.KindUser:
			t = m.Direct(e.ID)
		case recent.KindRoom:
			t = m.Room(e.ID)
		default:
			continue
		}
		list = append(list, t)

		rl.Take()
		if err = t.Join(m.conn); err != nil {
			jww.WARN.Printf("[Chat] Failed to restore %s %s: %+v",
				e.Kind, e.ID, err)
		}
	}

	jww.INFO.Printf("[Chat] Restored %d targets", len(list))
	return list, nil
}

// Close saves the recent targets list and closes every target.
func (m *Manager) Close() error {
	err := m.SaveRecent()
	for _, t := range m.Targets() {
		if deleteErr := t.Delete(); deleteErr != nil {
			jww.WARN.Printf("[Chat] Failed to close %s %s: %+v",
				t.Kind(), t.ID(), deleteErr)
		}
	}
	return err
}

// onInbound forwards unread inbound messages to the notifier. Runs on the
// dispatch loop.
func (m *Manager) onInbound(t Target, msg message.Message) {
	if m.notifier == nil || msg.Read {
		return
	}
	m.notifier.AddMessage(t.Title(), msg)
}
