////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package message

import (
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

var (
	// ErrIndexOutOfRange is returned when addressing a message that does not
	// exist.
	ErrIndexOutOfRange = errors.New("message index out of range")

	// ErrListenerExists is returned when registering a second listener under
	// the same name.
	ErrListenerExists = errors.New("a listener with that name already exists")
)

// EventKind says what happened to the store.
type EventKind uint8

const (
	Added EventKind = iota
	ReadChanged
)

// String returns a human-readable form of the EventKind.
func (k EventKind) String() string {
	switch k {
	case Added:
		return "Added"
	case ReadChanged:
		return "ReadChanged"
	default:
		return "Unknown"
	}
}

// Event is delivered to listeners after each mutation.
type Event struct {
	Kind    EventKind
	Index   int
	Message Message
}

// Listener observes store mutations. It is called synchronously, outside the
// store lock, in mutation order.
type Listener func(e Event)

// Store is the ordered message list of one chat target. Messages are
// addressed by insertion index; duplicates are kept.
//
// Mutations are expected to come from a single owner (the dispatch loop); the
// lock only makes concurrent readers safe.
type Store struct {
	messages []Message
	latest   int64

	listenerNames []string
	listeners     map[string]Listener

	mux sync.RWMutex
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{listeners: make(map[string]Listener)}
}

// Append adds a message to the end of the store and returns its index.
func (s *Store) Append(m Message) int {
	s.mux.Lock()
	s.messages = append(s.messages, m)
	index := len(s.messages) - 1
	if m.Timestamp > s.latest {
		s.latest = m.Timestamp
	}
	listeners := s.listenersUnsafe()
	s.mux.Unlock()

	notify(listeners, Event{Kind: Added, Index: index, Message: m})
	return index
}

// MarkRead marks the message at index as read. Returns false if it was
// already read.
func (s *Store) MarkRead(index int) (bool, error) {
	s.mux.Lock()
	if index < 0 || index >= len(s.messages) {
		s.mux.Unlock()
		return false, errors.Wrapf(ErrIndexOutOfRange, "mark read %d of %d",
			index, len(s.messages))
	}
	if s.messages[index].Read {
		s.mux.Unlock()
		return false, nil
	}
	s.messages[index].Read = true
	m := s.messages[index]
	listeners := s.listenersUnsafe()
	s.mux.Unlock()

	jww.TRACE.Printf("Marked message %d read: %s", index, m)
	notify(listeners, Event{Kind: ReadChanged, Index: index, Message: m})
	return true, nil
}

// Get returns the message at index.
func (s *Store) Get(index int) (Message, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if index < 0 || index >= len(s.messages) {
		return Message{}, errors.Wrapf(ErrIndexOutOfRange, "get %d of %d",
			index, len(s.messages))
	}
	return s.messages[index], nil
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.messages)
}

// All returns a copy of every message in order.
func (s *Store) All() []Message {
	s.mux.RLock()
	defer s.mux.RUnlock()
	list := make([]Message, len(s.messages))
	copy(list, s.messages)
	return list
}

// UnreadCount counts the unread messages. It is recomputed from the contents
// on every call so it can never drift from them.
func (s *Store) UnreadCount() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	n := 0
	for i := range s.messages {
		if !s.messages[i].Read {
			n++
		}
	}
	return n
}

// FirstUnread returns the index of the oldest unread message.
func (s *Store) FirstUnread() (int, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	for i := range s.messages {
		if !s.messages[i].Read {
			return i, true
		}
	}
	return -1, false
}

// LatestTimestamp returns the highest timestamp ever appended. It never
// decreases, even if a later message carries an older timestamp.
func (s *Store) LatestTimestamp() int64 {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.latest
}

// LatestTimestampExcept returns the highest timestamp among messages not sent
// by sender, or zero if there are none.
func (s *Store) LatestTimestampExcept(sender string) int64 {
	s.mux.RLock()
	defer s.mux.RUnlock()
	var latest int64
	for i := range s.messages {
		if s.messages[i].Sender != sender && s.messages[i].Timestamp > latest {
			latest = s.messages[i].Timestamp
		}
	}
	return latest
}

// AddListener registers a listener under a unique name.
func (s *Store) AddListener(name string, l Listener) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, exists := s.listeners[name]; exists {
		return errors.Wrapf(ErrListenerExists, "listener %q", name)
	}
	s.listeners[name] = l
	s.listenerNames = append(s.listenerNames, name)
	return nil
}

// RemoveListener unregisters the named listener.
func (s *Store) RemoveListener(name string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, exists := s.listeners[name]; !exists {
		return
	}
	delete(s.listeners, name)
	for i, n := range s.listenerNames {
		if n == name {
			s.listenerNames = append(s.listenerNames[:i], s.listenerNames[i+1:]...)
			break
		}
	}
}

// listenersUnsafe snapshots the listeners in registration order. Must be
// called under the lock.
func (s *Store) listenersUnsafe() []Listener {
	list := make([]Listener, 0, len(s.listenerNames))
	for _, n := range s.listenerNames {
		list = append(list, s.listeners[n])
	}
	return list
}

func notify(listeners []Listener, e Event) {
	for _, l := range listeners {
		l(e)
	}
}
