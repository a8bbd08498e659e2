////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package loopback is an in-memory connection.Connection. Stanzas are injected
// with Deliver and everything sent is recorded. The CLI uses it as an offline
// connection and the tests use it to drive the chat core.
package loopback

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/deskchat/connection"
)

const (
	inboxSize = 4096

	// How often a session that swallows interrupts wakes up Next.
	swallowedWakeup = 10 * time.Millisecond
)

// ErrDropped is the default error of sessions ended by Drop.
var ErrDropped = errors.New("connection dropped")

// Network is an in-memory connection for one user.
type Network struct {
	user string

	sessions map[string][]*session
	history  map[string][]connection.Stanza
	joinErrs map[string]error
	sent     map[string][]string
	opened   map[string]int
	requests map[string][]connection.HistoryRequest
	owners   map[string]string
	echo     bool
	swallow  bool

	mux sync.Mutex
}

// New returns a Network logged in as user.
func New(user string) *Network {
	return &Network{
		user:     user,
		sessions: make(map[string][]*session),
		history:  make(map[string][]connection.Stanza),
		joinErrs: make(map[string]error),
		sent:     make(map[string][]string),
		opened:   make(map[string]int),
		requests: make(map[string][]connection.HistoryRequest),
		owners:   make(map[string]string),
	}
}

// CurrentUser returns the logged-in user.
func (n *Network) CurrentUser() string {
	return n.user
}

// JoinRoom opens a room session and queues the user's own presence followed by
// the requested history on it.
func (n *Network) JoinRoom(roomID string,
	h connection.HistoryRequest) (connection.Session, error) {
	n.mux.Lock()
	defer n.mux.Unlock()

	if err := n.joinErrs[roomID]; err != nil {
		return nil, err
	}
	n.requests[roomID] = append(n.requests[roomID], h)

	s := n.newSessionUnsafe(roomID, "")
	s.nick = Nickname(n.user)

	// The first occupant of a room creates it and owns it
	if _, exists := n.owners[roomID]; !exists {
		n.owners[roomID] = s.nick
	}
	s.inbox <- connection.Stanza{
		Kind:      connection.Presence,
		From:      s.nick,
		Available: true,
		Owner:     n.owners[roomID] == s.nick,
	}
	for _, st := range selectHistory(n.history[roomID], h) {
		s.inbox <- st
	}
	return s, nil
}

// CreateDirectSession opens a session with peerID.
func (n *Network) CreateDirectSession(peerID string) (connection.Session, error) {
	n.mux.Lock()
	defer n.mux.Unlock()

	if err := n.joinErrs[peerID]; err != nil {
		return nil, err
	}
	s := n.newSessionUnsafe(peerID, peerID)
	s.nick = n.user
	return s, nil
}

func (n *Network) newSessionUnsafe(target, peer string) *session {
	s := &session{
		id:     uuid.NewString(),
		target: target,
		peer:   peer,
		net:    n,
		inbox:  make(chan connection.Stanza, inboxSize),
		done:   make(chan struct{}),
	}
	n.sessions[target] = append(n.sessions[target], s)
	n.opened[target]++
	jww.DEBUG.Printf("[Loopback] opened session %s for %s", s.id, target)
	return s
}

// Nickname returns the room nickname of a user address, its local part.
func Nickname(user string) string {
	if i := strings.IndexByte(user, '@'); i > 0 {
		return user[:i]
	}
	return user
}

// selectHistory applies the history bounds: only stanzas after Since, and at
// most the newest MaxStanzas of them.
func selectHistory(all []connection.Stanza,
	h connection.HistoryRequest) []connection.Stanza {
	list := make([]connection.Stanza, 0, len(all))
	for _, st := range all {
		if !h.Since.IsZero() && !st.Timestamp.After(h.Since) {
			continue
		}
		list = append(list, st)
	}
	if h.MaxStanzas > 0 && len(list) > h.MaxStanzas {
		list = list[len(list)-h.MaxStanzas:]
	}
	return list
}

// SetRoomOwner records nick as the owner of roomID. Joiners are told through
// presence.
func (n *Network) SetRoomOwner(roomID, nick string) {
	n.mux.Lock()
	defer n.mux.Unlock()
	n.owners[roomID] = nick
}

// AddHistory records a stanza the room replays to later joiners.
func (n *Network) AddHistory(roomID string, st connection.Stanza) {
	n.mux.Lock()
	defer n.mux.Unlock()
	n.history[roomID] = append(n.history[roomID], st)
}

// Deliver queues a stanza on every open session of the target and returns how
// many sessions received it.
func (n *Network) Deliver(targetID string, st connection.Stanza) int {
	n.mux.Lock()
	defer n.mux.Unlock()

	count := 0
	for _, s := range n.sessions[targetID] {
		if s.push(st) {
			count++
		}
	}
	return count
}

// Drop ends every open session of the target with err, as if the connection
// went away. A nil err uses ErrDropped.
func (n *Network) Drop(targetID string, err error) {
	if err == nil {
		err = ErrDropped
	}

	n.mux.Lock()
	list := n.sessions[targetID]
	n.mux.Unlock()

	for _, s := range list {
		s.end(err)
	}
}

// FailJoin makes joins of the target fail with err until it is cleared with a
// nil err.
func (n *Network) FailJoin(targetID string, err error) {
	n.mux.Lock()
	defer n.mux.Unlock()
	if err == nil {
		delete(n.joinErrs, targetID)
	} else {
		n.joinErrs[targetID] = err
	}
}

// SetEcho makes direct sessions answer every sent message with a copy from
// the peer.
func (n *Network) SetEcho(echo bool) {
	n.mux.Lock()
	defer n.mux.Unlock()
	n.echo = echo
}

// SwallowInterrupts makes Next ignore its quit channel and instead wake up
// periodically with connection.ErrInterrupted, like transports that suppress
// interruption inside their blocking receive.
func (n *Network) SwallowInterrupts(swallow bool) {
	n.mux.Lock()
	defer n.mux.Unlock()
	n.swallow = swallow
}

// Sent returns the bodies sent to the target.
func (n *Network) Sent(targetID string) []string {
	n.mux.Lock()
	defer n.mux.Unlock()
	return append([]string(nil), n.sent[targetID]...)
}

// Opened returns how many sessions were ever opened for the target.
func (n *Network) Opened(targetID string) int {
	n.mux.Lock()
	defer n.mux.Unlock()
	return n.opened[targetID]
}

// Open returns how many sessions of the target are still open.
func (n *Network) Open(targetID string) int {
	n.mux.Lock()
	defer n.mux.Unlock()
	return len(n.sessions[targetID])
}

// HistoryRequests returns the history bounds of every room join.
func (n *Network) HistoryRequests(roomID string) []connection.HistoryRequest {
	n.mux.Lock()
	defer n.mux.Unlock()
	return append([]connection.HistoryRequest(nil), n.requests[roomID]...)
}

func (n *Network) remove(s *session) {
	n.mux.Lock()
	defer n.mux.Unlock()
	list := n.sessions[s.target]
	for i := range list {
		if list[i] == s {
			n.sessions[s.target] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

func (n *Network) recordSend(s *session, body string) {
	n.mux.Lock()
	n.sent[s.target] = append(n.sent[s.target], body)
	echo := n.echo && s.peer != ""
	n.mux.Unlock()

	switch {
	case s.peer == "":
		// Rooms reflect every message to all occupants, the sender included
		s.push(connection.Stanza{
			Kind: connection.GroupChat,
			From: s.nick,
			Body: body,
		})
	case echo:
		s.push(connection.Stanza{
			Kind: connection.Chat,
			From: s.peer,
			Body: body,
		})
	}
}

func (n *Network) swallowing() bool {
	n.mux.Lock()
	defer n.mux.Unlock()
	return n.swallow
}
