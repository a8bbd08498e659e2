////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package chat

import (
	"sort"
	"sync"
	"time"

	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/xx_network/primitives/netTime"

	"gitlab.com/elixxir/deskchat/connection"
	"gitlab.com/elixxir/deskchat/message"
)

// RoomChat is a multi-user room. It tracks the occupants and the owner from
// presence stanzas and takes its title from the room subject.
type RoomChat struct {
	*target

	nick     string
	owner    string
	occupant map[string]struct{}
	roomMux  sync.RWMutex
}

func newRoomChat(roomID string, d deps) *RoomChat {
	rc := &RoomChat{occupant: make(map[string]struct{})}
	rc.target = newTarget(roomID, Room, rc, rc, d)
	return rc
}

// openSession joins the room asking only for history newer than the latest
// message from another occupant. Our own messages carry the local clock and
// do not bound the request.
func (rc *RoomChat) openSession(
	conn connection.Connection) (connection.Session, error) {
	req := connection.HistoryRequest{MaxStanzas: rc.params.HistoryLimit}
	if latest := rc.store.LatestTimestampExcept(rc.user); latest > 0 {
		req.Since = time.UnixMilli(latest)
	}

	s, err := conn.JoinRoom(rc.id, req)
	if err != nil {
		return nil, err
	}

	rc.roomMux.Lock()
	rc.nick = s.Nickname()
	rc.roomMux.Unlock()
	return s, nil
}

func (rc *RoomChat) accept(st connection.Stanza) (func(), string) {
	switch {
	case st.Kind == connection.Presence:
		return func() { rc.setPresence(st) }, ""
	case st.Kind == connection.GroupChat && st.Body == "" && st.Subject != "":
		return func() { rc.setSubject(st.Subject) }, ""
	case !st.Kind.Carried():
		return nil, dropKind
	case st.Body == "":
		return nil, dropEmpty
	case st.From == rc.Nickname():
		// The room reflects our own messages; they were appended on send
		return nil, dropEcho
	}

	ts := st.Timestamp
	if ts.IsZero() {
		ts = netTime.Now()
	}
	return rc.appendInbound(message.New(ts, st.From, st.Body)), ""
}

func (rc *RoomChat) setSubject(subject string) {
	jww.INFO.Printf("[Chat] Room %s subject changed to %q", rc.id, subject)
	rc.setTitle(subject)
}

func (rc *RoomChat) setPresence(st connection.Stanza) {
	rc.roomMux.Lock()
	defer rc.roomMux.Unlock()
	if !st.Available {
		delete(rc.occupant, st.From)
		return
	}
	rc.occupant[st.From] = struct{}{}
	if st.Owner && rc.owner != st.From {
		jww.INFO.Printf("[Chat] Room %s is owned by %s", rc.id, st.From)
		rc.owner = st.From
	}
}

// Nickname returns the nickname the room knows us by, empty before the first
// join.
func (rc *RoomChat) Nickname() string {
	rc.roomMux.RLock()
	defer rc.roomMux.RUnlock()
	return rc.nick
}

// Occupants returns the nicknames present in the room, sorted.
func (rc *RoomChat) Occupants() []string {
	rc.roomMux.RLock()
	defer rc.roomMux.RUnlock()
	list := make([]string, 0, len(rc.occupant))
	for nick := range rc.occupant {
		list = append(list, nick)
	}
	sort.Strings(list)
	return list
}

// Owner returns the nickname of the room owner as announced in presence.
func (rc *RoomChat) Owner() string {
	rc.roomMux.RLock()
	defer rc.roomMux.RUnlock()
	return rc.owner
}

// SetOwner records the owner of the room when it is learned outside of
// presence, from a room directory for example.
func (rc *RoomChat) SetOwner(owner string) {
	rc.roomMux.Lock()
	defer rc.roomMux.Unlock()
	rc.owner = owner
}

// IsOwner reports whether we own the room.
func (rc *RoomChat) IsOwner() bool {
	rc.roomMux.RLock()
	defer rc.roomMux.RUnlock()
	return rc.owner != "" && rc.owner == rc.nick
}
