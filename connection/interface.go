////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package connection defines what the chat core needs from the messaging
// connection. Protocol framing and transport live behind these interfaces.
package connection

import (
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrInterrupted is returned by Session.Next when the wait was cut short
	// by the quit channel or by the transport swallowing an interrupt. It is
	// not a failure; the caller decides whether to keep waiting.
	ErrInterrupted = errors.New("wait for next stanza interrupted")

	// ErrSessionClosed is returned by a session that was closed locally.
	ErrSessionClosed = errors.New("session closed")
)

// StanzaKind is the type of an inbound stanza.
type StanzaKind uint8

const (
	Chat StanzaKind = iota
	GroupChat
	Normal
	Headline
	Error
	Presence
)

// String returns the wire name of the kind.
func (k StanzaKind) String() string {
	switch k {
	case Chat:
		return "chat"
	case GroupChat:
		return "groupchat"
	case Normal:
		return "normal"
	case Headline:
		return "headline"
	case Error:
		return "error"
	case Presence:
		return "presence"
	default:
		return "unknown"
	}
}

// Carried reports whether stanzas of this kind carry chat messages.
func (k StanzaKind) Carried() bool {
	return k == Chat || k == GroupChat || k == Normal
}

// Stanza is one inbound item from a session.
type Stanza struct {
	Kind StanzaKind

	// From is the sender address, or the occupant nickname in a room. Rooms
	// reflect our own messages back under Session.Nickname.
	From string
	Body string

	// Subject is set when a room topic changes.
	Subject string

	// Timestamp is the delayed-delivery time supplied by the server, zero if
	// none was supplied.
	Timestamp time.Time

	// Available is the presence state for Presence stanzas.
	Available bool

	// Owner marks a Presence stanza of an occupant with owner affiliation.
	Owner bool
}

// HistoryRequest bounds the history a room replays on join.
type HistoryRequest struct {
	MaxStanzas int
	Since      time.Time
}

// Session is a live conversation channel for one target.
type Session interface {
	// ID identifies the session in logs.
	ID() string

	// Next blocks until a stanza arrives, the quit channel is closed or the
	// session ends. An ended session returns a non-nil error other than
	// ErrInterrupted.
	Next(quit <-chan struct{}) (Stanza, error)

	// Nickname is the name our own stanzas carry in From: the occupant
	// nickname in a room, the user address in a direct session.
	Nickname() string

	// Send delivers a message body to the target.
	Send(body string) error

	// Close ends the session and unblocks Next.
	Close() error
}

// Connection is the logged-in messaging connection.
type Connection interface {
	// CurrentUser returns the address of the logged-in user.
	CurrentUser() string

	// JoinRoom enters a multi-user room and replays bounded history on the
	// returned session.
	JoinRoom(roomID string, history HistoryRequest) (Session, error)

	// CreateDirectSession opens a one-to-one conversation with a peer.
	CreateDirectSession(peerID string) (Session, error)
}
