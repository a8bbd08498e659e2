////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package chat manages the chat targets of the logged-in user. A target is
// either a one-to-one conversation (DirectChat) or a multi-user room
// (RoomChat). Each target owns a message store that is replayed from its
// history log, and while it is joined a pipeline goroutine feeds inbound
// stanzas into that store through the dispatch loop.
//
// State machine of a target:
//
//	Idle ──Join──▶ Joining ──ok──▶ Active ──Delete──▶ Closed
//	  ▲               │              │
//	  └────failure────┘◀────drop─────┘
//
// Rejoin moves an Active or Idle target back to Joining after stopping its
// pipeline and session. Closed is terminal.
package chat

import (
	"github.com/pkg/errors"

	"gitlab.com/elixxir/deskchat/connection"
	"gitlab.com/elixxir/deskchat/message"
)

var (
	// ErrConnection is returned when a session could not be opened. The
	// target is back in Idle and is not retried automatically.
	ErrConnection = errors.New("failed to establish chat session")

	// ErrNotActive is returned when sending to a target without an open
	// session. The message is not queued.
	ErrNotActive = errors.New("chat target is not active")

	// ErrTargetClosed is returned by operations on a deleted target.
	ErrTargetClosed = errors.New("chat target is closed")

	// ErrEmptyMessage is returned when sending a blank message.
	ErrEmptyMessage = errors.New("cannot send an empty message")
)

// Kind is the variant of a chat target.
type Kind uint8

const (
	Direct Kind = iota
	Room
)

// String returns the name of the kind as written to storage.
func (k Kind) String() string {
	switch k {
	case Direct:
		return "User"
	case Room:
		return "Room"
	default:
		return "Unknown"
	}
}

// State is the session state of a chat target.
type State uint32

const (
	Idle State = iota
	Joining
	Active
	Closed
)

// String returns a human-readable form of the State.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Joining:
		return "Joining"
	case Active:
		return "Active"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Target is a conversation with a peer or a room.
type Target interface {
	// ID returns the peer or room address.
	ID() string

	// Kind returns whether this is a Direct or Room target.
	Kind() Kind

	// Title returns the display name. Rooms update it from subject changes.
	Title() string

	// State returns the current session state.
	State() State

	// Messages returns the message store owned by the target.
	Messages() *message.Store

	// UnreadCount returns the number of unread messages in the store.
	UnreadCount() int

	// LatestTimestamp returns the newest message timestamp in Unix
	// milliseconds. It never decreases.
	LatestTimestamp() int64

	// Join opens a session and starts ingestion. It is a no-op while Joining
	// or Active.
	Join(conn connection.Connection) error

	// Rejoin stops the current pipeline and session, if any, and joins again.
	// It is a no-op while Joining.
	Rejoin(conn connection.Connection) error

	// SendMessage sends text to the target and appends it to the store as
	// read. Only valid while Active.
	SendMessage(text string) error

	// Delete stops ingestion, closes the session and history writer and
	// moves the target to Closed.
	Delete() error

	// PersistenceError returns the error that stopped history persistence,
	// or nil while the history log is healthy.
	PersistenceError() error
}

// Notifier receives every inbound unread message.
type Notifier interface {
	AddMessage(target string, m message.Message)
}
