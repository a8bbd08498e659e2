////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package message contains the chat message record and the ordered,
// observable store that holds the messages of one chat target.
package message

import (
	"fmt"
	"time"

	"gitlab.com/xx_network/primitives/netTime"
)

// Message is one chat line. Read is the only field that ever changes, and it
// only goes from false to true.
type Message struct {
	// Timestamp is the best-effort send time in Unix milliseconds. It may be
	// approximate and is not used for ordering.
	Timestamp int64  `json:"t"`
	Sender    string `json:"s"`
	Body      string `json:"b"`
	Read      bool   `json:"r"`
}

// New returns an unread message stamped with the given time.
func New(ts time.Time, sender, body string) Message {
	return Message{
		Timestamp: ts.UnixMilli(),
		Sender:    sender,
		Body:      body,
	}
}

// NewNow returns an unread message stamped with the current network time.
func NewNow(sender, body string) Message {
	return New(netTime.Now(), sender, body)
}

// Time returns the timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// String returns a compact form of the message for logs. The body is
// truncated.
func (m Message) String() string {
	body := m.Body
	if len(body) > 32 {
		body = body[:32] + "..."
	}
	return fmt.Sprintf("{%d %s %q read:%t}", m.Timestamp, m.Sender, body, m.Read)
}
