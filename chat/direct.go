////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package chat

import (
	"gitlab.com/elixxir/deskchat/connection"
	"gitlab.com/elixxir/deskchat/message"
)

// DirectChat is a one-to-one conversation with a peer.
type DirectChat struct {
	*target
}

func newDirectChat(peerID string, d deps) *DirectChat {
	dc := &DirectChat{}
	dc.target = newTarget(peerID, Direct, dc, dc, d)
	return dc
}

func (dc *DirectChat) openSession(
	conn connection.Connection) (connection.Session, error) {
	return conn.CreateDirectSession(dc.id)
}

// accept keeps chat messages with a body. Direct transports do not supply
// reliable timestamps, so every message is stamped on arrival.
func (dc *DirectChat) accept(st connection.Stanza) (func(), string) {
	if !st.Kind.Carried() {
		return nil, dropKind
	} else if st.Body == "" {
		return nil, dropEmpty
	}

	sender := st.From
	if sender == "" {
		sender = dc.id
	}
	return dc.appendInbound(message.NewNow(sender, st.Body)), ""
}
