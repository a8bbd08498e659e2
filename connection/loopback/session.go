////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package loopback

import (
	"sync"
	"time"

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/deskchat/connection"
)

type session struct {
	id     string
	target string
	peer   string
	nick   string
	net    *Network

	inbox chan connection.Stanza
	done  chan struct{}
	err   error
	once  sync.Once
}

func (s *session) ID() string {
	return s.id
}

func (s *session) Nickname() string {
	return s.nick
}

func (s *session) Next(quit <-chan struct{}) (connection.Stanza, error) {
	// Pending stanzas win over an ended session so nothing queued is lost
	select {
	case st := <-s.inbox:
		return st, nil
	default:
	}

	if s.net.swallowing() {
		select {
		case st := <-s.inbox:
			return st, nil
		case <-s.done:
			return connection.Stanza{}, s.err
		case <-time.After(swallowedWakeup):
			return connection.Stanza{}, connection.ErrInterrupted
		}
	}

	select {
	case st := <-s.inbox:
		return st, nil
	case <-s.done:
		return connection.Stanza{}, s.err
	case <-quit:
		return connection.Stanza{}, connection.ErrInterrupted
	}
}

func (s *session) Send(body string) error {
	select {
	case <-s.done:
		return s.err
	default:
	}
	s.net.recordSend(s, body)
	return nil
}

func (s *session) Close() error {
	s.end(connection.ErrSessionClosed)
	return nil
}

func (s *session) push(st connection.Stanza) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.inbox <- st:
		return true
	default:
		jww.WARN.Printf("[Loopback] inbox of session %s full, dropping %s",
			s.id, st.Kind)
		return false
	}
}

func (s *session) end(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
		s.net.remove(s)
		jww.DEBUG.Printf("[Loopback] session %s for %s ended: %v",
			s.id, s.target, err)
	})
}
