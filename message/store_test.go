////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package message

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// countUnread recomputes the unread count independently of the store.
func countUnread(list []Message) int {
	n := 0
	for _, m := range list {
		if !m.Read {
			n++
		}
	}
	return n
}

// Tests the two-message scenario: two appends give two unread, marking the
// first read leaves one.
func TestStore_UnreadScenario(t *testing.T) {
	s := NewStore()
	s.Append(Message{Timestamp: 100, Sender: "alice", Body: "hi"})
	s.Append(Message{Timestamp: 200, Sender: "bob", Body: "yo"})

	require.Equal(t, 2, s.UnreadCount())

	changed, err := s.MarkRead(0)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 1, s.UnreadCount())
	require.Equal(t, int64(200), s.LatestTimestamp())
}

// Tests that after every random mutation the unread count matches the
// contents of the store.
func TestStore_UnreadCountInvariant(t *testing.T) {
	prng := rand.New(rand.NewSource(42))
	s := NewStore()

	for i := 0; i < 500; i++ {
		if s.Len() == 0 || prng.Intn(3) > 0 {
			s.Append(Message{
				Timestamp: prng.Int63n(1 << 40),
				Sender:    "user" + strconv.Itoa(prng.Intn(5)),
				Body:      strconv.Itoa(i),
				Read:      prng.Intn(4) == 0,
			})
		} else {
			_, err := s.MarkRead(prng.Intn(s.Len()))
			require.NoError(t, err)
		}

		if expected := countUnread(s.All()); s.UnreadCount() != expected {
			t.Fatalf("Unread count drifted after mutation %d."+
				"\nexpected: %d\nreceived: %d", i, expected, s.UnreadCount())
		}
	}
}

// Tests that marking an already-read message reports no change and emits no
// event.
func TestStore_MarkRead_Idempotent(t *testing.T) {
	s := NewStore()
	s.Append(Message{Body: "a"})

	var events []Event
	require.NoError(t, s.AddListener("test", func(e Event) {
		events = append(events, e)
	}))

	changed, err := s.MarkRead(0)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = s.MarkRead(0)
	require.NoError(t, err)
	require.False(t, changed)

	require.Len(t, events, 1)
	require.Equal(t, ReadChanged, events[0].Kind)
	require.True(t, events[0].Message.Read)
}

// Error path: out of range indices are rejected.
func TestStore_MarkRead_OutOfRange(t *testing.T) {
	s := NewStore()
	_, err := s.MarkRead(0)
	require.True(t, errors.Is(err, ErrIndexOutOfRange))

	_, err = s.Get(-1)
	require.True(t, errors.Is(err, ErrIndexOutOfRange))
}

// Tests that listeners see events in mutation order with correct indices and
// that duplicates are kept as separate entries.
func TestStore_Listeners(t *testing.T) {
	s := NewStore()
	var kinds []EventKind
	var indices []int
	require.NoError(t, s.AddListener("order", func(e Event) {
		kinds = append(kinds, e.Kind)
		indices = append(indices, e.Index)
	}))
	require.True(t, errors.Is(
		s.AddListener("order", func(Event) {}), ErrListenerExists))

	dup := Message{Timestamp: 5, Sender: "alice", Body: "same"}
	s.Append(dup)
	s.Append(dup)
	_, _ = s.MarkRead(1)

	require.Equal(t, []EventKind{Added, Added, ReadChanged}, kinds)
	require.Equal(t, []int{0, 1, 1}, indices)
	require.Equal(t, 2, s.Len())

	s.RemoveListener("order")
	s.Append(dup)
	require.Len(t, kinds, 3)
}

// Tests that LatestTimestamp never decreases.
func TestStore_LatestTimestamp_Monotonic(t *testing.T) {
	s := NewStore()
	s.Append(Message{Timestamp: 300})
	s.Append(Message{Timestamp: 100})
	require.Equal(t, int64(300), s.LatestTimestamp())

	first, ok := s.FirstUnread()
	require.True(t, ok)
	require.Equal(t, 0, first)
}

// Tests that LatestTimestampExcept ignores the excluded sender.
func TestStore_LatestTimestampExcept(t *testing.T) {
	s := NewStore()
	require.Zero(t, s.LatestTimestampExcept("me"))

	s.Append(Message{Timestamp: 200, Sender: "alice"})
	s.Append(Message{Timestamp: 500, Sender: "me"})
	s.Append(Message{Timestamp: 100, Sender: "bob"})
	require.Equal(t, int64(200), s.LatestTimestampExcept("me"))
	require.Equal(t, int64(500), s.LatestTimestamp())
}
