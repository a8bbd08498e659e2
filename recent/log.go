////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package recent stores the ordered list of chat targets a user has open so
// that the session can be restored on the next start.
package recent

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/xx_network/primitives/netTime"

	"gitlab.com/elixxir/deskchat/storage/versioned"
)

const (
	recentTargetsVersion = 0
	recentTargetsKey     = "RecentTargets"
)

// Entry kinds as written to storage.
const (
	KindUser = "User"
	KindRoom = "Room"
)

// Entry is one open chat target.
type Entry struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Log is the recent-targets list of one user. Every Save replaces the stored
// list as a whole.
type Log struct {
	kv  *versioned.KV
	mux sync.Mutex
}

// NewLog returns the log of the given user within kv.
func NewLog(kv *versioned.KV, user string) *Log {
	return &Log{kv: kv.Prefix(user)}
}

// Save replaces the stored list with entries.
func (l *Log) Save(entries []Entry) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "failed to marshal recent targets")
	}

	obj := &versioned.Object{
		Version:   recentTargetsVersion,
		Timestamp: netTime.Now(),
		Data:      data,
	}

	if err = l.kv.Set(recentTargetsKey, obj); err != nil {
		return errors.Wrap(err, "failed to store recent targets")
	}

	jww.DEBUG.Printf("[Recent] saved %d targets", len(entries))
	return nil
}

// Load returns the stored list. A list that was never saved is empty.
// Entries with an unknown kind or an empty ID are dropped.
func (l *Log) Load() ([]Entry, error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	obj, err := l.kv.Get(recentTargetsKey, recentTargetsVersion)
	if !l.kv.Exists(err) {
		return []Entry{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to load recent targets")
	}

	var entries []Entry
	if err = json.Unmarshal(obj.Data, &entries); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal recent targets")
	}

	valid := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if (e.Kind != KindUser && e.Kind != KindRoom) || e.ID == "" {
			jww.WARN.Printf("[Recent] dropping invalid entry %+v", e)
			continue
		}
		valid = append(valid, e)
	}

	return valid, nil
}
