////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventReporting(t *testing.T) {
	var mux sync.Mutex
	evts := make([]reportableEvent, 0)
	myCb := func(priority int, cat, ty, det string) {
		mux.Lock()
		defer mux.Unlock()
		evts = append(evts, reportableEvent{priority, cat, ty, det})
	}
	count := func() int {
		mux.Lock()
		defer mux.Unlock()
		return len(evts)
	}

	evtMgr := NewEventManager()
	stop, err := evtMgr.EventService()
	require.NoError(t, err)
	defer stop.Close()

	require.NoError(t, evtMgr.RegisterEventCallback("test", myCb))
	require.Error(t, evtMgr.RegisterEventCallback("test", myCb))

	evtMgr.Report(Error, Connection, "JoinFailed", "room@conference")
	evtMgr.Report(Warning, History, "PersistenceFailed", "disk full")

	require.Eventually(t, func() bool { return count() == 2 },
		time.Second, 5*time.Millisecond)

	mux.Lock()
	require.Equal(t, Connection, evts[0].Category)
	require.Equal(t, "JoinFailed", evts[0].EventType)
	require.Equal(t, "disk full", evts[1].Details)
	mux.Unlock()

	evtMgr.UnregisterEventCallback("test")
	evtMgr.Report(Info, ReadState, "Discarded", "switched target")

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 2, count())
}
