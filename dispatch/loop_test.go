////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/elixxir/deskchat/stoppable"
)

// Tests that work posted from several goroutines runs in per-poster order and
// never concurrently.
func TestLoop_Order(t *testing.T) {
	l := NewLoop("test")
	stop := l.Start()
	defer stop.Close()

	const posters, perPoster = 4, 200
	results := make(map[int][]int)
	running := 0

	var wg sync.WaitGroup
	for p := 0; p < posters; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPoster; i++ {
				i := i
				l.Post(func() {
					running++
					if running != 1 {
						t.Errorf("%d functions running at once", running)
					}
					results[p] = append(results[p], i)
					running--
				})
			}
		}(p)
	}
	wg.Wait()
	l.Invoke(func() {})

	for p := 0; p < posters; p++ {
		require.Len(t, results[p], perPoster)
		for i, v := range results[p] {
			require.Equal(t, i, v, "poster %d out of order", p)
		}
	}
}

// Tests that work posted before Start runs once the loop starts.
func TestLoop_PostBeforeStart(t *testing.T) {
	l := NewLoop("test")
	ran := make(chan struct{})
	l.Post(func() { close(ran) })
	require.Equal(t, 1, l.Len())

	stop := l.Start()
	defer stop.Close()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("Queued work did not run after Start.")
	}
}

// Tests that a panicking function does not stop the loop.
func TestLoop_Panic(t *testing.T) {
	l := NewLoop("test")
	stop := l.Start()
	defer stop.Close()

	l.Post(func() { panic("boom") })
	ok := false
	l.Invoke(func() { ok = true })
	require.True(t, ok)
}

// Tests that the loop stops when closed.
func TestLoop_Stop(t *testing.T) {
	l := NewLoop("test")
	stop := l.Start()
	require.NoError(t, stop.Close())
	require.NoError(t, stoppable.WaitForStopped(stop, time.Second))
}
