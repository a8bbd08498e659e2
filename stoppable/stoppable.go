////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package stoppable controls the lifetime of the long-running goroutines of the
// chat core (ingestion pipelines, the dispatch loop and the event service).
package stoppable

import (
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Error messages.
const (
	timeoutErr = "timed out after %s waiting for %s to stop"
)

// Stoppable is implemented by anything that owns a goroutine that can be asked
// to quit.
type Stoppable interface {
	// Close signals the goroutine to quit. It does not wait for it to exit.
	Close() error

	// GetStatus returns the current Status.
	GetStatus() Status

	IsRunning() bool
	IsStopping() bool
	IsStopped() bool

	// Name returns a human-readable name used in logs.
	Name() string
}

// WaitForStopped polls the stoppable until it reports Stopped or the timeout
// elapses.
func WaitForStopped(s Stoppable, timeout time.Duration) error {
	done := time.NewTimer(timeout)
	defer done.Stop()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for !s.IsStopped() {
		select {
		case <-done.C:
			return errors.Errorf(timeoutErr, timeout, s.Name())
		case <-ticker.C:
		}
	}

	jww.TRACE.Printf("Stoppable %s reached status %s", s.Name(), Stopped)
	return nil
}
