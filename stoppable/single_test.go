////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"os"
	"testing"
	"time"

	jww "github.com/spf13/jwalterweatherman"
)

func TestMain(m *testing.M) {
	jww.SetStdoutThreshold(jww.LevelTrace)
	os.Exit(m.Run())
}

// Tests that NewSingle returns a running Single with the given name.
func TestNewSingle(t *testing.T) {
	name := "threadName"
	single := NewSingle(name)

	if single.Name() != name {
		t.Errorf("NewSingle returned Single with incorrect name."+
			"\nexpected: %s\nreceived: %s", name, single.Name())
	}

	if !single.IsRunning() {
		t.Errorf("NewSingle returned Single with incorrect status."+
			"\nexpected: %s\nreceived: %s", Running, single.GetStatus())
	}
}

// Tests that Single.Close closes the quit channel and moves the status to
// stopping, and that a second Close is harmless.
func TestSingle_Close(t *testing.T) {
	single := NewSingle("threadName")

	if err := single.Close(); err != nil {
		t.Fatalf("Close returned an error: %+v", err)
	}

	select {
	case <-single.Quit():
	case <-time.After(50 * time.Millisecond):
		t.Fatal("Timed out waiting for quit channel.")
	}

	if !single.IsStopping() {
		t.Errorf("Unexpected status after Close."+
			"\nexpected: %s\nreceived: %s", Stopping, single.GetStatus())
	}

	if err := single.Close(); err != nil {
		t.Errorf("Second Close returned an error: %+v", err)
	}
}

// Tests that ToStopped completes the lifecycle and WaitForStopped sees it.
func TestSingle_ToStopped(t *testing.T) {
	single := NewSingle("threadName")

	go func() {
		<-single.Quit()
		single.ToStopped()
	}()

	_ = single.Close()
	if err := WaitForStopped(single, time.Second); err != nil {
		t.Fatalf("WaitForStopped returned an error: %+v", err)
	}
}

// Error path: tests that ToStopped panics when Close was never called.
func TestSingle_ToStopped_NotStopping(t *testing.T) {
	single := NewSingle("threadName")

	defer func() {
		if r := recover(); r == nil {
			t.Error("ToStopped did not panic on a running Single.")
		}
	}()

	single.ToStopped()
}

// Error path: tests that WaitForStopped times out when the goroutine never
// confirms.
func TestWaitForStopped_Timeout(t *testing.T) {
	single := NewSingle("threadName")
	_ = single.Close()

	if err := WaitForStopped(single, 20*time.Millisecond); err == nil {
		t.Error("WaitForStopped did not time out.")
	}
}
