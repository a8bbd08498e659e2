////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import "strconv"

// Status is the lifecycle position of a Stoppable.
type Status uint32

const (
	Running Status = iota
	Stopping
	Stopped
)

// String prints a human-readable form of the Status for logging and debugging.
// This function adheres to the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "INVALID STATUS: " + strconv.FormatUint(uint64(s), 10)
	}
}
