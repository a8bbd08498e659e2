////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package chat

import (
	"encoding/json"
	"time"
)

const (
	defaultHistoryLimit = 20
	defaultStopTimeout  = 2 * time.Second
	defaultRestoreRate  = 5
)

// Params configures the chat manager and its targets.
type Params struct {
	// HistoryLimit is the most stanzas a room replays on join.
	HistoryLimit int

	// StopTimeout bounds the wait for a pipeline to exit on Rejoin and
	// Delete.
	StopTimeout time.Duration

	// RestoreRate is the number of joins per second when restoring recent
	// targets at startup.
	RestoreRate int

	// HistoryDir is the root of the history logs. History is kept in memory
	// only when it is empty.
	HistoryDir string
}

// GetDefaultParams returns a usable set of default chat parameters.
func GetDefaultParams() Params {
	return Params{
		HistoryLimit: defaultHistoryLimit,
		StopTimeout:  defaultStopTimeout,
		RestoreRate:  defaultRestoreRate,
		HistoryDir:   "",
	}
}

// GetParameters returns the default Params, or override with given
// parameters, if set.
func GetParameters(params string) (Params, error) {
	p := GetDefaultParams()
	if len(params) > 0 {
		err := json.Unmarshal([]byte(params), &p)
		if err != nil {
			return Params{}, err
		}
	}
	return p, nil
}
