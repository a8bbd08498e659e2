////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Error messages.
const (
	closeMultiErr = "multi stoppable %q failed to close %d/%d children"
)

// Multi groups several stoppables so they can be closed together.
type Multi struct {
	name       string
	stoppables []Stoppable
	mux        sync.RWMutex
}

// NewMulti returns an empty Multi.
func NewMulti(name string) *Multi {
	return &Multi{name: name}
}

// Add adds a child stoppable.
func (m *Multi) Add(s Stoppable) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.stoppables = append(m.stoppables, s)
}

// Name returns the name of the Multi followed by the names of its children.
func (m *Multi) Name() string {
	m.mux.RLock()
	defer m.mux.RUnlock()

	names := make([]string, len(m.stoppables))
	for i, s := range m.stoppables {
		names[i] = s.Name()
	}

	return m.name + "{" + strings.Join(names, ", ") + "}"
}

// GetStatus returns the lowest status of all children. A Multi without
// children is Stopped.
func (m *Multi) GetStatus() Status {
	m.mux.RLock()
	defer m.mux.RUnlock()

	lowest := Stopped
	for _, s := range m.stoppables {
		if st := s.GetStatus(); st < lowest {
			lowest = st
		}
	}
	return lowest
}

func (m *Multi) IsRunning() bool  { return m.GetStatus() == Running }
func (m *Multi) IsStopping() bool { return m.GetStatus() == Stopping }
func (m *Multi) IsStopped() bool  { return m.GetStatus() == Stopped }

// Close closes every running child. Children that are already stopping or
// stopped are skipped.
func (m *Multi) Close() error {
	m.mux.RLock()
	defer m.mux.RUnlock()

	failed := 0
	for _, s := range m.stoppables {
		if !s.IsRunning() {
			continue
		}
		if err := s.Close(); err != nil {
			failed++
		}
	}

	if failed > 0 {
		err := errors.Errorf(closeMultiErr, m.name, failed, len(m.stoppables))
		jww.ERROR.Print(err.Error())
		return err
	}

	return nil
}
