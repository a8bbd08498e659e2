////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package recent

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/elixxir/ekv"
	"gitlab.com/xx_network/primitives/netTime"

	"gitlab.com/elixxir/deskchat/storage/versioned"
)

// Tests that a log that was never saved loads as empty.
func TestLog_Load_Empty(t *testing.T) {
	l := NewLog(versioned.NewKV(ekv.MakeMemstore()), "me")
	entries, err := l.Load()
	require.NoError(t, err)
	require.Empty(t, entries)
}

// Tests that Save replaces the list wholesale and order is kept.
func TestLog_SaveLoad(t *testing.T) {
	kv := versioned.NewKV(ekv.MakeMemstore())
	l := NewLog(kv, "me")

	first := []Entry{
		{KindRoom, "lobby@conference"},
		{KindUser, "alice@example.org"},
		{KindRoom, "dev@conference"},
	}
	require.NoError(t, l.Save(first))

	second := []Entry{{KindUser, "bob@example.org"}}
	require.NoError(t, l.Save(second))

	loaded, err := NewLog(kv, "me").Load()
	require.NoError(t, err)
	require.Equal(t, second, loaded)
}

// Tests that each user has an independent list.
func TestLog_PerUser(t *testing.T) {
	kv := versioned.NewKV(ekv.MakeMemstore())
	require.NoError(t, NewLog(kv, "alice").Save([]Entry{{KindRoom, "a"}}))

	loaded, err := NewLog(kv, "bob").Load()
	require.NoError(t, err)
	require.Empty(t, loaded)
}

// Tests that invalid entries written by an older or damaged client are
// dropped on load.
func TestLog_Load_DropsInvalid(t *testing.T) {
	kv := versioned.NewKV(ekv.MakeMemstore())
	userKV := kv.Prefix("me")
	require.NoError(t, userKV.Set(recentTargetsKey, &versioned.Object{
		Version:   recentTargetsVersion,
		Timestamp: netTime.Now(),
		Data: []byte(`[{"kind":"Room","id":"ok"},{"kind":"Channel","id":"x"},` +
			`{"kind":"User","id":""}]`),
	}))

	loaded, err := NewLog(kv, "me").Load()
	require.NoError(t, err)
	require.Equal(t, []Entry{{KindRoom, "ok"}}, loaded)
}

// Tests that the list is readable through a second log over a file-backed
// store.
func TestLog_Filestore(t *testing.T) {
	dir := t.TempDir()
	fs, err := ekv.NewFilestore(dir, "password")
	require.NoError(t, err)
	require.NoError(t, NewLog(versioned.NewKV(fs), "me").Save(
		[]Entry{{KindUser, "alice"}}))

	loaded, err := NewLog(versioned.NewKV(fs), "me").Load()
	require.NoError(t, err)
	require.Equal(t, []Entry{{KindUser, "alice"}}, loaded)
}
