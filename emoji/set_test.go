////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package emoji

import (
	"testing"

	"github.com/forPelevin/gomoji"
	"github.com/stretchr/testify/require"
)

// Tests that Expand replaces known shortcodes and classic emoticons and keeps
// unknown ones.
func TestSet_Expand(t *testing.T) {
	s := &Set{shortcodes: map[string]string{
		"fire":   "🔥",
		"rocket": "🚀",
	}}

	tests := []struct {
		in, expected string
	}{
		{"", ""},
		{"no codes here", "no codes here"},
		{"this is :fire:", "this is 🔥"},
		{":fire::rocket:", "🔥🚀"},
		{"time 10:30 :rocket:", "time 10:30 🚀"},
		{":unknown: stays", ":unknown: stays"},
		{"hello :)", "hello 🙂"},
		{"::", "::"},
	}

	for i, tt := range tests {
		if got := s.Expand(tt.in); got != tt.expected {
			t.Errorf("Expand did not return the expected value (%d)."+
				"\nexpected: %q\nreceived: %q", i, tt.expected, got)
		}
	}
}

// Tests that Load knows real gomoji slugs and Add extends the set.
func TestLoad(t *testing.T) {
	all := gomoji.AllEmojis()
	require.NotEmpty(t, all)

	s := Load()
	for _, e := range all[:10] {
		if e.Slug == "" {
			continue
		}
		c, ok := s.Lookup(e.Slug)
		require.True(t, ok, "missing slug %q", e.Slug)
		require.NotEmpty(t, c)
	}

	s.Add("party-parrot", "🦜")
	require.Equal(t, "🦜", s.Expand(":party-parrot:"))
}

// Tests that a nil set leaves text alone.
func TestSet_Expand_Nil(t *testing.T) {
	var s *Set
	require.Equal(t, ":fire:", s.Expand(":fire:"))
}

// Tests ValidateReaction and IsEmojiOnly.
func TestValidateReaction(t *testing.T) {
	require.NoError(t, ValidateReaction("🔥"))
	require.Equal(t, InvalidReaction, ValidateReaction("🔥🔥"))
	require.Equal(t, InvalidReaction, ValidateReaction("a🔥"))
	require.Equal(t, InvalidReaction, ValidateReaction("abc"))

	require.True(t, IsEmojiOnly("🔥🚀"))
	require.False(t, IsEmojiOnly("hi 🔥"))
	require.False(t, IsEmojiOnly(""))
}
