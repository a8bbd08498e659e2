////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package emoji holds the emoticon set of the application. The set is loaded
// once at startup, before the chat manager is created, and is passed to the
// components that need it instead of living in a global.
package emoji

import (
	"strings"
	"sync"

	"github.com/forPelevin/gomoji"
	jww "github.com/spf13/jwalterweatherman"
)

// Classic text emoticons and the emoji they expand to.
var classicEmoticons = map[string]string{
	":)":  "🙂",
	":-)": "🙂",
	":(":  "🙁",
	":-(": "🙁",
	":D":  "😀",
	";)":  "😉",
	":P":  "😛",
	"<3":  "❤️",
}

// Set maps shortcodes (":slug:") and classic emoticons to emoji characters.
type Set struct {
	shortcodes map[string]string
	mux        sync.RWMutex
}

// Load builds the set from every emoji known to gomoji.
func Load() *Set {
	all := gomoji.AllEmojis()
	s := &Set{shortcodes: make(map[string]string, len(all))}
	for _, e := range all {
		if e.Slug == "" {
			continue
		}
		s.shortcodes[e.Slug] = e.Character
	}
	jww.DEBUG.Printf("[Emoji] loaded %d shortcodes", len(s.shortcodes))
	return s
}

// Add registers an extra shortcode, such as a custom emoticon fetched by the
// directory service.
func (s *Set) Add(slug, character string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.shortcodes[slug] = character
}

// Lookup returns the character for a shortcode slug.
func (s *Set) Lookup(slug string) (string, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	c, ok := s.shortcodes[slug]
	return c, ok
}

// Expand replaces ":slug:" shortcodes and whitespace-delimited classic
// emoticons with their emoji. Unknown shortcodes are left as typed.
func (s *Set) Expand(text string) string {
	if s == nil || text == "" {
		return text
	}

	words := strings.Split(text, " ")
	for i, w := range words {
		if e, ok := classicEmoticons[w]; ok {
			words[i] = e
		}
	}
	text = strings.Join(words, " ")

	var b strings.Builder
	for {
		start := strings.IndexByte(text, ':')
		if start < 0 {
			break
		}
		end := strings.IndexByte(text[start+1:], ':')
		if end < 0 {
			break
		}
		end += start + 1

		if c, ok := s.Lookup(text[start+1 : end]); ok && end > start+1 {
			b.WriteString(text[:start])
			b.WriteString(c)
			text = text[end+1:]
		} else {
			// Not a shortcode; the closing colon may open the next one
			b.WriteString(text[:end])
			text = text[end:]
		}
	}
	b.WriteString(text)

	return b.String()
}
