////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package emoji

import (
	"github.com/forPelevin/gomoji"
	"github.com/pkg/errors"
)

// InvalidReaction is returned if the passed reaction string is not a single
// emoji.
var InvalidReaction = errors.New(
	"The reaction is not valid, it must be a single emoji")

// ValidateReaction checks that the reaction only contains a single emoji.
func ValidateReaction(reaction string) error {
	emojisList := gomoji.CollectAll(reaction)
	if len(emojisList) != 1 || emojisList[0].Character != reaction {
		return InvalidReaction
	}
	return nil
}

// IsEmojiOnly reports whether the body consists of emoji and nothing else.
// Such bodies are shown without the sender prefix in notifications.
func IsEmojiOnly(body string) bool {
	return body != "" && gomoji.ContainsEmoji(body) &&
		gomoji.RemoveEmojis(body) == ""
}
