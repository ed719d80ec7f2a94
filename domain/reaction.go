package domain

import (
	"anon-chat/errors"
	"strings"

	"github.com/samber/lo"
)

// Mood is a quick reaction relayed to the partner or the group instead of text.
type Mood string

var Moods = []Mood{"like", "heart", "laugh", "wow", "sad", "angry"}

func ParseMood(s string) (Mood, error) {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(Moods, m) {
		return "", errors.ErrUnknownMood
	}
	return m, nil
}
