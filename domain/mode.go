package domain

import (
	"anon-chat/errors"
	"strings"

	"github.com/samber/lo"
)

type ChatMode string

const (
	ModeOneOnOne ChatMode = "one_on_one"
	ModeTopic    ChatMode = "topic"
	ModeGroup    ChatMode = "group"
)

func ParseMode(s string) (ChatMode, error) {
	switch ChatMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOneOnOne, "1on1", "one":
		return ModeOneOnOne, nil
	case ModeTopic:
		return ModeTopic, nil
	case ModeGroup:
		return ModeGroup, nil
	}
	return "", errors.ErrUnknownMode
}

type Topic string

// Topics is the fixed set of topics a user can be matched on.
var Topics = []Topic{
	"arts", "books", "movies", "music", "sports",
	"technology", "gaming", "travel", "food",
	"science", "languages", "pets", "other",
}

func (t Topic) Valid() bool {
	return lo.Contains(Topics, t)
}

func ParseTopic(s string) (Topic, error) {
	t := Topic(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.ErrUnknownTopic
	}
	return t, nil
}
