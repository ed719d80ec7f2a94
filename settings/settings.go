// Package settings holds the configuration admins can tune while the bot runs.
package settings

import (
	"anon-chat/errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

const (
	KeyConnectionTimeout = "connection_timeout"
	KeyMaxGroupSize      = "max_group_size"
	KeyRevealTimeout     = "reveal_timeout"
	KeyAddBannedWord     = "add_banned_word"
	KeyRemoveBannedWord  = "remove_banned_word"
)

// Keys lists what Apply accepts, in display order.
var Keys = []string{
	KeyConnectionTimeout, KeyMaxGroupSize, KeyRevealTimeout, KeyAddBannedWord, KeyRemoveBannedWord,
}

// Settings are bounded by their validate tags; timeouts are in seconds.
type Settings struct {
	ConnectionTimeout int      `validate:"gte=5,lte=300"`
	MaxGroupSize      int      `validate:"gte=2,lte=50"`
	RevealTimeout     int      `validate:"gte=10,lte=3600"`
	BannedWords       []string `validate:"dive,required"`
}

func Default() Settings {
	return Settings{ConnectionTimeout: 45, MaxGroupSize: 10, RevealTimeout: 300}
}

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidSetting, err)
	}
	return nil
}

func (s Settings) ConnectionTimeoutDuration() time.Duration {
	return time.Duration(s.ConnectionTimeout) * time.Second
}

func (s Settings) RevealTimeoutDuration() time.Duration {
	return time.Duration(s.RevealTimeout) * time.Second
}

// Change records what an Apply did, for the audit log.
type Change struct {
	Key string
	Old string
	New string
}

// WordsChanged tells whether the banned word matcher has to be rebuilt.
func (c Change) WordsChanged() bool {
	return c.Key == KeyAddBannedWord || c.Key == KeyRemoveBannedWord
}

// Apply parses and validates one key. On error the receiver is left unchanged.
func (s *Settings) Apply(key, value string) (Change, error) {
	next := *s
	next.BannedWords = slices.Clone(s.BannedWords)
	value = strings.TrimSpace(value)
	change := Change{Key: key}

	switch key {
	case KeyConnectionTimeout, KeyMaxGroupSize, KeyRevealTimeout:
		n, err := strconv.Atoi(value)
		if err != nil {
			return Change{}, fmt.Errorf("%w: %s is not a number", errors.ErrInvalidSetting, key)
		}
		field := next.intField(key)
		change.Old, change.New = strconv.Itoa(*field), value
		*field = n
	case KeyAddBannedWord:
		word := strings.ToLower(value)
		if word == "" {
			return Change{}, fmt.Errorf("%w: empty word", errors.ErrInvalidSetting)
		}
		if lo.Contains(next.BannedWords, word) {
			return Change{}, fmt.Errorf("%w: %q is already banned", errors.ErrInvalidSetting, word)
		}
		next.BannedWords = append(next.BannedWords, word)
		change.New = word
	case KeyRemoveBannedWord:
		word := strings.ToLower(value)
		i := slices.Index(next.BannedWords, word)
		if i < 0 {
			return Change{}, fmt.Errorf("%w: %q is not banned", errors.ErrInvalidSetting, word)
		}
		next.BannedWords = slices.Delete(next.BannedWords, i, i+1)
		change.Old = word
	default:
		return Change{}, errors.ErrUnknownSetting
	}

	if err := next.Validate(); err != nil {
		return Change{}, err
	}
	*s = next
	return change, nil
}

// AddWords merges a seed list, skipping duplicates and blanks.
func (s *Settings) AddWords(words ...string) {
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && !lo.Contains(s.BannedWords, w) {
			s.BannedWords = append(s.BannedWords, w)
		}
	}
}

func (s *Settings) intField(key string) *int {
	switch key {
	case KeyConnectionTimeout:
		return &s.ConnectionTimeout
	case KeyMaxGroupSize:
		return &s.MaxGroupSize
	default:
		return &s.RevealTimeout
	}
}
