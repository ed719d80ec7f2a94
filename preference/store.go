// Package preference stores the chat mode each user asked for.
// Records are created lazily and never deleted, only reset.
package preference

import (
	"anon-chat/domain"
	"anon-chat/errors"
)

// Store is not safe for concurrent use: the runtime serializes every access.
type Store struct {
	prefs map[domain.UserID]domain.Preference
}

func NewStore() *Store {
	return &Store{prefs: make(map[domain.UserID]domain.Preference)}
}

// Get returns the user's preference, creating the default one on first access.
func (s *Store) Get(user domain.UserID) domain.Preference {
	p, ok := s.prefs[user]
	if !ok {
		p = domain.DefaultPreference()
		s.prefs[user] = p
	}
	return p
}

// Option updates a single field. Not passing an option leaves the field untouched,
// which differs from WithoutTopic / WithoutGroup that explicitly clear it.
type Option func(p *domain.Preference) error

func WithMode(mode domain.ChatMode) Option {
	return func(p *domain.Preference) error {
		switch mode {
		case domain.ModeOneOnOne, domain.ModeTopic, domain.ModeGroup:
			p.Mode = mode
			return nil
		}
		return errors.ErrUnknownMode
	}
}

func WithTopic(topic domain.Topic) Option {
	return func(p *domain.Preference) error {
		if !topic.Valid() {
			return errors.ErrUnknownTopic
		}
		p.Topic = &topic
		return nil
	}
}

func WithoutTopic() Option {
	return func(p *domain.Preference) error {
		p.Topic = nil
		return nil
	}
}

func WithGroup(id domain.GroupID) Option {
	return func(p *domain.Preference) error {
		p.GroupID = &id
		return nil
	}
}

func WithoutGroup() Option {
	return func(p *domain.Preference) error {
		p.GroupID = nil
		return nil
	}
}

// Set merges the supplied fields into the user's preference and returns the result.
// On error the stored record is left unchanged. Fields that do not belong to the
// resulting mode are cleared.
func (s *Store) Set(user domain.UserID, opts ...Option) (domain.Preference, error) {
	p := s.Get(user)
	for _, opt := range opts {
		if err := opt(&p); err != nil {
			return s.prefs[user], err
		}
	}
	if p.Mode != domain.ModeTopic {
		p.Topic = nil
	}
	if p.Mode != domain.ModeGroup {
		p.GroupID = nil
	}
	s.prefs[user] = p
	return p, nil
}

// Reset puts the user back to one-on-one with no topic and no group.
func (s *Store) Reset(user domain.UserID) domain.Preference {
	p := domain.DefaultPreference()
	s.prefs[user] = p
	return p
}

// Len is the number of users that have a preference record.
func (s *Store) Len() int {
	return len(s.prefs)
}
