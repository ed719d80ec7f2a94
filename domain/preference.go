package domain

// Preference is the per-user chat mode and its associated topic or group.
// Topic is only set in ModeTopic, GroupID only in ModeGroup.
type Preference struct {
	Mode    ChatMode
	Topic   *Topic
	GroupID *GroupID
}

// DefaultPreference is one-on-one with neither topic nor group.
func DefaultPreference() Preference {
	return Preference{Mode: ModeOneOnOne}
}

func (p Preference) TopicOrEmpty() Topic {
	if p.Topic == nil {
		return ""
	}
	return *p.Topic
}
