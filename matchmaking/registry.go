// Package matchmaking holds the waiting queues and the active one-on-one connections.
package matchmaking

import (
	"anon-chat/contract"
	"anon-chat/domain"
	"anon-chat/errors"
	"slices"
	"sort"
	"time"

	"github.com/samber/lo"
)

// WaitingEntry is one wait episode. Warned is reset when a new episode starts.
type WaitingEntry struct {
	User   domain.UserID
	Mode   domain.ChatMode
	Topic  *domain.Topic
	Since  time.Time
	Warned bool
}

type Pair struct {
	A, B domain.UserID
}

type Counts struct {
	WaitingGlobal int
	WaitingTopic  int
	Connections   int
}

// Registry keeps three structures in step: the queues, the waiting timestamps and the
// symmetric connection table. A user is in at most one queue and never both waiting and connected.
// Registry is not safe for concurrent use: the runtime serializes every access.
type Registry struct {
	global      []domain.UserID
	byTopic     map[domain.Topic][]domain.UserID
	waiting     map[domain.UserID]*WaitingEntry
	connections map[domain.UserID]domain.UserID
	selector    contract.Selector
}

func NewRegistry(selector contract.Selector) *Registry {
	if selector == nil {
		selector = RandomSelector{}
	}
	return &Registry{
		byTopic:     make(map[domain.Topic][]domain.UserID),
		waiting:     make(map[domain.UserID]*WaitingEntry),
		connections: make(map[domain.UserID]domain.UserID),
		selector:    selector,
	}
}

// Enqueue appends the user to the global queue or to the topic queue.
func (r *Registry) Enqueue(user domain.UserID, mode domain.ChatMode, topic *domain.Topic, now time.Time) error {
	if r.IsConnected(user) {
		return errors.ErrAlreadyConnected
	}
	if r.IsWaiting(user) {
		return errors.ErrAlreadyWaiting
	}
	switch mode {
	case domain.ModeOneOnOne:
		r.global = append(r.global, user)
		topic = nil
	case domain.ModeTopic:
		if topic == nil {
			return errors.ErrTopicRequired
		}
		if !topic.Valid() {
			return errors.ErrUnknownTopic
		}
		r.byTopic[*topic] = append(r.byTopic[*topic], user)
	default:
		return errors.ErrUnknownMode
	}
	r.waiting[user] = &WaitingEntry{User: user, Mode: mode, Topic: topic, Since: now}
	return nil
}

// FindPartner selects a candidate from the queue matching mode and topic, excluding the requester.
// It never mutates the registry.
func (r *Registry) FindPartner(user domain.UserID, mode domain.ChatMode, topic *domain.Topic) (domain.UserID, bool) {
	var queue []domain.UserID
	switch mode {
	case domain.ModeOneOnOne:
		queue = r.global
	case domain.ModeTopic:
		if topic == nil {
			return 0, false
		}
		queue = r.byTopic[*topic]
	default:
		return 0, false
	}
	candidates := lo.Filter(queue, func(c domain.UserID, _ int) bool {
		return c != user && !r.IsConnected(c)
	})
	if len(candidates) == 0 {
		return 0, false
	}
	partner := r.selector.Select(candidates)
	if partner == user {
		return 0, false
	}
	return partner, true
}

// CommitMatch dequeues both users from wherever they wait and connects them.
func (r *Registry) CommitMatch(a, b domain.UserID) error {
	if a == b {
		return errors.ErrSelfMatch
	}
	if r.IsConnected(a) || r.IsConnected(b) {
		return errors.ErrAlreadyConnected
	}
	r.removeFromQueues(a)
	r.removeFromQueues(b)
	delete(r.waiting, a)
	delete(r.waiting, b)
	r.connections[a] = b
	r.connections[b] = a
	return nil
}

// CancelWait removes the user from every queue. The second call is a no-op.
func (r *Registry) CancelWait(user domain.UserID) (WaitingEntry, bool) {
	entry, tracked := r.waiting[user]
	removed := r.removeFromQueues(user)
	delete(r.waiting, user)
	if tracked {
		return *entry, true
	}
	return WaitingEntry{User: user}, removed
}

// Disconnect removes both directed entries of the user's pair.
func (r *Registry) Disconnect(user domain.UserID) (domain.UserID, bool) {
	partner, ok := r.connections[user]
	if !ok {
		return 0, false
	}
	delete(r.connections, user)
	if back, ok := r.connections[partner]; ok && back == user {
		delete(r.connections, partner)
	}
	return partner, true
}

func (r *Registry) Partner(user domain.UserID) (domain.UserID, bool) {
	partner, ok := r.connections[user]
	return partner, ok
}

func (r *Registry) IsConnected(user domain.UserID) bool {
	_, ok := r.connections[user]
	return ok
}

// IsWaiting looks at every queue, not only the one recorded for the user.
func (r *Registry) IsWaiting(user domain.UserID) bool {
	if slices.Contains(r.global, user) {
		return true
	}
	for _, queue := range r.byTopic {
		if slices.Contains(queue, user) {
			return true
		}
	}
	return false
}

// Waiting returns the user's current wait episode.
func (r *Registry) Waiting(user domain.UserID) (WaitingEntry, bool) {
	entry, ok := r.waiting[user]
	if !ok {
		return WaitingEntry{}, false
	}
	return *entry, true
}

// WaitingEntries returns a snapshot ordered by enqueue time.
func (r *Registry) WaitingEntries() []WaitingEntry {
	entries := lo.MapToSlice(r.waiting, func(_ domain.UserID, e *WaitingEntry) WaitingEntry {
		return *e
	})
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Since.Equal(entries[j].Since) {
			return entries[i].User < entries[j].User
		}
		return entries[i].Since.Before(entries[j].Since)
	})
	return entries
}

func (r *Registry) WaitingUsers() []domain.UserID {
	return lo.Map(r.WaitingEntries(), func(e WaitingEntry, _ int) domain.UserID {
		return e.User
	})
}

// Pairs lists each connection once, smaller id first.
func (r *Registry) Pairs() []Pair {
	var pairs []Pair
	for a, b := range r.connections {
		if a < b {
			pairs = append(pairs, Pair{A: a, B: b})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].A < pairs[j].A })
	return pairs
}

func (r *Registry) ConnectedUsers() []domain.UserID {
	users := lo.Keys(r.connections)
	slices.Sort(users)
	return users
}

// QueueLen is the length of the global queue (mode one-on-one) or of one topic queue.
func (r *Registry) QueueLen(mode domain.ChatMode, topic *domain.Topic) int {
	if mode == domain.ModeTopic && topic != nil {
		return len(r.byTopic[*topic])
	}
	return len(r.global)
}

func (r *Registry) Counts() Counts {
	topic := 0
	for _, queue := range r.byTopic {
		topic += len(queue)
	}
	return Counts{
		WaitingGlobal: len(r.global),
		WaitingTopic:  topic,
		Connections:   len(r.connections) / 2,
	}
}

// removeFromQueues scans the global queue and every topic queue.
func (r *Registry) removeFromQueues(user domain.UserID) bool {
	removed := false
	if i := slices.Index(r.global, user); i >= 0 {
		r.global = slices.Delete(r.global, i, i+1)
		removed = true
	}
	for topic, queue := range r.byTopic {
		if i := slices.Index(queue, user); i >= 0 {
			queue = slices.Delete(queue, i, i+1)
			removed = true
		}
		if len(queue) == 0 {
			delete(r.byTopic, topic)
		} else {
			r.byTopic[topic] = queue
		}
	}
	return removed
}
