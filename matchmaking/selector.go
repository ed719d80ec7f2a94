package matchmaking

import (
	"anon-chat/contract"
	"anon-chat/domain"
	"math/rand/v2"
)

var (
	_ contract.Selector = RandomSelector{}
	_ contract.Selector = FIFOSelector{}
)

// RandomSelector picks uniformly among the candidates. There is no ordering guarantee.
type RandomSelector struct{}

func (RandomSelector) Select(candidates []domain.UserID) domain.UserID {
	return candidates[rand.IntN(len(candidates))]
}

// FIFOSelector picks the candidate that has been waiting the longest.
// Candidates come in queue order so this is the first one.
type FIFOSelector struct{}

func (FIFOSelector) Select(candidates []domain.UserID) domain.UserID {
	return candidates[0]
}

// NewSelector maps a configuration name to a strategy, defaulting to random.
func NewSelector(name string) contract.Selector {
	if name == "fifo" {
		return FIFOSelector{}
	}
	return RandomSelector{}
}
