package pet

import (
	"math"
	"math/bits"

	"github.com/danmuck/tamactl/internal/protocol/wire"
)

const (
	MaxLevel = 10000

	FillPerFeed          = 1000
	HungerPerBlock       = 1
	FillPerEntertainment = 1000
	BoredomPerBlock      = 2
	FillPerSleep         = 1000
	EnergyPerBlock       = 2
)

// vitalRule pairs the refill applied by an action with the per-block decay.
type vitalRule struct {
	fill  uint64
	decay uint64
}

var (
	fullnessRule      = vitalRule{fill: FillPerFeed, decay: HungerPerBlock}
	entertainmentRule = vitalRule{fill: FillPerEntertainment, decay: BoredomPerBlock}
	restRule          = vitalRule{fill: FillPerSleep, decay: EnergyPerBlock}
)

// Levels is a decayed read of all three vitals at one block.
type Levels struct {
	Fullness      uint64 `json:"fullness"`
	Entertainment uint64 `json:"entertainment"`
	Rest          uint64 `json:"rest"`
}

// CurrentLevels reads st at block now without mutating it.
func CurrentLevels(st wire.State, now uint64) Levels {
	return Levels{
		Fullness:      decayed(st.Fullness, now, fullnessRule.decay),
		Entertainment: decayed(st.Entertainment, now, entertainmentRule.decay),
		Rest:          decayed(st.Rest, now, restRule.decay),
	}
}

// decayed is sat_sub(level, elapsed*decay). A clock behind UpdatedAt counts
// as zero elapsed blocks.
func decayed(v wire.Vital, now, decay uint64) uint64 {
	var elapsed uint64
	if now > v.UpdatedAt {
		elapsed = now - v.UpdatedAt
	}
	return satSub(v.Level, satMul(elapsed, decay))
}

// refill applies one action to v at block now.
func refill(v wire.Vital, now uint64, rule vitalRule) wire.Vital {
	level := uint64(MaxLevel)
	if d := decayed(v, now, rule.decay); d < MaxLevel-rule.fill {
		level = d + rule.fill
	}
	updated := v.UpdatedAt
	if now > updated {
		updated = now
	}
	return wire.Vital{Level: level, UpdatedAt: updated}
}

func satSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

func satMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}
