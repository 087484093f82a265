// Package champion implements the daily champion selection strategies.
package champion

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"telegram-grower-bot/internal/game/random"
	"telegram-grower-bot/internal/model"
)

// Mode names a selection strategy.
type Mode string

const (
	ModeRandom    Mode = "RANDOM"
	ModeExclusion Mode = "EXCLUSION"
	ModeWeights   Mode = "WEIGHTS"
)

// MinWeight is the floor of every candidate's weight in WEIGHTS mode.
const MinWeight = 1e-6

// DefaultWeightScale is the scale of the weight curve when none is configured.
const DefaultWeightScale = 6.0

// Config selects and parameterizes the strategy.
type Config struct {
	Mode           string
	ExclusionRatio float64
	WeightScale    float64
}

// Selector picks the winner from a non-empty candidate pool.
type Selector interface {
	Mode() Mode
	// Select returns the winner. It panics on an empty pool.
	Select(pool []model.Candidate) model.Candidate
}

// New resolves the configured strategy. EXCLUSION with a ratio outside (0, 1)
// degrades to RANDOM; the returned selector reports the effective mode.
func New(cfg Config, src random.Source) (Selector, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(cfg.Mode))) {
	case ModeRandom, "":
		return &uniform{src: src}, nil
	case ModeExclusion:
		if cfg.ExclusionRatio <= 0 || cfg.ExclusionRatio >= 1 {
			return &uniform{src: src}, nil
		}
		return &exclusion{src: src, ratio: cfg.ExclusionRatio}, nil
	case ModeWeights:
		scale := cfg.WeightScale
		if scale <= 0 {
			scale = DefaultWeightScale
		}
		return &weighted{src: src, scale: scale}, nil
	default:
		return nil, fmt.Errorf("unknown champion mode %q", cfg.Mode)
	}
}

// Rank sorts the pool in leaderboard order: length desc, updated_at desc, name, uid.
func Rank(pool []model.Candidate) {
	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.Length != b.Length {
			return a.Length > b.Length
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.UID < b.UID
	})
}

type uniform struct {
	src random.Source
}

func (u *uniform) Mode() Mode { return ModeRandom }

func (u *uniform) Select(pool []model.Candidate) model.Candidate {
	return pool[u.src.IntN(len(pool))]
}

type exclusion struct {
	src   random.Source
	ratio float64
}

func (e *exclusion) Mode() Mode { return ModeExclusion }

func (e *exclusion) Select(pool []model.Candidate) model.Candidate {
	rest := Exclude(pool, e.ratio)
	return rest[e.src.IntN(len(rest))]
}

// Exclude returns the pool without its richest floor(N × ratio) members in
// leaderboard order. It returns the whole pool when nobody or everybody
// would be removed. The input is not modified.
func Exclude(pool []model.Candidate, ratio float64) []model.Candidate {
	ranked := append([]model.Candidate(nil), pool...)
	Rank(ranked)
	n := ExcludedCount(len(ranked), ratio)
	return ranked[n:]
}

// ExcludedCount returns how many of n candidates EXCLUSION removes.
func ExcludedCount(n int, ratio float64) int {
	k := int(math.Floor(float64(n) * ratio))
	if k < 0 || k >= n {
		return 0
	}
	return k
}

type weighted struct {
	src   random.Source
	scale float64
}

func (w *weighted) Mode() Mode { return ModeWeights }

func (w *weighted) Select(pool []model.Candidate) model.Candidate {
	weights := Weights(pool, w.scale)

	var total float64
	for _, wt := range weights {
		total += wt
	}

	r := w.src.Float64() * total
	for i, wt := range weights {
		if r < wt {
			return pool[i]
		}
		r -= wt
	}
	return pool[len(pool)-1]
}

// Weights returns the selection weight of every candidate:
// max(1/(1+exp((v − vmin)/scale)), MinWeight). Weights are strictly positive
// and non-increasing in length.
func Weights(pool []model.Candidate, scale float64) []float64 {
	if len(pool) == 0 {
		return nil
	}
	vmin := pool[0].Length
	for _, c := range pool[1:] {
		vmin = min(vmin, c.Length)
	}

	weights := make([]float64, len(pool))
	for i, c := range pool {
		x := float64(c.Length-vmin) / scale
		weights[i] = math.Max(1/(1+math.Exp(x)), MinWeight)
	}
	return weights
}
