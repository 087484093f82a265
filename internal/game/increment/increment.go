// Package increment draws the base daily growth of a player.
package increment

import (
	"time"

	"telegram-grower-bot/internal/game/random"
	"telegram-grower-bot/internal/pkg/day"
)

// Config is the configured growth range and newcomer grace period.
type Config struct {
	Min       int64
	Max       int64
	GraceDays int
}

// Generator draws base increments.
type Generator struct {
	cfg Config
	src random.Source
	loc *time.Location
}

// New creates a Generator. Calendar days are counted in loc.
func New(cfg Config, src random.Source, loc *time.Location) *Generator {
	return &Generator{cfg: cfg, src: src, loc: loc}
}

// Newcomer reports whether a player whose first growth happened at since is
// still inside the grace period at now. The grace period covers GraceDays
// whole days after the first growth, the last of them included.
func (g *Generator) Newcomer(since, now time.Time) bool {
	if g.cfg.GraceDays <= 0 {
		return false
	}
	return day.Between(since, now, g.loc) <= g.cfg.GraceDays
}

// Base draws an increment uniformly from [Min, Max].
// Newcomers never shrink: their draw is uniform over the non-negative part
// of the range, or 0 when the whole range is negative.
func (g *Generator) Base(newcomer bool) int64 {
	lo, hi := g.cfg.Min, g.cfg.Max
	if newcomer {
		if hi < 0 {
			return 0
		}
		lo = max(lo, 0)
	}
	return random.Between(g.src, lo, hi)
}
