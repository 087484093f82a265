package game

import (
	"fmt"
)

// Pipeline applies perks in a fixed order. It is immutable once built and
// safe for concurrent use.
type Pipeline struct {
	perks []Perk
}

// NewPipeline creates a pipeline applying perks in the given order.
func NewPipeline(perks ...Perk) (*Pipeline, error) {
	seen := make(map[string]bool, len(perks))
	for _, p := range perks {
		if p == nil {
			return nil, fmt.Errorf("cannot register nil perk")
		}
		if p.Name() == "" {
			return nil, fmt.Errorf("perk name cannot be empty")
		}
		if seen[p.Name()] {
			return nil, fmt.Errorf("perk %q registered twice", p.Name())
		}
		seen[p.Name()] = true
	}
	return &Pipeline{perks: perks}, nil
}

// Apply runs every perk over the change and returns the result.
func (p *Pipeline) Apply(c Change) Change {
	for _, perk := range p.perks {
		c = perk.Apply(c)
	}
	return c
}

// Names returns the perk names in application order.
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.perks))
	for _, perk := range p.perks {
		names = append(names, perk.Name())
	}
	return names
}

// Count returns the number of perks.
func (p *Pipeline) Count() int {
	return len(p.perks)
}
