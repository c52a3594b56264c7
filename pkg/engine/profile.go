package engine

import (
	"fmt"

	"github.com/chazu/moldcheck/pkg/dfm"
)

// ProfileSet holds the named threshold profiles defined by one source.
type ProfileSet struct {
	profiles map[string]dfm.Thresholds
	order    []string
	active   string
}

// NewProfileSet returns an empty set.
func NewProfileSet() *ProfileSet {
	return &ProfileSet{profiles: make(map[string]dfm.Thresholds)}
}

// Define adds a profile. The first profile defined becomes active.
func (p *ProfileSet) Define(name string, th dfm.Thresholds) error {
	if name == "" {
		return fmt.Errorf("profile name must not be empty")
	}
	if _, dup := p.profiles[name]; dup {
		return fmt.Errorf("profile %q already defined", name)
	}
	p.profiles[name] = th
	p.order = append(p.order, name)
	if p.active == "" {
		p.active = name
	}
	return nil
}

// Use marks name as the active profile.
func (p *ProfileSet) Use(name string) error {
	if _, ok := p.profiles[name]; !ok {
		return fmt.Errorf("no profile named %q", name)
	}
	p.active = name
	return nil
}

// Names returns profile names in definition order.
func (p *ProfileSet) Names() []string {
	return append([]string(nil), p.order...)
}

// Len returns the number of profiles.
func (p *ProfileSet) Len() int { return len(p.order) }

// Get returns the named profile.
func (p *ProfileSet) Get(name string) (dfm.Thresholds, bool) {
	th, ok := p.profiles[name]
	return th, ok
}

// Active returns the active profile name, or "" when the set is empty.
func (p *ProfileSet) Active() string { return p.active }

// Select returns the named profile, or the active one when name is empty.
// An empty set with an empty name yields the defaults.
func (p *ProfileSet) Select(name string) (dfm.Thresholds, error) {
	if name == "" {
		name = p.active
	}
	if name == "" {
		return dfm.DefaultThresholds(), nil
	}
	th, ok := p.profiles[name]
	if !ok {
		return dfm.Thresholds{}, fmt.Errorf("engine: no profile named %q (have %v)", name, p.order)
	}
	return th, nil
}
