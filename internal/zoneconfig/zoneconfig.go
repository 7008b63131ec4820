// Package zoneconfig implements the zone configuration model (C3): an
// ordered collection of volume groups bound to a set of input/output
// devices, one of which is default, at most one selected.
//
// A zone exclusively owns its configs; a config exclusively owns its
// groups (§3 "Ownership"). Configs are constructed once at init from
// external configuration and never reshaped, so Config carries no
// mutex of its own. Only is_selected/is_active flip at runtime, and
// neither Config nor the owning Zone takes a lock around those flips.
package zoneconfig

import "github.com/carbon-audio/audiopolicy/internal/volumegroup"

// Config is one of several alternative device layouts for a zone.
type Config struct {
	ZoneID     int
	ConfigID   int
	IsDefault  bool
	isSelected bool
	isActive   bool
	groups     []*volumegroup.Group
}

// New constructs a Config. Group ownership is exclusive: the same
// *volumegroup.Group must not be shared between two configs.
func New(zoneID, configID int, isDefault bool, groups []*volumegroup.Group) *Config {
	gs := make([]*volumegroup.Group, len(groups))
	copy(gs, groups)
	return &Config{
		ZoneID:    zoneID,
		ConfigID:  configID,
		IsDefault: isDefault,
		groups:    gs,
	}
}

// Groups returns the ordered group list (a shallow copy of the slice;
// the *Group pointers are shared, as groups are owned by the config,
// not copied per read).
func (c *Config) Groups() []*volumegroup.Group {
	out := make([]*volumegroup.Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// Group returns the group with the given id within this config.
func (c *Config) Group(groupID int) (*volumegroup.Group, bool) {
	for _, g := range c.groups {
		if g.Ref().GroupID == groupID {
			return g, true
		}
	}
	return nil, false
}

// IsSelected reports whether this non-default config has been selected.
func (c *Config) IsSelected() bool { return c.isSelected }

// IsActive reports whether this config is the currently-active device
// layout (distinct from "selected" — see Zone.Effective).
func (c *Config) IsActive() bool { return c.isActive }

// SetSelected flips the selected flag. The owning Zone enforces "at
// most one non-default config selected" before calling this.
func (c *Config) SetSelected(selected bool) { c.isSelected = selected }

// SetActive flips the active flag and propagates to member groups so
// their SetActive state tracks the config's.
func (c *Config) SetActive(active bool) {
	c.isActive = active
	for _, g := range c.groups {
		g.SetActive(active)
	}
}
