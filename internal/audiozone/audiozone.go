// Package audiozone implements the audio zone model (C4): a container
// of zone configurations for one listening area, with a stable numeric
// id. The primary zone (id 0) must contain at least one built-in
// microphone input device (§3, §8 invariant 5).
package audiozone

import (
	"github.com/carbon-audio/audiopolicy/internal/apperr"
	"github.com/carbon-audio/audiopolicy/internal/device"
	"github.com/carbon-audio/audiopolicy/internal/zoneconfig"
)

// PrimaryZoneID is fixed per §6.
const PrimaryZoneID = 0

// Zone is a container of zone configurations for one listening area.
type Zone struct {
	ID            int
	Name          string
	InputDevices  []device.Output
	configs       []*zoneconfig.Config
	currentConfig int
}

// New constructs a Zone. Exactly one config must be marked default;
// construction fails otherwise (Configuration error, fatal at init).
// If id == PrimaryZoneID, inputDevices must contain at least one
// device.TypeBuiltinMic entry (§3, §8 invariant 5).
func New(id int, name string, configs []*zoneconfig.Config, inputDevices []device.Output) (*Zone, error) {
	if len(configs) == 0 {
		return nil, apperr.New(apperr.Configuration, "zone must have at least one configuration")
	}
	defaultIdx := -1
	for i, c := range configs {
		if c.IsDefault {
			if defaultIdx != -1 {
				return nil, apperr.New(apperr.Configuration, "zone has more than one default configuration")
			}
			defaultIdx = i
		}
	}
	if defaultIdx == -1 {
		return nil, apperr.New(apperr.Configuration, "zone has no default configuration")
	}
	if id == PrimaryZoneID && !hasBuiltinMic(inputDevices) {
		return nil, apperr.New(apperr.Configuration, "primary zone must have at least one built-in microphone input device")
	}

	cs := make([]*zoneconfig.Config, len(configs))
	copy(cs, configs)
	ins := make([]device.Output, len(inputDevices))
	copy(ins, inputDevices)

	z := &Zone{
		ID:            id,
		Name:          name,
		InputDevices:  ins,
		configs:       cs,
		currentConfig: configs[defaultIdx].ConfigID,
	}
	configs[defaultIdx].SetActive(true)
	return z, nil
}

func hasBuiltinMic(inputDevices []device.Output) bool {
	for _, d := range inputDevices {
		if d.Type == device.TypeBuiltinMic {
			return true
		}
	}
	return false
}

// Configs returns the zone's configuration list.
func (z *Zone) Configs() []*zoneconfig.Config {
	out := make([]*zoneconfig.Config, len(z.configs))
	copy(out, z.configs)
	return out
}

// Default returns the zone's default configuration.
func (z *Zone) Default() *zoneconfig.Config {
	for _, c := range z.configs {
		if c.IsDefault {
			return c
		}
	}
	return nil // unreachable given New's validation
}

// Effective returns the currently-effective configuration: the
// selected config if it is also active, else the default (§3).
func (z *Zone) Effective() *zoneconfig.Config {
	for _, c := range z.configs {
		if !c.IsDefault && c.IsSelected() && c.IsActive() {
			return c
		}
	}
	return z.Default()
}

// Select marks configID as the selected non-default config, clearing
// any previous selection. At most one non-default config may be
// selected at a time (§3).
func (z *Zone) Select(configID int) error {
	var target *zoneconfig.Config
	for _, c := range z.configs {
		if c.ConfigID == configID {
			target = c
		}
	}
	if target == nil {
		return apperr.New(apperr.Configuration, "unknown zone configuration id")
	}
	for _, c := range z.configs {
		if !c.IsDefault {
			c.SetSelected(false)
		}
	}
	if !target.IsDefault {
		target.SetSelected(true)
	}
	z.currentConfig = configID
	return nil
}

// CurrentConfigID returns the id of the zone's current configuration.
func (z *Zone) CurrentConfigID() int { return z.currentConfig }
