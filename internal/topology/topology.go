// Package topology loads a zone/config/group layout from YAML, the
// way the pack's deviceid.go loads its tocalls table: unmarshal into
// tagged structs, then build the real domain types from the decoded
// document.
package topology

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/carbon-audio/audiopolicy/internal/audiozone"
	"github.com/carbon-audio/audiopolicy/internal/device"
	"github.com/carbon-audio/audiopolicy/internal/eventbus"
	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
	"github.com/carbon-audio/audiopolicy/internal/volumegroup"
	"github.com/carbon-audio/audiopolicy/internal/zoneconfig"
)

type document struct {
	Zones []zoneDoc `yaml:"zones"`
}

type zoneDoc struct {
	ID           int         `yaml:"id"`
	Name         string      `yaml:"name"`
	InputDevices []string    `yaml:"input_devices"`
	Configs      []configDoc `yaml:"configs"`
}

type configDoc struct {
	ID        int        `yaml:"id"`
	IsDefault bool       `yaml:"is_default"`
	Groups    []groupDoc `yaml:"groups"`
}

type groupDoc struct {
	ID        int               `yaml:"id"`
	Name      string            `yaml:"name"`
	Kind      string            `yaml:"kind"`
	Addresses []string          `yaml:"addresses"`
	Contexts  map[string]string `yaml:"contexts"`
	Stage     stageDoc          `yaml:"stage"`
}

type stageDoc struct {
	MinMB     int `yaml:"min_mb"`
	MaxMB     int `yaml:"max_mb"`
	DefaultMB int `yaml:"default_mb"`
	StepMB    int `yaml:"step_mb"`
}

var kindByName = map[string]volumegroup.Kind{
	"device_gain": volumegroup.KindDeviceGain,
}

var contextByName = map[string]usagecontext.Context{
	"music":          usagecontext.ContextMusic,
	"navigation":     usagecontext.ContextNavigation,
	"call":           usagecontext.ContextCall,
	"call_ring":      usagecontext.ContextCallRing,
	"alarm":          usagecontext.ContextAlarm,
	"notification":   usagecontext.ContextNotification,
	"system":         usagecontext.ContextSystem,
	"emergency":      usagecontext.ContextEmergency,
	"safety":         usagecontext.ContextSafety,
	"vehicle_status": usagecontext.ContextVehicleStatus,
	"announcement":   usagecontext.ContextAnnouncement,
	"voice_command":  usagecontext.ContextVoiceCommand,
}

// Load parses a topology document and builds its zones. Unknown kind
// or context names are rejected rather than silently dropped, since a
// typo in a fixture should fail loudly.
func Load(r io.Reader) ([]*audiozone.Zone, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("topology: read: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("topology: parse: %w", err)
	}

	zones := make([]*audiozone.Zone, 0, len(doc.Zones))
	for _, zd := range doc.Zones {
		configs := make([]*zoneconfig.Config, 0, len(zd.Configs))
		for _, cd := range zd.Configs {
			groups := make([]*volumegroup.Group, 0, len(cd.Groups))
			for _, gd := range cd.Groups {
				kind, ok := kindByName[gd.Kind]
				if !ok {
					return nil, fmt.Errorf("topology: zone %d config %d group %d: unknown kind %q", zd.ID, cd.ID, gd.ID, gd.Kind)
				}
				bindings := make(map[usagecontext.Context]string, len(gd.Contexts))
				for ctxName, addr := range gd.Contexts {
					ctx, ok := contextByName[ctxName]
					if !ok {
						return nil, fmt.Errorf("topology: zone %d config %d group %d: unknown context %q", zd.ID, cd.ID, gd.ID, ctxName)
					}
					bindings[ctx] = addr
				}
				g, err := volumegroup.New(
					eventbus.GroupRef{ZoneID: zd.ID, ConfigID: cd.ID, GroupID: gd.ID},
					gd.Name,
					kind,
					gd.Addresses,
					bindings,
					volumegroup.GainStage{
						MinMB:     gd.Stage.MinMB,
						MaxMB:     gd.Stage.MaxMB,
						DefaultMB: gd.Stage.DefaultMB,
						StepMB:    gd.Stage.StepMB,
					},
				)
				if err != nil {
					return nil, fmt.Errorf("topology: zone %d config %d group %d: %w", zd.ID, cd.ID, gd.ID, err)
				}
				groups = append(groups, g)
			}
			configs = append(configs, zoneconfig.New(zd.ID, cd.ID, cd.IsDefault, groups))
		}

		inputs := make([]device.Output, 0, len(zd.InputDevices))
		for _, addr := range zd.InputDevices {
			inputs = append(inputs, device.Output{Address: addr, Type: device.TypeBuiltinMic})
		}

		z, err := audiozone.New(zd.ID, zd.Name, configs, inputs)
		if err != nil {
			return nil, fmt.Errorf("topology: zone %d: %w", zd.ID, err)
		}
		zones = append(zones, z)
	}
	return zones, nil
}
