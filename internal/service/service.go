// Package service is the audio-policy core's composition root: the
// single source of truth tying together zones, focus arbiters, the HAL
// gain/mute dispatcher, the ducking engine, the playback activation
// monitor, the media-audio request broker, the event bus, and the
// interaction-setting watcher — the way the teacher's controller
// package composes its state machine over hardware, store, and bus.
package service

import (
	"context"

	"github.com/carbon-audio/audiopolicy/internal/activation"
	"github.com/carbon-audio/audiopolicy/internal/apperr"
	"github.com/carbon-audio/audiopolicy/internal/audiozone"
	"github.com/carbon-audio/audiopolicy/internal/ducking"
	"github.com/carbon-audio/audiopolicy/internal/eventbus"
	"github.com/carbon-audio/audiopolicy/internal/focus"
	"github.com/carbon-audio/audiopolicy/internal/haldispatch"
	"github.com/carbon-audio/audiopolicy/internal/halfocus"
	"github.com/carbon-audio/audiopolicy/internal/mediabroker"
	"github.com/carbon-audio/audiopolicy/internal/settings"
	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
	"github.com/carbon-audio/audiopolicy/internal/volumegroup"
)

// Config describes the fixed, init-time topology: every zone and its
// configurations/groups, plus the policy knobs needed to construct the
// runtime components. Zones/configs/groups are built by the caller
// (the external zone-configuration loader, out of this core's scope
// per §1) and handed in fully formed.
type Config struct {
	Zones             []*audiozone.Zone
	RejectNavOnCall   bool
	SettingsDir       string
	ActivationConfigs map[activation.ZoneConfigKey]activation.Config
	DeviceWriter      volumegroup.DeviceWriter
	UsageMap          *usagecontext.Map
	FocusListener     halfocus.Listener
	MuteListener      haldispatch.MutingListener
	DuckListener      ducking.Listener
	MediaApprover     mediabroker.ApproverCallback
}

// Service is the fully-wired audio-policy core.
type Service struct {
	Bus        *eventbus.Bus
	Matrix     *focus.Matrix
	Arbiters   map[int]*focus.Arbiter
	FocusHAL   *halfocus.Bridge
	Dispatcher *haldispatch.Dispatcher
	Ducking    *ducking.Engine
	Activation *activation.Monitor
	Broker     *mediabroker.Broker
	Settings   *settings.Watcher

	zones map[int]*audiozone.Zone
}

// New wires every component per §5's construction order and lock
// hierarchy (HAL Dispatcher → Zone Arbiter → Zone Config → Volume
// Group, with Event Fan-out/Ducking Engine as leaves).
func New(cfg Config) (*Service, error) {
	if len(cfg.Zones) == 0 {
		return nil, apperr.New(apperr.Configuration, "service requires at least one zone")
	}
	usageMap := cfg.UsageMap
	if usageMap == nil {
		usageMap = usagecontext.DefaultMap()
	}

	bus := eventbus.New()
	matrix := focus.DefaultInteractionMatrix(cfg.RejectNavOnCall)

	zones := make(map[int]*audiozone.Zone, len(cfg.Zones))
	arbiters := make(map[int]*focus.Arbiter, len(cfg.Zones))
	groups := make(map[volumegroup.Ref]*volumegroup.Group)
	knownZones := make(map[int]bool, len(cfg.Zones))
	duckBindings := make(map[int][]ducking.GroupBinding)
	activationLookup := make(map[int]map[usagecontext.Usage]*volumegroup.Group)

	for _, z := range cfg.Zones {
		zones[z.ID] = z
		knownZones[z.ID] = true
		arbiters[z.ID] = focus.New(z.ID, matrix, bus)

		zoneGroupLookup := make(map[usagecontext.Usage]*volumegroup.Group)
		for _, c := range z.Configs() {
			for _, g := range c.Groups() {
				groups[g.Ref()] = g

				var contexts []usagecontext.Context
				for ctx := range addressesByContext(g) {
					contexts = append(contexts, ctx)
					for _, usage := range usageMap.UsagesFor(ctx) {
						zoneGroupLookup[usage] = g
					}
				}
				duckBindings[z.ID] = append(duckBindings[z.ID], ducking.GroupBinding{
					Addresses: g.Addresses(),
					Contexts:  contexts,
				})
			}
		}
		activationLookup[z.ID] = zoneGroupLookup
	}

	dispatcher := haldispatch.New(groups, knownZones, bus, cfg.DeviceWriter)
	if cfg.MuteListener != nil {
		dispatcher.OnMuteChange(cfg.MuteListener)
	}

	focusHAL := halfocus.New(arbiters, usageMap, cfg.FocusListener)

	duckEngine := ducking.New(duckBindings, usageMap, cfg.DuckListener)
	duckEngine.Subscribe(bus)

	lookup := func(zoneID int, usage usagecontext.Usage) (*volumegroup.Group, bool) {
		m, ok := activationLookup[zoneID]
		if !ok {
			return nil, false
		}
		g, ok := m[usage]
		return g, ok
	}
	activationMonitor := activation.New(cfg.ActivationConfigs, lookup, cfg.DeviceWriter)

	broker := mediabroker.New()
	if cfg.MediaApprover != nil {
		broker.RegisterApprover(cfg.MediaApprover)
	}

	var watcher *settings.Watcher
	if cfg.SettingsDir != "" {
		watcher = settings.NewWatcher(cfg.SettingsDir, matrix)
	}

	return &Service{
		Bus:        bus,
		Matrix:     matrix,
		Arbiters:   arbiters,
		FocusHAL:   focusHAL,
		Dispatcher: dispatcher,
		Ducking:    duckEngine,
		Activation: activationMonitor,
		Broker:     broker,
		Settings:   watcher,
		zones:      zones,
	}, nil
}

func addressesByContext(g *volumegroup.Group) map[usagecontext.Context]string {
	out := make(map[usagecontext.Context]string)
	for _, ctx := range usagecontext.AllContexts {
		if addr, ok := g.AddressForContext(ctx); ok {
			out[ctx] = addr
		}
	}
	return out
}

// Zone returns the zone with the given id, if known.
func (s *Service) Zone(zoneID int) (*audiozone.Zone, bool) {
	z, ok := s.zones[zoneID]
	return z, ok
}

// Close tears down every component holding background resources.
func (s *Service) Close(ctx context.Context) {
	for _, a := range s.Arbiters {
		a.Close()
	}
	s.Ducking.Unsubscribe(s.Bus)
	if s.Settings != nil {
		s.Settings.Close()
	}
	s.Bus.Close()
}
