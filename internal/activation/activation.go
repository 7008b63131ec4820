// Package activation implements the playback activation monitor (C8):
// classification of newly-active playback configurations as boot,
// source-change, or playback-change, with activation-volume clamping.
package activation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
	"github.com/carbon-audio/audiopolicy/internal/volumegroup"
)

// Classification is the kind of activation event observed (§4.5).
type Classification int

const (
	OnBoot Classification = iota
	OnSourceChanged
	OnPlaybackChanged
)

// InvocationMask selects which classifications an activation-volume
// config applies to.
type InvocationMask uint8

const (
	InvokeOnBoot InvocationMask = 1 << iota
	InvokeOnSourceChanged
	InvokeOnPlaybackChanged
)

// Has reports whether mask covers classification c.
func (m InvocationMask) Has(c Classification) bool {
	switch c {
	case OnBoot:
		return m&InvokeOnBoot != 0
	case OnSourceChanged:
		return m&InvokeOnSourceChanged != 0
	case OnPlaybackChanged:
		return m&InvokeOnPlaybackChanged != 0
	default:
		return false
	}
}

// Config is the activation-volume policy for one zone configuration:
// clamp current_index into [MinPercent*max, MaxPercent*max] whenever
// the observed classification matches Mask.
type Config struct {
	MinPercent float64
	MaxPercent float64
	Mask       InvocationMask
}

// ZoneConfigKey identifies one zone configuration for the purpose of
// looking up its activation-volume policy.
type ZoneConfigKey struct {
	ZoneID   int
	ConfigID int
}

type trackKey struct {
	zoneID  int
	groupID int
}

// GroupLookup resolves the volume group serving a usage within a
// zone's currently-effective configuration.
type GroupLookup func(zoneID int, usage usagecontext.Usage) (*volumegroup.Group, bool)

// Monitor observes newly-active playback and applies activation-volume
// rules. One mutex over the (zone, group) → uid map (§5).
type Monitor struct {
	mu      sync.Mutex
	lastUID map[trackKey]int
	configs map[ZoneConfigKey]Config
	lookup  GroupLookup
	writer  volumegroup.DeviceWriter
}

// New constructs a Monitor. configs maps (zoneID, configID) to its
// activation-volume policy; zero-value Config (empty mask) means no
// clamping ever applies for that zone configuration.
func New(configs map[ZoneConfigKey]Config, lookup GroupLookup, writer volumegroup.DeviceWriter) *Monitor {
	return &Monitor{
		lastUID: make(map[trackKey]int),
		configs: configs,
		lookup:  lookup,
		writer:  writer,
	}
}

// OnPlaybackActive classifies and applies activation-volume rules for
// one newly-active (usage, uid) pair in zone/config (§4.5).
func (m *Monitor) OnPlaybackActive(ctx context.Context, zoneID, configID int, usage usagecontext.Usage, uid int) Classification {
	g, ok := m.lookup(zoneID, usage)
	if !ok {
		slog.Warn("activation: no volume group for usage, skipping", "zone", zoneID, "usage", usage.String())
		return OnBoot
	}

	m.mu.Lock()
	key := trackKey{zoneID: zoneID, groupID: g.Ref().GroupID}
	prevUID, tracked := m.lastUID[key]
	var classification Classification
	switch {
	case !tracked:
		classification = OnBoot
	case prevUID == uid:
		classification = OnPlaybackChanged
	default:
		classification = OnSourceChanged
	}
	m.lastUID[key] = uid
	cfg, hasCfg := m.configs[ZoneConfigKey{ZoneID: zoneID, ConfigID: configID}]
	m.mu.Unlock()

	if hasCfg && cfg.Mask.Has(classification) {
		stage := g.Stage()
		maxIndex := stage.MaxIndex()
		lo := int(cfg.MinPercent * float64(maxIndex))
		hi := int(cfg.MaxPercent * float64(maxIndex))
		current := g.CurrentIndex()
		clamped := current
		if clamped < lo {
			clamped = lo
		}
		if clamped > hi {
			clamped = hi
		}
		if clamped != current {
			if _, err := g.SetIndex(ctx, m.writer, clamped); err != nil {
				slog.Error("activation: clamp failed", "zone", zoneID, "group", g.Ref(), "err", err)
			}
		}
	}
	return classification
}

// OnRing synthesizes a ringtone activation for telephony ring state
// (§4.5 "Telephony ring/offhook synthesizes one activation").
func (m *Monitor) OnRing(ctx context.Context, zoneID, configID, uid int) Classification {
	return m.OnPlaybackActive(ctx, zoneID, configID, usagecontext.UsageRingtone, uid)
}

// OnOffHook synthesizes a voice-communication activation for telephony
// off-hook state.
func (m *Monitor) OnOffHook(ctx context.Context, zoneID, configID, uid int) Classification {
	return m.OnPlaybackActive(ctx, zoneID, configID, usagecontext.UsageVoiceCommunication, uid)
}
