// Package haldispatch implements the HAL gain/mute dispatcher (C6): a
// translator from hardware-originated gain-change reasons into
// restrictions applied to volume groups, producing user-visible
// events.
package haldispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/carbon-audio/audiopolicy/internal/eventbus"
	"github.com/carbon-audio/audiopolicy/internal/metrics"
	"github.com/carbon-audio/audiopolicy/internal/volumegroup"
)

// GainConfig is one target group's reported volume index within a
// HAL gain-change batch.
type GainConfig struct {
	Group volumegroup.Ref
	Index int
}

// MutingListener receives per-zone mute-address deltas (§6 MutingInfo),
// the HAL boundary's mute counterpart to the ducking engine's duck
// deltas.
type MutingListener func(eventbus.MutingInfo)

// Dispatcher receives hardware gain-change events, groups them by
// zone, applies restrictions to volume groups, and emits events. One
// mutex for the whole dispatcher, held only for the duration of a
// batch (§5).
type Dispatcher struct {
	mu           sync.Mutex
	groups       map[volumegroup.Ref]*volumegroup.Group
	zones        map[int]bool
	bus          *eventbus.Bus
	writer       volumegroup.DeviceWriter
	muteListener MutingListener
	previousMute map[int]map[string]bool
}

// New constructs a Dispatcher. groups is the fixed set of volume
// groups known at init; zones is the fixed set of known zone ids.
func New(groups map[volumegroup.Ref]*volumegroup.Group, zones map[int]bool, bus *eventbus.Bus, writer volumegroup.DeviceWriter) *Dispatcher {
	return &Dispatcher{
		groups:       groups,
		zones:        zones,
		bus:          bus,
		writer:       writer,
		previousMute: make(map[int]map[string]bool),
	}
}

// OnMuteChange registers the listener that receives per-zone MutingInfo
// deltas whenever a batch changes any group's muted device set.
func (d *Dispatcher) OnMuteChange(listener MutingListener) {
	d.mu.Lock()
	d.muteListener = listener
	d.mu.Unlock()
}

// mutation accumulates the union of change flags and extra-infos for
// one group across a batch, so exactly one event is emitted per
// mutated group (§4.3).
type mutation struct {
	flags  eventbus.Flag
	extras map[eventbus.ExtraInfo]bool
}

// OnAudioDeviceGainsChanged applies one HAL gain-change batch (§4.3,
// §6 onAudioDeviceGainsChanged). Entries targeting an unknown zone are
// logged and dropped; the rest of the batch continues.
func (d *Dispatcher) OnAudioDeviceGainsChanged(ctx context.Context, reasons []Reason, configs []GainConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rs := newReasonSet(reasons)
	mutations := make(map[volumegroup.Ref]*mutation)

	for _, cfg := range configs {
		if !d.zones[cfg.Group.ZoneID] {
			slog.Warn("haldispatch: dropping gain config for unknown zone", "zone", cfg.Group.ZoneID)
			metrics.RecordHALBatchDropped()
			continue
		}
		g, ok := d.groups[cfg.Group]
		if !ok {
			slog.Warn("haldispatch: dropping gain config for unknown group", "group", cfg.Group)
			metrics.RecordHALBatchDropped()
			continue
		}

		m := mutations[cfg.Group]
		if m == nil {
			m = &mutation{extras: make(map[eventbus.ExtraInfo]bool)}
			mutations[cfg.Group] = m
		}

		if rs.any(ReasonForcedMasterMute, ReasonTCUMute, ReasonRemoteMute) {
			flags, err := g.SetHALBlocked(ctx, d.writer, true)
			if err != nil {
				slog.Error("haldispatch: set hal_blocked failed", "group", cfg.Group, "err", err)
			}
			m.flags |= flags | eventbus.FlagMuteChanged
		}

		if rs.any(ReasonThermal, ReasonSuspendExitVolLimitation) {
			flags, err := g.SetLimitIndex(ctx, d.writer, cfg.Index)
			if err != nil {
				slog.Error("haldispatch: set limit failed", "group", cfg.Group, "err", err)
			}
			m.flags |= flags
		}

		if rs.any(ReasonADASDucking, ReasonNAVDucking, ReasonProjectionDucking) {
			flags, err := g.SetAttenuationIndex(ctx, d.writer, cfg.Index)
			if err != nil {
				slog.Error("haldispatch: set attenuation failed", "group", cfg.Group, "err", err)
			}
			m.flags |= flags
		}

		if rs.any(ReasonTCUMute, ReasonRemoteMute) {
			flags, err := g.SetHALMuted(ctx, d.writer, true)
			if err != nil {
				slog.Error("haldispatch: set hal_muted failed", "group", cfg.Group, "err", err)
			}
			m.flags |= flags
		}

		if rs.any(ReasonExtAmpVolFeedback) {
			flags, err := g.AdoptIndexFromHAL(ctx, d.writer, cfg.Index)
			if err != nil {
				slog.Error("haldispatch: adopt index from HAL failed", "group", cfg.Group, "err", err)
			}
			m.flags |= flags
		}

		for r := range rs {
			if extra := r.ExtraInfo(); extra != eventbus.ExtraNone {
				m.extras[extra] = true
			}
		}
	}

	for ref, m := range mutations {
		if m.flags == 0 {
			continue
		}
		extras := make([]eventbus.ExtraInfo, 0, len(m.extras))
		for e := range m.extras {
			extras = append(extras, e)
		}
		for _, r := range rs.list() {
			metrics.RecordHALBatchMutation(r.String())
		}
		d.bus.PublishVolumeGroupEvent(eventbus.VolumeGroupEvent{
			Group:      ref,
			Flags:      m.flags,
			ExtraInfos: extras,
		})
	}

	d.emitMutingDeltas(mutations)
}

// emitMutingDeltas recomputes, per zone touched by this batch, which
// device addresses are newly muted or newly unmuted, and notifies the
// registered MutingListener (§6 MutingInfo). Must be called with d.mu
// held.
func (d *Dispatcher) emitMutingDeltas(mutations map[volumegroup.Ref]*mutation) {
	if d.muteListener == nil {
		return
	}
	touchedZones := make(map[int]bool)
	for ref, m := range mutations {
		if m.flags.Has(eventbus.FlagMuteChanged) {
			touchedZones[ref.ZoneID] = true
		}
	}
	for zoneID := range touchedZones {
		newMuted := make(map[string]bool)
		for ref, g := range d.groups {
			if ref.ZoneID != zoneID {
				continue
			}
			if g.EffectiveIndex() == 0 {
				for _, addr := range g.Addresses() {
					newMuted[addr] = true
				}
			}
		}
		prev := d.previousMute[zoneID]
		var toMute, toUnmute []string
		for addr := range newMuted {
			if !prev[addr] {
				toMute = append(toMute, addr)
			}
		}
		for addr := range prev {
			if !newMuted[addr] {
				toUnmute = append(toUnmute, addr)
			}
		}
		d.previousMute[zoneID] = newMuted
		if len(toMute) == 0 && len(toUnmute) == 0 {
			continue
		}
		d.muteListener(eventbus.MutingInfo{
			ZoneID:                  zoneID,
			DeviceAddressesToMute:   toMute,
			DeviceAddressesToUnmute: toUnmute,
		})
	}
}

// OnAudioPortsChanged triggers volume-group gain-stage recomputation
// for groups whose device membership is affected (§6). stages maps a
// group ref to the gain stages currently reported by each of that
// group's devices; refs outside the dispatcher's group set are skipped.
func (d *Dispatcher) OnAudioPortsChanged(stages map[volumegroup.Ref][]volumegroup.GainStage) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for ref, perDeviceStages := range stages {
		g, ok := d.groups[ref]
		if !ok {
			continue
		}
		newStage, err := volumegroup.RecomputeGainStage(perDeviceStages)
		if err != nil {
			slog.Error("haldispatch: gain-stage recomputation failed", "group", ref, "err", err)
			continue
		}
		flags := g.ApplyGainStage(newStage)
		if flags != 0 {
			d.bus.PublishVolumeGroupEvent(eventbus.VolumeGroupEvent{Group: ref, Flags: flags})
		}
	}
}
