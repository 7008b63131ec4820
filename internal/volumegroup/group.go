// Package volumegroup implements the volume-group model (C2): per-zone
// groups of output devices sharing one gain index, with mute,
// attenuation, limit, and core-mixer reconciliation.
package volumegroup

import (
	"context"
	"sync"

	"github.com/carbon-audio/audiopolicy/internal/apperr"
	"github.com/carbon-audio/audiopolicy/internal/device"
	"github.com/carbon-audio/audiopolicy/internal/eventbus"
	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
)

// Kind distinguishes the two group flavors sharing the group contract.
type Kind int

const (
	// KindDeviceGain maps gain index to device millibel linearly via
	// gain = min + index*step.
	KindDeviceGain Kind = iota
	// KindCoreMixer delegates gain to an external mixer; local state is
	// reconciled against the mixer's state on each externally-originated
	// change.
	KindCoreMixer
)

// Ref identifies a volume group across the whole policy, and doubles as
// the persistence key's structural content (§6: the string key is
// derived from (ZoneID<<8)|GroupID externally; this core never writes
// to that store, only names the tuple).
type Ref = eventbus.GroupRef

// GainStage is a volume group's gain envelope, recomputed whenever its
// device membership changes.
type GainStage struct {
	MinMB     int
	MaxMB     int
	DefaultMB int
	StepMB    int
}

// Validate checks the group invariants from §3: min ≤ default ≤ max,
// step ≠ 0.
func (s GainStage) Validate() error {
	if s.StepMB == 0 {
		return apperr.New(apperr.Configuration, "gain stage step must not be zero")
	}
	if !(s.MinMB <= s.DefaultMB && s.DefaultMB <= s.MaxMB) {
		return apperr.New(apperr.Configuration, "gain stage requires min <= default <= max")
	}
	return nil
}

// MaxIndex is the top of the index range [0, (max-min)/step].
func (s GainStage) MaxIndex() int { return (s.MaxMB - s.MinMB) / s.StepMB }

// GainAt converts an index to millibel.
func (s GainStage) GainAt(index int) int { return s.MinMB + index*s.StepMB }

// IndexOf converts millibel to an index by integer division by the
// step (truncating toward zero), clamped to range.
func (s GainStage) IndexOf(gainMB int) int {
	idx := (gainMB - s.MinMB) / s.StepMB
	if idx < 0 {
		return 0
	}
	if max := s.MaxIndex(); idx > max {
		return max
	}
	return idx
}

// DefaultIndex is the index corresponding to DefaultMB.
func (s GainStage) DefaultIndex() int { return s.IndexOf(s.DefaultMB) }

// DeviceWriter commits an effective gain/mute to a device-gain group's
// member devices. It is the core's outbound boundary to the actual
// hardware sink — routing/mixing itself is out of scope (§1).
type DeviceWriter interface {
	WriteGain(ctx context.Context, address string, gainMB int) error
}

// Group is a volume group: (zone_id, config_id, group_id), a display
// name, an ordered device list, a per-context address binding, and the
// mutable restriction/index state from §3.
type Group struct {
	mu sync.Mutex

	ref  Ref
	name string
	kind Kind

	addresses       []string
	contextBindings map[usagecontext.Context]string

	stage GainStage

	currentIndex     int
	userMute         bool
	halBlocked       bool
	halMuted         bool
	limitIndex       int
	attenuationIndex int
	isActive         bool
}

// New constructs a Group. addresses must be non-empty and each address
// may appear in at most one group process-wide when dynamic-routing
// mode is enabled (§8 invariant 4) — that cross-group uniqueness check
// is the zone-configuration loader's job, not the group's.
func New(ref Ref, name string, kind Kind, addresses []string, bindings map[usagecontext.Context]string, stage GainStage) (*Group, error) {
	if len(addresses) == 0 {
		return nil, apperr.New(apperr.Configuration, "volume group must own at least one output device")
	}
	if err := stage.Validate(); err != nil {
		return nil, err
	}
	addrCopy := make([]string, len(addresses))
	copy(addrCopy, addresses)
	bindCopy := make(map[usagecontext.Context]string, len(bindings))
	for k, v := range bindings {
		bindCopy[k] = v
	}
	return &Group{
		ref:              ref,
		name:             name,
		kind:             kind,
		addresses:        addrCopy,
		contextBindings:  bindCopy,
		stage:            stage,
		currentIndex:     stage.DefaultIndex(),
		limitIndex:       stage.MaxIndex(),
		attenuationIndex: stage.MaxIndex(),
	}, nil
}

// Ref returns the group's identifying tuple.
func (g *Group) Ref() Ref { return g.ref }

// Name returns the group's display name.
func (g *Group) Name() string { return g.name }

// Kind reports whether this is a device-gain or core-mixer group.
func (g *Group) Kind() Kind { return g.kind }

// Addresses returns the ordered device-address list (a copy).
func (g *Group) Addresses() []string {
	out := make([]string, len(g.addresses))
	copy(out, g.addresses)
	return out
}

// AddressForContext returns the device address bound to ctx, if any.
func (g *Group) AddressForContext(ctx usagecontext.Context) (string, bool) {
	a, ok := g.contextBindings[ctx]
	return a, ok
}

// SetActive marks whether this group's config is currently effective.
func (g *Group) SetActive(active bool) {
	g.mu.Lock()
	g.isActive = active
	g.mu.Unlock()
}

// IsActive reports whether this group's config is currently effective.
func (g *Group) IsActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isActive
}

// Stage returns the group's current gain stage.
func (g *Group) Stage() GainStage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stage
}

// CurrentIndex returns the raw stored index (independent of any
// restriction — mirrors what a UI would show as "the knob position").
func (g *Group) CurrentIndex() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentIndex
}

// EffectiveIndex applies the restrictions stack (§4.2) to derive the
// index that should actually reach the devices/mixer.
func (g *Group) EffectiveIndex() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.effectiveIndexLocked()
}

func (g *Group) effectiveIndexLocked() int {
	if g.halBlocked {
		return 0
	}
	if g.halMuted {
		return 0
	}
	idx := g.currentIndex
	if g.attenuationIndex < idx {
		idx = g.attenuationIndex
	}
	if g.limitIndex < idx {
		idx = g.limitIndex
	}
	if g.userMute {
		return 0
	}
	return idx
}

// SetIndex validates and stores a new raw index, then commits the
// effective gain to member devices (unless hal_blocked, in which case
// the write is accepted into current_index but not applied downstream,
// per §4.2 restriction 1). Index out of range is an invariant
// violation — a programmer/caller error, not a recoverable condition.
func (g *Group) SetIndex(ctx context.Context, w DeviceWriter, index int) (eventbus.Flag, error) {
	g.mu.Lock()
	max := g.stage.MaxIndex()
	if index < 0 || index > max {
		g.mu.Unlock()
		panic(apperr.New(apperr.Invariant, "volume group index out of range"))
	}
	g.currentIndex = index
	g.mu.Unlock()
	return g.commit(ctx, w)
}

// SetUserMute sets the user-mute flag (stored current_index retained)
// and commits the effective gain.
func (g *Group) SetUserMute(ctx context.Context, w DeviceWriter, mute bool) (eventbus.Flag, error) {
	g.mu.Lock()
	changed := g.userMute != mute
	g.userMute = mute
	g.mu.Unlock()
	if !changed {
		return 0, nil
	}
	flags, err := g.commit(ctx, w)
	return flags | eventbus.FlagMuteChanged, err
}

// SetHALBlocked sets/clears the hal_blocked restriction (forced-mute,
// TCU-mute, remote-mute reasons). When set, current_index writes are
// still accepted but not applied downstream.
func (g *Group) SetHALBlocked(ctx context.Context, w DeviceWriter, blocked bool) (eventbus.Flag, error) {
	g.mu.Lock()
	g.halBlocked = blocked
	g.mu.Unlock()
	return g.commit(ctx, w)
}

// SetHALMuted sets/clears the hal_muted restriction (TCU-mute,
// remote-mute reasons).
func (g *Group) SetHALMuted(ctx context.Context, w DeviceWriter, muted bool) (eventbus.Flag, error) {
	g.mu.Lock()
	g.halMuted = muted
	g.mu.Unlock()
	flags, err := g.commit(ctx, w)
	return flags | eventbus.FlagMuteChanged, err
}

// SetLimitIndex sets the thermal/suspend-exit limit ceiling.
func (g *Group) SetLimitIndex(ctx context.Context, w DeviceWriter, limit int) (eventbus.Flag, error) {
	g.mu.Lock()
	g.limitIndex = clampToRange(limit, 0, g.stage.MaxIndex())
	g.mu.Unlock()
	return g.commit(ctx, w)
}

// SetAttenuationIndex sets the ADAS/NAV/projection-duck attenuation
// ceiling.
func (g *Group) SetAttenuationIndex(ctx context.Context, w DeviceWriter, attenuation int) (eventbus.Flag, error) {
	g.mu.Lock()
	g.attenuationIndex = clampToRange(attenuation, 0, g.stage.MaxIndex())
	g.mu.Unlock()
	flags, err := g.commit(ctx, w)
	return flags | eventbus.FlagAttenuationChanged, err
}

// AdoptIndexFromHAL sets current_index directly without recomputing or
// re-notifying the HAL (EXT_AMP_VOL_FEEDBACK, §4.3). It still commits
// to devices so local state matches the amp's own report.
func (g *Group) AdoptIndexFromHAL(ctx context.Context, w DeviceWriter, index int) (eventbus.Flag, error) {
	g.mu.Lock()
	g.currentIndex = clampToRange(index, 0, g.stage.MaxIndex())
	g.mu.Unlock()
	return eventbus.FlagIndexChanged, g.commitNoNotify(ctx, w)
}

func clampToRange(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// commit recomputes the effective gain and writes it to every member
// device, writing index 0's gain while hal_blocked (device-gain groups
// only — core-mixer groups are committed via the reconciler's mixer
// calls, not DeviceWriter).
func (g *Group) commit(ctx context.Context, w DeviceWriter) (eventbus.Flag, error) {
	if err := g.commitNoNotify(ctx, w); err != nil {
		return 0, err
	}
	return eventbus.FlagIndexChanged, nil
}

func (g *Group) commitNoNotify(ctx context.Context, w DeviceWriter) error {
	g.mu.Lock()
	blocked := g.halBlocked
	effective := g.effectiveIndexLocked()
	kind := g.kind
	addrs := g.Addresses()
	stage := g.stage
	g.mu.Unlock()

	if kind != KindDeviceGain || w == nil {
		return nil
	}
	if blocked {
		effective = 0
	}
	gainMB := stage.GainAt(effective)
	for _, addr := range addrs {
		if err := w.WriteGain(ctx, addr, gainMB); err != nil {
			return err
		}
	}
	return nil
}
