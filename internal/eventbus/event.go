// Package eventbus implements the event fan-out (C10): broadcast of
// volume-group and mute events to registered listeners with at-most-once
// delivery per event, built on watermill's in-process gochannel
// Pub/Sub rather than a hand-rolled channel-of-channels.
package eventbus

import "github.com/carbon-audio/audiopolicy/internal/usagecontext"

// Flag is a bit in a volume-group event's change mask. Flags are
// union-able — a single event may report several simultaneous changes.
type Flag uint8

const (
	FlagIndexChanged Flag = 1 << iota
	FlagMinChanged
	FlagMaxChanged
	FlagMuteChanged
	FlagAttenuationChanged
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// ExtraInfo is the fixed extra-info tag derived from a HAL restriction
// reason, carried alongside a volume-group event (§6 reasons table).
type ExtraInfo int

const (
	ExtraNone ExtraInfo = iota
	ExtraMuteToggledByAudioSystem
	ExtraMuteToggledByEmergency
	ExtraAttenuationExternal
	ExtraAttenuationNavigation
	ExtraAttenuationProjection
	ExtraAttenuationThermal
	ExtraAttenuationActivation
	ExtraVolumeIndexChangedByAudioSystem
)

// GroupRef identifies a volume group across the whole policy — the
// same tuple used as its storage/persistence key.
type GroupRef struct {
	ZoneID   int
	ConfigID int
	GroupID  int
}

// VolumeGroupEvent is the rich event published whenever a volume
// group's effective state changes.
type VolumeGroupEvent struct {
	Group      GroupRef
	Flags      Flag
	ExtraInfos []ExtraInfo
}

// LegacyKind distinguishes the three legacy per-group event shapes
// carried on the compatibility channel.
type LegacyKind int

const (
	LegacyVolumeChanged LegacyKind = iota
	LegacyMuteChanged
	LegacyMasterMuteChanged
)

// LegacyEvent is the narrower pre-existing per-group event shape,
// still delivered to listeners that only registered on the legacy
// channel.
type LegacyEvent struct {
	Group GroupRef
	Kind  LegacyKind
}

// MutingInfo is the outbound per-zone mute delta (§6 MutingInfo): the
// device addresses newly muted or newly unmuted since the previous
// computation, mirroring DuckingInfo's delta shape.
type MutingInfo struct {
	ZoneID                  int
	DeviceAddressesToMute   []string
	DeviceAddressesToUnmute []string
}

// FocusChangeEvent is forwarded to zone-scoped listeners (the ducking
// engine, the HAL bridge) after every focus-arbiter state commit.
type FocusChangeEvent struct {
	ZoneID  int
	Holders []HolderSnapshot
}

// HolderSnapshot is a read-only view of one focus holder, safe to hand
// to a passive subscriber (it is never mutated after publish).
type HolderSnapshot struct {
	ClientID string
	Context  usagecontext.Context
	Ducked   bool
}
