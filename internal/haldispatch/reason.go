package haldispatch

import "github.com/carbon-audio/audiopolicy/internal/eventbus"

// Reason is a hardware-originated gain-change reason (§3).
type Reason int

const (
	ReasonForcedMasterMute Reason = iota
	ReasonTCUMute
	ReasonRemoteMute
	ReasonThermal
	ReasonSuspendExitVolLimitation
	ReasonADASDucking
	ReasonNAVDucking
	ReasonProjectionDucking
	ReasonExtAmpVolFeedback
	ReasonOther
)

func (r Reason) String() string {
	switch r {
	case ReasonForcedMasterMute:
		return "forced_master_mute"
	case ReasonTCUMute:
		return "tcu_mute"
	case ReasonRemoteMute:
		return "remote_mute"
	case ReasonThermal:
		return "thermal"
	case ReasonSuspendExitVolLimitation:
		return "suspend_exit_vol_limitation"
	case ReasonADASDucking:
		return "adas_ducking"
	case ReasonNAVDucking:
		return "nav_ducking"
	case ReasonProjectionDucking:
		return "projection_ducking"
	case ReasonExtAmpVolFeedback:
		return "ext_amp_vol_feedback"
	default:
		return "other"
	}
}

// ExtraInfo returns the fixed extra-info tag for this reason (§6 table,
// bit-exact).
func (r Reason) ExtraInfo() eventbus.ExtraInfo {
	switch r {
	case ReasonRemoteMute:
		return eventbus.ExtraMuteToggledByAudioSystem
	case ReasonTCUMute:
		return eventbus.ExtraMuteToggledByEmergency
	case ReasonADASDucking:
		return eventbus.ExtraAttenuationExternal
	case ReasonNAVDucking:
		return eventbus.ExtraAttenuationNavigation
	case ReasonProjectionDucking:
		return eventbus.ExtraAttenuationProjection
	case ReasonThermal:
		return eventbus.ExtraAttenuationThermal
	case ReasonSuspendExitVolLimitation:
		return eventbus.ExtraAttenuationActivation
	case ReasonExtAmpVolFeedback:
		return eventbus.ExtraVolumeIndexChangedByAudioSystem
	default: // ReasonForcedMasterMute, ReasonOther
		return eventbus.ExtraNone
	}
}

// reasonSet is a small lookup helper over one gain-change batch's
// reason list.
type reasonSet map[Reason]bool

func newReasonSet(reasons []Reason) reasonSet {
	s := make(reasonSet, len(reasons))
	for _, r := range reasons {
		s[r] = true
	}
	return s
}

func (s reasonSet) any(rs ...Reason) bool {
	for _, r := range rs {
		if s[r] {
			return true
		}
	}
	return false
}

func (s reasonSet) list() []Reason {
	out := make([]Reason, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	return out
}
