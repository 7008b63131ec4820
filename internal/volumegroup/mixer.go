package volumegroup

import (
	"context"

	"github.com/carbon-audio/audiopolicy/internal/eventbus"
	"github.com/carbon-audio/audiopolicy/internal/metrics"
)

// Mixer is the external, authoritative core-mixer boundary that a
// KindCoreMixer group reconciles against. The core never mirrors local
// writes back by assumption — it always reads the mixer back after
// writing (§9 "core-mixer divergence").
type Mixer interface {
	AdjustMute(ctx context.Context, ref Ref, mute bool) error
	AdjustIndex(ctx context.Context, ref Ref, index int) error
}

// MixerSnapshot is the external mixer's reported state for one group.
type MixerSnapshot struct {
	CurrentIndex int
	LastAudible  int
	Muted        bool
}

// ReconcileFromMixer applies §4.2's core-mixer reconciliation rules
// when the external mixer reports a volume-group change. It returns
// the change flags of the branch taken: 0 for the force-mute branch,
// and FlagIndexChanged for the index-adopt branch even when the
// adopted index equals the old one.
func (g *Group) ReconcileFromMixer(ctx context.Context, mixer Mixer, snap MixerSnapshot) (eventbus.Flag, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	mutedAtZero := snap.Muted && snap.LastAudible == 0

	if g.halBlocked && !snap.Muted {
		metrics.RecordMixerReconciliation("force_mute")
		return 0, mixer.AdjustMute(ctx, g.ref, true)
	}

	if mutedAtZero {
		// The mixer muted itself at volume zero rather than via an
		// explicit mute toggle. Local mute state is untouched; adopt
		// the zero index and unmute the mixer programmatically so its
		// mute flag doesn't linger orphaned (§9 open question).
		g.currentIndex = 0
		if err := mixer.AdjustMute(ctx, g.ref, false); err != nil {
			return 0, err
		}
		metrics.RecordMixerReconciliation("muted_at_zero")
		return eventbus.FlagIndexChanged, nil
	}

	if g.userMute != snap.Muted {
		g.userMute = snap.Muted
		metrics.RecordMixerReconciliation("mute_toggle")
		return eventbus.FlagMuteChanged, nil
	}

	if snap.CurrentIndex > g.limitIndex {
		g.currentIndex = g.limitIndex
		metrics.RecordMixerReconciliation("limit_clamped")
		return eventbus.FlagIndexChanged, nil
	}

	if g.attenuationIndex < g.stage.MaxIndex() && snap.CurrentIndex != g.attenuationIndex {
		g.attenuationIndex = g.stage.MaxIndex()
		g.currentIndex = snap.CurrentIndex
		metrics.RecordMixerReconciliation("attenuation_cleared")
		return eventbus.FlagIndexChanged | eventbus.FlagAttenuationChanged, nil
	}

	g.currentIndex = snap.CurrentIndex
	metrics.RecordMixerReconciliation("index_adopted")
	return eventbus.FlagIndexChanged, nil
}

// RecomputeGainStage recomputes (min, max, default, step) after a
// device add/remove (§4.2 "gain-stage recomputation"): max-of-mins,
// min-of-maxes, min-of-defaults, common step. A step mismatch among a
// group's devices is a fatal configuration error — the caller should
// treat a non-nil error as Configuration-fatal at init time.
func RecomputeGainStage(devices []GainStage) (GainStage, error) {
	if len(devices) == 0 {
		return GainStage{}, errEmptyGroup
	}
	stage := devices[0]
	for _, d := range devices[1:] {
		if d.StepMB != stage.StepMB {
			return GainStage{}, errStepMismatch
		}
		if d.MinMB > stage.MinMB {
			stage.MinMB = d.MinMB
		}
		if d.MaxMB < stage.MaxMB {
			stage.MaxMB = d.MaxMB
		}
		if d.DefaultMB < stage.DefaultMB {
			stage.DefaultMB = d.DefaultMB
		}
	}
	return stage, stage.Validate()
}

// ApplyGainStage recomputes the group's gain stage and re-extrapolates
// current_index from the prior gain in millibel; if the prior gain
// falls outside the new range, current_index snaps to the new default.
// It returns the union of changed flags (INDEX/MIN/MAX as applicable).
func (g *Group) ApplyGainStage(newStage GainStage) eventbus.Flag {
	g.mu.Lock()
	defer g.mu.Unlock()

	priorGainMB := g.stage.GainAt(g.currentIndex)
	var flags eventbus.Flag
	if newStage.MinMB != g.stage.MinMB {
		flags |= eventbus.FlagMinChanged
	}
	if newStage.MaxMB != g.stage.MaxMB {
		flags |= eventbus.FlagMaxChanged
	}
	g.stage = newStage

	if priorGainMB < newStage.MinMB || priorGainMB > newStage.MaxMB {
		g.currentIndex = newStage.DefaultIndex()
		flags |= eventbus.FlagIndexChanged
	} else {
		newIndex := newStage.IndexOf(priorGainMB)
		if newIndex != g.currentIndex {
			flags |= eventbus.FlagIndexChanged
		}
		g.currentIndex = newIndex
	}

	if g.limitIndex > newStage.MaxIndex() {
		g.limitIndex = newStage.MaxIndex()
	}
	if g.attenuationIndex > newStage.MaxIndex() {
		g.attenuationIndex = newStage.MaxIndex()
	}

	return flags
}
