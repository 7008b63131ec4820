package activation

import (
	"context"
	"testing"

	"github.com/carbon-audio/audiopolicy/internal/eventbus"
	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
	"github.com/carbon-audio/audiopolicy/internal/volumegroup"
)

type fakeWriter struct{}

func (fakeWriter) WriteGain(ctx context.Context, address string, gainMB int) error { return nil }

func newTestGroup(t *testing.T) *volumegroup.Group {
	t.Helper()
	stage := volumegroup.GainStage{MinMB: 0, MaxMB: 3000, DefaultMB: 0, StepMB: 100}
	g, err := volumegroup.New(
		eventbus.GroupRef{ZoneID: 1, ConfigID: 1, GroupID: 1},
		"front",
		volumegroup.KindDeviceGain,
		[]string{"addr0"},
		map[usagecontext.Context]string{usagecontext.ContextMusic: "addr0"},
		stage,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

// Seed scenario 6: group min=0%, max=80%, max_index=30. UID=1000 plays
// MUSIC -> ON_BOOT, clamp into [0,24]. Same UID plays again ->
// ON_PLAYBACK_CHANGED, no clamp. UID=2000 plays MUSIC -> ON_SOURCE_CHANGED,
// clamped.
func TestActivationSeedScenario6(t *testing.T) {
	g := newTestGroup(t)
	if g.Stage().MaxIndex() != 30 {
		t.Fatalf("expected max index 30, got %d", g.Stage().MaxIndex())
	}

	ctx := context.Background()
	w := fakeWriter{}
	if _, err := g.SetIndex(ctx, w, 30); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}

	lookup := func(zoneID int, usage usagecontext.Usage) (*volumegroup.Group, bool) {
		if zoneID == 1 && usage == usagecontext.UsageMedia {
			return g, true
		}
		return nil, false
	}
	configs := map[ZoneConfigKey]Config{
		{ZoneID: 1, ConfigID: 1}: {
			MinPercent: 0.0,
			MaxPercent: 0.8,
			Mask:       InvokeOnBoot | InvokeOnSourceChanged,
		},
	}
	mon := New(configs, lookup, w)

	cls := mon.OnPlaybackActive(ctx, 1, 1, usagecontext.UsageMedia, 1000)
	if cls != OnBoot {
		t.Fatalf("expected OnBoot, got %v", cls)
	}
	if got := g.CurrentIndex(); got != 24 {
		t.Fatalf("expected clamp to 24, got %d", got)
	}

	if _, err := g.SetIndex(ctx, w, 30); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	cls = mon.OnPlaybackActive(ctx, 1, 1, usagecontext.UsageMedia, 1000)
	if cls != OnPlaybackChanged {
		t.Fatalf("expected OnPlaybackChanged, got %v", cls)
	}
	if got := g.CurrentIndex(); got != 30 {
		t.Fatalf("expected no clamp (still 30), got %d", got)
	}

	cls = mon.OnPlaybackActive(ctx, 1, 1, usagecontext.UsageMedia, 2000)
	if cls != OnSourceChanged {
		t.Fatalf("expected OnSourceChanged, got %v", cls)
	}
	if got := g.CurrentIndex(); got != 24 {
		t.Fatalf("expected clamp to 24, got %d", got)
	}
}

func TestActivationUnconfiguredZoneConfigNoClamp(t *testing.T) {
	g := newTestGroup(t)
	ctx := context.Background()
	w := fakeWriter{}
	if _, err := g.SetIndex(ctx, w, 30); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}

	lookup := func(zoneID int, usage usagecontext.Usage) (*volumegroup.Group, bool) {
		return g, true
	}
	mon := New(map[ZoneConfigKey]Config{}, lookup, w)

	cls := mon.OnPlaybackActive(ctx, 1, 1, usagecontext.UsageMedia, 1)
	if cls != OnBoot {
		t.Fatalf("expected OnBoot, got %v", cls)
	}
	if got := g.CurrentIndex(); got != 30 {
		t.Fatalf("expected no clamp without config, got %d", got)
	}
}

func TestOnRingUsesRingtoneUsage(t *testing.T) {
	g := newTestGroup(t)
	ctx := context.Background()
	w := fakeWriter{}

	var seenUsage usagecontext.Usage
	lookup := func(zoneID int, usage usagecontext.Usage) (*volumegroup.Group, bool) {
		seenUsage = usage
		return g, true
	}
	mon := New(map[ZoneConfigKey]Config{}, lookup, w)
	mon.OnRing(ctx, 1, 1, 1)
	if seenUsage != usagecontext.UsageRingtone {
		t.Fatalf("expected ringtone usage, got %v", seenUsage)
	}

	mon.OnOffHook(ctx, 1, 1, 1)
	if seenUsage != usagecontext.UsageVoiceCommunication {
		t.Fatalf("expected voice_communication usage, got %v", seenUsage)
	}
}
