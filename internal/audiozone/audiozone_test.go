package audiozone

import (
	"testing"

	"github.com/carbon-audio/audiopolicy/internal/device"
	"github.com/carbon-audio/audiopolicy/internal/eventbus"
	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
	"github.com/carbon-audio/audiopolicy/internal/volumegroup"
	"github.com/carbon-audio/audiopolicy/internal/zoneconfig"
)

func newTestConfig(t *testing.T, zoneID, configID int, isDefault bool) *zoneconfig.Config {
	t.Helper()
	stage := volumegroup.GainStage{MinMB: 0, MaxMB: 1000, DefaultMB: 0, StepMB: 100}
	g, err := volumegroup.New(
		eventbus.GroupRef{ZoneID: zoneID, ConfigID: configID, GroupID: 1},
		"group",
		volumegroup.KindDeviceGain,
		[]string{"addr0"},
		map[usagecontext.Context]string{usagecontext.ContextMusic: "addr0"},
		stage,
	)
	if err != nil {
		t.Fatalf("volumegroup.New: %v", err)
	}
	return zoneconfig.New(zoneID, configID, isDefault, []*volumegroup.Group{g})
}

func TestNewRejectsPrimaryZoneWithoutInputDevice(t *testing.T) {
	cfg := newTestConfig(t, PrimaryZoneID, 0, true)
	if _, err := New(PrimaryZoneID, "cabin", []*zoneconfig.Config{cfg}, nil); err == nil {
		t.Fatalf("expected error: primary zone requires an input device")
	}
}

func TestNewRejectsNoDefaultConfig(t *testing.T) {
	cfg := newTestConfig(t, 1, 0, false)
	if _, err := New(1, "rear", []*zoneconfig.Config{cfg}, nil); err == nil {
		t.Fatalf("expected error: zone requires a default configuration")
	}
}

func TestNewRejectsMultipleDefaultConfigs(t *testing.T) {
	cfg1 := newTestConfig(t, 1, 0, true)
	cfg2 := newTestConfig(t, 1, 1, true)
	if _, err := New(1, "rear", []*zoneconfig.Config{cfg1, cfg2}, nil); err == nil {
		t.Fatalf("expected error: more than one default configuration")
	}
}

func TestSelectSwitchesCurrentConfig(t *testing.T) {
	def := newTestConfig(t, 1, 0, true)
	alt := newTestConfig(t, 1, 1, false)
	z, err := New(1, "rear", []*zoneconfig.Config{def, alt}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if z.CurrentConfigID() != 0 {
		t.Fatalf("expected default config 0 selected initially, got %d", z.CurrentConfigID())
	}
	if err := z.Select(1); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if z.CurrentConfigID() != 1 {
		t.Fatalf("expected config 1 selected, got %d", z.CurrentConfigID())
	}
	if !alt.IsSelected() {
		t.Fatalf("expected alt config marked selected")
	}
}

func TestSelectUnknownConfigFails(t *testing.T) {
	def := newTestConfig(t, 1, 0, true)
	z, err := New(1, "rear", []*zoneconfig.Config{def}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := z.Select(99); err == nil {
		t.Fatalf("expected error selecting unknown config id")
	}
}

func TestPrimaryZoneWithInputDeviceSucceeds(t *testing.T) {
	cfg := newTestConfig(t, PrimaryZoneID, 0, true)
	z, err := New(PrimaryZoneID, "cabin", []*zoneconfig.Config{cfg}, []device.Output{{Address: "mic0", Type: device.TypeBuiltinMic}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(z.InputDevices) != 1 {
		t.Fatalf("expected one input device")
	}
}

func TestNewRejectsPrimaryZoneWithoutBuiltinMicType(t *testing.T) {
	cfg := newTestConfig(t, PrimaryZoneID, 0, true)
	_, err := New(PrimaryZoneID, "cabin", []*zoneconfig.Config{cfg}, []device.Output{{Address: "aux0", Type: device.TypeWired}})
	if err == nil {
		t.Fatalf("expected error: input device without built-in-mic type must not satisfy invariant 5")
	}
}
