// Command audiopolicyd runs the audio-policy core standalone: it
// builds a demo zone topology, wires every component, and serves HAL
// focus/gain callbacks until terminated. Run with --settings-dir to
// enable the hot-reloadable CALL×NAV interaction toggle.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carbon-audio/audiopolicy/internal/activation"
	"github.com/carbon-audio/audiopolicy/internal/audiozone"
	"github.com/carbon-audio/audiopolicy/internal/device"
	"github.com/carbon-audio/audiopolicy/internal/ducking"
	"github.com/carbon-audio/audiopolicy/internal/eventbus"
	"github.com/carbon-audio/audiopolicy/internal/focus"
	"github.com/carbon-audio/audiopolicy/internal/mediabroker"
	"github.com/carbon-audio/audiopolicy/internal/service"
	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
	"github.com/carbon-audio/audiopolicy/internal/volumegroup"
	"github.com/carbon-audio/audiopolicy/internal/zoneconfig"
)

func main() {
	var (
		settingsDir = flag.String("settings-dir", "", "directory containing interaction.json (hot-reloaded CALL/NAV toggle)")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	zones, err := demoZones()
	if err != nil {
		slog.Error("failed to build demo zone topology", "err", err)
		os.Exit(1)
	}

	svc, err := service.New(service.Config{
		Zones:             zones,
		RejectNavOnCall:   true,
		SettingsDir:       *settingsDir,
		ActivationConfigs: demoActivationConfigs(),
		DeviceWriter:      loggingWriter{},
		MediaApprover: func(requestID int, occupant string) bool {
			slog.Info("mediabroker: auto-approving demo request", "request", requestID, "occupant", occupant)
			return true
		},
		DuckListener: func(info ducking.Info) {
			slog.Debug("duck delta", "zone", info.ZoneID, "duck", info.AddressesToDuck, "unduck", info.AddressesToUnduck)
		},
	})
	if err != nil {
		slog.Error("service initialization failed", "err", err)
		os.Exit(1)
	}

	slog.Info("audiopolicy core running", "zones", len(zones))
	runDemoTraffic(svc)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	svc.Close(shutCtx)

	slog.Info("shutdown complete")
}

type loggingWriter struct{}

func (loggingWriter) WriteGain(ctx context.Context, address string, gainMB int) error {
	slog.Debug("hal: write gain", "address", address, "gain_mb", gainMB)
	return nil
}

func demoZones() ([]*audiozone.Zone, error) {
	stage := volumegroup.GainStage{MinMB: -6000, MaxMB: 0, DefaultMB: -3000, StepMB: 100}

	mediaGroup, err := volumegroup.New(
		eventbus.GroupRef{ZoneID: audiozone.PrimaryZoneID, ConfigID: 0, GroupID: 1},
		"front-media",
		volumegroup.KindDeviceGain,
		[]string{"front-left", "front-right"},
		map[usagecontext.Context]string{usagecontext.ContextMusic: "front-left"},
		stage,
	)
	if err != nil {
		return nil, err
	}
	navGroup, err := volumegroup.New(
		eventbus.GroupRef{ZoneID: audiozone.PrimaryZoneID, ConfigID: 0, GroupID: 2},
		"front-nav",
		volumegroup.KindDeviceGain,
		[]string{"front-left"},
		map[usagecontext.Context]string{usagecontext.ContextNavigation: "front-left"},
		stage,
	)
	if err != nil {
		return nil, err
	}

	primaryCfg := zoneconfig.New(audiozone.PrimaryZoneID, 0, true, []*volumegroup.Group{mediaGroup, navGroup})
	primaryZone, err := audiozone.New(audiozone.PrimaryZoneID, "front-cabin", []*zoneconfig.Config{primaryCfg},
		[]device.Output{{Address: "built-in-mic", Type: device.TypeBuiltinMic}})
	if err != nil {
		return nil, err
	}

	rearStage := stage
	rearGroup, err := volumegroup.New(
		eventbus.GroupRef{ZoneID: 1, ConfigID: 0, GroupID: 1},
		"rear-media",
		volumegroup.KindDeviceGain,
		[]string{"rear-left", "rear-right"},
		map[usagecontext.Context]string{usagecontext.ContextMusic: "rear-left"},
		rearStage,
	)
	if err != nil {
		return nil, err
	}
	rearCfg := zoneconfig.New(1, 0, true, []*volumegroup.Group{rearGroup})
	rearZone, err := audiozone.New(1, "rear-cabin", []*zoneconfig.Config{rearCfg}, nil)
	if err != nil {
		return nil, err
	}

	return []*audiozone.Zone{primaryZone, rearZone}, nil
}

func demoActivationConfigs() map[activation.ZoneConfigKey]activation.Config {
	return map[activation.ZoneConfigKey]activation.Config{
		{ZoneID: audiozone.PrimaryZoneID, ConfigID: 0}: {
			MinPercent: 0.0,
			MaxPercent: 0.8,
			Mask:       activation.InvokeOnBoot | activation.InvokeOnSourceChanged,
		},
	}
}

func runDemoTraffic(svc *service.Service) {
	primary, ok := svc.Arbiters[audiozone.PrimaryZoneID]
	if !ok {
		return
	}
	decision := primary.Request(focus.Request{
		ClientID:      "demo-media-app",
		Context:       usagecontext.ContextMusic,
		Type:          focus.Gain,
		AllowsDelayed: true,
	})
	slog.Info("demo media focus request", "decision", decision)

	svc.Broker.RegisterApprover(func(requestID int, occupant string) bool { return true })
	if _, err := svc.Broker.Request("demo-rear-seat", "seat2", func(id int, status mediabroker.Status) {
		slog.Info("demo media-audio request status", "id", id, "status", status.String())
	}); err != nil {
		slog.Warn("demo media request failed", "err", err)
	}
}
