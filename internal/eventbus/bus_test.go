package eventbus

import (
	"testing"
	"time"
)

func TestPublishVolumeGroupEventDeliversRichAndLegacy(t *testing.T) {
	b := New()
	defer b.Close()

	ref := GroupRef{ZoneID: 0, ConfigID: 0, GroupID: 1}
	richCh := make(chan VolumeGroupEvent, 1)
	legacyCh := make(chan LegacyEvent, 2)

	b.RegisterRich(func(ev VolumeGroupEvent) { richCh <- ev })
	b.RegisterLegacy(func(ev LegacyEvent) { legacyCh <- ev })

	b.PublishVolumeGroupEvent(VolumeGroupEvent{
		Group: ref,
		Flags: FlagIndexChanged | FlagMuteChanged,
	})

	select {
	case ev := <-richCh:
		if ev.Group != ref || !ev.Flags.Has(FlagIndexChanged) {
			t.Fatalf("unexpected rich event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("rich event never delivered")
	}

	seen := map[LegacyKind]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-legacyCh:
			seen[ev.Kind] = true
		case <-time.After(time.Second):
			t.Fatalf("expected 2 legacy events, got %d", i)
		}
	}
	if !seen[LegacyVolumeChanged] || !seen[LegacyMuteChanged] {
		t.Fatalf("expected volume-changed and mute-changed legacy events, got %v", seen)
	}
}

func TestMasterMuteAddsExtraLegacyEvent(t *testing.T) {
	b := New()
	defer b.Close()

	legacyCh := make(chan LegacyEvent, 3)
	b.RegisterLegacy(func(ev LegacyEvent) { legacyCh <- ev })

	b.PublishVolumeGroupEvent(VolumeGroupEvent{
		Group: GroupRef{ZoneID: 0, ConfigID: 0, GroupID: 0},
		Flags: FlagMuteChanged,
	})

	seen := map[LegacyKind]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-legacyCh:
			seen[ev.Kind] = true
		case <-time.After(time.Second):
			t.Fatalf("expected 2 legacy events for group 0 mute change, got %d", i)
		}
	}
	if !seen[LegacyMuteChanged] || !seen[LegacyMasterMuteChanged] {
		t.Fatalf("expected mute-changed and master-mute-changed, got %v", seen)
	}
}

func TestRegisterBothOnlyInvokesRich(t *testing.T) {
	b := New()
	defer b.Close()

	calls := make(chan struct{}, 4)
	b.RegisterBoth(func(ev VolumeGroupEvent) { calls <- struct{}{} })

	b.PublishVolumeGroupEvent(VolumeGroupEvent{
		Group: GroupRef{ZoneID: 0, ConfigID: 0, GroupID: 1},
		Flags: FlagIndexChanged,
	})

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatalf("expected one rich delivery")
	}
	select {
	case <-calls:
		t.Fatalf("RegisterBoth must not also deliver on the legacy channel")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	b := New()
	defer b.Close()

	calls := make(chan struct{}, 1)
	reg := b.RegisterRich(func(ev VolumeGroupEvent) { calls <- struct{}{} })
	b.Unregister(reg)

	b.PublishVolumeGroupEvent(VolumeGroupEvent{Group: GroupRef{ZoneID: 0, ConfigID: 0, GroupID: 1}, Flags: FlagIndexChanged})

	select {
	case <-calls:
		t.Fatalf("expected no delivery after Unregister")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestFocusChangeDeliveredToRegisteredZoneOnly(t *testing.T) {
	b := New()
	defer b.Close()

	zone0 := make(chan FocusChangeEvent, 1)
	zone1 := make(chan FocusChangeEvent, 1)
	b.RegisterFocus(0, func(ev FocusChangeEvent) { zone0 <- ev })
	b.RegisterFocus(1, func(ev FocusChangeEvent) { zone1 <- ev })

	b.PublishFocusChange(FocusChangeEvent{ZoneID: 0, Holders: []HolderSnapshot{{ClientID: "a"}}})

	select {
	case <-zone0:
	case <-time.After(time.Second):
		t.Fatalf("zone 0 listener never received event")
	}
	select {
	case <-zone1:
		t.Fatalf("zone 1 listener should not receive zone 0's event")
	case <-time.After(100 * time.Millisecond):
	}
}
