package usagecontext

import "testing"

func TestDefaultMapCoversEveryNonSystemUsage(t *testing.T) {
	m := DefaultMap()
	cases := map[Usage]Context{
		UsageMedia:              ContextMusic,
		UsageVoiceCommunication: ContextCall,
		UsageRingtone:           ContextCallRing,
		UsageAlarm:              ContextAlarm,
		UsageNotification:       ContextNotification,
		UsageNavigation:         ContextNavigation,
		UsageVoiceCommand:       ContextVoiceCommand,
		UsageEmergency:          ContextEmergency,
		UsageSafety:             ContextSafety,
		UsageVehicleStatus:      ContextVehicleStatus,
		UsageAnnouncement:       ContextAnnouncement,
	}
	for usage, want := range cases {
		got, ok := m.ContextFor(usage)
		if !ok {
			t.Fatalf("expected a context for usage %v", usage)
		}
		if got != want {
			t.Fatalf("usage %v: got context %v, want %v", usage, got, want)
		}
	}
}

func TestUsagesForRoundTrips(t *testing.T) {
	m := DefaultMap()
	usages := m.UsagesFor(ContextMusic)
	found := false
	for _, u := range usages {
		if u == UsageMedia {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected UsageMedia among usages for ContextMusic, got %v", usages)
	}
}

func TestContextStringCoversAllContexts(t *testing.T) {
	for _, c := range AllContexts {
		if c == ContextInvalid {
			continue
		}
		if c.String() == "invalid" {
			t.Fatalf("context %d has no String() mapping", c)
		}
	}
}

func TestUsageStringCoversKnownUsages(t *testing.T) {
	if UsageMedia.String() != "media" {
		t.Fatalf("got %q", UsageMedia.String())
	}
	if Usage(9999).String() != "invalid" {
		t.Fatalf("expected unknown usage to stringify as invalid")
	}
}
