package topology

import (
	"strings"
	"testing"

	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
)

const fixtureYAML = `
zones:
  - id: 0
    name: front-cabin
    input_devices:
      - mic0
    configs:
      - id: 0
        is_default: true
        groups:
          - id: 1
            name: primary-media
            kind: device_gain
            addresses: [addr0, addr1]
            contexts:
              music: addr0
            stage:
              min_mb: -6000
              max_mb: 0
              default_mb: -3000
              step_mb: 100
  - id: 1
    name: rear-cabin
    configs:
      - id: 0
        is_default: true
        groups:
          - id: 1
            name: rear-media
            kind: device_gain
            addresses: [addr2]
            contexts:
              music: addr2
            stage:
              min_mb: -6000
              max_mb: 0
              default_mb: -3000
              step_mb: 100
`

func TestLoadBuildsZonesAndGroups(t *testing.T) {
	zones, err := Load(strings.NewReader(fixtureYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(zones))
	}
	primary := zones[0]
	if primary.Name != "front-cabin" {
		t.Fatalf("unexpected primary zone name %q", primary.Name)
	}
	configs := primary.Configs()
	if len(configs) != 1 || len(configs[0].Groups()) != 1 {
		t.Fatalf("expected one config with one group, got %+v", configs)
	}
	g := configs[0].Groups()[0]
	if addr, ok := g.AddressForContext(usagecontext.ContextMusic); !ok || addr != "addr0" {
		t.Fatalf("expected music bound to addr0, got %q (ok=%v)", addr, ok)
	}
}

func TestLoadRejectsUnknownContext(t *testing.T) {
	bad := strings.Replace(fixtureYAML, "music: addr0", "made_up_context: addr0", 1)
	if _, err := Load(strings.NewReader(bad)); err == nil {
		t.Fatalf("expected error for unknown context name")
	}
}

func TestLoadRejectsPrimaryZoneWithoutInputDevice(t *testing.T) {
	bad := strings.Replace(fixtureYAML, "    input_devices:\n      - mic0\n", "", 1)
	if _, err := Load(strings.NewReader(bad)); err == nil {
		t.Fatalf("expected error: primary zone requires an input device")
	}
}
