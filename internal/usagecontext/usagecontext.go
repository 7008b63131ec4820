// Package usagecontext provides the audio-context map (C1): the fixed
// partition of platform usages into arbitration/volume-group contexts.
// It is the domain vocabulary every other component builds on, so it
// carries no mutable state and no locking.
package usagecontext

// Usage is the purpose tag on a playback stream, as declared by a client.
type Usage int

const (
	UsageInvalid Usage = iota
	UsageMedia
	UsageNavigation
	UsageVoiceCommunication
	UsageRingtone
	UsageAlarm
	UsageNotification
	UsageEmergency
	UsageSafety
	UsageVehicleStatus
	UsageAnnouncement
	UsageVoiceCommand
	UsageSystemSound
)

func (u Usage) String() string {
	switch u {
	case UsageMedia:
		return "media"
	case UsageNavigation:
		return "navigation"
	case UsageVoiceCommunication:
		return "voice_communication"
	case UsageRingtone:
		return "ringtone"
	case UsageAlarm:
		return "alarm"
	case UsageNotification:
		return "notification"
	case UsageEmergency:
		return "emergency"
	case UsageSafety:
		return "safety"
	case UsageVehicleStatus:
		return "vehicle_status"
	case UsageAnnouncement:
		return "announcement"
	case UsageVoiceCommand:
		return "voice_command"
	case UsageSystemSound:
		return "system_sound"
	default:
		return "invalid"
	}
}

// Context is an integer identifier grouping one or more usages. It is
// the unit of focus arbitration and volume-group assignment. Contexts
// are fixed at startup and partition the usage space.
type Context int

const (
	ContextInvalid Context = iota
	ContextMusic
	ContextNavigation
	ContextCall
	ContextCallRing
	ContextAlarm
	ContextNotification
	ContextSystem
	ContextEmergency
	ContextSafety
	ContextVehicleStatus
	ContextAnnouncement
	ContextVoiceCommand
)

func (c Context) String() string {
	switch c {
	case ContextMusic:
		return "music"
	case ContextNavigation:
		return "navigation"
	case ContextCall:
		return "call"
	case ContextCallRing:
		return "call_ring"
	case ContextAlarm:
		return "alarm"
	case ContextNotification:
		return "notification"
	case ContextSystem:
		return "system"
	case ContextEmergency:
		return "emergency"
	case ContextSafety:
		return "safety"
	case ContextVehicleStatus:
		return "vehicle_status"
	case ContextAnnouncement:
		return "announcement"
	case ContextVoiceCommand:
		return "voice_command"
	default:
		return "invalid"
	}
}

// AllContexts enumerates every context in the fixed partition, in the
// order the interaction matrix indexes them. Keep in sync with the
// matrix dimension in the focus package.
var AllContexts = []Context{
	ContextInvalid,
	ContextMusic,
	ContextNavigation,
	ContextCall,
	ContextCallRing,
	ContextAlarm,
	ContextNotification,
	ContextSystem,
	ContextEmergency,
	ContextSafety,
	ContextVehicleStatus,
	ContextAnnouncement,
	ContextVoiceCommand,
}

// Map is the fixed usage→context partition. It is built once at init
// and never reshaped; all lookups are read-only.
type Map struct {
	byUsage map[Usage]Context
}

// DefaultMap returns the standard usage→context partition used by the
// platform. A deployment may substitute its own via NewMap if its
// usage taxonomy differs. DefaultMap binds every Usage value to exactly
// one Context; NewMap does not check that its assignment is total, and
// ContextFor reports false for an unbound usage.
func DefaultMap() *Map {
	return NewMap(map[Usage]Context{
		UsageMedia:              ContextMusic,
		UsageAnnouncement:       ContextAnnouncement,
		UsageVoiceCommunication: ContextCall,
		UsageRingtone:           ContextCallRing,
		UsageAlarm:              ContextAlarm,
		UsageNotification:       ContextNotification,
		UsageSystemSound:        ContextSystem,
		UsageEmergency:          ContextEmergency,
		UsageSafety:             ContextSafety,
		UsageVehicleStatus:      ContextVehicleStatus,
		UsageNavigation:         ContextNavigation,
		UsageVoiceCommand:       ContextVoiceCommand,
		UsageInvalid:            ContextInvalid,
	})
}

// NewMap constructs a Map from an explicit usage→context assignment.
func NewMap(assignment map[Usage]Context) *Map {
	cp := make(map[Usage]Context, len(assignment))
	for u, c := range assignment {
		cp[u] = c
	}
	return &Map{byUsage: cp}
}

// ContextFor returns the context for usage, and ContextInvalid, false
// if usage has no binding in this map.
func (m *Map) ContextFor(usage Usage) (Context, bool) {
	c, ok := m.byUsage[usage]
	return c, ok
}

// UsagesFor returns every usage bound to ctx (the reverse of
// ContextFor — several usages may share one context).
func (m *Map) UsagesFor(ctx Context) []Usage {
	var out []Usage
	for u, c := range m.byUsage {
		if c == ctx {
			out = append(out, u)
		}
	}
	return out
}
