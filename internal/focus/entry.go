package focus

import "github.com/carbon-audio/audiopolicy/internal/usagecontext"

// RequestType is the gain-request shape a client asks for.
type RequestType int

const (
	Gain RequestType = iota
	Transient
	TransientMayDuck
	TransientExclusive
)

// MayDuck reports whether this request type permits the arbiter to
// duck rather than evict a CONCURRENT holder.
func (t RequestType) MayDuck() bool { return t == TransientMayDuck }

// State is a focus entry's place in its per-entry state machine.
type State int

const (
	StateHeld State = iota
	StateDucked
	StateTransientLost
	StateDelayed
)

func (s State) String() string {
	switch s {
	case StateHeld:
		return "held"
	case StateDucked:
		return "ducked"
	case StateTransientLost:
		return "transient_lost"
	case StateDelayed:
		return "delayed"
	default:
		return "unknown"
	}
}

// Change is an outbound focus-change notification delivered to a
// client callback or the HAL (§6 onAudioFocusChange).
type Change int

const (
	ChangeGain Change = iota
	ChangeLoss
	ChangeLossTransient
	ChangeLossTransientCanDuck
	ChangeFailed
	ChangeDelayed
)

// Decision is the outcome of a Request call.
type Decision int

const (
	Granted Decision = iota
	Failed
	Delayed
)

// Callback is a focus client's notification sink. A callback failure
// is treated as an implicit abandon (§7 "client callback failure").
type Callback func(Change)

// Request is an incoming focus-request.
type Request struct {
	ClientID          string
	Context           usagecontext.Context
	Type              RequestType
	AllowsDelayed     bool
	AcceptsDuckEvents bool
	WantsPauseOnDuck  bool
	// DenyDucking forces eviction instead of ducking even when Type
	// would otherwise allow a CONCURRENT holder to be ducked (§4.1
	// step 2's "allow_ducking_denied_by_r" qualifier).
	DenyDucking bool
	Callback    Callback
}

// Entry is a live focus holder or delayed request, exclusively owned
// by the arbiter of its zone.
type Entry struct {
	ClientID          string
	ZoneID            int
	Context           usagecontext.Context
	Type              RequestType
	AllowsDelayed     bool
	AcceptsDuckEvents bool
	WantsPauseOnDuck  bool
	DenyDucking       bool
	Callback          Callback
	State             State
}

func newEntry(zoneID int, req Request, state State) *Entry {
	return &Entry{
		ClientID:          req.ClientID,
		ZoneID:            zoneID,
		Context:           req.Context,
		Type:              req.Type,
		AllowsDelayed:     req.AllowsDelayed,
		AcceptsDuckEvents: req.AcceptsDuckEvents,
		WantsPauseOnDuck:  req.WantsPauseOnDuck,
		DenyDucking:       req.DenyDucking,
		Callback:          req.Callback,
		State:             state,
	}
}

func (e *Entry) notify(change Change) {
	if e.Callback != nil {
		e.Callback(change)
	}
}

func (e *Entry) statusChange() Change {
	switch e.State {
	case StateHeld:
		return ChangeGain
	case StateDucked:
		return ChangeLossTransientCanDuck
	case StateTransientLost:
		return ChangeLossTransient
	default:
		return ChangeDelayed
	}
}
