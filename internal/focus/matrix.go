package focus

import (
	"sync"

	"github.com/carbon-audio/audiopolicy/internal/apperr"
	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
)

const invalidContext = usagecontext.ContextInvalid

// Cell is a tri-valued interaction-matrix outcome.
type Cell int

const (
	Reject Cell = iota
	Exclusive
	Concurrent
)

// Matrix is the fixed interaction table (§4, §9): a square array of
// tagged values indexed by (holder_context, requester_context). It is
// built once at construction; only the CALL×NAV cell is runtime
// mutable (the user-toggleable "reject nav while on call" setting).
type Matrix struct {
	index map[usagecontext.Context]int
	cells [][]Cell

	// mu guards only the one runtime-mutable cell; every other cell is
	// written once at construction and read without locking thereafter.
	mu sync.RWMutex
}

// DefaultInteractionMatrix builds the platform's standard interaction
// table. rejectNavOnCall sets the initial value of the one mutable
// cell.
func DefaultInteractionMatrix(rejectNavOnCall bool) *Matrix {
	contexts := usagecontext.AllContexts
	n := len(contexts)
	index := make(map[usagecontext.Context]int, n)
	for i, c := range contexts {
		index[c] = i
	}

	cells := make([][]Cell, n)
	for i := range cells {
		cells[i] = make([]Cell, n)
		for j := range cells[i] {
			cells[i][j] = Concurrent
		}
	}

	// Invalid never holds or is requested meaningfully; treat any
	// interaction touching it as REJECT. On an empty zone the arbiter
	// fails (or delays) an invalid-context request directly rather than
	// consulting this row.
	invalidIdx := index[usagecontext.ContextInvalid]
	for j := range cells[invalidIdx] {
		cells[invalidIdx][j] = Reject
	}
	for i := range cells {
		cells[i][invalidIdx] = Reject
	}

	set := func(holder, requester usagecontext.Context, v Cell) {
		cells[index[holder]][index[requester]] = v
	}

	// Emergency excludes every other valid holder; an emergency holder's
	// row keeps the CONCURRENT default. Safety has no special cells.
	for _, c := range contexts {
		if c == usagecontext.ContextEmergency || c == usagecontext.ContextInvalid {
			continue
		}
		set(c, usagecontext.ContextEmergency, Exclusive)
	}
	set(usagecontext.ContextEmergency, usagecontext.ContextEmergency, Concurrent)

	// A call rejects every requester except safety and vehicle-status,
	// which stay CONCURRENT, emergency, which evicts the call (set
	// above), and navigation, which follows rejectNavOnCall.
	for _, c := range contexts {
		switch c {
		case usagecontext.ContextEmergency, usagecontext.ContextSafety,
			usagecontext.ContextVehicleStatus, usagecontext.ContextCall,
			usagecontext.ContextInvalid:
			continue
		case usagecontext.ContextNavigation:
			if rejectNavOnCall {
				set(usagecontext.ContextCall, c, Reject)
			} else {
				set(usagecontext.ContextCall, c, Concurrent)
			}
		default:
			set(usagecontext.ContextCall, c, Reject)
		}
	}
	set(usagecontext.ContextCall, usagecontext.ContextCall, Concurrent)

	// Music loses exclusively to alarm, call-ring, voice-command and
	// system; navigation, announcement and notification stay CONCURRENT
	// with a music holder (whether music is ducked or loses is decided by
	// the duck predicate at request time, not the matrix).
	for _, c := range []usagecontext.Context{
		usagecontext.ContextAlarm, usagecontext.ContextCallRing,
		usagecontext.ContextVoiceCommand, usagecontext.ContextSystem,
	} {
		set(usagecontext.ContextMusic, c, Exclusive)
	}
	set(usagecontext.ContextMusic, usagecontext.ContextNavigation, Concurrent)
	set(usagecontext.ContextMusic, usagecontext.ContextAnnouncement, Concurrent)
	set(usagecontext.ContextMusic, usagecontext.ContextNotification, Concurrent)

	// Every cell not set above, including those among alarm,
	// notification, system and announcement, keeps the CONCURRENT
	// default.

	return &Matrix{index: index, cells: cells}
}

// Lookup returns M[holder][requester]. An unknown context is a
// programmer error: the partition in usagecontext is meant to be
// total, so a miss here means a caller constructed a Context value
// outside usagecontext.AllContexts (§7 "interaction-matrix lookup
// miss... Fatal; abort process").
func (m *Matrix) Lookup(holder, requester usagecontext.Context) Cell {
	hi, ok := m.index[holder]
	if !ok {
		panic(apperr.New(apperr.Invariant, "interaction matrix lookup for unknown holder context"))
	}
	ri, ok := m.index[requester]
	if !ok {
		panic(apperr.New(apperr.Invariant, "interaction matrix lookup for unknown requester context"))
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cells[hi][ri]
}

// SetCallNavReject sets the one user-toggleable cell: whether an
// in-progress call rejects a concurrent navigation-guidance request.
func (m *Matrix) SetCallNavReject(reject bool) {
	v := Concurrent
	if reject {
		v = Reject
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[m.index[usagecontext.ContextCall]][m.index[usagecontext.ContextNavigation]] = v
}
