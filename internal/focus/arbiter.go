package focus

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/carbon-audio/audiopolicy/internal/eventbus"
	"github.com/carbon-audio/audiopolicy/internal/executor"
	"github.com/carbon-audio/audiopolicy/internal/metrics"
)

// Arbiter is the per-zone focus state machine (C5). One Arbiter per
// zone, each with its own mutex, never held across cross-zone calls
// (§5, §9 "per-zone parallelism").
type Arbiter struct {
	mu       sync.Mutex
	zoneID   int
	matrix   *Matrix
	holders  []*Entry
	delayed  *Entry
	bus      *eventbus.Bus
	dispatch *executor.Executor
}

// New constructs an Arbiter for zoneID against the given (shared,
// process-wide) interaction matrix.
func New(zoneID int, matrix *Matrix, bus *eventbus.Bus) *Arbiter {
	a := &Arbiter{
		zoneID:   zoneID,
		matrix:   matrix,
		bus:      bus,
		dispatch: executor.New("focus-zone"),
	}
	a.dispatch.Start()
	return a
}

// Close stops the arbiter's outbound-callback executor.
func (a *Arbiter) Close() { a.dispatch.Stop() }

// ZoneID returns the zone this arbiter arbitrates for.
func (a *Arbiter) ZoneID() int { return a.zoneID }

// Holders returns a snapshot of current holders, in insertion order.
func (a *Arbiter) Holders() []*Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Entry, len(a.holders))
	copy(out, a.holders)
	return out
}

// Request evaluates req against the current holder set per the
// decision algorithm in §4.1.
func (a *Arbiter) Request(req Request) Decision {
	a.mu.Lock()

	if existing := a.findHolderLocked(req.ClientID); existing != nil {
		// Idempotent grant/duplicate-request: re-send current status
		// without altering the holder set (§7 "duplicate focus
		// request", §8 "idempotent grant" law). Parameter drift on a
		// repeat request is accepted as a refresh of intent, not
		// rejected — the client still gets today's status.
		existing.Context = req.Context
		existing.Type = req.Type
		existing.AllowsDelayed = req.AllowsDelayed
		existing.AcceptsDuckEvents = req.AcceptsDuckEvents
		existing.WantsPauseOnDuck = req.WantsPauseOnDuck
		existing.DenyDucking = req.DenyDucking
		existing.Callback = req.Callback
		change := existing.statusChange()
		state := existing.State
		a.mu.Unlock()
		a.notifyAsync(existing, change)
		return decisionForState(state)
	}

	if len(a.holders) == 0 {
		if req.Context == invalidContext {
			decision := a.failOrDelayLocked(req)
			a.mu.Unlock()
			a.recordDecision(decision, req)
			return decision
		}
		entry := newEntry(a.zoneID, req, StateHeld)
		a.holders = append(a.holders, entry)
		a.mu.Unlock()
		a.notifyAsync(entry, ChangeGain)
		a.publishSnapshot()
		a.recordDecision(Granted, req)
		return Granted
	}

	var toLose, toDuck []*Entry
	rejected := false
	for _, h := range a.holders {
		switch a.matrix.Lookup(h.Context, req.Context) {
		case Reject:
			rejected = true
		case Exclusive:
			toLose = append(toLose, h)
		case Concurrent:
			if req.Type.MayDuck() && !h.WantsPauseOnDuck && !h.AcceptsDuckEvents && !req.DenyDucking {
				toDuck = append(toDuck, h)
			} else {
				toLose = append(toLose, h)
			}
		}
		if rejected {
			break
		}
	}

	if rejected {
		decision := a.failOrDelayLocked(req)
		a.mu.Unlock()
		a.recordDecision(decision, req)
		return decision
	}

	for _, h := range toLose {
		h.State = StateTransientLost
		a.removeHolderLocked(h.ClientID)
	}
	for _, h := range toDuck {
		h.State = StateDucked
	}
	entry := newEntry(a.zoneID, req, StateHeld)
	a.holders = append(a.holders, entry)
	a.mu.Unlock()

	for _, h := range toLose {
		a.notifyAsync(h, ChangeLoss)
	}
	for _, h := range toDuck {
		a.notifyAsync(h, ChangeLossTransientCanDuck)
	}
	a.notifyAsync(entry, ChangeGain)
	a.publishSnapshot()
	a.recordDecision(Granted, req)
	return Granted
}

func (a *Arbiter) recordDecision(decision Decision, req Request) {
	zone := strconv.Itoa(a.zoneID)
	ctx := req.Context.String()
	switch decision {
	case Granted:
		metrics.RecordFocusGrant(zone, ctx)
	case Failed:
		metrics.RecordFocusReject(zone, ctx)
	case Delayed:
		metrics.RecordFocusDelay(zone, ctx)
	}
	metrics.SetFocusHolders(zone, len(a.Holders()))
}

// Abandon releases clientID's focus (held, ducked, or delayed) and
// re-evaluates the zone: promotes any ducked holder whose ducking
// interaction no longer exists, then re-attempts the delayed request.
func (a *Arbiter) Abandon(clientID string) {
	a.mu.Lock()

	if a.delayed != nil && a.delayed.ClientID == clientID {
		a.delayed = nil
		a.mu.Unlock()
		return
	}

	removed := a.removeHolderLocked(clientID)
	if removed == nil {
		a.mu.Unlock()
		return
	}

	promoted := a.promoteDuckedLocked()
	grantedDelayed := a.reattemptDelayedLocked()
	a.mu.Unlock()

	for _, p := range promoted {
		a.notifyAsync(p, ChangeGain)
	}
	if grantedDelayed != nil {
		a.notifyAsync(grantedDelayed, ChangeGain)
	}
	if len(promoted) > 0 || grantedDelayed != nil || removed != nil {
		a.publishSnapshot()
	}
}

// failOrDelayLocked must be called with a.mu held. It enqueues req as
// the (sole) delayed request, failing any previous one, or returns
// Failed.
func (a *Arbiter) failOrDelayLocked(req Request) Decision {
	if !req.AllowsDelayed {
		return Failed
	}
	if a.delayed != nil {
		a.notifyAsync(a.delayed, ChangeFailed)
	}
	entry := newEntry(a.zoneID, req, StateDelayed)
	a.delayed = entry
	a.notifyAsync(entry, ChangeDelayed)
	return Delayed
}

func (a *Arbiter) reattemptDelayedLocked() *Entry {
	if a.delayed == nil {
		return nil
	}
	d := a.delayed
	req := Request{
		ClientID:          d.ClientID,
		Context:           d.Context,
		Type:              d.Type,
		AllowsDelayed:     d.AllowsDelayed,
		AcceptsDuckEvents: d.AcceptsDuckEvents,
		WantsPauseOnDuck:  d.WantsPauseOnDuck,
		DenyDucking:       d.DenyDucking,
		Callback:          d.Callback,
	}

	if len(a.holders) == 0 {
		if req.Context == invalidContext {
			return nil
		}
		d.State = StateHeld
		a.holders = append(a.holders, d)
		a.delayed = nil
		return d
	}

	var toLose, toDuck []*Entry
	for _, h := range a.holders {
		switch a.matrix.Lookup(h.Context, req.Context) {
		case Reject:
			return nil
		case Exclusive:
			toLose = append(toLose, h)
		case Concurrent:
			if req.Type.MayDuck() && !h.WantsPauseOnDuck && !h.AcceptsDuckEvents && !req.DenyDucking {
				toDuck = append(toDuck, h)
			} else {
				toLose = append(toLose, h)
			}
		}
	}

	for _, h := range toLose {
		h.State = StateTransientLost
		a.removeHolderLocked(h.ClientID)
		a.notifyAsync(h, ChangeLoss)
	}
	for _, h := range toDuck {
		h.State = StateDucked
		a.notifyAsync(h, ChangeLossTransientCanDuck)
	}
	d.State = StateHeld
	a.holders = append(a.holders, d)
	a.delayed = nil
	return d
}

// promoteDuckedLocked promotes ducked holders that no longer interact
// with any remaining holder.
func (a *Arbiter) promoteDuckedLocked() []*Entry {
	var promoted []*Entry
	for _, d := range a.holders {
		if d.State != StateDucked {
			continue
		}
		stillDucked := false
		for _, x := range a.holders {
			if x == d {
				continue
			}
			if a.matrix.Lookup(d.Context, x.Context) == Concurrent &&
				x.Type.MayDuck() && !d.WantsPauseOnDuck && !d.AcceptsDuckEvents && !x.DenyDucking {
				stillDucked = true
				break
			}
		}
		if !stillDucked {
			d.State = StateHeld
			promoted = append(promoted, d)
		}
	}
	return promoted
}

func (a *Arbiter) findHolderLocked(clientID string) *Entry {
	for _, h := range a.holders {
		if h.ClientID == clientID {
			return h
		}
	}
	return nil
}

func (a *Arbiter) removeHolderLocked(clientID string) *Entry {
	for i, h := range a.holders {
		if h.ClientID == clientID {
			a.holders = append(a.holders[:i], a.holders[i+1:]...)
			return h
		}
	}
	return nil
}

// notifyAsync dispatches a client callback on the zone's serialized
// executor so per-zone notification order is preserved without holding
// the arbiter's lock across the call (§5 suspension points). A
// callback failure is logged and treated as an implicit abandon
// (§7 "client callback failure").
func (a *Arbiter) notifyAsync(e *Entry, change Change) {
	a.dispatch.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("focus: client callback panicked, abandoning", "zone", a.zoneID, "client", e.ClientID, "recover", r)
				a.Abandon(e.ClientID)
			}
		}()
		e.notify(change)
	})
}

func (a *Arbiter) publishSnapshot() {
	if a.bus == nil {
		return
	}
	holders := a.Holders()
	snap := make([]eventbus.HolderSnapshot, 0, len(holders))
	for _, h := range holders {
		snap = append(snap, eventbus.HolderSnapshot{
			ClientID: h.ClientID,
			Context:  h.Context,
			Ducked:   h.State == StateDucked,
		})
	}
	a.bus.PublishFocusChange(eventbus.FocusChangeEvent{ZoneID: a.zoneID, Holders: snap})
}

func decisionForState(s State) Decision {
	switch s {
	case StateDelayed:
		return Delayed
	default:
		return Granted
	}
}
