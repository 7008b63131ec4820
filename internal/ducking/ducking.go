// Package ducking implements the ducking engine (C7): a passive
// subscriber to per-zone focus-holder snapshots that derives a
// device-address duck/unduck delta. It never calls back into the
// focus arbiter (§9 "cyclic observation" — breaking the observation
// cycle by keeping this engine purely reactive).
package ducking

import (
	"strconv"
	"sync"

	"github.com/carbon-audio/audiopolicy/internal/eventbus"
	"github.com/carbon-audio/audiopolicy/internal/metrics"
	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
)

// GroupBinding is the subset of a zone's volume-group layout the
// ducking engine needs: which addresses a group owns and which
// contexts it serves.
type GroupBinding struct {
	Addresses []string
	Contexts  []usagecontext.Context
}

// Info is the outbound per-zone ducking computation (§6 DuckingInfo).
// AddressesToDuck/Unduck are deltas against the previous computation,
// not full state — §8 invariant 6 (duck ∩ unduck = ∅, and the
// symmetric difference of previous and current duck sets equals their
// union) only holds for a delta representation.
type Info struct {
	ZoneID              int
	AddressesToDuck     []string
	AddressesToUnduck   []string
	UsagesHoldingFocus  []usagecontext.Usage
	ClientsHoldingFocus []string
}

// Listener receives ducking computations (the HAL boundary, §6).
type Listener func(Info)

// Engine computes duck/unduck deltas from focus-holder snapshots.
// One mutex over the per-zone previous-duck map (§5); it is a leaf
// lock and may be taken while holding any other aggregate's lock.
type Engine struct {
	mu       sync.Mutex
	bindings map[int][]GroupBinding
	previous map[int]map[string]bool
	ctxMap   *usagecontext.Map
	listener Listener
	regs     []eventbus.Registration
}

// New constructs a ducking Engine. bindings describes, per zone, the
// addresses and served contexts of every volume group in that zone's
// currently-effective configuration.
func New(bindings map[int][]GroupBinding, ctxMap *usagecontext.Map, listener Listener) *Engine {
	return &Engine{
		bindings: bindings,
		previous: make(map[int]map[string]bool),
		ctxMap:   ctxMap,
		listener: listener,
	}
}

// Subscribe registers the engine against bus for every zone it has
// bindings for.
func (e *Engine) Subscribe(bus *eventbus.Bus) {
	for zoneID := range e.bindings {
		zoneID := zoneID
		reg := bus.RegisterFocus(zoneID, func(ev eventbus.FocusChangeEvent) {
			e.onFocusChange(ev)
		})
		e.regs = append(e.regs, reg)
	}
}

// Unsubscribe tears down the engine's bus registrations.
func (e *Engine) Unsubscribe(bus *eventbus.Bus) {
	for _, r := range e.regs {
		bus.Unregister(r)
	}
	e.regs = nil
}

func (e *Engine) onFocusChange(ev eventbus.FocusChangeEvent) {
	info := e.compute(ev.ZoneID, ev.Holders)
	if e.listener != nil {
		e.listener(info)
	}
}

// compute derives the duck/unduck delta for one zone update (§4.4).
func (e *Engine) compute(zoneID int, holders []eventbus.HolderSnapshot) Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	activeContexts := make(map[usagecontext.Context]bool, len(holders))
	clients := make([]string, 0, len(holders))
	usageSet := make(map[usagecontext.Usage]bool)
	for _, h := range holders {
		activeContexts[h.Context] = true
		clients = append(clients, h.ClientID)
		for _, u := range e.ctxMap.UsagesFor(h.Context) {
			usageSet[u] = true
		}
	}
	usages := make([]usagecontext.Usage, 0, len(usageSet))
	for u := range usageSet {
		usages = append(usages, u)
	}

	newDuck := make(map[string]bool)
	if len(activeContexts) > 0 {
		for _, binding := range e.bindings[zoneID] {
			if servesAny(binding.Contexts, activeContexts) {
				continue
			}
			for _, addr := range binding.Addresses {
				newDuck[addr] = true
			}
		}
	}

	prev := e.previous[zoneID]
	var toDuck, toUnduck []string
	for addr := range newDuck {
		if !prev[addr] {
			toDuck = append(toDuck, addr)
		}
	}
	for addr := range prev {
		if !newDuck[addr] {
			toUnduck = append(toUnduck, addr)
		}
	}
	e.previous[zoneID] = newDuck

	zoneLabel := strconv.Itoa(zoneID)
	metrics.RecordDuckTransitions(zoneLabel, len(toDuck))
	metrics.RecordUnduckTransitions(zoneLabel, len(toUnduck))

	return Info{
		ZoneID:              zoneID,
		AddressesToDuck:     toDuck,
		AddressesToUnduck:   toUnduck,
		UsagesHoldingFocus:  usages,
		ClientsHoldingFocus: clients,
	}
}

func servesAny(contexts []usagecontext.Context, active map[usagecontext.Context]bool) bool {
	for _, c := range contexts {
		if active[c] {
			return true
		}
	}
	return false
}
