// Package halfocus implements the HAL-facing half of the focus
// arbiter's external interface (§6): the HAL's own
// requestAudioFocus/abandonAudioFocus calls, and the outbound
// onAudioFocusChange notification, wrapped in a per-zone circuit
// breaker (§4.1a) so a flaky HAL listener doesn't get hammered with
// repeat dispatch attempts.
package halfocus

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/carbon-audio/audiopolicy/internal/focus"
	"github.com/carbon-audio/audiopolicy/internal/usagecontext"
)

// Listener is the outbound HAL boundary for focus-change notifications.
type Listener interface {
	OnAudioFocusChange(usage usagecontext.Usage, zoneID int, change focus.Change)
}

// Bridge adapts the HAL's usage-based focus protocol onto the
// context-based per-zone Arbiter set.
type Bridge struct {
	mu       sync.Mutex
	arbiters map[int]*focus.Arbiter
	ctxMap   *usagecontext.Map
	listener Listener
	breakers map[int]*gobreaker.CircuitBreaker[struct{}]
}

// New constructs a Bridge over the given per-zone arbiters.
func New(arbiters map[int]*focus.Arbiter, ctxMap *usagecontext.Map, listener Listener) *Bridge {
	return &Bridge{
		arbiters: arbiters,
		ctxMap:   ctxMap,
		listener: listener,
		breakers: make(map[int]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func halClientID(zoneID int, usage usagecontext.Usage) string {
	return fmt.Sprintf("hal:%d:%s", zoneID, usage)
}

// RequestAudioFocus is the HAL requesting focus on its own behalf
// (§6). A second call for the same (zone, usage) without an
// intervening abandon is idempotent — the arbiter's duplicate-request
// handling re-notifies the current status rather than re-arbitrating.
func (b *Bridge) RequestAudioFocus(usage usagecontext.Usage, zoneID int, gain focus.RequestType) focus.Decision {
	a, ok := b.arbiters[zoneID]
	if !ok {
		slog.Error("halfocus: request for unknown zone", "zone", zoneID)
		return focus.Failed
	}
	ctx, ok := b.ctxMap.ContextFor(usage)
	if !ok {
		ctx = usagecontext.ContextInvalid
	}
	return a.Request(focus.Request{
		ClientID: halClientID(zoneID, usage),
		Context:  ctx,
		Type:     gain,
		Callback: func(change focus.Change) {
			b.dispatch(zoneID, usage, change)
		},
	})
}

// AbandonAudioFocus releases a focus grant the HAL requested for
// itself.
func (b *Bridge) AbandonAudioFocus(usage usagecontext.Usage, zoneID int) {
	a, ok := b.arbiters[zoneID]
	if !ok {
		slog.Error("halfocus: abandon for unknown zone", "zone", zoneID)
		return
	}
	a.Abandon(halClientID(zoneID, usage))
}

func (b *Bridge) breakerFor(zoneID int) *gobreaker.CircuitBreaker[struct{}] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[zoneID]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        fmt.Sprintf("hal-focus-zone-%d", zoneID),
		MaxRequests: 1,
		Interval:    0,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	b.breakers[zoneID] = cb
	return cb
}

// dispatch delivers one onAudioFocusChange call through the zone's
// circuit breaker. A failing listener trips the breaker; while open,
// dispatch is skipped and logged rather than retried (§7 "transient
// HAL fault").
func (b *Bridge) dispatch(zoneID int, usage usagecontext.Usage, change focus.Change) {
	if b.listener == nil {
		return
	}
	cb := b.breakerFor(zoneID)
	_, err := cb.Execute(func() (struct{}, error) {
		return struct{}{}, callListener(b.listener, usage, zoneID, change)
	})
	if err != nil {
		slog.Warn("halfocus: onAudioFocusChange dispatch failed", "zone", zoneID, "usage", usage.String(), "err", err)
	}
}

func callListener(l Listener, usage usagecontext.Usage, zoneID int, change focus.Change) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	l.OnAudioFocusChange(usage, zoneID, change)
	return nil
}
