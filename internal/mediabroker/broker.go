// Package mediabroker implements the media-audio request broker (C9):
// cross-zone request/approve/reject/cancel/stop protocol for routing a
// non-primary occupant's media output onto the primary zone's media
// devices.
package mediabroker

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/carbon-audio/audiopolicy/internal/apperr"
	"github.com/carbon-audio/audiopolicy/internal/metrics"
)

// Status is a request's lifecycle state (§4.6: REQUESTED →
// (APPROVED|REJECTED|CANCELLED); APPROVED → (STOPPED|CANCELLED)).
type Status int

const (
	StatusRequested Status = iota
	StatusApproved
	StatusRejected
	StatusCancelled
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusRequested:
		return "requested"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// maxRequestID is the configured maximum request id (§9 "Request-id
// reuse"); the counter wraps to zero once it passes this value.
const maxRequestID = 1<<16 - 1

// ClientCallback notifies the requesting client of a status change.
type ClientCallback func(requestID int, status Status)

// ApproverCallback is broadcast one pending request; it returns true if
// this approver accepts it. Only the first accepting approver wins.
type ApproverCallback func(requestID int, occupant string) bool

// Approver is the registration handle returned when an approver
// callback is registered, used later to unregister it. It is a uuid
// value (§4.6a) — unrelated to the small reused numeric request ids.
type Approver = uuid.UUID

type request struct {
	id       int
	occupant string
	clientCB ClientCallback
	status   Status
}

// Broker tracks in-flight media-audio requests. One mutex over all
// broker state (§5).
type Broker struct {
	mu sync.Mutex

	nextCounter int
	live        map[int]*request
	byClient    map[string]int // client identity -> live request id, enforcing at-most-one-outstanding
	byOccupant  map[string]int // "zone:occupant" -> live approved request id

	approvers map[Approver]ApproverCallback
}

// New constructs an empty Broker.
func New() *Broker {
	return &Broker{
		live:       make(map[int]*request),
		byClient:   make(map[string]int),
		byOccupant: make(map[string]int),
		approvers:  make(map[Approver]ApproverCallback),
	}
}

// RegisterApprover registers a callback broadcast every new request,
// returning a handle used to unregister it later.
func (b *Broker) RegisterApprover(cb ApproverCallback) Approver {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := uuid.New()
	b.approvers[h] = cb
	return h
}

// UnregisterApprover removes a previously-registered approver callback.
func (b *Broker) UnregisterApprover(h Approver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.approvers, h)
}

// Request files a new media-audio request for occupant (identified as
// "zone:seat" or any caller-chosen stable string), returning its id. At
// most one outstanding request per clientKey (§4.6) — a second request
// from the same client is rejected outright rather than queued.
func (b *Broker) Request(clientKey string, occupant string, clientCB ClientCallback) (int, error) {
	b.mu.Lock()
	if _, exists := b.byClient[clientKey]; exists {
		b.mu.Unlock()
		return 0, apperr.New(apperr.DuplicateFocusRequest, "client already has an outstanding media-audio request").WithZone(0)
	}

	id := b.allocateIDLocked()
	req := &request{id: id, occupant: occupant, clientCB: clientCB, status: StatusRequested}
	b.live[id] = req
	b.byClient[clientKey] = id

	approvers := make([]ApproverCallback, 0, len(b.approvers))
	for _, cb := range b.approvers {
		approvers = append(approvers, cb)
	}
	b.mu.Unlock()

	if len(approvers) == 0 {
		b.autoReject(id)
		return id, nil
	}

	accepted := false
	for _, cb := range approvers {
		if cb(id, occupant) {
			accepted = true
			break
		}
	}
	if !accepted {
		b.autoReject(id)
	}
	return id, nil
}

func (b *Broker) allocateIDLocked() int {
	for {
		id := b.nextCounter
		b.nextCounter++
		if b.nextCounter > maxRequestID {
			b.nextCounter = 0
		}
		if _, taken := b.live[id]; !taken {
			return id
		}
	}
}

func (b *Broker) autoReject(id int) {
	b.mu.Lock()
	req, ok := b.live[id]
	if !ok || req.status != StatusRequested {
		b.mu.Unlock()
		return
	}
	req.status = StatusRejected
	b.releaseLocked(id)
	cb := req.clientCB
	b.mu.Unlock()
	metrics.RecordMediaRequestStatus(StatusRejected.String())
	if cb != nil {
		cb(id, StatusRejected)
	}
}

// Accept approves a pending request on behalf of approver, claiming the
// (primary zone, occupant) slot. primaryZone identifies the zone the
// occupant's media is being routed onto.
func (b *Broker) Accept(primaryZone int, requestID int) error {
	b.mu.Lock()
	req, ok := b.live[requestID]
	if !ok || req.status != StatusRequested {
		b.mu.Unlock()
		return apperr.New(apperr.Invariant, "accept on unknown or non-pending request")
	}
	occKey := occupantKey(primaryZone, req.occupant)
	if existing, held := b.byOccupant[occKey]; held && existing != requestID {
		b.mu.Unlock()
		return apperr.New(apperr.Invariant, "occupant already has an approved request in this zone")
	}
	req.status = StatusApproved
	b.byOccupant[occKey] = requestID
	cb := req.clientCB
	b.mu.Unlock()
	if cb != nil {
		cb(requestID, StatusApproved)
	}
	return nil
}

// Reject marks a pending request rejected.
func (b *Broker) Reject(requestID int) error {
	return b.terminate(requestID, StatusRequested, StatusRejected)
}

// Cancel withdraws a request, whether pending or already approved.
func (b *Broker) Cancel(requestID int) error {
	b.mu.Lock()
	req, ok := b.live[requestID]
	if !ok || (req.status != StatusRequested && req.status != StatusApproved) {
		b.mu.Unlock()
		return apperr.New(apperr.Invariant, "cancel on unknown or terminal request")
	}
	req.status = StatusCancelled
	b.releaseLocked(requestID)
	cb := req.clientCB
	b.mu.Unlock()
	metrics.RecordMediaRequestStatus(StatusCancelled.String())
	if cb != nil {
		cb(requestID, StatusCancelled)
	}
	return nil
}

// Stop ends an already-approved request.
func (b *Broker) Stop(requestID int) error {
	return b.terminate(requestID, StatusApproved, StatusStopped)
}

func (b *Broker) terminate(requestID int, from, to Status) error {
	b.mu.Lock()
	req, ok := b.live[requestID]
	if !ok || req.status != from {
		b.mu.Unlock()
		return apperr.New(apperr.Invariant, "invalid status transition for media-audio request")
	}
	req.status = to
	b.releaseLocked(requestID)
	cb := req.clientCB
	b.mu.Unlock()
	metrics.RecordMediaRequestStatus(to.String())
	if cb != nil {
		cb(requestID, to)
	}
	return nil
}

// releaseLocked frees requestID's id and client/occupant bindings. Must
// be called with b.mu held.
func (b *Broker) releaseLocked(requestID int) {
	req, ok := b.live[requestID]
	if !ok {
		return
	}
	delete(b.live, requestID)
	for client, id := range b.byClient {
		if id == requestID {
			delete(b.byClient, client)
			break
		}
	}
	for occ, id := range b.byOccupant {
		if id == requestID {
			delete(b.byOccupant, occ)
			break
		}
	}
	slog.Debug("mediabroker: released request", "id", requestID, "occupant", req.occupant)
}

func occupantKey(zoneID int, occupant string) string {
	return fmt.Sprintf("%d:%s", zoneID, occupant)
}

// Status returns the current status of requestID, if it is live.
func (b *Broker) Status(requestID int) (Status, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.live[requestID]
	if !ok {
		return 0, false
	}
	return req.status, true
}
