package mediabroker

import "testing"

func TestRequestAcceptStop(t *testing.T) {
	b := New()
	var gotStatus []Status
	b.RegisterApprover(func(requestID int, occupant string) bool { return true })

	id, err := b.Request("client-1", "seat2", func(requestID int, status Status) {
		gotStatus = append(gotStatus, status)
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	if err := b.Accept(0, id); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	st, ok := b.Status(id)
	if !ok || st != StatusApproved {
		t.Fatalf("expected approved, got %v ok=%v", st, ok)
	}

	if err := b.Stop(id); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, ok := b.Status(id); ok {
		t.Fatalf("expected request released after stop")
	}
	if len(gotStatus) != 2 || gotStatus[0] != StatusApproved || gotStatus[1] != StatusStopped {
		t.Fatalf("unexpected callback sequence: %v", gotStatus)
	}
}

func TestNoApproverAutoRejects(t *testing.T) {
	b := New()
	var got Status
	id, err := b.Request("client-1", "seat2", func(requestID int, status Status) { got = status })
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if got != StatusRejected {
		t.Fatalf("expected synchronous auto-reject, got %v", got)
	}
	if _, ok := b.Status(id); ok {
		t.Fatalf("expected id released after auto-reject")
	}
}

func TestDuplicateOutstandingRequestRejected(t *testing.T) {
	b := New()
	b.RegisterApprover(func(requestID int, occupant string) bool { return false })
	if _, err := b.Request("client-1", "seat2", func(int, Status) {}); err != nil {
		t.Fatalf("first request should auto-reject, not error: %v", err)
	}
	// After auto-reject the client slot is freed, so a second request
	// from the same client should succeed.
	if _, err := b.Request("client-1", "seat2", func(int, Status) {}); err != nil {
		t.Fatalf("second request after release should succeed: %v", err)
	}

	// While a request is still outstanding (an approver accepted it but
	// Accept has not been called), a second request from the same client
	// is rejected.
	b2 := New()
	b2.RegisterApprover(func(requestID int, occupant string) bool { return true })
	if _, err := b2.Request("client-1", "seat2", func(int, Status) {}); err != nil {
		t.Fatalf("first outstanding request: %v", err)
	}
	if _, err := b2.Request("client-1", "seat2", func(int, Status) {}); err == nil {
		t.Fatalf("expected duplicate outstanding request from the same client to be rejected")
	}
}

func TestAcceptRejectedByExistingOccupantApproval(t *testing.T) {
	b := New()
	b.RegisterApprover(func(requestID int, occupant string) bool { return true })

	id1, _ := b.Request("client-1", "seat2", func(int, Status) {})
	if err := b.Accept(5, id1); err != nil {
		t.Fatalf("Accept id1: %v", err)
	}

	// A second, distinct occupant request in the same zone is fine...
	id2, _ := b.Request("client-2", "seat3", func(int, Status) {})
	if err := b.Accept(5, id2); err != nil {
		t.Fatalf("Accept id2: %v", err)
	}

	// ...but a second approval for seat2 in zone 5 is refused while id1
	// holds that slot.
	id3, _ := b.Request("client-3", "seat2", func(int, Status) {})
	if err := b.Accept(5, id3); err == nil {
		t.Fatalf("expected Accept to fail: seat2 already has an approved request in zone 5")
	}
}

func TestRequestIDReuseAfterRelease(t *testing.T) {
	b := New()
	b.RegisterApprover(func(requestID int, occupant string) bool { return true })

	id, _ := b.Request("client-1", "seat2", func(int, Status) {})
	if err := b.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	seen := map[int]bool{}
	for i := 0; i < 5; i++ {
		nid, err := b.Request("client-1", "seat2", func(int, Status) {})
		if err != nil {
			t.Fatalf("Request %d: %v", i, err)
		}
		if seen[nid] {
			t.Fatalf("duplicate request id %d observed", nid)
		}
		seen[nid] = true
		if err := b.Cancel(nid); err != nil {
			t.Fatalf("Cancel %d: %v", nid, err)
		}
	}
}
