package core

import (
	"sync"
	"testing"

	"github.com/skyrc/skyrc/internal/domain"
)

type fakeSink struct {
	mu     sync.Mutex
	events []any
}

func (s *fakeSink) TrySend(event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSink) Close() {}

func member(handle string) MemberSession {
	return NewMemberSession(domain.Identity{DID: "did:plc:" + handle, Handle: handle}, &fakeSink{})
}

func TestJoinReturnsSnapshotAndOthers(t *testing.T) {
	p := NewPresence()

	resA := p.Join("conn-a", member("alice.test"), "general")
	if resA.Snapshot.UserCount != 1 {
		t.Fatalf("expected userCount 1, got %d", resA.Snapshot.UserCount)
	}
	if len(resA.Others) != 0 {
		t.Fatalf("expected no prior members, got %d", len(resA.Others))
	}

	resB := p.Join("conn-b", member("bob.test"), "general")
	if resB.Snapshot.UserCount != 2 {
		t.Fatalf("expected userCount 2, got %d", resB.Snapshot.UserCount)
	}
	if len(resB.Others) != 1 || resB.Others[0].Identity().Handle != "alice.test" {
		t.Fatalf("expected alice as prior member, got %+v", resB.Others)
	}
}

func TestSingleRoomMembership(t *testing.T) {
	p := NewPresence()

	p.Join("conn-a", member("alice.test"), "general")
	// Coordinator always leaves before re-joining.
	if _, ok := p.Leave("conn-a"); !ok {
		t.Fatal("expected membership to leave")
	}
	p.Join("conn-a", member("alice.test"), "random")

	room, _, ok := p.MemberOf("conn-a")
	if !ok || room != "random" {
		t.Fatalf("expected membership in random only, got %q ok=%v", room, ok)
	}
	if snap := p.Snapshot("general"); snap.UserCount != 0 {
		t.Fatalf("expected general to be empty, got %d", snap.UserCount)
	}
	if rooms, members := p.Counts(); rooms != 1 || members != 1 {
		t.Fatalf("expected 1 room / 1 member, got %d / %d", rooms, members)
	}
}

func TestLeaveRemovesEmptyRoomAtomically(t *testing.T) {
	p := NewPresence()
	p.Join("conn-a", member("alice.test"), "general")

	res, ok := p.Leave("conn-a")
	if !ok {
		t.Fatal("expected leave to succeed")
	}
	if res.Room != "general" || res.Snapshot.UserCount != 0 {
		t.Fatalf("unexpected leave result: %+v", res)
	}
	if len(res.Remaining) != 0 {
		t.Fatalf("expected no remaining members, got %d", len(res.Remaining))
	}
	// The room key must be gone in the same operation, never listed empty.
	for _, snap := range p.ListActive() {
		if snap.Name == "general" {
			t.Fatalf("empty room still listed: %+v", snap)
		}
	}
	if _, again := p.Leave("conn-a"); again {
		t.Fatal("second leave should be a no-op")
	}
}

func TestLeaveReportsRemaining(t *testing.T) {
	p := NewPresence()
	p.Join("conn-a", member("alice.test"), "general")
	p.Join("conn-b", member("bob.test"), "general")

	res, ok := p.Leave("conn-a")
	if !ok {
		t.Fatal("expected leave to succeed")
	}
	if res.Snapshot.UserCount != 1 {
		t.Fatalf("expected userCount 1 after leave, got %d", res.Snapshot.UserCount)
	}
	if len(res.Remaining) != 1 || res.Remaining[0].Identity().Handle != "bob.test" {
		t.Fatalf("expected bob remaining, got %+v", res.Remaining)
	}
	if res.Left.Identity().Handle != "alice.test" {
		t.Fatalf("expected alice to have left, got %q", res.Left.Identity().Handle)
	}
}

func TestSnapshotUnknownRoom(t *testing.T) {
	p := NewPresence()
	snap := p.Snapshot("nowhere")
	if snap.UserCount != 0 || len(snap.Users) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
	if snap.Name != "nowhere" {
		t.Fatalf("expected name to be echoed, got %q", snap.Name)
	}
}

func TestListActiveOrdering(t *testing.T) {
	p := NewPresence()
	p.Join("c1", member("alice.test"), "gamma")
	p.Join("c2", member("bob.test"), "gamma")
	p.Join("c3", member("carol.test"), "beta")
	p.Join("c4", member("dave.test"), "alpha")

	got := p.ListActive()
	want := []domain.RoomName{"gamma", "alpha", "beta"}
	if len(got) != len(want) {
		t.Fatalf("expected %d rooms, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: expected %q, got %q", i, name, got[i].Name)
		}
	}
	if got[0].UserCount != 2 {
		t.Fatalf("expected gamma count 2, got %d", got[0].UserCount)
	}
}

func TestPeersExcludesSender(t *testing.T) {
	p := NewPresence()
	p.Join("conn-a", member("alice.test"), "general")
	p.Join("conn-b", member("bob.test"), "general")

	room, sender, peers, ok := p.Peers("conn-a")
	if !ok || room != "general" {
		t.Fatalf("expected membership in general, got %q ok=%v", room, ok)
	}
	if sender.Identity().Handle != "alice.test" {
		t.Fatalf("expected alice as sender, got %q", sender.Identity().Handle)
	}
	if len(peers) != 1 || peers[0].Identity().Handle != "bob.test" {
		t.Fatalf("expected only bob as peer, got %+v", peers)
	}
}
