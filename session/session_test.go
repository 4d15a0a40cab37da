package session

import "testing"

func TestOpponentFor(t *testing.T) {
	s := newSession("s1", "p1", "Alice", "p2", "Bob")

	id, name, ok := s.OpponentFor("p1")
	if !ok || id != "p2" || name != "Bob" {
		t.Fatalf("expected opponent (p2, Bob), got (%s, %s, %v)", id, name, ok)
	}

	id, name, ok = s.OpponentFor("p2")
	if !ok || id != "p1" || name != "Alice" {
		t.Fatalf("expected opponent (p1, Alice), got (%s, %s, %v)", id, name, ok)
	}
}

func TestOpponentForNonMember(t *testing.T) {
	s := newSession("s1", "p1", "Alice", "p2", "Bob")
	_, _, ok := s.OpponentFor("stranger")
	if ok {
		t.Fatal("expected no opponent for a non-member id")
	}
}

func TestIsMember(t *testing.T) {
	s := newSession("s1", "p1", "Alice", "p2", "Bob")
	if !s.IsMember("p1") || !s.IsMember("p2") {
		t.Fatal("expected both original players to be members")
	}
	if s.IsMember("stranger") {
		t.Fatal("expected stranger not to be a member")
	}
}

func TestConnectedCountTracksAddRemove(t *testing.T) {
	s := newSession("s1", "p1", "Alice", "p2", "Bob")
	if s.ConnectedCount() != 0 {
		t.Fatal("expected zero connections on a fresh session")
	}
	s.AddConnection("p1", nil)
	if s.ConnectedCount() != 1 {
		t.Fatalf("expected 1 connection, got %d", s.ConnectedCount())
	}
	s.RemoveConnection("p1")
	if s.ConnectedCount() != 0 {
		t.Fatal("expected 0 connections after removal")
	}
}

func TestRecordAndGetState(t *testing.T) {
	s := newSession("s1", "p1", "Alice", "p2", "Bob")
	if _, ok := s.GetState("p1"); ok {
		t.Fatal("expected no recorded state initially")
	}
	s.RecordState("p1", []byte(`{"score":1}`))
	state, ok := s.GetState("p1")
	if !ok || string(state) != `{"score":1}` {
		t.Fatalf("expected recorded state to round-trip, got %q ok=%v", state, ok)
	}
}

func TestStartedAndFinishedFlags(t *testing.T) {
	s := newSession("s1", "p1", "Alice", "p2", "Bob")
	if s.Started() || s.Finished() {
		t.Fatal("expected fresh session to be neither started nor finished")
	}
	s.MarkStarted()
	if !s.Started() {
		t.Fatal("expected Started() true after MarkStarted")
	}
	s.MarkFinished()
	if !s.Finished() {
		t.Fatal("expected Finished() true after MarkFinished")
	}
}

func TestClearDropsConnectionsAndState(t *testing.T) {
	s := newSession("s1", "p1", "Alice", "p2", "Bob")
	s.AddConnection("p1", nil)
	s.RecordState("p1", []byte(`{}`))
	s.clear()
	if s.ConnectedCount() != 0 {
		t.Fatal("expected clear to drop connections")
	}
	if _, ok := s.GetState("p1"); ok {
		t.Fatal("expected clear to drop recorded state")
	}
}
