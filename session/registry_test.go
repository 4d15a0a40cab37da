package session

import (
	"context"
	"testing"
	"time"

	"lobby-relay-server/archive"
	"lobby-relay-server/config"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	sink, err := archive.New(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error creating disabled archive sink: %v", err)
	}
	cfg := config.Defaults()
	cfg.SessionCleanupGraceSeconds = 0
	return NewRegistry(cfg, sink)
}

func TestCreateAndGetSession(t *testing.T) {
	r := testRegistry(t)
	sess := r.CreateSession("p1", "Alice", "p2", "Bob")
	if sess.ID == "" {
		t.Fatal("expected a generated session id")
	}
	got, ok := r.GetSession(sess.ID)
	if !ok || got != sess {
		t.Fatal("expected GetSession to return the created session")
	}
}

func TestGetSessionUnknownID(t *testing.T) {
	r := testRegistry(t)
	_, ok := r.GetSession("nonexistent")
	if ok {
		t.Fatal("expected no session for an unknown id")
	}
}

func TestRemoveSessionDropsIt(t *testing.T) {
	r := testRegistry(t)
	sess := r.CreateSession("p1", "Alice", "p2", "Bob")
	r.RemoveSession(sess.ID)
	if _, ok := r.GetSession(sess.ID); ok {
		t.Fatal("expected session to be gone after RemoveSession")
	}
}

func TestRemoveSessionUnknownIDIsNoop(t *testing.T) {
	r := testRegistry(t)
	r.RemoveSession("nonexistent") // must not panic
}

func TestForwardStateRecordsOnSession(t *testing.T) {
	r := testRegistry(t)
	sess := r.CreateSession("p1", "Alice", "p2", "Bob")
	r.ForwardState(sess.ID, "p1", []byte(`{"x":1}`))

	state, ok := sess.GetState("p1")
	if !ok || string(state) != `{"x":1}` {
		t.Fatalf("expected state recorded on session, got %q ok=%v", state, ok)
	}
}

func TestForwardStateUnknownSessionIsNoop(t *testing.T) {
	r := testRegistry(t)
	r.ForwardState("nonexistent", "p1", []byte(`{}`)) // must not panic
}

func TestForwardGameOverMarksFinished(t *testing.T) {
	r := testRegistry(t)
	sess := r.CreateSession("p1", "Alice", "p2", "Bob")
	r.ForwardGameOver(sess.ID, "p1", []byte(`{"winner":"p1"}`))

	if !sess.Finished() {
		t.Fatal("expected session marked finished after ForwardGameOver")
	}
}

func TestHandleDisconnectSchedulesCleanupWhenEmpty(t *testing.T) {
	r := testRegistry(t)
	sess := r.CreateSession("p1", "Alice", "p2", "Bob")
	sess.AddConnection("p1", nil)

	r.HandleDisconnect(sess.ID, "p1")

	time.Sleep(20 * time.Millisecond)
	if _, ok := r.GetSession(sess.ID); ok {
		t.Fatal("expected session removed once cleanup grace (0s) elapses with no connections")
	}
}

func TestCancelCleanupPreventsRemoval(t *testing.T) {
	r := testRegistry(t)
	r.cfg.SessionCleanupGraceSeconds = 1
	sess := r.CreateSession("p1", "Alice", "p2", "Bob")

	r.ScheduleCleanup(sess.ID)
	r.CancelCleanup(sess.ID)

	time.Sleep(1200 * time.Millisecond)
	if _, ok := r.GetSession(sess.ID); !ok {
		t.Fatal("expected session to survive a cancelled cleanup timer")
	}
}

func TestScheduleCleanupSkipsRemovalIfStillConnected(t *testing.T) {
	r := testRegistry(t)
	sess := r.CreateSession("p1", "Alice", "p2", "Bob")
	sess.AddConnection("p2", nil)

	r.ScheduleCleanup(sess.ID)

	time.Sleep(20 * time.Millisecond)
	if _, ok := r.GetSession(sess.ID); !ok {
		t.Fatal("expected session to survive cleanup while a player is still connected")
	}
}
