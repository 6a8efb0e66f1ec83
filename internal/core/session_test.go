package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/kvchat/internal/kvstore/memory"
	"github.com/vovakirdan/kvchat/internal/log"
)

func newTestSession(t *testing.T, st *memory.Store) *Session {
	t.Helper()

	fixed := time.UnixMilli(1700000000123)
	s := NewSession(st, "alice", log.Nop(),
		WithPollInterval(10*time.Millisecond),
		WithRequestTimeout(time.Second),
		WithClock(func() time.Time { return fixed }),
	)
	t.Cleanup(s.Close)
	return s
}

func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSendRequiresBoundRoom(t *testing.T) {
	s := newTestSession(t, memory.New())

	if err := s.Send(context.Background(), "hello"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSendRejectsEmptyBodyLocally(t *testing.T) {
	st := memory.New()
	s := newTestSession(t, st)

	if err := s.SwitchRoom(Room{ID: 1, Title: "one"}); err != nil {
		t.Fatalf("switch room: %v", err)
	}

	for _, body := range []string{"", "   ", "\n\t"} {
		if err := s.Send(context.Background(), body); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("expected ErrEmptyMessage for %q, got %v", body, err)
		}
	}

	// Rejection happens before any store round trip.
	if n := st.Len("1"); n != 0 {
		t.Fatalf("expected no records, got %d", n)
	}
}

func TestSendWritesContentKeyedRecord(t *testing.T) {
	st := memory.New()
	s := newTestSession(t, st)

	if err := s.SwitchRoom(Room{ID: 9, Title: "nine"}); err != nil {
		t.Fatalf("switch room: %v", err)
	}
	if err := s.Send(context.Background(), "  hello  "); err != nil {
		t.Fatalf("send: %v", err)
	}

	snapshot, err := st.Read(context.Background(), "9")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 record, got %d", len(snapshot))
	}

	for key, stamp := range snapshot {
		msg := Decode(key)
		if msg.Username != "alice" || msg.Body != "hello" {
			t.Errorf("unexpected decoded message: %+v", msg)
		}
		if msg.Time != 1700000000.123 {
			t.Errorf("unexpected timestamp: %v", msg.Time)
		}
		if stamp != "1700000000.123" {
			t.Errorf("unexpected stamp: %q", stamp)
		}
	}
}

func TestSendIsIdempotentForIdenticalContent(t *testing.T) {
	st := memory.New()
	s := newTestSession(t, st)

	if err := s.SwitchRoom(Room{ID: 3, Title: "three"}); err != nil {
		t.Fatalf("switch room: %v", err)
	}

	// Same body, same username, same frozen clock: the serialized payload
	// is the key, so the retry collapses into one record.
	for i := 0; i < 2; i++ {
		if err := s.Send(context.Background(), "hello"); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	if n := st.Len("3"); n != 1 {
		t.Fatalf("expected 1 record after duplicate send, got %d", n)
	}
}

func TestNoOptimisticEchoUntilNextTick(t *testing.T) {
	st := memory.New()
	fixed := time.UnixMilli(1700000000123)
	s := NewSession(st, "alice", log.Nop(),
		WithPollInterval(time.Hour), // only the immediate start tick runs
		WithRequestTimeout(time.Second),
		WithClock(func() time.Time { return fixed }),
	)
	t.Cleanup(s.Close)

	id, snapshots := s.Watch()
	defer s.Unwatch(id)

	if err := s.SwitchRoom(Room{ID: 4, Title: "four"}); err != nil {
		t.Fatalf("switch room: %v", err)
	}

	// Wait out the immediate start tick so the send below cannot race it.
	select {
	case <-snapshots:
	case <-time.After(2 * time.Second):
		t.Fatal("initial tick never published")
	}

	if err := s.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	// The write landed in the store, but the published view only changes on
	// the next poll tick.
	if n := st.Len("4"); n != 1 {
		t.Fatalf("expected 1 stored record, got %d", n)
	}
	if got := s.Messages(); len(got) != 0 {
		t.Fatalf("expected no local echo, got %d messages", len(got))
	}
}

func TestPollPublishesSortedView(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	if err := st.Write(ctx, "5", `{"username":"a","msg":"hi","time":"2"}`, "2"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.Write(ctx, "5", `{"username":"b","msg":"yo","time":"1"}`, "1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := newTestSession(t, st)
	if err := s.SwitchRoom(Room{ID: 5, Title: "five"}); err != nil {
		t.Fatalf("switch room: %v", err)
	}

	waitFor(t, time.Second, "seeded snapshot", func() bool {
		return len(s.Messages()) == 2
	})

	msgs := s.Messages()
	if msgs[0].Username != "b" || msgs[1].Username != "a" {
		t.Fatalf("expected [b a], got [%s %s]", msgs[0].Username, msgs[1].Username)
	}
}

func TestSwitchRoomClearsViewAndRebinds(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	if err := st.Write(ctx, "1", `{"username":"a","msg":"old room","time":"1"}`, "1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := newTestSession(t, st)
	if err := s.SwitchRoom(Room{ID: 1, Title: "one"}); err != nil {
		t.Fatalf("switch room: %v", err)
	}
	waitFor(t, time.Second, "old room snapshot", func() bool {
		return len(s.Messages()) == 1
	})

	if err := s.SwitchRoom(Room{ID: 2, Title: "two"}); err != nil {
		t.Fatalf("switch room: %v", err)
	}

	// The published list is cleared on switch and the old room's records
	// never leak into the new view.
	waitFor(t, time.Second, "empty new room view", func() bool {
		return len(s.Messages()) == 0
	})
	time.Sleep(50 * time.Millisecond)
	if msgs := s.Messages(); len(msgs) != 0 {
		t.Fatalf("old room messages leaked into new view: %+v", msgs)
	}

	room, ok := s.Room()
	if !ok || room.ID != 2 {
		t.Fatalf("expected bound room 2, got %+v (bound=%v)", room, ok)
	}
}

func TestCreateRoomWritesInitSentinel(t *testing.T) {
	st := memory.New()
	s := newTestSession(t, st)

	room, err := s.CreateRoom(context.Background())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.ID == 0 {
		t.Fatal("expected non-zero room id")
	}

	snapshot, err := st.Read(context.Background(), room.Partition())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("expected the init sentinel record, got %d records", len(snapshot))
	}
	for key := range snapshot {
		msg := Decode(key)
		if msg.Body != "Init." || msg.Username != "alice" {
			t.Errorf("unexpected init message: %+v", msg)
		}
	}

	bound, ok := s.Room()
	if !ok || bound.ID != room.ID {
		t.Fatalf("expected session bound to new room %d, got %+v", room.ID, bound)
	}
}

func TestJoinRoomSkipsExistenceCheck(t *testing.T) {
	s := newTestSession(t, memory.New())

	room, err := s.JoinRoom(987654321)
	if err != nil {
		t.Fatalf("join room: %v", err)
	}
	if room.ID != 987654321 {
		t.Fatalf("unexpected room id %d", room.ID)
	}

	// Joining a room nobody has written to yields an empty view, not an
	// error.
	time.Sleep(30 * time.Millisecond)
	if msgs := s.Messages(); len(msgs) != 0 {
		t.Fatalf("expected empty view, got %d messages", len(msgs))
	}
}

func TestChangeUsernameAnnouncesToRoom(t *testing.T) {
	st := memory.New()
	s := newTestSession(t, st)

	if err := s.SwitchRoom(Room{ID: 8, Title: "eight"}); err != nil {
		t.Fatalf("switch room: %v", err)
	}
	if err := s.ChangeUsername(context.Background(), "bob"); err != nil {
		t.Fatalf("change username: %v", err)
	}

	if got := s.Username(); got != "bob" {
		t.Fatalf("expected username bob, got %q", got)
	}

	snapshot, err := st.Read(context.Background(), "8")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("expected one name notice, got %d records", len(snapshot))
	}
	for key := range snapshot {
		msg := Decode(key)
		if msg.Kind != KindName || msg.Username != "alice" || msg.Body != "bob" {
			t.Errorf("unexpected name notice: %+v", msg)
		}
	}
}

type blockingReadStore struct {
	mu   sync.Mutex
	fail bool
	mem  *memory.Store
}

func (b *blockingReadStore) setFail(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = v
}

func (b *blockingReadStore) Write(ctx context.Context, partition, key, stamp string) error {
	return b.mem.Write(ctx, partition, key, stamp)
}

func (b *blockingReadStore) Read(ctx context.Context, partition string) (map[string]string, error) {
	b.mu.Lock()
	fail := b.fail
	b.mu.Unlock()
	if fail {
		return nil, errors.New("store unavailable")
	}
	return b.mem.Read(ctx, partition)
}

func TestFailedTickKeepsPreviousView(t *testing.T) {
	st := &blockingReadStore{mem: memory.New()}
	ctx := context.Background()

	if err := st.Write(ctx, "6", `{"username":"a","msg":"hi","time":"1"}`, "1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	fixed := time.UnixMilli(1700000000123)
	s := NewSession(st, "alice", log.Nop(),
		WithPollInterval(10*time.Millisecond),
		WithRequestTimeout(time.Second),
		WithClock(func() time.Time { return fixed }),
	)
	t.Cleanup(s.Close)

	if err := s.SwitchRoom(Room{ID: 6, Title: "six"}); err != nil {
		t.Fatalf("switch room: %v", err)
	}
	waitFor(t, time.Second, "initial snapshot", func() bool {
		return len(s.Messages()) == 1
	})

	st.setFail(true)
	time.Sleep(50 * time.Millisecond)

	// Failed ticks leave the previous published view in place.
	if msgs := s.Messages(); len(msgs) != 1 || msgs[0].Body != "hi" {
		t.Fatalf("previous view lost after failed ticks: %+v", msgs)
	}
}

func TestWatcherReceivesSnapshots(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	if err := st.Write(ctx, "2", `{"username":"a","msg":"hi","time":"1"}`, "1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := newTestSession(t, st)
	id, snapshots := s.Watch()
	defer s.Unwatch(id)

	if err := s.SwitchRoom(Room{ID: 2, Title: "two"}); err != nil {
		t.Fatalf("switch room: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msgs := <-snapshots:
			if len(msgs) == 1 && msgs[0].Body == "hi" {
				return
			}
		case <-deadline:
			t.Fatal("watcher never received the room snapshot")
		}
	}
}

func TestCloseStopsPublishing(t *testing.T) {
	st := memory.New()
	s := newTestSession(t, st)

	if err := s.SwitchRoom(Room{ID: 11, Title: "eleven"}); err != nil {
		t.Fatalf("switch room: %v", err)
	}
	s.Close()
	s.Close() // idempotent

	if s.Connected() {
		t.Fatal("expected disconnected session after close")
	}
	if err := s.Send(context.Background(), "hello"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}
