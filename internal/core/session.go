package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/kvchat/internal/kvstore"
	"github.com/vovakirdan/kvchat/internal/utils"
)

const (
	// DefaultPollInterval matches the original client behavior.
	DefaultPollInterval = time.Second
	// DefaultRequestTimeout bounds each store call so a hung store stalls
	// one tick, not the whole session.
	DefaultRequestTimeout = 10 * time.Second

	// initBody is the sentinel written when creating a room. A schemaless
	// store has no room registry; existence is implicit in having at least
	// one record.
	initBody = "Init."
)

// Session binds one active room at a time to a running poller and exposes
// send/receive to the UI layer. The published message list is always
// derivable purely from store state: there is no optimistic local echo, the
// sender's own message appears after the next poll tick.
type Session struct {
	store    kvstore.Store
	log      *zerolog.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	// lc serializes lifecycle transitions (switch, create, close) so that
	// stopping the old poller never races arming the new one.
	lc sync.Mutex

	mu       sync.RWMutex
	username string
	room     Room
	bound    bool
	closed   bool
	messages []Message
	poller   *Poller
	watchers map[string]chan []Message
}

// SessionOption customizes a session.
type SessionOption func(*Session)

// WithPollInterval overrides the tick period.
func WithPollInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.interval = d }
}

// WithRequestTimeout overrides the per-call store timeout.
func WithRequestTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.timeout = d }
}

// WithClock overrides the send-time clock.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates an unbound session for the given user.
func NewSession(store kvstore.Store, username string, logger *zerolog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		store:    store,
		log:      logger,
		interval: DefaultPollInterval,
		timeout:  DefaultRequestTimeout,
		now:      time.Now,
		username: username,
		watchers: make(map[string]chan []Message),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Username returns the current display name.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Room returns the bound room. The second result is false before the first
// switch.
func (s *Session) Room() (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room, s.bound
}

// Connected reports whether a room is bound and being polled.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bound && !s.closed
}

// Messages returns the most recently published view of the bound room.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SwitchRoom stops the current poller, clears the published list, rebinds
// the partition and starts a fresh poller. Exactly one timer is armed per
// session at any time.
func (s *Session) SwitchRoom(room Room) error {
	s.lc.Lock()
	defer s.lc.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	old := s.poller
	s.poller = nil
	s.mu.Unlock()

	// Stop outside the state lock: the old poller may be blocked in publish
	// waiting for it.
	if old != nil {
		old.Stop()
	}

	poller := NewPoller(s.store, room.Partition(), s.interval, s.timeout, s.publish, s.log)

	s.mu.Lock()
	s.room = room
	s.bound = true
	s.messages = nil
	s.poller = poller
	s.mu.Unlock()

	poller.Start()

	s.log.Info().Int64("room_id", room.ID).Str("title", room.Title).Msg("switched room")
	return nil
}

// JoinRoom binds to an existing room id with no existence check. A room
// nobody has written to yet simply yields an empty view.
func (s *Session) JoinRoom(id int64) (Room, error) {
	room := Room{ID: id, Title: fmt.Sprintf("Room %d", id)}
	if err := s.SwitchRoom(room); err != nil {
		return Room{}, err
	}
	return room, nil
}

// CreateRoom generates a fresh random room id, writes the init sentinel so
// the partition exists, then switches to it.
func (s *Session) CreateRoom(ctx context.Context) (Room, error) {
	s.mu.RLock()
	closed := s.closed
	username := s.username
	s.mu.RUnlock()
	if closed {
		return Room{}, ErrSessionClosed
	}

	room := Room{ID: utils.NewRoomID()}
	room.Title = fmt.Sprintf("Room %d", room.ID)

	init := Message{
		Username: username,
		Body:     initBody,
		Time:     s.stamp(),
	}
	if err := s.write(ctx, room.Partition(), init); err != nil {
		return Room{}, fmt.Errorf("initialize room: %w", err)
	}

	if err := s.SwitchRoom(room); err != nil {
		return Room{}, err
	}
	return room, nil
}

// Send composes, validates and writes a text message to the bound room.
// Empty or whitespace-only bodies are rejected locally. There is no
// automatic retry; the caller decides whether to resend.
func (s *Session) Send(ctx context.Context, body string) error {
	return s.send(ctx, body, KindText)
}

// ShareFile sends a file descriptor as a share message.
func (s *Session) ShareFile(ctx context.Context, file FileShare) error {
	payload, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal file share: %w", err)
	}
	return s.send(ctx, string(payload), KindShare)
}

// ChangeUsername updates the display name and announces the change to the
// bound room, if any.
func (s *Session) ChangeUsername(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	old := s.username
	s.username = name
	bound := s.bound
	partition := s.room.Partition()
	s.mu.Unlock()

	if !bound || old == name {
		return nil
	}

	notice := Message{
		Username: old,
		Body:     name,
		Time:     s.stamp(),
		Kind:     KindName,
	}
	return s.write(ctx, partition, notice)
}

// Watch registers a channel that receives every published snapshot. The
// returned id is passed to Unwatch. Slow consumers drop snapshots rather
// than block the tick.
func (s *Session) Watch() (string, <-chan []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan []Message, 1)
	s.watchers[id] = ch
	return id, ch
}

// Unwatch removes a watcher registered with Watch.
func (s *Session) Unwatch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.watchers[id]; ok {
		delete(s.watchers, id)
		close(ch)
	}
}

// Close stops the poller and releases all watchers. Idempotent.
func (s *Session) Close() {
	s.lc.Lock()
	defer s.lc.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.bound = false
	old := s.poller
	s.poller = nil
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
	s.mu.Unlock()

	if old != nil {
		old.Stop()
	}
}

func (s *Session) send(ctx context.Context, body string, kind MessageKind) error {
	if kind == KindText {
		body = strings.TrimSpace(body)
	}
	if body == "" {
		return ErrEmptyMessage
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSessionClosed
	}
	if !s.bound {
		s.mu.RUnlock()
		return ErrNotConnected
	}
	username := s.username
	partition := s.room.Partition()
	s.mu.RUnlock()

	msg := Message{
		Username: username,
		Body:     body,
		Time:     s.stamp(),
		Kind:     kind,
	}
	return s.write(ctx, partition, msg)
}

// write serializes the message and performs the store write. The key is the
// full payload and the stamp is the timestamp, so retries of identical
// content collapse into one record.
func (s *Session) write(ctx context.Context, partition string, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.Write(ctx, partition, Encode(msg), FormatStamp(msg.Time)); err != nil {
		s.log.Warn().Err(err).Str("partition", partition).Msg("send failed")
		return fmt.Errorf("store write: %w", err)
	}
	return nil
}

// stamp returns the send-time timestamp in fractional seconds. Millisecond
// precision matches what other clients of the store write.
func (s *Session) stamp() float64 {
	return float64(s.now().UnixMilli()) / 1000
}

// publish atomically replaces the message list and fans the snapshot out to
// watchers. Called from the poller goroutine after each successful tick.
func (s *Session) publish(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.messages = msgs

	for _, ch := range s.watchers {
		select {
		case ch <- msgs:
		default:
			// Drop if slow consumer.
		}
	}
}
