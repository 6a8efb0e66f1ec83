package core

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/kvchat/internal/kvstore"
)

// PollerState tracks the scheduler lifecycle.
type PollerState int

const (
	PollerIdle PollerState = iota
	PollerRunning
	PollerStopped
)

// Publisher receives the full re-derived message list after each successful
// tick. The list replaces the prior one, it is never a diff.
type Publisher func(msgs []Message)

// Poller drives the fixed-interval read-decode-sort-publish cycle for one
// store partition. The store offers no delta feed and no causal ordering, so
// re-deriving the view from the complete snapshot every tick is the only way
// to guarantee convergence despite missed polls or reordered writes.
//
// Lifecycle methods are not goroutine-safe; the owning session serializes
// Start and Stop.
type Poller struct {
	store     kvstore.Store
	partition string
	interval  time.Duration
	timeout   time.Duration
	publish   Publisher
	log       *zerolog.Logger

	state  PollerState
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller builds an idle poller bound to one partition.
func NewPoller(store kvstore.Store, partition string, interval, timeout time.Duration, publish Publisher, logger *zerolog.Logger) *Poller {
	return &Poller{
		store:     store,
		partition: partition,
		interval:  interval,
		timeout:   timeout,
		publish:   publish,
		log:       logger,
		state:     PollerIdle,
	}
}

// Start runs one immediate tick, then arms the repeating timer. Starting a
// poller that is not idle is a no-op; a session switches rooms by stopping
// the old poller and starting a fresh one, so at most one timer is armed.
func (p *Poller) Start() {
	if p.state != PollerIdle {
		return
	}
	p.state = PollerRunning

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx)
}

// Stop cancels the timer and waits for the loop to exit. Idempotent. An
// in-flight read is allowed to complete but its result is discarded.
func (p *Poller) Stop() {
	if p.state != PollerRunning {
		p.state = PollerStopped
		return
	}
	p.state = PollerStopped
	p.cancel()
	<-p.done
}

// State reports the current lifecycle state.
func (p *Poller) State() PollerState {
	return p.state
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	// One goroutine executes ticks sequentially: a slow read delays the
	// next tick instead of racing it, so stale results never overwrite
	// fresh ones.
	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	readCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	snapshot, err := p.store.Read(readCtx, p.partition)
	if err != nil {
		// A failed tick leaves the previous published view in place.
		p.log.Warn().Err(err).Str("partition", p.partition).Msg("poll read failed")
		return
	}

	// The poller was stopped while the read was in flight: discard.
	if ctx.Err() != nil {
		return
	}

	p.publish(sortSnapshot(snapshot))
}

// sortSnapshot decodes every record independently and orders the result by
// timestamp ascending. Ties break on the serialized key so the order is
// stable across ticks regardless of map iteration.
func sortSnapshot(snapshot map[string]string) []Message {
	type entry struct {
		msg Message
		key string
	}

	entries := make([]entry, 0, len(snapshot))
	for key := range snapshot {
		entries = append(entries, entry{msg: Decode(key), key: key})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].msg.Time != entries[j].msg.Time {
			return entries[i].msg.Time < entries[j].msg.Time
		}
		return entries[i].key < entries[j].key
	})

	msgs := make([]Message, len(entries))
	for i, e := range entries {
		msgs[i] = e.msg
	}
	return msgs
}
