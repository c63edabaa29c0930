package task

import "sync"

// channelCapacity is the per-subscriber event channel capacity. A
// slow subscriber that falls behind by more than this many events
// loses the oldest queued event rather than blocking the publisher,
// mirroring the drop-oldest fan-out already used by this codebase's
// wasi:io/streams host adapter for non-blocking stream writes.
const channelCapacity = 32

// Broadcaster fans one Task's execution events out to any number of
// subscribers with bounded, lossy-overflow, ordered delivery, built
// directly on buffered channels.
type Broadcaster struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe returns a new receive-only event channel. Events emitted
// before Subscribe is called are never delivered to it.
func (b *Broadcaster) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, channelCapacity)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// publish delivers e to every current subscriber. A subscriber whose
// channel is full has its oldest queued event dropped to make room;
// this keeps the publisher (the Task's single execution goroutine)
// from ever blocking on a slow consumer.
func (b *Broadcaster) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
			continue
		default:
		}

		select {
		case <-ch:
		default:
		}

		select {
		case ch <- e:
		default:
		}
	}
}

// Close closes every subscriber channel, signaling end-of-stream.
// Safe to call more than once.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
}
