package tracker

import (
	"sync"
	"time"
)

type (
	// Broker fans out transport events to subscribers. Every subscriber has
	// its own buffered channel; a subscriber whose channel is full misses the
	// event instead of stalling the transport. Callbacks registered with
	// OnTimeUpdate, OnPlaybackEnd and OnStateChange run on the goroutine that
	// delivers the events, so they must return quickly. They may call back
	// into the transport; the events this produces are delivered after the
	// callback returns.
	//
	// Events are published in batches. A batch reserved with Reserve is
	// delivered after every batch reserved before it, whatever the order of
	// the Deliver calls, so a producer that reserves while holding its own
	// lock gets its events delivered in the order of its state changes.
	Broker struct {
		mu       sync.Mutex
		subs     map[int]chan Event
		nextID   int
		onTime   []func(seconds float64)
		onEnd    []func()
		onChange []func(State)

		reserved   uint64
		next       uint64 // next batch to deliver
		pending    map[uint64][]Event
		delivering bool
	}

	// Event is a message from the transport toward the UI.
	Event struct {
		Kind    EventKind
		Seconds float64 // position for TimeUpdate
		State   State   // new state for StateChange
	}

	EventKind int
)

const (
	TimeUpdate EventKind = iota
	PlaybackEnd
	StateChange
)

func (k EventKind) String() string {
	switch k {
	case TimeUpdate:
		return "time"
	case PlaybackEnd:
		return "end"
	case StateChange:
		return "state"
	}
	return "unknown"
}

func NewBroker() *Broker {
	return &Broker{subs: map[int]chan Event{}, pending: map[uint64][]Event{}}
}

// Subscribe returns a channel of events with the given buffer size and a
// function that unsubscribes and closes the channel.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, max(buffer, 1))
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broker) OnTimeUpdate(f func(seconds float64)) {
	b.mu.Lock()
	b.onTime = append(b.onTime, f)
	b.mu.Unlock()
}

func (b *Broker) OnPlaybackEnd(f func()) {
	b.mu.Lock()
	b.onEnd = append(b.onEnd, f)
	b.mu.Unlock()
}

func (b *Broker) OnStateChange(f func(State)) {
	b.mu.Lock()
	b.onChange = append(b.onChange, f)
	b.mu.Unlock()
}

// Publish delivers the events in order, after every batch reserved earlier.
// It never blocks on a subscriber.
func (b *Broker) Publish(events ...Event) {
	b.Deliver(b.Reserve(), events...)
}

// Reserve returns the sequence number of the next batch. Every reserved
// number must be passed to Deliver exactly once, or later batches are never
// delivered.
func (b *Broker) Reserve() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	seq := b.reserved
	b.reserved++
	return seq
}

// Deliver publishes the batch reserved as seq. If an earlier batch is still
// missing, the events wait for it and Deliver returns right away; the
// goroutine delivering the earlier batch delivers this one too.
func (b *Broker) Deliver(seq uint64, events ...Event) {
	b.mu.Lock()
	b.pending[seq] = events
	if b.delivering {
		b.mu.Unlock()
		return
	}
	b.delivering = true
	for {
		batch, ok := b.pending[b.next]
		if !ok {
			break
		}
		delete(b.pending, b.next)
		b.next++
		for _, ch := range b.subs {
			for _, e := range batch {
				TrySend(ch, e)
			}
		}
		onTime, onEnd, onChange := b.onTime, b.onEnd, b.onChange
		b.mu.Unlock()
		for _, e := range batch {
			switch e.Kind {
			case TimeUpdate:
				for _, f := range onTime {
					f(e.Seconds)
				}
			case PlaybackEnd:
				for _, f := range onEnd {
					f()
				}
			case StateChange:
				for _, f := range onChange {
					f(e.State)
				}
			}
		}
		b.mu.Lock()
	}
	b.delivering = false
	b.mu.Unlock()
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
