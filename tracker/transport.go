package tracker

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/synth"
)

type (
	// Transport plays a composition. A poll loop looks a short window ahead
	// of the playback position and hands every note starting in it to the
	// Backend, which renders and sounds it at the right moment. The window
	// starts where the previous one ended, so a late poll delays notes but
	// never drops them, and each note is dispatched at most once per pass.
	//
	// The transport also gates edits: Edit only runs its function while
	// playback is stopped or paused, under the same lock the poll uses.
	Transport struct {
		mu       sync.Mutex
		comp     *tunebox.Composition
		registry *synth.Registry
		backend  Backend
		clock    Clock
		logger   *slog.Logger
		cfg      Config
		broker   *Broker

		queueEdits bool
		queued     []func(*tunebox.Composition) error

		state      State
		anchorPos  float64   // position in seconds at anchorWall
		anchorWall time.Time // wall time when playback last (re)started
		lastPos    float64
		horizon    float64 // notes starting before this were already considered
		dispatched map[string]float64
		missing    map[string]bool // instruments already reported this session

		stopLoop chan struct{}
		loopDone chan struct{}
	}

	// Backend sounds dispatched notes. Schedule must not block; rendering is
	// the backend's business. CancelPending drops the voices that have not
	// started sounding and returns their note ids.
	Backend interface {
		Schedule(d Dispatch)
		CancelPending() []string
	}

	// Dispatch is a note handed to the backend, with its onset given as a
	// delay from now.
	Dispatch struct {
		NoteID    string
		TrackID   string
		Unit      synth.Unit
		Frequency float64
		Duration  float64 // seconds
		Velocity  float64
		Gain      float32
		Delay     time.Duration
	}

	State int

	// TransportOption configures a Transport.
	TransportOption func(*Transport)
)

const (
	Stopped State = iota
	Playing
	Paused
)

var (
	// ErrTransportRunning is returned by Edit while the transport is playing.
	ErrTransportRunning = errors.New("cannot edit while playing")
	// ErrEditDeferred is returned by Edit when the edit was queued and will
	// be applied when playback pauses or stops.
	ErrEditDeferred = errors.New("edit deferred until playback stops")
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

func WithClock(c Clock) TransportOption {
	return func(t *Transport) { t.clock = c }
}

func WithLogger(l *slog.Logger) TransportOption {
	return func(t *Transport) { t.logger = l }
}

func WithConfig(c Config) TransportOption {
	return func(t *Transport) { t.cfg = c.Normalize() }
}

// WithQueuedEdits makes Edit queue edits made during playback instead of
// rejecting them.
func WithQueuedEdits() TransportOption {
	return func(t *Transport) { t.queueEdits = true }
}

// NewTransport returns a stopped transport at position 0. The composition
// is owned by the transport from now on: read it with View and change it
// with Edit.
func NewTransport(comp *tunebox.Composition, registry *synth.Registry, backend Backend, opts ...TransportOption) *Transport {
	t := &Transport{
		comp:       comp,
		registry:   registry,
		backend:    backend,
		clock:      SystemClock(),
		logger:     slog.Default(),
		cfg:        DefaultConfig(),
		broker:     NewBroker(),
		dispatched: map[string]float64{},
		missing:    map[string]bool{},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Transport) Config() Config { return t.cfg }

func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Position returns the playback position in seconds.
func (t *Transport) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

func (t *Transport) positionLocked() float64 {
	if t.state != Playing {
		return t.anchorPos
	}
	pos := t.anchorPos + t.clock.Now().Sub(t.anchorWall).Seconds()
	t.lastPos = max(pos, t.lastPos)
	return t.lastPos
}

// Play starts or resumes playback and dispatches the notes at the current
// position right away.
func (t *Transport) Play() {
	t.mu.Lock()
	if t.state == Playing {
		t.mu.Unlock()
		return
	}
	if t.state == Stopped {
		t.missing = map[string]bool{}
	}
	t.state = Playing
	t.anchorWall = t.clock.Now()
	t.lastPos = t.anchorPos
	t.horizon = t.anchorPos
	t.startLoopLocked()
	t.logger.Debug("transport playing", "position", t.anchorPos)
	t.unlockAndPublish(append([]Event{{Kind: StateChange, State: Playing}}, t.pollLocked()...))
}

// Pause freezes the position. Notes already sounding ring out; notes
// dispatched but not yet sounding are cancelled and will be dispatched again
// on resume.
func (t *Transport) Pause() {
	t.mu.Lock()
	if t.state != Playing {
		t.mu.Unlock()
		return
	}
	t.anchorPos = t.positionLocked()
	t.state = Paused
	t.stopLoopLocked()
	for _, id := range t.backend.CancelPending() {
		delete(t.dispatched, id)
	}
	t.logger.Debug("transport paused", "position", t.anchorPos)
	t.applyQueuedLocked()
	t.unlockAndPublish([]Event{{Kind: StateChange, State: Paused}, {Kind: TimeUpdate, Seconds: t.anchorPos}})
}

// Stop rewinds to 0 from any state and cancels every voice not yet
// sounding. No dispatch happens after Stop returns.
func (t *Transport) Stop() {
	t.mu.Lock()
	t.unlockAndPublish(t.stopLocked())
}

// unlockAndPublish releases t.mu and publishes the events. The batch is
// reserved before the unlock, so batches reach subscribers in the order the
// state changes happened even when the publishing goroutines race.
func (t *Transport) unlockAndPublish(events []Event) {
	seq := t.broker.Reserve()
	t.mu.Unlock()
	t.broker.Deliver(seq, events...)
}

func (t *Transport) stopLocked() []Event {
	t.stopLoopLocked()
	t.backend.CancelPending()
	wasStopped := t.state == Stopped && t.anchorPos == 0
	t.state = Stopped
	t.anchorPos, t.lastPos, t.horizon = 0, 0, 0
	clear(t.dispatched)
	t.applyQueuedLocked()
	if wasStopped {
		return nil
	}
	t.logger.Debug("transport stopped")
	return []Event{{Kind: StateChange, State: Stopped}, {Kind: TimeUpdate, Seconds: 0}}
}

// Seek moves the position. While playing, pending voices are cancelled and
// notes from the new position on are dispatched again; notes before it are
// never fired.
func (t *Transport) Seek(seconds float64) {
	if !(seconds > 0) {
		seconds = 0
	}
	t.mu.Lock()
	t.anchorPos, t.lastPos, t.horizon = seconds, seconds, seconds
	clear(t.dispatched)
	events := []Event{{Kind: TimeUpdate, Seconds: seconds}}
	if t.state == Playing {
		t.backend.CancelPending()
		t.anchorWall = t.clock.Now()
		events = append(events, t.pollLocked()...)
	}
	t.unlockAndPublish(events)
}

// Poll advances playback once: it evicts finished notes from the dispatched
// set, dispatches the notes starting in the look-ahead window and stops the
// transport once the last note has ended. The transport's own loop calls it
// every PollInterval; hosts may call it from their own timer as well.
func (t *Transport) Poll() {
	t.mu.Lock()
	t.unlockAndPublish(t.pollLocked())
}

func (t *Transport) pollLocked() []Event {
	if t.state != Playing {
		return nil
	}
	pos := t.positionLocked()
	if pos >= t.comp.MaxEndTime()+t.cfg.EndPadding.Seconds() {
		events := t.stopLocked()
		t.logger.Debug("playback ended", "position", pos)
		return append(events, Event{Kind: PlaybackEnd})
	}
	for id, end := range t.dispatched {
		if end <= pos {
			delete(t.dispatched, id)
		}
	}
	windowEnd := pos + t.cfg.LookAhead.Seconds()
	bpm := t.comp.BPM
	for i := range t.comp.Tracks {
		track := &t.comp.Tracks[i]
		if track.Muted {
			continue
		}
		var unit synth.Unit
		for _, n := range track.Notes {
			start := n.StartTime(bpm)
			if start < t.horizon || start >= windowEnd {
				continue
			}
			if _, ok := t.dispatched[n.ID]; ok {
				continue
			}
			if unit == nil {
				u, ok := t.registry.Lookup(track.Instrument)
				if !ok {
					t.reportMissingLocked(track)
					break
				}
				unit = u
			}
			t.dispatched[n.ID] = n.EndTime(bpm)
			t.backend.Schedule(Dispatch{
				NoteID:    n.ID,
				TrackID:   track.ID,
				Unit:      unit,
				Frequency: n.Frequency(),
				Duration:  n.Duration(bpm),
				Velocity:  n.Velocity,
				Gain:      synth.Gain(track.Volume, track.Muted),
				Delay:     tunebox.Duration(max(0, start-pos)),
			})
		}
	}
	t.horizon = max(t.horizon, windowEnd)
	return []Event{{Kind: TimeUpdate, Seconds: pos}}
}

func (t *Transport) reportMissingLocked(track *tunebox.Track) {
	if t.missing[track.Instrument] {
		return
	}
	t.missing[track.Instrument] = true
	t.logger.Warn("instrument not found, skipping track", "instrument", track.Instrument, "track", track.Name)
}

func (t *Transport) startLoopLocked() {
	stop := make(chan struct{})
	done := make(chan struct{})
	t.stopLoop, t.loopDone = stop, done
	interval := t.cfg.PollInterval
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.Poll()
			case <-stop:
				return
			}
		}
	}()
}

func (t *Transport) stopLoopLocked() {
	if t.stopLoop != nil {
		close(t.stopLoop)
		t.stopLoop = nil
	}
}

// Close stops playback and waits for the poll loop to exit.
func (t *Transport) Close() {
	t.mu.Lock()
	done := t.loopDone
	t.unlockAndPublish(t.stopLocked())
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.logger.Warn("poll loop did not exit")
	}
}

// Edit runs f on the composition if the transport is not playing. While
// playing, f is rejected with ErrTransportRunning, or queued and
// ErrEditDeferred returned when the transport was created WithQueuedEdits.
// Queued edits run in order at the next Pause or Stop; their errors are
// logged.
func (t *Transport) Edit(f func(*tunebox.Composition) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Playing {
		if t.queueEdits {
			t.queued = append(t.queued, f)
			return ErrEditDeferred
		}
		return ErrTransportRunning
	}
	return f(t.comp)
}

func (t *Transport) applyQueuedLocked() {
	queued := t.queued
	t.queued = nil
	for _, f := range queued {
		if err := f(t.comp); err != nil {
			t.logger.Warn("queued edit failed", "error", err)
		}
	}
}

// View runs f with the composition under the transport lock. f must not
// keep references to the composition or modify it.
func (t *Transport) View(f func(*tunebox.Composition)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f(t.comp)
}

// Composition returns a deep copy of the composition.
func (t *Transport) Composition() tunebox.Composition {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.comp.Copy()
}

// SetComposition stops playback and replaces the composition. Queued edits
// are applied to the old composition first.
func (t *Transport) SetComposition(c *tunebox.Composition) {
	t.mu.Lock()
	events := t.stopLocked()
	t.comp = c
	t.unlockAndPublish(events)
}

func (t *Transport) Subscribe(buffer int) (<-chan Event, func()) {
	return t.broker.Subscribe(buffer)
}

func (t *Transport) OnTimeUpdate(f func(seconds float64)) { t.broker.OnTimeUpdate(f) }
func (t *Transport) OnPlaybackEnd(f func())               { t.broker.OnPlaybackEnd(f) }
func (t *Transport) OnStateChange(f func(State))          { t.broker.OnStateChange(f) }
