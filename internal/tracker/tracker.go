package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"focustrack-backend/internal/models"
	"focustrack-backend/internal/repository"
)

type State string

const (
	StateIdle      State = "idle"
	StateTracking  State = "tracking"
	StateSuspended State = "suspended"
)

// Transition is published to observers (the WebSocket hub) after a state
// change has been persisted.
type Transition struct {
	From   State  `json:"from"`
	To     State  `json:"to"`
	Domain string `json:"domain,omitempty"`
	At     int64  `json:"at"`
}

// Tracker is the orchestrator and the sole writer of the active session
// record. Every signal funnels through one event channel consumed by one
// goroutine; each persistence write completes before the next event is
// handled. A previous design with several competing timers raced on the
// active record, so everything now collapses onto this single path.
type Tracker struct {
	sessions     *repository.SessionRepo
	clock        Clock
	tickInterval time.Duration
	sleepGap     time.Duration
	timezone     string
	notify       func(Transition)

	events   chan Event
	notifyCh chan Transition
	done     chan struct{}
	stopOnce sync.Once

	// mu serializes apply between the run loop and the synchronous
	// shutdown path, and guards the snapshot fields below.
	mu           sync.Mutex
	state        State
	current      *models.SessionRecord
	lastDomain   string
	lastActivity time.Time
	stopped      bool
}

type Options struct {
	TickInterval time.Duration
	SleepGap     time.Duration
	Timezone     string
	Clock        Clock
	// Notify observes transitions; it must not block.
	Notify func(Transition)
}

func New(sessions *repository.SessionRepo, opts Options) *Tracker {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 15 * time.Second
	}
	if opts.SleepGap <= 0 {
		opts.SleepGap = 5 * time.Minute
	}
	if opts.Timezone == "" {
		opts.Timezone = "UTC"
	}
	t := &Tracker{
		sessions:     sessions,
		clock:        opts.Clock,
		tickInterval: opts.TickInterval,
		sleepGap:     opts.SleepGap,
		timezone:     opts.Timezone,
		notify:       opts.Notify,
		events:       make(chan Event, 64),
		done:         make(chan struct{}),
		state:        StateIdle,
	}
	if t.notify != nil {
		t.notifyCh = make(chan Transition, 64)
		go t.notifyLoop()
	}
	return t
}

// notifyLoop is the only caller of notify, so observers see transitions
// one at a time and in emission order. A websocket connection tolerates a
// single writer; fanning out a goroutine per transition would race on it.
func (t *Tracker) notifyLoop() {
	for tr := range t.notifyCh {
		t.notify(tr)
	}
}

// Start finalizes anything a previous unclean shutdown left active, then
// begins consuming events.
func (t *Tracker) Start(ctx context.Context) error {
	finalized, err := t.sessions.FinalizeDanglingSessions(ctx, t.clock.Now())
	if err != nil {
		return err
	}
	if finalized > 0 {
		log.Printf("Finalized %d dangling sessions from previous run", finalized)
	}

	go t.run()
	return nil
}

func (t *Tracker) run() {
	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case ev := <-t.events:
			t.apply(ev)
		case <-ticker.C:
			t.apply(Event{Type: EventTick})
		}
	}
}

// Deliver queues a signal for the event loop. Safe from any goroutine.
func (t *Tracker) Deliver(ev Event) {
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

// Shutdown synchronously flushes the current record and stops the loop.
// Events delivered afterwards are dropped.
func (t *Tracker) Shutdown() {
	t.stopOnce.Do(func() {
		t.apply(Event{Type: EventShutdown})
		close(t.done)
		// The shutdown apply was the last publisher; the drain goroutine
		// flushes what is queued and exits.
		if t.notifyCh != nil {
			close(t.notifyCh)
		}
	})
}

// Snapshot reports the machine's state for status endpoints.
func (t *Tracker) Snapshot() (State, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.lastDomain
}

// apply is the single mutation path. The run loop is its only steady-state
// caller; Shutdown (and tests) take the same lock.
func (t *Tracker) apply(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}

	at := ev.At
	if at.IsZero() {
		at = t.clock.Now()
	}
	at = at.UTC()

	switch ev.Type {
	case EventTabActivated:
		t.handleTabActivated(NormalizeDomain(ev.Domain), at)
	case EventTick:
		t.handleTick(at)
	case EventIdle:
		t.handleIdle(at)
	case EventActive:
		t.handleActive(at)
	case EventShutdown:
		t.handleShutdown(at)
	default:
		log.Printf("tracker: ignoring unknown event type %q", ev.Type)
	}
}

func (t *Tracker) handleTabActivated(domain string, at time.Time) {
	if domain == "" {
		return
	}
	if t.state == StateTracking && t.current != nil && t.current.Domain == domain {
		// Re-activation on the tracked domain only re-anchors activity.
		// Ticks are the sole source of duration, so the slack since the
		// last tick is not credited; the next tick counts from here.
		t.lastActivity = at
		return
	}

	from := t.state
	if t.state == StateTracking && t.current != nil {
		t.finalizeCurrent(at)
	}
	if t.startOrResume(domain, at) {
		t.publish(from, StateTracking, domain, at)
	}
}

func (t *Tracker) handleTick(at time.Time) {
	if t.state != StateTracking || t.current == nil {
		return
	}

	elapsed := at.Sub(t.lastActivity)
	if elapsed <= 0 {
		return
	}

	// A gap beyond the threshold means the host slept; the gap itself was
	// not activity, so duration is credited only up to the last confirmed
	// tick.
	if elapsed > t.sleepGap {
		domain := t.current.Domain
		t.finalizeAt(t.lastActivity)
		t.state = StateSuspended
		t.publish(StateTracking, StateSuspended, domain, at)
		t.lastActivity = at
		return
	}

	if nowDate := models.UTCDateOf(at); nowDate != t.current.UTCDate {
		t.rolloverDay(at)
		t.lastActivity = at
		return
	}

	t.current.DurationSeconds += int64(elapsed / time.Second)
	t.current.UpdatedAt = at.UnixMilli()
	t.persistCurrent()
	t.lastActivity = at
}

// rolloverDay closes the record in its old utcDate bucket crediting the
// seconds before midnight, then opens a fresh record under the new date
// carrying only the post-midnight portion.
func (t *Tracker) rolloverDay(at time.Time) {
	midnight := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	domain := t.current.Domain

	if pre := midnight.Sub(t.lastActivity); pre > 0 {
		t.current.DurationSeconds += int64(pre / time.Second)
	}
	t.current.Status = models.StatusCompleted
	t.current.CurrentlyActive = false
	t.current.UpdatedAt = midnight.UnixMilli()
	t.persistCurrent()

	next := models.NewSessionRecord(domain, t.timezone, midnight)
	if post := at.Sub(midnight); post > 0 {
		next.DurationSeconds = int64(post / time.Second)
	}
	next.UpdatedAt = at.UnixMilli()
	t.current = next
	t.persistCurrent()
}

func (t *Tracker) handleIdle(at time.Time) {
	if t.state != StateTracking || t.current == nil {
		return
	}
	domain := t.current.Domain
	t.finalizeCurrent(at)
	t.state = StateSuspended
	t.lastActivity = at
	t.publish(StateTracking, StateSuspended, domain, at)
}

func (t *Tracker) handleActive(at time.Time) {
	if t.state != StateSuspended || t.lastDomain == "" {
		return
	}
	if t.startOrResume(t.lastDomain, at) {
		t.publish(StateSuspended, StateTracking, t.lastDomain, at)
	}
}

func (t *Tracker) handleShutdown(at time.Time) {
	from := t.state
	if t.state == StateTracking && t.current != nil {
		t.finalizeCurrent(at)
	}
	t.state = StateIdle
	t.stopped = true
	if from != StateIdle {
		t.publish(from, StateIdle, t.lastDomain, at)
	}
}

// startOrResume attaches to the existing active record for (domain, today)
// or opens a new one.
func (t *Tracker) startOrResume(domain string, at time.Time) bool {
	ctx := context.Background()
	existing, err := t.sessions.GetActiveSession(ctx, domain, models.UTCDateOf(at))
	if err != nil {
		log.Printf("tracker: failed to look up active session for %s: %v", domain, err)
		return false
	}

	if existing != nil {
		existing.Visits++
		existing.CurrentlyActive = true
		existing.UpdatedAt = at.UnixMilli()
		t.current = existing
	} else {
		t.current = models.NewSessionRecord(domain, t.timezone, at)
	}
	t.persistCurrent()

	t.state = StateTracking
	t.lastDomain = domain
	t.lastActivity = at
	return true
}

// finalizeCurrent completes the active record crediting time only through
// the last confirmed tick; the stretch since then was never confirmed.
func (t *Tracker) finalizeCurrent(at time.Time) {
	t.current.Status = models.StatusCompleted
	t.current.CurrentlyActive = false
	t.current.UpdatedAt = at.UnixMilli()
	t.persistCurrent()
	t.current = nil
}

// finalizeAt is finalizeCurrent with an explicit credit timestamp, used on
// sleep-gap detection where wall-clock "now" must not leak into updatedAt.
func (t *Tracker) finalizeAt(confirmed time.Time) {
	t.current.Status = models.StatusCompleted
	t.current.CurrentlyActive = false
	t.current.UpdatedAt = confirmed.UnixMilli()
	t.persistCurrent()
	t.current = nil
}

func (t *Tracker) persistCurrent() {
	if t.current == nil {
		return
	}
	if err := t.sessions.SaveSession(context.Background(), t.current); err != nil {
		log.Printf("tracker: failed to persist session %s: %v", t.current.ID, err)
	}
}

func (t *Tracker) publish(from, to State, domain string, at time.Time) {
	if t.notifyCh == nil {
		return
	}
	tr := Transition{From: from, To: to, Domain: domain, At: at.UnixMilli()}
	// Queued for the single drain goroutine, keeping delivery ordered
	// without letting a slow subscriber stall the event loop. A full
	// backlog drops the notification; transitions are advisory.
	select {
	case t.notifyCh <- tr:
	default:
		log.Printf("tracker: dropping transition notification, observer backlog full")
	}
}
