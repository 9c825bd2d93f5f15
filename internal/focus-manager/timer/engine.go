package timer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"focus-time-service/internal/focus-manager/db"
)

// DefaultGraceDelay is how long a completed task stays visible in the engine
// before its state is cleared.
const DefaultGraceDelay = 2 * time.Second

// Engine owns the single currently-active task: its live countdown, the
// schedule-anchored elapsed-time reconciliation and all status transitions.
//
// Every transition and the per-second tick run under one mutex, so the
// read-modify-write of active/elapsedSeconds never interleaves. Calls to the
// session notifier are dispatched on short-lived goroutines and are not part
// of the serialized section.
type Engine struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	repo    TaskSaver
	session SessionNotifier

	graceDelay time.Duration

	active         *db.TaskRecord
	elapsedSeconds int
	sessionAnchor  time.Time

	tickStop   chan struct{}
	clearTimer clockwork.Timer
	// generation invalidates deferred grace clears from superseded sessions.
	generation uint64

	listeners []func(Snapshot)
}

type Option func(*Engine)

// WithClock substitutes the wall clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithGraceDelay overrides the post-completion clear delay.
func WithGraceDelay(d time.Duration) Option {
	return func(e *Engine) { e.graceDelay = d }
}

func NewEngine(repo TaskSaver, session SessionNotifier, opts ...Option) *Engine {
	e := &Engine{
		clock:      clockwork.NewRealClock(),
		repo:       repo,
		session:    session,
		graceDelay: DefaultGraceDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers a change-feed listener. Listeners are invoked
// synchronously under the engine lock on every mutation and must not call
// back into the engine.
func (e *Engine) Subscribe(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Start makes task the sole active task. Any previously active task is first
// returned to the scheduled pool. With reset set the countdown starts from
// zero; otherwise elapsed time is re-derived from the schedule window, and a
// task whose window is already fully consumed completes immediately instead
// of ticking.
func (e *Engine) Start(task *db.TaskRecord, reset bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelPendingClearLocked()
	if e.active != nil {
		e.stopActiveLocked()
	}
	e.generation++

	now := e.clock.Now()
	spent := 0
	if !reset {
		spent = AlreadySpentMinutes(task, now)
	}

	task.SetStatus(db.StatusInProgress)
	startedAt := now
	task.ActualStartTime = &startedAt
	e.persistLocked(task)

	e.active = task
	e.elapsedSeconds = spent * 60
	e.sessionAnchor = now.Add(-time.Duration(e.elapsedSeconds) * time.Second)

	remaining := time.Duration(task.DurationMinutes-spent) * time.Minute
	mode := string(task.TaskType())
	if task.TaskType() == db.TypeUnknown {
		mode = string(PhaseFocus)
	}
	session := e.session
	activeTask := task
	go session.ActivateSession(mode, remaining, activeTask)

	e.emitLocked()

	capSeconds := task.DurationMinutes * 60
	if e.elapsedSeconds >= capSeconds {
		log.Printf("timer: task %s started with window already consumed (%d/%ds), completing immediately",
			task.UUID, e.elapsedSeconds, capSeconds)
		e.elapsedSeconds = capSeconds
		e.completeLocked(true)
		return
	}
	e.startTickLoopLocked()
}

// Pause freezes the countdown without clearing engine state. Silently
// no-ops unless a task is actively in progress.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.active.Status() != db.StatusInProgress {
		return
	}
	e.stopTickLoopLocked()
	e.active.SetStatus(db.StatusPaused)
	e.persistLocked(e.active)

	remaining := time.Duration(e.remainingSecondsLocked()) * time.Second
	progress := e.progressLocked()
	session := e.session
	go session.UpdateProgress(remaining, progress, PhasePaused, false)

	e.emitLocked()
}

// Resume restarts a paused task. Elapsed time is re-derived from the
// schedule window, not carried over from the paused counter: a task paused
// early and resumed late jumps forward to wherever the wall clock says the
// window stands. The recomputed value is intentionally not clamped here; if
// it overshoots the cap, the next tick clamps it and completes the task.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.active.Status() != db.StatusPaused {
		return
	}
	now := e.clock.Now()
	e.active.SetStatus(db.StatusInProgress)
	spent := AlreadySpentMinutes(e.active, now)
	e.elapsedSeconds = spent * 60
	e.sessionAnchor = now.Add(-time.Duration(e.elapsedSeconds) * time.Second)
	e.persistLocked(e.active)

	remaining := time.Duration(e.remainingSecondsLocked()) * time.Second
	progress := e.progressLocked()
	session := e.session
	go session.UpdateProgress(remaining, progress, PhaseFocus, true)

	e.emitLocked()
	e.startTickLoopLocked()
}

// Complete is the user-initiated completion. No-ops without an active task.
func (e *Engine) Complete() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return
	}
	e.completeLocked(false)
}

// Stop returns the active task, if any, to the scheduled pool and clears
// engine state unconditionally. Safe to call with nothing active.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelPendingClearLocked()
	e.generation++
	e.stopActiveLocked()
	e.emitLocked()
}

// stopActiveLocked persists the active task back to scheduled, tears down
// the session and resets engine state.
func (e *Engine) stopActiveLocked() {
	if e.active != nil {
		// A completed task caught inside the grace window stays completed.
		if e.active.Status() != db.StatusCompleted {
			e.active.SetStatus(db.StatusScheduled)
			e.persistLocked(e.active)
		}
		session := e.session
		go session.DeactivateSession()
	}
	e.stopTickLoopLocked()
	e.active = nil
	e.elapsedSeconds = 0
	e.sessionAnchor = time.Time{}
}

// completeLocked is the shared completion sequence for user-initiated and
// automatic completion: persist terminal state, notify at 100%, then clear
// engine state after the grace delay unless a new session supersedes it.
func (e *Engine) completeLocked(auto bool) {
	e.stopTickLoopLocked()

	task := e.active
	task.SetStatus(db.StatusCompleted)
	e.persistLocked(task)
	if auto {
		log.Printf("timer: task %s auto-completed after consuming its window", task.UUID)
	} else {
		log.Printf("timer: task %s completed by user", task.UUID)
	}

	session := e.session
	go session.UpdateProgress(0, 1.0, PhaseCompleted, false)

	e.emitLocked()

	gen := e.generation
	e.clearTimer = e.clock.AfterFunc(e.graceDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.generation != gen {
			return
		}
		e.clearTimer = nil
		e.active = nil
		e.elapsedSeconds = 0
		e.sessionAnchor = time.Time{}
		e.emitLocked()
	})
}

// tick advances the live counter by one second. It is a no-op unless a task
// is actively in progress, never pushes the counter past the duration cap,
// and hands over to the completion sequence the moment the cap is reached.
func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.active.Status() != db.StatusInProgress {
		return
	}
	capSeconds := e.active.DurationMinutes * 60
	if e.elapsedSeconds < capSeconds {
		e.elapsedSeconds++
	}
	if e.elapsedSeconds >= capSeconds {
		e.elapsedSeconds = capSeconds
		e.completeLocked(true)
		return
	}

	remaining := time.Duration(e.remainingSecondsLocked()) * time.Second
	progress := e.progressLocked()
	session := e.session
	go session.UpdateProgress(remaining, progress, PhaseFocus, true)

	e.emitLocked()
}

func (e *Engine) startTickLoopLocked() {
	if e.tickStop != nil {
		return
	}
	stop := make(chan struct{})
	e.tickStop = stop
	go func() {
		ticker := e.clock.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				e.tick()
			}
		}
	}()
}

func (e *Engine) stopTickLoopLocked() {
	if e.tickStop != nil {
		close(e.tickStop)
		e.tickStop = nil
	}
}

func (e *Engine) cancelPendingClearLocked() {
	if e.clearTimer != nil {
		e.clearTimer.Stop()
		e.clearTimer = nil
	}
}

// persistLocked saves the task and swallows failures: the in-memory engine
// state stays authoritative for the running session either way.
func (e *Engine) persistLocked(task *db.TaskRecord) {
	if err := e.repo.Save(task); err != nil {
		log.Printf("timer: failed to persist task %s (in-memory state remains authoritative): %v", task.UUID, err)
	}
}

func (e *Engine) emitLocked() {
	snap := e.snapshotLocked()
	for _, fn := range e.listeners {
		fn(snap)
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{ElapsedSeconds: e.elapsedSeconds}
	if e.active != nil {
		snap.TaskUUID = e.active.UUID
		snap.Status = e.active.Status()
	}
	return snap
}

func (e *Engine) remainingSecondsLocked() int {
	if e.active == nil {
		return 0
	}
	remaining := e.active.DurationMinutes*60 - e.elapsedSeconds
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (e *Engine) progressLocked() float64 {
	if e.active == nil || e.active.DurationMinutes <= 0 {
		return 0
	}
	progress := float64(e.elapsedSeconds) / float64(e.active.DurationMinutes*60)
	if progress > 1 {
		return 1
	}
	if progress < 0 {
		return 0
	}
	return progress
}

// ActiveTask returns the currently active record, or nil.
func (e *Engine) ActiveTask() *db.TaskRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// CurrentSnapshot returns the change-feed view of the engine right now.
func (e *Engine) CurrentSnapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) ElapsedSeconds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsedSeconds
}

func (e *Engine) ElapsedMinutes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsedSeconds / 60
}

func (e *Engine) RemainingSeconds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remainingSecondsLocked()
}

func (e *Engine) RemainingMinutes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remainingSecondsLocked() / 60
}

// Progress is the consumed fraction of the planned duration, clamped to [0,1].
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progressLocked()
}

// Overtime reports whether the live counter stands past the duration cap.
// Ticks clamp at the cap and the schedule recompute cannot exceed it, so
// this is a guard for externally mutated records rather than a state the
// engine reaches on its own.
func (e *Engine) Overtime() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return false
	}
	return e.elapsedSeconds > e.active.DurationMinutes*60
}

// ElapsedDisplay renders the live counter as mm:ss.
func (e *Engine) ElapsedDisplay() string {
	return FormatClock(e.ElapsedSeconds())
}

// RemainingDisplay renders the live countdown as mm:ss.
func (e *Engine) RemainingDisplay() string {
	return FormatClock(e.RemainingSeconds())
}

// StatusText is the human-readable countdown line.
func (e *Engine) StatusText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return "no active task"
	}
	capSeconds := e.active.DurationMinutes * 60
	if e.elapsedSeconds > capSeconds {
		return fmt.Sprintf("%s overtime", FormatClock(e.elapsedSeconds-capSeconds))
	}
	return fmt.Sprintf("%s remaining", FormatClock(capSeconds-e.elapsedSeconds))
}
