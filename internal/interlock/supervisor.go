package interlock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/safety-interlock/internal/alert"
	"github.com/sweeney/safety-interlock/internal/channelio"
	"github.com/sweeney/safety-interlock/internal/config"
	"github.com/sweeney/safety-interlock/internal/robot"
)

// SystemState is the derived global state: Limited iff at least one channel
// latch is set.
type SystemState int32

const (
	SystemNormal SystemState = iota
	SystemLimited
)

// String returns a human-readable state name.
func (s SystemState) String() string {
	if s == SystemLimited {
		return "limited"
	}
	return "normal"
}

// ErrHazardPresent is returned by Reset when a channel still physically
// meets its trigger condition, so recovery is refused.
var ErrHazardPresent = errors.New("safety condition still physically present")

// DefaultConfirmWait is how long an issued pause/resume command is given
// before run status is re-read to decide success.
const DefaultConfirmWait = 200 * time.Millisecond

// robotState tracks one supervised robot. lastJob is the job recorded
// immediately before this supervisor paused the robot; empty means "not
// paused by us". The message flags deduplicate success notifications within
// one Limited or Normal episode.
type robotState struct {
	id            int
	runStatus     robot.RunStatus
	lastJob       string
	sentLimited   bool
	sentRecovered bool
}

// Options configures a Supervisor. Channels, Robots, Alerts and Store are
// required. Now and Sleep are injectable for tests.
type Options struct {
	Channels channelio.Reader
	Robots   robot.Controller
	Alerts   alert.Reporter
	Store    *config.Store

	// RobotIDs is the fixed set of supervised robots. Defaults to {1, 2}.
	RobotIDs []int

	// ConfirmWait defaults to DefaultConfirmWait.
	ConfirmWait time.Duration

	Now   func() time.Time
	Sleep func(time.Duration)
}

// Supervisor owns all shared state: the channel registry, the robot table,
// the system state and the episode notification flags. One mutex serializes
// the monitor loop, configuration updates and manual resets. The system
// state is additionally readable without the lock but written only while it
// is held.
type Supervisor struct {
	channels channelio.Reader
	robots   robot.Controller
	alerts   alert.Reporter
	store    *config.Store

	confirmWait time.Duration
	now         func() time.Time
	sleep       func(time.Duration)

	mu    sync.Mutex
	table []channel
	speed int
	bots  []*robotState

	state atomic.Int32 // SystemState; written only under mu

	// One-shot-per-episode flags for the system-level alerts.
	limitedAnnounced bool
	normalAnnounced  bool
}

// New creates a Supervisor and eagerly initializes the state of every
// supervised robot.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		channels:    opts.Channels,
		robots:      opts.Robots,
		alerts:      opts.Alerts,
		store:       opts.Store,
		confirmWait: opts.ConfirmWait,
		now:         opts.Now,
		sleep:       opts.Sleep,
		table:       newTable(),
		speed:       config.DefaultLimitedSpeed,
	}
	if s.confirmWait == 0 {
		s.confirmWait = DefaultConfirmWait
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}

	ids := opts.RobotIDs
	if len(ids) == 0 {
		ids = []int{1, 2}
	}
	for _, id := range ids {
		b := &robotState{id: id}
		st, err := s.robots.RunStatus(id)
		if err != nil {
			log.Printf("interlock: initial status of robot %d unavailable: %v", id, err)
		} else {
			b.runStatus = st
		}
		s.bots = append(s.bots, b)
	}

	return s
}

// LoadConfig loads the persisted channel table and limited speed into the
// registry. Loaded entries go through the same validation as UpdateConfig;
// every latch starts clear, so a restart never inherits a trip.
func (s *Supervisor) LoadConfig() error {
	cfg, err := s.store.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.table = installEntries(cfg.Channels)
	s.speed = cfg.LimitedSpeed
	s.mu.Unlock()

	log.Printf("interlock: loaded %d channel(s), limited speed %d%%",
		len(cfg.Channels), cfg.LimitedSpeed)
	return nil
}

// State returns the current system state. Safe to call without the lock.
func (s *Supervisor) State() SystemState {
	return SystemState(s.state.Load())
}

// LimitedSpeed returns the configured limited speed percentage. The value is
// stored and reported only; the supervisor always does full pause/resume.
func (s *Supervisor) LimitedSpeed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Run polls the channels at the given interval until ctx is cancelled.
// Cancellation is observed at tick boundaries, never mid-actuation, and Run
// returns only after the in-flight tick has completed.
func (s *Supervisor) Run(ctx context.Context, poll time.Duration) {
	log.Printf("interlock: monitor loop started: poll=%v confirm=%v", poll, s.confirmWait)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("interlock: monitor loop stopped")
			return
		case <-ticker.C:
			s.step(s.now())
		}
	}
}

// step runs one tick: update latches from physical reads, derive the
// required state, act on a transition, refresh robot statuses.
func (s *Supervisor) step(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	anyLatched := s.evaluateChannelsLocked(now)

	required := SystemNormal
	if anyLatched {
		required = SystemLimited
	}
	s.transitionLocked(required)

	for _, b := range s.bots {
		if st, err := s.robots.RunStatus(b.id); err == nil {
			b.runStatus = st
		}
	}
}

// evaluateChannelsLocked reads every configured channel and updates its
// latch. Returns true if any latch is set afterwards.
//
// Latch rules: a physical read matching the trigger polarity sets the latch
// (new trips are logged, re-observations are not). A read not matching the
// polarity clears the latch only if the reset condition holds: no reset
// channel configured, or the reset channel reading asserted. A channel that
// still meets its trigger condition never un-latches on the same tick, even
// if its reset channel is asserted.
func (s *Supervisor) evaluateChannelsLocked(now time.Time) bool {
	anyLatched := false

	for i := range s.table {
		c := &s.table[i]
		if !c.configured {
			continue
		}

		value := s.readChannel(c.index)

		if c.tripsOn(value) {
			if !c.triggered {
				c.triggered = true
				c.triggerTime = now
				log.Printf("interlock: channel %d tripped (%s): trigger value %d, read %v",
					c.index, c.description, c.trigger, value)
			}
		} else if c.triggered {
			if s.resetSatisfied(c) {
				c.triggered = false
				c.triggerTime = time.Time{}
				log.Printf("interlock: channel %d reset (%s)", c.index, c.description)
			}
			// Trigger condition gone but reset channel not asserted:
			// the latch stays set.
		}

		if c.triggered {
			anyLatched = true
		}
	}

	return anyLatched
}

// resetSatisfied reports whether a latched channel whose trigger condition
// has cleared may un-latch.
func (s *Supervisor) resetSatisfied(c *channel) bool {
	if c.resetIndex == 0 {
		return true
	}
	return s.readChannel(c.resetIndex)
}

// readChannel reads one physical input, failing safe to false.
func (s *Supervisor) readChannel(index int) bool {
	if index < 0 || index > MaxChannel {
		log.Printf("interlock: read of invalid channel index %d", index)
		return false
	}
	v, err := s.channels.Read(index)
	if err != nil {
		log.Printf("interlock: read channel %d: %v", index, err)
		return false
	}
	return v
}

// transitionLocked stores the new state and performs transition actions:
// one system-level alert per episode, per-robot notification flag resets,
// then pause-all or resume-all.
func (s *Supervisor) transitionLocked(required SystemState) {
	current := s.State()
	if current == required {
		return
	}

	log.Printf("interlock: system state change: %s -> %s", current, required)
	s.state.Store(int32(required))

	if required == SystemLimited {
		if !s.limitedAnnounced {
			s.report(alert.SeverityTrip, "safety trip: system entering limited state, pausing robots")
			s.limitedAnnounced = true
			s.normalAnnounced = false
			for _, b := range s.bots {
				b.sentRecovered = false
			}
		}
		s.pauseAllLocked()
	} else {
		if !s.normalAnnounced {
			s.report(alert.SeverityInfo, "all safety latches cleared: system returning to normal")
			s.normalAnnounced = true
			s.limitedAnnounced = false
			for _, b := range s.bots {
				b.sentLimited = false
			}
		}
		s.resumeAllLocked()
	}
}

// pauseAllLocked pauses every running robot. The open job name is captured
// before pausing so the same job can be resumed later; success is decided by
// re-reading run status after the confirmation wait, never by the command's
// return value. Success notifications are deduplicated per episode; every
// failed pause is alerted.
func (s *Supervisor) pauseAllLocked() {
	log.Printf("interlock: pausing robots")

	for _, b := range s.bots {
		st, err := s.robots.RunStatus(b.id)
		if err != nil {
			log.Printf("interlock: status of robot %d unavailable, skipping pause: %v", b.id, err)
			continue
		}
		b.runStatus = st

		if st != robot.StatusRunning {
			// Already stopped or paused: nothing to pause, and the job is
			// not ours to resume.
			if !b.sentLimited {
				s.report(alert.SeverityInfo,
					fmt.Sprintf("safety trip: robot %d already %s, no pause needed", b.id, st))
				b.sentLimited = true
				b.sentRecovered = false
			}
			b.lastJob = ""
			continue
		}

		job, err := s.robots.OpenJob(b.id)
		if err != nil {
			log.Printf("interlock: open job of robot %d unavailable: %v", b.id, err)
		}
		b.lastJob = job

		if err := s.robots.PauseJob(b.id); err != nil {
			// Advisory only; confirmation below decides success.
			log.Printf("interlock: pause command for robot %d: %v", b.id, err)
		}

		s.sleep(s.confirmWait)

		confirmed, err := s.robots.RunStatus(b.id)
		if err == nil {
			b.runStatus = confirmed
		}

		if err == nil && confirmed == robot.StatusPaused {
			if !b.sentLimited {
				s.report(alert.SeverityTrip,
					fmt.Sprintf("safety trip: robot %d paused (job %q)", b.id, b.lastJob))
				b.sentLimited = true
				b.sentRecovered = false
			}
		} else {
			// Every failed pause attempt is independently actionable.
			s.report(alert.SeverityFailure,
				fmt.Sprintf("safety trip: robot %d did not confirm pause (status %s)", b.id, confirmed))
			b.lastJob = ""
		}
	}
}

// resumeAllLocked resumes every robot this supervisor paused, by re-issuing
// the recorded job. A paused robot without a recorded job was not paused by
// us and is never auto-resumed. Success notifications are deduplicated per
// episode; every failed resume is alerted and keeps the job for a future
// attempt.
func (s *Supervisor) resumeAllLocked() {
	log.Printf("interlock: resuming robots")

	for _, b := range s.bots {
		st, err := s.robots.RunStatus(b.id)
		if err != nil {
			log.Printf("interlock: status of robot %d unavailable, skipping resume: %v", b.id, err)
			continue
		}
		b.runStatus = st

		if st != robot.StatusPaused {
			// Already running or stopped: nothing to resume.
			if !b.sentRecovered {
				s.report(alert.SeverityInfo,
					fmt.Sprintf("safety cleared: robot %d already %s, no resume needed", b.id, st))
				b.sentRecovered = true
				b.sentLimited = false
			}
			b.lastJob = ""
			continue
		}

		if b.lastJob == "" {
			if !b.sentRecovered {
				s.report(alert.SeverityInfo,
					fmt.Sprintf("safety cleared: robot %d is paused with no recorded job, manual recovery required", b.id))
				b.sentRecovered = true
				b.sentLimited = false
			}
			continue
		}

		if err := s.robots.StartJob(b.lastJob); err != nil {
			log.Printf("interlock: start command for job %q: %v", b.lastJob, err)
		}

		s.sleep(s.confirmWait)

		confirmed, err := s.robots.RunStatus(b.id)
		if err == nil {
			b.runStatus = confirmed
		}

		if err == nil && confirmed == robot.StatusRunning {
			if !b.sentRecovered {
				s.report(alert.SeverityInfo,
					fmt.Sprintf("safety cleared: robot %d resumed job %q", b.id, b.lastJob))
				b.sentRecovered = true
				b.sentLimited = false
			}
			b.lastJob = ""
		} else {
			// Job is kept so the next Normal transition or manual reset can
			// try again.
			s.report(alert.SeverityFailure,
				fmt.Sprintf("safety cleared: robot %d did not confirm resume of job %q (status %s)",
					b.id, b.lastJob, confirmed))
		}
	}
}

// report delivers an operator alert, logging delivery failures.
func (s *Supervisor) report(sev alert.Severity, message string) {
	if err := s.alerts.Report(sev, message); err != nil {
		log.Printf("interlock: alert delivery failed (%s: %s): %v", sev, message, err)
	}
}

// UpdateConfig replaces the whole channel table and the limited speed.
// An out-of-range speed rejects the call; invalid entries are dropped or
// clamped individually. All latches start clear in the new table. The new
// configuration is active in memory even if persisting it fails - the error
// is returned so the caller knows the config is unsaved.
func (s *Supervisor) UpdateConfig(entries []config.Entry, limitedSpeed int) error {
	if limitedSpeed < 0 || limitedSpeed > 100 {
		return fmt.Errorf("limited speed %d out of range [0,100]", limitedSpeed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = installEntries(entries)
	s.speed = limitedSpeed
	log.Printf("interlock: channel configuration replaced (%d entries), limited speed %d%%",
		len(entries), limitedSpeed)

	if err := s.store.Save(s.persistedLocked()); err != nil {
		log.Printf("interlock: configuration active in memory but NOT saved: %v", err)
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// persistedLocked builds the persistence record from the registry.
func (s *Supervisor) persistedLocked() config.Config {
	cfg := config.Config{LimitedSpeed: s.speed}
	for i := range s.table {
		if s.table[i].configured {
			cfg.Channels = append(cfg.Channels, s.table[i].entry())
		}
	}
	return cfg
}

// Reset clears every latch and re-scans the live physical inputs. If no
// channel currently meets its trigger condition, a Limited system recovers
// immediately (resume-all runs without waiting for the next tick). If any
// channel is still physically tripped it is re-latched, the system is forced
// to Limited, an operator alert names the channel, and ErrHazardPresent is
// returned. A reset can therefore never resume while a hazard is present.
func (s *Supervisor) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("interlock: manual reset requested")
	now := s.now()

	for i := range s.table {
		c := &s.table[i]
		if c.configured && c.triggered {
			c.triggered = false
			c.triggerTime = time.Time{}
			log.Printf("interlock: reset cleared latch of channel %d (%s)", c.index, c.description)
		}
	}

	// Re-scan live values: latches were cleared, but a hazard that is still
	// physically present must immediately re-latch.
	stillTripped := -1
	stillTrippedDesc := ""
	for i := range s.table {
		c := &s.table[i]
		if !c.configured {
			continue
		}
		if c.tripsOn(s.readChannel(c.index)) {
			if stillTripped < 0 {
				stillTripped = c.index
				stillTrippedDesc = c.description
			}
			if !c.triggered {
				c.triggered = true
				c.triggerTime = now
				log.Printf("interlock: reset denied, channel %d still tripped, re-latching", c.index)
			}
		}
	}

	if stillTripped < 0 {
		if s.State() == SystemLimited {
			log.Printf("interlock: all safety conditions clear, recovering")
			s.transitionLocked(SystemNormal)
		} else {
			log.Printf("interlock: system already normal, latches cleared")
		}
		return nil
	}

	s.report(alert.SeverityActionRequired,
		fmt.Sprintf("reset refused: channel %d (%s) still meets its trigger condition", stillTripped, stillTrippedDesc))

	if s.State() != SystemLimited {
		// Robots were already paused when the system entered Limited; if it
		// somehow was not, the next tick re-runs the transition actions.
		s.state.Store(int32(SystemLimited))
	}

	return fmt.Errorf("channel %d: %w", stillTripped, ErrHazardPresent)
}

// RobotStatus is a point-in-time view of one supervised robot.
type RobotStatus struct {
	ID        int
	RunStatus robot.RunStatus
	LastJob   string
}

// Snapshot is a point-in-time view of the supervisor state.
// It is a value type - safe to use after the lock is released.
type Snapshot struct {
	State        SystemState
	LimitedSpeed int
	Channels     []ChannelStatus
	Robots       []RobotStatus
}

// Snapshot returns every configured channel with its latch state at the
// instant of the call, plus the robot table and system state.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:        s.State(),
		LimitedSpeed: s.speed,
	}
	for i := range s.table {
		c := &s.table[i]
		if !c.configured {
			continue
		}
		snap.Channels = append(snap.Channels, ChannelStatus{
			Entry:       c.entry(),
			Triggered:   c.triggered,
			TriggerTime: c.triggerTime,
		})
	}
	for _, b := range s.bots {
		snap.Robots = append(snap.Robots, RobotStatus{
			ID:        b.id,
			RunStatus: b.runStatus,
			LastJob:   b.lastJob,
		})
	}
	return snap
}
