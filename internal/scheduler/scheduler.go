// Package scheduler provides a persistent, crash-recoverable job
// scheduler with two primitives: daily recurring jobs and one-shot
// immediate jobs. Jobs survive restarts in the shared SQLite database,
// and a single worker goroutine executes every job serially.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/pronovic/vplan/internal/store"
)

// RunFunc is the job target. It receives the plan name and location
// captured when the job was scheduled. Outcomes are not interpreted
// here: jobs run unattended and the target handles its own failures.
type RunFunc func(ctx context.Context, planName, location string)

// Kind distinguishes the two job primitives.
type Kind string

const (
	KindDaily     Kind = "daily"
	KindImmediate Kind = "immediate"
)

// Job is a persisted scheduled job.
type Job struct {
	ID          string
	Kind        Kind
	PlanName    string
	Location    string
	TriggerTime string // HH:MM, daily jobs only
	TimeZone    string // daily jobs only
	CreatedAt   time.Time
}

// Config controls scheduler timing behavior.
type Config struct {
	DailyJitter  time.Duration // random delay added to each daily occurrence
	MisfireGrace time.Duration // how late a missed daily run may still fire at boot
}

type dailyEntry struct {
	job      Job
	schedule cron.Schedule
	next     time.Time
}

// Scheduler fires persistent jobs on a timer. Execution is restricted
// to one worker by construction: the run loop is the only goroutine
// that invokes the target, so no two jobs are ever in flight at once.
type Scheduler struct {
	db     *sql.DB
	run    RunFunc
	jitter time.Duration
	grace  time.Duration

	mu      sync.Mutex
	daily   map[string]*dailyEntry
	pending []Job
	wake    chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler backed by the shared database.
func New(db *store.DB, run RunFunc, cfg Config) *Scheduler {
	return &Scheduler{
		db:     db.DB,
		run:    run,
		jitter: cfg.DailyJitter,
		grace:  cfg.MisfireGrace,
		daily:  make(map[string]*dailyEntry),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start recovers persisted jobs and launches the run loop. Daily jobs
// whose occurrence was missed by less than the misfire grace run once
// immediately; immediate jobs that never executed are re-queued.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs, err := s.loadJobs()
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}

	now := time.Now()
	s.mu.Lock()
	for _, job := range jobs {
		switch job.Kind {
		case KindImmediate:
			s.pending = append(s.pending, job)
			log.Info().Str("job", job.ID).Msg("Recovered pending immediate job")
		case KindDaily:
			schedule, err := parseDailyTrigger(job.TriggerTime, job.TimeZone)
			if err != nil {
				log.Error().Err(err).Str("job", job.ID).Msg("Dropping unparseable daily job")
				continue
			}
			entry := &dailyEntry{job: job, schedule: schedule, next: s.nextOccurrence(schedule, now)}
			s.daily[job.ID] = entry
			if s.missedOccurrence(job, schedule, now) {
				log.Info().Str("job", job.ID).Msg("Daily job missed within grace, running at boot")
				s.pending = append(s.pending, job)
			}
		}
	}
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.loop(runCtx)

	log.Info().Int("daily", len(s.daily)).Int("pending", len(s.pending)).Msg("Scheduler started")
	return nil
}

// Shutdown stops the run loop and waits for any in-flight job.
func (s *Scheduler) Shutdown() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// ScheduleDaily creates or replaces a daily job. Scheduling under an
// existing id atomically supersedes the prior definition.
func (s *Scheduler) ScheduleDaily(jobID, planName, location, triggerTime, timeZone string) error {
	schedule, err := parseDailyTrigger(triggerTime, timeZone)
	if err != nil {
		return err
	}
	job := Job{
		ID:          jobID,
		Kind:        KindDaily,
		PlanName:    planName,
		Location:    location,
		TriggerTime: triggerTime,
		TimeZone:    timeZone,
		CreatedAt:   time.Now(),
	}
	if err := s.saveJob(job); err != nil {
		return err
	}

	s.mu.Lock()
	s.daily[jobID] = &dailyEntry{job: job, schedule: schedule, next: s.nextOccurrence(schedule, time.Now())}
	s.mu.Unlock()
	s.notify()

	log.Info().Str("job", jobID).Str("at", triggerTime).Str("zone", timeZone).Msg("Scheduled daily job")
	return nil
}

// UnscheduleDaily removes a daily job. Removing a missing id is a no-op.
func (s *Scheduler) UnscheduleDaily(jobID string) error {
	if err := s.deleteJob(jobID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.daily, jobID)
	s.mu.Unlock()
	s.notify()
	return nil
}

// ScheduleImmediate queues a one-shot job that runs as soon as the
// worker is free. The job is persisted until it executes, so a crash
// before execution is recovered at the next start.
func (s *Scheduler) ScheduleImmediate(jobID, planName, location string) error {
	job := Job{
		ID:        jobID,
		Kind:      KindImmediate,
		PlanName:  planName,
		Location:  location,
		CreatedAt: time.Now(),
	}
	if err := s.saveJob(job); err != nil {
		return err
	}

	s.mu.Lock()
	s.pending = append(s.pending, job)
	s.mu.Unlock()
	s.notify()

	log.Info().Str("job", jobID).Msg("Scheduled immediate job")
	return nil
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// loop is the single worker: it drains pending jobs, then sleeps until
// the earliest daily occurrence or the next wake signal.
func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	for {
		if job, ok := s.takePending(); ok {
			s.execute(ctx, job)
			continue
		}

		entry := s.earliestDaily()
		wait := time.Hour
		if entry != nil {
			wait = time.Until(entry.next)
			if wait < 0 {
				wait = 0
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
			if entry != nil && s.advance(entry) {
				s.execute(ctx, entry.job)
			}
		}
	}
}

func (s *Scheduler) takePending() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return Job{}, false
	}
	job := s.pending[0]
	s.pending = s.pending[1:]
	return job, true
}

func (s *Scheduler) earliestDaily() *dailyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var earliest *dailyEntry
	for _, entry := range s.daily {
		if earliest == nil || entry.next.Before(earliest.next) {
			earliest = entry
		}
	}
	return earliest
}

// advance confirms the entry is still scheduled and due, and rolls its
// next occurrence (with fresh jitter). A false return means the job was
// replaced or removed while the timer was sleeping.
func (s *Scheduler) advance(entry *dailyEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.daily[entry.job.ID]
	if !ok || current != entry || time.Now().Before(entry.next) {
		return false
	}
	entry.next = s.nextOccurrence(entry.schedule, time.Now())
	return true
}

func (s *Scheduler) execute(ctx context.Context, job Job) {
	log.Info().Str("job", job.ID).Str("plan", job.PlanName).Msg("Executing job")
	s.run(ctx, job.PlanName, job.Location)

	switch job.Kind {
	case KindImmediate:
		if err := s.deleteJob(job.ID); err != nil {
			log.Error().Err(err).Str("job", job.ID).Msg("Failed to remove completed immediate job")
		}
	case KindDaily:
		if err := s.recordCompletion(job.ID, time.Now()); err != nil {
			log.Error().Err(err).Str("job", job.ID).Msg("Failed to record daily job completion")
		}
	}
}

// nextOccurrence computes the next fire time for a daily schedule, with
// random jitter so runs do not land at the exact same instant every day.
func (s *Scheduler) nextOccurrence(schedule cron.Schedule, after time.Time) time.Time {
	next := schedule.Next(after)
	if s.jitter > 0 {
		next = next.Add(time.Duration(rand.Int64N(int64(s.jitter))))
	}
	return next
}

// missedOccurrence reports whether a daily job has an occurrence that
// fell after its last completion (or creation) and within the grace
// window behind now.
func (s *Scheduler) missedOccurrence(job Job, schedule cron.Schedule, now time.Time) bool {
	prev := prevOccurrence(schedule, now)
	if prev.IsZero() || now.Sub(prev) > s.grace {
		return false
	}
	baseline := job.CreatedAt
	if completed, err := s.lastCompletion(job.ID); err == nil && completed.After(baseline) {
		baseline = completed
	}
	return prev.After(baseline)
}

// prevOccurrence walks forward from two days back to find the last
// occurrence at or before now. cron schedules only expose Next.
func prevOccurrence(schedule cron.Schedule, now time.Time) time.Time {
	var prev time.Time
	t := now.Add(-48 * time.Hour)
	for {
		next := schedule.Next(t)
		if next.IsZero() || next.After(now) {
			return prev
		}
		prev = next
		t = next
	}
}

// parseDailyTrigger builds a cron schedule for an HH:MM time of day in
// a named time zone.
func parseDailyTrigger(triggerTime, timeZone string) (cron.Schedule, error) {
	parts := strings.Split(strings.TrimSpace(triggerTime), ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid trigger time %q: expected HH:MM", triggerTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid trigger time %q: bad hour", triggerTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid trigger time %q: bad minute", triggerTime)
	}
	if timeZone == "" {
		timeZone = "UTC"
	}
	spec := fmt.Sprintf("CRON_TZ=%s %d %d * * *", timeZone, minute, hour)
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid daily trigger %s %s: %w", triggerTime, timeZone, err)
	}
	return schedule, nil
}
