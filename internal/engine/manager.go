// Package engine implements the reconciliation engine and the manager
// operations exposed to the REST layer: scheduling refresh jobs,
// converging remote rules with local plan state, validating plans
// against the live provider, and direct device control.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pronovic/vplan/internal/model"
	"github.com/pronovic/vplan/internal/smartthings"
	"github.com/pronovic/vplan/internal/store"
)

// Jobs is the scheduler surface the manager needs.
type Jobs interface {
	ScheduleDaily(jobID, planName, location, triggerTime, timeZone string) error
	UnscheduleDaily(jobID string) error
	ScheduleImmediate(jobID, planName, location string) error
}

// Manager orchestrates the store, the scheduler and the provider client.
type Manager struct {
	store       *store.Store
	jobs        Jobs
	clientCfg   smartthings.Config
	toggleDelay time.Duration
}

// New creates a manager. clientCfg is used to build one provider client
// per run from the stored account token.
func New(st *store.Store, jobs Jobs, clientCfg smartthings.Config, toggleDelay time.Duration) *Manager {
	return &Manager{
		store:       st,
		jobs:        jobs,
		clientCfg:   clientCfg,
		toggleDelay: toggleDelay,
	}
}

func (m *Manager) client(token string) *smartthings.Client {
	return smartthings.NewClient(token, m.clientCfg)
}

// ScheduleDailyRefresh creates or replaces the daily refresh job for a
// plan.
func (m *Manager) ScheduleDailyRefresh(planName, location, refreshTime, timeZone string) error {
	return m.jobs.ScheduleDaily("daily/"+planName, planName, location, refreshTime, timeZone)
}

// UnscheduleDailyRefresh removes any existing daily refresh job.
func (m *Manager) UnscheduleDailyRefresh(planName string) error {
	return m.jobs.UnscheduleDaily("daily/" + planName)
}

// ScheduleImmediateRefresh queues a one-shot refresh to run now.
func (m *Manager) ScheduleImmediateRefresh(planName, location string) error {
	jobID := "immediate/" + planName + "/" + uuid.NewString()
	return m.jobs.ScheduleImmediate(jobID, planName, location)
}

// RefreshPlan converges the remote rule set with local plan state. It is
// the scheduler's job target and never reports failure upward: jobs run
// unattended, so every error, panics included, is logged and swallowed
// here.
//
// The location argument was captured when the job was scheduled. If the
// stored plan has since moved to another location, the target set for
// the captured location is empty, which clears the stale rules there.
func (m *Manager) RefreshPlan(ctx context.Context, planName, location string) {
	logger := log.With().Str("plan", planName).Str("location", location).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Refresh panicked")
			refreshFailures.Inc()
		}
	}()
	logger.Info().Msg("Refreshing plan")
	refreshRuns.Inc()

	account, err := m.store.Account()
	if errors.Is(err, store.ErrNotFound) {
		logger.Error().Msg("Account not found; refresh cannot proceed")
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Refresh failed")
		refreshFailures.Inc()
		return
	}

	doc, err := m.targetPlan(planName, location, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Refresh failed")
		refreshFailures.Inc()
		return
	}

	lctx, err := m.client(account.PatToken).NewLocationContext(ctx, location)
	if err != nil {
		logger.Error().Err(err).Msg("Refresh failed")
		refreshFailures.Inc()
		return
	}

	var rules []smartthings.Rule
	if doc != nil {
		rules, err = smartthings.BuildPlanRules(lctx, &doc.Plan)
		if err != nil {
			logger.Error().Err(err).Msg("Refresh failed")
			refreshFailures.Inc()
			return
		}
	}

	if err := smartthings.ReplaceRules(ctx, lctx, planName, rules); err != nil {
		logger.Error().Err(err).Msg("Refresh failed")
		refreshFailures.Inc()
		return
	}

	rulesReplaced.Add(len(rules))
	logger.Info().Int("rules", len(rules)).Msg("Completed refreshing plan")
}

// targetPlan loads the plan that should drive the target rule set. A
// nil result with nil error means the target set is empty: the plan is
// gone, disabled, or has moved to a different location.
func (m *Manager) targetPlan(planName, location string, logger zerolog.Logger) (*model.PlanDocument, error) {
	enabled, err := m.store.PlanEnabled(planName)
	if errors.Is(err, store.ErrNotFound) {
		logger.Info().Msg("Plan not found; treating as disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}

	doc, err := m.store.Plan(planName)
	if errors.Is(err, store.ErrNotFound) {
		logger.Info().Msg("Plan not found; treating as disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if doc.Plan.Location != location {
		logger.Info().Msg("Plan location does not match job location; treating as disabled")
		return nil, nil
	}
	return &doc, nil
}

// ValidatePlan checks a plan against the live provider: every device it
// references must resolve and every trigger must translate to a rule.
// Called before a plan is persisted so a bad plan is rejected up front.
func (m *Manager) ValidatePlan(ctx context.Context, doc *model.PlanDocument) error {
	account, err := m.store.Account()
	if errors.Is(err, store.ErrNotFound) {
		return model.Invalid("no account is configured; set the account before managing plans")
	}
	if err != nil {
		return err
	}
	lctx, err := m.client(account.PatToken).NewLocationContext(ctx, doc.Plan.Location)
	if err != nil {
		return err
	}
	_, err = smartthings.BuildPlanRules(lctx, &doc.Plan)
	return err
}

// SetDeviceState switches a set of plan devices on or off directly,
// bypassing rule building.
func (m *Manager) SetDeviceState(ctx context.Context, patToken, location string, devices []model.Device, state model.SwitchState) error {
	lctx, err := m.client(patToken).NewLocationContext(ctx, location)
	if err != nil {
		return err
	}
	return setAll(ctx, lctx, devices, state)
}

// ToggleDevices switches a group of devices on and off a number of
// times, pausing between half-cycles. Toggling too quickly is
// unreliable even for local devices, so the delay should be generous.
func (m *Manager) ToggleDevices(ctx context.Context, patToken, location string, devices []model.Device, toggles int) error {
	lctx, err := m.client(patToken).NewLocationContext(ctx, location)
	if err != nil {
		return err
	}
	for cycle := 0; cycle < toggles; cycle++ {
		if cycle > 0 {
			if err := sleep(ctx, m.toggleDelay); err != nil {
				return err
			}
		}
		if err := setAll(ctx, lctx, devices, model.SwitchOn); err != nil {
			return err
		}
		if err := sleep(ctx, m.toggleDelay); err != nil {
			return err
		}
		if err := setAll(ctx, lctx, devices, model.SwitchOff); err != nil {
			return err
		}
	}
	return nil
}

func setAll(ctx context.Context, lctx *smartthings.LocationContext, devices []model.Device, state model.SwitchState) error {
	for _, device := range devices {
		if err := smartthings.SetSwitch(ctx, lctx, device, state); err != nil {
			return err
		}
		deviceToggles.Inc()
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
