// Package scheduler drives the periodic reminder and escalation scan over
// open hires. Each one-shot flag is persisted only after the notification is
// on its way, and the flag write re-checks the precondition so two racing
// passes cannot both send.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hiretrack/internal/hire/models"
	"hiretrack/internal/notify"
	"hiretrack/internal/platform/clock"
	"hiretrack/internal/platform/metrics"
)

// Store is the slice of persistence the scheduler needs.
type Store interface {
	ListOpen(ctx context.Context) ([]*models.Hire, error)
	SetReminderFlag(ctx context.Context, code string, kind models.ReminderKind) (bool, error)
}

// Config carries the reminder thresholds and pass cadence.
type Config struct {
	LegalReminderDays  int
	DevopsReminderDays int
	EscalationHours    int
	TickInterval       time.Duration
	NotifyTimeout      time.Duration
	ChannelID          int64
}

// Scheduler scans open hires on a fixed interval and emits due reminders and
// escalations through the notifier.
type Scheduler struct {
	store    Store
	notifier notify.Notifier
	clock    clock.Clock
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New wires a scheduler. It does not start ticking until Run is called.
func New(store Store, notifier notify.Notifier, clk clock.Clock, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		notifier: notifier,
		clock:    clk,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Run ticks until ctx is cancelled. A pass that is in flight when the stop
// arrives runs to completion, so no hire is left half-processed.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.logger.Info("reminder scheduler started", "interval", s.cfg.TickInterval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunPass(context.WithoutCancel(ctx))
		}
	}
}

// RunPass executes one full scan. Failures are isolated per hire; one broken
// record or slow delivery never blocks the rest of the pass.
func (s *Scheduler) RunPass(ctx context.Context) {
	start := time.Now()
	defer func() {
		s.metrics.SchedulerPassSeconds.Observe(time.Since(start).Seconds())
	}()

	hires, err := s.store.ListOpen(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "reminder pass aborted, cannot list open hires", "error", err)
		return
	}

	for _, hire := range hires {
		s.metrics.HiresProcessed.Inc()
		days := clock.DaysUntil(s.clock.Now(), hire.StartDate)

		if err := s.checkLegalReminder(ctx, hire, days); err != nil {
			s.logger.ErrorContext(ctx, "legal reminder failed", "code", hire.Code, "error", err)
		}
		if err := s.checkDevopsReminder(ctx, hire, days); err != nil {
			s.logger.ErrorContext(ctx, "devops reminder failed", "code", hire.Code, "error", err)
		}
		if err := s.checkEscalation(ctx, hire, days); err != nil {
			s.logger.ErrorContext(ctx, "escalation failed", "code", hire.Code, "error", err)
		}
	}
}

func (s *Scheduler) checkLegalReminder(ctx context.Context, hire *models.Hire, daysLeft int) error {
	if hire.LegalStatus != models.LegalPending || hire.LegalReminded {
		return nil
	}
	if daysLeft <= 0 || daysLeft > s.cfg.LegalReminderDays {
		return nil
	}

	text := legalReminderText(hire, daysLeft)
	if err := s.sendChannel(ctx, text); err != nil {
		s.metrics.IncrementNotifyFailure("legal")
		return fmt.Errorf("deliver legal reminder: %w", err)
	}
	s.sendAssigneeCopy(ctx, hire.Legal, text)

	set, err := s.store.SetReminderFlag(ctx, hire.Code, models.ReminderLegal)
	if err != nil {
		return fmt.Errorf("mark legal reminded: %w", err)
	}
	if !set {
		// Another pass or instance flagged this hire after we scanned it.
		return nil
	}
	s.metrics.IncrementReminder("legal")
	s.logger.InfoContext(ctx, "legal reminder sent", "code", hire.Code, "days_until_start", daysLeft)
	return nil
}

func (s *Scheduler) checkDevopsReminder(ctx context.Context, hire *models.Hire, daysLeft int) error {
	if hire.DevOpsStatus != models.DevOpsPending || hire.DevOpsReminded {
		return nil
	}
	if daysLeft <= 0 || daysLeft > s.cfg.DevopsReminderDays {
		return nil
	}

	text := devopsReminderText(hire, daysLeft)
	if err := s.sendChannel(ctx, text); err != nil {
		s.metrics.IncrementNotifyFailure("devops")
		return fmt.Errorf("deliver devops reminder: %w", err)
	}
	s.sendAssigneeCopy(ctx, hire.DevOps, text)

	set, err := s.store.SetReminderFlag(ctx, hire.Code, models.ReminderDevOps)
	if err != nil {
		return fmt.Errorf("mark devops reminded: %w", err)
	}
	if !set {
		return nil
	}
	s.metrics.IncrementReminder("devops")
	s.logger.InfoContext(ctx, "devops reminder sent", "code", hire.Code, "days_until_start", daysLeft)
	return nil
}

func (s *Scheduler) checkEscalation(ctx context.Context, hire *models.Hire, daysLeft int) error {
	if hire.Escalated || daysLeft >= 0 {
		return nil
	}
	// Leader acknowledgement never gates escalation; only the two
	// deliverable tracks count as unfinished work.
	if hire.LegalStatus != models.LegalPending && hire.DevOpsStatus != models.DevOpsPending {
		return nil
	}
	daysOverdue := -daysLeft
	// Overdue time is day granular while the threshold is configured in hours.
	if daysOverdue*24 < s.cfg.EscalationHours {
		return nil
	}

	if err := s.sendChannel(ctx, escalationText(hire, daysOverdue)); err != nil {
		s.metrics.IncrementNotifyFailure("escalation")
		return fmt.Errorf("deliver escalation: %w", err)
	}

	// Best effort, the creator may be unreachable by direct message.
	dmCtx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
	if err := s.notifier.SendDirect(dmCtx, hire.CreatorID, escalationCreatorText(hire)); err != nil {
		s.logger.DebugContext(ctx, "creator escalation dm failed", "code", hire.Code, "creator_id", hire.CreatorID, "error", err)
	}
	cancel()

	set, err := s.store.SetReminderFlag(ctx, hire.Code, models.ReminderEscalation)
	if err != nil {
		return fmt.Errorf("mark escalated: %w", err)
	}
	if !set {
		return nil
	}
	s.metrics.IncrementEscalation()
	s.logger.WarnContext(ctx, "escalation sent", "code", hire.Code, "days_overdue", daysOverdue)
	return nil
}

func (s *Scheduler) sendChannel(ctx context.Context, text string) error {
	notifyCtx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
	defer cancel()
	return s.notifier.SendChannel(notifyCtx, s.cfg.ChannelID, text)
}

// sendAssigneeCopy mirrors a channel reminder to the assignee's inbox when
// their handle resolved to an account. Failures only cost the copy.
func (s *Scheduler) sendAssigneeCopy(ctx context.Context, assignee models.Assignment, text string) {
	if assignee.UserID == 0 {
		return
	}
	notifyCtx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
	defer cancel()
	if err := s.notifier.SendDirect(notifyCtx, assignee.UserID, text); err != nil {
		s.logger.DebugContext(ctx, "assignee reminder copy failed", "user_id", assignee.UserID, "error", err)
	}
}
