package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"hiretrack/internal/hire/models"
	"hiretrack/internal/hire/store/memory"
	"hiretrack/internal/notify"
	"hiretrack/internal/platform/clock"
	"hiretrack/internal/platform/metrics"
)

const testChannelID int64 = -1001

type SchedulerSuite struct {
	suite.Suite
	store     *memory.InMemoryStore
	notifier  *notify.Memory
	clock     *clock.Fake
	scheduler *Scheduler
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	loc, err := time.LoadLocation("Europe/London")
	s.Require().NoError(err)

	s.store = memory.NewInMemoryStore()
	s.notifier = notify.NewMemory()
	s.clock = clock.NewFake(time.Date(2025, 5, 1, 9, 0, 0, 0, loc))
	s.scheduler = New(
		s.store,
		s.notifier,
		s.clock,
		Config{
			LegalReminderDays:  3,
			DevopsReminderDays: 1,
			EscalationHours:    24,
			TickInterval:       30 * time.Minute,
			NotifyTimeout:      time.Second,
			ChannelID:          testChannelID,
		},
		metrics.New(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

// seedHire stores an open hire starting startInDays from the fake now.
// mutate, when given, adjusts the record before it is stored.
func (s *SchedulerSuite) seedHire(code string, startInDays int, mutate func(*models.Hire)) *models.Hire {
	now := s.clock.Now()
	hire := &models.Hire{
		Code:         code,
		FullName:     "Dana Whitfield",
		Role:         "Backend Engineer",
		StartDate:    now.AddDate(0, 0, startInDays),
		Leader:       models.Assignment{Handle: "lead_anna", UserID: 200},
		Legal:        models.Assignment{Handle: "legal_li"},
		DevOps:       models.Assignment{Handle: "ops_omar"},
		DocsEmail:    "dana@example.com",
		Overall:      models.OverallCreated,
		LeaderStatus: models.LeaderPending,
		LegalStatus:  models.LegalPending,
		DevOpsStatus: models.DevOpsPending,
		CreatorID:    100,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if mutate != nil {
		mutate(hire)
	}
	entry := models.NewHistoryEntry(code, models.Actor{ID: 100, Handle: "recruiter"}, models.ActionCreated, "", now)
	s.Require().NoError(s.store.Create(context.Background(), hire, entry))
	return hire
}

func (s *SchedulerSuite) getHire(code string) *models.Hire {
	hire, err := s.store.Get(context.Background(), code)
	s.Require().NoError(err)
	return hire
}

func (s *SchedulerSuite) TestLegalReminderFiresOncePerHire() {
	s.seedHire("AB12", 3, nil)

	s.scheduler.RunPass(context.Background())

	channel := s.notifier.Channel()
	s.Require().Len(channel, 1)
	s.Equal(testChannelID, channel[0].ChannelID)
	s.Contains(channel[0].Text, "#AB12")
	s.Contains(channel[0].Text, "3 day(s)")
	s.Contains(channel[0].Text, "@legal_li")
	s.Contains(channel[0].Text, "dana@example.com")
	s.True(s.getHire("AB12").LegalReminded)

	// A second tick the same day must stay silent.
	s.scheduler.RunPass(context.Background())
	s.Len(s.notifier.Channel(), 1)
}

func (s *SchedulerSuite) TestNoReminderOutsideWindow() {
	s.seedHire("FAR1", 5, nil)
	s.seedHire("DAY0", 0, nil)

	s.scheduler.RunPass(context.Background())

	s.Empty(s.notifier.Channel())
	s.Empty(s.notifier.Direct())
	s.False(s.getHire("FAR1").LegalReminded)
	s.False(s.getHire("DAY0").LegalReminded)
}

func (s *SchedulerSuite) TestDevopsReminderWindowIsTighter() {
	s.seedHire("AB12", 2, nil)

	s.scheduler.RunPass(context.Background())

	channel := s.notifier.Channel()
	s.Require().Len(channel, 1)
	s.Contains(channel[0].Text, "Legal reminder")
	hire := s.getHire("AB12")
	s.True(hire.LegalReminded)
	s.False(hire.DevOpsReminded)

	// One day closer both flags are in range, only devops is still unsent.
	s.clock.Advance(24 * time.Hour)
	s.scheduler.RunPass(context.Background())

	channel = s.notifier.Channel()
	s.Require().Len(channel, 2)
	s.Contains(channel[1].Text, "DevOps reminder")
	s.Contains(channel[1].Text, "@ops_omar")
	s.True(s.getHire("AB12").DevOpsReminded)
}

func (s *SchedulerSuite) TestReminderCopiedToResolvedAssignee() {
	s.seedHire("AB12", 1, func(h *models.Hire) {
		h.Legal.UserID = 300
		h.LegalStatus = models.LegalDocsSent
	})

	s.scheduler.RunPass(context.Background())

	// Legal is done, so only the devops reminder fires; its assignee is
	// unresolved and gets no copy.
	s.Require().Len(s.notifier.Channel(), 1)
	s.Empty(s.notifier.Direct())

	s.notifier.Reset()
	s.seedHire("CD34", 1, func(h *models.Hire) {
		h.DevOps.UserID = 400
	})
	s.scheduler.RunPass(context.Background())

	direct := s.notifier.Direct()
	s.Require().Len(direct, 1)
	s.Equal(int64(400), direct[0].UserID)
	s.Contains(direct[0].Text, "#CD34")
}

func (s *SchedulerSuite) TestEscalationFiresWhenAnyTrackPending() {
	s.seedHire("AB12", -1, func(h *models.Hire) {
		h.DevOpsStatus = models.DevOpsAccessGranted
	})

	s.scheduler.RunPass(context.Background())

	channel := s.notifier.Channel()
	s.Require().Len(channel, 1)
	s.Contains(channel[0].Text, "ESCALATION")
	s.Contains(channel[0].Text, "Overdue by 1 day(s)")
	s.Contains(channel[0].Text, "Legal (@legal_li)")
	s.NotContains(channel[0].Text, "DevOps (@ops_omar)")

	direct := s.notifier.Direct()
	s.Require().Len(direct, 1)
	s.Equal(int64(100), direct[0].UserID)
	s.Contains(direct[0].Text, "#AB12")

	s.True(s.getHire("AB12").Escalated)

	s.scheduler.RunPass(context.Background())
	s.Len(s.notifier.Channel(), 1)
}

func (s *SchedulerSuite) TestNoEscalationWhenBothTracksDone() {
	s.seedHire("AB12", -2, func(h *models.Hire) {
		h.LegalStatus = models.LegalDocsSent
		h.DevOpsStatus = models.DevOpsAccessGranted
	})

	s.scheduler.RunPass(context.Background())

	s.Empty(s.notifier.Channel())
	s.False(s.getHire("AB12").Escalated)
}

func (s *SchedulerSuite) TestNoEscalationUnderHourThreshold() {
	s.scheduler.cfg.EscalationHours = 48
	s.seedHire("AB12", -1, nil)

	s.scheduler.RunPass(context.Background())

	s.Empty(s.notifier.Channel())
	s.False(s.getHire("AB12").Escalated)
}

func (s *SchedulerSuite) TestFailedDeliveryLeavesFlagUnset() {
	s.seedHire("AB12", 2, nil)
	s.notifier.FailChannel = errors.New("broker down")

	s.scheduler.RunPass(context.Background())
	s.False(s.getHire("AB12").LegalReminded)

	// Once delivery recovers the next pass retries the same reminder.
	s.notifier.FailChannel = nil
	s.scheduler.RunPass(context.Background())

	s.Require().Len(s.notifier.Channel(), 1)
	s.True(s.getHire("AB12").LegalReminded)
}

func (s *SchedulerSuite) TestFailedCreatorDmDoesNotBlockEscalation() {
	s.seedHire("AB12", -1, nil)
	s.notifier.FailDirect = errors.New("creator blocked the bot")

	s.scheduler.RunPass(context.Background())

	s.Require().Len(s.notifier.Channel(), 1)
	s.True(s.getHire("AB12").Escalated)
}

// selectiveNotifier fails channel sends for one hire code so a pass can be
// observed surviving a mid-pass delivery error.
type selectiveNotifier struct {
	*notify.Memory
	failCode string
}

func (n *selectiveNotifier) SendChannel(ctx context.Context, channelID int64, text string) error {
	if strings.Contains(text, "#"+n.failCode) {
		return errors.New("delivery rejected")
	}
	return n.Memory.SendChannel(ctx, channelID, text)
}

func (s *SchedulerSuite) TestPassSurvivesPerHireFailure() {
	s.scheduler.notifier = &selectiveNotifier{Memory: s.notifier, failCode: "BAD1"}
	s.seedHire("BAD1", 1, nil)
	s.seedHire("OK22", 1, nil)

	s.scheduler.RunPass(context.Background())

	s.False(s.getHire("BAD1").LegalReminded)
	ok := s.getHire("OK22")
	s.True(ok.LegalReminded)
	s.True(ok.DevOpsReminded)
}

func (s *SchedulerSuite) TestCompletedHireNeverScanned() {
	s.seedHire("AB12", -5, nil)
	entry := models.NewHistoryEntry("AB12", models.Actor{ID: 1, Handle: "admin"}, models.ActionCompleted, "", s.clock.Now())
	_, err := s.store.SetOverall(context.Background(), "AB12", models.OverallCompleted, false, entry)
	s.Require().NoError(err)

	s.scheduler.RunPass(context.Background())

	s.Empty(s.notifier.Channel())
	s.Empty(s.notifier.Direct())
}

func (s *SchedulerSuite) TestRunStopsOnCancel() {
	s.scheduler.cfg.TickInterval = 5 * time.Millisecond
	s.seedHire("AB12", 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.scheduler.Run(ctx) }()

	s.Eventually(func() bool {
		return len(s.notifier.Channel()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("scheduler did not stop after cancel")
	}
}
