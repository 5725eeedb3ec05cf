// Package service implements the status engine: authoritative status
// transitions, atomic history recording, and the authorization gate in front
// of every mutation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hiretrack/internal/hire/models"
	"hiretrack/internal/hire/policy"
	"hiretrack/internal/platform/clock"
	dErrors "hiretrack/pkg/domain-errors"
	"hiretrack/pkg/sentinel"
)

// Store is the persistence port the engine needs. Every method is atomic per
// call; AdvanceSubStatus and SetReminderFlag re-check their preconditions at
// commit time.
type Store interface {
	Create(ctx context.Context, hire *models.Hire, entry models.HistoryEntry) error
	Get(ctx context.Context, code string) (*models.Hire, error)
	ListOpen(ctx context.Context) ([]*models.Hire, error)
	ListHistory(ctx context.Context, code string) ([]models.HistoryEntry, error)
	AdvanceSubStatus(ctx context.Context, code string, dim models.Dimension, entry models.HistoryEntry) (*models.Hire, bool, error)
	SetOverall(ctx context.Context, code string, value models.OverallStatus, resetFlags bool, entry models.HistoryEntry) (*models.Hire, error)
	AppendNote(ctx context.Context, code string, noteLine string, entry models.HistoryEntry) (*models.Hire, error)
	UpdateCardRef(ctx context.Context, code string, chatID, messageID int64) error
}

// Resolver maps a human-readable handle to a platform identity. Resolution is
// a collaborator concern; the engine only consumes it best-effort at create.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (int64, error)
}

// Defaults are the fallback assignees applied when the creator leaves a slot
// blank.
type Defaults struct {
	LegalHandle  string
	DevopsHandle string
}

type Service struct {
	store    Store
	clock    clock.Clock
	resolver Resolver
	defaults Defaults
	logger   *slog.Logger
}

// New wires the status engine. resolver may be nil when no identity
// collaborator is configured.
func New(store Store, clk clock.Clock, resolver Resolver, defaults Defaults, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("hire store is required")
	}
	if clk == nil {
		return nil, errors.New("clock is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{store: store, clock: clk, resolver: resolver, defaults: defaults, logger: logger}, nil
}

// CreateParams carries the validated wizard output for a new hire record.
type CreateParams struct {
	FullName     string
	Role         string
	StartDate    time.Time
	LeaderHandle string
	LegalHandle  string
	DevopsHandle string
	DocsEmail    string
	Checklist    []string
	Notes        string
	ChatID       int64
}

const createAttempts = 5

// Create generates a unique code, resolves assignment handles best-effort and
// persists the hire with its CREATED history entry.
func (s *Service) Create(ctx context.Context, actor models.Actor, params CreateParams) (*models.Hire, error) {
	if !actor.CanCreate && !actor.IsAdmin {
		s.logUnauthorized(ctx, actor, "create", "")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor is not allowed to create hires")
	}
	if err := s.validateCreate(&params); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	hire := &models.Hire{
		FullName:     params.FullName,
		Role:         params.Role,
		StartDate:    params.StartDate,
		Leader:       s.assignment(ctx, params.LeaderHandle),
		Legal:        s.assignment(ctx, params.LegalHandle),
		DevOps:       s.assignment(ctx, params.DevopsHandle),
		DocsEmail:    params.DocsEmail,
		Checklist:    params.Checklist,
		Overall:      models.OverallCreated,
		LeaderStatus: models.LeaderPending,
		LegalStatus:  models.LegalPending,
		DevOpsStatus: models.DevOpsPending,
		CreatorID:    actor.ID,
		ChatID:       params.ChatID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if params.Notes != "" {
		hire.Notes = noteLine(now, params.Notes)
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		hire.Code = models.NewCode()
		entry := models.NewHistoryEntry(hire.Code, actor, models.ActionCreated,
			fmt.Sprintf("Created hire record for %s", hire.FullName), now)
		err := s.store.Create(ctx, hire, entry)
		if err == nil {
			s.logger.InfoContext(ctx, "hire created",
				"hire_code", hire.Code,
				"full_name", hire.FullName,
				"start_date", hire.StartDate.Format("2006-01-02"),
				"creator_id", actor.ID,
			)
			return hire.Clone(), nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "persist hire", err)
	}
	return nil, dErrors.New(dErrors.CodeInternal, "could not allocate a unique hire code")
}

// Get returns one hire by code. Reading status is always allowed.
func (s *Service) Get(ctx context.Context, code string) (*models.Hire, error) {
	hire, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, s.translate(err, code)
	}
	return hire, nil
}

// ListOpen returns all non-completed hires ordered by start date.
func (s *Service) ListOpen(ctx context.Context) ([]*models.Hire, error) {
	hires, err := s.store.ListOpen(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list open hires", err)
	}
	return hires, nil
}

// History returns a hire's append-only log, oldest first.
func (s *Service) History(ctx context.Context, code string) ([]models.HistoryEntry, error) {
	entries, err := s.store.ListHistory(ctx, code)
	if err != nil {
		return nil, s.translate(err, code)
	}
	return entries, nil
}

// AcknowledgeLeader records the team lead's acknowledgement. The boolean is
// false for the benign already-acknowledged case.
func (s *Service) AcknowledgeLeader(ctx context.Context, code string, actor models.Actor) (*models.Hire, bool, error) {
	return s.advance(ctx, code, actor, models.ActionLeaderAck, models.DimensionLeader,
		models.ActionLeaderStatusChanged, "Leader status: PENDING -> ACKNOWLEDGED")
}

// MarkDocsSent records that legal sent the document pack.
func (s *Service) MarkDocsSent(ctx context.Context, code string, actor models.Actor) (*models.Hire, bool, error) {
	return s.advance(ctx, code, actor, models.ActionDocsSent, models.DimensionLegal,
		models.ActionLegalStatusChanged, "Legal status: PENDING -> DOCS_SENT")
}

// GrantAccess records that devops provisioned the checklist accesses.
func (s *Service) GrantAccess(ctx context.Context, code string, actor models.Actor) (*models.Hire, bool, error) {
	return s.advance(ctx, code, actor, models.ActionAccessGranted, models.DimensionDevOps,
		models.ActionDevOpsStatusChanged, "DevOps status: PENDING -> ACCESS_GRANTED")
}

func (s *Service) advance(ctx context.Context, code string, actor models.Actor, gate models.Action, dim models.Dimension, historyAction, details string) (*models.Hire, bool, error) {
	hire, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, false, s.translate(err, code)
	}
	if !policy.Allowed(actor, hire, gate) {
		s.logUnauthorized(ctx, actor, string(gate), code)
		return nil, false, dErrors.New(dErrors.CodeUnauthorized, "actor is not allowed to perform "+string(gate))
	}

	entry := models.NewHistoryEntry(code, actor, historyAction, details, s.clock.Now())
	updated, changed, err := s.store.AdvanceSubStatus(ctx, code, dim, entry)
	if err != nil {
		return nil, false, s.translate(err, code)
	}
	if !changed {
		return updated, false, nil
	}
	s.logger.InfoContext(ctx, "sub-status advanced",
		"hire_code", code,
		"dimension", string(dim),
		"overall", string(updated.Overall),
		"actor_id", actor.ID,
	)
	return updated, true, nil
}

// Complete forces the overall status to COMPLETED regardless of sub-status
// completeness. Sub-statuses stay as they are; they are historical record.
func (s *Service) Complete(ctx context.Context, code string, actor models.Actor) (*models.Hire, error) {
	hire, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, s.translate(err, code)
	}
	if !policy.Allowed(actor, hire, models.ActionComplete) {
		s.logUnauthorized(ctx, actor, "complete", code)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the creator or an admin can complete a hire")
	}

	entry := models.NewHistoryEntry(code, actor, models.ActionCompleted, "Marked as completed", s.clock.Now())
	updated, err := s.store.SetOverall(ctx, code, models.OverallCompleted, false, entry)
	if err != nil {
		return nil, s.translate(err, code)
	}
	s.logger.InfoContext(ctx, "hire completed", "hire_code", code, "actor_id", actor.ID)
	return updated, nil
}

// Reopen moves a COMPLETED hire back to IN_PROGRESS (never CREATED) and
// clears the one-shot reminder flags so deadlines are watched again.
func (s *Service) Reopen(ctx context.Context, code string, actor models.Actor) (*models.Hire, error) {
	hire, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, s.translate(err, code)
	}
	if !policy.Allowed(actor, hire, models.ActionReopen) {
		s.logUnauthorized(ctx, actor, "reopen", code)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the creator or an admin can reopen a hire")
	}
	if hire.Overall != models.OverallCompleted {
		return nil, dErrors.New(dErrors.CodeConflict, "only completed hires can be reopened")
	}

	entry := models.NewHistoryEntry(code, actor, models.ActionReopened,
		fmt.Sprintf("Reopened from %s", hire.Overall), s.clock.Now())
	updated, err := s.store.SetOverall(ctx, code, models.OverallInProgress, true, entry)
	if err != nil {
		return nil, s.translate(err, code)
	}
	s.logger.InfoContext(ctx, "hire reopened", "hire_code", code, "actor_id", actor.ID)
	return updated, nil
}

// AddNote appends a timestamped line to the notes log. Length bounds are the
// transport boundary's job, not the engine's.
func (s *Service) AddNote(ctx context.Context, code string, actor models.Actor, text string) (*models.Hire, error) {
	hire, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, s.translate(err, code)
	}
	if !policy.Allowed(actor, hire, models.ActionAddNote) {
		s.logUnauthorized(ctx, actor, "add_note", code)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the creator or an admin can add notes")
	}

	now := s.clock.Now()
	entry := models.NewHistoryEntry(code, actor, models.ActionNoteAdded, text, now)
	updated, err := s.store.AppendNote(ctx, code, noteLine(now, text), entry)
	if err != nil {
		return nil, s.translate(err, code)
	}
	s.logger.InfoContext(ctx, "note added", "hire_code", code, "actor_id", actor.ID)
	return updated, nil
}

// UpdateCardRef records where the externally-owned status card lives.
func (s *Service) UpdateCardRef(ctx context.Context, code string, actor models.Actor, chatID, messageID int64) error {
	hire, err := s.store.Get(ctx, code)
	if err != nil {
		return s.translate(err, code)
	}
	if actor.ID != hire.CreatorID && !actor.IsAdmin {
		s.logUnauthorized(ctx, actor, "update_card_ref", code)
		return dErrors.New(dErrors.CodeUnauthorized, "only the creator or an admin can move the card")
	}
	if err := s.store.UpdateCardRef(ctx, code, chatID, messageID); err != nil {
		return s.translate(err, code)
	}
	return nil
}

func (s *Service) assignment(ctx context.Context, handle string) models.Assignment {
	slot := models.Assignment{Handle: handle}
	if s.resolver == nil || handle == "" {
		return slot
	}
	id, err := s.resolver.Resolve(ctx, handle)
	if err != nil {
		// Unresolved handles are fine; the policy falls back to handle match.
		s.logger.DebugContext(ctx, "handle not resolved", "handle", handle, "error", err)
		return slot
	}
	slot.UserID = id
	return slot
}

func (s *Service) translate(err error, code string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "unknown hire code "+code)
	}
	return dErrors.Wrap(dErrors.CodeInternal, "hire store failure", err)
}

func (s *Service) logUnauthorized(ctx context.Context, actor models.Actor, action, code string) {
	s.logger.WarnContext(ctx, "unauthorized attempt",
		"actor_id", actor.ID,
		"actor_handle", actor.Handle,
		"action", action,
		"hire_code", code,
	)
}

func noteLine(now time.Time, text string) string {
	return "\n[" + now.Format("2006-01-02 15:04") + "] " + text
}
