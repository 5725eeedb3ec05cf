// Package memory implements the hire store on a mutex-guarded map. It backs
// the unit tests and local development; production runs the postgres store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hiretrack/internal/hire/models"
	"hiretrack/pkg/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	hires   map[string]*models.Hire
	history map[string][]models.HistoryEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		hires:   make(map[string]*models.Hire),
		history: make(map[string][]models.HistoryEntry),
	}
}

// Create persists a new hire and its CREATED history entry atomically.
// Returns sentinel.ErrConflict when the code is already taken.
func (s *InMemoryStore) Create(_ context.Context, hire *models.Hire, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hires[hire.Code]; exists {
		return sentinel.ErrConflict
	}
	s.hires[hire.Code] = hire.Clone()
	s.history[hire.Code] = append(s.history[hire.Code], entry)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, code string) (*models.Hire, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hire, ok := s.hires[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return hire.Clone(), nil
}

// ListOpen returns all hires whose overall status is not COMPLETED, ordered
// by start date.
func (s *InMemoryStore) ListOpen(_ context.Context) ([]*models.Hire, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var open []*models.Hire
	for _, hire := range s.hires {
		if hire.Overall != models.OverallCompleted {
			open = append(open, hire.Clone())
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].StartDate.Before(open[j].StartDate) })
	return open, nil
}

func (s *InMemoryStore) ListHistory(_ context.Context, code string) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.hires[code]; !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]models.HistoryEntry{}, s.history[code]...), nil
}

// AdvanceSubStatus flips one dimension from its PENDING value, re-derives the
// overall status and appends the history entry, all under the store lock. The
// boolean is false when the dimension had already advanced; the precondition
// is checked here, at commit time, not by the caller.
func (s *InMemoryStore) AdvanceSubStatus(_ context.Context, code string, dim models.Dimension, entry models.HistoryEntry) (*models.Hire, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hire, ok := s.hires[code]
	if !ok {
		return nil, false, sentinel.ErrNotFound
	}

	switch dim {
	case models.DimensionLeader:
		if hire.LeaderStatus != models.LeaderPending {
			return hire.Clone(), false, nil
		}
		hire.LeaderStatus = models.LeaderAcknowledged
	case models.DimensionLegal:
		if hire.LegalStatus != models.LegalPending {
			return hire.Clone(), false, nil
		}
		hire.LegalStatus = models.LegalDocsSent
	case models.DimensionDevOps:
		if hire.DevOpsStatus != models.DevOpsPending {
			return hire.Clone(), false, nil
		}
		hire.DevOpsStatus = models.DevOpsAccessGranted
	default:
		return nil, false, sentinel.ErrInvalidState
	}

	hire.Overall = models.DeriveOverallStatus(hire.LeaderStatus, hire.LegalStatus, hire.DevOpsStatus, hire.Overall)
	hire.UpdatedAt = entry.At
	s.history[code] = append(s.history[code], entry)
	return hire.Clone(), true, nil
}

// SetOverall forces the overall status (complete / reopen). resetFlags clears
// the three one-shot flags in the same critical section; only the explicit
// reopen path sets it.
func (s *InMemoryStore) SetOverall(_ context.Context, code string, value models.OverallStatus, resetFlags bool, entry models.HistoryEntry) (*models.Hire, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hire, ok := s.hires[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	hire.Overall = value
	if resetFlags {
		hire.LegalReminded = false
		hire.DevOpsReminded = false
		hire.Escalated = false
	}
	hire.UpdatedAt = entry.At
	s.history[code] = append(s.history[code], entry)
	return hire.Clone(), nil
}

// AppendNote adds one line to the notes log plus its history entry.
func (s *InMemoryStore) AppendNote(_ context.Context, code string, noteLine string, entry models.HistoryEntry) (*models.Hire, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hire, ok := s.hires[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	hire.Notes += noteLine
	hire.UpdatedAt = entry.At
	s.history[code] = append(s.history[code], entry)
	return hire.Clone(), nil
}

// SetReminderFlag sets one of the one-shot flags. Returns false when the flag
// was already set, so a concurrent pass cannot double-report a send.
func (s *InMemoryStore) SetReminderFlag(_ context.Context, code string, kind models.ReminderKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hire, ok := s.hires[code]
	if !ok {
		return false, sentinel.ErrNotFound
	}

	var flag *bool
	switch kind {
	case models.ReminderLegal:
		flag = &hire.LegalReminded
	case models.ReminderDevOps:
		flag = &hire.DevOpsReminded
	case models.ReminderEscalation:
		flag = &hire.Escalated
	default:
		return false, sentinel.ErrInvalidState
	}
	if *flag {
		return false, nil
	}
	*flag = true
	// The postgres store bumps updated_at in the same UPDATE; keep the two
	// backends interchangeable.
	hire.UpdatedAt = time.Now()
	return true, nil
}

// UpdateCardRef stores the chat/message reference of the externally-owned card.
func (s *InMemoryStore) UpdateCardRef(_ context.Context, code string, chatID, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hire, ok := s.hires[code]
	if !ok {
		return sentinel.ErrNotFound
	}
	hire.ChatID = chatID
	hire.MessageID = messageID
	return nil
}
