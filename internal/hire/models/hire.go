// Package models holds the hire aggregate and the status rules. Every status
// comparison in the system goes through the types here; handlers and the
// scheduler never re-implement the derivation.
package models

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

// OverallStatus is the single derived workflow stage.
type OverallStatus string

const (
	OverallCreated      OverallStatus = "CREATED"
	OverallInProgress   OverallStatus = "IN_PROGRESS"
	OverallReadyForDay1 OverallStatus = "READY_FOR_DAY1"
	OverallCompleted    OverallStatus = "COMPLETED"
)

// LeaderStatus is the team-lead acknowledgement track.
type LeaderStatus string

const (
	LeaderPending      LeaderStatus = "PENDING"
	LeaderAcknowledged LeaderStatus = "ACKNOWLEDGED"
)

// LegalStatus is the legal documentation track.
type LegalStatus string

const (
	LegalPending  LegalStatus = "PENDING"
	LegalDocsSent LegalStatus = "DOCS_SENT"
)

// DevOpsStatus is the access provisioning track.
type DevOpsStatus string

const (
	DevOpsPending       DevOpsStatus = "PENDING"
	DevOpsAccessGranted DevOpsStatus = "ACCESS_GRANTED"
)

// Dimension identifies one of the three independent approval tracks.
type Dimension string

const (
	DimensionLeader Dimension = "leader"
	DimensionLegal  Dimension = "legal"
	DimensionDevOps Dimension = "devops"
)

// ReminderKind identifies one of the one-shot notification flags.
type ReminderKind string

const (
	ReminderLegal      ReminderKind = "legal"
	ReminderDevOps     ReminderKind = "devops"
	ReminderEscalation ReminderKind = "escalated"
)

// Assignment is one role slot on a hire: the handle entered by the creator
// plus the resolved platform identity when known (0 = unresolved).
type Assignment struct {
	Handle string
	UserID int64
}

// Hire is the aggregate record tracking one new employee's onboarding
// workflow. Code is immutable once assigned.
type Hire struct {
	Code      string
	FullName  string
	Role      string
	StartDate time.Time

	Leader Assignment
	Legal  Assignment
	DevOps Assignment

	DocsEmail string
	Checklist []string
	Notes     string

	Overall      OverallStatus
	LeaderStatus LeaderStatus
	LegalStatus  LegalStatus
	DevOpsStatus DevOpsStatus

	LegalReminded  bool
	DevOpsReminded bool
	Escalated      bool

	CreatorID int64
	ChatID    int64
	MessageID int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so stores never hand out aliased state.
func (h *Hire) Clone() *Hire {
	cp := *h
	cp.Checklist = append([]string(nil), h.Checklist...)
	return &cp
}

// History entry action tags, one per mutation kind.
const (
	ActionCreated             = "CREATED"
	ActionLeaderStatusChanged = "LEADER_STATUS_CHANGED"
	ActionLegalStatusChanged  = "LEGAL_STATUS_CHANGED"
	ActionDevOpsStatusChanged = "DEVOPS_STATUS_CHANGED"
	ActionCompleted           = "COMPLETED"
	ActionReopened            = "REOPENED"
	ActionNoteAdded           = "NOTE_ADDED"
)

// HistoryEntry is one immutable line in a hire's append-only log.
type HistoryEntry struct {
	ID          uuid.UUID
	HireCode    string
	ActorID     int64
	ActorHandle string
	Action      string
	Details     string
	At          time.Time
}

// NewHistoryEntry stamps a history entry for a mutation.
func NewHistoryEntry(code string, actor Actor, action, details string, at time.Time) HistoryEntry {
	return HistoryEntry{
		ID:          uuid.New(),
		HireCode:    code,
		ActorID:     actor.ID,
		ActorHandle: actor.Handle,
		Action:      action,
		Details:     details,
		At:          at,
	}
}

// DeriveOverallStatus is the one home for the overall-status rule. Completion
// is sticky: once COMPLETED only an explicit reopen moves the hire out of it.
// The function is a pure map of its inputs, so applying sub-status updates in
// any order and re-deriving yields the same result.
func DeriveOverallStatus(leader LeaderStatus, legal LegalStatus, devops DevOpsStatus, current OverallStatus) OverallStatus {
	if current == OverallCompleted {
		return OverallCompleted
	}
	if leader == LeaderAcknowledged && legal == LegalDocsSent && devops == DevOpsAccessGranted {
		return OverallReadyForDay1
	}
	if leader != LeaderPending || legal != LegalPending || devops != DevOpsPending {
		return OverallInProgress
	}
	return OverallCreated
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCode generates a short hire code. Uniqueness is enforced by the store;
// callers retry on collision.
func NewCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// math/rand fallback is not worth a second path; crypto/rand only
		// fails when the OS entropy source is broken.
		panic("hire code entropy unavailable: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
