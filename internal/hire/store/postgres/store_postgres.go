// Package postgres implements the hire store on pgx. Each method is one
// transaction (or one conditional statement), so a scheduler flag write and an
// interactive sub-status change can interleave without losing either.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hiretrack/internal/hire/models"
	"hiretrack/pkg/sentinel"
)

const uniqueViolationCode = "23505"

// DB is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db DB
}

func NewPostgres(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const hireColumns = `code, full_name, role, start_date,
	leader_handle, leader_user_id, legal_handle, legal_user_id, devops_handle, devops_user_id,
	docs_email, checklist, notes,
	overall_status, leader_status, legal_status, devops_status,
	legal_reminded, devops_reminded, escalated,
	creator_id, chat_id, message_id, created_at, updated_at`

func scanHire(row pgx.Row) (*models.Hire, error) {
	var h models.Hire
	err := row.Scan(
		&h.Code, &h.FullName, &h.Role, &h.StartDate,
		&h.Leader.Handle, &h.Leader.UserID, &h.Legal.Handle, &h.Legal.UserID, &h.DevOps.Handle, &h.DevOps.UserID,
		&h.DocsEmail, &h.Checklist, &h.Notes,
		&h.Overall, &h.LeaderStatus, &h.LegalStatus, &h.DevOpsStatus,
		&h.LegalReminded, &h.DevOpsReminded, &h.Escalated,
		&h.CreatorID, &h.ChatID, &h.MessageID, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry models.HistoryEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO status_history (id, hire_code, actor_id, actor_handle, action, details, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.HireCode, entry.ActorID, entry.ActorHandle, entry.Action, entry.Details, entry.At,
	)
	return err
}

// Create inserts the hire and its CREATED history entry in one transaction.
func (s *PostgresStore) Create(ctx context.Context, hire *models.Hire, entry models.HistoryEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// A nil slice would encode as SQL NULL and violate the NOT NULL
	// constraint; an absent checklist is an empty one.
	checklist := hire.Checklist
	if checklist == nil {
		checklist = []string{}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO hires (`+hireColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25)`,
		hire.Code, hire.FullName, hire.Role, hire.StartDate,
		hire.Leader.Handle, hire.Leader.UserID, hire.Legal.Handle, hire.Legal.UserID, hire.DevOps.Handle, hire.DevOps.UserID,
		hire.DocsEmail, checklist, hire.Notes,
		hire.Overall, hire.LeaderStatus, hire.LegalStatus, hire.DevOpsStatus,
		hire.LegalReminded, hire.DevOpsReminded, hire.Escalated,
		hire.CreatorID, hire.ChatID, hire.MessageID, hire.CreatedAt, hire.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert hire: %w", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, code string) (*models.Hire, error) {
	row := s.db.QueryRow(ctx, `SELECT `+hireColumns+` FROM hires WHERE code = $1`, code)
	return scanHire(row)
}

func (s *PostgresStore) ListOpen(ctx context.Context) ([]*models.Hire, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+hireColumns+` FROM hires
		WHERE overall_status <> $1
		ORDER BY start_date ASC`, models.OverallCompleted)
	if err != nil {
		return nil, fmt.Errorf("list open hires: %w", err)
	}
	defer rows.Close()

	var hires []*models.Hire
	for rows.Next() {
		h, err := scanHire(rows)
		if err != nil {
			return nil, err
		}
		hires = append(hires, h)
	}
	return hires, rows.Err()
}

func (s *PostgresStore) ListHistory(ctx context.Context, code string) ([]models.HistoryEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, hire_code, actor_id, actor_handle, action, details, at
		FROM status_history
		WHERE hire_code = $1
		ORDER BY at ASC`, code)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.HireCode, &e.ActorID, &e.ActorHandle, &e.Action, &e.Details, &e.At); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		// Distinguish an empty log from an unknown code.
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM hires WHERE code = $1)`, code).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, sentinel.ErrNotFound
		}
	}
	return entries, nil
}

// AdvanceSubStatus locks the row, flips the dimension when still PENDING,
// re-derives the overall status and appends history, all in one transaction.
// The precondition is evaluated under the row lock, not from the caller's
// stale read.
func (s *PostgresStore) AdvanceSubStatus(ctx context.Context, code string, dim models.Dimension, entry models.HistoryEntry) (*models.Hire, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin advance: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	hire, err := scanHire(tx.QueryRow(ctx, `SELECT `+hireColumns+` FROM hires WHERE code = $1 FOR UPDATE`, code))
	if err != nil {
		return nil, false, err
	}

	var column string
	switch dim {
	case models.DimensionLeader:
		if hire.LeaderStatus != models.LeaderPending {
			return hire, false, nil
		}
		hire.LeaderStatus = models.LeaderAcknowledged
		column = "leader_status"
	case models.DimensionLegal:
		if hire.LegalStatus != models.LegalPending {
			return hire, false, nil
		}
		hire.LegalStatus = models.LegalDocsSent
		column = "legal_status"
	case models.DimensionDevOps:
		if hire.DevOpsStatus != models.DevOpsPending {
			return hire, false, nil
		}
		hire.DevOpsStatus = models.DevOpsAccessGranted
		column = "devops_status"
	default:
		return nil, false, sentinel.ErrInvalidState
	}

	hire.Overall = models.DeriveOverallStatus(hire.LeaderStatus, hire.LegalStatus, hire.DevOpsStatus, hire.Overall)
	hire.UpdatedAt = entry.At

	_, err = tx.Exec(ctx, `
		UPDATE hires
		SET `+column+` = $1, overall_status = $2, updated_at = $3
		WHERE code = $4`,
		subStatusValue(hire, dim), hire.Overall, hire.UpdatedAt, code,
	)
	if err != nil {
		return nil, false, fmt.Errorf("advance %s: %w", dim, err)
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return nil, false, fmt.Errorf("insert history: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return hire, true, nil
}

func subStatusValue(hire *models.Hire, dim models.Dimension) string {
	switch dim {
	case models.DimensionLeader:
		return string(hire.LeaderStatus)
	case models.DimensionLegal:
		return string(hire.LegalStatus)
	default:
		return string(hire.DevOpsStatus)
	}
}

// SetOverall forces the overall status; resetFlags clears the one-shot flags
// in the same transaction (the reopen path).
func (s *PostgresStore) SetOverall(ctx context.Context, code string, value models.OverallStatus, resetFlags bool, entry models.HistoryEntry) (*models.Hire, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin set overall: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `UPDATE hires SET overall_status = $1, updated_at = $2 WHERE code = $3 RETURNING ` + hireColumns
	if resetFlags {
		query = `UPDATE hires
			SET overall_status = $1, updated_at = $2,
			    legal_reminded = FALSE, devops_reminded = FALSE, escalated = FALSE
			WHERE code = $3 RETURNING ` + hireColumns
	}
	hire, err := scanHire(tx.QueryRow(ctx, query, value, entry.At, code))
	if err != nil {
		return nil, err
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return hire, nil
}

// AppendNote concatenates one line onto the notes log plus its history entry.
func (s *PostgresStore) AppendNote(ctx context.Context, code string, noteLine string, entry models.HistoryEntry) (*models.Hire, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append note: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	hire, err := scanHire(tx.QueryRow(ctx, `
		UPDATE hires SET notes = notes || $1, updated_at = $2
		WHERE code = $3 RETURNING `+hireColumns, noteLine, entry.At, code))
	if err != nil {
		return nil, err
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return hire, nil
}

// SetReminderFlag flips one one-shot flag with the precondition in the WHERE
// clause, so the not-yet-sent check is re-validated at commit time.
func (s *PostgresStore) SetReminderFlag(ctx context.Context, code string, kind models.ReminderKind) (bool, error) {
	var column string
	switch kind {
	case models.ReminderLegal:
		column = "legal_reminded"
	case models.ReminderDevOps:
		column = "devops_reminded"
	case models.ReminderEscalation:
		column = "escalated"
	default:
		return false, sentinel.ErrInvalidState
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE hires SET `+column+` = TRUE, updated_at = now()
		WHERE code = $1 AND NOT `+column, code)
	if err != nil {
		return false, fmt.Errorf("set %s: %w", column, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM hires WHERE code = $1)`, code).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, sentinel.ErrNotFound
	}
	return false, nil
}

// UpdateCardRef stores the chat/message reference of the externally-owned card.
func (s *PostgresStore) UpdateCardRef(ctx context.Context, code string, chatID, messageID int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE hires SET chat_id = $1, message_id = $2 WHERE code = $3`, chatID, messageID, code)
	if err != nil {
		return fmt.Errorf("update card ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
