package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiretrack/internal/hire/models"
	"hiretrack/pkg/sentinel"
)

var hireRowColumns = []string{
	"code", "full_name", "role", "start_date",
	"leader_handle", "leader_user_id", "legal_handle", "legal_user_id", "devops_handle", "devops_user_id",
	"docs_email", "checklist", "notes",
	"overall_status", "leader_status", "legal_status", "devops_status",
	"legal_reminded", "devops_reminded", "escalated",
	"creator_id", "chat_id", "message_id", "created_at", "updated_at",
}

func hireRow(code string) *pgxmock.Rows {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(hireRowColumns).AddRow(
		code, "Dana Whitfield", "Backend Engineer", now.AddDate(0, 0, 7),
		"lead_anna", int64(200), "legal_li", int64(0), "ops_omar", int64(0),
		"dana@example.com", []string{"vpn", "email"}, "",
		models.OverallCreated, models.LeaderPending, models.LegalPending, models.DevOpsPending,
		false, false, false,
		int64(100), int64(0), int64(0), now, now,
	)
}

func testEntry(code, action string) models.HistoryEntry {
	return models.HistoryEntry{
		ID:       uuid.New(),
		HireCode: code,
		ActorID:  100,
		Action:   action,
		At:       time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgres(mock)
}

func TestGet(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + hireColumns + ` FROM hires WHERE code = $1`)).
		WithArgs("AB12").
		WillReturnRows(hireRow("AB12"))

	hire, err := store.Get(context.Background(), "AB12")
	require.NoError(t, err)
	assert.Equal(t, "AB12", hire.Code)
	assert.Equal(t, models.OverallCreated, hire.Overall)
	assert.Equal(t, []string{"vpn", "email"}, hire.Checklist)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + hireColumns + ` FROM hires WHERE code = $1`)).
		WithArgs("ZZZZ").
		WillReturnRows(pgxmock.NewRows(hireRowColumns))

	_, err := store.Get(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	mock, store := newMock(t)
	entry := testEntry("AB12", models.ActionCreated)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO hires`)).
		WithArgs(anyArgs(25)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO status_history`)).
		WithArgs(anyArgs(7)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	hire := &models.Hire{
		Code: "AB12", FullName: "Dana Whitfield", Role: "Backend Engineer",
		Overall: models.OverallCreated, LeaderStatus: models.LeaderPending,
		LegalStatus: models.LegalPending, DevOpsStatus: models.DevOpsPending,
		CreatorID: 100,
	}
	require.NoError(t, store.Create(context.Background(), hire, entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestCreateWithoutChecklist pins the nil-checklist normalization: a nil
// []string would encode as SQL NULL and trip the NOT NULL constraint, so the
// store must insert an empty array instead.
func TestCreateWithoutChecklist(t *testing.T) {
	mock, store := newMock(t)
	entry := testEntry("AB12", models.ActionCreated)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO hires`)).
		WithArgs(
			"AB12", "Dana Whitfield", "Backend Engineer", time.Time{},
			"", int64(0), "", int64(0), "", int64(0),
			"", []string{}, "",
			models.OverallCreated, models.LeaderPending, models.LegalPending, models.DevOpsPending,
			false, false, false,
			int64(100), int64(0), int64(0), time.Time{}, time.Time{},
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO status_history`)).
		WithArgs(anyArgs(7)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	hire := &models.Hire{
		Code: "AB12", FullName: "Dana Whitfield", Role: "Backend Engineer",
		Overall: models.OverallCreated, LeaderStatus: models.LeaderPending,
		LegalStatus: models.LegalPending, DevOpsStatus: models.DevOpsPending,
		CreatorID: 100,
	}
	require.NoError(t, store.Create(context.Background(), hire, entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateCode(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO hires`)).
		WithArgs(anyArgs(25)...).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})
	mock.ExpectRollback()

	err := store.Create(context.Background(), &models.Hire{Code: "AB12"}, testEntry("AB12", models.ActionCreated))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceSubStatus(t *testing.T) {
	mock, store := newMock(t)
	entry := testEntry("AB12", models.ActionLeaderStatusChanged)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + hireColumns + ` FROM hires WHERE code = $1 FOR UPDATE`)).
		WithArgs("AB12").
		WillReturnRows(hireRow("AB12"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE hires`)).
		WithArgs("ACKNOWLEDGED", models.OverallInProgress, entry.At, "AB12").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO status_history`)).
		WithArgs(anyArgs(7)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	hire, changed, err := store.AdvanceSubStatus(context.Background(), "AB12", models.DimensionLeader, entry)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.LeaderAcknowledged, hire.LeaderStatus)
	assert.Equal(t, models.OverallInProgress, hire.Overall)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceSubStatusAlreadyDone(t *testing.T) {
	mock, store := newMock(t)

	// A row whose leader track already advanced.
	row := pgxmock.NewRows(hireRowColumns).AddRow(
		"AB12", "Dana Whitfield", "Backend Engineer", time.Now(),
		"lead_anna", int64(200), "legal_li", int64(0), "ops_omar", int64(0),
		"dana@example.com", []string{}, "",
		models.OverallInProgress, models.LeaderAcknowledged, models.LegalPending, models.DevOpsPending,
		false, false, false,
		int64(100), int64(0), int64(0), time.Now(), time.Now(),
	)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + hireColumns + ` FROM hires WHERE code = $1 FOR UPDATE`)).
		WithArgs("AB12").
		WillReturnRows(row)
	mock.ExpectRollback()

	hire, changed, err := store.AdvanceSubStatus(context.Background(), "AB12", models.DimensionLeader, testEntry("AB12", models.ActionLeaderStatusChanged))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.LeaderAcknowledged, hire.LeaderStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetReminderFlag(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE hires SET legal_reminded = TRUE, updated_at = now()`)).
		WithArgs("AB12").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	set, err := store.SetReminderFlag(context.Background(), "AB12", models.ReminderLegal)
	require.NoError(t, err)
	assert.True(t, set)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetReminderFlagAlreadySet(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE hires SET escalated = TRUE, updated_at = now()`)).
		WithArgs("AB12").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM hires WHERE code = $1)`)).
		WithArgs("AB12").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	set, err := store.SetReminderFlag(context.Background(), "AB12", models.ReminderEscalation)
	require.NoError(t, err)
	assert.False(t, set)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetReminderFlagUnknownCode(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE hires SET devops_reminded = TRUE, updated_at = now()`)).
		WithArgs("ZZZZ").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM hires WHERE code = $1)`)).
		WithArgs("ZZZZ").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := store.SetReminderFlag(context.Background(), "ZZZZ", models.ReminderDevOps)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListOpen(t *testing.T) {
	mock, store := newMock(t)

	rows := hireRow("AB12").AddRow(
		"CD34", "Miguel Torres", "SRE", time.Now().AddDate(0, 0, 14),
		"lead_bo", int64(0), "legal_li", int64(0), "ops_omar", int64(0),
		"miguel@example.com", []string{}, "",
		models.OverallInProgress, models.LeaderAcknowledged, models.LegalPending, models.DevOpsPending,
		false, false, false,
		int64(100), int64(0), int64(0), time.Now(), time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + hireColumns + ` FROM hires`)).
		WithArgs(models.OverallCompleted).
		WillReturnRows(rows)

	hires, err := store.ListOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, hires, 2)
	assert.Equal(t, "CD34", hires[1].Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetOverallResetFlags(t *testing.T) {
	mock, store := newMock(t)
	entry := testEntry("AB12", models.ActionReopened)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE hires`)).
		WithArgs(models.OverallInProgress, entry.At, "AB12").
		WillReturnRows(hireRow("AB12"))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO status_history`)).
		WithArgs(anyArgs(7)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	_, err := store.SetOverall(context.Background(), "AB12", models.OverallInProgress, true, entry)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendNoteUnknownCode(t *testing.T) {
	mock, store := newMock(t)
	entry := testEntry("ZZZZ", models.ActionNoteAdded)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE hires SET notes = notes || $1`)).
		WithArgs("\nnote", entry.At, "ZZZZ").
		WillReturnRows(pgxmock.NewRows(hireRowColumns))
	mock.ExpectRollback()

	_, err := store.AppendNote(context.Background(), "ZZZZ", "\nnote", entry)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateUniqueViolationOnly(t *testing.T) {
	otherErr := errors.New("boom")
	mock, store := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO hires`)).WithArgs(anyArgs(25)...).WillReturnError(otherErr)
	mock.ExpectRollback()

	err := store.Create(context.Background(), &models.Hire{Code: "AB12"}, testEntry("AB12", models.ActionCreated))
	require.Error(t, err)
	assert.NotErrorIs(t, err, sentinel.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
