package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/haimph/transfer-approval-api/internal/models"
	appErrors "github.com/haimph/transfer-approval-api/pkg/errors"
)

func newTransferRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var lockedColumns = []string{
	"id", "batch_id", "msnv", "from_code", "to_code", "effective_date", "is_permanent", "status",
	"requested_by", "approved_by", "confirmed_by", "rejected_by", "canceled_by", "rejection_reason",
	"approved_at", "confirmed_at", "rejected_at", "canceled_at", "created_at", "updated_at",
	"designated_lead", "designated_lead_name",
}

func lockedMockRow(id int64, status models.TransferStatus, lead string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(lockedColumns).AddRow(
		id, int64(1), "10001", "11111", "22222", now, false, status,
		"sup-1", nil, nil, nil, nil, nil,
		nil, nil, nil, nil, now, now,
		lead, "u-"+lead,
	)
}

func TestTransferRepositoryApplyTransitionInTx(t *testing.T) {
	db, mock, cleanup := newTransferRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db)
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT tr.id, tr.batch_id")).
		WithArgs(int64(7)).
		WillReturnRows(lockedMockRow(7, models.TransferStatusPending, "lead-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE transfer_requests SET status = $3, approved_by = $4, approved_at = $5")).
		WithArgs(int64(7), models.TransferStatusPending, models.TransferStatusApproved, "lead-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(tx TransferTx) error {
		locked, err := tx.LockForUpdate(context.Background(), 7)
		if err != nil {
			return err
		}
		require.Equal(t, models.TransferStatusPending, locked.Status)
		require.NotNil(t, locked.DesignatedLead)
		require.Equal(t, "lead-1", *locked.DesignatedLead)
		return tx.ApplyTransition(context.Background(), TransitionParams{
			ID: 7, Action: models.ActionApprove,
			From: models.TransferStatusPending, To: models.TransferStatusApproved,
			Actor: "lead-1", At: at,
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryRejectWritesReason(t *testing.T) {
	db, mock, cleanup := newTransferRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db)
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	reason := "position filled"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE transfer_requests SET status = $3, rejected_by = $4, rejected_at = $5, rejection_reason = $6")).
		WithArgs(int64(7), models.TransferStatusPending, models.TransferStatusRejected, "lead-1", at, reason).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(tx TransferTx) error {
		return tx.ApplyTransition(context.Background(), TransitionParams{
			ID: 7, Action: models.ActionReject,
			From: models.TransferStatusPending, To: models.TransferStatusRejected,
			Actor: "lead-1", Reason: &reason, At: at,
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newTransferRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db)
	mock.ExpectBegin()
	mock.ExpectRollback()

	denial := appErrors.Clone(appErrors.ErrInvalidTransition, "already approved")
	err := repo.InTx(context.Background(), func(tx TransferTx) error {
		return denial
	})
	require.ErrorIs(t, err, denial)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryStatusGuard(t *testing.T) {
	db, mock, cleanup := newTransferRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db)
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE transfer_requests SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(tx TransferTx) error {
		return tx.ApplyTransition(context.Background(), TransitionParams{
			ID: 7, Action: models.ActionCancel,
			From: models.TransferStatusPending, To: models.TransferStatusCanceled,
			Actor: "sup-1", At: at,
		})
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryMarksContentionRetryable(t *testing.T) {
	db, mock, cleanup := newTransferRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(tx TransferTx) error {
		return &pq.Error{Code: "55P03"}
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrRetryable.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryCreateBatchWithRequests(t *testing.T) {
	db, mock, cleanup := newTransferRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db)
	lead := "lead-1"
	now := time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(id), 0) + 1 FROM batches")).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(4)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO batches")).
		WithArgs("PH00004", "Transfer 2 employees from 11111 to 22222", "sup-1", &lead, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO transfer_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO transfer_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	var batch models.Batch
	requests := []*models.TransferRequest{
		{MSNV: "10001", FromCode: "11111", ToCode: "22222", Status: models.TransferStatusPending, RequestedBy: "sup-1", CreatedAt: now},
		{MSNV: "10002", FromCode: "11111", ToCode: "22222", Status: models.TransferStatusPending, RequestedBy: "sup-1", CreatedAt: now},
	}

	err := repo.InTx(context.Background(), func(tx TransferTx) error {
		number, err := tx.NextBatchNumber(context.Background())
		if err != nil {
			return err
		}
		require.Equal(t, "PH00004", number)

		batch = models.Batch{
			BatchNumber:    number,
			Description:    "Transfer 2 employees from 11111 to 22222",
			CreatedBy:      "sup-1",
			DesignatedLead: &lead,
			CreatedAt:      now,
		}
		if err := tx.CreateBatch(context.Background(), &batch); err != nil {
			return err
		}
		for _, req := range requests {
			req.BatchID = &batch.ID
		}
		return tx.CreateRequests(context.Background(), requests)
	})
	require.NoError(t, err)
	require.Equal(t, int64(4), batch.ID)
	require.Equal(t, int64(41), requests[0].ID)
	require.Equal(t, int64(42), requests[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryListBuildsFilter(t *testing.T) {
	db, mock, cleanup := newTransferRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db)
	now := time.Now().UTC()

	rowColumns := append(append([]string{}, lockedColumns[:20]...),
		"batch_number", "batch_description", "requested_by_name",
		"approved_by_name", "confirmed_by_name", "rejected_by_name", "canceled_by_name")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("%relocation%", models.TransferStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT tr.id, tr.batch_id")).
		WithArgs("%relocation%", models.TransferStatusPending).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
			int64(7), int64(1), "10001", "11111", "22222", now, false, models.TransferStatusPending,
			"sup-1", nil, nil, nil, nil, nil,
			nil, nil, nil, nil, now, now,
			"PH00001", "relocation", "supervisor1", nil, nil, nil, nil,
		))

	rows, total, err := repo.List(context.Background(), models.TransferFilter{
		Description: "relocation",
		Status:      models.TransferStatusPending,
		Page:        1,
		PageSize:    20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, rows, 1)
	require.Equal(t, int64(7), rows[0].ID)
	require.NotNil(t, rows[0].BatchNumber)
	require.Equal(t, "PH00001", *rows[0].BatchNumber)
	require.Equal(t, "supervisor1", rows[0].RequestedByName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryListByActorUnknownSection(t *testing.T) {
	db, _, cleanup := newTransferRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db)
	_, _, err := repo.ListByActor(context.Background(), ActorSection("bogus"), "u-1", 20, 0)
	require.Error(t, err)
}

func TestTransferRepositoryGetBatchDetail(t *testing.T) {
	db, mock, cleanup := newTransferRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db)
	now := time.Now().UTC()
	lead := "lead-1"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT b.id, b.batch_number")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "batch_number", "description", "created_by", "designated_lead", "created_at", "created_by_name", "designated_lead_name"}).
			AddRow(int64(4), "PH00004", "relocation", "sup-1", &lead, now, "supervisor1", "lead1"))

	detail, err := repo.GetBatchDetail(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, "PH00004", detail.BatchNumber)
	require.Equal(t, "supervisor1", detail.CreatedByName)
	require.NotNil(t, detail.DesignatedLeadName)
	require.Equal(t, "lead1", *detail.DesignatedLeadName)
	require.NoError(t, mock.ExpectationsWereMet())
}
