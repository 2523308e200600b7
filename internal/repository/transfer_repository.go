package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/haimph/transfer-approval-api/internal/models"
	appErrors "github.com/haimph/transfer-approval-api/pkg/errors"
)

const transferColumns = `tr.id, tr.batch_id, tr.msnv, tr.from_code, tr.to_code, tr.effective_date, tr.is_permanent, tr.status,
       tr.requested_by, tr.approved_by, tr.confirmed_by, tr.rejected_by, tr.canceled_by, tr.rejection_reason,
       tr.approved_at, tr.confirmed_at, tr.rejected_at, tr.canceled_at, tr.created_at, tr.updated_at`

// TransferRepository persists batches and transfer requests.
type TransferRepository struct {
	db *sqlx.DB
}

// NewTransferRepository constructs the repository.
func NewTransferRepository(db *sqlx.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// TransitionParams groups the columns written by one workflow transition.
type TransitionParams struct {
	ID     int64
	Action models.TransferAction
	From   models.TransferStatus
	To     models.TransferStatus
	Actor  string
	Reason *string
	At     time.Time
}

// TransferTx exposes the writes that must run inside one locking transaction.
// LockForUpdate must be called before evaluating any transition rule so that
// concurrent callers serialize on the row.
type TransferTx interface {
	LockForUpdate(ctx context.Context, id int64) (*models.LockedTransfer, error)
	ApplyTransition(ctx context.Context, params TransitionParams) error
	NextBatchNumber(ctx context.Context) (string, error)
	CreateBatch(ctx context.Context, batch *models.Batch) error
	CreateRequests(ctx context.Context, requests []*models.TransferRequest) error
}

// InTx runs fn inside a transaction, rolling back on error. Lock contention
// and deadlocks surface as retryable errors rather than plain internals.
func (r *TransferRepository) InTx(ctx context.Context, fn func(tx TransferTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer transaction: %w", err)
	}
	if err := fn(&transferTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return markRetryable(err)
	}
	if err := tx.Commit(); err != nil {
		return markRetryable(fmt.Errorf("commit transfer transaction: %w", err))
	}
	return nil
}

// markRetryable converts Postgres contention failures into the retryable
// taxonomy so callers can distinguish them from business-rule errors.
func markRetryable(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case "40001", "40P01", "55P03":
			return appErrors.Wrap(err, appErrors.ErrRetryable.Code, appErrors.ErrRetryable.Status, appErrors.ErrRetryable.Message)
		}
	}
	return err
}

type transferTx struct {
	tx *sqlx.Tx
}

// LockForUpdate reads a request and its batch designation under an exclusive
// row lock held until the transaction ends.
func (t *transferTx) LockForUpdate(ctx context.Context, id int64) (*models.LockedTransfer, error) {
	query := `SELECT ` + transferColumns + `,
       b.designated_lead AS designated_lead,
       lu.username AS designated_lead_name
	FROM transfer_requests tr
	LEFT JOIN batches b ON b.id = tr.batch_id
	LEFT JOIN users lu ON lu.id = b.designated_lead
	WHERE tr.id = $1
	FOR UPDATE OF tr`
	var locked models.LockedTransfer
	if err := t.tx.GetContext(ctx, &locked, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock transfer request %d: %w", id, err)
	}
	return &locked, nil
}

// ApplyTransition writes the columns of one transition. The status guard in
// the WHERE clause backs up the row lock; zero affected rows means the row
// moved underneath us and surfaces as sql.ErrNoRows.
func (t *transferTx) ApplyTransition(ctx context.Context, params TransitionParams) error {
	var set string
	args := []interface{}{params.ID, params.From, params.To, params.Actor, params.At}
	switch params.Action {
	case models.ActionApprove:
		set = "approved_by = $4, approved_at = $5"
	case models.ActionConfirm:
		set = "confirmed_by = $4, confirmed_at = $5"
	case models.ActionReject:
		set = "rejected_by = $4, rejected_at = $5, rejection_reason = $6"
		args = append(args, params.Reason)
	case models.ActionCancel:
		set = "canceled_by = $4, canceled_at = $5"
	default:
		return fmt.Errorf("unsupported transition action %q", params.Action)
	}
	query := fmt.Sprintf(`UPDATE transfer_requests SET status = $3, %s, updated_at = $5 WHERE id = $1 AND status = $2`, set)
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("apply %s transition: %w", params.Action, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s transition rows: %w", params.Action, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// NextBatchNumber allocates the next slip number from the current maximum
// batch id. Computing from MAX(id) rather than a counter tolerates id gaps.
func (t *transferTx) NextBatchNumber(ctx context.Context) (string, error) {
	var next int64
	if err := t.tx.GetContext(ctx, &next, `SELECT COALESCE(MAX(id), 0) + 1 FROM batches`); err != nil {
		return "", fmt.Errorf("allocate batch number: %w", err)
	}
	return fmt.Sprintf("PH%05d", next), nil
}

// CreateBatch inserts a batch row and fills in its generated id.
func (t *transferTx) CreateBatch(ctx context.Context, batch *models.Batch) error {
	const query = `INSERT INTO batches (batch_number, description, created_by, designated_lead, created_at)
	VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	if err := t.tx.GetContext(ctx, &batch.ID, query, batch.BatchNumber, batch.Description, batch.CreatedBy, batch.DesignatedLead, batch.CreatedAt); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// CreateRequests inserts the batch's child rows, filling in generated ids.
func (t *transferTx) CreateRequests(ctx context.Context, requests []*models.TransferRequest) error {
	const query = `INSERT INTO transfer_requests
	(batch_id, msnv, from_code, to_code, effective_date, is_permanent, status, requested_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`
	for _, req := range requests {
		if req.CreatedAt.IsZero() {
			req.CreatedAt = time.Now().UTC()
		}
		req.UpdatedAt = req.CreatedAt
		if err := t.tx.GetContext(ctx, &req.ID, query,
			req.BatchID, req.MSNV, req.FromCode, req.ToCode, req.EffectiveDate,
			req.IsPermanent, req.Status, req.RequestedBy, req.CreatedAt); err != nil {
			return fmt.Errorf("create transfer request for %s: %w", req.MSNV, err)
		}
	}
	return nil
}

const transferRowColumns = transferColumns + `,
       b.batch_number AS batch_number,
       b.description AS batch_description,
       ru.username AS requested_by_name,
       au.username AS approved_by_name,
       cu.username AS confirmed_by_name,
       ju.username AS rejected_by_name,
       xu.username AS canceled_by_name`

const transferRowJoins = `
	FROM transfer_requests tr
	LEFT JOIN batches b ON b.id = tr.batch_id
	JOIN users ru ON ru.id = tr.requested_by
	LEFT JOIN users au ON au.id = tr.approved_by
	LEFT JOIN users cu ON cu.id = tr.confirmed_by
	LEFT JOIN users ju ON ju.id = tr.rejected_by
	LEFT JOIN users xu ON xu.id = tr.canceled_by`

// GetRow fetches one request decorated with display names.
func (r *TransferRepository) GetRow(ctx context.Context, id int64) (*models.TransferRow, error) {
	query := `SELECT ` + transferRowColumns + transferRowJoins + ` WHERE tr.id = $1`
	var row models.TransferRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get transfer request: %w", err)
	}
	return &row, nil
}

// List returns requests matching the dashboard filter, newest first, with the
// total row count for pagination.
func (r *TransferRepository) List(ctx context.Context, filter models.TransferFilter) ([]models.TransferRow, int, error) {
	conditions := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)

	if filter.Description != "" {
		args = append(args, "%"+filter.Description+"%")
		conditions = append(conditions, fmt.Sprintf("b.description ILIKE $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("tr.status = $%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		conditions = append(conditions, fmt.Sprintf("tr.created_at::date >= $%d::date", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		conditions = append(conditions, fmt.Sprintf("tr.created_at::date <= $%d::date", len(args)))
	}
	if filter.ApprovedBy != "" {
		args = append(args, "%"+filter.ApprovedBy+"%")
		conditions = append(conditions, fmt.Sprintf("(au.username ILIKE $%d OR au.msnv ILIKE $%d)", len(args), len(args)))
	}
	if filter.ConfirmedBy != "" {
		args = append(args, "%"+filter.ConfirmedBy+"%")
		conditions = append(conditions, fmt.Sprintf("(cu.username ILIKE $%d OR cu.msnv ILIKE $%d)", len(args), len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, "%"+filter.RequestedBy+"%")
		conditions = append(conditions, fmt.Sprintf("(ru.username ILIKE $%d OR ru.msnv ILIKE $%d)", len(args), len(args)))
	}
	if filter.MSNV != "" {
		args = append(args, "%"+filter.MSNV+"%")
		conditions = append(conditions, fmt.Sprintf("tr.msnv ILIKE $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*)` + transferRowJoins + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count transfer requests: %w", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + transferRowColumns + transferRowJoins + where +
		fmt.Sprintf(" ORDER BY tr.created_at DESC, tr.id DESC LIMIT %d OFFSET %d", pageSize, offset)

	var rows []models.TransferRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transfer requests: %w", err)
	}
	return rows, total, nil
}

// ActorSection names the role-specific dashboard panels.
type ActorSection string

const (
	SectionRequested ActorSection = "requested"
	SectionApproved  ActorSection = "approved"
	SectionConfirmed ActorSection = "confirmed"
)

// ListByActor returns the rows a given actor created, approved or confirmed,
// ordered by the timestamp of that involvement.
func (r *TransferRepository) ListByActor(ctx context.Context, section ActorSection, userID string, limit, offset int) ([]models.TransferRow, int, error) {
	var where, order string
	switch section {
	case SectionRequested:
		where, order = "tr.requested_by = $1", "tr.created_at DESC"
	case SectionApproved:
		where, order = "tr.approved_by = $1", "tr.approved_at DESC"
	case SectionConfirmed:
		where, order = "tr.confirmed_by = $1", "tr.confirmed_at DESC"
	default:
		return nil, 0, fmt.Errorf("unknown actor section %q", section)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+transferRowJoins+` WHERE `+where, userID); err != nil {
		return nil, 0, fmt.Errorf("count %s section: %w", section, err)
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + transferRowColumns + transferRowJoins +
		` WHERE ` + where + fmt.Sprintf(" ORDER BY %s LIMIT %d OFFSET %d", order, limit, offset)

	var rows []models.TransferRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, 0, fmt.Errorf("list %s section: %w", section, err)
	}
	return rows, total, nil
}

// GetBatchDetail loads one batch with actor usernames.
func (r *TransferRepository) GetBatchDetail(ctx context.Context, id int64) (*models.BatchDetail, error) {
	const query = `SELECT b.id, b.batch_number, b.description, b.created_by, b.designated_lead, b.created_at,
       cu.username AS created_by_name,
       lu.username AS designated_lead_name
	FROM batches b
	JOIN users cu ON cu.id = b.created_by
	LEFT JOIN users lu ON lu.id = b.designated_lead
	WHERE b.id = $1`
	var detail models.BatchDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &detail, nil
}

// ListBatchRequests returns every request on one slip, oldest first.
func (r *TransferRepository) ListBatchRequests(ctx context.Context, batchID int64) ([]models.TransferRow, error) {
	query := `SELECT ` + transferRowColumns + transferRowJoins + ` WHERE tr.batch_id = $1 ORDER BY tr.id`
	var rows []models.TransferRow
	if err := r.db.SelectContext(ctx, &rows, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch requests: %w", err)
	}
	return rows, nil
}
