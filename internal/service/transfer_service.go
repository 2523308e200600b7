package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/haimph/transfer-approval-api/internal/dto"
	"github.com/haimph/transfer-approval-api/internal/models"
	"github.com/haimph/transfer-approval-api/internal/repository"
	appErrors "github.com/haimph/transfer-approval-api/pkg/errors"
)

type transferStore interface {
	InTx(ctx context.Context, fn func(tx repository.TransferTx) error) error
	GetRow(ctx context.Context, id int64) (*models.TransferRow, error)
	ListByActor(ctx context.Context, section repository.ActorSection, userID string, limit, offset int) ([]models.TransferRow, int, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// listingInvalidator drops cached dashboard payloads after workflow writes.
type listingInvalidator interface {
	Invalidate(ctx context.Context)
}

// TransferService owns the request lifecycle: the four single-row transitions
// and the bulk processor, both evaluated from the shared rule table.
type TransferService struct {
	repo        transferStore
	audit       auditLogger
	invalidator listingInvalidator
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewTransferService constructs the service.
func NewTransferService(repo transferStore, audit auditLogger, invalidator listingInvalidator, metrics *MetricsService, logger *zap.Logger) *TransferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{
		repo:        repo,
		audit:       audit,
		invalidator: invalidator,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Approve moves a PENDING request to APPROVED on behalf of its Lead.
func (s *TransferService) Approve(ctx context.Context, id int64, actor *models.JWTClaims) (*models.TransferRow, error) {
	return s.applySingle(ctx, models.ActionApprove, id, "", actor)
}

// Confirm completes an APPROVED request on behalf of a Data Processor.
func (s *TransferService) Confirm(ctx context.Context, id int64, actor *models.JWTClaims) (*models.TransferRow, error) {
	return s.applySingle(ctx, models.ActionConfirm, id, "", actor)
}

// Reject refuses a request with a mandatory reason. Leads reject PENDING
// rows, Data Processors reject APPROVED ones.
func (s *TransferService) Reject(ctx context.Context, id int64, reason string, actor *models.JWTClaims) (*models.TransferRow, error) {
	return s.applySingle(ctx, models.ActionReject, id, reason, actor)
}

// Cancel withdraws a PENDING request; only its original requester may do so.
func (s *TransferService) Cancel(ctx context.Context, id int64, actor *models.JWTClaims) (*models.TransferRow, error) {
	return s.applySingle(ctx, models.ActionCancel, id, "", actor)
}

func (s *TransferService) applySingle(ctx context.Context, action models.TransferAction, id int64, reason string, actor *models.JWTClaims) (*models.TransferRow, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	err := s.repo.InTx(ctx, func(tx repository.TransferTx) error {
		row, err := tx.LockForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("transfer request #%d not found", id))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transfer request")
		}

		rule, denial := evaluateTransition(action, actor, row, reason)
		if denial != nil {
			if denial.forbidden {
				return appErrors.Clone(appErrors.ErrForbidden, denial.message)
			}
			return appErrors.Clone(appErrors.ErrInvalidTransition, denial.message)
		}

		params := repository.TransitionParams{
			ID:     id,
			Action: action,
			From:   rule.from,
			To:     rule.to,
			Actor:  actor.UserID,
			At:     s.now().UTC(),
		}
		if rule.needsReason {
			trimmed := strings.TrimSpace(reason)
			params.Reason = &trimmed
		}
		if err := tx.ApplyTransition(ctx, params); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrConflict, "transfer request was modified concurrently")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveTransition(action, "denied")
		return nil, err
	}
	s.metrics.ObserveTransition(action, "applied")

	s.logger.Info("transfer transition applied",
		zap.Int64("request_id", id),
		zap.String("action", string(action)),
		zap.String("actor", actor.UserID),
	)
	s.afterWrite(ctx, actor.UserID, models.AuditActionTransferApply, fmt.Sprintf("%d", id), map[string]interface{}{
		"action": action,
	})

	row, err := s.repo.GetRow(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload transfer request")
	}
	return row, nil
}

var actionDone = map[models.TransferAction]string{
	models.ActionApprove: "approved",
	models.ActionConfirm: "confirmed",
	models.ActionReject:  "rejected",
	models.ActionCancel:  "canceled",
}

// BulkApply processes every id independently inside one transaction. Rows are
// locked before evaluation; rule violations become skips with a reason and
// never abort the sibling rows. An unknown action aborts before any row is
// touched.
func (s *TransferService) BulkApply(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims) (*models.BulkOutcome, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !req.Action.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("unknown bulk action %q", req.Action))
	}
	if len(req.IDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no requests selected")
	}

	reason := strings.TrimSpace(req.Reason)
	outcome := &models.BulkOutcome{
		SuccessLines: make([]string, 0, len(req.IDs)),
		SkipLines:    make([]string, 0, len(req.IDs)),
	}

	err := s.repo.InTx(ctx, func(tx repository.TransferTx) error {
		for _, id := range req.IDs {
			row, err := tx.LockForUpdate(ctx, id)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					outcome.Skips++
					outcome.SkipLines = append(outcome.SkipLines, fmt.Sprintf("request #%d: does not exist", id))
					continue
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transfer request")
			}

			rule, denial := evaluateTransition(req.Action, actor, row, reason)
			if denial != nil {
				outcome.Skips++
				outcome.SkipLines = append(outcome.SkipLines, fmt.Sprintf("request #%d (MSNV: %s): %s", row.ID, row.MSNV, denial.message))
				continue
			}

			params := repository.TransitionParams{
				ID:     row.ID,
				Action: req.Action,
				From:   rule.from,
				To:     rule.to,
				Actor:  actor.UserID,
				At:     s.now().UTC(),
			}
			if rule.needsReason {
				params.Reason = &reason
			}
			if err := tx.ApplyTransition(ctx, params); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply bulk transition")
			}

			outcome.Successes++
			line := fmt.Sprintf("request #%d (MSNV: %s): %s", row.ID, row.MSNV, actionDone[req.Action])
			if req.Action == models.ActionReject {
				line = fmt.Sprintf("%s - %s", line, reason)
			}
			outcome.SuccessLines = append(outcome.SuccessLines, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveBulkRows(req.Action, outcome.Successes, outcome.Skips)

	s.logger.Info("bulk transfer action processed",
		zap.String("action", string(req.Action)),
		zap.Int("requested", len(req.IDs)),
		zap.Int("successes", outcome.Successes),
		zap.Int("skips", outcome.Skips),
		zap.String("actor", actor.UserID),
	)
	if outcome.Successes > 0 {
		s.afterWrite(ctx, actor.UserID, models.AuditActionBulkApply, "", map[string]interface{}{
			"action":    req.Action,
			"successes": outcome.Successes,
			"skips":     outcome.Skips,
		})
	}
	return outcome, nil
}

// Get returns one request with display names.
func (s *TransferService) Get(ctx context.Context, id int64, actor *models.JWTClaims) (*models.TransferRow, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	row, err := s.repo.GetRow(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("transfer request #%d not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transfer request")
	}
	return row, nil
}

var sectionRoles = map[repository.ActorSection]models.UserRole{
	repository.SectionRequested: models.RoleSupervisor,
	repository.SectionApproved:  models.RoleLead,
	repository.SectionConfirmed: models.RoleDataProcessor,
}

// Section returns the viewer's own involvement listing: requests they filed,
// approved or confirmed, depending on their role.
func (s *TransferService) Section(ctx context.Context, section repository.ActorSection, actor *models.JWTClaims, page, pageSize int) ([]models.TransferRow, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	required, ok := sectionRoles[section]
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("unknown section %q", section))
	}
	if actor.Role != required {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("section is restricted to %s accounts", roleLabel(required)))
	}

	if pageSize <= 0 {
		pageSize = 50
	}
	if page <= 0 {
		page = 1
	}
	rows, total, err := s.repo.ListByActor(ctx, section, actor.UserID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list section")
	}
	return rows, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *TransferService) afterWrite(ctx context.Context, actorID, action, resourceID string, payload map[string]interface{}) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(payload)
	log := &models.AuditLog{
		UserID:    &actorID,
		Action:    action,
		Resource:  "transfer_request",
		NewValues: body,
		IPAddress: "system",
		UserAgent: "transfer-service",
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
