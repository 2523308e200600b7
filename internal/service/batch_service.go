package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/haimph/transfer-approval-api/internal/dto"
	"github.com/haimph/transfer-approval-api/internal/models"
	"github.com/haimph/transfer-approval-api/internal/repository"
	appErrors "github.com/haimph/transfer-approval-api/pkg/errors"
)

var groupCodePattern = regexp.MustCompile(`^[0-9]{5}$`)

type batchStore interface {
	InTx(ctx context.Context, fn func(tx repository.TransferTx) error) error
	GetBatchDetail(ctx context.Context, id int64) (*models.BatchDetail, error)
	ListBatchRequests(ctx context.Context, batchID int64) ([]models.TransferRow, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListLeads(ctx context.Context) ([]models.LeadOption, error)
}

// BatchService files transfer slips: one batch row plus one transfer request
// per employee, created atomically with a freshly allocated slip number.
type BatchService struct {
	repo        batchStore
	users       userFinder
	audit       auditLogger
	invalidator listingInvalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewBatchService constructs the service.
func NewBatchService(repo batchStore, users userFinder, audit auditLogger, invalidator listingInvalidator, logger *zap.Logger) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		repo:        repo,
		users:       users,
		audit:       audit,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// splitEmployees tokenizes the raw employee field on commas, semicolons and
// any whitespace, dropping empty tokens.
func splitEmployees(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
}

// Create validates the slip, allocates the next PH number and inserts the
// batch together with all of its requests in a single transaction. Only
// Supervisors may file slips.
func (s *BatchService) Create(ctx context.Context, req dto.CreateBatchRequest, actor *models.JWTClaims) (*dto.CreateBatchResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleSupervisor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only Supervisors can file transfer requests")
	}

	if !groupCodePattern.MatchString(req.FromCode) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid from group code %q: must be exactly 5 digits", req.FromCode))
	}
	if !groupCodePattern.MatchString(req.ToCode) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid to group code %q: must be exactly 5 digits", req.ToCode))
	}
	if req.FromCode == req.ToCode {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from and to group codes must differ")
	}

	codes := splitEmployees(req.Employees)
	if len(codes) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "employee list is empty")
	}
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate employee code %q", code))
		}
		seen[code] = struct{}{}
	}

	effective, err := time.Parse("2006-01-02", req.EffectiveDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid effective date %q: expected YYYY-MM-DD", req.EffectiveDate))
	}

	lead, err := s.users.FindByID(ctx, req.DesignatedLeadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "designated lead not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve designated lead")
	}
	if lead.Role != models.RoleLead {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("user %s does not hold the LEAD role", lead.Username))
	}
	if !lead.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("lead account %s is inactive", lead.Username))
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = fmt.Sprintf("Transfer %d employees from %s to %s", len(codes), req.FromCode, req.ToCode)
	}

	createdAt := s.now().UTC()
	batch := &models.Batch{
		Description:    description,
		CreatedBy:      actor.UserID,
		DesignatedLead: &lead.ID,
		CreatedAt:      createdAt,
	}
	requests := make([]*models.TransferRequest, 0, len(codes))

	err = s.repo.InTx(ctx, func(tx repository.TransferTx) error {
		number, err := tx.NextBatchNumber(ctx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate batch number")
		}
		batch.BatchNumber = number

		if err := tx.CreateBatch(ctx, batch); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
		}

		for _, code := range codes {
			requests = append(requests, &models.TransferRequest{
				BatchID:       &batch.ID,
				MSNV:          code,
				FromCode:      req.FromCode,
				ToCode:        req.ToCode,
				EffectiveDate: effective,
				IsPermanent:   req.IsPermanent,
				Status:        models.TransferStatusPending,
				RequestedBy:   actor.UserID,
				CreatedAt:     createdAt,
			})
		}
		if err := tx.CreateRequests(ctx, requests); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create transfer requests")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch created",
		zap.String("batch_number", batch.BatchNumber),
		zap.Int("requests", len(requests)),
		zap.String("created_by", actor.UserID),
	)
	s.afterCreate(ctx, actor.UserID, batch, len(requests))

	return &dto.CreateBatchResponse{
		Batch:     *batch,
		Requests:  dereference(requests),
		LeadName:  lead.Username,
		CreatedAt: createdAt.Format(time.RFC3339),
	}, nil
}

func dereference(requests []*models.TransferRequest) []models.TransferRequest {
	out := make([]models.TransferRequest, len(requests))
	for i, req := range requests {
		out[i] = *req
	}
	return out
}

// Get returns one batch with its requests.
func (s *BatchService) Get(ctx context.Context, id int64) (*dto.BatchGroup, error) {
	detail, err := s.repo.GetBatchDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("batch #%d not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	rows, err := s.repo.ListBatchRequests(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch requests")
	}
	return &dto.BatchGroup{Batch: *detail, Requests: rows}, nil
}

// ListLeads returns the active LEAD accounts for the slip form selector.
func (s *BatchService) ListLeads(ctx context.Context) ([]models.LeadOption, error) {
	leads, err := s.users.ListLeads(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leads")
	}
	return leads, nil
}

func (s *BatchService) afterCreate(ctx context.Context, actorID string, batch *models.Batch, count int) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(map[string]interface{}{
		"batch_number": batch.BatchNumber,
		"requests":     count,
	})
	resourceID := fmt.Sprintf("%d", batch.ID)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionBatchCreate,
		Resource:   "batch",
		ResourceID: &resourceID,
		NewValues:  body,
		IPAddress:  "system",
		UserAgent:  "batch-service",
	}); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
