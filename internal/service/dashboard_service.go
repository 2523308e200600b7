package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/haimph/transfer-approval-api/internal/dto"
	"github.com/haimph/transfer-approval-api/internal/models"
	"github.com/haimph/transfer-approval-api/internal/repository"
	appErrors "github.com/haimph/transfer-approval-api/pkg/errors"
)

const dashboardCachePrefix = "dashboard:"

// sectionLimit caps the viewer-specific panels on the dashboard page.
const sectionLimit = 20

var allowedPageSizes = map[int]bool{10: true, 20: true, 50: true, 100: true}

type dashboardStore interface {
	List(ctx context.Context, filter models.TransferFilter) ([]models.TransferRow, int, error)
	ListByActor(ctx context.Context, section repository.ActorSection, userID string, limit, offset int) ([]models.TransferRow, int, error)
	GetBatchDetail(ctx context.Context, id int64) (*models.BatchDetail, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the request listing page: filtered rows grouped
// by slip, plus the viewer's role-specific panels.
type DashboardService struct {
	repo   dashboardStore
	cache  *CacheService
	logger *zap.Logger
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(repo dashboardStore, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, cfg: cfg}
}

type dashboardPayload struct {
	Response   dto.DashboardResponse `json:"response"`
	Pagination models.Pagination     `json:"pagination"`
}

// List returns the filtered dashboard page and reports whether it was served
// from cache. Page size snaps to one of 10, 20, 50 or 100.
func (s *DashboardService) List(ctx context.Context, query dto.TransferQuery, actor *models.JWTClaims) (*dto.DashboardResponse, *models.Pagination, bool, error) {
	if actor == nil {
		return nil, nil, false, appErrors.ErrUnauthorized
	}

	filter, err := buildFilter(query)
	if err != nil {
		return nil, nil, false, err
	}

	key := dashboardCacheKey(query, actor)
	if s.cache.Enabled() {
		var cached dashboardPayload
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached.Response, &cached.Pagination, true, nil
		}
	}

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transfer requests")
	}

	response, err := s.groupByBatch(ctx, rows)
	if err != nil {
		return nil, nil, false, err
	}
	response.Sections = s.sectionsFor(ctx, actor)

	pagination := models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, dashboardPayload{Response: *response, Pagination: pagination}, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard page", zap.Error(err))
		}
	}

	return response, &pagination, false, nil
}

// Invalidate drops every cached dashboard page. Called after any workflow
// write so viewers never see a stale status.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func buildFilter(query dto.TransferQuery) (models.TransferFilter, error) {
	filter := models.TransferFilter{
		Description: strings.TrimSpace(query.Description),
		ApprovedBy:  strings.TrimSpace(query.ApprovedBy),
		ConfirmedBy: strings.TrimSpace(query.ConfirmedBy),
		RequestedBy: strings.TrimSpace(query.RequestedBy),
		MSNV:        strings.TrimSpace(query.MSNV),
		Page:        query.Page,
		PageSize:    query.PageSize,
	}

	if status := strings.TrimSpace(query.Status); status != "" {
		candidate := models.TransferStatus(strings.ToUpper(status))
		switch candidate {
		case models.TransferStatusPending, models.TransferStatusApproved, models.TransferStatusConfirmed,
			models.TransferStatusRejected, models.TransferStatusCanceled:
			filter.Status = candidate
		default:
			return filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status filter %q", status))
		}
	}

	if query.CreatedFrom != "" {
		from, err := time.Parse("2006-01-02", query.CreatedFrom)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid created_from date %q", query.CreatedFrom))
		}
		filter.CreatedFrom = &from
	}
	if query.CreatedTo != "" {
		to, err := time.Parse("2006-01-02", query.CreatedTo)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid created_to date %q", query.CreatedTo))
		}
		filter.CreatedTo = &to
	}

	if !allowedPageSizes[filter.PageSize] {
		filter.PageSize = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	return filter, nil
}

// groupByBatch splits the page into slips (in first-appearance order, rows
// kept in listing order) and batch-less standalone rows.
func (s *DashboardService) groupByBatch(ctx context.Context, rows []models.TransferRow) (*dto.DashboardResponse, error) {
	response := &dto.DashboardResponse{
		Batches:    []dto.BatchGroup{},
		Standalone: []models.TransferRow{},
	}
	index := make(map[int64]int)

	for _, row := range rows {
		if row.BatchID == nil {
			response.Standalone = append(response.Standalone, row)
			continue
		}
		id := *row.BatchID
		pos, seen := index[id]
		if !seen {
			detail, err := s.repo.GetBatchDetail(ctx, id)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch for dashboard")
			}
			response.Batches = append(response.Batches, dto.BatchGroup{Batch: *detail})
			pos = len(response.Batches) - 1
			index[id] = pos
		}
		response.Batches[pos].Requests = append(response.Batches[pos].Requests, row)
	}
	return response, nil
}

func (s *DashboardService) sectionsFor(ctx context.Context, actor *models.JWTClaims) *dto.RoleSections {
	var section repository.ActorSection
	switch actor.Role {
	case models.RoleSupervisor:
		section = repository.SectionRequested
	case models.RoleLead:
		section = repository.SectionApproved
	case models.RoleDataProcessor:
		section = repository.SectionConfirmed
	default:
		return nil
	}

	rows, _, err := s.repo.ListByActor(ctx, section, actor.UserID, sectionLimit, 0)
	if err != nil {
		s.logger.Warn("failed to load dashboard section", zap.String("section", string(section)), zap.Error(err))
		return nil
	}

	sections := &dto.RoleSections{}
	switch section {
	case repository.SectionRequested:
		sections.MyRequests = rows
	case repository.SectionApproved:
		sections.ApprovedByMe = rows
	case repository.SectionConfirmed:
		sections.ConfirmedByMe = rows
	}
	return sections
}

func dashboardCacheKey(query dto.TransferQuery, actor *models.JWTClaims) string {
	parts := []string{
		dashboardCachePrefix + actor.UserID,
		query.Description, query.Status, query.CreatedFrom, query.CreatedTo,
		query.ApprovedBy, query.ConfirmedBy, query.RequestedBy, query.MSNV,
		fmt.Sprintf("%d:%d", query.Page, query.PageSize),
	}
	return strings.Join(parts, "|")
}
