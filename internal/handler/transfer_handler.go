package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/haimph/transfer-approval-api/internal/dto"
	"github.com/haimph/transfer-approval-api/internal/models"
	"github.com/haimph/transfer-approval-api/internal/repository"
	"github.com/haimph/transfer-approval-api/internal/service"
	appErrors "github.com/haimph/transfer-approval-api/pkg/errors"
	"github.com/haimph/transfer-approval-api/pkg/response"
)

type transferWorkflow interface {
	Approve(ctx context.Context, id int64, actor *models.JWTClaims) (*models.TransferRow, error)
	Confirm(ctx context.Context, id int64, actor *models.JWTClaims) (*models.TransferRow, error)
	Reject(ctx context.Context, id int64, reason string, actor *models.JWTClaims) (*models.TransferRow, error)
	Cancel(ctx context.Context, id int64, actor *models.JWTClaims) (*models.TransferRow, error)
	BulkApply(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims) (*models.BulkOutcome, error)
	Get(ctx context.Context, id int64, actor *models.JWTClaims) (*models.TransferRow, error)
	Section(ctx context.Context, section repository.ActorSection, actor *models.JWTClaims, page, pageSize int) ([]models.TransferRow, *models.Pagination, error)
}

type dashboardLister interface {
	List(ctx context.Context, query dto.TransferQuery, actor *models.JWTClaims) (*dto.DashboardResponse, *models.Pagination, bool, error)
}

type listingExporter interface {
	Export(ctx context.Context, query dto.TransferQuery, format service.ExportFormat) (*service.ExportFile, error)
}

// TransferHandler wires HTTP endpoints to the transfer services.
type TransferHandler struct {
	transfers transferWorkflow
	dashboard dashboardLister
	exports   listingExporter
}

// NewTransferHandler creates a new handler.
func NewTransferHandler(transfers transferWorkflow, dashboard dashboardLister, exports listingExporter) *TransferHandler {
	return &TransferHandler{transfers: transfers, dashboard: dashboard, exports: exports}
}

func transferID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrInvalidArgument, "transfer request id must be an integer")
	}
	return id, nil
}

// List godoc
// @Summary Dashboard listing
// @Description Filtered transfer requests grouped by batch
// @Tags Transfers
// @Produce json
// @Param desc query string false "Batch description filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (10, 20, 50, 100)"
// @Success 200 {object} response.Envelope
// @Router /transfers [get]
func (h *TransferHandler) List(c *gin.Context) {
	var query dto.TransferQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid listing filters"))
		return
	}

	res, pagination, cached, err := h.dashboard.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, pagination, map[string]interface{}{"cached": cached})
}

// Get godoc
// @Summary Transfer request detail
// @Tags Transfers
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /transfers/{id} [get]
func (h *TransferHandler) Get(c *gin.Context) {
	id, err := transferID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	row, err := h.transfers.Get(c.Request.Context(), id, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, row, nil)
}

// Approve godoc
// @Summary Approve a pending request
// @Tags Transfers
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /transfers/{id}/approve [post]
func (h *TransferHandler) Approve(c *gin.Context) {
	id, err := transferID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	row, err := h.transfers.Approve(c.Request.Context(), id, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, row, nil)
}

// Confirm godoc
// @Summary Confirm an approved request
// @Tags Transfers
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /transfers/{id}/confirm [post]
func (h *TransferHandler) Confirm(c *gin.Context) {
	id, err := transferID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	row, err := h.transfers.Confirm(c.Request.Context(), id, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, row, nil)
}

// Reject godoc
// @Summary Reject a request with a reason
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.RejectTransferRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /transfers/{id}/reject [post]
func (h *TransferHandler) Reject(c *gin.Context) {
	id, err := transferID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.RejectTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "rejection reason is required"))
		return
	}

	row, err := h.transfers.Reject(c.Request.Context(), id, req.Reason, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, row, nil)
}

// Cancel godoc
// @Summary Cancel an own pending request
// @Tags Transfers
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *gin.Context) {
	id, err := transferID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	row, err := h.transfers.Cancel(c.Request.Context(), id, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, row, nil)
}

// Bulk godoc
// @Summary Apply one action to many requests
// @Description Rows that fail a rule are skipped with a reason; the rest succeed
// @Tags Transfers
// @Accept json
// @Produce json
// @Param payload body dto.BulkActionRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /transfers/bulk [post]
func (h *TransferHandler) Bulk(c *gin.Context) {
	var req dto.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk payload"))
		return
	}

	outcome, err := h.transfers.BulkApply(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, outcome, nil)
}

func (h *TransferHandler) section(c *gin.Context, section repository.ActorSection) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	rows, pagination, err := h.transfers.Section(c.Request.Context(), section, claimsFromContext(c), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, pagination)
}

// Mine godoc
// @Summary Requests filed by the current Supervisor
// @Tags Transfers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /transfers/mine [get]
func (h *TransferHandler) Mine(c *gin.Context) {
	h.section(c, repository.SectionRequested)
}

// ApprovedByMe godoc
// @Summary Requests approved by the current Lead
// @Tags Transfers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /transfers/approved-by-me [get]
func (h *TransferHandler) ApprovedByMe(c *gin.Context) {
	h.section(c, repository.SectionApproved)
}

// ConfirmedByMe godoc
// @Summary Requests confirmed by the current Data Processor
// @Tags Transfers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /transfers/confirmed-by-me [get]
func (h *TransferHandler) ConfirmedByMe(c *gin.Context) {
	h.section(c, repository.SectionConfirmed)
}

// Export godoc
// @Summary Export the filtered listing
// @Description Render matching requests as CSV or PDF
// @Tags Transfers
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /transfers/export [get]
func (h *TransferHandler) Export(c *gin.Context) {
	var query dto.TransferQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export filters"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	file, err := h.exports.Export(c.Request.Context(), query, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
