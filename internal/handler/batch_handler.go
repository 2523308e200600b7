package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/haimph/transfer-approval-api/internal/dto"
	"github.com/haimph/transfer-approval-api/internal/models"
	appErrors "github.com/haimph/transfer-approval-api/pkg/errors"
	"github.com/haimph/transfer-approval-api/pkg/response"
)

type batchWorkflow interface {
	Create(ctx context.Context, req dto.CreateBatchRequest, actor *models.JWTClaims) (*dto.CreateBatchResponse, error)
	Get(ctx context.Context, id int64) (*dto.BatchGroup, error)
	ListLeads(ctx context.Context) ([]models.LeadOption, error)
}

// BatchHandler wires HTTP endpoints to the batch service.
type BatchHandler struct {
	service batchWorkflow
}

// NewBatchHandler creates a new handler.
func NewBatchHandler(svc batchWorkflow) *BatchHandler {
	return &BatchHandler{service: svc}
}

// Create godoc
// @Summary File a transfer slip
// @Description Create a batch with one transfer request per employee code
// @Tags Batches
// @Accept json
// @Produce json
// @Param payload body dto.CreateBatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}

	res, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Get godoc
// @Summary Batch detail
// @Description Return one batch with its transfer requests
// @Tags Batches
// @Produce json
// @Param id path int true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgument, "batch id must be an integer"))
		return
	}

	res, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ListLeads godoc
// @Summary Lead directory
// @Description Active LEAD accounts for the slip form selector
// @Tags Batches
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /users/leads [get]
func (h *BatchHandler) ListLeads(c *gin.Context) {
	leads, err := h.service.ListLeads(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leads, nil)
}
