package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haimph/transfer-approval-api/internal/dto"
	"github.com/haimph/transfer-approval-api/internal/models"
	appErrors "github.com/haimph/transfer-approval-api/pkg/errors"
	"github.com/haimph/transfer-approval-api/pkg/response"
)

type batchWorkflowMock struct {
	createResp *dto.CreateBatchResponse
	createErr  error
	getResp    *dto.BatchGroup
	getErr     error
	leads      []models.LeadOption
	leadsErr   error
	lastReq    dto.CreateBatchRequest
	lastID     int64
}

func (m *batchWorkflowMock) Create(ctx context.Context, req dto.CreateBatchRequest, actor *models.JWTClaims) (*dto.CreateBatchResponse, error) {
	m.lastReq = req
	return m.createResp, m.createErr
}

func (m *batchWorkflowMock) Get(ctx context.Context, id int64) (*dto.BatchGroup, error) {
	m.lastID = id
	return m.getResp, m.getErr
}

func (m *batchWorkflowMock) ListLeads(ctx context.Context) ([]models.LeadOption, error) {
	return m.leads, m.leadsErr
}

func validCreatePayload(t *testing.T) []byte {
	t.Helper()
	payload, err := json.Marshal(dto.CreateBatchRequest{
		Employees:        "10001, 10002",
		FromCode:         "11111",
		ToCode:           "22222",
		EffectiveDate:    "2025-07-01",
		DesignatedLeadID: "lead-1",
	})
	require.NoError(t, err)
	return payload
}

func TestBatchHandlerCreate(t *testing.T) {
	mockSvc := &batchWorkflowMock{
		createResp: &dto.CreateBatchResponse{
			Batch:    models.Batch{ID: 1, BatchNumber: "PH00001"},
			LeadName: "lead1",
		},
	}
	handler := NewBatchHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/batches", validCreatePayload(t), models.RoleSupervisor)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "10001, 10002", mockSvc.lastReq.Employees)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data)
}

func TestBatchHandlerCreateMissingFields(t *testing.T) {
	handler := NewBatchHandler(&batchWorkflowMock{})

	c, w := testContext(t, http.MethodPost, "/batches", []byte(`{"employees":"10001"}`), models.RoleSupervisor)

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchHandlerCreateServiceError(t *testing.T) {
	mockSvc := &batchWorkflowMock{createErr: appErrors.Clone(appErrors.ErrValidation, `invalid employee code "123"`)}
	handler := NewBatchHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/batches", validCreatePayload(t), models.RoleSupervisor)

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestBatchHandlerGet(t *testing.T) {
	mockSvc := &batchWorkflowMock{getResp: &dto.BatchGroup{}}
	handler := NewBatchHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/batches/4", nil, models.RoleLead)
	c.Params = gin.Params{{Key: "id", Value: "4"}}

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(4), mockSvc.lastID)
}

func TestBatchHandlerGetBadID(t *testing.T) {
	handler := NewBatchHandler(&batchWorkflowMock{})

	c, w := testContext(t, http.MethodGet, "/batches/abc", nil, models.RoleLead)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchHandlerGetNotFound(t *testing.T) {
	mockSvc := &batchWorkflowMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "batch #99 not found")}
	handler := NewBatchHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/batches/99", nil, models.RoleLead)
	c.Params = gin.Params{{Key: "id", Value: "99"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchHandlerListLeads(t *testing.T) {
	msnv := "20001"
	mockSvc := &batchWorkflowMock{leads: []models.LeadOption{{ID: "lead-1", Username: "lead1", MSNV: &msnv}}}
	handler := NewBatchHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/users/leads", nil, models.RoleSupervisor)

	handler.ListLeads(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lead1")
}
