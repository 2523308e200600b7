package dto

import "github.com/haimph/transfer-approval-api/internal/models"

// CreateBatchRequest files one slip with a transfer row per employee id.
// Employees accepts comma, semicolon, whitespace or newline separated MSNVs.
type CreateBatchRequest struct {
	Employees        string `json:"employees" binding:"required"`
	FromCode         string `json:"from_code" binding:"required"`
	ToCode           string `json:"to_code" binding:"required"`
	EffectiveDate    string `json:"effective_date" binding:"required"`
	IsPermanent      bool   `json:"is_permanent"`
	Description      string `json:"description"`
	DesignatedLeadID string `json:"designated_lead_id" binding:"required"`
}

// RejectTransferRequest carries the mandatory rejection reason.
type RejectTransferRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// BulkActionRequest applies one action across many request ids.
type BulkActionRequest struct {
	Action models.TransferAction `json:"action" binding:"required"`
	IDs    []int64               `json:"ids" binding:"required"`
	Reason string                `json:"reason"`
}

// TransferQuery mirrors the dashboard listing filters.
type TransferQuery struct {
	Description string `form:"desc"`
	Status      string `form:"status"`
	CreatedFrom string `form:"created_from"`
	CreatedTo   string `form:"created_to"`
	ApprovedBy  string `form:"approved_by"`
	ConfirmedBy string `form:"confirmed_by"`
	RequestedBy string `form:"requested_by"`
	MSNV        string `form:"msnv"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// BatchGroup is one slip with the listing rows that belong to it.
type BatchGroup struct {
	Batch    models.BatchDetail   `json:"batch"`
	Requests []models.TransferRow `json:"requests"`
}

// DashboardResponse groups the visible page by batch, keeping legacy
// batch-less rows in a separate standalone section.
type DashboardResponse struct {
	Batches    []BatchGroup         `json:"batches"`
	Standalone []models.TransferRow `json:"standalone"`
	Sections   *RoleSections        `json:"sections,omitempty"`
}

// RoleSections holds the viewer-specific dashboard panels.
type RoleSections struct {
	MyRequests    []models.TransferRow `json:"my_requests,omitempty"`
	ApprovedByMe  []models.TransferRow `json:"approved_by_me,omitempty"`
	ConfirmedByMe []models.TransferRow `json:"confirmed_by_me,omitempty"`
}

// CreateBatchResponse reports the created slip and its request count.
type CreateBatchResponse struct {
	Batch     models.Batch             `json:"batch"`
	Requests  []models.TransferRequest `json:"requests"`
	LeadName  string                   `json:"lead_name"`
	CreatedAt string                   `json:"created_at"`
}
