package models

import "time"

// TransferStatus captures workflow states for transfer requests.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusApproved  TransferStatus = "APPROVED"
	TransferStatusConfirmed TransferStatus = "CONFIRMED"
	TransferStatusRejected  TransferStatus = "REJECTED"
	TransferStatusCanceled  TransferStatus = "CANCELED"
)

// Terminal reports whether no further transition may leave the status.
func (s TransferStatus) Terminal() bool {
	switch s {
	case TransferStatusConfirmed, TransferStatusRejected, TransferStatusCanceled:
		return true
	}
	return false
}

// Label returns the human-readable form used in outcome messages.
func (s TransferStatus) Label() string {
	switch s {
	case TransferStatusPending:
		return "pending approval"
	case TransferStatusApproved:
		return "approved"
	case TransferStatusConfirmed:
		return "confirmed"
	case TransferStatusRejected:
		return "rejected"
	case TransferStatusCanceled:
		return "canceled"
	}
	return string(s)
}

// TransferAction enumerates the workflow transitions.
type TransferAction string

const (
	ActionApprove TransferAction = "approve"
	ActionConfirm TransferAction = "confirm"
	ActionReject  TransferAction = "reject"
	ActionCancel  TransferAction = "cancel"
)

// Valid reports whether the action is one of the four workflow transitions.
func (a TransferAction) Valid() bool {
	switch a {
	case ActionApprove, ActionConfirm, ActionReject, ActionCancel:
		return true
	}
	return false
}

// TransferRequest is the core workflow entity. Rows are never deleted;
// REJECTED and CANCELED are terminal states retained for audit.
type TransferRequest struct {
	ID              int64          `db:"id" json:"id"`
	BatchID         *int64         `db:"batch_id" json:"batch_id,omitempty"`
	MSNV            string         `db:"msnv" json:"msnv"`
	FromCode        string         `db:"from_code" json:"from_code"`
	ToCode          string         `db:"to_code" json:"to_code"`
	EffectiveDate   time.Time      `db:"effective_date" json:"effective_date"`
	IsPermanent     bool           `db:"is_permanent" json:"is_permanent"`
	Status          TransferStatus `db:"status" json:"status"`
	RequestedBy     string         `db:"requested_by" json:"requested_by"`
	ApprovedBy      *string        `db:"approved_by" json:"approved_by,omitempty"`
	ConfirmedBy     *string        `db:"confirmed_by" json:"confirmed_by,omitempty"`
	RejectedBy      *string        `db:"rejected_by" json:"rejected_by,omitempty"`
	CanceledBy      *string        `db:"canceled_by" json:"canceled_by,omitempty"`
	RejectionReason *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ApprovedAt      *time.Time     `db:"approved_at" json:"approved_at,omitempty"`
	ConfirmedAt     *time.Time     `db:"confirmed_at" json:"confirmed_at,omitempty"`
	RejectedAt      *time.Time     `db:"rejected_at" json:"rejected_at,omitempty"`
	CanceledAt      *time.Time     `db:"canceled_at" json:"canceled_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// LockedTransfer is a transfer row read under FOR UPDATE together with the
// owning batch's designation, everything the rule table needs in one fetch.
type LockedTransfer struct {
	TransferRequest
	DesignatedLead     *string `db:"designated_lead"`
	DesignatedLeadName *string `db:"designated_lead_name"`
}

// TransferFilter constrains dashboard listing queries.
type TransferFilter struct {
	Description string
	Status      TransferStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	ApprovedBy  string
	ConfirmedBy string
	RequestedBy string
	MSNV        string
	Page        int
	PageSize    int
}

// TransferRow decorates a request with display names for listings.
type TransferRow struct {
	TransferRequest
	BatchNumber      *string `db:"batch_number" json:"batch_number,omitempty"`
	BatchDescription *string `db:"batch_description" json:"batch_description,omitempty"`
	RequestedByName  string  `db:"requested_by_name" json:"requested_by_name"`
	ApprovedByName   *string `db:"approved_by_name" json:"approved_by_name,omitempty"`
	ConfirmedByName  *string `db:"confirmed_by_name" json:"confirmed_by_name,omitempty"`
	RejectedByName   *string `db:"rejected_by_name" json:"rejected_by_name,omitempty"`
	CanceledByName   *string `db:"canceled_by_name" json:"canceled_by_name,omitempty"`
}

// BulkOutcome aggregates per-row results of a bulk action. Outcome lists keep
// the full ordered detail; truncation for display is the caller's concern.
type BulkOutcome struct {
	Successes    int      `json:"successes"`
	Skips        int      `json:"skips"`
	SuccessLines []string `json:"success_lines"`
	SkipLines    []string `json:"skip_lines"`
}
