package models

import "time"

// Batch groups transfer requests filed together on one slip. The designated
// lead, when set, is the only Lead allowed to approve the batch's requests.
type Batch struct {
	ID             int64     `db:"id" json:"id"`
	BatchNumber    string    `db:"batch_number" json:"batch_number"`
	Description    string    `db:"description" json:"description"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	DesignatedLead *string   `db:"designated_lead" json:"designated_lead,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// BatchDetail decorates a batch with actor usernames for display.
type BatchDetail struct {
	Batch
	CreatedByName      string  `db:"created_by_name" json:"created_by_name"`
	DesignatedLeadName *string `db:"designated_lead_name" json:"designated_lead_name,omitempty"`
}
