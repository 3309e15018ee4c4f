package models

import (
	"time"

	"toolroom/pkg/metadata"
)

// ReturnRecord is one reconciliation event against exactly one issuance.
type ReturnRecord struct {
	ID               int          `json:"id" db:"id"`
	IssuanceID       int          `json:"issuance_id" db:"issuance_id"`
	ActualReturnDate time.Time    `json:"actual_return_date" db:"actual_return_date"`
	ProcessedBy      string       `json:"processed_by" db:"processed_by"`
	Remarks          string       `json:"remarks,omitempty" db:"remarks"`
	Items            []ReturnItem `json:"items" db:"-"`
}

// ReturnItem is one line of a return batch, naming either a tool or a kit.
type ReturnItem struct {
	ID               int                 `json:"id" db:"id"`
	ReturnRecordID   int                 `json:"return_record_id" db:"return_record_id"`
	ToolID           *int                `json:"tool_id,omitempty" db:"tool_id"`
	KitID            *int                `json:"kit_id,omitempty" db:"kit_id"`
	QuantityReturned int                 `json:"quantity_returned" db:"quantity_returned"`
	Condition        *metadata.Condition `json:"condition,omitempty" db:"item_condition"`
	Remark           string              `json:"remark,omitempty" db:"remark"`
}

func (r *ReturnRecord) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   r.ID,
		ResourceType: "return_record",
	}
}
