package models

import (
	"time"

	"toolroom/pkg/metadata"
)

type Tool struct {
	ID                  int                `json:"id" db:"id"`
	ToolNo              string             `json:"tool_no" db:"tool_no"`
	ToolCode            string             `json:"tool_code" db:"tool_code"`
	Description         string             `json:"description" db:"description"`
	Location            metadata.Location  `json:"location" db:"location"`
	Quantity            int                `json:"quantity" db:"quantity"`
	Availability        int                `json:"availability" db:"availability"`
	Condition           metadata.Condition `json:"condition" db:"item_condition"`
	LastBorrowedBy      string             `json:"last_borrowed_by,omitempty" db:"last_borrowed_by"`
	CalibrationRequired bool               `json:"calibration_required" db:"calibration_required"`
	CalibrationDate     *time.Time         `json:"calibration_date,omitempty" db:"calibration_date"`
	Remarks             string             `json:"remarks,omitempty" db:"remarks"`
	CreatedAt           time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at" db:"updated_at"`
}

func (t *Tool) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   t.ID,
		ResourceType: "tool",
	}
}
