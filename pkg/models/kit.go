package models

import (
	"time"

	"toolroom/pkg/metadata"
)

// Kit bundles a fixed set of tools borrowed and returned as one unit.
// A kit carries its own availability counter; reserving or releasing a kit
// cascades the same quantity to every member tool.
type Kit struct {
	ID             int                `json:"id" db:"id"`
	KitCode        string             `json:"kit_code" db:"kit_code"`
	Name           string             `json:"name" db:"name"`
	Location       metadata.Location  `json:"location" db:"location"`
	Availability   int                `json:"availability" db:"availability"`
	Quantity       int                `json:"quantity" db:"quantity"`
	Condition      metadata.Condition `json:"condition" db:"item_condition"`
	LastBorrowedBy string             `json:"last_borrowed_by,omitempty" db:"last_borrowed_by"`
	Remark         string             `json:"remark,omitempty" db:"remark"`
	ToolIDs        []int              `json:"tool_ids" db:"-"`
	CreatedBy      string             `json:"created_by,omitempty" db:"created_by"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}

func (k *Kit) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   k.ID,
		ResourceType: "kit",
	}
}
