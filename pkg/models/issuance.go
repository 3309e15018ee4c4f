package models

import (
	"time"

	"toolroom/pkg/metadata"
)

// Issuance is one request/approval/issue/return lifecycle for a set of
// tools and/or kits. The tool and kit line lists are immutable once the
// issuance is created; only status, approval metadata and the actual
// return time mutate afterwards.
type Issuance struct {
	ID           int               `json:"id" db:"id"`
	TrainerID    int               `json:"trainer_id" db:"trainer_id"`
	TrainerName  string            `json:"trainer_name" db:"trainer_name"`
	TrainingName string            `json:"training_name,omitempty" db:"training_name"`
	ToolIDs      []int             `json:"tool_ids" db:"-"`
	KitIDs       []int             `json:"kit_ids" db:"-"`
	IssuanceDate time.Time         `json:"issuance_date" db:"issuance_date"`
	ReturnDate   *time.Time        `json:"return_date,omitempty" db:"return_date"`
	Status       metadata.Status   `json:"status" db:"status"`
	Location     metadata.Location `json:"location" db:"location"`
	Comment      string            `json:"comment,omitempty" db:"comment"`
	Remarks      string            `json:"remarks,omitempty" db:"remarks"`

	Approval Approval `json:"approval"`
}

// Approval is the embedded approval sub-record of an issuance. It holds
// rejection metadata as well; Remark carries the rejection reason then.
type Approval struct {
	ApprovedBy *string    `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	Remark     string     `json:"remark,omitempty" db:"approval_remark"`
}

func (i *Issuance) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   i.ID,
		ResourceType: "issuance",
	}
}

// FlatIssuanceRecord mirrors one issuances row before the line id lists
// are attached.
type FlatIssuanceRecord struct {
	ID             int        `db:"id"`
	TrainerID      int        `db:"trainer_id"`
	TrainerName    string     `db:"trainer_name"`
	TrainingName   string     `db:"training_name"`
	IssuanceDate   time.Time  `db:"issuance_date"`
	ReturnDate     *time.Time `db:"return_date"`
	Status         string     `db:"status"`
	Location       string     `db:"location"`
	Comment        string     `db:"comment"`
	Remarks        string     `db:"remarks"`
	ApprovedBy     *string    `db:"approved_by"`
	ApprovedAt     *time.Time `db:"approved_at"`
	ApprovalRemark *string    `db:"approval_remark"`
}

func (f *FlatIssuanceRecord) TransformToIssuance() Issuance {
	issuance := Issuance{
		ID:           f.ID,
		TrainerID:    f.TrainerID,
		TrainerName:  f.TrainerName,
		TrainingName: f.TrainingName,
		IssuanceDate: f.IssuanceDate,
		ReturnDate:   f.ReturnDate,
		Status:       metadata.Status(f.Status),
		Location:     metadata.Location(f.Location),
		Comment:      f.Comment,
		Remarks:      f.Remarks,
		Approval: Approval{
			ApprovedBy: f.ApprovedBy,
			ApprovedAt: f.ApprovedAt,
		},
	}
	if f.ApprovalRemark != nil {
		issuance.Approval.Remark = *f.ApprovalRemark
	}

	return issuance
}
