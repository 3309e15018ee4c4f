package issuance

import "time"

type IssuanceRequest struct {
	TrainerID    int        `json:"trainer_id" binding:"required"`
	TrainerName  string     `json:"trainer_name"`
	TrainingName string     `json:"training_name"`
	ToolIDs      []int      `json:"tool_ids"`
	KitIDs       []int      `json:"kit_ids"`
	ReturnDate   *time.Time `json:"return_date"`
	Location     string     `json:"location" binding:"required"`
	Comment      string     `json:"comment"`
}

type ApprovalRequest struct {
	Remark string `json:"remark"`
}

type RejectionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ReturnLineRequest struct {
	ToolID    *int    `json:"tool_id"`
	KitID     *int    `json:"kit_id"`
	Quantity  int     `json:"quantity"`
	Condition *string `json:"condition"`
	Remark    *string `json:"remark"`
}

type ReturnRequest struct {
	ActualReturnDate *time.Time          `json:"actual_return_date"`
	Remarks          string              `json:"remarks"`
	Items            []ReturnLineRequest `json:"items"`
}

type RetrieveIssuanceListQuery struct {
	Status    *string `form:"status"`
	Location  *string `form:"location"`
	TrainerID *int    `form:"trainer_id"`
}
