package kits

type KitRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	ToolIDs  []int  `json:"tool_ids" binding:"required,min=1"`
	Remark   string `json:"remark"`
}

type UpdateKitRequest struct {
	Name      *string `json:"name"`
	Location  *string `json:"location"`
	Condition *string `json:"condition"`
	Remark    *string `json:"remark"`
}
