package tools

type ToolRequest struct {
	ToolNo              string  `json:"tool_no" binding:"required"`
	Description         string  `json:"description" binding:"required"`
	Location            string  `json:"location" binding:"required"`
	Quantity            int     `json:"quantity" binding:"required,gt=0"`
	CalibrationRequired bool    `json:"calibration_required"`
	CalibrationDate     *string `json:"calibration_date"`
	Remarks             string  `json:"remarks"`
}

type UpdateToolRequest struct {
	Description         *string `json:"description"`
	Location            *string `json:"location"`
	Condition           *string `json:"condition"`
	CalibrationRequired *bool   `json:"calibration_required"`
	CalibrationDate     *string `json:"calibration_date"`
	Remarks             *string `json:"remarks"`
}

type RetrieveToolListQuery struct {
	Location  *string `form:"location"`
	Condition *string `form:"condition"`
}
