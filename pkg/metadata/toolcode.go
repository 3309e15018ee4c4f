package metadata

import (
	"strconv"
)

// ToolCode is the printed identifier on a tool or kit label,
// e.g. TRM-PNE42 for tool 42 at Pune.
type ToolCode struct {
	init string
	site string
	id   string
}

const Init string = "TRM"

var siteAbbreviations = map[Location]string{
	LocationPune:      "PNE",
	LocationBangalore: "BLR",
	LocationNCR:       "NCR",
}

func (tc *ToolCode) GenerateToolCode() string {
	return tc.init + "-" + tc.site + tc.id
}

func NewToolCode(location Location, toolID int) ToolCode {
	var code ToolCode

	code.init = Init
	code.site = siteAbbreviations[location]
	if code.site == "" {
		code.site = "OTH"
	}
	code.id = strconv.Itoa(toolID)

	return code
}
