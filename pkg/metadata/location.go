package metadata

import (
	"fmt"
	"strings"
)

// Location is the site a tool room operates at. Issuances, tools and kits
// are all scoped to one location; approvers are resolved per location.
type Location string

const (
	LocationPune      Location = "pune"
	LocationBangalore Location = "bangalore"
	LocationNCR       Location = "ncr"
	LocationOther     Location = "other"
)

func (l Location) IsValid() bool {
	switch l {
	case LocationPune, LocationBangalore, LocationNCR:
		return true
	default:
		return false
	}
}

func (l Location) isPredefined() bool {
	return l.ContainsKeyword(string(LocationOther))
}

func NewLocation(value string) (Location, error) {
	normalized := strings.Replace(strings.ToLower(strings.TrimSpace(value)), " ", "-", -1)
	location := Location(normalized)
	if !location.IsValid() && !location.isPredefined() {
		return location, fmt.Errorf(
			"value not valid, only valid values are: %s, %s, %s, %s",
			LocationPune, LocationBangalore, LocationNCR, LocationOther,
		)
	}

	return location, nil
}

func (l Location) String() string {
	return string(l)
}

func (l Location) ContainsKeyword(keyword string) bool {
	return strings.Contains(string(l), keyword)
}
