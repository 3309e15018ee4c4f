package metadata

import "fmt"

// Status is the lifecycle state of an issuance.
type Status string

const (
	StatusPending  Status = "pending"
	StatusIssued   Status = "issued"
	StatusRejected Status = "rejected"
	StatusReturned Status = "returned"
	StatusOverdue  Status = "overdue"
)

func NewStatus(value string) (Status, error) {
	status := Status(value)
	if !status.isValid() {
		return "", fmt.Errorf("invalid status: %s", value)
	}
	return status, nil
}

func (s Status) isValid() bool {
	switch s {
	case StatusPending, StatusIssued, StatusRejected, StatusReturned, StatusOverdue:
		return true
	default:
		return false
	}
}

// Terminal statuses never transition again.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusReturned
}

// Live reports whether reserved quantity is still outstanding.
// Overdue is a late substate of issued, not a terminal state.
func (s Status) Live() bool {
	return s == StatusIssued || s == StatusOverdue
}
