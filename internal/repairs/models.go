package repairs

import (
	"time"
)

type TicketType struct {
	Type        string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Ticket is one repair or replacement case for a damaged, missing or
// obsolete tool or kit.
type Ticket struct {
	ID          int       `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	AssignedTo  *int      `json:"assigned_to,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	Priority    string    `json:"priority"`
	Location    *string   `json:"location,omitempty"`
	CreatedByID *int      `json:"created_by_id,omitempty"`
	ToolID      *int      `json:"tool_id,omitempty"`
	KitID       *int      `json:"kit_id,omitempty"`
	IssuanceID  *int      `json:"issuance_id,omitempty"`
}

type TicketComment struct {
	ID        int       `json:"id" db:"id"`
	TicketID  int       `json:"ticket_id" db:"ticket_id"`
	Content   string    `json:"content" db:"comment"`
	UserID    int       `json:"created_by" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Comment struct {
	ID        int       `json:"id"`
	TicketID  int       `json:"ticket_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	User      *User     `json:"user"`
}

type FlatComment struct {
	ID        int       `db:"id"`
	TicketID  int       `db:"ticket_id"`
	Content   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
	UserID    int       `db:"user_id"`
	Username  string    `db:"comment_user_username"`
	Fullname  string    `db:"comment_user_fullname"`
}

type TicketResponse struct {
	ID             int       `json:"id,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	CreatedBy      string    `json:"created_by"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
	Priority       string    `json:"priority"`
	Location       *string   `json:"location,omitempty"`
	ToolID         *int      `json:"tool_id,omitempty"`
	KitID          *int      `json:"kit_id,omitempty"`
	IssuanceID     *int      `json:"issuance_id,omitempty"`
	CreatedByUser  *User     `json:"created_by_user,omitempty"`
	AssignedToUser *User     `json:"assigned_to_user,omitempty"`
}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
}

type FlatTicketResponse struct {
	ID                 int       `db:"id"`
	Title              string    `db:"title"`
	Type               string    `db:"type"`
	Description        string    `db:"description"`
	Status             string    `db:"status"`
	CreatedBy          string    `db:"created_by"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
	Priority           string    `db:"priority"`
	Location           *string   `db:"location"`
	ToolID             *int      `db:"tool_id"`
	KitID              *int      `db:"kit_id"`
	IssuanceID         *int      `db:"issuance_id"`
	UserID             *int      `db:"created_by_id"`
	UserUsername       *string   `db:"ticket_user_username"`
	UserFullname       *string   `db:"ticket_user_fullname"`
	AssignedToID       *int      `db:"assigned_to_id"`
	AssignedToUsername *string   `db:"ticket_assigned_to_username"`
	AssignedToFullname *string   `db:"ticket_assigned_to_fullname"`
}

func (ft *FlatTicketResponse) TransformToTicketResponse() *TicketResponse {
	res := TicketResponse{
		ID:          ft.ID,
		Title:       ft.Title,
		Description: ft.Description,
		Type:        ft.Type,
		Status:      ft.Status,
		CreatedBy:   ft.CreatedBy,
		CreatedAt:   ft.CreatedAt,
		UpdatedAt:   ft.UpdatedAt,
		Priority:    ft.Priority,
		Location:    ft.Location,
		ToolID:      ft.ToolID,
		KitID:       ft.KitID,
		IssuanceID:  ft.IssuanceID,
	}

	if ft.UserID != nil {
		res.CreatedByUser = &User{
			ID:       *ft.UserID,
			Username: *ft.UserUsername,
			Fullname: *ft.UserFullname,
		}
	}

	if ft.AssignedToID != nil {
		res.AssignedToUser = &User{
			ID:       *ft.AssignedToID,
			Username: *ft.AssignedToUsername,
			Fullname: *ft.AssignedToFullname,
		}
	}

	return &res
}

const (
	TicketTypeRepair      = "repair"
	TicketTypeCalibration = "calibration"
	TicketTypeReplacement = "replacement"
	TicketTypeOther       = "other"
)

const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusWaiting    = "waiting"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)
