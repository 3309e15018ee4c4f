package repairs

import (
	"errors"
	"fmt"
	"time"
	"toolroom/internal/notifications"

	"go.uber.org/zap"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrInvalidStatus  = errors.New("invalid ticket status")
	ErrInvalidType    = errors.New("invalid ticket type")
)

// TicketStore is the persistence surface the service needs. Satisfied by
// RepairsRepository.
type TicketStore interface {
	CreateTicket(ticket *Ticket) error
	UpdateTicketStatus(ticketID int, status string, updatedAt time.Time) error
	UpdateTicketAssignedTo(ticketID int, assignedToID int, updatedAt time.Time) error
	GetTicket(id int) (*TicketResponse, error)
	GetTickets(status string, limit int, offset int) ([]*TicketResponse, error)
	TicketExists(id int) (bool, error)
	CreateComment(comment *TicketComment) (int, error)
	GetComment(id int) (*Comment, error)
	GetComments(ticketID int) ([]*Comment, error)
}

type Service struct {
	store TicketStore
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewService(store TicketStore, log *zap.SugaredLogger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

func (s *Service) CreateTicket(ticket *Ticket) error {
	switch ticket.Type {
	case TicketTypeRepair, TicketTypeCalibration, TicketTypeReplacement, TicketTypeOther:
	default:
		return ErrInvalidType
	}

	ticket.CreatedAt = s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	ticket.Status = StatusNew
	if ticket.Priority == "" {
		ticket.Priority = PriorityMedium
	}

	return s.store.CreateTicket(ticket)
}

func (s *Service) ChangeStatus(ticketID int, newStatus string) error {
	ticket, err := s.store.GetTicket(ticketID)
	if err != nil {
		return ErrTicketNotFound
	}

	if ticket.Status == newStatus {
		return nil
	}

	switch newStatus {
	case StatusNew, StatusInProgress, StatusWaiting, StatusResolved, StatusClosed:
		return s.store.UpdateTicketStatus(ticketID, newStatus, s.now())
	default:
		return ErrInvalidStatus
	}
}

func (s *Service) AssignTicket(ticketID int, userID int) error {
	exists, err := s.store.TicketExists(ticketID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrTicketNotFound
	}

	return s.store.UpdateTicketAssignedTo(ticketID, userID, s.now())
}

func (s *Service) AddComment(ticketID int, content string, userID int) (*Comment, error) {
	exists, err := s.store.TicketExists(ticketID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrTicketNotFound
	}

	commentID, err := s.store.CreateComment(&TicketComment{
		TicketID:  ticketID,
		Content:   content,
		UserID:    userID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	return s.store.GetComment(commentID)
}

func (s *Service) GetTicket(id int) (*TicketResponse, error) {
	return s.store.GetTicket(id)
}

func (s *Service) GetTickets(status string, limit int, offset int) ([]*TicketResponse, error) {
	return s.store.GetTickets(status, limit, offset)
}

func (s *Service) GetComments(ticketID int) ([]*Comment, error) {
	return s.store.GetComments(ticketID)
}

func (s *Service) GetTicketTypes() []TicketType {
	return []TicketType{
		{
			Type:        TicketTypeRepair,
			Name:        "Repair",
			Description: "A tool or kit came back damaged and needs fixing",
		},
		{
			Type:        TicketTypeCalibration,
			Name:        "Calibration",
			Description: "A measurement tool needs recalibration",
		},
		{
			Type:        TicketTypeReplacement,
			Name:        "Replacement",
			Description: "A tool or kit is missing or beyond repair and needs replacing",
		},
		{
			Type:        TicketTypeOther,
			Name:        "Other",
			Description: "Any other maintenance request",
		},
	}
}

// Notify lets the service act as a notification sink: every damaged-items
// event opens one ticket per reported item, so nothing that comes back
// broken waits on a human to file it.
func (s *Service) Notify(event notifications.Event) error {
	if event.Type != notifications.EventDamagedItems {
		return nil
	}

	issuanceID, _ := asInt(event.Payload["issuance_id"])
	items, ok := event.Payload["items"].([]map[string]interface{})
	if !ok {
		return nil
	}

	for _, item := range items {
		ticket := &Ticket{
			Type:      TicketTypeRepair,
			Priority:  PriorityHigh,
			CreatedBy: "system",
		}
		if issuanceID > 0 {
			id := issuanceID
			ticket.IssuanceID = &id
		}

		condition, _ := item["condition"].(string)
		if condition == "missing" || condition == "obsolete" {
			ticket.Type = TicketTypeReplacement
		}

		if toolID, ok := asInt(item["tool_id"]); ok {
			id := toolID
			ticket.ToolID = &id
			ticket.Title = fmt.Sprintf("Tool %d returned as %s", toolID, condition)
		} else if kitID, ok := asInt(item["kit_id"]); ok {
			id := kitID
			ticket.KitID = &id
			ticket.Title = fmt.Sprintf("Kit %d returned as %s", kitID, condition)
		} else {
			continue
		}

		ticket.Description = fmt.Sprintf("Reported during return of issuance %d.", issuanceID)
		if remark, ok := item["remark"].(string); ok && remark != "" {
			ticket.Description += " Remark: " + remark
		}

		if err := s.CreateTicket(ticket); err != nil {
			s.log.Errorw("failed to open repair ticket from damaged item report",
				"issuance_id", issuanceID,
				"error", err,
			)
			return err
		}
	}

	return nil
}

// asInt tolerates both native ints and the float64 that json decoding
// produces for numbers.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
