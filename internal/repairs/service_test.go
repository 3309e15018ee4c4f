package repairs

import (
	"fmt"
	"testing"
	"time"
	"toolroom/internal/notifications"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeTicketStore struct {
	tickets  map[int]*Ticket
	comments map[int]*TicketComment
	nextID   int
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{
		tickets:  make(map[int]*Ticket),
		comments: make(map[int]*TicketComment),
		nextID:   1,
	}
}

func (f *fakeTicketStore) CreateTicket(ticket *Ticket) error {
	ticket.ID = f.nextID
	f.nextID++
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketStore) UpdateTicketStatus(ticketID int, status string, updatedAt time.Time) error {
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return fmt.Errorf("ticket not found")
	}
	ticket.Status = status
	ticket.UpdatedAt = updatedAt
	return nil
}

func (f *fakeTicketStore) UpdateTicketAssignedTo(ticketID int, assignedToID int, updatedAt time.Time) error {
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return fmt.Errorf("ticket not found")
	}
	ticket.AssignedTo = &assignedToID
	ticket.UpdatedAt = updatedAt
	return nil
}

func (f *fakeTicketStore) GetTicket(id int) (*TicketResponse, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket not found")
	}
	return &TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		Type:        ticket.Type,
		CreatedBy:   ticket.CreatedBy,
		Priority:    ticket.Priority,
		ToolID:      ticket.ToolID,
		KitID:       ticket.KitID,
		IssuanceID:  ticket.IssuanceID,
	}, nil
}

func (f *fakeTicketStore) GetTickets(status string, limit int, offset int) ([]*TicketResponse, error) {
	var out []*TicketResponse
	for id, ticket := range f.tickets {
		if status != "" && ticket.Status != status {
			continue
		}
		res, _ := f.GetTicket(id)
		out = append(out, res)
	}
	return out, nil
}

func (f *fakeTicketStore) TicketExists(id int) (bool, error) {
	_, ok := f.tickets[id]
	return ok, nil
}

func (f *fakeTicketStore) CreateComment(comment *TicketComment) (int, error) {
	comment.ID = f.nextID
	f.nextID++
	copied := *comment
	f.comments[comment.ID] = &copied
	return comment.ID, nil
}

func (f *fakeTicketStore) GetComment(id int) (*Comment, error) {
	comment, ok := f.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment not found")
	}
	return &Comment{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		User:      &User{ID: comment.UserID},
	}, nil
}

func (f *fakeTicketStore) GetComments(ticketID int) ([]*Comment, error) {
	var out []*Comment
	for id, comment := range f.comments {
		if comment.TicketID == ticketID {
			c, _ := f.GetComment(id)
			out = append(out, c)
		}
	}
	return out, nil
}

func newTestService() (*Service, *fakeTicketStore) {
	store := newFakeTicketStore()
	return NewService(store, zap.NewNop().Sugar()), store
}

func TestCreateTicketDefaults(t *testing.T) {
	service, store := newTestService()

	ticket := &Ticket{
		Title:     "Drill will not start",
		Type:      TicketTypeRepair,
		CreatedBy: "asmith",
	}

	err := service.CreateTicket(ticket)

	assert.NoError(t, err)
	assert.Equal(t, StatusNew, ticket.Status)
	assert.Equal(t, PriorityMedium, ticket.Priority)
	assert.NotZero(t, ticket.ID)
	assert.Len(t, store.tickets, 1)
}

func TestCreateTicketRejectsUnknownType(t *testing.T) {
	service, _ := newTestService()

	err := service.CreateTicket(&Ticket{Title: "x", Type: "espresso"})

	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestChangeStatus(t *testing.T) {
	service, store := newTestService()

	ticket := &Ticket{Title: "t", Type: TicketTypeRepair}
	assert.NoError(t, service.CreateTicket(ticket))

	assert.NoError(t, service.ChangeStatus(ticket.ID, StatusInProgress))
	assert.Equal(t, StatusInProgress, store.tickets[ticket.ID].Status)

	// Same status is a no-op, unknown status is rejected.
	assert.NoError(t, service.ChangeStatus(ticket.ID, StatusInProgress))
	assert.ErrorIs(t, service.ChangeStatus(ticket.ID, "vanished"), ErrInvalidStatus)
	assert.ErrorIs(t, service.ChangeStatus(999, StatusClosed), ErrTicketNotFound)
}

func TestAssignTicket(t *testing.T) {
	service, store := newTestService()

	ticket := &Ticket{Title: "t", Type: TicketTypeRepair}
	assert.NoError(t, service.CreateTicket(ticket))

	assert.NoError(t, service.AssignTicket(ticket.ID, 7))
	assert.Equal(t, 7, *store.tickets[ticket.ID].AssignedTo)

	assert.ErrorIs(t, service.AssignTicket(999, 7), ErrTicketNotFound)
}

func TestAddComment(t *testing.T) {
	service, _ := newTestService()

	ticket := &Ticket{Title: "t", Type: TicketTypeRepair}
	assert.NoError(t, service.CreateTicket(ticket))

	comment, err := service.AddComment(ticket.ID, "ordered spare parts", 3)

	assert.NoError(t, err)
	assert.Equal(t, "ordered spare parts", comment.Content)
	assert.Equal(t, 3, comment.User.ID)

	_, err = service.AddComment(999, "late", 3)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestNotifyOpensTicketsForDamagedItems(t *testing.T) {
	service, store := newTestService()

	event := notifications.NewEvent(notifications.EventDamagedItems, nil, map[string]interface{}{
		"issuance_id": 42,
		"items": []map[string]interface{}{
			{"tool_id": 10, "condition": "damaged", "quantity": 1, "remark": "cracked housing"},
			{"kit_id": 5, "condition": "missing", "quantity": 1},
		},
	})

	err := service.Notify(event)

	assert.NoError(t, err)
	assert.Len(t, store.tickets, 2)

	var toolTicket, kitTicket *Ticket
	for _, ticket := range store.tickets {
		if ticket.ToolID != nil {
			toolTicket = ticket
		}
		if ticket.KitID != nil {
			kitTicket = ticket
		}
	}

	assert.NotNil(t, toolTicket)
	assert.Equal(t, TicketTypeRepair, toolTicket.Type)
	assert.Equal(t, 10, *toolTicket.ToolID)
	assert.Equal(t, 42, *toolTicket.IssuanceID)
	assert.Contains(t, toolTicket.Description, "cracked housing")

	assert.NotNil(t, kitTicket)
	assert.Equal(t, TicketTypeReplacement, kitTicket.Type)
	assert.Equal(t, 5, *kitTicket.KitID)
}

func TestNotifyIgnoresOtherEvents(t *testing.T) {
	service, store := newTestService()

	event := notifications.NewEvent(notifications.EventIssuanceApproved, nil, map[string]interface{}{
		"issuance_id": 42,
	})

	assert.NoError(t, service.Notify(event))
	assert.Empty(t, store.tickets)
}
