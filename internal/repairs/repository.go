package repairs

import (
	"fmt"
	"time"
	"toolroom/internal/repository"

	"github.com/doug-martin/goqu/v9"
)

type RepairsRepository struct {
	Repository *repository.Repository
}

func NewRepairsRepository(r *repository.Repository) *RepairsRepository {
	return &RepairsRepository{Repository: r}
}

func (r *RepairsRepository) CreateTicket(ticket *Ticket) error {
	row := goqu.Record{
		"title":       ticket.Title,
		"description": ticket.Description,
		"type":        ticket.Type,
		"status":      ticket.Status,
		"created_by":  ticket.CreatedBy,
		"priority":    ticket.Priority,
	}

	if ticket.CreatedByID != nil {
		row["created_by_id"] = ticket.CreatedByID
	}
	if ticket.AssignedTo != nil {
		row["assigned_to_id"] = ticket.AssignedTo
	}
	if ticket.Location != nil {
		row["location"] = ticket.Location
	}
	if ticket.ToolID != nil {
		row["tool_id"] = ticket.ToolID
	}
	if ticket.KitID != nil {
		row["kit_id"] = ticket.KitID
	}
	if ticket.IssuanceID != nil {
		row["issuance_id"] = ticket.IssuanceID
	}

	query := r.Repository.GoquDBWrapper.Insert("repair_tickets").Rows(row).Returning("id")

	if _, err := query.Executor().ScanVal(&ticket.ID); err != nil {
		return fmt.Errorf("unable to execute SQL: %w", err)
	}

	return nil
}

func (r *RepairsRepository) UpdateTicketStatus(ticketID int, status string, updatedAt time.Time) error {
	query := r.Repository.GoquDBWrapper.Update("repair_tickets").
		Set(goqu.Record{
			"status":     status,
			"updated_at": updatedAt,
		}).
		Where(goqu.Ex{"id": ticketID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("unable to execute SQL: %w", err)
	}

	return nil
}

func (r *RepairsRepository) UpdateTicketAssignedTo(ticketID int, assignedToID int, updatedAt time.Time) error {
	query := r.Repository.GoquDBWrapper.Update("repair_tickets").
		Set(goqu.Record{
			"assigned_to_id": assignedToID,
			"updated_at":     updatedAt,
		}).
		Where(goqu.Ex{"id": ticketID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("unable to execute SQL: %w", err)
	}

	return nil
}

func (r *RepairsRepository) GetTicket(id int) (*TicketResponse, error) {
	query := r.prepareTicketQuery().Where(goqu.Ex{"rt.id": id})

	var flat FlatTicketResponse

	ok, err := query.Executor().ScanStruct(&flat)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("ticket not found")
	}

	return flat.TransformToTicketResponse(), nil
}

func (r *RepairsRepository) TicketExists(id int) (bool, error) {
	query := r.Repository.GoquDBWrapper.Select(goqu.COUNT("id")).From("repair_tickets").Where(goqu.Ex{"id": id})

	var count int
	if _, err := query.Executor().ScanVal(&count); err != nil {
		return false, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return count > 0, nil
}

func (r *RepairsRepository) GetTickets(status string, limit int, offset int) ([]*TicketResponse, error) {
	query := r.prepareTicketQuery()

	if status != "" {
		query = query.Where(goqu.Ex{"rt.status": status})
	}
	query = query.Limit(uint(limit)).Offset(uint(offset)).Order(goqu.I("rt.id").Asc())

	var flats []FlatTicketResponse

	if err := query.Executor().ScanStructs(&flats); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	tickets := make([]*TicketResponse, len(flats))
	for i, flat := range flats {
		tickets[i] = flat.TransformToTicketResponse()
	}

	return tickets, nil
}

func (r *RepairsRepository) CreateComment(comment *TicketComment) (int, error) {
	query := r.Repository.GoquDBWrapper.Insert("repair_ticket_comments").
		Rows(goqu.Record{
			"ticket_id":  comment.TicketID,
			"comment":    comment.Content,
			"user_id":    comment.UserID,
			"created_at": comment.CreatedAt,
		}).
		Returning("id")

	var commentID int
	if _, err := query.Executor().ScanVal(&commentID); err != nil {
		return 0, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return commentID, nil
}

func (r *RepairsRepository) GetComment(id int) (*Comment, error) {
	query := r.prepareCommentQuery().Where(goqu.Ex{"rc.id": id})

	var comment FlatComment

	ok, err := query.Executor().ScanStruct(&comment)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("comment not found")
	}

	return transformComment(comment), nil
}

func (r *RepairsRepository) GetComments(ticketID int) ([]*Comment, error) {
	query := r.prepareCommentQuery().Where(goqu.Ex{"rc.ticket_id": ticketID})

	var comments []FlatComment
	if err := query.Executor().ScanStructs(&comments); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	commentsResponse := make([]*Comment, len(comments))
	for i, comment := range comments {
		commentsResponse[i] = transformComment(comment)
	}

	return commentsResponse, nil
}

func transformComment(comment FlatComment) *Comment {
	return &Comment{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		User: &User{
			ID:       comment.UserID,
			Username: comment.Username,
			Fullname: comment.Fullname,
		},
	}
}

func (r *RepairsRepository) prepareCommentQuery() *goqu.SelectDataset {
	return r.Repository.GoquDBWrapper.Select(
		goqu.I("rc.id"),
		goqu.I("rc.ticket_id"),
		goqu.I("rc.comment"),
		goqu.I("rc.created_at"),
		goqu.I("rc.user_id"),
		goqu.I("cu.username").As("comment_user_username"),
		goqu.I("cu.fullname").As("comment_user_fullname"),
	).
		From(goqu.T("repair_ticket_comments").As("rc")).
		LeftJoin(goqu.T("users").As("cu"), goqu.On(goqu.Ex{"rc.user_id": goqu.I("cu.id")}))
}

func (r *RepairsRepository) prepareTicketQuery() *goqu.SelectDataset {
	return r.Repository.GoquDBWrapper.Select(
		goqu.I("rt.id"),
		goqu.I("rt.title"),
		goqu.I("rt.description"),
		goqu.I("rt.status"),
		goqu.I("rt.type"),
		goqu.I("rt.created_by"),
		goqu.I("rt.created_at"),
		goqu.I("rt.updated_at"),
		goqu.I("rt.priority"),
		goqu.I("rt.location"),
		goqu.I("rt.tool_id"),
		goqu.I("rt.kit_id"),
		goqu.I("rt.issuance_id"),
		goqu.I("rt.created_by_id"),
		goqu.I("cu.username").As("ticket_user_username"),
		goqu.I("cu.fullname").As("ticket_user_fullname"),
		goqu.I("rt.assigned_to_id"),
		goqu.I("au.username").As("ticket_assigned_to_username"),
		goqu.I("au.fullname").As("ticket_assigned_to_fullname"),
	).
		From(goqu.T("repair_tickets").As("rt")).
		LeftJoin(goqu.T("users").As("cu"), goqu.On(goqu.Ex{"rt.created_by_id": goqu.I("cu.id")})).
		LeftJoin(goqu.T("users").As("au"), goqu.On(goqu.Ex{"rt.assigned_to_id": goqu.I("au.id")}))
}
