package issuance

import (
	"time"

	"toolroom/internal/notifications"
	custom_error "toolroom/pkg/errors"
	"toolroom/pkg/metadata"
	"toolroom/pkg/models"

	"go.uber.org/zap"
)

// ToolStore is the slice of the tool repository the engine needs: lookup
// plus the two atomic availability primitives.
type ToolStore interface {
	GetTool(id int) (*models.Tool, error)
	TryReserve(id int, borrowerName string) (bool, error)
	Release(id int, qty int, condition *metadata.Condition, remark *string) error
}

type KitStore interface {
	GetKit(id int) (*models.Kit, error)
	TryReserveKit(id int, borrowerName string) (bool, error)
	ReleaseKit(id int, qty int, condition *metadata.Condition, remark *string) error
}

// TrainerDirectory resolves trainers and approvers and keeps the running
// per-trainer counters. Counter updates are best-effort side bookkeeping.
type TrainerDirectory interface {
	GetUser(id int) (*models.User, error)
	ApproverEmailsByLocation(location metadata.Location) ([]string, error)
	RecordIssued(trainerID int, lineCount int) error
	RecordReturned(trainerID int, lineCount int, overdue bool) error
}

type IssuanceService struct {
	ledger   IssuanceRepository
	returns  ReturnRepository
	tools    ToolStore
	kits     KitStore
	trainers TrainerDirectory
	notifier notifications.Notifier
	log      *zap.SugaredLogger

	// now is injectable so overdue decisions are deterministic in tests.
	now func() time.Time
}

func NewIssuanceService(
	ledger IssuanceRepository,
	returns ReturnRepository,
	tools ToolStore,
	kits KitStore,
	trainers TrainerDirectory,
	notifier notifications.Notifier,
	log *zap.SugaredLogger,
) *IssuanceService {
	return &IssuanceService{
		ledger:   ledger,
		returns:  returns,
		tools:    tools,
		kits:     kits,
		trainers: trainers,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Tests use it to make overdue
// decisions deterministic.
func (s *IssuanceService) WithClock(now func() time.Time) *IssuanceService {
	s.now = now
	return s
}

// CreateIssuance records a pending request. Availability is not touched
// here; capacity is only claimed at approval.
func (s *IssuanceService) CreateIssuance(req IssuanceRequest) (*models.Issuance, error) {
	if req.TrainerID <= 0 {
		return nil, custom_error.NewValidationError("trainer_id is required")
	}
	if len(req.ToolIDs) == 0 && len(req.KitIDs) == 0 {
		return nil, custom_error.NewValidationError("at least one tool or kit is required")
	}

	location, err := metadata.NewLocation(req.Location)
	if err != nil {
		return nil, custom_error.NewValidationError("invalid location: %s", req.Location)
	}

	trainer, err := s.trainers.GetUser(req.TrainerID)
	if err != nil {
		return nil, err
	}

	trainerName := req.TrainerName
	if trainerName == "" {
		trainerName = trainer.Fullname
	}

	issuance := models.Issuance{
		TrainerID:    req.TrainerID,
		TrainerName:  trainerName,
		TrainingName: req.TrainingName,
		ToolIDs:      req.ToolIDs,
		KitIDs:       req.KitIDs,
		IssuanceDate: s.now(),
		ReturnDate:   req.ReturnDate,
		Status:       metadata.StatusPending,
		Location:     location,
		Comment:      req.Comment,
	}

	created, err := s.ledger.PersistIssuance(issuance)
	if err != nil {
		return nil, err
	}

	s.emit(notifications.EventIssuanceRequested, s.approverRecipients(location), map[string]interface{}{
		"issuance_id":  created.ID,
		"trainer_name": created.TrainerName,
		"location":     location.String(),
	})

	return created, nil
}

// Approve reserves every requested tool and kit and flips the issuance to
// issued. Reservation is per line; on the first shortage everything taken
// so far in this call is released again before the error is returned, so
// a failed approval never leaks capacity.
func (s *IssuanceService) Approve(id int, approvedBy string, remark string) (*models.Issuance, error) {
	issuance, err := s.ledger.GetIssuance(id)
	if err != nil {
		return nil, err
	}
	if issuance.Status != metadata.StatusPending {
		return nil, custom_error.NewInvalidStateError("issuance %d is %s, only pending issuances can be approved", id, issuance.Status)
	}

	var reservedTools, reservedKits []int

	rollback := func() {
		for _, toolID := range reservedTools {
			if err := s.tools.Release(toolID, 1, nil, nil); err != nil {
				s.log.Errorw("failed to roll back tool reservation", "tool_id", toolID, "issuance_id", id, "error", err)
			}
		}
		for _, kitID := range reservedKits {
			if err := s.kits.ReleaseKit(kitID, 1, nil, nil); err != nil {
				s.log.Errorw("failed to roll back kit reservation", "kit_id", kitID, "issuance_id", id, "error", err)
			}
		}
	}

	for _, toolID := range issuance.ToolIDs {
		ok, err := s.tools.TryReserve(toolID, issuance.TrainerName)
		if err != nil {
			rollback()
			return nil, err
		}
		if !ok {
			rollback()
			return nil, custom_error.NewCapacityUnavailableError("tool", toolID)
		}
		reservedTools = append(reservedTools, toolID)
	}

	for _, kitID := range issuance.KitIDs {
		ok, err := s.kits.TryReserveKit(kitID, issuance.TrainerName)
		if err != nil {
			rollback()
			return nil, err
		}
		if !ok {
			rollback()
			return nil, custom_error.NewCapacityUnavailableError("kit", kitID)
		}
		reservedKits = append(reservedKits, kitID)
	}

	approvedAt := s.now()
	if err := s.ledger.SetApproval(id, metadata.StatusIssued, approvedBy, approvedAt, remark); err != nil {
		rollback()
		return nil, err
	}

	issuance.Status = metadata.StatusIssued
	issuance.Approval = models.Approval{
		ApprovedBy: &approvedBy,
		ApprovedAt: &approvedAt,
		Remark:     remark,
	}

	if err := s.trainers.RecordIssued(issuance.TrainerID, len(issuance.ToolIDs)+len(issuance.KitIDs)); err != nil {
		s.log.Warnw("failed to update trainer counters", "trainer_id", issuance.TrainerID, "error", err)
	}

	s.emit(notifications.EventIssuanceApproved, s.trainerRecipients(issuance.TrainerID), map[string]interface{}{
		"issuance_id": issuance.ID,
		"approved_by": approvedBy,
	})

	return issuance, nil
}

// Reject closes a pending issuance without ever touching availability.
func (s *IssuanceService) Reject(id int, rejectedBy string, reason string) (*models.Issuance, error) {
	issuance, err := s.ledger.GetIssuance(id)
	if err != nil {
		return nil, err
	}
	if issuance.Status != metadata.StatusPending {
		return nil, custom_error.NewInvalidStateError("issuance %d is %s, only pending issuances can be rejected", id, issuance.Status)
	}

	rejectedAt := s.now()
	if err := s.ledger.SetApproval(id, metadata.StatusRejected, rejectedBy, rejectedAt, reason); err != nil {
		return nil, err
	}

	issuance.Status = metadata.StatusRejected
	issuance.Approval = models.Approval{
		ApprovedBy: &rejectedBy,
		ApprovedAt: &rejectedAt,
		Remark:     reason,
	}

	s.emit(notifications.EventIssuanceRejected, s.trainerRecipients(issuance.TrainerID), map[string]interface{}{
		"issuance_id": issuance.ID,
		"rejected_by": rejectedBy,
		"reason":      reason,
	})

	return issuance, nil
}

type returnLine struct {
	toolID    *int
	kitID     *int
	quantity  int
	condition *metadata.Condition
	remark    *string
}

// ProcessReturn reconciles one return batch against the whole issuance.
// A batch closes the issuance: the resulting status is returned, or
// overdue when the items came back after the planned return date.
func (s *IssuanceService) ProcessReturn(id int, req ReturnRequest, processedBy string) (*models.Issuance, error) {
	issuance, err := s.ledger.GetIssuance(id)
	if err != nil {
		return nil, err
	}
	if !issuance.Status.Live() {
		return nil, custom_error.NewInvalidStateError("issuance %d is %s, only issued or overdue issuances can be returned", id, issuance.Status)
	}

	lines, err := s.buildReturnLines(issuance, req)
	if err != nil {
		return nil, err
	}

	actualReturn := s.now()
	if req.ActualReturnDate != nil {
		actualReturn = *req.ActualReturnDate
	}

	var damaged []map[string]interface{}
	for _, line := range lines {
		if line.toolID != nil {
			if err := s.tools.Release(*line.toolID, line.quantity, line.condition, line.remark); err != nil {
				return nil, err
			}
		} else {
			if err := s.kits.ReleaseKit(*line.kitID, line.quantity, line.condition, line.remark); err != nil {
				return nil, err
			}
		}

		if line.condition != nil && line.condition.Problematic() {
			entry := map[string]interface{}{
				"condition": string(*line.condition),
				"quantity":  line.quantity,
			}
			if line.toolID != nil {
				entry["tool_id"] = *line.toolID
			} else {
				entry["kit_id"] = *line.kitID
			}
			if line.remark != nil {
				entry["remark"] = *line.remark
			}
			damaged = append(damaged, entry)
		}
	}

	status := metadata.StatusReturned
	if issuance.ReturnDate != nil && actualReturn.After(*issuance.ReturnDate) {
		status = metadata.StatusOverdue
	}

	if err := s.ledger.UpdateStatus(id, status); err != nil {
		return nil, err
	}

	record := models.ReturnRecord{
		IssuanceID:       id,
		ActualReturnDate: actualReturn,
		ProcessedBy:      processedBy,
		Remarks:          req.Remarks,
		Items:            returnItems(lines),
	}
	if _, err := s.returns.PersistReturn(record); err != nil {
		return nil, err
	}

	issuance.Status = status

	if err := s.trainers.RecordReturned(issuance.TrainerID, len(lines), status == metadata.StatusOverdue); err != nil {
		s.log.Warnw("failed to update trainer counters", "trainer_id", issuance.TrainerID, "error", err)
	}

	s.emit(notifications.EventIssuanceReturned, s.trainerRecipients(issuance.TrainerID), map[string]interface{}{
		"issuance_id":  issuance.ID,
		"status":       string(status),
		"processed_by": processedBy,
	})

	if len(damaged) > 0 {
		s.emit(notifications.EventDamagedItems, s.approverRecipients(issuance.Location), map[string]interface{}{
			"issuance_id": issuance.ID,
			"items":       damaged,
		})
	}

	if status == metadata.StatusOverdue {
		recipients := append(s.trainerRecipients(issuance.TrainerID), s.approverRecipients(issuance.Location)...)
		s.emit(notifications.EventOverdueConfirmed, recipients, map[string]interface{}{
			"issuance_id":        issuance.ID,
			"planned_return":     issuance.ReturnDate,
			"actual_return_date": actualReturn,
		})
	}

	return issuance, nil
}

// buildReturnLines validates the supplied items or, when none were sent,
// falls back to one unit per original line with condition unchanged.
func (s *IssuanceService) buildReturnLines(issuance *models.Issuance, req ReturnRequest) ([]returnLine, error) {
	if len(req.Items) == 0 {
		lines := make([]returnLine, 0, len(issuance.ToolIDs)+len(issuance.KitIDs))
		for i := range issuance.ToolIDs {
			lines = append(lines, returnLine{toolID: &issuance.ToolIDs[i], quantity: 1})
		}
		for i := range issuance.KitIDs {
			lines = append(lines, returnLine{kitID: &issuance.KitIDs[i], quantity: 1})
		}
		return lines, nil
	}

	lines := make([]returnLine, 0, len(req.Items))
	for i := range req.Items {
		item := req.Items[i]
		if (item.ToolID == nil) == (item.KitID == nil) {
			return nil, custom_error.NewValidationError("each return item must name exactly one tool or kit")
		}

		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 1 {
			return nil, custom_error.NewValidationError("quantity must be at least 1")
		}

		var condition *metadata.Condition
		if item.Condition != nil {
			parsed, err := metadata.NewCondition(*item.Condition)
			if err != nil {
				return nil, custom_error.NewValidationError("invalid condition: %s", *item.Condition)
			}
			condition = &parsed
		}

		lines = append(lines, returnLine{
			toolID:    item.ToolID,
			kitID:     item.KitID,
			quantity:  quantity,
			condition: condition,
			remark:    item.Remark,
		})
	}

	return lines, nil
}

func returnItems(lines []returnLine) []models.ReturnItem {
	items := make([]models.ReturnItem, 0, len(lines))
	for _, line := range lines {
		item := models.ReturnItem{
			ToolID:           line.toolID,
			KitID:            line.kitID,
			QuantityReturned: line.quantity,
			Condition:        line.condition,
		}
		if line.remark != nil {
			item.Remark = *line.remark
		}
		items = append(items, item)
	}
	return items
}

func (s *IssuanceService) trainerRecipients(trainerID int) []string {
	trainer, err := s.trainers.GetUser(trainerID)
	if err != nil || trainer.Email == "" {
		return nil
	}
	return []string{trainer.Email}
}

func (s *IssuanceService) approverRecipients(location metadata.Location) []string {
	recipients, err := s.trainers.ApproverEmailsByLocation(location)
	if err != nil {
		s.log.Warnw("failed to resolve approvers", "location", location.String(), "error", err)
		return nil
	}
	return recipients
}

// emit delivers a notification and swallows any failure. A broken sink
// must never fail or roll back the state transition that raised it.
func (s *IssuanceService) emit(eventType notifications.EventType, recipients []string, payload map[string]interface{}) {
	event := notifications.NewEvent(eventType, recipients, payload)
	if err := s.notifier.Notify(event); err != nil {
		s.log.Warnw("notification delivery failed", "event_id", event.ID, "type", string(event.Type), "error", err)
	}
}
