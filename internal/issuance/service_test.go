package issuance

import (
	"errors"
	"testing"
	"time"

	"toolroom/internal/notifications"
	"toolroom/internal/repository"
	custom_error "toolroom/pkg/errors"
	"toolroom/pkg/metadata"
	"toolroom/pkg/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeTool struct {
	quantity     int
	availability int
	condition    metadata.Condition
	remark       string
	lastBorrower string
}

type fakeToolStore struct {
	tools map[int]*fakeTool
}

func (s *fakeToolStore) GetTool(id int) (*models.Tool, error) {
	tool, ok := s.tools[id]
	if !ok {
		return nil, custom_error.NewNotFoundError("tool", id)
	}
	return &models.Tool{
		ID:           id,
		Quantity:     tool.quantity,
		Availability: tool.availability,
		Condition:    tool.condition,
	}, nil
}

func (s *fakeToolStore) TryReserve(id int, borrowerName string) (bool, error) {
	tool, ok := s.tools[id]
	if !ok {
		return false, custom_error.NewNotFoundError("tool", id)
	}
	if tool.availability <= 0 {
		return false, nil
	}
	tool.availability--
	tool.lastBorrower = borrowerName
	return true, nil
}

func (s *fakeToolStore) Release(id int, qty int, condition *metadata.Condition, remark *string) error {
	tool, ok := s.tools[id]
	if !ok {
		return custom_error.NewNotFoundError("tool", id)
	}
	tool.availability += qty
	if tool.availability > tool.quantity {
		tool.availability = tool.quantity
	}
	if condition != nil {
		tool.condition = *condition
	}
	if remark != nil {
		tool.remark = *remark
	}
	return nil
}

type fakeKit struct {
	quantity     int
	availability int
	condition    metadata.Condition
	remark       string
	members      []int
}

type fakeKitStore struct {
	kits  map[int]*fakeKit
	tools *fakeToolStore
}

func (s *fakeKitStore) GetKit(id int) (*models.Kit, error) {
	kit, ok := s.kits[id]
	if !ok {
		return nil, custom_error.NewNotFoundError("kit", id)
	}
	return &models.Kit{
		ID:           id,
		Quantity:     kit.quantity,
		Availability: kit.availability,
		Condition:    kit.condition,
		ToolIDs:      kit.members,
	}, nil
}

func (s *fakeKitStore) TryReserveKit(id int, borrowerName string) (bool, error) {
	kit, ok := s.kits[id]
	if !ok {
		return false, custom_error.NewNotFoundError("kit", id)
	}
	if kit.availability <= 0 {
		return false, nil
	}
	for _, toolID := range kit.members {
		if s.tools.tools[toolID].availability <= 0 {
			return false, nil
		}
	}
	kit.availability--
	for _, toolID := range kit.members {
		s.tools.tools[toolID].availability--
		s.tools.tools[toolID].lastBorrower = borrowerName
	}
	return true, nil
}

func (s *fakeKitStore) ReleaseKit(id int, qty int, condition *metadata.Condition, remark *string) error {
	kit, ok := s.kits[id]
	if !ok {
		return custom_error.NewNotFoundError("kit", id)
	}
	kit.availability += qty
	if kit.availability > kit.quantity {
		kit.availability = kit.quantity
	}
	if condition != nil {
		kit.condition = *condition
	}
	if remark != nil {
		kit.remark = *remark
	}
	for _, toolID := range kit.members {
		tool := s.tools.tools[toolID]
		tool.availability += qty
		if tool.availability > tool.quantity {
			tool.availability = tool.quantity
		}
	}
	return nil
}

type fakeLedger struct {
	seq     int
	records map[int]*models.Issuance
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: map[int]*models.Issuance{}}
}

func (l *fakeLedger) GetIssuance(id int) (*models.Issuance, error) {
	record, ok := l.records[id]
	if !ok {
		return nil, custom_error.NewNotFoundError("issuance", id)
	}
	copied := *record
	return &copied, nil
}

func (l *fakeLedger) GetIssuancesBy(queryBuilder repository.QueryBuilder) (*[]models.Issuance, error) {
	var out []models.Issuance
	for _, record := range l.records {
		out = append(out, *record)
	}
	return &out, nil
}

func (l *fakeLedger) PersistIssuance(issuance models.Issuance) (*models.Issuance, error) {
	l.seq++
	issuance.ID = l.seq
	l.records[issuance.ID] = &issuance
	copied := issuance
	return &copied, nil
}

func (l *fakeLedger) SetApproval(id int, status metadata.Status, approvedBy string, approvedAt time.Time, remark string) error {
	record, ok := l.records[id]
	if !ok {
		return custom_error.NewNotFoundError("issuance", id)
	}
	record.Status = status
	record.Approval = models.Approval{ApprovedBy: &approvedBy, ApprovedAt: &approvedAt, Remark: remark}
	return nil
}

func (l *fakeLedger) UpdateStatus(id int, status metadata.Status) error {
	record, ok := l.records[id]
	if !ok {
		return custom_error.NewNotFoundError("issuance", id)
	}
	record.Status = status
	return nil
}

func (l *fakeLedger) GetOverdueCandidates(now time.Time) (*[]models.Issuance, error) {
	var candidates []models.Issuance
	for _, record := range l.records {
		if record.Status == metadata.StatusIssued && record.ReturnDate != nil && record.ReturnDate.Before(now) {
			candidates = append(candidates, *record)
		}
	}
	return &candidates, nil
}

func (l *fakeLedger) MarkOverdue(id int, now time.Time) (bool, error) {
	record, ok := l.records[id]
	if !ok {
		return false, custom_error.NewNotFoundError("issuance", id)
	}
	if record.Status != metadata.StatusIssued || record.ReturnDate == nil || !record.ReturnDate.Before(now) {
		return false, nil
	}
	record.Status = metadata.StatusOverdue
	return true, nil
}

type fakeReturns struct {
	records []models.ReturnRecord
}

func (r *fakeReturns) PersistReturn(record models.ReturnRecord) (*models.ReturnRecord, error) {
	record.ID = len(r.records) + 1
	r.records = append(r.records, record)
	return &record, nil
}

func (r *fakeReturns) GetReturnsForIssuance(issuanceID int) (*[]models.ReturnRecord, error) {
	var out []models.ReturnRecord
	for _, record := range r.records {
		if record.IssuanceID == issuanceID {
			out = append(out, record)
		}
	}
	return &out, nil
}

type fakeDirectory struct {
	users         map[int]*models.User
	approvers     map[string][]string
	issuedCalls   int
	returnedCalls int
	lastOverdue   bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: map[int]*models.User{
			1: {ID: 1, Username: "asmith", Fullname: "Anna Smith", Email: "asmith@example.com", Role: "user"},
		},
		approvers: map[string][]string{
			"pune": {"approver@example.com"},
		},
	}
}

func (d *fakeDirectory) GetUser(id int) (*models.User, error) {
	user, ok := d.users[id]
	if !ok {
		return nil, custom_error.NewNotFoundError("user", id)
	}
	return user, nil
}

func (d *fakeDirectory) ApproverEmailsByLocation(location metadata.Location) ([]string, error) {
	return d.approvers[location.String()], nil
}

func (d *fakeDirectory) RecordIssued(trainerID int, lineCount int) error {
	d.issuedCalls++
	return nil
}

func (d *fakeDirectory) RecordReturned(trainerID int, lineCount int, overdue bool) error {
	d.returnedCalls++
	d.lastOverdue = overdue
	return nil
}

type fakeNotifier struct {
	events []notifications.Event
	fail   bool
}

func (n *fakeNotifier) Notify(event notifications.Event) error {
	n.events = append(n.events, event)
	if n.fail {
		return errors.New("sink unavailable")
	}
	return nil
}

func (n *fakeNotifier) eventTypes() []notifications.EventType {
	types := make([]notifications.EventType, 0, len(n.events))
	for _, event := range n.events {
		types = append(types, event.Type)
	}
	return types
}

type serviceFixture struct {
	service  *IssuanceService
	tools    *fakeToolStore
	kits     *fakeKitStore
	ledger   *fakeLedger
	returns  *fakeReturns
	trainers *fakeDirectory
	notifier *fakeNotifier
	clock    time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	tools := &fakeToolStore{tools: map[int]*fakeTool{}}
	kits := &fakeKitStore{kits: map[int]*fakeKit{}, tools: tools}
	ledger := newFakeLedger()
	returns := &fakeReturns{}
	trainers := newFakeDirectory()
	notifier := &fakeNotifier{}

	fixture := &serviceFixture{
		tools:    tools,
		kits:     kits,
		ledger:   ledger,
		returns:  returns,
		trainers: trainers,
		notifier: notifier,
		clock:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	fixture.service = NewIssuanceService(ledger, returns, tools, kits, trainers, notifier, zap.NewNop().Sugar()).
		WithClock(func() time.Time { return fixture.clock })

	return fixture
}

func (f *serviceFixture) addTool(id, quantity int) {
	f.tools.tools[id] = &fakeTool{quantity: quantity, availability: quantity, condition: metadata.ConditionGood}
}

func (f *serviceFixture) addKit(id, quantity int, members ...int) {
	f.kits.kits[id] = &fakeKit{quantity: quantity, availability: quantity, condition: metadata.ConditionGood, members: members}
}

func (f *serviceFixture) request(toolIDs, kitIDs []int, returnBy *time.Time) IssuanceRequest {
	return IssuanceRequest{
		TrainerID:    1,
		TrainingName: "Hydraulics basics",
		ToolIDs:      toolIDs,
		KitIDs:       kitIDs,
		ReturnDate:   returnBy,
		Location:     "pune",
	}
}

func TestCreateIssuance(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(10, 2)

	issuance, err := f.service.CreateIssuance(f.request([]int{10}, nil, nil))

	assert.NoError(t, err)
	assert.Equal(t, metadata.StatusPending, issuance.Status)
	assert.Equal(t, "Anna Smith", issuance.TrainerName)
	assert.Equal(t, f.clock, issuance.IssuanceDate)
	// Capacity is untouched until approval.
	assert.Equal(t, 2, f.tools.tools[10].availability)
	assert.Equal(t, []notifications.EventType{notifications.EventIssuanceRequested}, f.notifier.eventTypes())
	assert.Equal(t, []string{"approver@example.com"}, f.notifier.events[0].Recipients)
}

func TestCreateIssuanceValidation(t *testing.T) {
	f := newServiceFixture(t)

	var validationErr *custom_error.ValidationError

	_, err := f.service.CreateIssuance(IssuanceRequest{TrainerID: 1, Location: "pune"})
	assert.ErrorAs(t, err, &validationErr)

	_, err = f.service.CreateIssuance(IssuanceRequest{Location: "pune", ToolIDs: []int{1}})
	assert.ErrorAs(t, err, &validationErr)

	var notFound *custom_error.NotFoundError
	_, err = f.service.CreateIssuance(IssuanceRequest{TrainerID: 99, Location: "pune", ToolIDs: []int{1}})
	assert.ErrorAs(t, err, &notFound)
}

func TestApproveReservesCapacity(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(10, 2)

	created, err := f.service.CreateIssuance(f.request([]int{10}, nil, nil))
	assert.NoError(t, err)

	issuance, err := f.service.Approve(created.ID, "moderator1", "ok")

	assert.NoError(t, err)
	assert.Equal(t, metadata.StatusIssued, issuance.Status)
	assert.Equal(t, "moderator1", *issuance.Approval.ApprovedBy)
	assert.Equal(t, 1, f.tools.tools[10].availability)
	assert.Equal(t, 1, f.trainers.issuedCalls)
}

func TestApproveAllOrNothing(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(10, 1)
	f.tools.tools[20] = &fakeTool{quantity: 1, availability: 0, condition: metadata.ConditionGood}

	created, err := f.service.CreateIssuance(f.request([]int{10, 20}, nil, nil))
	assert.NoError(t, err)

	_, err = f.service.Approve(created.ID, "moderator1", "")

	var capacity *custom_error.CapacityUnavailableError
	assert.ErrorAs(t, err, &capacity)
	assert.Equal(t, "tool", capacity.ResourceType)
	assert.Equal(t, 20, capacity.ResourceID)
	// The reservation already taken for tool 10 must be rolled back.
	assert.Equal(t, 1, f.tools.tools[10].availability)

	stored, _ := f.ledger.GetIssuance(created.ID)
	assert.Equal(t, metadata.StatusPending, stored.Status)
}

func TestApproveKitCascade(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(10, 1)
	f.addTool(20, 1)
	f.addKit(5, 1, 10, 20)

	created, err := f.service.CreateIssuance(f.request(nil, []int{5}, nil))
	assert.NoError(t, err)

	_, err = f.service.Approve(created.ID, "moderator1", "")
	assert.NoError(t, err)

	assert.Equal(t, 0, f.kits.kits[5].availability)
	assert.Equal(t, 0, f.tools.tools[10].availability)
	assert.Equal(t, 0, f.tools.tools[20].availability)

	// Full return restores the kit and every member.
	_, err = f.service.ProcessReturn(created.ID, ReturnRequest{}, "moderator1")
	assert.NoError(t, err)

	assert.Equal(t, 1, f.kits.kits[5].availability)
	assert.Equal(t, 1, f.tools.tools[10].availability)
	assert.Equal(t, 1, f.tools.tools[20].availability)
}

func TestApproveKitShortMemberRollsBack(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(10, 1)
	f.addTool(20, 2)
	f.addKit(5, 1, 10)

	// Tool 10 is claimed directly, then the kit containing it cannot be
	// reserved; the direct reservation must be released again.
	created, err := f.service.CreateIssuance(f.request([]int{10, 20}, []int{5}, nil))
	assert.NoError(t, err)

	_, err = f.service.Approve(created.ID, "moderator1", "")

	var capacity *custom_error.CapacityUnavailableError
	assert.ErrorAs(t, err, &capacity)
	assert.Equal(t, "kit", capacity.ResourceType)
	assert.Equal(t, 1, f.tools.tools[10].availability)
	assert.Equal(t, 2, f.tools.tools[20].availability)
	assert.Equal(t, 1, f.kits.kits[5].availability)
}

func TestStateTransitions(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(10, 2)

	created, err := f.service.CreateIssuance(f.request([]int{10}, nil, nil))
	assert.NoError(t, err)

	_, err = f.service.Reject(created.ID, "moderator1", "not needed")
	assert.NoError(t, err)

	var invalidState *custom_error.InvalidStateError

	_, err = f.service.Approve(created.ID, "moderator1", "")
	assert.ErrorAs(t, err, &invalidState)

	_, err = f.service.Reject(created.ID, "moderator1", "again")
	assert.ErrorAs(t, err, &invalidState)

	second, err := f.service.CreateIssuance(f.request([]int{10}, nil, nil))
	assert.NoError(t, err)
	_, err = f.service.Approve(second.ID, "moderator1", "")
	assert.NoError(t, err)

	_, err = f.service.Approve(second.ID, "moderator1", "")
	assert.ErrorAs(t, err, &invalidState)
	_, err = f.service.Reject(second.ID, "moderator1", "late")
	assert.ErrorAs(t, err, &invalidState)
}

func TestRejectNeverTouchesCapacity(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(10, 2)

	created, err := f.service.CreateIssuance(f.request([]int{10}, nil, nil))
	assert.NoError(t, err)

	issuance, err := f.service.Reject(created.ID, "moderator1", "training cancelled")

	assert.NoError(t, err)
	assert.Equal(t, metadata.StatusRejected, issuance.Status)
	assert.Equal(t, "training cancelled", issuance.Approval.Remark)
	assert.Equal(t, 2, f.tools.tools[10].availability)
}

func TestProcessReturnNoLinesFallback(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(10, 2)
	f.addTool(20, 1)
	f.addKit(5, 1, 20)

	created, err := f.service.CreateIssuance(f.request([]int{10}, []int{5}, nil))
	assert.NoError(t, err)
	_, err = f.service.Approve(created.ID, "moderator1", "")
	assert.NoError(t, err)

	issuance, err := f.service.ProcessReturn(created.ID, ReturnRequest{}, "moderator1")

	assert.NoError(t, err)
	assert.Equal(t, metadata.StatusReturned, issuance.Status)
	assert.Equal(t, 2, f.tools.tools[10].availability)
	assert.Equal(t, 1, f.kits.kits[5].availability)
	assert.Equal(t, 1, f.tools.tools[20].availability)
	// Conditions stay untouched on the fallback path.
	assert.Equal(t, metadata.ConditionGood, f.tools.tools[10].condition)

	assert.Len(t, f.returns.records, 1)
	assert.Len(t, f.returns.records[0].Items, 2)
	assert.Equal(t, "moderator1", f.returns.records[0].ProcessedBy)
}

func TestProcessReturnKitConditionIsolation(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(10, 1)
	f.addTool(20, 1)
	f.addKit(5, 1, 10, 20)

	created, err := f.service.CreateIssuance(f.request(nil, []int{5}, nil))
	assert.NoError(t, err)
	_, err = f.service.Approve(created.ID, "moderator1", "")
	assert.NoError(t, err)

	damaged := "damaged"
	kitID := 5
	_, err = f.service.ProcessReturn(created.ID, ReturnRequest{
		Items: []ReturnLineRequest{{KitID: &kitID, Quantity: 1, Condition: &damaged}},
	}, "moderator1")

	assert.NoError(t, err)
	assert.Equal(t, metadata.ConditionDamaged, f.kits.kits[5].condition)
	// Member conditions never follow the kit.
	assert.Equal(t, metadata.ConditionGood, f.tools.tools[10].condition)
	assert.Equal(t, metadata.ConditionGood, f.tools.tools[20].condition)
	// Availability does cascade.
	assert.Equal(t, 1, f.tools.tools[10].availability)
	assert.Equal(t, 1, f.tools.tools[20].availability)

	assert.Contains(t, f.notifier.eventTypes(), notifications.EventDamagedItems)
}

func TestProcessReturnOverdue(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(10, 1)

	returnBy := f.clock.Add(24 * time.Hour)
	created, err := f.service.CreateIssuance(f.request([]int{10}, nil, &returnBy))
	assert.NoError(t, err)
	_, err = f.service.Approve(created.ID, "moderator1", "")
	assert.NoError(t, err)

	f.clock = returnBy.Add(time.Hour)
	issuance, err := f.service.ProcessReturn(created.ID, ReturnRequest{}, "moderator1")

	assert.NoError(t, err)
	assert.Equal(t, metadata.StatusOverdue, issuance.Status)
	assert.Equal(t, 1, f.tools.tools[10].availability)
	assert.True(t, f.trainers.lastOverdue)
	assert.Contains(t, f.notifier.eventTypes(), notifications.EventOverdueConfirmed)
}

func TestProcessReturnGuards(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(10, 1)

	created, err := f.service.CreateIssuance(f.request([]int{10}, nil, nil))
	assert.NoError(t, err)

	var invalidState *custom_error.InvalidStateError
	_, err = f.service.ProcessReturn(created.ID, ReturnRequest{}, "moderator1")
	assert.ErrorAs(t, err, &invalidState)

	var notFound *custom_error.NotFoundError
	_, err = f.service.ProcessReturn(999, ReturnRequest{}, "moderator1")
	assert.ErrorAs(t, err, &notFound)

	_, err = f.service.Approve(created.ID, "moderator1", "")
	assert.NoError(t, err)

	toolID := 10
	kitID := 5
	var validationErr *custom_error.ValidationError
	_, err = f.service.ProcessReturn(created.ID, ReturnRequest{
		Items: []ReturnLineRequest{{ToolID: &toolID, KitID: &kitID}},
	}, "moderator1")
	assert.ErrorAs(t, err, &validationErr)

	bogus := "pristine"
	_, err = f.service.ProcessReturn(created.ID, ReturnRequest{
		Items: []ReturnLineRequest{{ToolID: &toolID, Condition: &bogus}},
	}, "moderator1")
	assert.ErrorAs(t, err, &validationErr)
}

func TestNotificationFailureNeverPropagates(t *testing.T) {
	f := newServiceFixture(t)
	f.notifier.fail = true
	f.addTool(10, 1)

	created, err := f.service.CreateIssuance(f.request([]int{10}, nil, nil))
	assert.NoError(t, err)

	_, err = f.service.Approve(created.ID, "moderator1", "")
	assert.NoError(t, err)

	_, err = f.service.ProcessReturn(created.ID, ReturnRequest{}, "moderator1")
	assert.NoError(t, err)
}

func TestReservationScenario(t *testing.T) {
	f := newServiceFixture(t)
	f.addTool(1, 2)

	r1, err := f.service.CreateIssuance(f.request([]int{1}, nil, nil))
	assert.NoError(t, err)
	issued, err := f.service.Approve(r1.ID, "moderator1", "")
	assert.NoError(t, err)
	assert.Equal(t, metadata.StatusIssued, issued.Status)
	assert.Equal(t, 1, f.tools.tools[1].availability)

	r2, err := f.service.CreateIssuance(f.request([]int{1}, nil, nil))
	assert.NoError(t, err)
	_, err = f.service.Approve(r2.ID, "moderator1", "")
	assert.NoError(t, err)
	assert.Equal(t, 0, f.tools.tools[1].availability)

	r3, err := f.service.CreateIssuance(f.request([]int{1}, nil, nil))
	assert.NoError(t, err)
	_, err = f.service.Approve(r3.ID, "moderator1", "")
	var capacity *custom_error.CapacityUnavailableError
	assert.ErrorAs(t, err, &capacity)
	assert.Equal(t, 0, f.tools.tools[1].availability)

	returned, err := f.service.ProcessReturn(r1.ID, ReturnRequest{}, "moderator1")
	assert.NoError(t, err)
	assert.Equal(t, metadata.StatusReturned, returned.Status)
	assert.Equal(t, 1, f.tools.tools[1].availability)
}
