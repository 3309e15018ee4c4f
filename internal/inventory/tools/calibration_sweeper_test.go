package tools

import (
	"testing"
	"time"

	"toolroom/internal/notifications"
	"toolroom/pkg/metadata"
	"toolroom/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type fakeApproverDirectory struct {
	emails map[metadata.Location][]string
}

func (f fakeApproverDirectory) ApproverEmailsByLocation(location metadata.Location) ([]string, error) {
	return f.emails[location], nil
}

type captureNotifier struct {
	events []notifications.Event
}

func (c *captureNotifier) Notify(event notifications.Event) error {
	c.events = append(c.events, event)
	return nil
}

func calibrationTool(id int, location metadata.Location, due time.Time) models.Tool {
	return models.Tool{
		ID:                  id,
		ToolNo:              "CAL",
		ToolCode:            "TRM-PNE1",
		Location:            location,
		CalibrationRequired: true,
		CalibrationDate:     &due,
	}
}

func TestCalibrationSweepRemindsAtOffsets(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	inventory := new(MockToolRepository)
	candidates := []models.Tool{
		calibrationTool(1, metadata.LocationPune, now.AddDate(0, 0, 7)),
		calibrationTool(2, metadata.LocationPune, now.AddDate(0, 0, 3)),
		calibrationTool(3, metadata.LocationBangalore, now.AddDate(0, 0, 1)),
	}
	inventory.On("GetCalibrationDue", mock.AnythingOfType("time.Time")).Return(&candidates, nil)

	approvers := fakeApproverDirectory{emails: map[metadata.Location][]string{
		metadata.LocationPune:      {"pune-admin@example.com"},
		metadata.LocationBangalore: {"blr-admin@example.com"},
	}}
	notifier := &captureNotifier{}

	sweeper := NewCalibrationSweeper(inventory, approvers, notifier, zap.NewNop().Sugar()).
		WithClock(func() time.Time { return now })

	reminded := sweeper.Sweep()

	assert.Equal(t, 2, reminded)
	assert.Len(t, notifier.events, 2)

	first := notifier.events[0]
	assert.Equal(t, notifications.EventCalibrationDue, first.Type)
	assert.Equal(t, []string{"pune-admin@example.com"}, first.Recipients)
	assert.Equal(t, 1, first.Payload["tool_id"])
	assert.Equal(t, 7, first.Payload["days_left"])

	second := notifier.events[1]
	assert.Equal(t, []string{"blr-admin@example.com"}, second.Recipients)
	assert.Equal(t, 3, second.Payload["tool_id"])
	assert.Equal(t, 1, second.Payload["days_left"])
}

func TestCalibrationSweepSkipsOutOfWindowDates(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	inventory := new(MockToolRepository)
	candidates := []models.Tool{
		// Date already passed; inventory views surface it instead.
		calibrationTool(4, metadata.LocationPune, now.AddDate(0, 0, -1)),
		// No offset match.
		calibrationTool(5, metadata.LocationPune, now.AddDate(0, 0, 14)),
	}
	inventory.On("GetCalibrationDue", mock.AnythingOfType("time.Time")).Return(&candidates, nil)

	notifier := &captureNotifier{}
	sweeper := NewCalibrationSweeper(inventory, fakeApproverDirectory{}, notifier, zap.NewNop().Sugar()).
		WithClock(func() time.Time { return now })

	assert.Equal(t, 0, sweeper.Sweep())
	assert.Empty(t, notifier.events)
}
