package tools

import (
	"time"

	"toolroom/internal/notifications"
	"toolroom/pkg/metadata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reminders go out this many days before a tool's calibration date.
var calibrationReminderOffsets = map[int]bool{30: true, 7: true, 2: true, 1: true}

// maxReminderOffset bounds the candidate query window.
const maxReminderOffset = 30

// ApproverDirectory resolves the addresses that calibration reminders
// are sent to.
type ApproverDirectory interface {
	ApproverEmailsByLocation(location metadata.Location) ([]string, error)
}

// CalibrationSweeper reminds location approvers about upcoming tool
// calibrations. It is expected to run daily; each reminder offset fires
// on exactly one run, so the sweep stays idempotent within a day.
type CalibrationSweeper struct {
	inventory ToolRepository
	approvers ApproverDirectory
	notifier  notifications.Notifier
	log       *zap.SugaredLogger
	cron      *cron.Cron

	now func() time.Time
}

func NewCalibrationSweeper(inventory ToolRepository, approvers ApproverDirectory, notifier notifications.Notifier, log *zap.SugaredLogger) *CalibrationSweeper {
	return &CalibrationSweeper{
		inventory: inventory,
		approvers: approvers,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

func (s *CalibrationSweeper) WithClock(now func() time.Time) *CalibrationSweeper {
	s.now = now
	return s
}

// Start schedules the sweep on the given cron expression and runs one
// sweep immediately so a restart never waits a full interval.
func (s *CalibrationSweeper) Start(schedule string) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, func() {
		s.Sweep()
	}); err != nil {
		return err
	}
	s.cron.Start()

	go s.Sweep()
	return nil
}

func (s *CalibrationSweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep emits one reminder per tool whose calibration date is exactly
// 30, 7, 2 or 1 whole days away. Tools already past their date are
// skipped; they surface through the regular inventory views instead.
func (s *CalibrationSweeper) Sweep() int {
	now := s.now()

	candidates, err := s.inventory.GetCalibrationDue(now.AddDate(0, 0, maxReminderOffset))
	if err != nil {
		s.log.Errorw("calibration sweep failed to list candidates", "error", err)
		return 0
	}

	reminded := 0
	for _, tool := range *candidates {
		if tool.CalibrationDate == nil {
			continue
		}

		days := daysUntil(now, *tool.CalibrationDate)
		if !calibrationReminderOffsets[days] {
			continue
		}

		recipients, err := s.approvers.ApproverEmailsByLocation(tool.Location)
		if err != nil {
			s.log.Warnw("failed to resolve approvers", "location", tool.Location.String(), "error", err)
		}

		event := notifications.NewEvent(notifications.EventCalibrationDue, recipients, map[string]interface{}{
			"tool_id":          tool.ID,
			"tool_no":          tool.ToolNo,
			"tool_code":        tool.ToolCode,
			"calibration_date": *tool.CalibrationDate,
			"days_left":        days,
		})
		if err := s.notifier.Notify(event); err != nil {
			s.log.Warnw("notification delivery failed", "event_id", event.ID, "tool_id", tool.ID, "error", err)
			continue
		}
		reminded++
	}

	if reminded > 0 {
		s.log.Infow("calibration sweep finished", "reminded", reminded)
	}

	return reminded
}

// daysUntil counts whole calendar days between the two instants, both
// truncated to midnight UTC, so a reminder offset matches the same tool
// on exactly one daily run.
func daysUntil(now, due time.Time) int {
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(dueDay.Sub(nowDay).Hours() / 24)
}
