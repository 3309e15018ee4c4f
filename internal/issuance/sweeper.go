package issuance

import (
	"time"

	"toolroom/internal/notifications"
	"toolroom/pkg/metadata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically promotes late issued records to overdue. Each
// record is handled in isolation; one failure never aborts the rest of
// the sweep.
type Sweeper struct {
	ledger   IssuanceRepository
	trainers TrainerDirectory
	notifier notifications.Notifier
	log      *zap.SugaredLogger
	cron     *cron.Cron

	now func() time.Time
}

func NewSweeper(ledger IssuanceRepository, trainers TrainerDirectory, notifier notifications.Notifier, log *zap.SugaredLogger) *Sweeper {
	return &Sweeper{
		ledger:   ledger,
		trainers: trainers,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Start schedules the sweep on the given cron expression and runs one
// sweep immediately so a restart never waits a full interval.
func (s *Sweeper) Start(schedule string) error {
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

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep flips every issued record whose planned return date has passed.
// The ledger update is guarded on the current status, so records already
// swept (or returned in the meantime) are skipped.
func (s *Sweeper) Sweep() int {
	now := s.now()

	candidates, err := s.ledger.GetOverdueCandidates(now)
	if err != nil {
		s.log.Errorw("overdue sweep failed to list candidates", "error", err)
		return 0
	}

	flipped := 0
	for _, issuance := range *candidates {
		marked, err := s.ledger.MarkOverdue(issuance.ID, now)
		if err != nil {
			s.log.Errorw("failed to mark issuance overdue", "issuance_id", issuance.ID, "error", err)
			continue
		}
		if !marked {
			continue
		}
		flipped++

		recipients := s.recipients(issuance.TrainerID, issuance.Location)
		event := notifications.NewEvent(notifications.EventOverdueDetected, recipients, map[string]interface{}{
			"issuance_id":    issuance.ID,
			"trainer_name":   issuance.TrainerName,
			"planned_return": issuance.ReturnDate,
		})
		if err := s.notifier.Notify(event); err != nil {
			s.log.Warnw("notification delivery failed", "event_id", event.ID, "issuance_id", issuance.ID, "error", err)
		}
	}

	if flipped > 0 {
		s.log.Infow("overdue sweep finished", "flipped", flipped)
	}

	return flipped
}

func (s *Sweeper) recipients(trainerID int, location metadata.Location) []string {
	var recipients []string

	if trainer, err := s.trainers.GetUser(trainerID); err == nil && trainer.Email != "" {
		recipients = append(recipients, trainer.Email)
	}

	approvers, err := s.trainers.ApproverEmailsByLocation(location)
	if err != nil {
		s.log.Warnw("failed to resolve approvers", "location", location.String(), "error", err)
		return recipients
	}

	return append(recipients, approvers...)
}
