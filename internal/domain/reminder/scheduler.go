package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/carebot/carebot/internal/domain/care"
)

// Sender delivers one outbound message to an identity on the channel.
type Sender interface {
	Send(ctx context.Context, identity, body string) error
}

// Summary is the outcome of one scheduling run.
type Summary struct {
	Scanned   int `json:"scanned"`
	Scheduled int `json:"scheduled"`
	Skipped   int `json:"skipped"`
	Cancelled int `json:"cancelled"`
	Failed    int `json:"failed"`
}

// Scheduler scans upcoming appointments and queues reminder notifications.
type Scheduler struct {
	data    care.DataSource
	repo    Repo
	sender  Sender
	offsets []offset
	log     zerolog.Logger
	now     func() time.Time
}

type offset struct {
	kind   Kind
	before time.Duration
}

// NewScheduler wires a Scheduler. dayOffset and hourOffset are how long
// before an appointment each reminder kind fires.
func NewScheduler(data care.DataSource, repo Repo, sender Sender, dayOffset, hourOffset time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		data:   data,
		repo:   repo,
		sender: sender,
		offsets: []offset{
			{kind: KindDayBefore, before: dayOffset},
			{kind: KindHoursBefore, before: hourOffset},
		},
		log: log.With().Str("component", "reminder").Logger(),
		now: time.Now,
	}
}

// SetClock overrides the clock; tests use this for deterministic windows.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// Run scans appointments starting within lookahead from now and queues the
// reminders whose fire time has not already passed. A failure on one
// appointment is counted and logged but does not stop the scan. Re-running
// over the same window schedules nothing new.
func (s *Scheduler) Run(ctx context.Context, lookahead time.Duration) (Summary, error) {
	now := s.now()
	appts, err := s.data.AppointmentsInWindow(ctx, now, now.Add(lookahead))
	if err != nil {
		return Summary{}, fmt.Errorf("scan appointments: %w", err)
	}

	var sum Summary
	sum.Scanned = len(appts)
	for _, a := range appts {
		if a.CancelledAt != nil {
			n, err := s.repo.CancelForAppointment(ctx, a.ID)
			if err != nil {
				sum.Failed++
				s.log.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("cancel reminders")
				continue
			}
			sum.Cancelled += int(n)
			continue
		}

		for _, off := range s.offsets {
			fireAt := a.StartsAt.Add(-off.before)
			if fireAt.Before(now) {
				sum.Skipped++
				continue
			}

			created, err := s.repo.InsertPending(ctx, &PendingNotification{
				AppointmentID: a.ID,
				Identity:      a.Identity,
				Kind:          off.kind,
				FireAt:        fireAt,
				Body:          reminderBody(a, off.kind),
			})
			if err != nil {
				sum.Failed++
				s.log.Error().Err(err).
					Str("appointment_id", a.ID.String()).
					Str("kind", string(off.kind)).
					Msg("queue reminder")
				continue
			}
			if created {
				sum.Scheduled++
			} else {
				sum.Skipped++
			}
		}
	}

	s.log.Info().
		Int("scanned", sum.Scanned).
		Int("scheduled", sum.Scheduled).
		Int("skipped", sum.Skipped).
		Int("cancelled", sum.Cancelled).
		Int("failed", sum.Failed).
		Msg("reminder run complete")
	return sum, nil
}

// Dispatch sends due pending notifications. Each is marked sent or failed
// individually so one bad number cannot block the queue.
func (s *Scheduler) Dispatch(ctx context.Context, limit int) (sent, failed int, err error) {
	due, err := s.repo.Due(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("load due notifications: %w", err)
	}

	for _, n := range due {
		if err := s.sender.Send(ctx, n.Identity, n.Body); err != nil {
			failed++
			s.log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("send reminder")
			if err := s.repo.MarkFailed(ctx, n.ID); err != nil {
				s.log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("mark failed")
			}
			continue
		}
		if err := s.repo.MarkSent(ctx, n.ID); err != nil {
			s.log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("mark sent")
		}
		sent++
	}
	return sent, failed, nil
}

func reminderBody(a care.Appointment, kind Kind) string {
	when := a.StartsAt.Format("2006-01-02 15:04")
	lead := "tomorrow"
	if kind == KindHoursBefore {
		lead = "in a few hours"
	}

	body := fmt.Sprintf("📅 *Appointment Reminder*\n\nHello %s, you have an appointment %s.\n\nWhen: %s\nFacility: %s\n",
		a.PatientName, lead, when, a.Facility)
	if a.DoctorName != nil {
		body += fmt.Sprintf("Doctor: %s\n", *a.DoctorName)
	}
	body += "\n📞 Please arrive 15 minutes early. Reply `appointments` for details."
	return body
}
