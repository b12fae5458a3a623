package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carebot/carebot/internal/domain/care"
	"github.com/carebot/carebot/internal/domain/session"
)

const (
	searchResultLimit = 10
	minSearchQueryLen = 2
)

func isStaff(s *session.Session) bool {
	return s.Authenticated() && s.Role == session.RoleStaff
}

// searchHandler serves `search patient <query>` for staff.
type searchHandler struct {
	data care.DataSource
}

func (h *searchHandler) Match(cmd Command, s *session.Session) bool {
	return isStaff(s) && (cmd.HasPrefix("search patient") || cmd.Verb == "search")
}

func (h *searchHandler) Handle(ctx context.Context, cmd Command, s *session.Session) (string, error) {
	query := cmd.After("search")
	if cmd.HasPrefix("search patient") {
		query = cmd.After("search patient")
	}
	if len(query) < minSearchQueryLen {
		return "🔍 Please provide a search term of at least 2 characters.\n\nExample: `search patient John Doe`", nil
	}

	results, err := h.data.SearchPatients(ctx, query, searchResultLimit)
	if err != nil {
		return "", fmt.Errorf("search patients: %w", err)
	}
	return care.FormatSearchResults(results, query), nil
}

// infoHandler serves `patient info <id>` for staff. The summary goes through
// the privacy filter so the reply carries a masked phone number.
type infoHandler struct {
	data care.DataSource
}

func (h *infoHandler) Match(cmd Command, s *session.Session) bool {
	return isStaff(s) && cmd.HasPrefix("patient info")
}

func (h *infoHandler) Handle(ctx context.Context, cmd Command, s *session.Session) (string, error) {
	id := cmd.After("patient info")
	if id == "" {
		return "👤 Please provide a patient ID.\n\nExample: `patient info P123456`", nil
	}

	p, err := h.data.PatientByExternalID(ctx, id)
	if errors.Is(err, care.ErrPatientNotFound) {
		return fmt.Sprintf("❌ No patient found with ID '%s'.", id), nil
	}
	if err != nil {
		return "", fmt.Errorf("get patient: %w", err)
	}
	return care.FormatPatientInfo(p), nil
}

// scheduleHandler runs the staff multi-turn scheduling flow. Collected
// parameters live in the session draft across messages until the request is
// complete or the user sends `cancel`.
type scheduleHandler struct {
	data care.DataSource
	now  func() time.Time
}

func newScheduleHandler(data care.DataSource) *scheduleHandler {
	return &scheduleHandler{data: data, now: time.Now}
}

func (h *scheduleHandler) Match(cmd Command, s *session.Session) bool {
	if !isStaff(s) {
		return false
	}
	return s.Draft != nil || cmd.HasPrefix("schedule appointment") || cmd.Verb == "schedule"
}

func (h *scheduleHandler) Handle(ctx context.Context, cmd Command, s *session.Session) (string, error) {
	if s.Draft != nil && cmd.Norm == "cancel" {
		s.Draft = nil
		return "❌ Scheduling cancelled.", nil
	}

	if s.Draft == nil {
		s.Draft = &session.ScheduleDraft{}
		return "📅 *Schedule Appointment*\n\n" +
			"Which patient? Reply with the patient ID (e.g. P123456).\n\n" +
			"Send `cancel` at any point to abort.", nil
	}

	switch {
	case s.Draft.PatientID == "":
		return h.collectPatient(ctx, cmd, s)
	case s.Draft.StartsAt == nil:
		return h.collectTime(cmd, s)
	default:
		return h.collectReason(ctx, cmd, s)
	}
}

func (h *scheduleHandler) collectPatient(ctx context.Context, cmd Command, s *session.Session) (string, error) {
	id := cmd.Raw
	_, err := h.data.PatientByExternalID(ctx, id)
	if errors.Is(err, care.ErrPatientNotFound) {
		return fmt.Sprintf("❌ No patient found with ID '%s'. Try again or send `cancel`.", id), nil
	}
	if err != nil {
		return "", fmt.Errorf("get patient: %w", err)
	}

	s.Draft.PatientID = id
	return "📅 When? Reply with date and time as `YYYY-MM-DD HH:MM` (e.g. 2026-09-01 10:00).", nil
}

func (h *scheduleHandler) collectTime(cmd Command, s *session.Session) (string, error) {
	at, err := time.ParseInLocation("2006-01-02 15:04", cmd.Raw, time.Local)
	if err != nil {
		return "❓ I couldn't read that date. Use `YYYY-MM-DD HH:MM` (e.g. 2026-09-01 10:00), or send `cancel`.", nil
	}
	if !at.After(h.now()) {
		return "❓ That time is in the past. Please pick a future date and time.", nil
	}

	s.Draft.StartsAt = &at
	return "📝 What is the reason for the visit?", nil
}

func (h *scheduleHandler) collectReason(ctx context.Context, cmd Command, s *session.Session) (string, error) {
	if cmd.Raw == "" {
		return "📝 Please provide a short reason for the visit, or send `cancel`.", nil
	}
	s.Draft.Reason = cmd.Raw

	p, err := h.data.PatientByExternalID(ctx, s.Draft.PatientID)
	if err != nil {
		return "", fmt.Errorf("get patient: %w", err)
	}

	req := &care.AppointmentRequest{
		PatientRef:  p.Ref,
		RequestedBy: *s.AccountRef,
		StartsAt:    *s.Draft.StartsAt,
		Reason:      s.Draft.Reason,
	}
	if err := h.data.CreateAppointmentRequest(ctx, req); err != nil {
		return "", fmt.Errorf("create appointment request: %w", err)
	}

	when := req.StartsAt.Format("2006-01-02 15:04")
	s.Draft = nil
	return fmt.Sprintf("✅ Appointment request submitted.\n\nPatient: %s (%s)\nWhen: %s\nReason: %s\n\nThe scheduling desk will confirm.",
		p.Name, p.ExternalID, when, req.Reason), nil
}
