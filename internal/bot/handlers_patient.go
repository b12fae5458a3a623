package bot

import (
	"context"
	"fmt"

	"github.com/carebot/carebot/internal/domain/care"
	"github.com/carebot/carebot/internal/domain/session"
)

const recentItemsLimit = 5

// patientHandler serves the read-only data lookups for authenticated
// patients. Every query is scoped to the session's linked account; a patient
// id supplied in the message is never honored.
type patientHandler struct {
	data care.DataSource
}

func (h *patientHandler) Match(cmd Command, s *session.Session) bool {
	if !s.Authenticated() || s.Role != session.RolePatient {
		return false
	}
	switch cmd.Keyword() {
	case "records", "medications", "appointments", "procedures":
		return true
	}
	return false
}

func (h *patientHandler) Handle(ctx context.Context, cmd Command, s *session.Session) (string, error) {
	ref := *s.AccountRef
	switch cmd.Keyword() {
	case "records":
		records, err := h.data.RecentRecords(ctx, ref, recentItemsLimit)
		if err != nil {
			return "", fmt.Errorf("fetch records: %w", err)
		}
		return care.FormatRecords(records), nil
	case "medications":
		meds, err := h.data.ActiveMedications(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("fetch medications: %w", err)
		}
		return care.FormatMedications(meds), nil
	case "appointments":
		appts, err := h.data.UpcomingAppointments(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("fetch appointments: %w", err)
		}
		return care.FormatAppointments(appts), nil
	default:
		procs, err := h.data.RecentProcedures(ctx, ref, recentItemsLimit)
		if err != nil {
			return "", fmt.Errorf("fetch procedures: %w", err)
		}
		return care.FormatProcedures(procs), nil
	}
}
