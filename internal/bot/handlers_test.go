package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carebot/carebot/internal/domain/care"
	"github.com/carebot/carebot/internal/domain/session"
)

// fakeData is a map-backed care.DataSource for handler tests.
type fakeData struct {
	care.DataSource
	patients map[string]care.PatientSummary
	searched []string
	requests []care.AppointmentRequest
}

func newFakeData() *fakeData {
	return &fakeData{patients: make(map[string]care.PatientSummary)}
}

func (d *fakeData) addPatient(externalID, name, phone string) care.PatientSummary {
	p := care.PatientSummary{Ref: uuid.New(), ExternalID: externalID, Name: name, Phone: phone}
	d.patients[externalID] = p
	return p
}

func (d *fakeData) SearchPatients(_ context.Context, query string, limit int) ([]care.PatientSummary, error) {
	d.searched = append(d.searched, query)
	var out []care.PatientSummary
	for _, p := range d.patients {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *fakeData) PatientByExternalID(_ context.Context, externalID string) (*care.PatientSummary, error) {
	p, ok := d.patients[externalID]
	if !ok {
		return nil, care.ErrPatientNotFound
	}
	return &p, nil
}

func (d *fakeData) CreateAppointmentRequest(_ context.Context, req *care.AppointmentRequest) error {
	req.ID = uuid.New()
	d.requests = append(d.requests, *req)
	return nil
}

func anonSession() *session.Session {
	return session.New("+1000000001", time.Now(), 24*time.Hour)
}

func authedSession(role session.Role) *session.Session {
	s := anonSession()
	ref := uuid.New()
	s.Role = role
	s.State = session.StateAuthenticated
	s.AccountRef = &ref
	return s
}

func handle(t *testing.T, h Handler, s *session.Session, text string) string {
	t.Helper()
	cmd := Parse(text)
	if !h.Match(cmd, s) {
		t.Fatalf("handler did not match %q", text)
	}
	reply, err := h.Handle(context.Background(), cmd, s)
	if err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
	return reply
}

func TestHelp_RoleAware(t *testing.T) {
	h := &helpHandler{}

	anon := handle(t, h, anonSession(), "help")
	for _, hidden := range []string{"records", "search patient", "schedule"} {
		if strings.Contains(anon, hidden) {
			t.Errorf("unauthenticated help must not list %q:\n%s", hidden, anon)
		}
	}

	patient := handle(t, h, authedSession(session.RolePatient), "help")
	if !strings.Contains(patient, "records") || strings.Contains(patient, "search patient") {
		t.Errorf("patient help wrong:\n%s", patient)
	}

	staff := handle(t, h, authedSession(session.RoleStaff), "help")
	if !strings.Contains(staff, "search patient") || strings.Contains(staff, "`records`") {
		t.Errorf("staff help wrong:\n%s", staff)
	}
}

func TestMenu_RoleAware(t *testing.T) {
	h := &menuHandler{}

	anon := handle(t, h, anonSession(), "menu")
	for _, hidden := range []string{"records", "search patient"} {
		if strings.Contains(anon, hidden) {
			t.Errorf("unauthenticated menu must not list %q:\n%s", hidden, anon)
		}
	}
	if !strings.Contains(anon, "login") {
		t.Errorf("unauthenticated menu must point at login:\n%s", anon)
	}
}

func TestUtility_StatusReportsUptime(t *testing.T) {
	h := &utilityHandler{version: "test", started: time.Now().Add(-90 * time.Second)}

	reply := handle(t, h, anonSession(), "status")
	if !strings.Contains(reply, "Uptime: 1m30s") {
		t.Errorf("expected uptime in status reply:\n%s", reply)
	}
	if !strings.Contains(reply, "Role: anonymous") {
		t.Errorf("expected role in status reply:\n%s", reply)
	}
}

func TestAuthGate_BlocksPrivilegedKeywords(t *testing.T) {
	h := &authGateHandler{}
	s := anonSession()
	for _, text := range []string{"records", "get appointments", "search patient x", "schedule appointment"} {
		cmd := Parse(text)
		if !h.Match(cmd, s) {
			t.Errorf("gate must match %q for anonymous caller", text)
		}
	}
	if h.Match(Parse("records"), authedSession(session.RolePatient)) {
		t.Error("gate must not match authenticated callers")
	}
}

func TestSearch_RequiresMinimumQuery(t *testing.T) {
	data := newFakeData()
	h := &searchHandler{data: data}
	s := authedSession(session.RoleStaff)

	reply := handle(t, h, s, "search patient J")
	if !strings.Contains(reply, "at least 2 characters") {
		t.Errorf("expected short-query prompt, got %q", reply)
	}
	if len(data.searched) != 0 {
		t.Error("short query must not hit the data source")
	}
}

func TestSearch_MasksPhonesInResults(t *testing.T) {
	data := newFakeData()
	data.addPatient("P1", "John Doe", "+14155550123")
	h := &searchHandler{data: data}

	reply := handle(t, h, authedSession(session.RoleStaff), "search patient John")
	if strings.Contains(reply, "4155550123") {
		t.Error("full phone leaked to the channel")
	}
	if !strings.Contains(reply, "****0123") {
		t.Errorf("expected masked phone:\n%s", reply)
	}
}

func TestSearch_NotMatchedForPatientRole(t *testing.T) {
	h := &searchHandler{data: newFakeData()}
	if h.Match(Parse("search patient John"), authedSession(session.RolePatient)) {
		t.Error("patient role must not reach staff search")
	}
}

func TestInfo_UnknownPatient(t *testing.T) {
	h := &infoHandler{data: newFakeData()}
	reply := handle(t, h, authedSession(session.RoleStaff), "patient info P404")
	if !strings.Contains(reply, "No patient found") {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestSchedule_FullFlow(t *testing.T) {
	data := newFakeData()
	p := data.addPatient("P123456", "John Doe", "+14155550123")
	h := newScheduleHandler(data)
	h.now = func() time.Time { return time.Date(2026, 8, 20, 9, 0, 0, 0, time.Local) }
	s := authedSession(session.RoleStaff)

	reply := handle(t, h, s, "schedule appointment")
	if !strings.Contains(reply, "patient ID") || s.Draft == nil {
		t.Fatalf("flow must start and ask for patient, got %q", reply)
	}

	reply = handle(t, h, s, "P123456")
	if !strings.Contains(reply, "date and time") || s.Draft.PatientID != "P123456" {
		t.Fatalf("flow must store patient and ask for time, got %q", reply)
	}

	reply = handle(t, h, s, "2026-09-01 10:00")
	if !strings.Contains(reply, "reason") || s.Draft.StartsAt == nil {
		t.Fatalf("flow must store time and ask for reason, got %q", reply)
	}

	reply = handle(t, h, s, "Regular checkup")
	if !strings.Contains(reply, "submitted") {
		t.Fatalf("flow must confirm, got %q", reply)
	}
	if s.Draft != nil {
		t.Error("draft must be cleared on completion")
	}
	if len(data.requests) != 1 {
		t.Fatal("request not created")
	}
	req := data.requests[0]
	if req.PatientRef != p.Ref || req.RequestedBy != *s.AccountRef || req.Reason != "Regular checkup" {
		t.Errorf("request fields wrong: %+v", req)
	}
}

func TestSchedule_RejectsBadInput(t *testing.T) {
	data := newFakeData()
	data.addPatient("P123456", "John Doe", "+14155550123")
	h := newScheduleHandler(data)
	h.now = func() time.Time { return time.Date(2026, 8, 20, 9, 0, 0, 0, time.Local) }
	s := authedSession(session.RoleStaff)

	handle(t, h, s, "schedule appointment")

	reply := handle(t, h, s, "P404")
	if !strings.Contains(reply, "No patient found") || s.Draft.PatientID != "" {
		t.Fatalf("unknown patient must re-prompt, got %q", reply)
	}

	handle(t, h, s, "P123456")
	reply = handle(t, h, s, "next tuesday")
	if !strings.Contains(reply, "couldn't read that date") || s.Draft.StartsAt != nil {
		t.Fatalf("bad date must re-prompt, got %q", reply)
	}
	reply = handle(t, h, s, "2020-01-01 10:00")
	if !strings.Contains(reply, "in the past") || s.Draft.StartsAt != nil {
		t.Fatalf("past date must re-prompt, got %q", reply)
	}
}

func TestSchedule_CancelAborts(t *testing.T) {
	h := newScheduleHandler(newFakeData())
	s := authedSession(session.RoleStaff)

	handle(t, h, s, "schedule appointment")
	reply := handle(t, h, s, "cancel")
	if !strings.Contains(reply, "cancelled") || s.Draft != nil {
		t.Fatalf("cancel must clear the draft, got %q", reply)
	}
}

func TestSchedule_DraftCapturesFollowups(t *testing.T) {
	h := newScheduleHandler(newFakeData())
	s := authedSession(session.RoleStaff)
	handle(t, h, s, "schedule appointment")

	// While a draft is active, arbitrary text routes to the flow, not the
	// fallback.
	if !h.Match(Parse("P123456"), s) {
		t.Error("active draft must capture the next message")
	}
}
