package care

import (
	"fmt"
	"strings"
)

// Formatting limits for the messaging channel.
const (
	MaxMessageLength = 4096
	MaxListItems     = 10
)

const dateLayout = "2006-01-02"
const dateTimeLayout = "2006-01-02 15:04"

// MaskPhone hides all but the last four digits. Staff never see a patient's
// full number over the channel.
func MaskPhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 4 {
		return "****"
	}
	return "****" + d[len(d)-4:]
}

// FormatRecords renders a patient's recent encounters.
func FormatRecords(records []Record) string {
	if len(records) == 0 {
		return "📋 *Medical Records*\n\nNo recent medical records found."
	}

	var b strings.Builder
	b.WriteString("📋 *Recent Medical Records*\n\n")
	shown, rest := capList(len(records))
	for i, rec := range records[:shown] {
		fmt.Fprintf(&b, "*%d. %s*\n", i+1, rec.Date.Format(dateLayout))
		fmt.Fprintf(&b, "Type: %s\n", rec.EncounterType)
		if rec.ChiefComplaint != nil {
			fmt.Fprintf(&b, "Complaint: %s\n", *rec.ChiefComplaint)
		}
		if rec.Diagnosis != nil {
			fmt.Fprintf(&b, "Diagnosis: %s\n", *rec.Diagnosis)
		}
		b.WriteString("\n")
	}
	if rest > 0 {
		fmt.Fprintf(&b, "... and %d more records\n\n", rest)
	}
	b.WriteString("⚠️ Summary only. Visit provider for complete records.")
	return truncate(b.String())
}

// FormatMedications renders a patient's active medications.
func FormatMedications(meds []Medication) string {
	if len(meds) == 0 {
		return "💊 *Current Medications*\n\nNo active medications found."
	}

	var b strings.Builder
	b.WriteString("💊 *Current Medications*\n\n")
	shown, rest := capList(len(meds))
	for i, m := range meds[:shown] {
		fmt.Fprintf(&b, "*%d. %s*\n", i+1, m.Name)
		if m.Dosage != nil {
			fmt.Fprintf(&b, "Dosage: %s\n", *m.Dosage)
		}
		if m.Frequency != nil {
			fmt.Fprintf(&b, "Frequency: %s\n", *m.Frequency)
		}
		if m.Instructions != nil {
			fmt.Fprintf(&b, "Instructions: %s\n", *m.Instructions)
		}
		fmt.Fprintf(&b, "Status: %s\n\n", m.Status)
	}
	if rest > 0 {
		fmt.Fprintf(&b, "... and %d more medications\n\n", rest)
	}
	b.WriteString("⚠️ Follow doctor's instructions. Don't change meds without consulting.")
	return truncate(b.String())
}

// FormatAppointments renders a patient's upcoming appointments.
func FormatAppointments(appts []Appointment) string {
	if len(appts) == 0 {
		return "📅 *Upcoming Appointments*\n\nNo upcoming appointments found."
	}

	var b strings.Builder
	b.WriteString("📅 *Upcoming Appointments*\n\n")
	shown, rest := capList(len(appts))
	for i, a := range appts[:shown] {
		fmt.Fprintf(&b, "*%d. %s*\n", i+1, a.StartsAt.Format(dateTimeLayout))
		fmt.Fprintf(&b, "Facility: %s\n", a.Facility)
		if a.DoctorName != nil {
			fmt.Fprintf(&b, "Doctor: %s\n", *a.DoctorName)
		}
		if a.Kind != nil {
			fmt.Fprintf(&b, "Type: %s\n", *a.Kind)
		}
		b.WriteString("\n")
	}
	if rest > 0 {
		fmt.Fprintf(&b, "... and %d more appointments\n\n", rest)
	}
	b.WriteString("📞 *Reminder:* Please arrive 15 minutes early.")
	return truncate(b.String())
}

// FormatProcedures renders a patient's recent procedures.
func FormatProcedures(procs []Procedure) string {
	if len(procs) == 0 {
		return "🏥 *Recent Procedures*\n\nNo recent procedures found."
	}

	var b strings.Builder
	b.WriteString("🏥 *Recent Procedures*\n\n")
	shown, rest := capList(len(procs))
	for i, p := range procs[:shown] {
		fmt.Fprintf(&b, "*%d. %s*\n", i+1, p.Date.Format(dateLayout))
		fmt.Fprintf(&b, "Procedure: %s\n", p.Name)
		if p.Facility != nil {
			fmt.Fprintf(&b, "Facility: %s\n", *p.Facility)
		}
		fmt.Fprintf(&b, "Status: %s\n\n", p.Status)
	}
	if rest > 0 {
		fmt.Fprintf(&b, "... and %d more procedures\n\n", rest)
	}
	b.WriteString("📋 Contact provider for detailed reports.")
	return truncate(b.String())
}

// FormatSearchResults renders staff search results with masked phone numbers.
func FormatSearchResults(results []PatientSummary, query string) string {
	if len(results) == 0 {
		return fmt.Sprintf("🔍 No patients found matching '%s'.\nTry searching with a different term.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *Search Results for '%s'*\n\n", query)
	shown, rest := capList(len(results))
	for i, p := range results[:shown] {
		fmt.Fprintf(&b, "*%d. %s*\n", i+1, p.Name)
		fmt.Fprintf(&b, "ID: %s\n", p.ExternalID)
		if p.Age != nil {
			fmt.Fprintf(&b, "Age: %d\n", *p.Age)
		}
		if p.Gender != nil {
			fmt.Fprintf(&b, "Gender: %s\n", *p.Gender)
		}
		fmt.Fprintf(&b, "Phone: %s\n\n", MaskPhone(p.Phone))
	}
	if rest > 0 {
		fmt.Fprintf(&b, "... and %d more results\n\n", rest)
	}
	b.WriteString("💡 Use `patient info <ID>` for details.")
	return truncate(b.String())
}

// FormatPatientInfo renders the staff-facing patient summary with a masked
// phone number.
func FormatPatientInfo(p *PatientSummary) string {
	var b strings.Builder
	b.WriteString("👤 *Patient Summary*\n\n")
	fmt.Fprintf(&b, "*Name:* %s\n", p.Name)
	fmt.Fprintf(&b, "*ID:* %s\n", p.ExternalID)
	if p.Age != nil {
		fmt.Fprintf(&b, "*Age:* %d\n", *p.Age)
	}
	if p.Gender != nil {
		fmt.Fprintf(&b, "*Gender:* %s\n", *p.Gender)
	}
	if p.BloodGroup != nil {
		fmt.Fprintf(&b, "*Blood Group:* %s\n", *p.BloodGroup)
	}
	fmt.Fprintf(&b, "*Phone:* %s\n", MaskPhone(p.Phone))
	return truncate(b.String())
}

func capList(n int) (shown, rest int) {
	if n <= MaxListItems {
		return n, 0
	}
	return MaxListItems, n - MaxListItems
}

func truncate(msg string) string {
	if len(msg) <= MaxMessageLength {
		return msg
	}
	cut := msg[:MaxMessageLength-80]
	if i := strings.LastIndex(cut, " "); i > MaxMessageLength-200 {
		cut = cut[:i]
	}
	return cut + "\n\n... (message truncated)"
}
