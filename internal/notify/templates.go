package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/ancsystem/anc-notifier/internal/model"
)

// orDefault returns s, or fallback when s is blank. Values are HTML-escaped
// since they come straight from the stored document.
func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return html.EscapeString(fallback)
	}
	return html.EscapeString(s)
}

// patientEmailHTML returns the body sent to the patient.
func patientEmailHTML(appt *model.Appointment, date, senderName string) string {
	return fmt.Sprintf(`
<p>Dear %s,</p>
<p>Your appointment has been scheduled for <strong>%s</strong> with Dr. %s %s.</p>
<p>Notes: %s</p>
<p>Regards,<br/>%s</p>
`,
		orDefault(appt.PatientFirstname, "Patient"),
		html.EscapeString(date),
		orDefault(appt.DoctorFirstname, ""),
		orDefault(appt.DoctorSurname, ""),
		orDefault(appt.Notes, "N/A"),
		html.EscapeString(senderName),
	)
}

// doctorEmailHTML returns the body sent to the doctor.
func doctorEmailHTML(appt *model.Appointment, date, senderName string) string {
	return fmt.Sprintf(`
<p>Dear Dr. %s %s,</p>
<p>You have a new appointment scheduled for <strong>%s</strong> with patient %s %s.</p>
<p>Notes: %s</p>
<p>Regards,<br/>%s</p>
`,
		orDefault(appt.DoctorFirstname, ""),
		orDefault(appt.DoctorSurname, ""),
		html.EscapeString(date),
		orDefault(appt.PatientFirstname, ""),
		orDefault(appt.PatientSurname, ""),
		orDefault(appt.Notes, "N/A"),
		html.EscapeString(senderName),
	)
}
