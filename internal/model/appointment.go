package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Appointment is a scheduled_appointment document as written by the booking side.
// Field names follow the stored documents.
type Appointment struct {
	PatientFirstname string          `json:"patientFirstname,omitempty" bson:"patientFirstname,omitempty"`
	PatientSurname   string          `json:"patientSurname,omitempty" bson:"patientSurname,omitempty"`
	PatientEmail     string          `json:"patientEmail,omitempty" bson:"patientEmail,omitempty"`
	DoctorFirstname  string          `json:"doctorFirstname,omitempty" bson:"doctorFirstname,omitempty"`
	DoctorSurname    string          `json:"doctorSurname,omitempty" bson:"doctorSurname,omitempty"`
	DoctorEmail      string          `json:"doctorEmail,omitempty" bson:"doctorEmail,omitempty"`
	AppointmentDate  json.RawMessage `json:"appointment_date,omitempty" bson:"-"`
	Notes            string          `json:"notes,omitempty" bson:"notes,omitempty"`
}

// IsEmpty reports whether the document carries no usable fields
func (a *Appointment) IsEmpty() bool {
	if a == nil {
		return true
	}
	return strings.TrimSpace(a.PatientFirstname) == "" &&
		strings.TrimSpace(a.PatientSurname) == "" &&
		strings.TrimSpace(a.PatientEmail) == "" &&
		strings.TrimSpace(a.DoctorFirstname) == "" &&
		strings.TrimSpace(a.DoctorSurname) == "" &&
		strings.TrimSpace(a.DoctorEmail) == "" &&
		!a.HasDate() &&
		strings.TrimSpace(a.Notes) == ""
}

// HasDate reports whether appointment_date is present and not null
func (a *Appointment) HasDate() bool {
	raw := bytes.TrimSpace(a.AppointmentDate)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// UnmarshalJSON reads the document field by field. The text fields accept any
// JSON scalar so a number or boolean written by a client still renders, while
// appointment_date is kept raw for the formatter.
func (a *Appointment) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*a = Appointment{
		PatientFirstname: textValue(fields["patientFirstname"]),
		PatientSurname:   textValue(fields["patientSurname"]),
		PatientEmail:     textValue(fields["patientEmail"]),
		DoctorFirstname:  textValue(fields["doctorFirstname"]),
		DoctorSurname:    textValue(fields["doctorSurname"]),
		DoctorEmail:      textValue(fields["doctorEmail"]),
		AppointmentDate:  fields["appointment_date"],
		Notes:            textValue(fields["notes"]),
	}
	return nil
}

// textValue renders a JSON value as text: strings unquoted, null as "",
// anything else as its compact JSON form.
func textValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// DecodeAppointment parses a stored document. Empty input yields (nil, nil).
func DecodeAppointment(data []byte) (*Appointment, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var appt Appointment
	if err := json.Unmarshal(data, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}
