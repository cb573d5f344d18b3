package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ancsystem/anc-notifier/internal/model"
)

// Default rendering of appointment dates, close to an en-US locale string
const (
	DefaultDateLayout = "1/2/2006, 3:04:05 PM"
	DefaultTimezone   = "UTC"
	DefaultSenderName = "ANC System"
)

// Layouts accepted for appointment dates stored as strings, tried in order.
// Layouts without a zone are read in the formatter's location.
var dateStringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006 15:04",
	"1/2/2006",
}

// Formatted holds the rendered emails for one appointment
type Formatted struct {
	DateText       string
	PatientSubject string
	PatientBody    string
	DoctorSubject  string
	DoctorBody     string
}

// Formatter renders appointment documents into email subjects and bodies.
// It holds no mutable state and can be shared.
type Formatter struct {
	loc        *time.Location
	layout     string
	senderName string
}

// NewFormatter creates a Formatter rendering dates in timezone with layout.
// Empty arguments take the package defaults.
func NewFormatter(timezone, layout, senderName string) (*Formatter, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	if layout == "" {
		layout = DefaultDateLayout
	}
	if senderName == "" {
		senderName = DefaultSenderName
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	return &Formatter{loc: loc, layout: layout, senderName: senderName}, nil
}

// Format renders both emails. It never fails; an unusable date renders as "".
func (f *Formatter) Format(appt *model.Appointment) Formatted {
	if appt == nil {
		appt = &model.Appointment{}
	}
	date := f.DateText(appt.AppointmentDate)

	return Formatted{
		DateText:       date,
		PatientSubject: fmt.Sprintf("Your appointment is scheduled (%s)", date),
		PatientBody:    patientEmailHTML(appt, date, f.senderName),
		DoctorSubject:  fmt.Sprintf("New appointment assigned (%s)", date),
		DoctorBody:     doctorEmailHTML(appt, date, f.senderName),
	}
}

// DateText resolves an appointment_date value:
//  1. an object with non-zero _seconds (or seconds) is epoch seconds, and
//     renders as "" when out of range;
//  2. a string is parsed with dateStringLayouts;
//  3. anything else renders as its raw text; absent or null renders as "".
//
// Unparseable strings and any panic along the way render as "".
func (f *Formatter) DateText(raw json.RawMessage) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	switch raw[0] {
	case '{':
		secs, ok, inRange := epochSeconds(raw)
		switch {
		case ok && !inRange:
			return ""
		case ok:
			return f.render(time.Unix(secs, 0))
		}
		return compactJSON(raw)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		t, ok := f.parseDateString(s)
		if !ok {
			return ""
		}
		return f.render(t)
	default:
		return string(raw)
	}
}

func (f *Formatter) render(t time.Time) string {
	return t.In(f.loc).Format(f.layout)
}

func (f *Formatter) parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateStringLayouts {
		if t, err := time.ParseInLocation(layout, s, f.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// maxEpochSeconds bounds timestamps to +/-100,000,000 days around the epoch,
// the range an ECMAScript Date can hold.
const maxEpochSeconds = 8.64e12

// epochSeconds reads the seconds component of a serialized timestamp object.
// ok reports whether a non-zero value was present; inRange is false when it
// cannot be a real date.
func epochSeconds(raw json.RawMessage) (secs int64, ok, inRange bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return 0, false, false
	}
	for _, key := range []string{"_seconds", "seconds"} {
		v, found := fields[key]
		if !found {
			continue
		}
		f, err := strconv.ParseFloat(strings.Trim(string(v), `" `), 64)
		if errors.Is(err, strconv.ErrRange) {
			return 0, true, false
		}
		if err != nil || f == 0 {
			continue
		}
		if math.IsNaN(f) || math.Abs(f) > maxEpochSeconds {
			return 0, true, false
		}
		return int64(f), true, true
	}
	return 0, false, false
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
