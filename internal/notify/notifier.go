package notify

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ancsystem/anc-notifier/internal/directory"
	"github.com/ancsystem/anc-notifier/internal/logger"
	"github.com/ancsystem/anc-notifier/internal/model"
)

// Directory resolves a person's email from the users directory
type Directory interface {
	Lookup(ctx context.Context, firstname, surname, role string) (directory.Resolution, error)
}

// Mailer sends one HTML email to one recipient
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AddressSource says where a recipient address came from
type AddressSource string

const (
	SourceRecord    AddressSource = "record"
	SourceDirectory AddressSource = "directory"
	SourceMissing   AddressSource = "missing"
)

// Recipient roles
const (
	RecipientPatient = "patient"
	RecipientDoctor  = "doctor"
)

// Delivery is what happened for one party of an appointment
type Delivery struct {
	Recipient string
	Address   string
	Source    AddressSource
	Attempted bool
	Err       error
}

// Sent reports whether an email went out to this party
func (d Delivery) Sent() bool {
	return d.Attempted && d.Err == nil
}

// Outcome summarizes one trigger invocation. Nothing upstream consumes it;
// it feeds logs and tests.
type Outcome struct {
	Skipped bool
	Patient Delivery
	Doctor  Delivery
}

// AppointmentNotifier emails the patient and the doctor of a newly created
// appointment.
type AppointmentNotifier struct {
	dir       Directory
	mailer    Mailer
	formatter *Formatter
	log       *logger.Logger
}

// NewAppointmentNotifier creates a new AppointmentNotifier
func NewAppointmentNotifier(dir Directory, mailer Mailer, formatter *Formatter, log *logger.Logger) *AppointmentNotifier {
	return &AppointmentNotifier{
		dir:       dir,
		mailer:    mailer,
		formatter: formatter,
		log:       log.WithComponent("appointment_notifier"),
	}
}

// HandleCreated reacts to one new scheduled_appointment document. Failures are
// logged and never returned: there is no caller to report them to.
func (n *AppointmentNotifier) HandleCreated(ctx context.Context, docID string, appt *model.Appointment) Outcome {
	log := n.log.WithAppointmentID(docID)

	if appt.IsEmpty() {
		log.Debug().Msg("appointment document is empty; nothing to send")
		return Outcome{Skipped: true}
	}

	patient := n.resolve(ctx, log, RecipientPatient, appt.PatientEmail, appt.PatientFirstname, appt.PatientSurname, "")
	doctor := n.resolve(ctx, log, RecipientDoctor, appt.DoctorEmail, appt.DoctorFirstname, appt.DoctorSurname, model.RoleDoctor)

	msg := n.formatter.Format(appt)

	// No shared context cancellation: one failed send must not stop the other.
	var g errgroup.Group
	if doctor.Source != SourceMissing {
		doctor.Attempted = true
		g.Go(func() error {
			doctor.Err = n.mailer.Send(ctx, doctor.Address, msg.DoctorSubject, msg.DoctorBody)
			log.Notification(RecipientDoctor, doctor.Address, msg.DoctorSubject, doctor.Err)
			return doctor.Err
		})
	}
	if patient.Source != SourceMissing {
		patient.Attempted = true
		g.Go(func() error {
			patient.Err = n.mailer.Send(ctx, patient.Address, msg.PatientSubject, msg.PatientBody)
			log.Notification(RecipientPatient, patient.Address, msg.PatientSubject, patient.Err)
			return patient.Err
		})
	}

	switch err := g.Wait(); {
	case !doctor.Attempted && !patient.Attempted:
		log.Info().Msg("no recipient address resolved; no appointment emails sent")
	case err != nil:
		log.Error().Err(err).
			Bool("doctor_sent", doctor.Sent()).
			Bool("patient_sent", patient.Sent()).
			Msg("error sending appointment emails")
	default:
		log.Info().
			Str("doctor_email", doctor.Address).
			Str("patient_email", patient.Address).
			Msg("appointment emails sent")
	}

	return Outcome{Patient: patient, Doctor: doctor}
}

// resolve picks the recipient address in order: the address on the document,
// then the directory. A directory failure counts as missing.
func (n *AppointmentNotifier) resolve(ctx context.Context, log *logger.Logger, recipient, direct, firstname, surname, role string) Delivery {
	if addr := strings.TrimSpace(direct); addr != "" {
		return Delivery{Recipient: recipient, Address: addr, Source: SourceRecord}
	}

	res, err := n.dir.Lookup(ctx, firstname, surname, role)
	if err != nil {
		log.Warn().Err(err).Str("recipient_role", recipient).Msg("directory lookup failed")
		return Delivery{Recipient: recipient, Source: SourceMissing}
	}
	if addr, ok := res.Address(); ok {
		return Delivery{Recipient: recipient, Address: addr, Source: SourceDirectory}
	}
	return Delivery{Recipient: recipient, Source: SourceMissing}
}
