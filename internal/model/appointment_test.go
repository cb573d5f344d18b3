package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ancsystem/anc-notifier/internal/model"
)

func TestDecodeAppointment(t *testing.T) {
	t.Parallel()

	t.Run("stored document", func(t *testing.T) {
		t.Parallel()

		appt, err := model.DecodeAppointment([]byte(`{
			"patientFirstname": "Ann",
			"patientSurname": "Lee",
			"doctorEmail": "bob@example.com",
			"appointment_date": {"_seconds": 1700000000, "_nanoseconds": 0},
			"notes": "Fasting"
		}`))
		require.NoError(t, err)
		require.Equal(t, "Ann", appt.PatientFirstname)
		require.Equal(t, "bob@example.com", appt.DoctorEmail)
		require.True(t, appt.HasDate())
		require.JSONEq(t, `{"_seconds": 1700000000, "_nanoseconds": 0}`, string(appt.AppointmentDate))
		require.False(t, appt.IsEmpty())
	})

	t.Run("non-string fields still render", func(t *testing.T) {
		t.Parallel()

		appt, err := model.DecodeAppointment([]byte(`{
			"patientFirstname": 42,
			"patientSurname": null,
			"doctorEmail": "bob@example.com",
			"notes": 123,
			"unknown": {"nested": true}
		}`))
		require.NoError(t, err)
		require.Equal(t, "42", appt.PatientFirstname)
		require.Empty(t, appt.PatientSurname)
		require.Equal(t, "bob@example.com", appt.DoctorEmail)
		require.Equal(t, "123", appt.Notes)
		require.False(t, appt.HasDate())
	})

	t.Run("non-object document", func(t *testing.T) {
		t.Parallel()

		_, err := model.DecodeAppointment([]byte(`[1, 2]`))
		require.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		appt, err := model.DecodeAppointment([]byte("  "))
		require.NoError(t, err)
		require.Nil(t, appt)
		require.True(t, appt.IsEmpty())
	})

	t.Run("malformed input", func(t *testing.T) {
		t.Parallel()

		_, err := model.DecodeAppointment([]byte(`{"patientFirstname":`))
		require.Error(t, err)
	})
}

func TestAppointment_IsEmpty(t *testing.T) {
	t.Parallel()

	require.True(t, (&model.Appointment{}).IsEmpty())
	require.True(t, (&model.Appointment{PatientFirstname: "  ", AppointmentDate: []byte("null")}).IsEmpty())
	require.False(t, (&model.Appointment{Notes: "x"}).IsEmpty())
	require.False(t, (&model.Appointment{AppointmentDate: []byte(`"2024-01-01"`)}).IsEmpty())
}
