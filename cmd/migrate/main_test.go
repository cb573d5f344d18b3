package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ancsystem/anc-notifier/internal/model"
)

func TestNextVersion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	v, err := nextVersion(dir)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	for _, name := range []string{
		"000001_users.up.sql",
		"000001_users.down.sql",
		"000007_scheduled_appointment.up.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	v, err = nextVersion(dir)
	require.NoError(t, err)
	require.Equal(t, 8, v)

	_, err = nextVersion(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestFakeAppointment(t *testing.T) {
	t.Parallel()

	patient := &model.User{Firstname: "Ann", Surname: "Lee", Email: "ann@example.com"}
	doctor := &model.User{Firstname: "Bob", Surname: "Ray", Role: model.RoleDoctor, Email: "bob@example.com"}

	for i := 0; i < 20; i++ {
		appt := fakeAppointment(patient, doctor)
		require.Equal(t, "Ann", appt.PatientFirstname)
		require.Equal(t, "Ray", appt.DoctorSurname)
		require.True(t, appt.HasDate())
		require.Contains(t, []string{"", "ann@example.com"}, appt.PatientEmail)
		require.Contains(t, []string{"", "bob@example.com"}, appt.DoctorEmail)
	}
}
